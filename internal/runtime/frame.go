// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

package runtime

import (
	"github.com/probelang/probe-lang/internal/unit"
)

// Frame is the saved state needed to resume a caller once a callee returns:
// which Unit and instruction to resume at, where the callee's stack window
// began, where to write its result, and which coroutine kind it was
// entered under (only ever Immediate for a plain call/return; Generator/
// Stream/Async frames never reach Return inside this frame — they live
// inside their own Execution's VM instead).
type Frame struct {
	ReturnUnit   *unit.Unit
	ReturnIP     uint32
	Base         int64
	Output       int64
	CallKind     unit.CallKind
	FunctionName string
}
