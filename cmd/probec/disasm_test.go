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

package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintFunctionTableListsCompiledFunctions(t *testing.T) {
	path := writeSource(t, `
		fn square(x: int) -> int { x * x }
		fn main() -> int { square(4) }
	`)
	comp, err := compileFile(path, defaultConfig())
	if err != nil {
		t.Fatalf("compileFile: %v", err)
	}

	var buf bytes.Buffer
	printFunctionTable(&buf, comp.unit)
	out := buf.String()
	if !strings.Contains(out, "square") || !strings.Contains(out, "main") {
		t.Fatalf("function table missing expected names: %s", out)
	}
}

func TestPrintInstructionsShowsCallOpcode(t *testing.T) {
	path := writeSource(t, `
		fn square(x: int) -> int { x * x }
		fn main() -> int { square(4) }
	`)
	comp, err := compileFile(path, defaultConfig())
	if err != nil {
		t.Fatalf("compileFile: %v", err)
	}

	var buf bytes.Buffer
	printInstructions(&buf, comp.unit)
	if !strings.Contains(buf.String(), "call") {
		t.Fatalf("expected a call instruction in disassembly: %s", buf.String())
	}
}
