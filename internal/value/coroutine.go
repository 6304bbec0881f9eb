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

package value

// StepKind tags the result of resuming a Coroutine one step.
type StepKind uint8

const (
	// StepYielded carries an intermediate value from a generator/stream;
	// the coroutine is still alive.
	StepYielded StepKind = iota
	// StepComplete carries the final return value; the coroutine is
	// exhausted and any further resume is a GeneratorComplete-class error.
	StepComplete
	// StepPending means a Future/Stream is not ready yet; no value is
	// attached.
	StepPending
)

// Step is the result of one Coroutine.Resume call.
type Step struct {
	Kind  StepKind
	Value Value
}

// Coroutine is implemented by internal/runtime.Execution. Holding this
// interface (rather than a concrete VM type) in Generator/Stream/Future
// values lets the value package stay independent of internal/runtime,
// which itself depends on value.
//
// Generators consult arg (the value passed to next(value)); per the
// resolved resume-argument convention, streams and futures ignore arg.
type Coroutine interface {
	CoroutineKind() Kind
	Resume(arg Value) (Step, error)
	// Cancel releases the coroutine's owned VM and any borrows its frames
	// still hold, without running it to completion. Idempotent.
	Cancel()
}
