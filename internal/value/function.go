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

import "github.com/probelang/probe-lang/internal/unit"

// FunctionForm distinguishes the three shapes a Function value may take.
type FunctionForm uint8

const (
	// FormOffset is a plain reference into a Unit's instruction buffer.
	FormOffset FunctionForm = iota
	// FormNative wraps a host-registered handler.
	FormNative
	// FormClosure is an Offset function plus a captured environment.
	FormClosure
)

// Stack is the minimal surface a NativeHandler needs from the VM's value
// stack. internal/stack.Stack implements this interface structurally, so
// this package never imports internal/stack (which itself imports value),
// avoiding an import cycle.
type Stack interface {
	At(addr int64) (Value, bool)
	Set(addr int64, v Value)
	Len() int
}

// NativeHandler is a host-registered function body. It reads arguments
// starting at argsAddr, writes its result to output (unless output is
// DiscardAddr), and may grow the stack only temporarily beyond
// argsAddr+max(argCount, 1).
type NativeHandler func(stack Stack, argsAddr int64, argCount uint32, output int64) error

// Function is the payload behind a KindFunction shared value.
type Function struct {
	Form FunctionForm

	// Populated when Form == FormOffset or FormClosure.
	Unit             *unit.Unit
	InstructionOffset uint32
	ArgumentCount     uint32
	CallKind          unit.CallKind

	// Populated when Form == FormNative.
	Handler NativeHandler

	// Populated when Form == FormClosure: values captured from the
	// enclosing scope at closure-creation time, addressed by capture index.
	Captured []Value
}

// NewOffsetFunction builds a Function value referencing a Unit-local
// instruction offset.
func NewOffsetFunction(u *unit.Unit, offset, args uint32, callKind unit.CallKind) Function {
	return Function{
		Form:              FormOffset,
		Unit:              u,
		InstructionOffset: offset,
		ArgumentCount:     args,
		CallKind:          callKind,
	}
}

// NewNativeFunction builds a Function value wrapping a host handler.
func NewNativeFunction(h NativeHandler) Function {
	return Function{Form: FormNative, Handler: h, CallKind: unit.Immediate}
}

// NewClosureFunction builds a Function value closing over captured values.
func NewClosureFunction(u *unit.Unit, offset, args uint32, callKind unit.CallKind, captured []Value) Function {
	return Function{
		Form:              FormClosure,
		Unit:              u,
		InstructionOffset: offset,
		ArgumentCount:     args,
		CallKind:          callKind,
		Captured:          captured,
	}
}
