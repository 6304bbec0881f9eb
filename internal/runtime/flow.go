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
	"fmt"

	"github.com/probelang/probe-lang/internal/protocol"
	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/value"
	"github.com/probelang/probe-lang/internal/vmerror"
)

// jump handles OpJump: Imm is an absolute instruction offset within the
// current unit.
func (vm *VM) jump(instr unit.Instruction) error {
	vm.ip = uint32(instr.Imm)
	return nil
}

func (vm *VM) jumpIf(instr unit.Instruction) error {
	cond, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	b, err := cond.AsBool()
	if err != nil {
		return fmt.Errorf("%w: jump-if condition is not a bool", vmerror.ErrExpectedType)
	}
	if b {
		vm.ip = uint32(instr.Imm)
	}
	return nil
}

func (vm *VM) jumpIfNot(instr unit.Instruction) error {
	cond, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	b, err := cond.AsBool()
	if err != nil {
		return fmt.Errorf("%w: jump-if-not condition is not a bool", vmerror.ErrExpectedType)
	}
	if !b {
		vm.ip = uint32(instr.Imm)
	}
	return nil
}

// jumpIfOrPop handles OpJumpIfOrPop: used for short-circuit `||` — if A is
// true, leave it in place (it becomes the expression's value) and jump;
// otherwise drop it and fall through to evaluate the right-hand side.
func (vm *VM) jumpIfOrPop(instr unit.Instruction) error {
	cond, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	b, err := cond.AsBool()
	if err != nil {
		return fmt.Errorf("%w: jump-if-or-pop condition is not a bool", vmerror.ErrExpectedType)
	}
	if b {
		vm.ip = uint32(instr.Imm)
		return nil
	}
	vm.set(instr.A, value.Unit())
	return nil
}

// popAndJumpIfNot handles OpPopAndJumpIfNot: used for short-circuit `&&` —
// always drops A, then jumps only if it was false.
func (vm *VM) popAndJumpIfNot(instr unit.Instruction) error {
	cond, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	b, err := cond.AsBool()
	if err != nil {
		return fmt.Errorf("%w: pop-and-jump-if-not condition is not a bool", vmerror.ErrExpectedType)
	}
	vm.set(instr.A, value.Unit())
	if !b {
		vm.ip = uint32(instr.Imm)
	}
	return nil
}

// iterNext handles OpIterNext: A holds a Range or a Generator/Stream
// Coroutine; advancing a Range is a pure inline computation, while a
// Coroutine drives through the same Resume path a host would use. Out
// receives the produced value (Unit once the iterator is exhausted), and
// the loop-continue flag is written directly to C, so no second
// instruction is needed to test for exhaustion.
func (vm *VM) iterNext(instr unit.Instruction) error {
	recv, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	switch recv.Kind() {
	case value.KindRange:
		return vm.rangeNext(instr, recv)
	case value.KindGenerator, value.KindStream:
		co, err := recv.AsCoroutine()
		if err != nil {
			return err
		}
		step, err := co.Resume(value.Unit())
		if err != nil {
			return err
		}
		switch step.Kind {
		case value.StepYielded:
			vm.set(instr.Out, step.Value)
			vm.set(instr.C, value.Bool(true))
		case value.StepComplete, value.StepPending:
			vm.set(instr.Out, value.Unit())
			vm.set(instr.C, value.Bool(false))
		}
		return nil
	default:
		return fmt.Errorf("%w: iter-next on non-iterable value", vmerror.ErrExpectedType)
	}
}

func (vm *VM) rangeNext(instr unit.Instruction, recv value.Value) error {
	r, err := recv.AsRange()
	if err != nil {
		return err
	}
	if r.Start == nil {
		vm.set(instr.Out, value.Unit())
		vm.set(instr.C, value.Bool(false))
		return nil
	}
	cur, err := r.Start.AsInteger()
	if err != nil {
		return fmt.Errorf("%w: range iteration only supports integer bounds", vmerror.ErrExpectedType)
	}
	if r.End != nil {
		end, _ := r.End.AsInteger()
		limit := end
		if r.Kind == value.RangeInclusive {
			limit = end + 1
		}
		if cur >= limit {
			vm.set(instr.Out, value.Unit())
			vm.set(instr.C, value.Bool(false))
			return nil
		}
	}
	next := value.Integer(cur + 1)
	r.Start = &next
	vm.set(instr.Out, value.Integer(cur))
	vm.set(instr.C, value.Bool(true))
	return nil
}
