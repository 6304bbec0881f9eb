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
	"github.com/probelang/probe-lang/internal/value"
)

func (vm *VM) eq(instr unit.Instruction) error {
	a, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	b, err := vm.get(instr.B)
	if err != nil {
		return err
	}
	result, err := a.Eq(&inFrameCaller{vm}, b)
	if err != nil {
		return err
	}
	vm.set(instr.Out, value.Bool(result))
	return nil
}

func (vm *VM) neq(instr unit.Instruction) error {
	a, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	b, err := vm.get(instr.B)
	if err != nil {
		return err
	}
	result, err := a.Eq(&inFrameCaller{vm}, b)
	if err != nil {
		return err
	}
	vm.set(instr.Out, value.Bool(!result))
	return nil
}

func (vm *VM) ordering(instr unit.Instruction, accept func(value.Ordering) bool) error {
	a, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	b, err := vm.get(instr.B)
	if err != nil {
		return err
	}
	ord, err := a.Cmp(&inFrameCaller{vm}, b)
	if err != nil {
		return err
	}
	vm.set(instr.Out, value.Bool(accept(ord)))
	return nil
}

func (vm *VM) lt(instr unit.Instruction) error {
	return vm.ordering(instr, func(o value.Ordering) bool { return o == value.Less })
}

func (vm *VM) lte(instr unit.Instruction) error {
	return vm.ordering(instr, func(o value.Ordering) bool { return o != value.Greater })
}

func (vm *VM) gt(instr unit.Instruction) error {
	return vm.ordering(instr, func(o value.Ordering) bool { return o == value.Greater })
}

func (vm *VM) gte(instr unit.Instruction) error {
	return vm.ordering(instr, func(o value.Ordering) bool { return o != value.Less })
}

func (vm *VM) cmp(instr unit.Instruction) error {
	a, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	b, err := vm.get(instr.B)
	if err != nil {
		return err
	}
	ord, err := a.Cmp(&inFrameCaller{vm}, b)
	if err != nil {
		return err
	}
	vm.set(instr.Out, value.Integer(int64(ord)))
	return nil
}
