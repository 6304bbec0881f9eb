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

	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/value"
	"github.com/probelang/probe-lang/internal/vmerror"
)

// matchType handles OpMatchType: A is the scrutinee, Hash is the expected
// type hash (a built-in kind's table entry, or a registered/RTTI type
// hash); Out receives a bool, never failing the instruction itself — a
// type mismatch is data, not an error, so the compiled match can branch on
// it with a plain JumpIfNot.
func (vm *VM) matchType(instr unit.Instruction) error {
	v, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	vm.set(instr.Out, value.Bool(v.TypeHash() == instr.Hash))
	return nil
}

// matchVariant handles OpMatchVariant: identical shape to matchType, but
// documents the enum-variant-tag case distinctly since variants use their
// own per-variant type hash (codegen's concern, not the VM's).
func (vm *VM) matchVariant(instr unit.Instruction) error {
	return vm.matchType(instr)
}

// matchObjectKeys handles OpMatchObjectKeys: A is an object value; Slot
// names the interned key set the pattern requires to be present (order
// irrelevant, extras in the object are fine — a "at least these fields"
// match, matching destructuring semantics for open object patterns).
func (vm *VM) matchObjectKeys(instr unit.Instruction) error {
	v, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	if v.Kind() != value.KindObject {
		vm.set(instr.Out, value.Bool(false))
		return nil
	}
	obj, err := v.AsObject()
	if err != nil {
		return err
	}
	keys, ok := vm.u.StaticObjectKeysAt(instr.Slot)
	if !ok {
		return fmt.Errorf("%w: object key slot %d out of range", vmerror.ErrBadArgument, instr.Slot)
	}
	for _, k := range keys {
		if _, present := obj.Get(k); !present {
			vm.set(instr.Out, value.Bool(false))
			return nil
		}
	}
	vm.set(instr.Out, value.Bool(true))
	return nil
}

// matchSequenceLen handles OpMatchSequenceLen: A is a Vec or Tuple; Imm is
// the length to compare against, exactly (Exact) or as a minimum.
func (vm *VM) matchSequenceLen(instr unit.Instruction) error {
	v, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	var n int
	switch v.Kind() {
	case value.KindVec:
		vec, err := v.AsVec()
		if err != nil {
			return err
		}
		n = len(vec.Elems)
	case value.KindTuple:
		tup, err := v.AsTuple()
		if err != nil {
			return err
		}
		n = len(tup.Elems)
	default:
		vm.set(instr.Out, value.Bool(false))
		return nil
	}
	want := int(instr.Imm)
	ok := n == want
	if !instr.Exact {
		ok = n >= want
	}
	vm.set(instr.Out, value.Bool(ok))
	return nil
}
