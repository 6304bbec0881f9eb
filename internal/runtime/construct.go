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
	"math"

	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/value"
	"github.com/probelang/probe-lang/internal/vmerror"
)

// constToValue converts a Unit's constant-pool entry into a runtime Value,
// resolving ConstStaticString through the Unit's string table and
// ConstTuple recursively through further constant-pool entries.
func constToValue(u *unit.Unit, c unit.ConstValue) (value.Value, error) {
	switch c.Kind {
	case unit.ConstUnit:
		return value.Unit(), nil
	case unit.ConstBool:
		return value.Bool(c.Integer != 0), nil
	case unit.ConstByte:
		return value.Byte(byte(c.Integer)), nil
	case unit.ConstChar:
		return value.Char(rune(c.Integer)), nil
	case unit.ConstInteger:
		return value.Integer(c.Integer), nil
	case unit.ConstFloat:
		return value.Float(c.Float), nil
	case unit.ConstStaticString:
		s, ok := u.StaticString(c.StrSlot)
		if !ok {
			return value.Value{}, fmt.Errorf("%w: static string slot %d out of range", vmerror.ErrBadArgument, c.StrSlot)
		}
		return value.String(s), nil
	case unit.ConstTuple:
		elems := make([]value.Value, len(c.TupleIDs))
		for i, id := range c.TupleIDs {
			sub, ok := u.Constant(id)
			if !ok {
				return value.Value{}, fmt.Errorf("%w: constant id %d out of range", vmerror.ErrBadArgument, id)
			}
			v, err := constToValue(u, sub)
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = v
		}
		return value.TupleOf(elems), nil
	default:
		return value.Value{}, fmt.Errorf("%w: unknown constant kind %d", vmerror.ErrBadArgument, c.Kind)
	}
}

func (vm *VM) loadConst(instr unit.Instruction) error {
	c, ok := vm.u.Constant(instr.ConstID)
	if !ok {
		return fmt.Errorf("%w: constant id %d out of range", vmerror.ErrBadArgument, instr.ConstID)
	}
	v, err := constToValue(vm.u, c)
	if err != nil {
		return err
	}
	vm.set(instr.Out, v)
	return nil
}

func (vm *VM) loadFloat(instr unit.Instruction) error {
	vm.set(instr.Out, value.Float(math.Float64frombits(uint64(instr.Imm64))))
	return nil
}

// tuple handles OpTuple: ArgCount contiguous values starting at B are
// collected (copied, not moved) into a new tuple.
func (vm *VM) tuple(instr unit.Instruction) error {
	elems, err := vm.collectArgs(instr.B, instr.ArgCount)
	if err != nil {
		return err
	}
	vm.set(instr.Out, value.TupleOf(elems))
	return nil
}

func (vm *VM) vec(instr unit.Instruction) error {
	elems, err := vm.collectArgs(instr.B, instr.ArgCount)
	if err != nil {
		return err
	}
	vm.set(instr.Out, value.VecOf(elems))
	return nil
}

// object handles OpObject: Slot names the interned ordered key set; ArgCount
// values starting at B are the corresponding field values in that order.
func (vm *VM) object(instr unit.Instruction) error {
	keys, ok := vm.u.StaticObjectKeysAt(instr.Slot)
	if !ok {
		return fmt.Errorf("%w: object key slot %d out of range", vmerror.ErrBadArgument, instr.Slot)
	}
	vals, err := vm.collectArgs(instr.B, instr.ArgCount)
	if err != nil {
		return err
	}
	if len(vals) != len(keys) {
		return fmt.Errorf("%w: object expects %d fields, got %d", vmerror.ErrBadArgumentCount, len(keys), len(vals))
	}
	vm.set(instr.Out, value.ObjectOf(value.NewObject(keys, vals)))
	return nil
}

// typedStruct handles OpTypedStruct: a named-field struct whose RTTI is
// resolved via the type hash carried in Hash against the context's
// registered types, with field values and names matching object's layout.
func (vm *VM) typedStruct(instr unit.Instruction) error {
	decl, ok := vm.ctx.Type(instr.Hash)
	if !ok {
		return fmt.Errorf("%w: type 0x%016x not registered", vmerror.ErrExpectedType, uint64(instr.Hash))
	}
	rtti := value.NewRTTI(instr.Hash, decl.Path, decl.FieldNames)
	vals, err := vm.collectArgs(instr.B, instr.ArgCount)
	if err != nil {
		return err
	}
	if rtti.FieldCount != len(vals) {
		return fmt.Errorf("%w: struct expects %d fields, got %d", vmerror.ErrBadArgumentCount, rtti.FieldCount, len(vals))
	}
	if len(vals) == 0 {
		vm.set(instr.Out, value.EmptyStructOf(rtti))
		return nil
	}
	vm.set(instr.Out, value.StructOf(rtti, vals))
	return nil
}

// tupleStructOp handles OpTupleStruct: same as typedStruct but always
// positional, for types declared with parenthesized fields.
func (vm *VM) tupleStructOp(instr unit.Instruction) error {
	decl, ok := vm.ctx.Type(instr.Hash)
	if !ok {
		return fmt.Errorf("%w: type 0x%016x not registered", vmerror.ErrExpectedType, uint64(instr.Hash))
	}
	vals, err := vm.collectArgs(instr.B, instr.ArgCount)
	if err != nil {
		return err
	}
	rtti := value.NewTupleRTTI(instr.Hash, decl.Path, len(vals))
	vm.set(instr.Out, value.TupleStructOf(rtti, vals))
	return nil
}

// closure handles OpClosure: builds a Function value over an Offset body,
// capturing ArgCount values starting at B verbatim (already resolved to
// their captured values by codegen; the VM just copies them).
func (vm *VM) closure(instr unit.Instruction) error {
	captured, err := vm.collectArgs(instr.B, instr.ArgCount)
	if err != nil {
		return err
	}
	meta, ok := vm.u.Function(instr.Hash)
	if !ok {
		return fmt.Errorf("%w: closure body 0x%016x not found in unit", vmerror.ErrMissingFunction, uint64(instr.Hash))
	}
	fn := value.NewClosureFunction(vm.u, meta.Offset, meta.Args, meta.CallKind, captured)
	vm.set(instr.Out, value.FunctionOf(fn))
	return nil
}

// collectArgs copies (not moves) count values starting at the frame-
// relative address b.
func (vm *VM) collectArgs(b unit.Addr, count uint32) ([]value.Value, error) {
	out := make([]value.Value, count)
	for i := uint32(0); i < count; i++ {
		v, err := vm.get(b + unit.Addr(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
