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
	"errors"
	"fmt"

	"github.com/probelang/probe-lang/internal/cell"
	"github.com/probelang/probe-lang/internal/protocol"
	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/value"
	"github.com/probelang/probe-lang/internal/vmerror"
)

// translateBorrowError maps a *cell.AccessError onto the matching
// vmerror sentinel so hosts can errors.Is against vmerror's taxonomy
// without depending on internal/cell directly.
func translateBorrowError(err error) error {
	switch {
	case errors.Is(err, cell.ErrAlreadyBorrowedExclusive):
		return fmt.Errorf("%w", vmerror.ErrAlreadyBorrowedExclusive)
	case errors.Is(err, cell.ErrAlreadyBorrowedShared):
		return fmt.Errorf("%w", vmerror.ErrAlreadyBorrowedShared)
	case errors.Is(err, cell.ErrMoved):
		return fmt.Errorf("%w", vmerror.ErrMoved)
	default:
		return err
	}
}

// indexGet handles OpIndexGet: A is the receiver, B is the index. Vec/Tuple
// with an integer index take an inline fast path (a shared read via Peek,
// matching the rest of the codebase's convention that reads don't need an
// exclusive borrow); every other pairing dispatches through INDEX_GET.
func (vm *VM) indexGet(instr unit.Instruction) error {
	recv, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	idx, err := vm.get(instr.B)
	if err != nil {
		return err
	}
	if idx.Kind() == value.KindInteger {
		i, _ := idx.AsInteger()
		switch recv.Kind() {
		case value.KindVec:
			vec, err := recv.AsVec()
			if err != nil {
				return err
			}
			if i < 0 || int(i) >= len(vec.Elems) {
				return fmt.Errorf("%w: vec index %d out of range (len %d)", vmerror.ErrBadArgument, i, len(vec.Elems))
			}
			vm.set(instr.Out, vec.Elems[i])
			return nil
		case value.KindTuple:
			tup, err := recv.AsTuple()
			if err != nil {
				return err
			}
			if i < 0 || int(i) >= len(tup.Elems) {
				return fmt.Errorf("%w: tuple index %d out of range (len %d)", vmerror.ErrBadArgument, i, len(tup.Elems))
			}
			vm.set(instr.Out, tup.Elems[i])
			return nil
		case value.KindBytes:
			b, err := recv.AsBytes()
			if err != nil {
				return err
			}
			if i < 0 || int(i) >= len(b) {
				return fmt.Errorf("%w: bytes index %d out of range (len %d)", vmerror.ErrBadArgument, i, len(b))
			}
			vm.set(instr.Out, value.Byte(b[i]))
			return nil
		}
	}
	result, err := recv.ProtocolCall(&inFrameCaller{vm}, protocol.IndexGet, []value.Value{idx})
	if err != nil {
		return err
	}
	vm.set(instr.Out, result)
	return nil
}

// indexSet handles OpIndexSet: A is the receiver, B is the index, C is the
// value. Vec mutation requires the exclusive borrow (spec.md's borrow-
// checking rule): a receiver already borrowed (e.g. aliased and iterated
// elsewhere) fails with vmerror.ErrAlreadyBorrowedExclusive/Shared instead
// of silently mutating through the alias.
func (vm *VM) indexSet(instr unit.Instruction) error {
	recv, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	idx, err := vm.get(instr.B)
	if err != nil {
		return err
	}
	val, err := vm.get(instr.C)
	if err != nil {
		return err
	}
	if idx.Kind() == value.KindInteger && (recv.Kind() == value.KindVec || recv.Kind() == value.KindTuple) {
		i, _ := idx.AsInteger()
		cellRef := recv.Cell()
		guard, err := cellRef.BorrowMut()
		if err != nil {
			return translateBorrowError(err)
		}
		defer guard.Release()
		switch payload := (*guard.Get()).(type) {
		case *value.Vec:
			if i < 0 || int(i) >= len(payload.Elems) {
				return fmt.Errorf("%w: vec index %d out of range (len %d)", vmerror.ErrBadArgument, i, len(payload.Elems))
			}
			payload.Elems[i] = val
		case *value.Tuple:
			if i < 0 || int(i) >= len(payload.Elems) {
				return fmt.Errorf("%w: tuple index %d out of range (len %d)", vmerror.ErrBadArgument, i, len(payload.Elems))
			}
			payload.Elems[i] = val
		default:
			return fmt.Errorf("%w: index-set on unexpected payload", vmerror.ErrExpectedType)
		}
		return nil
	}
	_, err = recv.ProtocolCall(&inFrameCaller{vm}, protocol.IndexSet, []value.Value{idx, val})
	return err
}

// objectFieldGet handles OpObjectFieldGet: A is the receiver, Slot is the
// static field-name string; works against both plain objects and named
// structs.
func (vm *VM) objectFieldGet(instr unit.Instruction) error {
	recv, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	name, ok := vm.u.StaticString(instr.Slot)
	if !ok {
		return fmt.Errorf("%w: static string slot %d out of range", vmerror.ErrBadArgument, instr.Slot)
	}
	switch recv.Kind() {
	case value.KindObject:
		obj, err := recv.AsObject()
		if err != nil {
			return err
		}
		v, present := obj.Get(name)
		if !present {
			return fmt.Errorf("%w: object has no field %q", vmerror.ErrBadArgument, name)
		}
		vm.set(instr.Out, v)
		return nil
	case value.KindStruct:
		sd, err := recv.AsStruct()
		if err != nil {
			return err
		}
		idx, ok := sd.RTTI.FieldIndexOf(name)
		if !ok {
			return fmt.Errorf("%w: %s has no field %q", vmerror.ErrBadArgument, sd.RTTI.Path.String(), name)
		}
		vm.set(instr.Out, sd.Fields[idx])
		return nil
	default:
		return fmt.Errorf("%w: field access on non-object/struct value", vmerror.ErrExpectedType)
	}
}

// tupleIndexGet handles OpTupleIndexGet: A is the receiver, Imm is the
// literal positional index; works against anonymous tuples and tuple
// structs alike.
func (vm *VM) tupleIndexGet(instr unit.Instruction) error {
	recv, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	i := int(instr.Imm)
	switch recv.Kind() {
	case value.KindTuple:
		tup, err := recv.AsTuple()
		if err != nil {
			return err
		}
		if i < 0 || i >= len(tup.Elems) {
			return fmt.Errorf("%w: tuple index %d out of range (len %d)", vmerror.ErrBadArgument, i, len(tup.Elems))
		}
		vm.set(instr.Out, tup.Elems[i])
		return nil
	case value.KindTupleStruct:
		sd, err := recv.AsStruct()
		if err != nil {
			return err
		}
		if i < 0 || i >= len(sd.Fields) {
			return fmt.Errorf("%w: tuple struct index %d out of range (len %d)", vmerror.ErrBadArgument, i, len(sd.Fields))
		}
		vm.set(instr.Out, sd.Fields[i])
		return nil
	default:
		return fmt.Errorf("%w: positional index on non-tuple value", vmerror.ErrExpectedType)
	}
}

// tupleIndexSet handles OpTupleIndexSet: A is the receiver, Imm is the
// literal positional index, B is the value; mutation through the same
// exclusive-borrow discipline as indexSet.
func (vm *VM) tupleIndexSet(instr unit.Instruction) error {
	recv, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	val, err := vm.get(instr.B)
	if err != nil {
		return err
	}
	i := int(instr.Imm)
	cellRef := recv.Cell()
	if cellRef == nil {
		return fmt.Errorf("%w: positional set on non-tuple value", vmerror.ErrExpectedType)
	}
	guard, err := cellRef.BorrowMut()
	if err != nil {
		return translateBorrowError(err)
	}
	defer guard.Release()
	switch payload := (*guard.Get()).(type) {
	case *value.Tuple:
		if i < 0 || i >= len(payload.Elems) {
			return fmt.Errorf("%w: tuple index %d out of range (len %d)", vmerror.ErrBadArgument, i, len(payload.Elems))
		}
		payload.Elems[i] = val
	case *value.StructData:
		if i < 0 || i >= len(payload.Fields) {
			return fmt.Errorf("%w: tuple struct index %d out of range (len %d)", vmerror.ErrBadArgument, i, len(payload.Fields))
		}
		payload.Fields[i] = val
	default:
		return fmt.Errorf("%w: positional set on unexpected payload", vmerror.ErrExpectedType)
	}
	return nil
}
