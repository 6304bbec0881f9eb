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

// dispatch decodes and executes a single instruction, delegating each
// opcode family to the helpers in this package's other files.
func (vm *VM) dispatch(instr unit.Instruction) error {
	switch instr.Op {
	// ---- Load literal ---------------------------------------------------
	case unit.OpLoadUnit:
		vm.set(instr.Out, value.Unit())
		return nil
	case unit.OpLoadBool:
		vm.set(instr.Out, value.Bool(instr.Imm != 0))
		return nil
	case unit.OpLoadInteger:
		vm.set(instr.Out, value.Integer(instr.Imm64))
		return nil
	case unit.OpLoadFloat:
		return vm.loadFloat(instr)
	case unit.OpLoadChar:
		vm.set(instr.Out, value.Char(rune(instr.Imm)))
		return nil
	case unit.OpLoadStaticStr:
		s, ok := vm.u.StaticString(instr.Slot)
		if !ok {
			return fmt.Errorf("%w: static string slot %d out of range", vmerror.ErrBadArgument, instr.Slot)
		}
		vm.set(instr.Out, value.String(s))
		return nil
	case unit.OpLoadConst:
		return vm.loadConst(instr)

	// ---- Move / copy ------------------------------------------------------
	case unit.OpCopy:
		v, err := vm.get(instr.A)
		if err != nil {
			return err
		}
		vm.set(instr.Out, v.Retain())
		return nil
	case unit.OpMove:
		v, err := vm.get(instr.A)
		if err != nil {
			return err
		}
		vm.stack.Set(vm.addr(instr.A), value.Unit())
		vm.set(instr.Out, v)
		return nil
	case unit.OpDrop:
		v, err := vm.get(instr.A)
		if err != nil {
			return err
		}
		if err := v.Release(); err != nil {
			return err
		}
		vm.stack.Set(vm.addr(instr.A), value.Unit())
		return nil
	case unit.OpSwap:
		return vm.stack.Swap(vm.addr(instr.A), vm.addr(instr.B))

	// ---- Arithmetic -------------------------------------------------------
	case unit.OpAdd:
		return vm.add(instr)
	case unit.OpSub:
		return vm.sub(instr)
	case unit.OpMul:
		return vm.mul(instr)
	case unit.OpDiv:
		return vm.div(instr)
	case unit.OpRem:
		return vm.rem(instr)
	case unit.OpNeg:
		return vm.neg(instr)

	// ---- Bitwise ------------------------------------------------------------
	case unit.OpBitAnd:
		return vm.bitAnd(instr)
	case unit.OpBitOr:
		return vm.bitOr(instr)
	case unit.OpBitXor:
		return vm.bitXor(instr)
	case unit.OpShl:
		return vm.shl(instr)
	case unit.OpShr:
		return vm.shr(instr)

	// ---- Comparison ---------------------------------------------------------
	case unit.OpEq:
		return vm.eq(instr)
	case unit.OpNeq:
		return vm.neq(instr)
	case unit.OpLt:
		return vm.lt(instr)
	case unit.OpLte:
		return vm.lte(instr)
	case unit.OpGt:
		return vm.gt(instr)
	case unit.OpGte:
		return vm.gte(instr)
	case unit.OpCmp:
		return vm.cmp(instr)

	// ---- Call -----------------------------------------------------------
	case unit.OpCallFn:
		return vm.callFn(instr)
	case unit.OpCall:
		return vm.call(instr)
	case unit.OpCallInstance:
		return vm.callInstance(instr)
	case unit.OpCallAssociated:
		return vm.callAssociated(instr)

	// ---- Flow -------------------------------------------------------------
	case unit.OpJump:
		return vm.jump(instr)
	case unit.OpJumpIf:
		return vm.jumpIf(instr)
	case unit.OpJumpIfNot:
		return vm.jumpIfNot(instr)
	case unit.OpJumpIfOrPop:
		return vm.jumpIfOrPop(instr)
	case unit.OpPopAndJumpIfNot:
		return vm.popAndJumpIfNot(instr)
	case unit.OpIterNext:
		return vm.iterNext(instr)

	// ---- Construct ----------------------------------------------------------
	case unit.OpTuple:
		return vm.tuple(instr)
	case unit.OpVec:
		return vm.vec(instr)
	case unit.OpObject:
		return vm.object(instr)
	case unit.OpTypedStruct:
		return vm.typedStruct(instr)
	case unit.OpTupleStruct:
		return vm.tupleStructOp(instr)
	case unit.OpClosure:
		return vm.closure(instr)

	// ---- Pattern ------------------------------------------------------------
	case unit.OpMatchType:
		return vm.matchType(instr)
	case unit.OpMatchVariant:
		return vm.matchVariant(instr)
	case unit.OpMatchObjectKeys:
		return vm.matchObjectKeys(instr)
	case unit.OpMatchSequenceLen:
		return vm.matchSequenceLen(instr)

	// ---- Coroutine ------------------------------------------------------------
	case unit.OpYield:
		return vm.yield(instr)
	case unit.OpYieldUnit:
		return vm.yieldUnit(instr)
	case unit.OpAwait:
		return vm.await(instr)
	case unit.OpReturn:
		v, err := vm.get(instr.A)
		if err != nil {
			return err
		}
		return vm.ret(v)
	case unit.OpReturnUnit:
		return vm.ret(value.Unit())

	// ---- Index / field --------------------------------------------------------
	case unit.OpIndexGet:
		return vm.indexGet(instr)
	case unit.OpIndexSet:
		return vm.indexSet(instr)
	case unit.OpObjectFieldGet:
		return vm.objectFieldGet(instr)
	case unit.OpTupleIndexGet:
		return vm.tupleIndexGet(instr)
	case unit.OpTupleIndexSet:
		return vm.tupleIndexSet(instr)

	default:
		return fmt.Errorf("runtime: unhandled opcode %s", instr.Op)
	}
}
