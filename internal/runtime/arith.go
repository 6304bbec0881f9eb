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

	"github.com/probelang/probe-lang/internal/protocol"
	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/value"
	"github.com/probelang/probe-lang/internal/vmerror"
)

// binOp evaluates a binary arithmetic/bitwise instruction: two inline
// integers or floats of the same kind take a fast path that never touches
// protocol dispatch; strings/bytes get a builtin ADD (concatenation); every
// other pairing falls back to the operand's protocol implementation.
func (vm *VM) binOp(instr unit.Instruction, p protocol.Protocol, inlineInt func(a, b int64) (int64, error), inlineFloat func(a, b float64) float64) error {
	a, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	b, err := vm.get(instr.B)
	if err != nil {
		return err
	}

	if a.Kind() == value.KindInteger && b.Kind() == value.KindInteger && inlineInt != nil {
		ai, _ := a.AsInteger()
		bi, _ := b.AsInteger()
		r, err := inlineInt(ai, bi)
		if err != nil {
			return err
		}
		vm.set(instr.Out, value.Integer(r))
		return nil
	}
	if a.Kind() == value.KindFloat && b.Kind() == value.KindFloat && inlineFloat != nil {
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		vm.set(instr.Out, value.Float(inlineFloat(af, bf)))
		return nil
	}
	if p.Hash == protocol.Add.Hash {
		if a.Kind() == value.KindString && b.Kind() == value.KindString {
			as, _ := a.AsString()
			bs, _ := b.AsString()
			vm.set(instr.Out, value.String(as+bs))
			return nil
		}
		if a.Kind() == value.KindBytes && b.Kind() == value.KindBytes {
			ab, _ := a.AsBytes()
			bb, _ := b.AsBytes()
			vm.set(instr.Out, value.Bytes(append(append([]byte(nil), ab...), bb...)))
			return nil
		}
	}
	result, err := a.ProtocolCall(&inFrameCaller{vm}, p, []value.Value{b})
	if err != nil {
		return err
	}
	vm.set(instr.Out, result)
	return nil
}

func (vm *VM) add(instr unit.Instruction) error {
	return vm.binOp(instr, protocol.Add, addInt, func(a, b float64) float64 { return a + b })
}

func (vm *VM) sub(instr unit.Instruction) error {
	return vm.binOp(instr, protocol.Sub, subInt, func(a, b float64) float64 { return a - b })
}

func (vm *VM) mul(instr unit.Instruction) error {
	return vm.binOp(instr, protocol.Mul, mulInt, func(a, b float64) float64 { return a * b })
}

func (vm *VM) div(instr unit.Instruction) error {
	return vm.binOp(instr, protocol.Div, divInt, func(a, b float64) float64 { return a / b })
}

func (vm *VM) rem(instr unit.Instruction) error {
	return vm.binOp(instr, protocol.Rem, remInt, math.Mod)
}

func (vm *VM) bitAnd(instr unit.Instruction) error {
	return vm.binOp(instr, protocol.BitAnd, func(a, b int64) (int64, error) { return a & b, nil }, nil)
}

func (vm *VM) bitOr(instr unit.Instruction) error {
	return vm.binOp(instr, protocol.BitOr, func(a, b int64) (int64, error) { return a | b, nil }, nil)
}

func (vm *VM) bitXor(instr unit.Instruction) error {
	return vm.binOp(instr, protocol.BitXor, func(a, b int64) (int64, error) { return a ^ b, nil }, nil)
}

func (vm *VM) shl(instr unit.Instruction) error {
	return vm.binOp(instr, protocol.Shl, func(a, b int64) (int64, error) { return a << (uint64(b) % 64), nil }, nil)
}

func (vm *VM) shr(instr unit.Instruction) error {
	return vm.binOp(instr, protocol.Shr, func(a, b int64) (int64, error) { return a >> (uint64(b) % 64), nil }, nil)
}

// neg handles unary negation: inline integer/float fast path, protocol
// fallback otherwise.
func (vm *VM) neg(instr unit.Instruction) error {
	a, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	switch a.Kind() {
	case value.KindInteger:
		ai, _ := a.AsInteger()
		if ai == math.MinInt64 {
			return fmt.Errorf("%w: negating minimum integer", vmerror.ErrOverflow)
		}
		vm.set(instr.Out, value.Integer(-ai))
		return nil
	case value.KindFloat:
		af, _ := a.AsFloat()
		vm.set(instr.Out, value.Float(-af))
		return nil
	default:
		result, err := a.ProtocolCall(&inFrameCaller{vm}, protocol.Neg, nil)
		if err != nil {
			return err
		}
		vm.set(instr.Out, result)
		return nil
	}
}

func addInt(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, fmt.Errorf("%w: %d + %d", vmerror.ErrOverflow, a, b)
	}
	return sum, nil
}

func subInt(a, b int64) (int64, error) {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return 0, fmt.Errorf("%w: %d - %d", vmerror.ErrOverflow, a, b)
	}
	return diff, nil
}

func mulInt(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	product := a * b
	if product/b != a {
		return 0, fmt.Errorf("%w: %d * %d", vmerror.ErrOverflow, a, b)
	}
	return product, nil
}

func divInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, fmt.Errorf("%w: %d / 0", vmerror.ErrDivideByZero, a)
	}
	if a == math.MinInt64 && b == -1 {
		return 0, fmt.Errorf("%w: %d / %d", vmerror.ErrOverflow, a, b)
	}
	return a / b, nil
}

func remInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, fmt.Errorf("%w: %d %% 0", vmerror.ErrDivideByZero, a)
	}
	if a == math.MinInt64 && b == -1 {
		return 0, nil
	}
	return a % b, nil
}
