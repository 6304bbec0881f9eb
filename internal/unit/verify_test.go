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

package unit

import (
	"testing"

	"github.com/probelang/probe-lang/internal/hash"
)

func TestVerifyEmptyUnitIsClean(t *testing.T) {
	u := NewBuilder().Build()
	if errs := Verify(u); len(errs) != 0 {
		t.Fatalf("Verify(empty) = %v, want none", errs)
	}
}

func TestVerifyAcceptsWellFormedUnit(t *testing.T) {
	b := NewBuilder()
	b.Emit(Instruction{Op: OpLoadInteger, Imm64: 1, Out: 0})
	b.Emit(Instruction{Op: OpReturn, A: 0})
	b.RegisterFunction(hash.String("f"), FunctionMeta{Offset: 0, Args: 0, CallKind: Immediate, Name: "f"})
	u := b.Build()

	if errs := Verify(u); len(errs) != 0 {
		t.Fatalf("Verify(well-formed) = %v, want none", errs)
	}
}

func TestVerifyCatchesOutOfRangeConstIndex(t *testing.T) {
	b := NewBuilder()
	b.Emit(Instruction{Op: OpLoadConst, ConstID: 5, Out: 0})
	b.Emit(Instruction{Op: OpReturn, A: 0})
	b.RegisterFunction(hash.String("f"), FunctionMeta{Offset: 0, Args: 0, CallKind: Immediate, Name: "f"})
	u := b.Build()

	errs := Verify(u)
	if len(errs) == 0 {
		t.Fatal("expected an error for an out-of-range constant index")
	}
}

func TestVerifyCatchesOutOfRangeJumpTarget(t *testing.T) {
	b := NewBuilder()
	b.Emit(Instruction{Op: OpJump, Imm: 99})
	b.RegisterFunction(hash.String("f"), FunctionMeta{Offset: 0, Args: 0, CallKind: Immediate, Name: "f"})
	u := b.Build()

	errs := Verify(u)
	if len(errs) == 0 {
		t.Fatal("expected an error for a jump target outside the instruction buffer")
	}
}

func TestVerifyCatchesUnknownOpcode(t *testing.T) {
	b := NewBuilder()
	b.Emit(Instruction{Op: opcodeCount + 10})
	b.RegisterFunction(hash.String("f"), FunctionMeta{Offset: 0, Args: 0, CallKind: Immediate, Name: "f"})
	u := b.Build()

	errs := Verify(u)
	if len(errs) == 0 {
		t.Fatal("expected an error for an unknown opcode")
	}
}

func TestVerifyCatchesFunctionFallingOffTheEnd(t *testing.T) {
	b := NewBuilder()
	b.Emit(Instruction{Op: OpLoadInteger, Imm64: 1, Out: 0})
	b.RegisterFunction(hash.String("f"), FunctionMeta{Offset: 0, Args: 0, CallKind: Immediate, Name: "f"})
	u := b.Build()

	errs := Verify(u)
	if len(errs) == 0 {
		t.Fatal("expected an error for a function that doesn't end in return or jump")
	}
}

func TestVerifyChecksEachFunctionsOwnRange(t *testing.T) {
	b := NewBuilder()
	b.Emit(Instruction{Op: OpLoadInteger, Imm64: 1, Out: 0}) // f: offset 0
	b.Emit(Instruction{Op: OpReturn, A: 0})                  // f: offset 1
	b.Emit(Instruction{Op: OpLoadInteger, Imm64: 2, Out: 0}) // g: offset 2
	b.Emit(Instruction{Op: OpReturnUnit})                    // g: offset 3
	b.RegisterFunction(hash.String("f"), FunctionMeta{Offset: 0, Args: 0, CallKind: Immediate, Name: "f"})
	b.RegisterFunction(hash.String("g"), FunctionMeta{Offset: 2, Args: 0, CallKind: Immediate, Name: "g"})
	u := b.Build()

	if errs := Verify(u); len(errs) != 0 {
		t.Fatalf("Verify(two well-formed functions) = %v, want none", errs)
	}
}
