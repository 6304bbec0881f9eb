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
	"fmt"
	"sort"
)

// VerifyError is one defect found in a Unit by Verify. Offset is the
// instruction index the defect was found at.
type VerifyError struct {
	Offset  uint32
	Message string
}

func (e VerifyError) Error() string {
	return fmt.Sprintf("verify error at instruction %d: %s", e.Offset, e.Message)
}

// Verify statically checks a Unit for the defects a miscompiled or
// hand-assembled unit could carry: a jump targeting an instruction outside
// the buffer, a LoadConst/Object/TypedStruct/MatchObjectKeys referencing a
// pool slot that doesn't exist, and a function body that falls off the end
// of its instructions without returning. It never inspects register
// addresses — unlike a fixed register file, probe-lang's operand stack
// grows with call depth, so an address is only meaningful relative to a
// frame the verifier does not simulate; internal/runtime's bounds checks
// cover that at execution time instead.
//
// Verify does not execute the unit and returns every defect found rather
// than stopping at the first one, so a caller can report them all at once.
func Verify(u *Unit) []VerifyError {
	var errs []VerifyError
	if len(u.Instructions) == 0 {
		return errs
	}

	for ip, instr := range u.Instructions {
		off := uint32(ip)
		if instr.Op >= opcodeCount {
			errs = append(errs, VerifyError{Offset: off, Message: fmt.Sprintf("unknown opcode: %d", instr.Op)})
			continue
		}

		switch instr.Op {
		case OpLoadConst:
			if int(instr.ConstID) >= len(u.Constants) {
				errs = append(errs, VerifyError{Offset: off, Message: fmt.Sprintf("constant index %d out of bounds (pool size %d)", instr.ConstID, len(u.Constants))})
			}
		case OpLoadStaticStr:
			if int(instr.Slot) >= len(u.StaticStrings) {
				errs = append(errs, VerifyError{Offset: off, Message: fmt.Sprintf("static string slot %d out of bounds (table size %d)", instr.Slot, len(u.StaticStrings))})
			}
		case OpObject, OpTypedStruct, OpMatchObjectKeys:
			if int(instr.Slot) >= len(u.StaticObjectKeys) {
				errs = append(errs, VerifyError{Offset: off, Message: fmt.Sprintf("object key slot %d out of bounds (table size %d)", instr.Slot, len(u.StaticObjectKeys))})
			}
		case OpJump, OpJumpIf, OpJumpIfNot, OpJumpIfOrPop, OpPopAndJumpIfNot:
			target := instr.Imm
			if target < 0 || int(target) >= len(u.Instructions) {
				errs = append(errs, VerifyError{Offset: off, Message: fmt.Sprintf("jump target %d out of bounds", target)})
			}
		}
	}

	errs = append(errs, verifyFunctionBodies(u)...)
	return errs
}

// verifyFunctionBodies checks that every function's instruction range, as
// bounded by its own Offset and the next function's Offset (or the end of
// the buffer for the last one), ends in an instruction that actually leaves
// the frame or branches elsewhere: a return, a unit return, or a jump. The
// jump's target is not checked. Any other final instruction means control
// can run off the end of the function's code into whatever follows it.
func verifyFunctionBodies(u *Unit) []VerifyError {
	if len(u.Functions) == 0 {
		return nil
	}

	offsets := make([]uint32, 0, len(u.Functions))
	for _, meta := range u.Functions {
		offsets = append(offsets, meta.Offset)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	var errs []VerifyError
	for i, start := range offsets {
		end := uint32(len(u.Instructions))
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if start >= end {
			errs = append(errs, VerifyError{Offset: start, Message: "function body is empty"})
			continue
		}
		last := u.Instructions[end-1]
		switch last.Op {
		case OpReturn, OpReturnUnit, OpJump:
		default:
			errs = append(errs, VerifyError{Offset: end - 1, Message: fmt.Sprintf("function at offset %d does not end in return or jump, found %q", start, last.Op)})
		}
	}
	return errs
}
