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

import "github.com/probelang/probe-lang/internal/hash"

// Op is the opcode for one VM instruction. Unlike the fixed 4-byte register
// encoding of a typical bytecode VM, probe-lang's Instruction is a plain Go
// struct: operand widths vary too much across families (64-bit composite
// hashes for Call, small register addresses for arithmetic) to pack
// profitably, and the persisted format (internal/unitfmt) handles the wire
// encoding separately.
type Op uint16

const (
	// ---- Load literal -------------------------------------------------

	OpLoadUnit Op = iota
	OpLoadBool
	OpLoadInteger
	OpLoadFloat
	OpLoadChar
	OpLoadStaticStr
	OpLoadConst

	// ---- Move / copy ----------------------------------------------------

	OpCopy
	OpMove
	OpDrop
	OpSwap

	// ---- Arithmetic -----------------------------------------------------

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg

	// ---- Bitwise ---------------------------------------------------------

	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr

	// ---- Comparison -------------------------------------------------------

	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpCmp

	// ---- Call ---------------------------------------------------------

	OpCallFn
	OpCall
	OpCallInstance
	OpCallAssociated

	// ---- Flow -----------------------------------------------------------

	OpJump
	OpJumpIf
	OpJumpIfNot
	OpJumpIfOrPop
	OpPopAndJumpIfNot
	OpIterNext

	// ---- Construct ------------------------------------------------------

	OpTuple
	OpVec
	OpObject
	OpTypedStruct
	OpTupleStruct
	OpClosure

	// ---- Pattern ----------------------------------------------------------

	OpMatchType
	OpMatchVariant
	OpMatchObjectKeys
	OpMatchSequenceLen

	// ---- Coroutine --------------------------------------------------------

	OpYield
	OpYieldUnit
	OpAwait
	OpReturn
	OpReturnUnit

	// ---- Index / field ------------------------------------------------------

	OpIndexGet
	OpIndexSet
	OpObjectFieldGet
	OpTupleIndexGet
	OpTupleIndexSet

	opcodeCount
)

var opcodeNames = [opcodeCount]string{
	OpLoadUnit:         "load-unit",
	OpLoadBool:         "load-bool",
	OpLoadInteger:      "load-integer",
	OpLoadFloat:        "load-float",
	OpLoadChar:         "load-char",
	OpLoadStaticStr:    "load-static-str",
	OpLoadConst:        "load-const",
	OpCopy:             "copy",
	OpMove:             "move",
	OpDrop:             "drop",
	OpSwap:             "swap",
	OpAdd:              "add",
	OpSub:              "sub",
	OpMul:              "mul",
	OpDiv:              "div",
	OpRem:              "rem",
	OpNeg:              "neg",
	OpBitAnd:           "bit-and",
	OpBitOr:            "bit-or",
	OpBitXor:           "bit-xor",
	OpShl:              "shl",
	OpShr:              "shr",
	OpEq:               "eq",
	OpNeq:              "neq",
	OpLt:               "lt",
	OpLte:              "lte",
	OpGt:               "gt",
	OpGte:              "gte",
	OpCmp:              "cmp",
	OpCallFn:           "call-fn",
	OpCall:             "call",
	OpCallInstance:     "call-instance",
	OpCallAssociated:   "call-associated",
	OpJump:             "jump",
	OpJumpIf:           "jump-if",
	OpJumpIfNot:        "jump-if-not",
	OpJumpIfOrPop:      "jump-if-or-pop",
	OpPopAndJumpIfNot:  "pop-and-jump-if-not",
	OpIterNext:         "iter-next",
	OpTuple:            "tuple",
	OpVec:              "vec",
	OpObject:           "object",
	OpTypedStruct:      "typed-struct",
	OpTupleStruct:      "tuple-struct",
	OpClosure:          "closure",
	OpMatchType:        "match-type",
	OpMatchVariant:     "match-variant",
	OpMatchObjectKeys:  "match-object-keys",
	OpMatchSequenceLen: "match-sequence-len",
	OpYield:            "yield",
	OpYieldUnit:        "yield-unit",
	OpAwait:            "await",
	OpReturn:           "return",
	OpReturnUnit:       "return-unit",
	OpIndexGet:         "index-get",
	OpIndexSet:         "index-set",
	OpObjectFieldGet:   "object-field-get",
	OpTupleIndexGet:    "tuple-index-get",
	OpTupleIndexSet:    "tuple-index-set",
}

// String returns the opcode's disassembly mnemonic.
func (op Op) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "unknown-op"
}

// Addr is a stack address, relative to a frame's base once resolved, or the
// sentinel DiscardAddr meaning "the result is not written anywhere".
type Addr int64

// DiscardAddr marks an instruction's output as discarded.
const DiscardAddr Addr = -1

// Instruction is one decoded VM instruction. Not every field is meaningful
// for every Op; see the Op-specific doc comments in this file and in
// internal/runtime/dispatch.go for which fields each opcode reads.
type Instruction struct {
	Op Op

	// A, B, C are operand stack addresses (register indices relative to the
	// current frame's base), meaning depends on Op.
	A, B, C Addr

	// Out is the output address, or DiscardAddr.
	Out Addr

	// Imm carries small integers: counts (Tuple/Vec/TupleStruct arg counts,
	// closure capture counts), jump targets (absolute instruction index),
	// or a literal payload (LoadBool's 0/1, LoadInteger's value via Imm64,
	// LoadChar's rune).
	Imm int64

	// Imm64 carries a second, wider immediate when Imm alone is not enough
	// (LoadInteger's i64 payload; LoadFloat's bits via math.Float64bits).
	Imm64 int64

	// Hash carries a composite hash operand for Call/CallInstance/
	// CallAssociated/MatchType/MatchVariant.
	Hash hash.Hash

	// Slot indexes into the Unit's StaticStrings or StaticObjectKeys table,
	// depending on Op (LoadStaticStr, Object, TypedStruct, MatchObjectKeys).
	Slot uint32

	// ConstID indexes into the Unit's Constants table for LoadConst.
	ConstID uint32

	// ArgCount is the number of contiguous argument registers starting at B
	// for Call-family opcodes, or the element count for Tuple/Vec/
	// TupleStruct/Closure.
	ArgCount uint32

	// Exact is used by MatchSequenceLen to distinguish "len == Imm" from
	// "len >= Imm".
	Exact bool
}
