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

// Package ir defines the SSA-form intermediate representation that sits
// between internal/ast and internal/codegen.
//
// The IR is a static single assignment form: every value is defined exactly
// once, and control flow is expressed as basic blocks joined by phi nodes.
// This is the layer standard optimizations (constant folding, dead code
// elimination, common subexpression elimination) run over before codegen
// lowers each instruction to the register-style internal/unit bytecode the
// VM actually executes. The IR's own opcode set is deliberately coarser than
// internal/unit.Op — a single OpSpawn or OpAwait here may expand into several
// unit instructions during lowering.
package ir

import "fmt"

// Program is a complete IR program: every function plus the constant and
// type pools its instructions index into.
type Program struct {
	Functions []*Function
	Constants []Constant
	Types     []TypeDef
}

// Function represents a single function in SSA form.
type Function struct {
	Name       string
	Params     []Value
	ReturnType TypeRef
	Blocks     []*BasicBlock
	Locals     int // number of local values allocated

	// Kind mirrors internal/ast.FnKind: a Generator/Async/Stream function's
	// call produces a coroutine handle rather than running to completion
	// immediately, so codegen must lower it differently (see
	// internal/unit.CallKind).
	Kind FnKind
}

// FnKind mirrors internal/ast.FnKind / internal/unit.CallKind at the IR
// level, so codegen knows which call convention to lower a Function's calls
// through without re-deriving it from the AST.
type FnKind int

const (
	FnPlain FnKind = iota
	FnGenerator
	FnAsync
	FnStream
)

// BasicBlock is a straight-line sequence of instructions with a terminator.
type BasicBlock struct {
	Label        string
	Instructions []*Instruction
	Terminator   Terminator
	Preds        []*BasicBlock
	Succs        []*BasicBlock
}

// Value represents an SSA value (virtual register).
type Value struct {
	ID   int
	Type TypeRef
	Name string // optional debug name
}

func (v Value) String() string {
	if v.Name != "" {
		return fmt.Sprintf("%%%s", v.Name)
	}
	return fmt.Sprintf("%%v%d", v.ID)
}

// TypeRef references a type by index into Program.Types.
type TypeRef int

// Predefined type refs for probelang's built-in scalar and host-interop
// types. Negative-width integers and floats share the VM's tagged Value
// representation; TypeRef only distinguishes them for diagnostics and
// codegen's type-directed instruction selection.
const (
	TypeVoid TypeRef = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeBytes
	TypeAddress
)

// TypeDef defines a user or structural type.
type TypeDef struct {
	Name   string
	Kind   TypeKind
	Fields []FieldDef
	Linear bool // true for resource types: must be moved, returned, or dropped

	// Elem is the payload type for Tuple/Generator/Stream/Future kinds; for
	// Tuple it is ignored in favor of Fields (one FieldDef per element).
	Elem TypeRef
}

// TypeKind categorizes type definitions.
type TypeKind int

const (
	TypeKindPrimitive TypeKind = iota
	TypeKindStruct
	TypeKindEnum
	TypeKindArray
	TypeKindSlice
	TypeKindTuple
	TypeKindFn
	TypeKindClosure
	TypeKindAgent
	TypeKindResource
	TypeKindGenerator
	TypeKindStream
	TypeKindFuture
)

// FieldDef defines a struct/resource/tuple field.
type FieldDef struct {
	Name string // empty for positional tuple fields
	Type TypeRef
}

// Constant represents a compile-time constant.
type Constant struct {
	Type  TypeRef
	Value interface{} // int64, float64, string, []byte, bool
}

// Op is an SSA instruction opcode.
type Op int

const (
	// Arithmetic
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg

	// Bitwise
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpShl
	OpShr

	// Comparison
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte

	// Logical
	OpLogAnd
	OpLogOr
	OpLogNot

	// Memory / places
	OpAlloc    // allocate a local cell
	OpLoad     // load from a cell
	OpStore    // store to a cell
	OpFieldPtr // get pointer to a named struct field
	OpIndexPtr // get pointer to an array/slice element

	// Value operations
	OpConst // load constant
	OpCopy  // explicit copy (for Copy types)
	OpMove  // move value (invalidates source for linear types)
	OpDrop  // explicitly drop a linear resource
	OpPhi   // SSA phi function

	// Aggregate construction
	OpMakeTuple     // build a tuple from operands
	OpTupleIndexGet // read a positional tuple field
	OpMakeClosure   // capture operands as a closure's free variables

	// Calls
	OpCall       // call function (any FnKind; Result type and FuncName disambiguate)
	OpCallMethod // call method on receiver

	// Coroutine control — these suspend the current function and are never
	// eligible for dead-code elimination or CSE even when their result is
	// unused, since the suspend/resume itself is the observable effect.
	OpYield // yield a value from a generator/stream function
	OpAwait // suspend until an async function's future settles

	// Agent operations
	OpSpawn // spawn new agent
	OpSend  // send message to agent
	OpRecv  // receive message
	OpSelf  // get self agent ID

	// Blockchain / host context
	OpBalance   // get balance
	OpTransfer  // transfer value
	OpEmit      // emit event
	OpCaller    // get transaction caller
	OpBlockNum  // get block number
	OpBlockTime // get block timestamp

	// Crypto
	OpSHA3
	OpSHAKE256
	OpFalcon512Verify
	OpMLDSAVerify
	OpSLHDSAVerify
	OpSecp256k1Recover

	// Type conversion
	OpConvert  // type conversion
	OpTruncate // narrowing conversion
	OpExtend   // widening conversion
)

var opNames = map[Op]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod", OpNeg: "neg",
	OpBitAnd: "and", OpBitOr: "or", OpBitXor: "xor", OpBitNot: "not",
	OpShl: "shl", OpShr: "shr",
	OpEq: "eq", OpNeq: "neq", OpLt: "lt", OpLte: "lte", OpGt: "gt", OpGte: "gte",
	OpLogAnd: "land", OpLogOr: "lor", OpLogNot: "lnot",
	OpAlloc: "alloc", OpLoad: "load", OpStore: "store",
	OpFieldPtr: "fieldptr", OpIndexPtr: "indexptr",
	OpConst: "const", OpCopy: "copy", OpMove: "move", OpDrop: "drop", OpPhi: "phi",
	OpMakeTuple: "maketuple", OpTupleIndexGet: "tupleindex", OpMakeClosure: "makeclosure",
	OpCall: "call", OpCallMethod: "callmethod",
	OpYield: "yield", OpAwait: "await",
	OpSpawn: "spawn", OpSend: "send", OpRecv: "recv", OpSelf: "self",
	OpBalance: "balance", OpTransfer: "transfer", OpEmit: "emit",
	OpCaller: "caller", OpBlockNum: "blocknum", OpBlockTime: "blocktime",
	OpSHA3: "sha3", OpSHAKE256: "shake256",
	OpFalcon512Verify: "falcon512verify", OpMLDSAVerify: "mldsaverify",
	OpSLHDSAVerify: "slhdsaverify", OpSecp256k1Recover: "ecrecover",
	OpConvert: "convert", OpTruncate: "truncate", OpExtend: "extend",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", op)
}

// Instruction is a single SSA instruction.
type Instruction struct {
	Op       Op
	Result   Value
	Operands []Value
	ConstIdx int    // index into the constant pool (for OpConst)
	FieldIdx int    // field index (for OpFieldPtr, OpTupleIndexGet)
	FuncName string // callee name (for OpCall, OpSpawn's agent name, OpEmit's event name)
	Type     TypeRef
}

func (inst *Instruction) String() string {
	s := fmt.Sprintf("%s = %s", inst.Result, inst.Op)
	for _, op := range inst.Operands {
		s += " " + op.String()
	}
	if inst.Op == OpConst {
		s += fmt.Sprintf(" $%d", inst.ConstIdx)
	}
	return s
}

// Terminator ends a basic block.
type Terminator interface {
	terminator()
	String() string
}

// TermReturn returns a value from the function.
type TermReturn struct {
	Value *Value // nil for void return
}

func (t *TermReturn) terminator() {}
func (t *TermReturn) String() string {
	if t.Value != nil {
		return fmt.Sprintf("ret %s", t.Value)
	}
	return "ret void"
}

// TermBranch unconditionally branches to a block.
type TermBranch struct {
	Target *BasicBlock
}

func (t *TermBranch) terminator() {}
func (t *TermBranch) String() string {
	return fmt.Sprintf("br %s", t.Target.Label)
}

// TermCondBranch conditionally branches.
type TermCondBranch struct {
	Cond     Value
	TrueBlk  *BasicBlock
	FalseBlk *BasicBlock
}

func (t *TermCondBranch) terminator() {}
func (t *TermCondBranch) String() string {
	return fmt.Sprintf("br %s, %s, %s", t.Cond, t.TrueBlk.Label, t.FalseBlk.Label)
}

// TermHalt stops execution without a value — used for a bare `return;` inside
// a stream/generator body, which ends the coroutine rather than the host
// call stack.
type TermHalt struct{}

func (t *TermHalt) terminator() {}
func (t *TermHalt) String() string { return "halt" }
