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

package ir

// Builder assembles a Program incrementally. Resolver and codegen drive it
// one function/block/instruction at a time as they walk the AST.
type Builder struct {
	program  *Program
	function *Function
	block    *BasicBlock
	nextID   int
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{program: &Program{}}
}

// Program returns the program assembled so far.
func (b *Builder) Program() *Program {
	return b.program
}

// AddConstant interns a constant and returns its pool index.
func (b *Builder) AddConstant(c Constant) int {
	b.program.Constants = append(b.program.Constants, c)
	return len(b.program.Constants) - 1
}

// AddType registers a type definition and returns its TypeRef.
func (b *Builder) AddType(t TypeDef) TypeRef {
	b.program.Types = append(b.program.Types, t)
	return TypeRef(len(b.program.Types) - 1)
}

// StartFunction begins a new function and makes it current.
func (b *Builder) StartFunction(name string, params []Value, ret TypeRef, kind FnKind) *Function {
	fn := &Function{Name: name, Params: params, ReturnType: ret, Kind: kind}
	b.program.Functions = append(b.program.Functions, fn)
	b.function = fn
	b.nextID = 0
	for _, p := range params {
		if p.ID >= b.nextID {
			b.nextID = p.ID + 1
		}
	}
	return fn
}

// NewBlock creates and appends a basic block to the current function, and
// makes it current.
func (b *Builder) NewBlock(label string) *BasicBlock {
	blk := &BasicBlock{Label: label}
	b.function.Blocks = append(b.function.Blocks, blk)
	b.block = blk
	return blk
}

// SetBlock makes an existing block current (for wiring loop back-edges).
func (b *Builder) SetBlock(blk *BasicBlock) {
	b.block = blk
}

// CurrentBlock returns the block new instructions are appended to. Callers
// lowering structured control flow (if/else, loops) use this to check
// whether a branch they just finished emitting still needs a terminator,
// since a nested conditional may have left a different block current than
// the one they started with.
func (b *Builder) CurrentBlock() *BasicBlock {
	return b.block
}

// NewValue allocates a fresh SSA value in the current function.
func (b *Builder) NewValue(t TypeRef) Value {
	v := Value{ID: b.nextID, Type: t}
	b.nextID++
	b.function.Locals++
	return v
}

// Emit appends an instruction to the current block and returns its result.
func (b *Builder) Emit(op Op, t TypeRef, operands ...Value) Value {
	result := b.NewValue(t)
	b.block.Instructions = append(b.block.Instructions, &Instruction{
		Op: op, Result: result, Operands: operands, Type: t,
	})
	return result
}

// EmitConst emits an OpConst loading the given constant pool entry.
func (b *Builder) EmitConst(idx int, t TypeRef) Value {
	result := b.NewValue(t)
	b.block.Instructions = append(b.block.Instructions, &Instruction{
		Op: OpConst, Result: result, ConstIdx: idx, Type: t,
	})
	return result
}

// EmitCall emits a call to a named function.
func (b *Builder) EmitCall(name string, t TypeRef, args ...Value) Value {
	result := b.NewValue(t)
	b.block.Instructions = append(b.block.Instructions, &Instruction{
		Op: OpCall, Result: result, Operands: args, FuncName: name, Type: t,
	})
	return result
}

// EmitFieldPtr emits a field-pointer computation.
func (b *Builder) EmitFieldPtr(base Value, fieldIdx int, t TypeRef) Value {
	result := b.NewValue(t)
	b.block.Instructions = append(b.block.Instructions, &Instruction{
		Op: OpFieldPtr, Result: result, Operands: []Value{base}, FieldIdx: fieldIdx, Type: t,
	})
	return result
}

// EmitBranch terminates the current block with an unconditional branch.
func (b *Builder) EmitBranch(target *BasicBlock) {
	b.block.Terminator = &TermBranch{Target: target}
	b.block.Succs = append(b.block.Succs, target)
	target.Preds = append(target.Preds, b.block)
}

// EmitCondBranch terminates the current block with a conditional branch.
func (b *Builder) EmitCondBranch(cond Value, trueBlk, falseBlk *BasicBlock) {
	b.block.Terminator = &TermCondBranch{Cond: cond, TrueBlk: trueBlk, FalseBlk: falseBlk}
	b.block.Succs = append(b.block.Succs, trueBlk, falseBlk)
	trueBlk.Preds = append(trueBlk.Preds, b.block)
	falseBlk.Preds = append(falseBlk.Preds, b.block)
}

// EmitReturn terminates the current block with a return.
func (b *Builder) EmitReturn(v *Value) {
	b.block.Terminator = &TermReturn{Value: v}
}

// EmitHalt terminates the current block, ending the coroutine it belongs to
// without producing a further value (a bare `return;` inside a generator or
// stream function body).
func (b *Builder) EmitHalt() {
	b.block.Terminator = &TermHalt{}
}

// EmitPhi emits a phi node joining values from predecessor blocks.
func (b *Builder) EmitPhi(t TypeRef, incoming ...Value) Value {
	result := b.NewValue(t)
	b.block.Instructions = append(b.block.Instructions, &Instruction{
		Op: OpPhi, Result: result, Operands: incoming, Type: t,
	})
	return result
}

// EmitYield emits a coroutine yield of v, producing the value the resumer
// passes back in (a generator receives the resume argument; a stream always
// receives unit).
func (b *Builder) EmitYield(v Value, t TypeRef) Value {
	result := b.NewValue(t)
	b.block.Instructions = append(b.block.Instructions, &Instruction{
		Op: OpYield, Result: result, Operands: []Value{v}, Type: t,
	})
	return result
}

// EmitAwait emits a suspend on a future value, producing its settled result.
func (b *Builder) EmitAwait(future Value, t TypeRef) Value {
	result := b.NewValue(t)
	b.block.Instructions = append(b.block.Instructions, &Instruction{
		Op: OpAwait, Result: result, Operands: []Value{future}, Type: t,
	})
	return result
}

// EmitMakeTuple emits construction of a tuple from its elements in order.
func (b *Builder) EmitMakeTuple(t TypeRef, elems ...Value) Value {
	result := b.NewValue(t)
	b.block.Instructions = append(b.block.Instructions, &Instruction{
		Op: OpMakeTuple, Result: result, Operands: elems, Type: t,
	})
	return result
}

// EmitMakeClosure emits construction of a closure over the named function,
// capturing operands as its free variables in declaration order.
func (b *Builder) EmitMakeClosure(fnName string, t TypeRef, captures ...Value) Value {
	result := b.NewValue(t)
	b.block.Instructions = append(b.block.Instructions, &Instruction{
		Op: OpMakeClosure, Result: result, Operands: captures, FuncName: fnName, Type: t,
	})
	return result
}
