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

// Package codegen lowers internal/ir's SSA form to internal/unit bytecode.
//
// Lowering runs function by function. Every SSA value gets a stack address
// the first time it is referenced, assigned in increasing order and never
// reused — simpler than a real register allocator, and correct because a VM
// stack frame has no fixed register-file ceiling to stay under. Instructions
// whose unit-level opcode needs a contiguous argument window (OpCall,
// OpTuple, OpVec, OpClosure, ...) get their operands copied into a freshly
// allocated contiguous run first, the same push-then-call shape
// probe-lang/lang/codegen uses ahead of its own OpCall.
package codegen

import (
	"fmt"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/ir"
	"github.com/probelang/probe-lang/internal/unit"
)

// jumpPatch records a jump-family instruction emitted before its target
// block's offset was known. instr is the template emitted at offset; once
// every block in the function has a known offset, Imm is filled in and the
// instruction is rewritten in place.
type jumpPatch struct {
	offset uint32
	label  string
	instr  unit.Instruction
}

// Generator lowers one internal/ir.Program into a *unit.Unit.
type Generator struct {
	builder *unit.Builder
	prog    *ir.Program

	constIDs []uint32 // ir.Program.Constants index -> unit.Builder constant id

	regs    map[int]unit.Addr // ir.Value.ID -> stack address, reset per function
	nextReg unit.Addr

	labels  map[string]uint32 // block label -> code offset, reset per function
	patches []jumpPatch       // reset per function
}

// New returns a Generator ready to lower a Program.
func New() *Generator {
	return &Generator{builder: unit.NewBuilder()}
}

// Generate lowers prog in one shot using a fresh Generator.
func Generate(prog *ir.Program) (*unit.Unit, error) {
	return New().Generate(prog)
}

// Generate lowers prog using this Generator's Builder.
func (g *Generator) Generate(prog *ir.Program) (*unit.Unit, error) {
	g.prog = prog
	g.internConstants()

	for _, fn := range prog.Functions {
		if err := g.generateFunction(fn); err != nil {
			return nil, fmt.Errorf("codegen: function %s: %w", fn.Name, err)
		}
	}
	return g.builder.Build(), nil
}

func (g *Generator) internConstants() {
	g.constIDs = make([]uint32, len(g.prog.Constants))
	for i, c := range g.prog.Constants {
		g.constIDs[i] = g.builder.InternConstant(g.toUnitConstant(c))
	}
}

func (g *Generator) toUnitConstant(c ir.Constant) unit.ConstValue {
	switch v := c.Value.(type) {
	case int64:
		return unit.ConstValue{Kind: unit.ConstInteger, Integer: v}
	case int:
		return unit.ConstValue{Kind: unit.ConstInteger, Integer: int64(v)}
	case float64:
		return unit.ConstValue{Kind: unit.ConstFloat, Float: v}
	case bool:
		i := int64(0)
		if v {
			i = 1
		}
		return unit.ConstValue{Kind: unit.ConstBool, Integer: i}
	case string:
		return unit.ConstValue{Kind: unit.ConstStaticString, StrSlot: g.builder.InternString(v)}
	default:
		return unit.ConstValue{Kind: unit.ConstUnit}
	}
}

func callKindFor(k ir.FnKind) unit.CallKind {
	switch k {
	case ir.FnGenerator:
		return unit.Generator
	case ir.FnAsync:
		return unit.Async
	case ir.FnStream:
		return unit.Stream
	default:
		return unit.Immediate
	}
}

func (g *Generator) generateFunction(fn *ir.Function) error {
	g.regs = make(map[int]unit.Addr)
	g.nextReg = 0
	g.labels = make(map[string]uint32)
	g.patches = nil

	for _, p := range fn.Params {
		g.allocReg(p)
	}

	offset := g.builder.NextOffset()
	for _, blk := range fn.Blocks {
		g.labels[blk.Label] = g.builder.NextOffset()
		for _, inst := range blk.Instructions {
			if err := g.generateInstruction(inst); err != nil {
				return err
			}
		}
		if blk.Terminator == nil {
			return fmt.Errorf("block %q has no terminator", blk.Label)
		}
		if err := g.generateTerminator(blk.Terminator); err != nil {
			return err
		}
	}

	for _, p := range g.patches {
		target, ok := g.labels[p.label]
		if !ok {
			return fmt.Errorf("undefined block label %q", p.label)
		}
		instr := p.instr
		instr.Imm = int64(target)
		g.builder.Patch(p.offset, instr)
	}

	h := hash.String(fn.Name)
	g.builder.RegisterFunction(h, unit.FunctionMeta{
		Offset:   offset,
		Args:     uint32(len(fn.Params)),
		CallKind: callKindFor(fn.Kind),
		Name:     fn.Name,
	})
	return nil
}

func (g *Generator) allocReg(v ir.Value) unit.Addr {
	if r, ok := g.regs[v.ID]; ok {
		return r
	}
	r := g.nextReg
	g.regs[v.ID] = r
	g.nextReg++
	return r
}

func (g *Generator) getReg(v ir.Value) unit.Addr {
	if r, ok := g.regs[v.ID]; ok {
		return r
	}
	return g.allocReg(v)
}

// contiguous copies operands into a freshly allocated, strictly increasing
// run of registers and returns (base, count) — the calling convention every
// variable-arity unit opcode (OpCall, OpCallInstance, OpTuple, OpVec,
// OpClosure, ...) needs, the same shape as probe-lang/lang/codegen's
// "push each argument, then call".
func (g *Generator) contiguous(operands []ir.Value) (unit.Addr, uint32) {
	base := g.nextReg
	for _, op := range operands {
		dst := g.nextReg
		g.nextReg++
		g.builder.Emit(unit.Instruction{Op: unit.OpCopy, A: g.getReg(op), Out: dst})
	}
	return base, uint32(len(operands))
}

// emitJump appends a jump-family instruction whose target block is not yet
// at a known offset, recording it for patching once the function's blocks
// have all been walked.
func (g *Generator) emitJump(op unit.Op, cond unit.Addr, label string) {
	instr := unit.Instruction{Op: op, A: cond}
	offset := g.builder.Emit(instr)
	g.patches = append(g.patches, jumpPatch{offset: offset, label: label, instr: instr})
}

// fieldName resolves the struct field name at fieldIdx for a value of static
// type typ, used by OpFieldPtr/OpObjectFieldGet lowering. Falls back to a
// positional placeholder if typ carries no field metadata (an unresolved or
// primitive type reaching codegen, which internal/resolver should already
// have rejected earlier in the pipeline).
func (g *Generator) fieldName(typ ir.TypeRef, fieldIdx int) string {
	i := int(typ)
	if i >= 0 && i < len(g.prog.Types) {
		fields := g.prog.Types[i].Fields
		if fieldIdx >= 0 && fieldIdx < len(fields) && fields[fieldIdx].Name != "" {
			return fields[fieldIdx].Name
		}
	}
	return fmt.Sprintf("_%d", fieldIdx)
}

func (g *Generator) generateInstruction(inst *ir.Instruction) error {
	out := g.allocReg(inst.Result)

	switch inst.Op {
	// ---- Value operations ---------------------------------------------
	case ir.OpConst:
		g.builder.Emit(unit.Instruction{Op: unit.OpLoadConst, Out: out, ConstID: g.constIDs[inst.ConstIdx]})
	case ir.OpCopy:
		g.builder.Emit(unit.Instruction{Op: unit.OpCopy, A: g.getReg(inst.Operands[0]), Out: out})
	case ir.OpMove:
		g.builder.Emit(unit.Instruction{Op: unit.OpMove, A: g.getReg(inst.Operands[0]), Out: out})
	case ir.OpDrop:
		g.builder.Emit(unit.Instruction{Op: unit.OpDrop, A: g.getReg(inst.Operands[0])})

	// ---- Arithmetic -----------------------------------------------------
	case ir.OpAdd:
		g.emitBin(unit.OpAdd, inst, out)
	case ir.OpSub:
		g.emitBin(unit.OpSub, inst, out)
	case ir.OpMul:
		g.emitBin(unit.OpMul, inst, out)
	case ir.OpDiv:
		g.emitBin(unit.OpDiv, inst, out)
	case ir.OpMod:
		g.emitBin(unit.OpRem, inst, out)
	case ir.OpNeg:
		g.builder.Emit(unit.Instruction{Op: unit.OpNeg, A: g.getReg(inst.Operands[0]), Out: out})

	// ---- Bitwise ----------------------------------------------------------
	case ir.OpBitAnd:
		g.emitBin(unit.OpBitAnd, inst, out)
	case ir.OpBitOr:
		g.emitBin(unit.OpBitOr, inst, out)
	case ir.OpBitXor:
		g.emitBin(unit.OpBitXor, inst, out)
	case ir.OpShl:
		g.emitBin(unit.OpShl, inst, out)
	case ir.OpShr:
		g.emitBin(unit.OpShr, inst, out)
	case ir.OpBitNot:
		// unit has no standalone bitwise-not opcode; XOR against an all-ones
		// constant is the standard two's-complement identity for it.
		allOnes := g.builder.InternConstant(unit.ConstValue{Kind: unit.ConstInteger, Integer: -1})
		tmp := g.freshReg()
		g.builder.Emit(unit.Instruction{Op: unit.OpLoadConst, Out: tmp, ConstID: allOnes})
		g.builder.Emit(unit.Instruction{Op: unit.OpBitXor, A: g.getReg(inst.Operands[0]), B: tmp, Out: out})

	// ---- Comparison -------------------------------------------------------
	case ir.OpEq:
		g.emitBin(unit.OpEq, inst, out)
	case ir.OpNeq:
		g.emitBin(unit.OpNeq, inst, out)
	case ir.OpLt:
		g.emitBin(unit.OpLt, inst, out)
	case ir.OpLte:
		g.emitBin(unit.OpLte, inst, out)
	case ir.OpGt:
		g.emitBin(unit.OpGt, inst, out)
	case ir.OpGte:
		g.emitBin(unit.OpGte, inst, out)

	// ---- Logical ------------------------------------------------------------
	// Operands are always already-evaluated bools by the time they reach IR
	// (internal/lower evaluates both sides of `&&`/`||` before emitting the
	// op, so neither operator short-circuits), and these lower to plain
	// bitwise ops.
	case ir.OpLogAnd:
		g.emitBin(unit.OpBitAnd, inst, out)
	case ir.OpLogOr:
		g.emitBin(unit.OpBitOr, inst, out)
	case ir.OpLogNot:
		falseConst := g.builder.InternConstant(unit.ConstValue{Kind: unit.ConstBool, Integer: 0})
		tmp := g.freshReg()
		g.builder.Emit(unit.Instruction{Op: unit.OpLoadConst, Out: tmp, ConstID: falseConst})
		g.builder.Emit(unit.Instruction{Op: unit.OpEq, A: g.getReg(inst.Operands[0]), B: tmp, Out: out})

	// ---- Memory / places ----------------------------------------------------
	// The VM has no separate heap-cell address space: a local variable's
	// "cell" is simply its stack slot, so Alloc need not emit anything and
	// Load/Store degenerate to a register-to-register copy.
	case ir.OpAlloc:
		// out already reserved a fresh slot via allocReg above; nothing to emit.
	case ir.OpLoad:
		g.builder.Emit(unit.Instruction{Op: unit.OpCopy, A: g.getReg(inst.Operands[0]), Out: out})
	case ir.OpStore:
		g.builder.Emit(unit.Instruction{Op: unit.OpMove, A: g.getReg(inst.Operands[1]), Out: g.getReg(inst.Operands[0])})
	case ir.OpFieldPtr:
		slot := g.builder.InternString(g.fieldName(inst.Operands[0].Type, inst.FieldIdx))
		g.builder.Emit(unit.Instruction{Op: unit.OpObjectFieldGet, A: g.getReg(inst.Operands[0]), Slot: slot, Out: out})
	case ir.OpIndexPtr:
		g.builder.Emit(unit.Instruction{Op: unit.OpIndexGet, A: g.getReg(inst.Operands[0]), B: g.getReg(inst.Operands[1]), Out: out})

	// ---- Aggregate construction ---------------------------------------------
	case ir.OpMakeTuple:
		base, count := g.contiguous(inst.Operands)
		g.builder.Emit(unit.Instruction{Op: unit.OpTuple, B: base, ArgCount: count, Out: out})
	case ir.OpTupleIndexGet:
		g.builder.Emit(unit.Instruction{Op: unit.OpTupleIndexGet, A: g.getReg(inst.Operands[0]), Imm: int64(inst.FieldIdx), Out: out})
	case ir.OpMakeClosure:
		base, count := g.contiguous(inst.Operands)
		g.builder.Emit(unit.Instruction{Op: unit.OpClosure, B: base, ArgCount: count, Hash: hash.String(inst.FuncName), Out: out})

	// ---- Calls --------------------------------------------------------------
	case ir.OpCall:
		base, count := g.contiguous(inst.Operands)
		g.builder.Emit(unit.Instruction{Op: unit.OpCall, B: base, ArgCount: count, Hash: hash.String(inst.FuncName), Out: out})
	case ir.OpCallMethod:
		// Operands[0] is the receiver; OpCallInstance resolves the method
		// against the receiver's *runtime* type hash, not a statically known
		// one, matching this language's protocol-based dynamic dispatch.
		base, count := g.contiguous(inst.Operands)
		g.builder.Emit(unit.Instruction{Op: unit.OpCallInstance, B: base, ArgCount: count, Hash: hash.String(inst.FuncName), Out: out})

	// ---- Coroutine control ----------------------------------------------------
	case ir.OpYield:
		if len(inst.Operands) == 0 {
			g.builder.Emit(unit.Instruction{Op: unit.OpYieldUnit, Out: out})
		} else {
			g.builder.Emit(unit.Instruction{Op: unit.OpYield, A: g.getReg(inst.Operands[0]), Out: out})
		}
	case ir.OpAwait:
		g.builder.Emit(unit.Instruction{Op: unit.OpAwait, A: g.getReg(inst.Operands[0]), Out: out})

	// ---- Agent / host-context operations -------------------------------------
	// None of these have a dedicated opcode: they are native functions the
	// host context registers (internal/module), reached the same way any
	// other call is, via a well-known name.
	case ir.OpSpawn:
		g.emitNativeCall("agent::spawn", inst, out)
	case ir.OpSend:
		g.emitNativeCall("agent::send", inst, out)
	case ir.OpRecv:
		g.emitNativeCall("agent::recv", inst, out)
	case ir.OpSelf:
		g.emitNativeCall("agent::self", inst, out)
	case ir.OpBalance:
		g.emitNativeCall("chain::balance", inst, out)
	case ir.OpTransfer:
		g.emitNativeCall("chain::transfer", inst, out)
	case ir.OpEmit:
		g.emitNativeCall("chain::emit::"+inst.FuncName, inst, out)
	case ir.OpCaller:
		g.emitNativeCall("chain::caller", inst, out)
	case ir.OpBlockNum:
		g.emitNativeCall("chain::block_number", inst, out)
	case ir.OpBlockTime:
		g.emitNativeCall("chain::block_timestamp", inst, out)
	case ir.OpSHA3:
		g.emitNativeCall("crypto::sha3", inst, out)
	case ir.OpSHAKE256:
		g.emitNativeCall("crypto::shake256", inst, out)
	case ir.OpFalcon512Verify:
		g.emitNativeCall("crypto::falcon512_verify", inst, out)
	case ir.OpMLDSAVerify:
		g.emitNativeCall("crypto::mldsa_verify", inst, out)
	case ir.OpSLHDSAVerify:
		g.emitNativeCall("crypto::slhdsa_verify", inst, out)
	case ir.OpSecp256k1Recover:
		g.emitNativeCall("crypto::secp256k1_recover", inst, out)

	// ---- Type conversion ------------------------------------------------------
	// The VM's Value is already a dynamically-tagged union; narrowing and
	// widening conversions between numeric representations are handled by
	// the target protocol's Convert implementation at the call site, so all
	// three IR conversion ops lower to the same dynamic-dispatch call.
	case ir.OpConvert, ir.OpTruncate, ir.OpExtend:
		g.emitNativeCall("convert::"+inst.FuncName, inst, out)

	case ir.OpPhi:
		// Resolved by predecessor-block moves during IR construction in this
		// pipeline (ir.Builder never emits a block with an unresolved OpPhi
		// reaching codegen); fall back to a move from the first operand so a
		// stray phi still lowers to something rather than aborting the build.
		if len(inst.Operands) > 0 {
			g.builder.Emit(unit.Instruction{Op: unit.OpMove, A: g.getReg(inst.Operands[0]), Out: out})
		}

	default:
		return fmt.Errorf("unsupported IR op: %s", inst.Op)
	}
	return nil
}

func (g *Generator) emitBin(op unit.Op, inst *ir.Instruction, out unit.Addr) {
	g.builder.Emit(unit.Instruction{Op: op, A: g.getReg(inst.Operands[0]), B: g.getReg(inst.Operands[1]), Out: out})
}

func (g *Generator) emitNativeCall(name string, inst *ir.Instruction, out unit.Addr) {
	base, count := g.contiguous(inst.Operands)
	g.builder.Emit(unit.Instruction{Op: unit.OpCall, B: base, ArgCount: count, Hash: hash.String(name), Out: out})
}

func (g *Generator) freshReg() unit.Addr {
	r := g.nextReg
	g.nextReg++
	return r
}

func (g *Generator) generateTerminator(term ir.Terminator) error {
	switch t := term.(type) {
	case *ir.TermReturn:
		if t.Value != nil {
			g.builder.Emit(unit.Instruction{Op: unit.OpReturn, A: g.getReg(*t.Value)})
		} else {
			g.builder.Emit(unit.Instruction{Op: unit.OpReturnUnit})
		}
	case *ir.TermBranch:
		g.emitJump(unit.OpJump, unit.DiscardAddr, t.Target.Label)
	case *ir.TermCondBranch:
		// Jump to the false block when the condition doesn't hold, then
		// unconditionally jump to the true block — correct regardless of
		// block layout, at the cost of one redundant jump when the true
		// block happens to be emitted immediately after.
		g.emitJump(unit.OpJumpIfNot, g.getReg(t.Cond), t.FalseBlk.Label)
		g.emitJump(unit.OpJump, unit.DiscardAddr, t.TrueBlk.Label)
	case *ir.TermHalt:
		// Ending a generator/stream coroutine's frame is an ordinary return
		// at the VM level; internal/unit.CallKind is what tells the runtime
		// to interpret the returning frame as a finished coroutine rather
		// than a finished host call, so no distinct opcode is needed here.
		g.builder.Emit(unit.Instruction{Op: unit.OpReturnUnit})
	default:
		return fmt.Errorf("unsupported terminator: %T", term)
	}
	return nil
}
