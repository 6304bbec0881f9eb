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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelang/probe-lang/internal/alloc"
	"github.com/probelang/probe-lang/internal/context"
	"github.com/probelang/probe-lang/internal/diagnostics"
	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/item"
	"github.com/probelang/probe-lang/internal/module"
	"github.com/probelang/probe-lang/internal/protocol"
	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/value"
	"github.com/probelang/probe-lang/internal/vmerror"
)

// TestIntegerOverflow: `a + b` on two i64s that overflow the type fails
// with vmerror.ErrOverflow rather than silently wrapping.
func TestIntegerOverflow(t *testing.T) {
	b := unit.NewBuilder()
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: math.MaxInt64, Out: 0})
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 1, Out: 1})
	b.Emit(unit.Instruction{Op: unit.OpAdd, A: 0, B: 1, Out: 2})
	b.Emit(unit.Instruction{Op: unit.OpReturn, A: 2})
	u := b.Build()

	vm := New(u, context.New())
	_, err := vm.Run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, vmerror.ErrOverflow))

	var ve *vmerror.Error
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, vmerror.Arithmetic, ve.Kind)
}

// TestGeneratorDriveSequence: a generator that yields 1, then 2, then
// returns 3, driven via Execution.Resume one step at a time, with the
// second Resume's argument ignored (nothing in this body reads it back,
// matching the simplest "yield a sequence" generator shape).
func TestGeneratorDriveSequence(t *testing.T) {
	b := unit.NewBuilder()
	// r0 = 1; yield r0; r0 = 2; yield r0; r0 = 3; return r0
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 1, Out: 0})
	b.Emit(unit.Instruction{Op: unit.OpYield, A: 0, Out: unit.DiscardAddr})
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 2, Out: 0})
	b.Emit(unit.Instruction{Op: unit.OpYield, A: 0, Out: unit.DiscardAddr})
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 3, Out: 0})
	b.Emit(unit.Instruction{Op: unit.OpReturn, A: 0})
	u := b.Build()

	fn := value.NewOffsetFunction(u, 0, 0, unit.Generator)
	vm := New(u, context.New())
	genVal, err := vm.invoke2(fn)
	require.NoError(t, err)

	co, err := genVal.AsCoroutine()
	require.NoError(t, err)

	step1, err := co.Resume(value.Unit())
	require.NoError(t, err)
	assert.Equal(t, value.StepYielded, step1.Kind)
	i1, _ := step1.Value.AsInteger()
	assert.Equal(t, int64(1), i1)

	step2, err := co.Resume(value.Unit())
	require.NoError(t, err)
	assert.Equal(t, value.StepYielded, step2.Kind)
	i2, _ := step2.Value.AsInteger()
	assert.Equal(t, int64(2), i2)

	step3, err := co.Resume(value.Unit())
	require.NoError(t, err)
	assert.Equal(t, value.StepComplete, step3.Kind)
	i3, _ := step3.Value.AsInteger()
	assert.Equal(t, int64(3), i3)

	_, err = co.Resume(value.Unit())
	assert.True(t, errors.Is(err, vmerror.ErrGeneratorComplete))
}

// invoke2 is a small test-only helper: run vm.invoke directly against a
// scratch register (the construction path OpCallFn would otherwise need a
// whole extra unit to exercise).
func (vm *VM) invoke2(fn value.Function) (value.Value, error) {
	out := vm.stack.Push(value.Unit())
	if err := vm.invoke(fn, nil, unit.Addr(out)); err != nil {
		return value.Value{}, err
	}
	v, _ := vm.stack.At(out)
	return v, nil
}

// TestProtocolDispatchEquality: a host-registered type whose EQ
// implementation is a native function compares two instances by a single
// field rather than Go's default reference identity, exercising
// OpCallAssociated-style protocol resolution via OpEq.
func TestProtocolDispatchEquality(t *testing.T) {
	pointPath, err := item.New(item.Str("point"))
	require.NoError(t, err)
	pointHash := pointPath.Hash()

	m := module.New("geometry")
	require.NoError(t, m.RegisterType(module.TypeDecl{
		Path:       pointPath,
		TypeHash:   pointHash,
		FieldNames: []string{"x", "y"},
	}))
	eqHash := hash.AssociatedFunction(pointHash, protocol.Eq.Hash)
	require.NoError(t, m.RegisterFunction(module.FunctionDecl{
		Hash: eqHash,
		Handler: func(s value.Stack, argsAddr int64, argCount uint32, out int64) error {
			self, _ := s.At(argsAddr)
			other, _ := s.At(argsAddr + 1)
			sd, err := self.AsStruct()
			if err != nil {
				return err
			}
			od, err := other.AsStruct()
			if err != nil {
				return err
			}
			sx, _ := sd.Fields[0].AsInteger()
			ox, _ := od.Fields[0].AsInteger()
			s.Set(out, value.Bool(sx == ox))
			return nil
		},
	}))
	ctx := context.New()
	require.NoError(t, ctx.Install(m))

	b := unit.NewBuilder()
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 10, Out: 0})
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 20, Out: 1})
	b.Emit(unit.Instruction{Op: unit.OpTypedStruct, Hash: pointHash, B: 0, ArgCount: 2, Out: 2})
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 10, Out: 3})
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 99, Out: 4})
	b.Emit(unit.Instruction{Op: unit.OpTypedStruct, Hash: pointHash, B: 3, ArgCount: 2, Out: 5})
	b.Emit(unit.Instruction{Op: unit.OpEq, A: 2, B: 5, Out: 6})
	b.Emit(unit.Instruction{Op: unit.OpReturn, A: 6})
	u := b.Build()

	vm := New(u, ctx)
	result, err := vm.Run()
	require.NoError(t, err)
	eq, err := result.AsBool()
	require.NoError(t, err)
	assert.True(t, eq, "two points sharing x=10 should compare equal under the registered EQ impl")
}

// TestBorrowCheckingViolation: mutating a Vec through OpIndexSet while
// another borrow guard is held open on the same cell fails with
// vmerror.ErrAlreadyBorrowedShared instead of silently mutating through
// the alias.
func TestBorrowCheckingViolation(t *testing.T) {
	b := unit.NewBuilder()
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 0, Out: 1})   // index
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 7, Out: 2})   // value
	b.Emit(unit.Instruction{Op: unit.OpIndexSet, A: 0, B: 1, C: 2})
	b.Emit(unit.Instruction{Op: unit.OpReturnUnit})
	u := b.Build()

	vec := value.VecOf([]value.Value{value.Integer(1), value.Integer(2)})
	vm := New(u, context.New())
	vm.stack.Push(vec) // register 0: the receiver

	guard, err := vec.Cell().BorrowRef()
	require.NoError(t, err)
	defer guard.Release()

	_, err = vm.Run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, vmerror.ErrAlreadyBorrowedShared))
}

// TestBrainfuckHelloWorld assembles a tiny Brainfuck interpreter directly
// as probe-lang bytecode (no lexer/codegen involved) and drives it over a
// standard Brainfuck program that prints "Hello World!\n", proving the
// fetch-dispatch loop's jump/index/call machinery holds together for a
// real nontrivial control-flow shape. Cells are represented as Integer
// values masked to a byte's range via BitAnd after every +/-, since
// Value's inline fast paths only cover same-kind Integer/Float arithmetic.
func TestBrainfuckHelloWorld(t *testing.T) {
	const program = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."
	const tapeLen = 30

	var out []byte
	m := module.New("io")
	emitHash := hash.String("emit")
	require.NoError(t, m.RegisterFunction(module.FunctionDecl{
		Hash: emitHash,
		Handler: func(s value.Stack, argsAddr int64, argCount uint32, outAddr int64) error {
			v, _ := s.At(argsAddr)
			i, err := v.AsInteger()
			if err != nil {
				return err
			}
			out = append(out, byte(i))
			s.Set(outAddr, value.Unit())
			return nil
		},
	}))
	ctx := context.New()
	require.NoError(t, ctx.Install(m))

	const (
		regTape unit.Addr = 0
		regPtr  unit.Addr = 1
		regCell unit.Addr = 2
		regBool unit.Addr = 3
		regOne  unit.Addr = 4
		regMask unit.Addr = 5
		regZero unit.Addr = 6
		regTmp0 unit.Addr = 100 // base of the tapeLen scratch registers used once, for the initial Vec literal
	)

	b := unit.NewBuilder()
	for i := 0; i < tapeLen; i++ {
		b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 0, Out: regTmp0 + unit.Addr(i)})
	}
	b.Emit(unit.Instruction{Op: unit.OpVec, B: regTmp0, ArgCount: tapeLen, Out: regTape})
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 0, Out: regPtr})
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 1, Out: regOne})
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 255, Out: regMask})
	b.Emit(unit.Instruction{Op: unit.OpLoadInteger, Imm64: 0, Out: regZero})

	loadCell := func() { b.Emit(unit.Instruction{Op: unit.OpIndexGet, A: regTape, B: regPtr, Out: regCell}) }
	storeCell := func() { b.Emit(unit.Instruction{Op: unit.OpIndexSet, A: regTape, B: regPtr, C: regCell}) }

	type openBracket struct {
		loopStart   uint32
		patchOffset uint32
		patchInstr  unit.Instruction
	}
	var brackets []openBracket

	for _, ch := range program {
		switch ch {
		case '>':
			b.Emit(unit.Instruction{Op: unit.OpAdd, A: regPtr, B: regOne, Out: regPtr})
		case '<':
			b.Emit(unit.Instruction{Op: unit.OpSub, A: regPtr, B: regOne, Out: regPtr})
		case '+':
			loadCell()
			b.Emit(unit.Instruction{Op: unit.OpAdd, A: regCell, B: regOne, Out: regCell})
			b.Emit(unit.Instruction{Op: unit.OpBitAnd, A: regCell, B: regMask, Out: regCell})
			storeCell()
		case '-':
			loadCell()
			b.Emit(unit.Instruction{Op: unit.OpSub, A: regCell, B: regOne, Out: regCell})
			b.Emit(unit.Instruction{Op: unit.OpBitAnd, A: regCell, B: regMask, Out: regCell})
			storeCell()
		case '.':
			loadCell()
			b.Emit(unit.Instruction{Op: unit.OpCall, Hash: emitHash, B: regCell, ArgCount: 1, Out: unit.DiscardAddr})
		case '[':
			loopStart := b.NextOffset()
			loadCell()
			b.Emit(unit.Instruction{Op: unit.OpEq, A: regCell, B: regZero, Out: regBool})
			placeholder := unit.Instruction{Op: unit.OpJumpIf, A: regBool, Imm: 0}
			offset := b.Emit(placeholder)
			brackets = append(brackets, openBracket{loopStart: loopStart, patchOffset: offset, patchInstr: placeholder})
		case ']':
			n := len(brackets) - 1
			open := brackets[n]
			brackets = brackets[:n]
			loadCell()
			b.Emit(unit.Instruction{Op: unit.OpEq, A: regCell, B: regZero, Out: regBool})
			b.Emit(unit.Instruction{Op: unit.OpJumpIfNot, A: regBool, Imm: int64(open.loopStart)})
			patched := open.patchInstr
			patched.Imm = int64(b.NextOffset())
			b.Patch(open.patchOffset, patched)
		}
	}
	require.Empty(t, brackets, "every '[' must have a matching ']'")
	b.Emit(unit.Instruction{Op: unit.OpReturnUnit})
	u := b.Build()

	vm := New(u, ctx, WithBudget(alloc.NewBudget(2_000_000)))
	_, err := vm.Run()
	require.NoError(t, err)
	assert.Equal(t, "Hello World!\n", string(out))
}

// TestDeprecationDiagnostics: calling a native function the host marked
// deprecated reports exactly one Deprecation to the installed sink.
func TestDeprecationDiagnostics(t *testing.T) {
	m := module.New("legacy")
	fnHash := hash.String("old_thing")
	msg := "use new_thing instead"
	require.NoError(t, m.RegisterFunction(module.FunctionDecl{
		Hash: fnHash,
		Handler: func(s value.Stack, argsAddr int64, argCount uint32, out int64) error {
			s.Set(out, value.Integer(42))
			return nil
		},
		Meta: module.Meta{Deprecated: &msg},
	}))
	ctx := context.New()
	require.NoError(t, ctx.Install(m))

	b := unit.NewBuilder()
	b.Emit(unit.Instruction{Op: unit.OpCall, Hash: fnHash, B: 0, ArgCount: 0, Out: 0})
	b.Emit(unit.Instruction{Op: unit.OpReturn, A: 0})
	u := b.Build()

	rec := &recordingSink{}
	vm := New(u, ctx, WithSink(rec))
	result, err := vm.Run()
	require.NoError(t, err)
	i, _ := result.AsInteger()
	assert.Equal(t, int64(42), i)

	require.Len(t, rec.deprecations, 1)
	assert.Equal(t, msg, rec.deprecations[0].Message)
}

// TestBudgetExceeded: a VM constrained to a tiny instruction budget fails
// with vmerror.ErrBudgetExceeded rather than running unbounded.
func TestBudgetExceeded(t *testing.T) {
	b := unit.NewBuilder()
	loopStart := b.NextOffset()
	b.Emit(unit.Instruction{Op: unit.OpLoadUnit, Out: 0})
	b.Emit(unit.Instruction{Op: unit.OpJump, Imm: int64(loopStart)})
	u := b.Build()

	vm := New(u, context.New(), WithBudget(alloc.NewBudget(3)))
	_, err := vm.Run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, vmerror.ErrBudgetExceeded))
}

type recordingSink struct {
	deprecations []diagnostics.Deprecation
	traces       []diagnostics.Trace
}

func (r *recordingSink) Deprecated(d diagnostics.Deprecation) {
	r.deprecations = append(r.deprecations, d)
}

func (r *recordingSink) Traced(t diagnostics.Trace) {
	r.traces = append(r.traces, t)
}

var _ diagnostics.Sink = (*recordingSink)(nil)
