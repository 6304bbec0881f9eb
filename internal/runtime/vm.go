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

// Package runtime implements the register-style bytecode virtual machine:
// VM (fetch/dispatch loop over internal/unit.Instruction), Frame (call
// state), Execution (the Coroutine implementation backing
// Generator/Stream/Future values), and the two ProtocolCaller variants
// (Isolated and in-frame) the value package's dynamic dispatch delegates
// to. Grounded on probe-lang/lang/vm's Step/Run/execute shape, generalized
// from its fixed-width register machine to internal/unit's struct-encoded
// instruction stream and internal/value's tagged-union Value model.
package runtime

import (
	"errors"
	"fmt"

	"github.com/probelang/probe-lang/internal/alloc"
	"github.com/probelang/probe-lang/internal/context"
	"github.com/probelang/probe-lang/internal/diagnostics"
	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/stack"
	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/value"
	"github.com/probelang/probe-lang/internal/vmerror"
)

// ErrHalted is returned when Step is called on a VM that already halted.
var ErrHalted = errors.New("runtime: already halted")

// ErrAwaiting is returned by Run/Step when execution reaches an Await on a
// not-yet-ready Future: the coroutine is suspended, not failed, and a host
// resumes it later via Execution.Resume.
var ErrAwaiting = errors.New("runtime: awaiting a pending future")

// errYielded is the internal signal Step uses to stop the dispatch loop at
// a Yield without treating it as an error; Run returns it unchanged, and
// Execution.Resume translates it into a Step{Kind: StepYielded} result for
// callers driving a Generator/Stream.
var errYielded = errors.New("runtime: yielded")

// VM executes a single Unit's instructions against a Context of installed
// modules. A VM is single-threaded and cooperative: only Yield and Await
// suspend it (spec.md §5's scheduling model); every other instruction runs
// to completion synchronously.
type VM struct {
	u   *unit.Unit
	ctx *context.Context

	stack  *stack.Stack
	frames []Frame
	ip     uint32
	base   int64

	halted      bool
	result      value.Value
	pendingStep value.Step // populated by Yield/Await before suspending the loop
	resumeOut   int64      // where the next Resume(arg) writes, or -1 if none pending

	budget *alloc.Budget
	sink   diagnostics.Sink

	currentFunctionName string
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithBudget bounds the number of instructions a VM may execute before
// returning *vmerror.Error wrapping vmerror.ErrBudgetExceeded. Suitable for
// sandboxing untrusted scripts (spec.md §5's "optional per-VM counter").
func WithBudget(b *alloc.Budget) Option {
	return func(vm *VM) { vm.budget = b }
}

// WithSink installs a diagnostics sink for deprecation warnings and,
// if tracing is requested on that sink, per-instruction trace lines.
func WithSink(s diagnostics.Sink) Option {
	return func(vm *VM) { vm.sink = s }
}

// New constructs a VM ready to execute u's entry instructions starting at
// ip 0, against ctx for native/associated dispatch.
func New(u *unit.Unit, ctx *context.Context, opts ...Option) *VM {
	vm := &VM{
		u:         u,
		ctx:       ctx,
		stack:     stack.New(),
		sink:      diagnostics.NoOp(),
		resumeOut: int64(unit.DiscardAddr),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// NewAt is New plus pre-seeding the stack with args and starting execution
// at a specific instruction offset, the shape a Call convention's Offset
// resolution needs to spin up a fresh VM for a Generator/Stream/Async call.
func NewAt(u *unit.Unit, ctx *context.Context, offset uint32, args []value.Value, opts ...Option) *VM {
	vm := New(u, ctx, opts...)
	for _, a := range args {
		vm.stack.Push(a)
	}
	vm.ip = offset
	return vm
}

// Halted reports whether the VM has finished (via Return at the top frame)
// or failed.
func (vm *VM) Halted() bool { return vm.halted }

// Result returns the value produced by the top-level Return, valid only
// once Halted() is true and Run/Step did not return an error.
func (vm *VM) Result() value.Value { return vm.result }

// Stack exposes the VM's value stack, e.g. for a host inspecting arguments
// from within a NativeHandler via the value.Stack interface.
func (vm *VM) Stack() *stack.Stack { return vm.stack }

// Run executes instructions until Return at the top frame, an error, or
// suspension at a Yield/Await. A suspension is reported as errYielded /
// ErrAwaiting, which Execution translates into a Step rather than
// propagating as a host-facing error.
func (vm *VM) Run() (value.Value, error) {
	for !vm.halted {
		if err := vm.Step(); err != nil {
			if errors.Is(err, errYielded) || errors.Is(err, ErrAwaiting) {
				return value.Unit(), err
			}
			return value.Value{}, err
		}
	}
	return vm.result, nil
}

// Step fetches, decodes, and dispatches exactly one instruction.
func (vm *VM) Step() error {
	if vm.halted {
		return ErrHalted
	}
	if vm.budget != nil {
		if err := vm.budget.Reserve(1); err != nil {
			vm.halted = true
			return vm.fail(fmt.Errorf("%w: %v", vmerror.ErrBudgetExceeded, err))
		}
	}

	instr, ok := vm.u.InstructionAt(vm.ip)
	if !ok {
		return vm.fail(fmt.Errorf("runtime: ip %d past end of %d instructions", vm.ip, len(vm.u.Instructions)))
	}
	span, _ := vm.u.DebugSpanAt(vm.ip)
	vm.sink.Traced(diagnostics.Trace{IP: vm.ip, Text: instr.Op.String(), Span: span})

	ip := vm.ip
	vm.ip++
	if err := vm.dispatch(instr); err != nil {
		if errors.Is(err, errYielded) {
			return err
		}
		if errors.Is(err, ErrAwaiting) {
			// Re-fetch the same Await instruction on the next Step once
			// resumed, since Await polls rather than consuming progress.
			vm.ip = ip
			return err
		}
		vm.ip = ip
		return vm.fail(err)
	}
	return nil
}

// fail wraps a raw error into a *vmerror.Error carrying the current unwind
// trace and halts the VM; every frame popped while propagating the error
// prepends its own (span, function name) via unwind in call.go.
func (vm *VM) fail(err error) error {
	vm.halted = true
	var ve *vmerror.Error
	if errors.As(err, &ve) {
		span, _ := vm.u.DebugSpanAt(vm.ip)
		return ve.WithSpan(span, vm.currentFunctionName)
	}
	span, _ := vm.u.DebugSpanAt(vm.ip)
	return vmerror.New(err, nil).WithSpan(span, vm.currentFunctionName)
}

// addr resolves a frame-relative operand address to an absolute stack
// address.
func (vm *VM) addr(a unit.Addr) int64 { return vm.base + int64(a) }

// outAddr resolves Out, preserving the discard sentinel untranslated so
// Stack.WriteOutput's unit.DiscardAddr check still matches.
func (vm *VM) outAddr(out unit.Addr) int64 {
	if out == unit.DiscardAddr {
		return int64(unit.DiscardAddr)
	}
	return vm.addr(out)
}

// get reads the value at a frame-relative address, failing with
// vmerror.ErrBadArgument if the address is out of range (a compiler bug,
// not a user-triggerable condition, but checked defensively).
func (vm *VM) get(a unit.Addr) (value.Value, error) {
	v, ok := vm.stack.At(vm.addr(a))
	if !ok {
		return value.Value{}, fmt.Errorf("%w: stack address %d out of range", vmerror.ErrBadArgument, vm.addr(a))
	}
	return v, nil
}

// set writes v to a frame-relative address, or drops it if out is the
// discard sentinel.
func (vm *VM) set(out unit.Addr, v value.Value) {
	vm.stack.WriteOutput(vm.outAddr(out), v)
}

// resolveName returns the debug name for h, falling back to a hex label.
func (vm *VM) resolveName(h hash.Hash) string {
	if name, ok := vm.u.FunctionName(h); ok {
		return name
	}
	return fmt.Sprintf("0x%016x", uint64(h))
}
