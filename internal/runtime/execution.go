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
	"fmt"

	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/value"
	"github.com/probelang/probe-lang/internal/vmerror"
)

// Execution is the Coroutine implementation backing Generator/Stream/
// Future values: an owned VM, parked at a Yield/Await, resumed one step at
// a time by a host or by OpIterNext/OpAwait. Per the resolved convention,
// only a Generator's Resume argument is delivered anywhere (written to the
// register the Yield that suspended it named); Stream and Future callers
// must still pass a value (Go's interface requires it) but it is ignored.
type Execution struct {
	vm   *VM
	kind value.Kind
	done bool
}

// newExecution wraps vm as a Coroutine of the given kind. vm must already
// be positioned at its entry instruction (via NewAt) and not yet run.
func newExecution(vm *VM, kind value.Kind) *Execution {
	return &Execution{vm: vm, kind: kind}
}

// CoroutineKind reports which of Generator/Stream/Future this execution
// backs.
func (e *Execution) CoroutineKind() value.Kind { return e.kind }

// Resume drives the owned VM forward from where it last suspended (or from
// its entry instruction, the first time) until it yields again, completes,
// or blocks on a pending Await.
func (e *Execution) Resume(arg value.Value) (value.Step, error) {
	if e.done {
		return value.Step{}, completedError(e.kind)
	}
	if e.kind == value.KindGenerator && e.vm.resumeOut != int64(unit.DiscardAddr) {
		e.vm.stack.WriteOutput(e.vm.resumeOut, arg)
	}
	e.vm.resumeOut = int64(unit.DiscardAddr)

	result, err := e.vm.Run()
	if err != nil {
		if errors.Is(err, errYielded) {
			return e.vm.pendingStep, nil
		}
		if errors.Is(err, ErrAwaiting) {
			return value.Step{Kind: value.StepPending}, nil
		}
		e.done = true
		return value.Step{}, err
	}
	e.done = true
	return value.Step{Kind: value.StepComplete, Value: result}, nil
}

// Cancel marks the execution exhausted without running it further. No
// MutGuard/RefGuard ever survives a suspension point (every borrow taken
// mid-instruction is released before Step returns), so there is nothing
// else to unwind.
func (e *Execution) Cancel() { e.done = true }

func completedError(k value.Kind) error {
	switch k {
	case value.KindGenerator:
		return fmt.Errorf("%w", vmerror.ErrGeneratorComplete)
	case value.KindStream:
		return fmt.Errorf("%w", vmerror.ErrStreamCompleted)
	case value.KindFuture:
		return fmt.Errorf("%w", vmerror.ErrFutureCompleted)
	default:
		return fmt.Errorf("%w", vmerror.ErrGeneratorComplete)
	}
}

var _ value.Coroutine = (*Execution)(nil)

// yield handles OpYield: A is the value produced this step; Out is the
// register a future Resume(arg) call should deliver its argument into
// before execution continues past this instruction.
func (vm *VM) yield(instr unit.Instruction) error {
	val, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	vm.pendingStep = value.Step{Kind: value.StepYielded, Value: val}
	vm.resumeOut = vm.outAddr(instr.Out)
	return errYielded
}

// yieldUnit handles OpYieldUnit: a bare `yield` with no value.
func (vm *VM) yieldUnit(instr unit.Instruction) error {
	vm.pendingStep = value.Step{Kind: value.StepYielded, Value: value.Unit()}
	vm.resumeOut = vm.outAddr(instr.Out)
	return errYielded
}

// await handles OpAwait: A holds a Future value. A ready future's value is
// written to Out and execution continues normally; a pending one
// re-suspends this instruction for a later retry via ErrAwaiting, which
// Step rewinds the instruction pointer to repeat.
func (vm *VM) await(instr unit.Instruction) error {
	futVal, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	co, err := futVal.AsCoroutine()
	if err != nil {
		return fmt.Errorf("%w: await target is not a future", vmerror.ErrExpectedType)
	}
	step, err := co.Resume(value.Unit())
	if err != nil {
		return err
	}
	switch step.Kind {
	case value.StepComplete:
		vm.set(instr.Out, step.Value)
		return nil
	case value.StepPending:
		vm.pendingStep = step
		return ErrAwaiting
	default:
		return fmt.Errorf("%w: future yielded instead of completing", vmerror.ErrExpectedType)
	}
}

// wrapCoroutine spins up a fresh VM at fn's entry point (sharing ctx,
// budget, and sink with the caller) and wraps it as the Coroutine value
// matching fn.CallKind, without running any of its instructions — the
// first Resume (driven by a host, or by OpIterNext/OpAwait) runs it to its
// first suspension point.
func (vm *VM) wrapCoroutine(fn value.Function, args []value.Value) (value.Value, error) {
	full := append(append([]value.Value(nil), args...), fn.Captured...)
	child := NewAt(fn.Unit, vm.ctx, fn.InstructionOffset, full, WithBudget(vm.budget), WithSink(vm.sink))

	switch fn.CallKind {
	case unit.Generator:
		return value.GeneratorOf(newExecution(child, value.KindGenerator)), nil
	case unit.Stream:
		return value.StreamOf(newExecution(child, value.KindStream)), nil
	case unit.Async:
		return value.FutureOf(newExecution(child, value.KindFuture)), nil
	default:
		return value.Value{}, fmt.Errorf("%w: unknown call kind for coroutine wrapping", vmerror.ErrExpectedType)
	}
}
