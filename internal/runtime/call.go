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

	"github.com/probelang/probe-lang/internal/diagnostics"
	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/value"
	"github.com/probelang/probe-lang/internal/vmerror"
)

// callFn handles OpCallFn: A names a register holding a Function value
// (built by OpClosure, passed as an argument, or loaded from a constant);
// B/ArgCount name the argument window; Out is the result register.
func (vm *VM) callFn(instr unit.Instruction) error {
	fnVal, err := vm.get(instr.A)
	if err != nil {
		return err
	}
	fn, err := fnVal.AsFunction()
	if err != nil {
		return fmt.Errorf("%w: call target is not a function", vmerror.ErrExpectedType)
	}
	args, err := vm.stack.ArgsAt(vm.addr(instr.B), instr.ArgCount)
	if err != nil {
		return err
	}
	return vm.invoke(*fn, args, instr.Out)
}

// call handles OpCall: Hash is a plain item hash resolved against the
// current unit's function table, then the context's native registrations.
func (vm *VM) call(instr unit.Instruction) error {
	res, ok := vm.resolveComposite(instr.Hash)
	if !ok {
		return vmerror.MissingFunction(instr.Hash)
	}
	args, err := vm.stack.ArgsAt(vm.addr(instr.B), instr.ArgCount)
	if err != nil {
		return err
	}
	return vm.invokeResolution(res, instr.Hash, args, instr.Out)
}

// callInstance handles OpCallInstance: the receiver is the first value in
// the argument window; Hash is the plain *method name* hash, combined at
// dispatch time with the receiver's runtime type via
// hash.AssociatedFunction, matching spec.md §4.6's "instance method calls
// resolve dynamically against the receiver's runtime type".
func (vm *VM) callInstance(instr unit.Instruction) error {
	args, err := vm.stack.ArgsAt(vm.addr(instr.B), instr.ArgCount)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: call-instance requires a receiver argument", vmerror.ErrBadArgumentCount)
	}
	receiver := args[0]
	composite := hash.AssociatedFunction(receiver.TypeHash(), instr.Hash)
	res, ok := vm.resolveComposite(composite)
	if !ok {
		return fmt.Errorf("%w: method 0x%016x on type 0x%016x", vmerror.ErrMissingInstanceFunction, uint64(instr.Hash), uint64(receiver.TypeHash()))
	}
	return vm.invokeResolution(res, composite, args, instr.Out)
}

// callAssociated handles OpCallAssociated: Hash is already the full
// composite associated_function(type, name) hash, precomputed at compile
// time since the static type is known (e.g. Type::method(args), with no
// receiver implicitly prepended).
func (vm *VM) callAssociated(instr unit.Instruction) error {
	res, ok := vm.resolveComposite(instr.Hash)
	if !ok {
		return vmerror.MissingFunction(instr.Hash)
	}
	args, err := vm.stack.ArgsAt(vm.addr(instr.B), instr.ArgCount)
	if err != nil {
		return err
	}
	return vm.invokeResolution(res, instr.Hash, args, instr.Out)
}

// invokeResolution dispatches a resolved call-hash target, reporting
// deprecation to the diagnostics sink for native functions that carry it.
func (vm *VM) invokeResolution(res resolution, h hash.Hash, args []value.Value, out unit.Addr) error {
	if res.isNative {
		if msg, ok := res.decl.Meta.Deprecated; ok && msg != nil {
			span, _ := vm.u.DebugSpanAt(vm.ip)
			vm.sink.Deprecated(diagnostics.Deprecation{
				FunctionHash: h,
				FunctionName: vm.resolveName(h),
				Message:      *msg,
				Span:         span,
			})
		}
		return vm.invokeNative(res.native, args, out)
	}
	fn := value.NewOffsetFunction(res.fromUnit, res.meta.Offset, res.meta.Args, res.meta.CallKind)
	return vm.invoke(fn, args, out)
}

// invokeNative runs a host handler synchronously against a scratch window.
func (vm *VM) invokeNative(h value.NativeHandler, args []value.Value, out unit.Addr) error {
	base := int64(vm.stack.Len())
	for _, a := range args {
		vm.stack.Push(a)
	}
	outAddr := vm.stack.Push(value.Unit())
	if err := h(vm.stack, base, uint32(len(args)), outAddr); err != nil {
		vm.stack.Truncate(int(base))
		return err
	}
	result, _ := vm.stack.At(outAddr)
	vm.stack.Truncate(int(base))
	vm.set(out, result)
	return nil
}

// invoke dispatches a resolved Function value: an Offset/Closure body
// either enters a new frame (Immediate) or is wrapped into a suspended
// coroutine value (Generator/Async/Stream) without running any of its
// instructions yet; a Native body runs to completion immediately.
func (vm *VM) invoke(fn value.Function, args []value.Value, out unit.Addr) error {
	switch fn.Form {
	case value.FormNative:
		return vm.invokeNative(fn.Handler, args, out)
	case value.FormOffset, value.FormClosure:
		if fn.CallKind != unit.Immediate {
			wrapped, err := vm.wrapCoroutine(fn, args)
			if err != nil {
				return err
			}
			vm.set(out, wrapped)
			return nil
		}
		return vm.enterFrame(fn.Unit, fn.InstructionOffset, args, fn.Captured, vm.outAddr(out), vm.resolveOffsetName(fn), unit.Immediate)
	default:
		return fmt.Errorf("%w: unknown function form", vmerror.ErrExpectedType)
	}
}

func (vm *VM) resolveOffsetName(fn value.Function) string {
	if fn.Unit == nil {
		return vm.currentFunctionName
	}
	for h, meta := range fn.Unit.Functions {
		if meta.Offset == fn.InstructionOffset {
			if name, ok := fn.Unit.FunctionName(h); ok {
				return name
			}
		}
	}
	return vm.currentFunctionName
}

// enterFrame pushes a caller Frame and repositions the VM at the callee's
// entry point, with args followed by captured values laid out as the
// callee's initial stack window starting at a fresh base.
func (vm *VM) enterFrame(u *unit.Unit, offset uint32, args, captured []value.Value, outAddr int64, functionName string, callKind unit.CallKind) error {
	newBase := int64(vm.stack.Len())
	for _, a := range args {
		vm.stack.Push(a)
	}
	for _, c := range captured {
		vm.stack.Push(c)
	}
	vm.frames = append(vm.frames, Frame{
		ReturnUnit:   vm.u,
		ReturnIP:     vm.ip,
		Base:         vm.base,
		Output:       outAddr,
		CallKind:     callKind,
		FunctionName: vm.currentFunctionName,
	})
	vm.u = u
	vm.base = newBase
	vm.ip = offset
	vm.currentFunctionName = functionName
	return nil
}

// ret handles OpReturn/OpReturnUnit: moves the value into the caller's
// output slot, collapses the callee's stack window, and resumes the
// caller — or, at the outermost frame, halts the VM with the final result.
func (vm *VM) ret(val value.Value) error {
	if len(vm.frames) == 0 {
		vm.result = val
		vm.halted = true
		return nil
	}
	f := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.stack.Truncate(int(vm.base))
	vm.stack.WriteOutput(f.Output, val)
	vm.u = f.ReturnUnit
	vm.ip = f.ReturnIP
	vm.base = f.Base
	vm.currentFunctionName = f.FunctionName
	return nil
}
