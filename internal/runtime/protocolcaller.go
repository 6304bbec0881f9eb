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
	"github.com/probelang/probe-lang/internal/context"
	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/module"
	"github.com/probelang/probe-lang/internal/protocol"
	"github.com/probelang/probe-lang/internal/stack"
	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/value"
	"github.com/probelang/probe-lang/internal/vmerror"
)

// resolution is what resolveGlobal/resolveComposite found for a call hash:
// either a Unit-local Offset function or a Context-registered native one.
type resolution struct {
	isNative bool
	meta     unit.FunctionMeta
	fromUnit *unit.Unit
	native   value.NativeHandler
	decl     module.FunctionDecl
}

// resolveComposite implements the two-step lookup every call family and
// the protocol caller share: unit.function(hash) first (script-defined
// functions, including script-defined protocol implementations), falling
// back to context.function(hash) (host-registered modules) per spec.md
// §4.6's "resolve in unit.function(hash) else in context.function(hash)".
func (vm *VM) resolveComposite(h hash.Hash) (resolution, bool) {
	if meta, ok := vm.u.Function(h); ok {
		return resolution{meta: meta, fromUnit: vm.u}, true
	}
	if decl, ok := vm.ctx.Function(h); ok {
		return resolution{isNative: true, native: decl.Handler, decl: decl}, true
	}
	return resolution{}, false
}

// inFrameCaller is the "in-frame" ProtocolCaller variant (spec.md §4.6):
// it reuses the VM's own stack, pushing target and args at the current
// top, then either invokes a native handler directly or enters a subframe
// via the VM's own call/return machinery and drives it to completion
// before returning — a native call stack cannot splice into Go's call
// stack mid-instruction, so "enters a subframe" is realized as running
// the VM's own frame loop until that specific frame pops, rather than
// literally suspending the enclosing dispatch and resuming later; the
// observable result (a synchronous call that shares the VM's stack and
// cell borrows) is the same.
type inFrameCaller struct {
	vm *VM
}

func (c *inFrameCaller) Call(target value.Value, p protocol.Protocol, args []value.Value) (value.Value, error) {
	return c.vm.callProtocol(target, p, args)
}

func (vm *VM) callProtocol(target value.Value, p protocol.Protocol, args []value.Value) (value.Value, error) {
	composite := hash.AssociatedFunction(target.TypeHash(), p.Hash)
	res, ok := vm.resolveComposite(composite)
	if !ok {
		return value.Value{}, vmerror.MissingProtocolFunction(p.Hash, target.TypeHash())
	}
	if res.isNative {
		return vm.callNativeIsolated(res.native, append([]value.Value{target}, args...))
	}
	return vm.callUnitIsolated(res.fromUnit, res.meta, append([]value.Value{target}, args...))
}

// callNativeIsolated invokes a native handler against a scratch window on
// vm's own stack, restoring the stack length afterward.
func (vm *VM) callNativeIsolated(h value.NativeHandler, args []value.Value) (value.Value, error) {
	base := int64(vm.stack.Len())
	for _, a := range args {
		vm.stack.Push(a)
	}
	outAddr := vm.stack.Push(value.Unit()) // reserve the output slot after args
	if err := h(vm.stack, base, uint32(len(args)), outAddr); err != nil {
		vm.stack.Truncate(int(base))
		return value.Value{}, err
	}
	result, _ := vm.stack.At(outAddr)
	vm.stack.Truncate(int(base))
	return result, nil
}

// callUnitIsolated runs a script-defined (Immediate) function to
// completion on vm's own stack and frame machinery, returning its result.
// "Isolated" here only describes the caller's vantage (a host calling in
// from outside any running instruction); it still reuses the VM's own
// frame/stack, since that is what lets a script-defined protocol
// implementation call back into other script functions normally.
func (vm *VM) callUnitIsolated(u *unit.Unit, meta unit.FunctionMeta, args []value.Value) (value.Value, error) {
	base := int64(vm.stack.Len())
	depthBefore := len(vm.frames)
	savedU, savedIP, savedBase, savedName := vm.u, vm.ip, vm.base, vm.currentFunctionName

	if err := vm.enterFrame(u, meta.Offset, args, nil, base, meta.Name, unit.Immediate); err != nil {
		return value.Value{}, err
	}
	for len(vm.frames) > depthBefore {
		if err := vm.Step(); err != nil {
			vm.u, vm.ip, vm.base, vm.currentFunctionName = savedU, savedIP, savedBase, savedName
			vm.stack.Truncate(int(base))
			return value.Value{}, err
		}
	}
	result, _ := vm.stack.At(base)
	vm.stack.Truncate(int(base))
	return result, nil
}

// IsolatedCaller is the standalone ProtocolCaller variant (spec.md §4.6):
// it owns a brand-new minimal stack and VM, used when a protocol must be
// invoked with no VM already running (e.g. a host calling value.Eq from
// outside any script execution).
type IsolatedCaller struct {
	Unit *unit.Unit
	Ctx  *context.Context
}

// NewIsolatedCaller returns a ProtocolCaller that spins up a fresh VM per
// call, scoped to u's function table and ctx's installed modules.
func NewIsolatedCaller(u *unit.Unit, ctx *context.Context) *IsolatedCaller {
	return &IsolatedCaller{Unit: u, Ctx: ctx}
}

func (c *IsolatedCaller) Call(target value.Value, p protocol.Protocol, args []value.Value) (value.Value, error) {
	composite := hash.AssociatedFunction(target.TypeHash(), p.Hash)
	var res resolution
	var ok bool
	if c.Unit != nil {
		if meta, found := c.Unit.Function(composite); found {
			res, ok = resolution{meta: meta, fromUnit: c.Unit}, true
		}
	}
	if !ok && c.Ctx != nil {
		if decl, found := c.Ctx.Function(composite); found {
			res, ok = resolution{isNative: true, native: decl.Handler, decl: decl}, true
		}
	}
	if !ok {
		return value.Value{}, vmerror.MissingProtocolFunction(p.Hash, target.TypeHash())
	}
	full := append([]value.Value{target}, args...)
	if res.isNative {
		s := stack.New()
		for _, a := range full {
			s.Push(a)
		}
		outAddr := s.Push(value.Unit())
		if err := res.native(s, 0, uint32(len(full)), outAddr); err != nil {
			return value.Value{}, err
		}
		v, _ := s.At(outAddr)
		return v, nil
	}
	child := NewAt(res.fromUnit, c.Ctx, res.meta.Offset, full)
	return child.Run()
}
