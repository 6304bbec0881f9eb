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

// Package context implements Context, the frozen merge of every installed
// Module a VM consults for native dispatch: a hash-indexed handler map plus
// deprecation metadata. Resolution of associated_function and protocol_call
// hashes is memoized in an LRU so repeated dispatch to the same (type,
// protocol) pair skips the module-map walk; eviction only ever affects
// lookup cost, never observable behavior.
package context

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/module"
	"github.com/probelang/probe-lang/internal/value"
)

// DefaultResolutionCacheSize bounds the associated_function/protocol_call
// memoization LRU when the caller does not request a specific size.
const DefaultResolutionCacheSize = 4096

// Context is the frozen, queryable union of every installed Module.
type Context struct {
	modules []*module.Module

	functions map[hash.Hash]module.FunctionDecl
	types     map[hash.Hash]module.TypeDecl
	constants map[hash.Hash]value.Value

	resolutionCache *lru.Cache
}

// New returns an empty Context ready to have modules installed.
func New() *Context {
	cache, _ := lru.New(DefaultResolutionCacheSize)
	return &Context{
		functions:       make(map[hash.Hash]module.FunctionDecl),
		types:           make(map[hash.Hash]module.TypeDecl),
		constants:       make(map[hash.Hash]value.Value),
		resolutionCache: cache,
	}
}

// Install merges a Module's declarations into the Context, failing with
// module.ErrConflict if any hash is already registered by a previously
// installed module.
func (c *Context) Install(m *module.Module) error {
	for h, decl := range m.Functions() {
		if _, exists := c.functions[h]; exists {
			return fmt.Errorf("%w: function 0x%016x already provided by another module", module.ErrConflict, uint64(h))
		}
		c.functions[h] = decl
	}
	for h, decl := range m.Types() {
		if _, exists := c.types[h]; exists {
			return fmt.Errorf("%w: type 0x%016x already provided by another module", module.ErrConflict, uint64(h))
		}
		c.types[h] = decl
	}
	for h, v := range m.Constants() {
		if _, exists := c.constants[h]; exists {
			return fmt.Errorf("%w: constant 0x%016x already provided by another module", module.ErrConflict, uint64(h))
		}
		c.constants[h] = v
	}
	c.modules = append(c.modules, m)
	return nil
}

// Function looks up a native handler declaration by hash directly (used for
// Call{hash} resolution once internal/unit.Unit has already been checked).
func (c *Context) Function(h hash.Hash) (module.FunctionDecl, bool) {
	d, ok := c.functions[h]
	return d, ok
}

// Type looks up a registered type declaration by hash.
func (c *Context) Type(h hash.Hash) (module.TypeDecl, bool) {
	d, ok := c.types[h]
	return d, ok
}

// Constant resolves a module-level constant; this method only ever
// consults module constants. The VM's LoadConst reads the unit's own
// constant pool and does not call this method.
func (c *Context) Constant(h hash.Hash) (value.Value, bool) {
	v, ok := c.constants[h]
	return v, ok
}

// AssociatedFunction resolves associated_function(typeHash, nameHash),
// consulting (and populating) the resolution LRU first.
func (c *Context) AssociatedFunction(typeHash, nameHash hash.Hash) (module.FunctionDecl, bool) {
	composite := hash.AssociatedFunction(typeHash, nameHash)
	return c.resolveCached(composite)
}

// ProtocolFunction resolves associated_function(targetTypeHash,
// protocolHash), the protocol-caller's lookup per spec.md §4.6.
func (c *Context) ProtocolFunction(targetTypeHash, protocolHash hash.Hash) (module.FunctionDecl, bool) {
	composite := hash.AssociatedFunction(targetTypeHash, protocolHash)
	return c.resolveCached(composite)
}

func (c *Context) resolveCached(composite hash.Hash) (module.FunctionDecl, bool) {
	if c.resolutionCache != nil {
		if cached, ok := c.resolutionCache.Get(composite); ok {
			decl, ok := cached.(module.FunctionDecl)
			return decl, ok
		}
	}
	decl, ok := c.functions[composite]
	if ok && c.resolutionCache != nil {
		c.resolutionCache.Add(composite, decl)
	}
	return decl, ok
}

// Deprecated reports whether the function at h was marked deprecated, and
// if so, its message, used by internal/diagnostics on each dispatch.
func (c *Context) Deprecated(h hash.Hash) (string, bool) {
	decl, ok := c.functions[h]
	if !ok || decl.Meta.Deprecated == nil {
		return "", false
	}
	return *decl.Meta.Deprecated, true
}

// Runtime returns a pruned, VM-facing view: just the handler map and
// deprecation lookup the dispatch loop actually needs, matching spec.md
// §4.4's `runtime() -> RuntimeContext`.
func (c *Context) Runtime() *RuntimeView { return &RuntimeView{ctx: c} }

// RuntimeView is the VM-facing subset of Context: it exposes handler
// lookup and deprecation metadata without the module-installation API.
type RuntimeView struct {
	ctx *Context
}

// Function looks up a native handler by hash.
func (r *RuntimeView) Function(h hash.Hash) (module.FunctionDecl, bool) { return r.ctx.Function(h) }

// AssociatedFunction resolves an associated-function hash.
func (r *RuntimeView) AssociatedFunction(typeHash, nameHash hash.Hash) (module.FunctionDecl, bool) {
	return r.ctx.AssociatedFunction(typeHash, nameHash)
}

// ProtocolFunction resolves a protocol implementation hash.
func (r *RuntimeView) ProtocolFunction(targetTypeHash, protocolHash hash.Hash) (module.FunctionDecl, bool) {
	return r.ctx.ProtocolFunction(targetTypeHash, protocolHash)
}

// Constant resolves a module-level constant.
func (r *RuntimeView) Constant(h hash.Hash) (value.Value, bool) { return r.ctx.Constant(h) }

// Deprecated reports deprecation metadata for a function hash.
func (r *RuntimeView) Deprecated(h hash.Hash) (string, bool) { return r.ctx.Deprecated(h) }
