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

// Package module implements Module, a declarative bundle of host-registered
// types, free functions, associated functions, protocol implementations,
// and constants. A Context (internal/context) merges any number of
// installed Modules into the lookup tables the VM consults for native
// dispatch.
package module

import (
	"errors"
	"fmt"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/item"
	"github.com/probelang/probe-lang/internal/value"
)

// ErrConflict is returned when installing two entries that resolve to the
// same hash within one Module or across merged Modules.
var ErrConflict = errors.New("module: conflicting hash registration")

// TypeDecl describes a host-registered type: its canonical path, type hash,
// optional field schema, and optional constructor handler.
type TypeDecl struct {
	Path        item.Item
	TypeHash    hash.Hash
	FieldNames  []string // nil for tuple-shaped or opaque types
	Constructor value.NativeHandler
	Doc         string
}

// Meta carries documentation and deprecation metadata for a registered
// function, type, or constant. Deprecated carries a message rather than a
// bare boolean, per the "deprecation warnings with a message" supplement.
type Meta struct {
	Doc        string
	Deprecated *string
}

// FunctionDecl describes a single free or associated function registration.
type FunctionDecl struct {
	Hash    hash.Hash
	Handler value.NativeHandler
	Meta    Meta
}

// Module is a declarative bundle merged into a Context at installation
// time. Every map is keyed by the same composite hash scheme
// internal/hash defines, so two Modules conflict exactly when they'd
// register the same hash.
type Module struct {
	Name string

	types      map[hash.Hash]TypeDecl
	functions  map[hash.Hash]FunctionDecl
	constants  map[hash.Hash]value.Value
	constNames map[hash.Hash]string // for diagnostics / disassembly
}

// New returns an empty Module with the given diagnostic name.
func New(name string) *Module {
	return &Module{
		Name:       name,
		types:      make(map[hash.Hash]TypeDecl),
		functions:  make(map[hash.Hash]FunctionDecl),
		constants:  make(map[hash.Hash]value.Value),
		constNames: make(map[hash.Hash]string),
	}
}

// RegisterType installs a type declaration.
func (m *Module) RegisterType(decl TypeDecl) error {
	if _, exists := m.types[decl.TypeHash]; exists {
		return fmt.Errorf("%w: type 0x%016x in module %q", ErrConflict, uint64(decl.TypeHash), m.Name)
	}
	m.types[decl.TypeHash] = decl
	return nil
}

// RegisterFunction installs a free function, associated function, or
// protocol implementation — all three are just a (hash, handler) pair; the
// caller derives the hash with plain item hashing, hash.AssociatedFunction,
// or hash.FieldFunction respectively before calling this.
func (m *Module) RegisterFunction(decl FunctionDecl) error {
	if _, exists := m.functions[decl.Hash]; exists {
		return fmt.Errorf("%w: function 0x%016x in module %q", ErrConflict, uint64(decl.Hash), m.Name)
	}
	m.functions[decl.Hash] = decl
	return nil
}

// RegisterConstant installs a named constant, resolved by Context after
// unit-local constants (the associated-constant-lookup supplement).
func (m *Module) RegisterConstant(name string, v value.Value) error {
	h := hash.String(name)
	if _, exists := m.constants[h]; exists {
		return fmt.Errorf("%w: constant %q in module %q", ErrConflict, name, m.Name)
	}
	m.constants[h] = v
	m.constNames[h] = name
	return nil
}

// Function looks up a function declaration by hash.
func (m *Module) Function(h hash.Hash) (FunctionDecl, bool) {
	d, ok := m.functions[h]
	return d, ok
}

// Type looks up a type declaration by hash.
func (m *Module) Type(h hash.Hash) (TypeDecl, bool) {
	d, ok := m.types[h]
	return d, ok
}

// Constant looks up a constant by its name hash.
func (m *Module) Constant(h hash.Hash) (value.Value, bool) {
	v, ok := m.constants[h]
	return v, ok
}

// Functions returns every registered function hash, for merge conflict
// detection and documentation generation.
func (m *Module) Functions() map[hash.Hash]FunctionDecl { return m.functions }

// Types returns every registered type hash.
func (m *Module) Types() map[hash.Hash]TypeDecl { return m.types }

// Constants returns every registered constant hash.
func (m *Module) Constants() map[hash.Hash]value.Value { return m.constants }

// ConstantName returns the human-readable name a constant hash was
// registered under, for disassembly/diagnostics.
func (m *Module) ConstantName(h hash.Hash) (string, bool) {
	n, ok := m.constNames[h]
	return n, ok
}

// Deprecate marks an already-registered function as deprecated with a
// message, returned to diagnostics sinks on each dispatched call.
func (m *Module) Deprecate(h hash.Hash, message string) error {
	d, ok := m.functions[h]
	if !ok {
		return fmt.Errorf("module: cannot deprecate unregistered function 0x%016x", uint64(h))
	}
	d.Meta.Deprecated = &message
	m.functions[h] = d
	return nil
}
