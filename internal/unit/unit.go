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

// Package unit defines Unit, the immutable compiled artifact the runtime
// executes: an instruction buffer, a function table keyed by hash, a
// constant pool, static string/object-key tables, debug info, and import
// metadata. Units are built once (by the external compiler pipeline in
// internal/codegen) and then shared read-only among any number of VMs.
package unit

import "github.com/probelang/probe-lang/internal/hash"

// CallKind distinguishes how a call to an Offset function should be
// resolved: inline, or wrapped as a suspended coroutine value.
type CallKind uint8

const (
	Immediate CallKind = iota
	Generator
	Async
	Stream
)

func (k CallKind) String() string {
	switch k {
	case Immediate:
		return "immediate"
	case Generator:
		return "generator"
	case Async:
		return "async"
	case Stream:
		return "stream"
	default:
		return "unknown"
	}
}

// FunctionMeta describes one entry in the function table: where its body
// starts, how many arguments it takes, and how a call to it should be
// resolved.
type FunctionMeta struct {
	Offset   uint32
	Args     uint32
	CallKind CallKind
	Name     string // for debug traces; may be empty
}

// ConstKind tags the inline-representable forms a compile-time constant may
// take. This deliberately mirrors only the *inline* tier of value.Value —
// constants never hold a shared cell, matching spec.md's "mirror of Value
// but without shared cells".
type ConstKind uint8

const (
	ConstUnit ConstKind = iota
	ConstBool
	ConstByte
	ConstChar
	ConstInteger
	ConstFloat
	ConstStaticString // references the StaticStrings table by slot
	ConstTuple        // a tuple of further constants, by index range
)

// ConstValue is one entry of a Unit's constant pool.
type ConstValue struct {
	Kind     ConstKind
	Integer  int64
	Float    float64
	StrSlot  uint32 // valid when Kind == ConstStaticString
	TupleIDs []uint32
}

// DebugSpan locates an instruction in its original source text.
type DebugSpan struct {
	SourceID uint32
	Start    uint32
	End      uint32
}

// DebugInfo maps instruction offsets to source spans and holds naming
// metadata used purely for diagnostics; absence of an entry is not an error.
type DebugInfo struct {
	Spans         map[uint32]DebugSpan
	FunctionNames map[hash.Hash]string
	Locals        map[uint32][]string // ip -> live local variable names
}

// NewDebugInfo returns an empty, ready-to-populate DebugInfo.
func NewDebugInfo() *DebugInfo {
	return &DebugInfo{
		Spans:         make(map[uint32]DebugSpan),
		FunctionNames: make(map[hash.Hash]string),
		Locals:        make(map[uint32][]string),
	}
}

// Unit is the immutable compiled artifact a VM executes. All fields are
// populated once by a Builder and never mutated afterward; concurrent VMs
// may safely share a single *Unit.
type Unit struct {
	Instructions      []Instruction
	Functions         map[hash.Hash]FunctionMeta
	Constants         []ConstValue
	StaticStrings     []string
	StaticObjectKeys  [][]string
	Debug             *DebugInfo
	Imports           []string
}

// InstructionAt returns the instruction at ip, or false if ip is out of
// range.
func (u *Unit) InstructionAt(ip uint32) (Instruction, bool) {
	if int(ip) >= len(u.Instructions) {
		return Instruction{}, false
	}
	return u.Instructions[ip], true
}

// Function looks up a function table entry by its composite hash.
func (u *Unit) Function(h hash.Hash) (FunctionMeta, bool) {
	m, ok := u.Functions[h]
	return m, ok
}

// Constant returns the constant at id.
func (u *Unit) Constant(id uint32) (ConstValue, bool) {
	if int(id) >= len(u.Constants) {
		return ConstValue{}, false
	}
	return u.Constants[id], true
}

// StaticString returns the static string interned at slot.
func (u *Unit) StaticString(slot uint32) (string, bool) {
	if int(slot) >= len(u.StaticStrings) {
		return "", false
	}
	return u.StaticStrings[slot], true
}

// StaticObjectKeysAt returns the static object-key set interned at slot.
func (u *Unit) StaticObjectKeysAt(slot uint32) ([]string, bool) {
	if int(slot) >= len(u.StaticObjectKeys) {
		return nil, false
	}
	return u.StaticObjectKeys[slot], true
}

// DebugSpanAt returns the source span recorded for ip, if any.
func (u *Unit) DebugSpanAt(ip uint32) (DebugSpan, bool) {
	if u.Debug == nil {
		return DebugSpan{}, false
	}
	s, ok := u.Debug.Spans[ip]
	return s, ok
}

// FunctionName returns the debug name recorded for a function hash.
func (u *Unit) FunctionName(h hash.Hash) (string, bool) {
	if u.Debug == nil {
		return "", false
	}
	n, ok := u.Debug.FunctionNames[h]
	return n, ok
}
