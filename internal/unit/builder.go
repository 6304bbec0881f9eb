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

package unit

import "github.com/probelang/probe-lang/internal/hash"

// Builder assembles a Unit incrementally. It is the only collaborator
// boundary exposed to the compiler pipeline (internal/codegen): append
// instructions, register functions, intern static data, and record debug
// spans. Build freezes the result.
type Builder struct {
	instructions     []Instruction
	functions        map[hash.Hash]FunctionMeta
	constants        []ConstValue
	staticStrings    []string
	staticStringIdx  map[string]uint32
	staticKeys       [][]string
	staticKeysIdx    map[string]uint32
	debug            *DebugInfo
	imports          []string
}

// NewBuilder returns an empty Builder ready to accumulate a Unit.
func NewBuilder() *Builder {
	return &Builder{
		functions:       make(map[hash.Hash]FunctionMeta),
		staticStringIdx: make(map[string]uint32),
		staticKeysIdx:   make(map[string]uint32),
		debug:           NewDebugInfo(),
	}
}

// Emit appends an instruction and returns its offset.
func (b *Builder) Emit(instr Instruction) uint32 {
	offset := uint32(len(b.instructions))
	b.instructions = append(b.instructions, instr)
	return offset
}

// EmitWithSpan appends an instruction and records its source span in one
// step.
func (b *Builder) EmitWithSpan(instr Instruction, span DebugSpan) uint32 {
	offset := b.Emit(instr)
	b.RecordSpan(offset, span)
	return offset
}

// NextOffset returns the offset the next Emit call will use, useful for
// back-patching jump targets before the target instruction exists.
func (b *Builder) NextOffset() uint32 { return uint32(len(b.instructions)) }

// Patch overwrites an already-emitted instruction, used to back-patch
// forward jump targets once the destination offset is known.
func (b *Builder) Patch(offset uint32, instr Instruction) {
	b.instructions[offset] = instr
}

// RegisterFunction adds a function table entry keyed by a composite hash
// (plain item hash for free functions, associated_function(...) for
// methods). Returns false without modifying the table if the hash already
// has an entry, matching the "conflicting hashes" rule module installation
// also enforces.
func (b *Builder) RegisterFunction(h hash.Hash, meta FunctionMeta) bool {
	if _, exists := b.functions[h]; exists {
		return false
	}
	b.functions[h] = meta
	if meta.Name != "" {
		b.debug.FunctionNames[h] = meta.Name
	}
	return true
}

// InternString interns a static string, returning its stable slot id.
// Repeated interning of an equal string returns the same slot.
func (b *Builder) InternString(s string) uint32 {
	if slot, ok := b.staticStringIdx[s]; ok {
		return slot
	}
	slot := uint32(len(b.staticStrings))
	b.staticStrings = append(b.staticStrings, s)
	b.staticStringIdx[s] = slot
	return slot
}

// InternObjectKeys interns a static ordered object-key set, returning its
// stable slot id. The key order is preserved verbatim since it determines
// field order and identity for object/struct construction.
func (b *Builder) InternObjectKeys(keys []string) uint32 {
	id := keysIdentity(keys)
	if slot, ok := b.staticKeysIdx[id]; ok {
		return slot
	}
	slot := uint32(len(b.staticKeys))
	cp := append([]string(nil), keys...)
	b.staticKeys = append(b.staticKeys, cp)
	b.staticKeysIdx[id] = slot
	return slot
}

func keysIdentity(keys []string) string {
	out := make([]byte, 0, 16*len(keys))
	for _, k := range keys {
		out = append(out, []byte(k)...)
		out = append(out, 0)
	}
	return string(out)
}

// InternConstant interns a compile-time constant, returning its id. Unlike
// strings and object keys, constants are not deduplicated: callers that want
// sharing should track their own id.
func (b *Builder) InternConstant(c ConstValue) uint32 {
	id := uint32(len(b.constants))
	b.constants = append(b.constants, c)
	return id
}

// RecordSpan records the source span for a single instruction offset.
func (b *Builder) RecordSpan(offset uint32, span DebugSpan) {
	b.debug.Spans[offset] = span
}

// RecordSpanRange records the same span for every instruction in
// [start, end).
func (b *Builder) RecordSpanRange(start, end uint32, span DebugSpan) {
	for ip := start; ip < end; ip++ {
		b.debug.Spans[ip] = span
	}
}

// RecordLocals records the live local-variable names visible at ip, used by
// a debugger/LSP collaborator.
func (b *Builder) RecordLocals(ip uint32, names []string) {
	b.debug.Locals[ip] = names
}

// AddImport records informational import metadata; the VM never consults
// it, but it round-trips through the persisted unit format for tooling.
func (b *Builder) AddImport(path string) {
	b.imports = append(b.imports, path)
}

// Build freezes the accumulated state into an immutable *Unit.
func (b *Builder) Build() *Unit {
	return &Unit{
		Instructions:     append([]Instruction(nil), b.instructions...),
		Functions:        b.functions,
		Constants:        append([]ConstValue(nil), b.constants...),
		StaticStrings:    append([]string(nil), b.staticStrings...),
		StaticObjectKeys: b.staticKeys,
		Debug:            b.debug,
		Imports:          append([]string(nil), b.imports...),
	}
}
