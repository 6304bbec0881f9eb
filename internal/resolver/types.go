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

// Package resolver performs name and type resolution over an
// internal/ast.Program: it builds a symbol table of every top-level item,
// resolves use/mod paths to internal/item.Item keys, constructs a static
// Type for every declared type and type annotation, and enforces linear
// (move-once) discipline on resource bindings ahead of internal/codegen.
package resolver

import (
	"fmt"
	"strings"
)

// Kind categorizes the fundamental shape of a resolved type. It mirrors the
// tags internal/value.Kind gives runtime values where one exists (Bool,
// Integer, Float, String, Bytes, Tuple, Struct, Fn/Closure, Agent,
// Generator/Stream/Future); KindRef/KindMutRef/KindEnum/KindResource/
// KindAddress/KindArray/KindSlice are compile-time-only distinctions the
// runtime tagged union does not need to keep separately.
type Kind int

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindAddress // 20-byte chain address
	KindArray   // [T; N]
	KindSlice   // [T]
	KindRef     // &T
	KindMutRef  // &mut T
	KindTuple
	KindStruct
	KindEnum
	KindFn
	KindClosure
	KindAgent    // first-class agent type
	KindResource // linear resource type (cannot copy/drop implicitly)
	KindGenerator
	KindStream
	KindFuture
)

var kindNames = [...]string{
	KindVoid: "void", KindBool: "bool", KindInt: "int", KindFloat: "float",
	KindString: "string", KindBytes: "bytes", KindAddress: "address",
	KindArray: "array", KindSlice: "slice", KindRef: "ref", KindMutRef: "mut_ref",
	KindTuple: "tuple", KindStruct: "struct", KindEnum: "enum", KindFn: "fn",
	KindClosure: "closure", KindAgent: "agent", KindResource: "resource",
	KindGenerator: "generator", KindStream: "stream", KindFuture: "future",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Type is the interface every resolved probelang type implements.
type Type interface {
	// Kind returns the fundamental category of this type.
	Kind() Kind

	// String returns the human-readable representation.
	String() string

	// Equals reports whether two types are structurally identical.
	Equals(other Type) bool

	// IsLinear reports whether this is a linear resource type: it must be
	// moved, returned, or explicitly dropped exactly once.
	IsLinear() bool

	// IsCopyable reports whether values of this type may be freely
	// duplicated without an explicit copy.
	IsCopyable() bool
}

// ---- Primitive types --------------------------------------------------------

type primitiveType struct{ kind Kind }

func (p *primitiveType) Kind() Kind       { return p.kind }
func (p *primitiveType) IsLinear() bool   { return false }
func (p *primitiveType) IsCopyable() bool { return true }
func (p *primitiveType) String() string   { return p.kind.String() }
func (p *primitiveType) Equals(other Type) bool {
	return other != nil && p.kind == other.Kind()
}

// Pre-allocated singletons for built-in scalar types.
var (
	Void    Type = &primitiveType{kind: KindVoid}
	Bool    Type = &primitiveType{kind: KindBool}
	Int     Type = &primitiveType{kind: KindInt}
	Float   Type = &primitiveType{kind: KindFloat}
	Str     Type = &primitiveType{kind: KindString}
	Bytes   Type = &primitiveType{kind: KindBytes}
	Address Type = &primitiveType{kind: KindAddress}
)

var builtinTypes = map[string]Type{
	"void": Void, "unit": Void, "bool": Bool, "int": Int, "float": Float,
	"string": Str, "bytes": Bytes, "address": Address,
}

// ---- Field -------------------------------------------------------------------

// Field is a named field inside a struct, resource, or tuple.
type Field struct {
	Name string // empty for positional tuple fields
	Type Type
}

func (f Field) String() string {
	if f.Name == "" {
		return f.Type.String()
	}
	return fmt.Sprintf("%s: %s", f.Name, f.Type)
}

// ---- Composite types -----------------------------------------------------

// ArrayType is [Elem; Len].
type ArrayType struct {
	Elem Type
	Len  int
}

func (a *ArrayType) Kind() Kind       { return KindArray }
func (a *ArrayType) IsLinear() bool   { return a.Elem.IsLinear() }
func (a *ArrayType) IsCopyable() bool { return a.Elem.IsCopyable() }
func (a *ArrayType) String() string  { return fmt.Sprintf("[%s; %d]", a.Elem, a.Len) }
func (a *ArrayType) Equals(other Type) bool {
	if other == nil || other.Kind() != KindArray {
		return false
	}
	o := other.(*ArrayType)
	return a.Len == o.Len && a.Elem.Equals(o.Elem)
}

// SliceType is [Elem], a dynamically-sized sequence.
type SliceType struct{ Elem Type }

func (s *SliceType) Kind() Kind       { return KindSlice }
func (s *SliceType) IsLinear() bool   { return s.Elem.IsLinear() }
func (s *SliceType) IsCopyable() bool { return s.Elem.IsCopyable() }
func (s *SliceType) String() string  { return fmt.Sprintf("[%s]", s.Elem) }
func (s *SliceType) Equals(other Type) bool {
	if other == nil || other.Kind() != KindSlice {
		return false
	}
	return s.Elem.Equals(other.(*SliceType).Elem)
}

// RefType is &T (immutable) or &mut T (mutable). References are never
// linear: they do not own the underlying value.
type RefType struct {
	Inner   Type
	Mutable bool
}

func (r *RefType) Kind() Kind {
	if r.Mutable {
		return KindMutRef
	}
	return KindRef
}
func (r *RefType) IsLinear() bool   { return false }
func (r *RefType) IsCopyable() bool { return true }
func (r *RefType) String() string {
	if r.Mutable {
		return fmt.Sprintf("&mut %s", r.Inner)
	}
	return fmt.Sprintf("&%s", r.Inner)
}
func (r *RefType) Equals(other Type) bool {
	o, ok := other.(*RefType)
	return ok && r.Mutable == o.Mutable && r.Inner.Equals(o.Inner)
}

// TupleType is a fixed-arity anonymous product: (T1, T2, ...).
type TupleType struct{ Elems []Type }

func (t *TupleType) Kind() Kind { return KindTuple }
func (t *TupleType) IsLinear() bool {
	for _, e := range t.Elems {
		if e.IsLinear() {
			return true
		}
	}
	return false
}
func (t *TupleType) IsCopyable() bool {
	for _, e := range t.Elems {
		if !e.IsCopyable() {
			return false
		}
	}
	return true
}
func (t *TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t *TupleType) Equals(other Type) bool {
	o, ok := other.(*TupleType)
	if !ok || len(t.Elems) != len(o.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equals(o.Elems[i]) {
			return false
		}
	}
	return true
}

// StructType is a named product type. A struct is linear if any field is.
type StructType struct {
	Name   string
	Fields []Field
}

func (s *StructType) Kind() Kind { return KindStruct }
func (s *StructType) IsLinear() bool {
	for _, f := range s.Fields {
		if f.Type.IsLinear() {
			return true
		}
	}
	return false
}
func (s *StructType) IsCopyable() bool {
	for _, f := range s.Fields {
		if !f.Type.IsCopyable() {
			return false
		}
	}
	return true
}
func (s *StructType) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("struct %s { %s }", s.Name, strings.Join(parts, ", "))
}
func (s *StructType) Equals(other Type) bool {
	o, ok := other.(*StructType)
	if !ok || s.Name != o.Name || len(s.Fields) != len(o.Fields) {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i].Name != o.Fields[i].Name || !s.Fields[i].Type.Equals(o.Fields[i].Type) {
			return false
		}
	}
	return true
}

// Variant is one arm of an enum.
type Variant struct {
	Name   string
	Fields []Type // nil for unit variants
}

// EnumType is a named sum type.
type EnumType struct {
	Name     string
	Variants []Variant
}

func (e *EnumType) Kind() Kind { return KindEnum }
func (e *EnumType) IsLinear() bool {
	for _, v := range e.Variants {
		for _, f := range v.Fields {
			if f.IsLinear() {
				return true
			}
		}
	}
	return false
}
func (e *EnumType) IsCopyable() bool {
	for _, v := range e.Variants {
		for _, f := range v.Fields {
			if !f.IsCopyable() {
				return false
			}
		}
	}
	return true
}
func (e *EnumType) String() string {
	names := make([]string, len(e.Variants))
	for i, v := range e.Variants {
		names[i] = v.Name
	}
	return fmt.Sprintf("enum %s { %s }", e.Name, strings.Join(names, " | "))
}
func (e *EnumType) Equals(other Type) bool {
	o, ok := other.(*EnumType)
	if !ok || e.Name != o.Name || len(e.Variants) != len(o.Variants) {
		return false
	}
	for i := range e.Variants {
		if e.Variants[i].Name != o.Variants[i].Name {
			return false
		}
	}
	return true
}

// FnType describes a free function's (or trait method's) signature.
type FnType struct {
	Params []Type
	Return Type // nil means void
}

func (f *FnType) Kind() Kind       { return KindFn }
func (f *FnType) IsLinear() bool   { return false }
func (f *FnType) IsCopyable() bool { return true }
func (f *FnType) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	ret := "void"
	if f.Return != nil {
		ret = f.Return.String()
	}
	return fmt.Sprintf("fn(%s) -> %s", strings.Join(params, ", "), ret)
}
func (f *FnType) Equals(other Type) bool {
	o, ok := other.(*FnType)
	if !ok || len(f.Params) != len(o.Params) {
		return false
	}
	for i := range f.Params {
		if !f.Params[i].Equals(o.Params[i]) {
			return false
		}
	}
	return (f.Return == nil) == (o.Return == nil) &&
		(f.Return == nil || f.Return.Equals(o.Return))
}

// ClosureType is a |params| body literal's type: same shape as FnType plus
// the set of free variables it captures, which codegen needs to allocate a
// closure environment.
type ClosureType struct {
	Params    []Type
	Return    Type
	Captures  []string
}

func (c *ClosureType) Kind() Kind       { return KindClosure }
func (c *ClosureType) IsLinear() bool   { return false }
func (c *ClosureType) IsCopyable() bool { return true }
func (c *ClosureType) String() string {
	params := make([]string, len(c.Params))
	for i, p := range c.Params {
		params[i] = p.String()
	}
	ret := "void"
	if c.Return != nil {
		ret = c.Return.String()
	}
	return fmt.Sprintf("|%s| -> %s", strings.Join(params, ", "), ret)
}
func (c *ClosureType) Equals(other Type) bool {
	o, ok := other.(*ClosureType)
	if !ok || len(c.Params) != len(o.Params) {
		return false
	}
	for i := range c.Params {
		if !c.Params[i].Equals(o.Params[i]) {
			return false
		}
	}
	return (c.Return == nil) == (o.Return == nil) &&
		(c.Return == nil || c.Return.Equals(o.Return))
}

// AgentType is a first-class agent: a concurrent entity addressed by a
// handle and communicating exclusively via message passing.
type AgentType struct {
	Name     string
	MsgTypes map[string]*FnType
}

func (a *AgentType) Kind() Kind       { return KindAgent }
func (a *AgentType) IsLinear() bool   { return false }
func (a *AgentType) IsCopyable() bool { return true } // agent handles are copyable
func (a *AgentType) String() string   { return fmt.Sprintf("agent %s", a.Name) }
func (a *AgentType) Equals(other Type) bool {
	o, ok := other.(*AgentType)
	return ok && a.Name == o.Name
}

// ResourceType is the linear resource type. A resource value cannot be
// duplicated (no implicit copy) or silently discarded (no implicit drop);
// consumption is tracked by the linear checker independently of codegen.
type ResourceType struct {
	Name   string
	Fields []Field
}

func (r *ResourceType) Kind() Kind       { return KindResource }
func (r *ResourceType) IsLinear() bool   { return true }
func (r *ResourceType) IsCopyable() bool { return false }
func (r *ResourceType) String() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("resource %s { %s }", r.Name, strings.Join(parts, ", "))
}
func (r *ResourceType) Equals(other Type) bool {
	o, ok := other.(*ResourceType)
	if !ok || r.Name != o.Name || len(r.Fields) != len(o.Fields) {
		return false
	}
	for i := range r.Fields {
		if r.Fields[i].Name != o.Fields[i].Name || !r.Fields[i].Type.Equals(o.Fields[i].Type) {
			return false
		}
	}
	return true
}

// GeneratorType is the handle type produced by calling a `generator fn`:
// driving it yields a sequence of Yielded values before it completes.
type GeneratorType struct{ Yielded Type }

func (g *GeneratorType) Kind() Kind       { return KindGenerator }
func (g *GeneratorType) IsLinear() bool   { return false }
func (g *GeneratorType) IsCopyable() bool { return true }
func (g *GeneratorType) String() string   { return fmt.Sprintf("generator<%s>", g.Yielded) }
func (g *GeneratorType) Equals(other Type) bool {
	o, ok := other.(*GeneratorType)
	return ok && g.Yielded.Equals(o.Yielded)
}

// StreamType is the handle type produced by calling a `stream fn`: like
// GeneratorType but the resumer never supplies a value back in.
type StreamType struct{ Item Type }

func (s *StreamType) Kind() Kind       { return KindStream }
func (s *StreamType) IsLinear() bool   { return false }
func (s *StreamType) IsCopyable() bool { return true }
func (s *StreamType) String() string   { return fmt.Sprintf("stream<%s>", s.Item) }
func (s *StreamType) Equals(other Type) bool {
	o, ok := other.(*StreamType)
	return ok && s.Item.Equals(o.Item)
}

// FutureType is the handle type produced by calling an `async fn`: awaiting
// it yields its Result.
type FutureType struct{ Result Type }

func (f *FutureType) Kind() Kind       { return KindFuture }
func (f *FutureType) IsLinear() bool   { return false }
func (f *FutureType) IsCopyable() bool { return true }
func (f *FutureType) String() string   { return fmt.Sprintf("future<%s>", f.Result) }
func (f *FutureType) Equals(other Type) bool {
	o, ok := other.(*FutureType)
	return ok && f.Result.Equals(o.Result)
}
