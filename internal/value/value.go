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

package value

import (
	"errors"
	"math"

	"github.com/probelang/probe-lang/internal/cell"
	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/protocol"
)

// ErrNotInline is returned by an inline-tier accessor called on a
// shared-tier Value, and vice versa.
var ErrNotInline = errors.New("value: not an inline-tier value of the requested kind")

// ErrWrongKind is returned by a shared-tier accessor called against a
// Value of a different Kind.
var ErrWrongKind = errors.New("value: wrong kind for requested accessor")

// Value is the tagged union every VM register, argument, and return slot
// holds. Inline-tier kinds (Unit..Protocol) are copied directly in
// bits/typeHash; shared-tier kinds hold a *cell.Cell[any] so aliasing across
// registers is explicit and borrow-checked at runtime.
type Value struct {
	kind     Kind
	bits     uint64 // bool/byte/char/integer payload, or float via math.Float64bits
	typeHash hash.Hash
	shared   *cell.Cell[any]
}

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// ---- Inline constructors -------------------------------------------------

// Unit returns the single unit value (the language's "()" / void).
func Unit() Value { return Value{kind: KindUnit} }

// Bool constructs a boolean value.
func Bool(b bool) Value {
	bits := uint64(0)
	if b {
		bits = 1
	}
	return Value{kind: KindBool, bits: bits}
}

// Byte constructs a byte (u8) value.
func Byte(b byte) Value { return Value{kind: KindByte, bits: uint64(b)} }

// Char constructs a character (rune) value.
func Char(r rune) Value { return Value{kind: KindChar, bits: uint64(uint32(r))} }

// Integer constructs a signed 64-bit integer value.
func Integer(i int64) Value { return Value{kind: KindInteger, bits: uint64(i)} }

// Float constructs a 64-bit floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, bits: math.Float64bits(f)} }

// TypeHashValue constructs a value carrying a type reference, used for
// reflective operations and MatchType comparisons.
func TypeHashValue(h hash.Hash) Value { return Value{kind: KindTypeHash, typeHash: h} }

// ProtocolValue constructs a value wrapping a first-class Protocol
// reference (protocols may be pushed onto the stack and passed like any
// other value).
func ProtocolValue(p protocol.Protocol) Value {
	return Value{kind: KindProtocol, typeHash: p.Hash}
}

// ---- Inline accessors -----------------------------------------------------

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, ErrNotInline
	}
	return v.bits != 0, nil
}

// AsByte returns the byte payload.
func (v Value) AsByte() (byte, error) {
	if v.kind != KindByte {
		return 0, ErrNotInline
	}
	return byte(v.bits), nil
}

// AsChar returns the rune payload.
func (v Value) AsChar() (rune, error) {
	if v.kind != KindChar {
		return 0, ErrNotInline
	}
	return rune(uint32(v.bits)), nil
}

// AsInteger returns the int64 payload.
func (v Value) AsInteger() (int64, error) {
	if v.kind != KindInteger {
		return 0, ErrNotInline
	}
	return int64(v.bits), nil
}

// AsFloat returns the float64 payload.
func (v Value) AsFloat() (float64, error) {
	if v.kind != KindFloat {
		return 0, ErrNotInline
	}
	return math.Float64frombits(v.bits), nil
}

// AsTypeHash returns the referenced type hash.
func (v Value) AsTypeHash() (hash.Hash, error) {
	if v.kind != KindTypeHash {
		return 0, ErrNotInline
	}
	return v.typeHash, nil
}

// AsProtocolHash returns the wrapped protocol's hash.
func (v Value) AsProtocolHash() (hash.Hash, error) {
	if v.kind != KindProtocol {
		return 0, ErrNotInline
	}
	return v.typeHash, nil
}

// ---- Shared constructors --------------------------------------------------

func shared(k Kind, payload interface{}) Value {
	return Value{kind: k, shared: cell.New(payload)}
}

// String constructs a shared string value.
func String(s string) Value { return shared(KindString, s) }

// Bytes constructs a shared byte-slice value.
func Bytes(b []byte) Value { return shared(KindBytes, append([]byte(nil), b...)) }

// VecOf constructs a shared vector value.
func VecOf(elems []Value) Value { return shared(KindVec, &Vec{Elems: elems}) }

// TupleOf constructs a shared tuple value.
func TupleOf(elems []Value) Value { return shared(KindTuple, &Tuple{Elems: elems}) }

// ObjectOf constructs a shared object value.
func ObjectOf(o *Object) Value { return shared(KindObject, o) }

// RangeOf constructs a shared range value.
func RangeOf(r Range) Value { return shared(KindRange, &r) }

// FunctionOf constructs a shared function value.
func FunctionOf(f Function) Value { return shared(KindFunction, &f) }

// GeneratorOf wraps a Coroutine as a shared generator value.
func GeneratorOf(c Coroutine) Value { return shared(KindGenerator, c) }

// StreamOf wraps a Coroutine as a shared stream value.
func StreamOf(c Coroutine) Value { return shared(KindStream, c) }

// FutureOf wraps a Coroutine as a shared future value.
func FutureOf(c Coroutine) Value { return shared(KindFuture, c) }

// EmptyStructOf constructs a shared unit-like struct value carrying only
// RTTI (no fields).
func EmptyStructOf(rtti *RTTI) Value {
	return Value{kind: KindEmptyStruct, typeHash: rtti.TypeHash, shared: cell.New(&StructData{RTTI: rtti})}
}

// TupleStructOf constructs a shared positional-field struct value.
func TupleStructOf(rtti *RTTI, fields []Value) Value {
	return Value{kind: KindTupleStruct, typeHash: rtti.TypeHash, shared: cell.New(&StructData{RTTI: rtti, Fields: fields})}
}

// StructOf constructs a shared named-field struct value.
func StructOf(rtti *RTTI, fields []Value) Value {
	return Value{kind: KindStruct, typeHash: rtti.TypeHash, shared: cell.New(&StructData{RTTI: rtti, Fields: fields})}
}

// AnyOf wraps an opaque host object as a shared "any" value.
func AnyOf(a *Any) Value {
	return Value{kind: KindAny, typeHash: a.TypeHash, shared: cell.New(a)}
}

// StructData is the payload behind KindEmptyStruct/KindTupleStruct/
// KindStruct shared values.
type StructData struct {
	RTTI   *RTTI
	Fields []Value
}

// ---- Shared accessors -------------------------------------------------------

// sharedPayload peeks the cell's payload without taking a borrow guard; the
// caller is a protocol/VM code path that already holds whatever borrow
// discipline the operation requires (see internal/cell's Peek doc comment).
func (v Value) sharedPayload(want Kind) (interface{}, error) {
	if v.kind != want {
		return nil, ErrWrongKind
	}
	if v.shared == nil {
		return nil, ErrWrongKind
	}
	return v.shared.Peek()
}

// Cell exposes the underlying shared cell for borrow-discipline operations
// (BorrowRef/BorrowMut/Take) the VM performs directly, e.g. for IndexSet on
// a vector. Returns nil for inline-tier values.
func (v Value) Cell() *cell.Cell[any] { return v.shared }

// AsString returns the shared string payload.
func (v Value) AsString() (string, error) {
	p, err := v.sharedPayload(KindString)
	if err != nil {
		return "", err
	}
	return p.(string), nil
}

// AsBytes returns the shared byte-slice payload.
func (v Value) AsBytes() ([]byte, error) {
	p, err := v.sharedPayload(KindBytes)
	if err != nil {
		return nil, err
	}
	return p.([]byte), nil
}

// AsVec returns the shared vector payload.
func (v Value) AsVec() (*Vec, error) {
	p, err := v.sharedPayload(KindVec)
	if err != nil {
		return nil, err
	}
	return p.(*Vec), nil
}

// AsTuple returns the shared tuple payload.
func (v Value) AsTuple() (*Tuple, error) {
	p, err := v.sharedPayload(KindTuple)
	if err != nil {
		return nil, err
	}
	return p.(*Tuple), nil
}

// AsObject returns the shared object payload.
func (v Value) AsObject() (*Object, error) {
	p, err := v.sharedPayload(KindObject)
	if err != nil {
		return nil, err
	}
	return p.(*Object), nil
}

// AsRange returns the shared range payload.
func (v Value) AsRange() (*Range, error) {
	p, err := v.sharedPayload(KindRange)
	if err != nil {
		return nil, err
	}
	return p.(*Range), nil
}

// AsFunction returns the shared function payload.
func (v Value) AsFunction() (*Function, error) {
	p, err := v.sharedPayload(KindFunction)
	if err != nil {
		return nil, err
	}
	return p.(*Function), nil
}

// AsCoroutine returns the shared Coroutine payload backing a generator,
// stream, or future value.
func (v Value) AsCoroutine() (Coroutine, error) {
	if v.kind != KindGenerator && v.kind != KindStream && v.kind != KindFuture {
		return nil, ErrWrongKind
	}
	if v.shared == nil {
		return nil, ErrWrongKind
	}
	p, err := v.shared.Peek()
	if err != nil {
		return nil, err
	}
	return p.(Coroutine), nil
}

// AsStruct returns the shared struct payload for empty/tuple/named structs.
func (v Value) AsStruct() (*StructData, error) {
	if v.kind != KindEmptyStruct && v.kind != KindTupleStruct && v.kind != KindStruct {
		return nil, ErrWrongKind
	}
	if v.shared == nil {
		return nil, ErrWrongKind
	}
	p, err := v.shared.Peek()
	if err != nil {
		return nil, err
	}
	return p.(*StructData), nil
}

// AsAny returns the shared opaque host-object payload.
func (v Value) AsAny() (*Any, error) {
	p, err := v.sharedPayload(KindAny)
	if err != nil {
		return nil, err
	}
	return p.(*Any), nil
}

// ---- Type info --------------------------------------------------------------

// TypeHash returns the value's type identity: the built-in table entry for
// primitive/container kinds, or the RTTI/Any type hash for structs and host
// objects.
func (v Value) TypeHash() hash.Hash {
	switch v.kind {
	case KindEmptyStruct, KindTupleStruct, KindStruct, KindAny:
		return v.typeHash
	case KindTypeHash, KindProtocol:
		return v.typeHash
	default:
		return BuiltinTypeHash(v.kind)
	}
}

// TypeInfo is a diagnostic-facing description of a value's type, used for
// error messages and DEBUG_FMT fallbacks.
type TypeInfo struct {
	Hash hash.Hash
	Name string
}

// TypeInfo returns diagnostic type information for the value.
func (v Value) TypeInfo() TypeInfo {
	if sd, err := v.AsStruct(); err == nil && sd.RTTI != nil {
		return TypeInfo{Hash: sd.RTTI.TypeHash, Name: sd.RTTI.Path.String()}
	}
	if a, err := v.AsAny(); err == nil {
		return TypeInfo{Hash: a.TypeHash, Name: "any"}
	}
	return TypeInfo{Hash: v.TypeHash(), Name: v.kind.String()}
}

// Retain increments the strong count of a shared value's cell, modeling the
// language's reference-counted clone-on-alias semantics. It is a no-op
// (returns v unchanged) for inline-tier values.
func (v Value) Retain() Value {
	if v.shared != nil {
		v.shared.Retain()
	}
	return v
}

// Release decrements the strong count of a shared value's cell. A no-op for
// inline-tier values.
func (v Value) Release() error {
	if v.shared == nil {
		return nil
	}
	return v.shared.Release()
}
