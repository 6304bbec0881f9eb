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
	"github.com/probelang/probe-lang/internal/protocol"
)

// ErrNotComparable is returned when two inline values of different kinds
// are compared without a shared protocol to fall back to (e.g. integer vs
// string).
var ErrNotComparable = errors.New("value: values are not comparable")

// ErrNoCloneHandler is returned by Clone on an "any" value whose host type
// never registered a CLONE handler.
var ErrNoCloneHandler = errors.New("value: host type has no registered clone handler")

// ProtocolCaller resolves and invokes a protocol implementation for a
// target value. internal/runtime supplies the concrete implementation (an
// Isolated or In-frame protocol caller); this package only needs the
// delegation boundary, so it never imports internal/runtime.
type ProtocolCaller interface {
	Call(target Value, p protocol.Protocol, args []Value) (Value, error)
}

// ProtocolCall delegates to the protocol caller, matching the data model's
// `protocol_call(protocol, args) -> Value` operation.
func (v Value) ProtocolCall(caller ProtocolCaller, p protocol.Protocol, args []Value) (Value, error) {
	return caller.Call(v, p, args)
}

// Ordering is the result of a CMP/PARTIAL_CMP comparison.
type Ordering int8

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// Eq implements strict equality (the EQ protocol): direct comparison for
// inline kinds of the same Kind, dispatch otherwise.
func (v Value) Eq(caller ProtocolCaller, other Value) (bool, error) {
	if v.kind.IsInline() && other.kind.IsInline() {
		if v.kind != other.kind {
			return false, nil
		}
		switch v.kind {
		case KindUnit:
			return true, nil
		case KindFloat:
			return math.Float64frombits(v.bits) == math.Float64frombits(other.bits), nil
		case KindTypeHash, KindProtocol:
			return v.typeHash == other.typeHash, nil
		default:
			return v.bits == other.bits, nil
		}
	}
	if v.kind == KindString && other.kind == KindString {
		a, _ := v.AsString()
		b, _ := other.AsString()
		return a == b, nil
	}
	result, err := v.ProtocolCall(caller, protocol.Eq, []Value{other})
	if err != nil {
		return false, err
	}
	return result.AsBool()
}

// Cmp implements total ordering (the CMP protocol).
func (v Value) Cmp(caller ProtocolCaller, other Value) (Ordering, error) {
	if v.kind.IsInline() && other.kind.IsInline() && v.kind == other.kind {
		switch v.kind {
		case KindInteger:
			a, b := int64(v.bits), int64(other.bits)
			return compareOrdered(a, b), nil
		case KindByte:
			return compareOrdered(v.bits, other.bits), nil
		case KindChar:
			return compareOrdered(v.bits, other.bits), nil
		case KindFloat:
			a, b := math.Float64frombits(v.bits), math.Float64frombits(other.bits)
			return compareOrdered(a, b), nil
		case KindBool:
			return compareOrdered(v.bits, other.bits), nil
		}
	}
	if v.kind == KindString && other.kind == KindString {
		a, _ := v.AsString()
		b, _ := other.AsString()
		switch {
		case a < b:
			return Less, nil
		case a > b:
			return Greater, nil
		default:
			return Equal, nil
		}
	}
	if v.kind != other.kind {
		return Equal, ErrNotComparable
	}
	result, err := v.ProtocolCall(caller, protocol.Cmp, []Value{other})
	if err != nil {
		return Equal, err
	}
	i, err := result.AsInteger()
	if err != nil {
		return Equal, err
	}
	return Ordering(i), nil
}

func compareOrdered[T int64 | uint64 | float64](a, b T) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

// Clone produces an independent copy via the CLONE protocol. Inline values
// clone trivially (they are copy types). Containers deep-clone their
// elements; "any" values fall through to the host's registered clone
// handler, failing with ErrNoCloneHandler if none was registered.
func (v Value) Clone(caller ProtocolCaller) (Value, error) {
	switch v.kind {
	case KindVec:
		vec, err := v.AsVec()
		if err != nil {
			return Value{}, err
		}
		cloned := make([]Value, len(vec.Elems))
		for i, e := range vec.Elems {
			c, err := e.Clone(caller)
			if err != nil {
				return Value{}, err
			}
			cloned[i] = c
		}
		return VecOf(cloned), nil
	case KindTuple:
		tup, err := v.AsTuple()
		if err != nil {
			return Value{}, err
		}
		cloned := make([]Value, len(tup.Elems))
		for i, e := range tup.Elems {
			c, err := e.Clone(caller)
			if err != nil {
				return Value{}, err
			}
			cloned[i] = c
		}
		return TupleOf(cloned), nil
	case KindObject:
		obj, err := v.AsObject()
		if err != nil {
			return Value{}, err
		}
		keys := append([]string(nil), obj.Keys()...)
		vals := make([]Value, len(keys))
		for i, k := range keys {
			orig, _ := obj.Get(k)
			c, err := orig.Clone(caller)
			if err != nil {
				return Value{}, err
			}
			vals[i] = c
		}
		return ObjectOf(NewObject(keys, vals)), nil
	case KindString, KindBytes:
		return v, nil // immutable payload; sharing the cell is observationally a deep copy
	case KindAny:
		if caller == nil {
			return Value{}, ErrNoCloneHandler
		}
		result, err := v.ProtocolCall(caller, protocol.Clone, nil)
		if err != nil {
			return Value{}, ErrNoCloneHandler
		}
		return result, nil
	case KindEmptyStruct, KindTupleStruct, KindStruct:
		sd, err := v.AsStruct()
		if err != nil {
			return Value{}, err
		}
		fields := make([]Value, len(sd.Fields))
		for i, f := range sd.Fields {
			c, err := f.Clone(caller)
			if err != nil {
				return Value{}, err
			}
			fields[i] = c
		}
		return Value{kind: v.kind, typeHash: v.typeHash, shared: cell.New[any](&StructData{RTTI: sd.RTTI, Fields: fields})}, nil
	default:
		// Inline kinds and Function/Generator/Stream/Future/Range, which
		// clone by sharing the cell (aliasing is the documented semantics
		// for non-container shared kinds without a registered handler).
		return v.Retain(), nil
	}
}
