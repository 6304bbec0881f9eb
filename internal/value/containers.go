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

// Vec is the payload behind a KindVec shared value: a growable sequence.
type Vec struct {
	Elems []Value
}

// Tuple is the payload behind a KindTuple shared value: a fixed-length,
// anonymous sequence (Box<[Value]> in the source model; a Go slice here,
// treated as immutable after construction by convention).
type Tuple struct {
	Elems []Value
}

// Object is the payload behind a KindObject shared value: an
// insertion-ordered string-keyed map, so iteration and DEBUG_FMT output are
// deterministic regardless of Go's randomized map order.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject builds an Object from parallel key/value slices, preserving
// their given order as the insertion order.
func NewObject(keys []string, values []Value) *Object {
	o := &Object{
		keys:   append([]string(nil), keys...),
		values: make(map[string]Value, len(keys)),
	}
	for i, k := range keys {
		o.values[k] = values[i]
	}
	return o
}

// Get looks up a field by name.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set inserts or overwrites a field; new keys are appended to the
// insertion-order slice.
func (o *Object) Set(key string, v Value) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Keys returns the object's keys in insertion order. Callers must not
// mutate the returned slice.
func (o *Object) Keys() []string { return o.keys }

// Len reports the number of fields.
func (o *Object) Len() int { return len(o.keys) }

// RangeKind distinguishes the four Rust-style range forms the language
// supports as range literals (`a..b`, `a..=b`, `a..`, `..b`) plus the full
// range `..`.
type RangeKind uint8

const (
	RangeExclusive RangeKind = iota // a..b
	RangeInclusive                  // a..=b
	RangeFrom                       // a..
	RangeTo                         // ..b
	RangeFull                       // ..
)

// Range is the payload behind a KindRange shared value. Start/End are nil
// when the corresponding bound is open (RangeFrom has no End, RangeTo has
// no Start, RangeFull has neither).
type Range struct {
	Kind  RangeKind
	Start *Value
	End   *Value
}
