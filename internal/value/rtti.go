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
	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/item"
)

// RTTI is attached to every typed struct and tuple-struct value: enough to
// construct, pattern-match, and resolve field access without consulting a
// Context. Anonymous tuples/objects/vecs carry no RTTI.
type RTTI struct {
	TypeHash      hash.Hash
	Path          item.Item
	FieldIndex    map[string]int // named-field lookup; nil for tuple structs
	FieldCount    int
}

// FieldIndexOf resolves a named field to its slot in a StructData.Fields
// slice.
func (r *RTTI) FieldIndexOf(name string) (int, bool) {
	if r == nil || r.FieldIndex == nil {
		return 0, false
	}
	idx, ok := r.FieldIndex[name]
	return idx, ok
}

// NewRTTI builds an RTTI for a named-field struct.
func NewRTTI(typeHash hash.Hash, path item.Item, fieldNames []string) *RTTI {
	idx := make(map[string]int, len(fieldNames))
	for i, n := range fieldNames {
		idx[n] = i
	}
	return &RTTI{TypeHash: typeHash, Path: path, FieldIndex: idx, FieldCount: len(fieldNames)}
}

// NewTupleRTTI builds an RTTI for a tuple struct (positional fields only).
func NewTupleRTTI(typeHash hash.Hash, path item.Item, fieldCount int) *RTTI {
	return &RTTI{TypeHash: typeHash, Path: path, FieldCount: fieldCount}
}
