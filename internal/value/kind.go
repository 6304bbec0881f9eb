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

// Package value implements Value, the polymorphic runtime value every VM
// register, argument, and return slot holds: a tagged union with a small
// inline tier (copied by value) and a shared tier (held behind a
// reference-counted internal/cell.Cell so aliasing and mutation across
// registers stay safe).
package value

import "github.com/probelang/probe-lang/internal/hash"

// Kind discriminates a Value's tag. The first block is the inline tier
// (copied directly, no cell); the second is the shared tier (always behind a
// *cell.Cell).
type Kind uint8

const (
	// ---- Inline tier ----------------------------------------------------

	KindUnit Kind = iota
	KindBool
	KindByte
	KindChar
	KindInteger
	KindFloat
	KindTypeHash
	KindProtocol

	// ---- Shared tier ------------------------------------------------------

	KindString
	KindBytes
	KindVec
	KindTuple
	KindObject
	KindRange
	KindFuture
	KindGenerator
	KindStream
	KindFunction
	KindEmptyStruct
	KindTupleStruct
	KindStruct
	KindAny

	kindCount
)

var kindNames = [kindCount]string{
	KindUnit:        "unit",
	KindBool:        "bool",
	KindByte:        "byte",
	KindChar:        "char",
	KindInteger:     "integer",
	KindFloat:       "float",
	KindTypeHash:    "type",
	KindProtocol:    "protocol",
	KindString:      "string",
	KindBytes:       "bytes",
	KindVec:         "vec",
	KindTuple:       "tuple",
	KindObject:      "object",
	KindRange:       "range",
	KindFuture:      "future",
	KindGenerator:   "generator",
	KindStream:      "stream",
	KindFunction:    "function",
	KindEmptyStruct: "empty-struct",
	KindTupleStruct: "tuple-struct",
	KindStruct:      "struct",
	KindAny:         "any",
}

// String returns the kind's diagnostic name, e.g. for DEBUG_FMT fallbacks
// and error messages.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown-kind"
}

// IsInline reports whether values of this kind are copied directly rather
// than held behind a shared cell.
func (k Kind) IsInline() bool { return k <= KindProtocol }

// typeHash is the well-known type hash for every built-in kind, derived the
// same way a host module would derive a registered type's hash: salted by
// item, from the kind's canonical name. Structs/tuple-structs/any carry
// their own RTTI-derived type hash instead of this table entry.
var builtinTypeHashes = [kindCount]hash.Hash{}

func init() {
	for k := Kind(0); k < kindCount; k++ {
		if kindNames[k] == "" {
			continue
		}
		builtinTypeHashes[k] = hash.SaltItem ^ hash.String("builtin::"+kindNames[k])
	}
}

// BuiltinTypeHash returns the canonical type hash for a built-in kind.
func BuiltinTypeHash(k Kind) hash.Hash { return builtinTypeHashes[k] }
