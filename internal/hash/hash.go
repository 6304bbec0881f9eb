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

// Package hash implements the deterministic 64-bit identifier scheme shared
// by items, types, protocols, and associated functions across the probe-lang
// runtime. The same algorithm is used everywhere: a stream of typed writes
// folded through xxhash, combined with XOR-mixed per-kind salts so that
// composite hashes (associated function, field function, generics) are
// cheap, stable across runs, and collision-resistant in practice.
package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Hash is a 64-bit identifier. Two equal Hash values are assumed (but not
// guaranteed in the cryptographic sense) to originate from equal inputs.
type Hash uint64

// Salts are XOR-mixed into composite hash operations so that, for example,
// an associated function and a field function never collide merely because
// they combine the same type hash and name hash.
const (
	SaltItem               Hash = 0x9E3779B97F4A7C15
	SaltAssociatedFunction Hash = 0xC2B2AE3D27D4EB4F
	SaltFieldFunction      Hash = 0x165667B19E3779F9
	SaltIndexFunction      Hash = 0x27D4EB2F165667C5
	SaltObjectKeys         Hash = 0x85EBCA6B9E3779B1
	SaltTypeParameters     Hash = 0xFF51AFD7ED558CCD
	SaltFunctionParameters Hash = 0xC4CEB9FE1A85EC53
	SaltProtocol           Hash = 0x94D049BB133111EB
)

// Hasher accumulates typed writes into a single deterministic Hash. The zero
// value is not usable; construct with New.
type Hasher struct {
	digest *xxhash.Digest
}

// New returns a fresh Hasher.
func New() *Hasher {
	return &Hasher{digest: xxhash.New()}
}

// WriteBytes folds a length-prefixed byte slice into the hash so that
// "ab"+"c" and "a"+"bc" never collide.
func (h *Hasher) WriteBytes(b []byte) *Hasher {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(b)))
	h.digest.Write(lenBuf[:])
	h.digest.Write(b)
	return h
}

// WriteString folds a string into the hash.
func (h *Hasher) WriteString(s string) *Hasher {
	return h.WriteBytes([]byte(s))
}

// WriteUint64 folds a fixed-width integer into the hash.
func (h *Hasher) WriteUint64(v uint64) *Hasher {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.digest.Write(buf[:])
	return h
}

// WriteKind folds a single discriminator byte, used to distinguish item
// component kinds, protocol kinds, etc. before their payload.
func (h *Hasher) WriteKind(k byte) *Hasher {
	h.digest.Write([]byte{k})
	return h
}

// Sum returns the accumulated Hash. The Hasher may continue to be used
// afterwards; Sum does not reset the digest.
func (h *Hasher) Sum() Hash {
	return Hash(h.digest.Sum64())
}

// Bytes hashes a single byte slice in one shot.
func Bytes(data []byte) Hash {
	return Hash(xxhash.Sum64(data))
}

// String hashes a single string in one shot.
func String(s string) Hash {
	return Bytes([]byte(s))
}

// AssociatedFunction derives the hash of a function keyed by (type, name)
// rather than a global path: associated_function(type, name) = SALT ^ type ^ name.
func AssociatedFunction(typeHash, nameHash Hash) Hash {
	return SaltAssociatedFunction ^ typeHash ^ nameHash
}

// FieldFunction derives the hash of a protocol implementation for a specific
// named field: field_function(protocol, type, name) =
// associated_function(type ^ protocol, name).
func FieldFunction(protocol, typeHash, nameHash Hash) Hash {
	return AssociatedFunction(typeHash^protocol, nameHash)
}

// IndexFunction derives the hash of a protocol implementation keyed by
// positional index rather than name (tuple fields, indexing).
func IndexFunction(protocol, typeHash Hash, index uint32) Hash {
	h := New()
	h.WriteUint64(uint64(protocol))
	h.WriteUint64(uint64(typeHash))
	h.WriteUint64(uint64(index))
	return SaltIndexFunction ^ h.Sum()
}

// WithGenerics folds generic-parameter hashes into a base hash. It is
// associative and commutative (XOR), matching the documented property that
// with_generics(base, a^b) == with_generics(with_generics(base, a), b).
func WithGenerics(base Hash, generics ...Hash) Hash {
	out := base
	for _, g := range generics {
		out ^= g
	}
	return out
}

// WithParameters folds function-parameter type hashes into a base function
// hash, used to distinguish overloads by argument shape.
func WithParameters(base Hash, params ...Hash) Hash {
	out := base ^ SaltFunctionParameters
	for _, p := range params {
		out ^= p
	}
	return out
}

// ObjectKeys derives the hash identifying a specific ordered set of object
// field names, used to key the static object-key-set table in a Unit.
func ObjectKeys(keys []string) Hash {
	h := New()
	h.WriteKind(byte(len(keys)))
	for _, k := range keys {
		h.WriteString(k)
	}
	return SaltObjectKeys ^ h.Sum()
}
