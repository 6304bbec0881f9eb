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

// Package protocol defines the well-known named hashes that types implement
// to participate in built-in operations: operator overloading, iteration,
// formatting, cloning, equality. A Protocol is itself a first-class runtime
// value (it may be pushed onto the stack and passed to a function), so this
// package only holds identity and documentation — dispatch lives in
// internal/runtime, which has access to a Context.
package protocol

import "github.com/probelang/probe-lang/internal/hash"

// Protocol names a well-known operation a type may implement.
type Protocol struct {
	Hash      hash.Hash
	Name      string
	Signature string
	Doc       string
}

func define(name, signature, doc string) Protocol {
	return Protocol{
		Hash:      hash.SaltProtocol ^ hash.String(name),
		Name:      name,
		Signature: signature,
		Doc:       doc,
	}
}

// The canonical protocol set: arithmetic, comparison, iteration, formatting,
// indexing, and clone. Go identifiers are CamelCase; the wire/hash Name
// keeps the SCREAMING_SNAKE_CASE spelling scripts and diagnostics see.
var (
	Add         = define("ADD", "fn add(self, other) -> Self", "Implements the `+` operator.")
	Sub         = define("SUB", "fn sub(self, other) -> Self", "Implements the `-` operator.")
	Mul         = define("MUL", "fn mul(self, other) -> Self", "Implements the `*` operator.")
	Div         = define("DIV", "fn div(self, other) -> Self", "Implements the `/` operator.")
	Rem         = define("REM", "fn rem(self, other) -> Self", "Implements the `%` operator.")
	Neg         = define("NEG", "fn neg(self) -> Self", "Implements unary `-`.")
	BitAnd      = define("BIT_AND", "fn bit_and(self, other) -> Self", "Implements the `&` operator.")
	BitOr       = define("BIT_OR", "fn bit_or(self, other) -> Self", "Implements the `|` operator.")
	BitXor      = define("BIT_XOR", "fn bit_xor(self, other) -> Self", "Implements the `^` operator.")
	Shl         = define("SHL", "fn shl(self, other) -> Self", "Implements the `<<` operator.")
	Shr         = define("SHR", "fn shr(self, other) -> Self", "Implements the `>>` operator.")
	Eq          = define("EQ", "fn eq(self, other) -> bool", "Strict equality.")
	PartialEq   = define("PARTIAL_EQ", "fn partial_eq(self, other) -> bool", "Partial equality (may be undefined for NaN-like values).")
	Cmp         = define("CMP", "fn cmp(self, other) -> Ordering", "Total ordering.")
	PartialCmp  = define("PARTIAL_CMP", "fn partial_cmp(self, other) -> Option<Ordering>", "Partial ordering.")
	IntoIter    = define("INTO_ITER", "fn into_iter(self) -> Iterator", "Converts a value into an iterator / generator.")
	Next        = define("NEXT", "fn next(self) -> Option<Value>", "Advances an iterator/generator one step.")
	DebugFmt    = define("DEBUG_FMT", "fn debug_fmt(self, f) -> fmt::Result", "Debug ({:?}) formatting.")
	DisplayFmt  = define("DISPLAY_FMT", "fn display_fmt(self, f) -> fmt::Result", "Display ({}) formatting.")
	Clone       = define("CLONE", "fn clone(self) -> Self", "Produces an independent deep copy.")
	IndexGet    = define("INDEX_GET", "fn index_get(self, index) -> Value", "Implements `self[index]` read access.")
	IndexSet    = define("INDEX_SET", "fn index_set(self, index, value)", "Implements `self[index] = value` write access.")
	Len         = define("LEN", "fn len(self) -> i64", "Reports a collection's length.")
	HashProto   = define("HASH", "fn hash(self) -> i64", "Custom hash contribution for a host type.")
)

// All lists every canonical protocol, ordered the way they are declared
// above, mainly useful for doc generation and the formatter's keyword table.
var All = []Protocol{
	Add, Sub, Mul, Div, Rem, Neg,
	BitAnd, BitOr, BitXor, Shl, Shr,
	Eq, PartialEq, Cmp, PartialCmp,
	IntoIter, Next,
	DebugFmt, DisplayFmt,
	Clone,
	IndexGet, IndexSet, Len, HashProto,
}
