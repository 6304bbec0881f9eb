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

// Package item implements compact, comparable identifier paths: ordered
// sequences of {Crate, Str, Id} components serialized into a single byte
// buffer so that an Item is trivially hashable, comparable with bytes.Equal,
// and iterable in both directions without re-parsing the whole path.
package item

import (
	"encoding/binary"
	"errors"
	"strings"

	"github.com/probelang/probe-lang/internal/hash"
)

// ErrCorruptItem is returned when decoding encounters a byte sequence that
// does not correspond to a valid component. This is the only failure mode
// for item decoding — hashing itself never fails.
var ErrCorruptItem = errors.New("item: corrupt item path")

// ErrComponentTooLarge is returned when a Str/Crate component exceeds the
// 16-bit length the encoding reserves for its payload.
var ErrComponentTooLarge = errors.New("item: component exceeds 65535 bytes")

// Kind distinguishes the three component forms an Item may contain.
type Kind uint8

const (
	KindCrate Kind = iota
	KindStr
	KindID
)

// Component is one segment of an Item path. Anonymous scopes use KindID;
// named segments use KindStr; the crate root uses KindCrate.
type Component struct {
	Kind Kind
	Str  string
	ID   uint32
}

func (c Component) payload() []byte {
	if c.Kind == KindID {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], c.ID)
		return b[:]
	}
	return []byte(c.Str)
}

// Crate constructs a crate-root component.
func Crate(name string) Component { return Component{Kind: KindCrate, Str: name} }

// Str constructs a named component.
func Str(name string) Component { return Component{Kind: KindStr, Str: name} }

// ID constructs an anonymous-scope component.
func ID(id uint32) Component { return Component{Kind: KindID, ID: id} }

// Item is an ordered, serialized sequence of Components:
// [tag:1][len:2][payload...][len:2][tag:1] per component, so that reverse
// iteration need only read the trailing 3 bytes to find the start of the
// previous component.
type Item struct {
	buf []byte
}

// Empty returns the item with no components (the root anonymous scope).
func Empty() Item { return Item{} }

// New builds an Item from an ordered list of components.
func New(components ...Component) (Item, error) {
	it := Item{}
	for _, c := range components {
		if err := it.Push(c); err != nil {
			return Item{}, err
		}
	}
	return it, nil
}

// Push appends a component to the end of the path.
func (it *Item) Push(c Component) error {
	payload := c.payload()
	if len(payload) > 0xFFFF {
		return ErrComponentTooLarge
	}
	ln := uint16(len(payload))
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], ln)

	it.buf = append(it.buf, byte(c.Kind))
	it.buf = append(it.buf, lenBuf[:]...)
	it.buf = append(it.buf, payload...)
	it.buf = append(it.buf, lenBuf[:]...)
	it.buf = append(it.buf, byte(c.Kind))
	return nil
}

// Bytes returns the raw serialized buffer backing the item. The buffer is
// shared; callers must not mutate it.
func (it Item) Bytes() []byte { return it.buf }

// Equal reports whether two items are byte-for-byte identical.
func (it Item) Equal(other Item) bool {
	return string(it.buf) == string(other.buf)
}

// Hash derives the item's Hash by folding its serialized bytes.
func (it Item) Hash() hash.Hash {
	return hash.SaltItem ^ hash.Bytes(it.buf)
}

func decodeAt(buf []byte, pos int) (Component, int, error) {
	if pos+3 > len(buf) {
		return Component{}, 0, ErrCorruptItem
	}
	kind := Kind(buf[pos])
	ln := int(binary.BigEndian.Uint16(buf[pos+1 : pos+3]))
	start := pos + 3
	end := start + ln
	if end+3 > len(buf) {
		return Component{}, 0, ErrCorruptItem
	}
	payload := buf[start:end]
	footerLen := int(binary.BigEndian.Uint16(buf[end : end+2]))
	footerKind := Kind(buf[end+2])
	if footerLen != ln || footerKind != kind {
		return Component{}, 0, ErrCorruptItem
	}
	total := 3 + ln + 3
	var c Component
	switch kind {
	case KindID:
		if ln != 4 {
			return Component{}, 0, ErrCorruptItem
		}
		c = Component{Kind: KindID, ID: binary.BigEndian.Uint32(payload)}
	case KindStr, KindCrate:
		c = Component{Kind: kind, Str: string(payload)}
	default:
		return Component{}, 0, ErrCorruptItem
	}
	return c, total, nil
}

// Components decodes the full path forward, failing with ErrCorruptItem at
// the first malformed component.
func (it Item) Components() ([]Component, error) {
	var out []Component
	pos := 0
	for pos < len(it.buf) {
		c, adv, err := decodeAt(it.buf, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		pos += adv
	}
	return out, nil
}

// Last decodes only the final component, reading backward from the end of
// the buffer in O(1) relative to the component's own size.
func (it Item) Last() (Component, bool, error) {
	if len(it.buf) == 0 {
		return Component{}, false, nil
	}
	n := len(it.buf)
	if n < 3 {
		return Component{}, false, ErrCorruptItem
	}
	footerKind := Kind(it.buf[n-1])
	footerLen := int(binary.BigEndian.Uint16(it.buf[n-3 : n-1]))
	start := n - 3 - footerLen
	if start < 0 {
		return Component{}, false, ErrCorruptItem
	}
	c, _, err := decodeAt(it.buf, start)
	if err != nil {
		return Component{}, false, err
	}
	if c.Kind != footerKind {
		return Component{}, false, ErrCorruptItem
	}
	return c, true, nil
}

// Iter walks an Item's components in either direction without allocating the
// full slice Components returns.
type Iter struct {
	buf []byte
	pos int // forward cursor
	end int // backward cursor
}

// NewIter returns an iterator positioned before the first component.
func (it Item) NewIter() *Iter {
	return &Iter{buf: it.buf, pos: 0, end: len(it.buf)}
}

// Next decodes the next component walking forward.
func (i *Iter) Next() (Component, bool, error) {
	if i.pos >= i.end {
		return Component{}, false, nil
	}
	c, adv, err := decodeAt(i.buf, i.pos)
	if err != nil {
		return Component{}, false, err
	}
	i.pos += adv
	return c, true, nil
}

// Prev decodes the previous component walking backward.
func (i *Iter) Prev() (Component, bool, error) {
	if i.end <= i.pos {
		return Component{}, false, nil
	}
	n := i.end
	if n < 3 {
		return Component{}, false, ErrCorruptItem
	}
	footerLen := int(binary.BigEndian.Uint16(i.buf[n-3 : n-1]))
	start := n - 3 - footerLen
	if start < i.pos {
		return Component{}, false, ErrCorruptItem
	}
	c, _, err := decodeAt(i.buf, start)
	if err != nil {
		return Component{}, false, err
	}
	i.end = start
	return c, true, nil
}

// String renders a "::"-joined human-readable path, mainly for diagnostics.
func (it Item) String() string {
	comps, err := it.Components()
	if err != nil {
		return "<corrupt item>"
	}
	parts := make([]string, 0, len(comps))
	for _, c := range comps {
		switch c.Kind {
		case KindID:
			parts = append(parts, "$"+itoa(c.ID))
		default:
			parts = append(parts, c.Str)
		}
	}
	return strings.Join(parts, "::")
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[pos:])
}
