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

// Package unitfmt persists and loads internal/unit.Unit values: a 4-byte
// magic, a version, and a gob-encoded body. Every field of Unit is already
// an exported plain struct/slice/map (no interfaces), so gob round-trips it
// without custom codecs.
package unitfmt

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/probelang/probe-lang/internal/unit"
)

// magic identifies a persisted unit file; chosen to be unlikely to collide
// with other formats a host might feed this reader by mistake.
var magic = [4]byte{'P', 'R', 'U', 'N'}

// Version is the current on-disk format version. Bump it whenever a
// non-backward-compatible change is made to unit.Unit's shape.
const Version uint16 = 1

// ErrBadMagic is returned when the leading 4 bytes do not match the
// expected magic, meaning the input is not a persisted unit at all.
var ErrBadMagic = errors.New("unitfmt: bad magic, not a unit file")

// ErrVersion is returned when the magic matches but the version does not,
// meaning the host should recompile from source rather than trying to load
// an incompatible persisted unit.
var ErrVersion = errors.New("unitfmt: unsupported unit format version")

// Encode writes magic, version, and the gob-encoded Unit to w.
func Encode(w io.Writer, u *unit.Unit) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	var versionBuf [2]byte
	binary.BigEndian.PutUint16(versionBuf[:], Version)
	if _, err := w.Write(versionBuf[:]); err != nil {
		return err
	}
	return gob.NewEncoder(w).Encode(u)
}

// Marshal is Encode into a fresh byte slice.
func Marshal(u *unit.Unit) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, u); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads and validates the magic/version header from r, then
// gob-decodes the Unit body.
func Decode(r io.Reader) (*unit.Unit, error) {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("unitfmt: reading magic: %w", err)
	}
	if gotMagic != magic {
		return nil, ErrBadMagic
	}
	var versionBuf [2]byte
	if _, err := io.ReadFull(r, versionBuf[:]); err != nil {
		return nil, fmt.Errorf("unitfmt: reading version: %w", err)
	}
	if got := binary.BigEndian.Uint16(versionBuf[:]); got != Version {
		return nil, fmt.Errorf("%w: file is v%d, reader supports v%d", ErrVersion, got, Version)
	}
	var u unit.Unit
	if err := gob.NewDecoder(r).Decode(&u); err != nil {
		return nil, fmt.Errorf("unitfmt: decoding body: %w", err)
	}
	return &u, nil
}

// Unmarshal is Decode over a byte slice.
func Unmarshal(data []byte) (*unit.Unit, error) {
	return Decode(bytes.NewReader(data))
}
