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

// Package unitcache persists compiled internal/unit.Unit values to a
// key-value store keyed by a hash of their source text, so cmd/probec can
// skip recompilation of unchanged scripts. It is an optional layer: a host
// that never opens a Cache simply always recompiles.
package unitcache

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/unitfmt"
)

// ErrNotFound is returned by Get when no unit is cached for the given key.
var ErrNotFound = errors.New("unitcache: no entry for key")

// Cache persists unitfmt-encoded Units in a goleveldb key-value store,
// keyed by internal/hash.Bytes(source). Matches go-probe's
// probedb/leveldb.Database shape (a thin wrapper embedding *leveldb.DB).
type Cache struct {
	db *leveldb.DB
}

// Open opens (or creates) an on-disk cache at path.
func Open(path string) (*Cache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("unitcache: opening %s: %w", path, err)
	}
	return &Cache{db: db}, nil
}

// OpenMem opens an in-memory cache, used by tests and short-lived embeds
// that want the Cache API without a filesystem footprint.
func OpenMem() (*Cache, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("unitcache: opening in-memory store: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying store's resources.
func (c *Cache) Close() error { return c.db.Close() }

// Key derives the lookup key for a given source text.
func Key(source []byte) []byte {
	h := hash.Bytes(source)
	return []byte(fmt.Sprintf("unit:%016x", uint64(h)))
}

// Get looks up a previously-cached Unit compiled from source, decoding it
// through unitfmt. Returns ErrNotFound if absent.
func (c *Cache) Get(source []byte) (*unit.Unit, error) {
	data, err := c.db.Get(Key(source), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return unitfmt.Unmarshal(data)
}

// Put stores u under the key derived from source, overwriting any existing
// entry for the same source.
func (c *Cache) Put(source []byte, u *unit.Unit) error {
	data, err := unitfmt.Marshal(u)
	if err != nil {
		return err
	}
	return c.db.Put(Key(source), data, nil)
}

// Has reports whether a compiled Unit is cached for source, without
// decoding it.
func (c *Cache) Has(source []byte) (bool, error) {
	return c.db.Has(Key(source), nil)
}

// Delete removes any cached entry for source.
func (c *Cache) Delete(source []byte) error {
	return c.db.Delete(Key(source), nil)
}
