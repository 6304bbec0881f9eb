// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package unitcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/unit"
)

func sampleUnit() *unit.Unit {
	b := unit.NewBuilder()
	slot := b.InternString("hi")
	b.Emit(unit.Instruction{Op: unit.OpLoadStaticStr, Imm: int64(slot)})
	b.RegisterFunction(hash.String("main"), unit.FunctionMeta{Name: "main"})
	return b.Build()
}

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPutThenGetRoundTrips(t *testing.T) {
	c := openTestCache(t)
	src := []byte("fn main() { 1 + 1 }")
	u := sampleUnit()

	require.NoError(t, c.Put(src, u))

	got, err := c.Get(src)
	require.NoError(t, err)
	assert.Equal(t, u.Instructions, got.Instructions)
	assert.Equal(t, u.StaticStrings, got.StaticStrings)
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	c := openTestCache(t)
	_, err := c.Get([]byte("never compiled"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHasReflectsPresence(t *testing.T) {
	c := openTestCache(t)
	src := []byte("fn main() {}")
	ok, err := c.Has(src)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(src, sampleUnit()))
	ok, err = c.Has(src)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteRemovesEntry(t *testing.T) {
	c := openTestCache(t)
	src := []byte("fn main() {}")
	require.NoError(t, c.Put(src, sampleUnit()))
	require.NoError(t, c.Delete(src))

	_, err := c.Get(src)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDifferentSourceDifferentKey(t *testing.T) {
	a := Key([]byte("a"))
	b := Key([]byte("b"))
	assert.NotEqual(t, a, b)
}
