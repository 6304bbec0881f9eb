// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package cell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedBorrowsAreCompatible(t *testing.T) {
	c := New(42)
	g1, err := c.BorrowRef()
	require.NoError(t, err)
	g2, err := c.BorrowRef()
	require.NoError(t, err)
	assert.Equal(t, 42, g1.Get())
	assert.Equal(t, 42, g2.Get())
	g1.Release()
	g2.Release()

	// Once both shared guards drop, an exclusive borrow succeeds again.
	mg, err := c.BorrowMut()
	require.NoError(t, err)
	mg.Release()
}

func TestExclusiveBorrowExcludesShared(t *testing.T) {
	c := New("hello")
	mg, err := c.BorrowMut()
	require.NoError(t, err)

	_, err = c.BorrowRef()
	var accessErr *AccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, AlreadyBorrowedExclusive, accessErr.Kind)

	mg.Release()
	g, err := c.BorrowRef()
	require.NoError(t, err)
	g.Release()
}

func TestTakeThenAccessFailsAsMoved(t *testing.T) {
	c := New([]int{1, 2, 3})
	v, err := c.Take()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, v)

	_, err = c.BorrowRef()
	assert.True(t, errors.Is(err, ErrMoved))
	_, err = c.BorrowMut()
	assert.True(t, errors.Is(err, ErrMoved))
	_, err = c.Take()
	assert.True(t, errors.Is(err, ErrMoved))
}

func TestTakeRequiresNoLiveBorrow(t *testing.T) {
	c := New(7)
	g, err := c.BorrowRef()
	require.NoError(t, err)
	defer g.Release()

	_, err = c.Take()
	var accessErr *AccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, AlreadyBorrowedShared, accessErr.Kind)
}

func TestRefcountConservation(t *testing.T) {
	c := New(100)
	clone := c.Retain()
	assert.Same(t, c, clone)
	assert.Equal(t, int64(2), c.Strong())

	require.NoError(t, clone.Release())
	require.NoError(t, c.Release())
	assert.Equal(t, int64(0), c.Strong())
}

func TestGuardReleaseIsIdempotent(t *testing.T) {
	c := New(1)
	g, err := c.BorrowRef()
	require.NoError(t, err)
	g.Release()
	g.Release() // must not double-decrement

	mg, err := c.BorrowMut()
	require.NoError(t, err)
	mg.Release()
}
