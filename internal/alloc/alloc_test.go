// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveWithinBudgetSucceeds(t *testing.T) {
	b := NewBudget(100)
	require.NoError(t, b.Reserve(40))
	require.NoError(t, b.Reserve(60))
	assert.Equal(t, int64(100), b.Used())
}

func TestReserveOverBudgetFails(t *testing.T) {
	b := NewBudget(100)
	require.NoError(t, b.Reserve(90))
	err := b.Reserve(20)
	assert.ErrorIs(t, err, ErrOOM)
	assert.Equal(t, int64(90), b.Used(), "failed reservation must not be counted")
}

func TestUnboundedNeverFails(t *testing.T) {
	b := Unbounded()
	require.NoError(t, b.Reserve(1<<40))
}

func TestReleaseGivesBackBudget(t *testing.T) {
	b := NewBudget(100)
	require.NoError(t, b.Reserve(80))
	b.Release(50)
	assert.Equal(t, int64(30), b.Used())
	require.NoError(t, b.Reserve(70))
}

func TestTrySkipsFnWhenOverBudget(t *testing.T) {
	b := NewBudget(10)
	called := false
	_, err := Try(b, 20, func() (int, error) {
		called = true
		return 42, nil
	})
	assert.ErrorIs(t, err, ErrOOM)
	assert.False(t, called, "fn must not run when the reservation itself fails")
}

func TestTryRunsFnWhenWithinBudget(t *testing.T) {
	b := NewBudget(10)
	v, err := Try(b, 5, func() (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestNilBudgetAlwaysRunsFn(t *testing.T) {
	v, err := Try[int](nil, 1<<30, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
