// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vmerror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/unit"
)

func TestClassifyByKind(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{ErrAlreadyBorrowedExclusive, Access},
		{MissingFunction(hash.Hash(42)), Dispatch},
		{ErrBadArgumentCount, Type},
		{ErrDivideByZero, Arithmetic},
		{ErrGeneratorComplete, Coroutine},
		{ErrPatternMismatch, Pattern},
		{ErrBudgetExceeded, Resource},
		{ErrUserPanic, Panic},
	}
	for _, c := range cases {
		e := New(c.err, nil)
		assert.Equal(t, c.kind, e.Kind, c.err.Error())
	}
}

func TestUnwrapPreservesSentinelMatching(t *testing.T) {
	e := New(ErrDivideByZero, nil)
	assert.True(t, errors.Is(e, ErrDivideByZero))
	assert.False(t, errors.Is(e, ErrOverflow))
}

func TestWithSpanPrependsFrames(t *testing.T) {
	e := New(ErrStackOverflow, nil)
	e.WithSpan(unit.DebugSpan{SourceID: 1, Start: 0, End: 5}, "inner")
	e.WithSpan(unit.DebugSpan{SourceID: 1, Start: 10, End: 20}, "outer")

	require.Len(t, e.Trace, 2)
	assert.Equal(t, "outer", e.Trace[0].FunctionName, "most recently unwound frame goes first")
	assert.Equal(t, "inner", e.Trace[1].FunctionName)
}

func TestMissingFunctionMessageIncludesHash(t *testing.T) {
	err := MissingFunction(hash.Hash(0xDEADBEEF))
	assert.Contains(t, err.Error(), "deadbeef")
}
