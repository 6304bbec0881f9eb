// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/value"
)

func TestRegisterFunctionDetectsConflict(t *testing.T) {
	m := New("math")
	h := hash.String("math::sqrt")
	err := m.RegisterFunction(FunctionDecl{Hash: h, Handler: func(value.Stack, int64, uint32, int64) error { return nil }})
	require.NoError(t, err)

	err = m.RegisterFunction(FunctionDecl{Hash: h, Handler: func(value.Stack, int64, uint32, int64) error { return nil }})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterConstantAndLookup(t *testing.T) {
	m := New("math")
	require.NoError(t, m.RegisterConstant("PI", value.Float(3.14159)))

	h := hash.String("PI")
	v, ok := m.Constant(h)
	require.True(t, ok)
	f, err := v.AsFloat()
	require.NoError(t, err)
	assert.InDelta(t, 3.14159, f, 1e-9)

	name, ok := m.ConstantName(h)
	require.True(t, ok)
	assert.Equal(t, "PI", name)
}

func TestDeprecateAttachesMessage(t *testing.T) {
	m := New("legacy")
	h := hash.String("legacy::old_fn")
	require.NoError(t, m.RegisterFunction(FunctionDecl{Hash: h, Handler: func(value.Stack, int64, uint32, int64) error { return nil }}))
	require.NoError(t, m.Deprecate(h, "use new_fn instead"))

	decl, ok := m.Function(h)
	require.True(t, ok)
	require.NotNil(t, decl.Meta.Deprecated)
	assert.Equal(t, "use new_fn instead", *decl.Meta.Deprecated)
}

func TestDeprecateUnregisteredFails(t *testing.T) {
	m := New("legacy")
	err := m.Deprecate(hash.String("nonexistent"), "nope")
	assert.Error(t, err)
}
