// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/module"
	"github.com/probelang/probe-lang/internal/value"
)

func noopHandler(value.Stack, int64, uint32, int64) error { return nil }

func TestInstallMergesModulesAndDetectsConflict(t *testing.T) {
	ctx := New()
	m1 := module.New("math")
	require.NoError(t, m1.RegisterFunction(module.FunctionDecl{Hash: hash.String("math::sqrt"), Handler: noopHandler}))
	require.NoError(t, ctx.Install(m1))

	m2 := module.New("math-dup")
	require.NoError(t, m2.RegisterFunction(module.FunctionDecl{Hash: hash.String("math::sqrt"), Handler: noopHandler}))
	err := ctx.Install(m2)
	assert.ErrorIs(t, err, module.ErrConflict)
}

func TestAssociatedFunctionResolutionIsCached(t *testing.T) {
	ctx := New()
	m := module.New("geo")
	typeHash := hash.String("geo::Point")
	nameHash := hash.String("distance")
	composite := hash.AssociatedFunction(typeHash, nameHash)
	require.NoError(t, m.RegisterFunction(module.FunctionDecl{Hash: composite, Handler: noopHandler}))
	require.NoError(t, ctx.Install(m))

	decl, ok := ctx.AssociatedFunction(typeHash, nameHash)
	require.True(t, ok)
	assert.Equal(t, composite, decl.Hash)

	// Second resolution must hit the LRU and return the same decl.
	decl2, ok := ctx.AssociatedFunction(typeHash, nameHash)
	require.True(t, ok)
	assert.Equal(t, decl.Hash, decl2.Hash)
}

func TestDeprecatedSurfacesMessage(t *testing.T) {
	ctx := New()
	m := module.New("legacy")
	h := hash.String("legacy::old")
	require.NoError(t, m.RegisterFunction(module.FunctionDecl{Hash: h, Handler: noopHandler}))
	require.NoError(t, m.Deprecate(h, "removed in v2"))
	require.NoError(t, ctx.Install(m))

	msg, ok := ctx.Deprecated(h)
	require.True(t, ok)
	assert.Equal(t, "removed in v2", msg)

	_, ok = ctx.Deprecated(hash.String("never-registered"))
	assert.False(t, ok)
}

func TestRuntimeViewDelegatesToContext(t *testing.T) {
	ctx := New()
	m := module.New("math")
	require.NoError(t, m.RegisterConstant("PI", value.Float(3.14)))
	require.NoError(t, ctx.Install(m))

	rv := ctx.Runtime()
	v, ok := rv.Constant(hash.String("PI"))
	require.True(t, ok)
	f, _ := v.AsFloat()
	assert.InDelta(t, 3.14, f, 1e-9)
}
