// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/item"
	"github.com/probelang/probe-lang/internal/protocol"
)

// fakeCaller resolves every protocol call by looking up a fixed handler
// keyed by protocol hash, standing in for internal/runtime's real
// dispatch so this package's tests never import internal/runtime.
type fakeCaller struct {
	handlers map[hash.Hash]func(target Value, args []Value) (Value, error)
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{handlers: make(map[hash.Hash]func(target Value, args []Value) (Value, error))}
}

func (f *fakeCaller) on(p protocol.Protocol, fn func(target Value, args []Value) (Value, error)) {
	f.handlers[p.Hash] = fn
}

func (f *fakeCaller) Call(target Value, p protocol.Protocol, args []Value) (Value, error) {
	h, ok := f.handlers[p.Hash]
	if !ok {
		return Value{}, ErrWrongKind
	}
	return h(target, args)
}

func TestInlineRoundTrip(t *testing.T) {
	b, err := Bool(true).AsBool()
	require.NoError(t, err)
	assert.True(t, b)

	i, err := Integer(-42).AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(-42), i)

	f, err := Float(3.5).AsFloat()
	require.NoError(t, err)
	assert.Equal(t, 3.5, f)

	c, err := Char('λ').AsChar()
	require.NoError(t, err)
	assert.Equal(t, 'λ', c)

	_, err = Bool(true).AsInteger()
	assert.ErrorIs(t, err, ErrNotInline)
}

func TestInlineEqDirectComparison(t *testing.T) {
	caller := newFakeCaller()
	eq, err := Integer(7).Eq(caller, Integer(7))
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = Integer(7).Eq(caller, Integer(8))
	require.NoError(t, err)
	assert.False(t, eq)

	eq, err = Integer(7).Eq(caller, Bool(true))
	require.NoError(t, err)
	assert.False(t, eq, "differing kinds are unequal without dispatch")
}

func TestStringEqAndCmpBypassDispatch(t *testing.T) {
	caller := newFakeCaller() // no handlers registered; dispatch would error
	eq, err := String("abc").Eq(caller, String("abc"))
	require.NoError(t, err)
	assert.True(t, eq)

	ord, err := String("abc").Cmp(caller, String("abd"))
	require.NoError(t, err)
	assert.Equal(t, Less, ord)
}

func TestAnyEqDispatchesToProtocol(t *testing.T) {
	caller := newFakeCaller()
	caller.on(protocol.Eq, func(target Value, args []Value) (Value, error) {
		a, _ := target.AsAny()
		b, _ := args[0].AsAny()
		return Bool(a.Payload == b.Payload), nil
	})

	x := AnyOf(&Any{TypeHash: hash.String("conn"), Payload: 1})
	y := AnyOf(&Any{TypeHash: hash.String("conn"), Payload: 1})
	eq, err := x.Eq(caller, y)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestVecCloneIsDeep(t *testing.T) {
	caller := newFakeCaller()
	inner := VecOf([]Value{Integer(1), Integer(2)})
	outer := VecOf([]Value{inner})

	cloned, err := outer.Clone(caller)
	require.NoError(t, err)

	outerVec, _ := outer.AsVec()
	clonedVec, _ := cloned.AsVec()
	require.Len(t, clonedVec.Elems, 1)

	// Mutate the original inner vector; the clone must be unaffected.
	origInner, _ := outerVec.Elems[0].AsVec()
	origInner.Elems[0] = Integer(99)

	clonedInner, _ := clonedVec.Elems[0].AsVec()
	v, _ := clonedInner.Elems[0].AsInteger()
	assert.Equal(t, int64(1), v, "clone must not alias the source vector's backing slice")
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	obj := NewObject([]string{"z", "a", "m"}, []Value{Integer(1), Integer(2), Integer(3)})
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	obj.Set("z", Integer(100))
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys(), "overwriting a key must not move it")

	obj.Set("new", Integer(4))
	assert.Equal(t, []string{"z", "a", "m", "new"}, obj.Keys())
}

func TestAnyCloneWithoutHandlerFails(t *testing.T) {
	caller := newFakeCaller()
	v := AnyOf(&Any{TypeHash: hash.String("socket")})
	_, err := v.Clone(caller)
	assert.ErrorIs(t, err, ErrNoCloneHandler)
}

func TestStructFieldAccessByRTTI(t *testing.T) {
	it, err := item.New(item.Str("geo"), item.Str("Point"))
	require.NoError(t, err)
	rtti := NewRTTI(hash.String("geo::Point"), it, []string{"x", "y"})

	v := StructOf(rtti, []Value{Integer(3), Integer(4)})
	sd, err := v.AsStruct()
	require.NoError(t, err)

	idx, ok := sd.RTTI.FieldIndexOf("y")
	require.True(t, ok)
	y, err := sd.Fields[idx].AsInteger()
	require.NoError(t, err)
	assert.Equal(t, int64(4), y)

	assert.Equal(t, rtti.TypeHash, v.TypeHash())
}

func TestTakenCellAffectsAllAliases(t *testing.T) {
	v := VecOf([]Value{Integer(1)})
	alias := v.Retain()

	_, err := v.Cell().Take()
	require.NoError(t, err)

	_, err = alias.Cell().Peek()
	assert.Error(t, err, "taking through one alias must be visible through another, since both share the same cell")
}

func TestGeneratorValueDelegatesToCoroutine(t *testing.T) {
	steps := []Step{{Kind: StepYielded, Value: Integer(1)}, {Kind: StepComplete, Value: Integer(2)}}
	gen := &fakeCoroutine{kind: KindGenerator, steps: steps}
	v := GeneratorOf(gen)

	co, err := v.AsCoroutine()
	require.NoError(t, err)
	assert.Equal(t, KindGenerator, co.CoroutineKind())

	step, err := co.Resume(Unit())
	require.NoError(t, err)
	assert.Equal(t, StepYielded, step.Kind)

	step, err = co.Resume(Unit())
	require.NoError(t, err)
	assert.Equal(t, StepComplete, step.Kind)
}

type fakeCoroutine struct {
	kind  Kind
	steps []Step
	pos   int
}

func (f *fakeCoroutine) CoroutineKind() Kind { return f.kind }

func (f *fakeCoroutine) Resume(Value) (Step, error) {
	if f.pos >= len(f.steps) {
		return Step{}, ErrWrongKind
	}
	s := f.steps[f.pos]
	f.pos++
	return s, nil
}

func (f *fakeCoroutine) Cancel() { f.pos = len(f.steps) }
