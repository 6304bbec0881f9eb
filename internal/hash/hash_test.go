// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringStable(t *testing.T) {
	a := String("probe::math::sqrt")
	b := String("probe::math::sqrt")
	assert.Equal(t, a, b)
}

func TestAssociatedFunctionDistinctFromFieldFunction(t *testing.T) {
	ty := String("Vector")
	name := String("len")
	proto := SaltProtocol ^ String("LEN")

	assoc := AssociatedFunction(ty, name)
	field := FieldFunction(proto, ty, name)
	assert.NotEqual(t, assoc, field)
}

func TestWithGenericsAssociativeCommutative(t *testing.T) {
	base := String("Option")
	a := String("i64")
	b := String("string")

	left := WithGenerics(base, a^b)
	right := WithGenerics(WithGenerics(base, a), b)
	assert.Equal(t, left, right)

	// commutative in the XOR combination of generics themselves.
	assert.Equal(t, WithGenerics(base, a, b), WithGenerics(base, b, a))
}

func TestObjectKeysOrderSensitive(t *testing.T) {
	a := ObjectKeys([]string{"x", "y"})
	b := ObjectKeys([]string{"y", "x"})
	assert.NotEqual(t, a, b, "object key hash should be sensitive to field order")
}

func TestIndexFunctionDistinctPerIndex(t *testing.T) {
	proto := SaltProtocol ^ String("INDEX_GET")
	ty := String("Tuple")
	assert.NotEqual(t, IndexFunction(proto, ty, 0), IndexFunction(proto, ty, 1))
}
