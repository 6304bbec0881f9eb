// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package mathlib is the "math" host module: J/APL-style reduction and
// elementwise operations over integer vectors, installed into a
// internal/context.Context so script code can call them as ordinary
// functions (math::iota, math::sum, ...).
package mathlib

import (
	"fmt"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/item"
	"github.com/probelang/probe-lang/internal/module"
	"github.com/probelang/probe-lang/internal/value"
)

// Iota returns [0, 1, ..., n-1] (J-style iota).
func Iota(n int64) []int64 {
	if n < 0 {
		n = 0
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}

// Sum reduces a slice with +.
func Sum(a []int64) int64 {
	var s int64
	for _, v := range a {
		s += v
	}
	return s
}

// Dot computes the dot product of two equal-length slices (zip with *, then
// reduce with +).
func Dot(a, b []int64) int64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s int64
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}

// Zip combines two slices element-wise with f (dyadic zip), truncating to
// the shorter operand.
func Zip(a, b []int64, f func(int64, int64) int64) []int64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = f(a[i], b[i])
	}
	return out
}

// Filter returns the elements of a matching f.
func Filter(a []int64, f func(int64) bool) []int64 {
	var out []int64
	for _, v := range a {
		if f(v) {
			out = append(out, v)
		}
	}
	return out
}

// ---- Native bindings -------------------------------------------------------

func intVec(v value.Value) ([]int64, error) {
	vec, err := v.AsVec()
	if err != nil {
		return nil, fmt.Errorf("mathlib: expected a vector argument: %w", err)
	}
	out := make([]int64, len(vec.Elems))
	for i, el := range vec.Elems {
		n, err := el.AsInteger()
		if err != nil {
			return nil, fmt.Errorf("mathlib: vector element %d is not an integer: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func vecOfInts(a []int64) value.Value {
	elems := make([]value.Value, len(a))
	for i, n := range a {
		elems[i] = value.Integer(n)
	}
	return value.VecOf(elems)
}

func writeOutput(stack value.Stack, output int64, v value.Value) {
	if output < 0 {
		return
	}
	stack.Set(output, v)
}

func nativeIota(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	if argCount < 1 {
		return fmt.Errorf("mathlib: iota requires 1 argument")
	}
	arg, ok := stack.At(argsAddr)
	if !ok {
		return fmt.Errorf("mathlib: iota: missing argument")
	}
	n, err := arg.AsInteger()
	if err != nil {
		return fmt.Errorf("mathlib: iota: %w", err)
	}
	writeOutput(stack, output, vecOfInts(Iota(n)))
	return nil
}

func nativeSum(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	if argCount < 1 {
		return fmt.Errorf("mathlib: sum requires 1 argument")
	}
	arg, ok := stack.At(argsAddr)
	if !ok {
		return fmt.Errorf("mathlib: sum: missing argument")
	}
	a, err := intVec(arg)
	if err != nil {
		return err
	}
	writeOutput(stack, output, value.Integer(Sum(a)))
	return nil
}

func nativeDot(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	if argCount < 2 {
		return fmt.Errorf("mathlib: dot requires 2 arguments")
	}
	av, _ := stack.At(argsAddr)
	bv, _ := stack.At(argsAddr + 1)
	a, err := intVec(av)
	if err != nil {
		return err
	}
	b, err := intVec(bv)
	if err != nil {
		return err
	}
	writeOutput(stack, output, value.Integer(Dot(a, b)))
	return nil
}

func nativeAddVec(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	if argCount < 2 {
		return fmt.Errorf("mathlib: add_vec requires 2 arguments")
	}
	av, _ := stack.At(argsAddr)
	bv, _ := stack.At(argsAddr + 1)
	a, err := intVec(av)
	if err != nil {
		return err
	}
	b, err := intVec(bv)
	if err != nil {
		return err
	}
	writeOutput(stack, output, vecOfInts(Zip(a, b, func(x, y int64) int64 { return x + y })))
	return nil
}

func nativeMulVec(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	if argCount < 2 {
		return fmt.Errorf("mathlib: mul_vec requires 2 arguments")
	}
	av, _ := stack.At(argsAddr)
	bv, _ := stack.At(argsAddr + 1)
	a, err := intVec(av)
	if err != nil {
		return err
	}
	b, err := intVec(bv)
	if err != nil {
		return err
	}
	writeOutput(stack, output, vecOfInts(Zip(a, b, func(x, y int64) int64 { return x * y })))
	return nil
}

func nativeFilterPositive(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	if argCount < 1 {
		return fmt.Errorf("mathlib: filter_positive requires 1 argument")
	}
	arg, _ := stack.At(argsAddr)
	a, err := intVec(arg)
	if err != nil {
		return err
	}
	writeOutput(stack, output, vecOfInts(Filter(a, func(x int64) bool { return x > 0 })))
	return nil
}

// Register builds the "math" host module and installs its functions under
// math::iota, math::sum, math::dot, math::add_vec, math::mul_vec, and
// math::filter_positive.
//
// The teacher's Map/Zip/Filter/Reduce took a Go func(...) callback, which a
// NativeHandler cannot accept — it has no hook back into the VM to invoke a
// script-level closure as that callback. Map/Zip/Filter are exposed here as
// a handful of concrete, pre-instantiated operations (add_vec, mul_vec,
// filter_positive) instead of a single higher-order primitive; Reduce is not
// exposed at all, for the same reason.
func Register() (*module.Module, error) {
	m := module.New("math")
	path := item.Empty()
	_ = path.Push(item.Str("math"))

	fns := []struct {
		name    string
		handler value.NativeHandler
	}{
		{"math::iota", nativeIota},
		{"math::sum", nativeSum},
		{"math::dot", nativeDot},
		{"math::add_vec", nativeAddVec},
		{"math::mul_vec", nativeMulVec},
		{"math::filter_positive", nativeFilterPositive},
	}
	for _, f := range fns {
		decl := module.FunctionDecl{
			Hash:    hash.String(f.name),
			Handler: f.handler,
			Meta:    module.Meta{Doc: f.name + " — see internal/stdlib/mathlib"},
		}
		if err := m.RegisterFunction(decl); err != nil {
			return nil, err
		}
	}
	return m, nil
}
