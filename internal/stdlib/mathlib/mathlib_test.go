package mathlib

import (
	"testing"

	"github.com/probelang/probe-lang/internal/stack"
)

func TestIotaSumDot(t *testing.T) {
	got := Iota(5)
	want := []int64{0, 1, 2, 3, 4}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("Iota(5)[%d] = %d, want %d", i, got[i], v)
		}
	}
	if Sum(got) != 10 {
		t.Fatalf("Sum(0..4) = %d, want 10", Sum(got))
	}
	if Dot([]int64{1, 2, 3}, []int64{4, 5, 6}) != 32 {
		t.Fatalf("Dot([1,2,3],[4,5,6]) = %d, want 32", Dot([]int64{1, 2, 3}, []int64{4, 5, 6}))
	}
}

func TestZipTruncatesToShorter(t *testing.T) {
	got := Zip([]int64{1, 2, 3}, []int64{10, 20}, func(a, b int64) int64 { return a + b })
	if len(got) != 2 || got[0] != 11 || got[1] != 22 {
		t.Fatalf("Zip truncation mismatch: %v", got)
	}
}

func TestFilter(t *testing.T) {
	got := Filter([]int64{-2, -1, 0, 1, 2}, func(x int64) bool { return x > 0 })
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("Filter positive mismatch: %v", got)
	}
}

func TestNativeSum(t *testing.T) {
	s := stack.New()
	argsAddr := s.Push(vecOfInts([]int64{1, 2, 3, 4}))
	outAddr := argsAddr + 1
	s.Widen(int(outAddr) + 1)

	if err := nativeSum(s, argsAddr, 1, outAddr); err != nil {
		t.Fatalf("nativeSum: %v", err)
	}
	out, ok := s.At(outAddr)
	if !ok {
		t.Fatalf("no output written")
	}
	n, err := out.AsInteger()
	if err != nil {
		t.Fatalf("output not an integer: %v", err)
	}
	if n != 10 {
		t.Fatalf("nativeSum output = %d, want 10", n)
	}
}

func TestNativeAddVec(t *testing.T) {
	s := stack.New()
	a := s.Push(vecOfInts([]int64{1, 2, 3}))
	_ = s.Push(vecOfInts([]int64{10, 20, 30}))
	outAddr := a + 2
	s.Widen(int(outAddr) + 1)

	if err := nativeAddVec(s, a, 2, outAddr); err != nil {
		t.Fatalf("nativeAddVec: %v", err)
	}
	out, ok := s.At(outAddr)
	if !ok {
		t.Fatalf("no output written")
	}
	vec, err := out.AsVec()
	if err != nil {
		t.Fatalf("output not a vec: %v", err)
	}
	want := []int64{11, 22, 33}
	for i, w := range want {
		n, err := vec.Elems[i].AsInteger()
		if err != nil || n != w {
			t.Fatalf("add_vec[%d] = %v, want %d", i, vec.Elems[i], w)
		}
	}
}

func TestRegisterInstallsAllFunctions(t *testing.T) {
	m, err := Register()
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(m.Functions()) != 6 {
		t.Fatalf("got %d registered functions, want 6", len(m.Functions()))
	}
}
