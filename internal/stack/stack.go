// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package stack implements the VM's linear, addressable value stack. It
// depends only on internal/value, never on internal/runtime, so that
// internal/module's NativeHandler signature (which needs to read and write
// stack slots) does not force a module<->runtime import cycle.
package stack

import (
	"errors"

	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/value"
)

// ErrOutOfBounds is returned by any access whose address falls outside the
// stack's current length.
var ErrOutOfBounds = errors.New("stack: address out of bounds")

// ErrUnderflow is returned by Pop/Drain when fewer values are available
// than requested.
var ErrUnderflow = errors.New("stack: not enough values")

// Stack is a flat value.Value array addressed from zero, growing on demand.
// Frame-relative addressing (base + offset) is the caller's responsibility
// (internal/runtime.Frame); Stack itself only knows absolute addresses.
//
// Growth mirrors rune-alloc's VecDeque: double capacity on overflow rather
// than growing by a fixed increment, so repeated small pushes during deep
// recursion amortize instead of re-allocating every call.
type Stack struct {
	values []value.Value
}

// New returns an empty stack.
func New() *Stack {
	return &Stack{}
}

// WithCapacity returns an empty stack pre-sized to hold n values without
// reallocating, mirroring Stack::with_capacity in the source model.
func WithCapacity(n int) *Stack {
	return &Stack{values: make([]value.Value, 0, n)}
}

// Len returns the number of values currently on the stack.
func (s *Stack) Len() int { return len(s.values) }

// At reads the value at absolute address addr.
func (s *Stack) At(addr int64) (value.Value, bool) {
	if addr < 0 || addr >= int64(len(s.values)) {
		return value.Value{}, false
	}
	return s.values[addr], true
}

// Set writes v at absolute address addr. Set on an address equal to Len
// behaves like Push; Set silently ignores unit.DiscardAddr-style discard
// sentinels, which callers should check for before calling Set at all.
func (s *Stack) Set(addr int64, v value.Value) {
	if addr < 0 {
		return
	}
	if addr == int64(len(s.values)) {
		s.grow(1)
		s.values = append(s.values, v)
		return
	}
	if addr > int64(len(s.values)) {
		s.widenTo(int(addr) + 1)
	}
	s.values[addr] = v
}

// Push appends a value at the top of the stack, growing capacity
// geometrically when needed.
func (s *Stack) Push(v value.Value) int64 {
	s.grow(1)
	s.values = append(s.values, v)
	return int64(len(s.values) - 1)
}

// Pop removes and returns the top value. Returns ErrUnderflow on an empty
// stack.
func (s *Stack) Pop() (value.Value, error) {
	if len(s.values) == 0 {
		return value.Value{}, ErrUnderflow
	}
	v := s.values[len(s.values)-1]
	s.values = s.values[:len(s.values)-1]
	return v, nil
}

// Swap exchanges the values at two absolute addresses.
func (s *Stack) Swap(a, b int64) error {
	if a < 0 || b < 0 || a >= int64(len(s.values)) || b >= int64(len(s.values)) {
		return ErrOutOfBounds
	}
	s.values[a], s.values[b] = s.values[b], s.values[a]
	return nil
}

// Drain removes and returns the top n values in the order they were pushed
// (oldest first), as rune's stack.drain does for Tuple/Vec construction.
func (s *Stack) Drain(n int) ([]value.Value, error) {
	if n < 0 || n > len(s.values) {
		return nil, ErrUnderflow
	}
	start := len(s.values) - n
	out := append([]value.Value(nil), s.values[start:]...)
	s.values = s.values[:start]
	return out, nil
}

// Truncate shrinks the stack to length n, discarding everything above it —
// used on Return to collapse a callee's frame back to its base.
func (s *Stack) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(s.values) {
		return
	}
	s.values = s.values[:n]
}

// Widen grows the stack by n unit-valued slots, used when entering a new
// frame whose locals extend beyond the arguments already pushed.
func (s *Stack) Widen(n int) {
	if n <= 0 {
		return
	}
	s.widenTo(len(s.values) + n)
}

func (s *Stack) widenTo(n int) {
	s.grow(n - len(s.values))
	for len(s.values) < n {
		s.values = append(s.values, value.Unit())
	}
}

// grow ensures capacity for at least extra more elements, doubling the
// backing array rather than growing by exactly extra (amortized O(1) push).
func (s *Stack) grow(extra int) {
	need := len(s.values) + extra
	if need <= cap(s.values) {
		return
	}
	newCap := cap(s.values) * 2
	if newCap < need {
		newCap = need
	}
	if newCap < 4 {
		newCap = 4
	}
	grown := make([]value.Value, len(s.values), newCap)
	copy(grown, s.values)
	s.values = grown
}

// ArgsAt returns a window of argCount values starting at addr, for
// NativeHandler argument reading. It never copies; callers must treat the
// slice as read-only since it aliases the stack's backing array.
func (s *Stack) ArgsAt(addr int64, argCount uint32) ([]value.Value, error) {
	if addr < 0 || addr+int64(argCount) > int64(len(s.values)) {
		return nil, ErrOutOfBounds
	}
	return s.values[addr : addr+int64(argCount)], nil
}

// WriteOutput writes v to out unless out is the discard sentinel.
func (s *Stack) WriteOutput(out int64, v value.Value) {
	if out == int64(unit.DiscardAddr) {
		return
	}
	s.Set(out, v)
}

var _ value.Stack = (*Stack)(nil)
