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

// Package cell implements a reference-counted container that enforces
// shared/exclusive borrow discipline at runtime, the way Rust's
// Rc<RefCell<T>> does at compile time. Every shared Value in the runtime
// (strings, vectors, objects, structs, host objects) is held behind a Cell
// so that aliasing and mutation across the VM's registers are always safe,
// even though Go has no borrow checker of its own.
package cell

import "errors"

// accessState is a single counter: 0 means unborrowed, a positive value N
// means N live shared borrows, and the two negative sentinels mark an
// exclusive borrow or a moved-out cell.
type accessState int64

const (
	stateFree      accessState = 0
	stateExclusive accessState = -1
	stateMoved     accessState = -2
)

// AccessErrorKind distinguishes why a borrow operation failed.
type AccessErrorKind uint8

const (
	AlreadyBorrowedShared AccessErrorKind = iota
	AlreadyBorrowedExclusive
	Moved
)

func (k AccessErrorKind) String() string {
	switch k {
	case AlreadyBorrowedShared:
		return "already borrowed (shared)"
	case AlreadyBorrowedExclusive:
		return "already borrowed (exclusive)"
	case Moved:
		return "moved"
	default:
		return "unknown access error"
	}
}

// AccessError is returned by every Cell operation that the current access
// state forbids.
type AccessError struct {
	Kind AccessErrorKind
}

func (e *AccessError) Error() string { return "cell: " + e.Kind.String() }

// Is supports errors.Is matching against the AccessErrorKind sentinels below.
func (e *AccessError) Is(target error) bool {
	other, ok := target.(*AccessError)
	return ok && other.Kind == e.Kind
}

var (
	// ErrAlreadyBorrowedShared is matched via errors.Is against an
	// *AccessError with Kind == AlreadyBorrowedShared.
	ErrAlreadyBorrowedShared = &AccessError{Kind: AlreadyBorrowedShared}
	// ErrAlreadyBorrowedExclusive is matched via errors.Is against an
	// *AccessError with Kind == AlreadyBorrowedExclusive.
	ErrAlreadyBorrowedExclusive = &AccessError{Kind: AlreadyBorrowedExclusive}
	// ErrMoved is matched via errors.Is against an *AccessError with
	// Kind == Moved.
	ErrMoved = &AccessError{Kind: Moved}
)

var errNegativeStrongCount = errors.New("cell: strong count underflow")

// Cell is a reference-counted, runtime-borrow-checked container for T.
type Cell[T any] struct {
	strong  int64
	state   accessState
	payload T
}

// New allocates a Cell with one strong reference and no live borrows.
func New[T any](v T) *Cell[T] {
	return &Cell[T]{strong: 1, payload: v}
}

// Strong returns the current strong reference count.
func (c *Cell[T]) Strong() int64 { return c.strong }

// Retain increments the strong count and returns the same cell, modeling an
// Rc-style clone: the payload is not duplicated, only aliased.
func (c *Cell[T]) Retain() *Cell[T] {
	c.strong++
	return c
}

// Release decrements the strong count. Go's GC reclaims the payload once
// nothing references the Cell; Release exists so callers can assert the
// "refcount conservation" property in tests.
func (c *Cell[T]) Release() error {
	if c.strong <= 0 {
		return errNegativeStrongCount
	}
	c.strong--
	return nil
}

// RefGuard is returned by BorrowRef; Release must be called exactly once to
// end the shared borrow.
type RefGuard[T any] struct {
	cell     *Cell[T]
	released bool
}

// Get returns the borrowed value. Calling Get after Release is a caller bug;
// it returns the zero value.
func (g *RefGuard[T]) Get() T {
	if g.released {
		var zero T
		return zero
	}
	return g.cell.payload
}

// Release ends the shared borrow. Idempotent.
func (g *RefGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.cell.state--
}

// MutGuard is returned by BorrowMut; Release must be called exactly once to
// end the exclusive borrow.
type MutGuard[T any] struct {
	cell     *Cell[T]
	released bool
}

// Get returns a pointer to the borrowed value for in-place mutation.
func (g *MutGuard[T]) Get() *T {
	return &g.cell.payload
}

// Release ends the exclusive borrow. Idempotent.
func (g *MutGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.cell.state = stateFree
}

// BorrowRef acquires a shared borrow. Fails if the cell is exclusively
// borrowed or has been taken.
func (c *Cell[T]) BorrowRef() (*RefGuard[T], error) {
	switch {
	case c.state == stateMoved:
		return nil, &AccessError{Moved}
	case c.state == stateExclusive:
		return nil, &AccessError{AlreadyBorrowedExclusive}
	default:
		c.state++
		return &RefGuard[T]{cell: c}, nil
	}
}

// BorrowMut acquires the exclusive borrow. Fails if any borrow (shared or
// exclusive) is already live, or if the cell has been taken.
func (c *Cell[T]) BorrowMut() (*MutGuard[T], error) {
	switch {
	case c.state == stateMoved:
		return nil, &AccessError{Moved}
	case c.state != stateFree:
		if c.state == stateExclusive {
			return nil, &AccessError{AlreadyBorrowedExclusive}
		}
		return nil, &AccessError{AlreadyBorrowedShared}
	default:
		c.state = stateExclusive
		return &MutGuard[T]{cell: c}, nil
	}
}

// Take moves the payload out, leaving the cell permanently in the Moved
// state. Requires no live borrows. Subsequent Take/BorrowRef/BorrowMut calls
// idempotently report Moved.
func (c *Cell[T]) Take() (T, error) {
	var zero T
	switch {
	case c.state == stateMoved:
		return zero, &AccessError{Moved}
	case c.state != stateFree:
		return zero, &AccessError{AlreadyBorrowedShared}
	default:
		v := c.payload
		c.payload = zero
		c.state = stateMoved
		return v, nil
	}
}

// IsMoved reports whether Take has already been called on this cell.
func (c *Cell[T]) IsMoved() bool { return c.state == stateMoved }

// Peek reads the payload without taking a guard; used internally by code
// paths (like read-only protocol dispatch) that the VM guarantees already
// hold the necessary borrow. Prefer BorrowRef/BorrowMut at the VM boundary.
func (c *Cell[T]) Peek() (T, error) {
	var zero T
	if c.state == stateMoved {
		return zero, &AccessError{Moved}
	}
	return c.payload, nil
}
