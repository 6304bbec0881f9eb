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

// Package vmerror defines the tagged error taxonomy the VM raises: an
// error category (Access/Dispatch/Type/Arithmetic/Coroutine/Pattern/
// Resource/Panic), a rendered message, and a trace of (span, function name)
// frames captured while unwinding. Hosts observe only *Error; internal
// control flow inside internal/runtime uses the sentinel Err* variables
// below with fmt.Errorf("%w: ...", ...) wrapping, matching probe-lang's own
// vm.go error style.
package vmerror

import (
	"errors"
	"fmt"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/unit"
)

// Kind is the error category surfaced to the host, per spec.md §7's table.
type Kind uint8

const (
	Access Kind = iota
	Dispatch
	Type
	Arithmetic
	Coroutine
	Pattern
	Resource
	Panic
)

func (k Kind) String() string {
	switch k {
	case Access:
		return "access"
	case Dispatch:
		return "dispatch"
	case Type:
		return "type"
	case Arithmetic:
		return "arithmetic"
	case Coroutine:
		return "coroutine"
	case Pattern:
		return "pattern"
	case Resource:
		return "resource"
	case Panic:
		return "panic"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per §7 kind-row; internal/runtime wraps these with
// fmt.Errorf("%w: ...", ErrX, detail) to attach the specific operand.
var (
	ErrAlreadyBorrowedShared    = errors.New("vmerror: already borrowed (shared)")
	ErrAlreadyBorrowedExclusive = errors.New("vmerror: already borrowed (exclusive)")
	ErrMoved                    = errors.New("vmerror: value moved")

	ErrMissingFunction         = errors.New("vmerror: missing function")
	ErrMissingProtocolFunction = errors.New("vmerror: missing protocol function")
	ErrMissingInstanceFunction = errors.New("vmerror: missing instance function")

	ErrExpectedType      = errors.New("vmerror: expected type")
	ErrBadArgument       = errors.New("vmerror: bad argument")
	ErrBadArgumentCount  = errors.New("vmerror: bad argument count")

	ErrOverflow      = errors.New("vmerror: integer overflow")
	ErrUnderflow     = errors.New("vmerror: integer underflow")
	ErrDivideByZero  = errors.New("vmerror: divide by zero")

	ErrGeneratorComplete = errors.New("vmerror: generator already complete")
	ErrFutureCompleted   = errors.New("vmerror: future already completed")
	ErrStreamCompleted   = errors.New("vmerror: stream already completed")

	ErrPatternMismatch = errors.New("vmerror: pattern mismatch")

	ErrBudgetExceeded = errors.New("vmerror: budget exceeded")
	ErrStackOverflow  = errors.New("vmerror: stack overflow")

	ErrUserPanic = errors.New("vmerror: panic")
)

var kindOf = map[error]Kind{
	ErrAlreadyBorrowedShared:    Access,
	ErrAlreadyBorrowedExclusive: Access,
	ErrMoved:                    Access,

	ErrMissingFunction:         Dispatch,
	ErrMissingProtocolFunction: Dispatch,
	ErrMissingInstanceFunction: Dispatch,

	ErrExpectedType:     Type,
	ErrBadArgument:      Type,
	ErrBadArgumentCount: Type,

	ErrOverflow:     Arithmetic,
	ErrUnderflow:    Arithmetic,
	ErrDivideByZero: Arithmetic,

	ErrGeneratorComplete: Coroutine,
	ErrFutureCompleted:   Coroutine,
	ErrStreamCompleted:   Coroutine,

	ErrPatternMismatch: Pattern,

	ErrBudgetExceeded: Resource,
	ErrStackOverflow:  Resource,

	ErrUserPanic: Panic,
}

// Frame is one entry of the host-observed trace: the source span and
// function name active when a frame was unwound.
type Frame struct {
	Span         unit.DebugSpan
	FunctionName string
}

// Error is the host-facing error: a rendered message, its Kind, and the
// unwind trace collected as the VM popped frames.
type Error struct {
	Kind    Kind
	Message string
	Trace   []Frame
	cause   error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the underlying sentinel so callers can still
// errors.Is(err, vmerror.ErrDivideByZero) etc. against a *Error.
func (e *Error) Unwrap() error { return e.cause }

// New wraps cause (normally one of the Err* sentinels, possibly further
// wrapped by fmt.Errorf("%w: ...")) into a host-facing *Error, classifying
// its Kind by walking the error chain for a known sentinel.
func New(cause error, trace []Frame) *Error {
	return &Error{Kind: classify(cause), Message: cause.Error(), Trace: trace, cause: cause}
}

func classify(err error) Kind {
	for sentinel, k := range kindOf {
		if errors.Is(err, sentinel) {
			return k
		}
	}
	return Panic
}

// WithSpan prepends a (span, functionName) frame to the trace, used while
// unwinding through each popped Frame.
func (e *Error) WithSpan(span unit.DebugSpan, functionName string) *Error {
	e.Trace = append([]Frame{{Span: span, FunctionName: functionName}}, e.Trace...)
	return e
}

// MissingFunction builds the Dispatch-kind error for an unresolved call
// hash.
func MissingFunction(h hash.Hash) error {
	return fmt.Errorf("%w: 0x%016x", ErrMissingFunction, uint64(h))
}

// MissingProtocolFunction builds the Dispatch-kind error for a protocol
// with no resolvable implementation on the given type hash.
func MissingProtocolFunction(protocolHash, typeHash hash.Hash) error {
	return fmt.Errorf("%w: protocol 0x%016x on type 0x%016x", ErrMissingProtocolFunction, uint64(protocolHash), uint64(typeHash))
}
