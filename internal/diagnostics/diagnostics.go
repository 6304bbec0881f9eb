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

// Package diagnostics is the host-subscribable sink for VM-level
// diagnostics: deprecation-use warnings and, when tracing is enabled,
// per-instruction disassembly lines. It mirrors the leveled, structured
// shape go-probe's own internal log package gives its callers, built over
// the standard library's log package rather than a pack-grounded external
// dependency (none of the example repos import one for this role).
package diagnostics

import (
	"fmt"
	"log"
	"os"

	lru "github.com/hashicorp/golang-lru"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/unit"
)

// DefaultSiteCacheSize bounds the "warn once per call site" memoization
// when a Sink is constructed without an explicit size.
const DefaultSiteCacheSize = 1024

// Deprecation describes a single deprecated-function dispatch.
type Deprecation struct {
	FunctionHash hash.Hash
	FunctionName string
	Message      string
	Span         unit.DebugSpan
}

// Trace describes a single dispatched instruction, emitted only when a
// Sink has tracing enabled (the CLI's --trace flag).
type Trace struct {
	IP   uint32
	Text string
	Span unit.DebugSpan
}

// Sink receives diagnostics emitted during VM execution. The VM holds an
// optional Sink; a nil Sink (or NoOp()) silently drops everything.
type Sink interface {
	Deprecated(d Deprecation)
	Traced(t Trace)
}

// noop is the zero-cost default sink, installed when a host does not
// subscribe one.
type noop struct{}

func (noop) Deprecated(Deprecation) {}
func (noop) Traced(Trace)           {}

// NoOp returns a Sink that discards every diagnostic.
func NoOp() Sink { return noop{} }

// siteKey composes a call-site identity from the deprecated function hash
// and the span it was dispatched from, so the same function deprecated and
// called from two different call sites each warn once, independently.
func siteKey(functionHash hash.Hash, span unit.DebugSpan) hash.Hash {
	return hash.New().
		WriteUint64(uint64(functionHash)).
		WriteUint64(uint64(span.SourceID)).
		WriteUint64(uint64(span.Start)).
		Sum()
}

// LogSink logs deprecation warnings and instruction traces through the
// standard library's log package, matching the leveled key/value record
// shape go-probe's internal log package gives its own callers. Deprecation
// warnings are deduplicated per call site via an LRU-backed "seen" set, per
// spec.md §4.7 ("once per call site if a site cache is provided").
type LogSink struct {
	logger    *log.Logger
	traceOn   bool
	seenSites *lru.Cache
}

// NewLogSink returns a LogSink writing to os.Stderr with the default
// call-site cache size. traceOn controls whether Traced records are
// emitted (the CLI only sets this under --trace).
func NewLogSink(traceOn bool) *LogSink {
	return NewLogSinkSize(traceOn, DefaultSiteCacheSize)
}

// NewLogSinkSize is NewLogSink with an explicit call-site cache size.
func NewLogSinkSize(traceOn bool, siteCacheSize int) *LogSink {
	cache, _ := lru.New(siteCacheSize)
	return &LogSink{
		logger:    log.New(os.Stderr, "", log.LstdFlags),
		traceOn:   traceOn,
		seenSites: cache,
	}
}

// Deprecated logs a deprecation warning once per (function, call site)
// pair; repeat dispatches from the same site are silently skipped.
func (s *LogSink) Deprecated(d Deprecation) {
	key := siteKey(d.FunctionHash, d.Span)
	if s.seenSites != nil {
		if _, seen := s.seenSites.Get(key); seen {
			return
		}
		s.seenSites.Add(key, struct{}{})
	}
	s.logger.Printf("level=warn msg=deprecated fn=%s reason=%q source=%d span=%d:%d",
		functionLabel(d.FunctionHash, d.FunctionName), d.Message, d.Span.SourceID, d.Span.Start, d.Span.End)
}

// Traced logs a single dispatched instruction when tracing is enabled.
func (s *LogSink) Traced(t Trace) {
	if !s.traceOn {
		return
	}
	s.logger.Printf("level=trace ip=%d instr=%s source=%d span=%d:%d", t.IP, t.Text, t.Span.SourceID, t.Span.Start, t.Span.End)
}

func functionLabel(h hash.Hash, name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("0x%016x", uint64(h))
}
