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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/runtime"
	"github.com/probelang/probe-lang/internal/value"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.probe")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing temp source: %v", err)
	}
	return path
}

func TestCompileFileRunsArithmetic(t *testing.T) {
	path := writeSource(t, `fn main() -> int { 1 + 2 }`)
	comp, err := compileFile(path, defaultConfig())
	if err != nil {
		t.Fatalf("compileFile: %v", err)
	}
	meta, ok := comp.unit.Function(hash.String("main"))
	if !ok {
		t.Fatal("main not found in compiled unit")
	}
	vm := runtime.NewAt(comp.unit, comp.ctx, meta.Offset, nil, vmOptions(defaultConfig())...)
	result, err := vm.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	n, err := result.AsInteger()
	if err != nil || n != 3 {
		t.Fatalf("result = %v (%v), want 3", n, err)
	}
}

func TestCompileFileRejectsParseErrors(t *testing.T) {
	path := writeSource(t, `fn main( -> int { `)
	if _, err := compileFile(path, defaultConfig()); err == nil {
		t.Fatal("expected a parse error for malformed source")
	}
}

func TestTopLevelFnsWithPrefixFindsTestAndBenchFunctions(t *testing.T) {
	path := writeSource(t, `
		fn test_one() -> bool { true }
		fn test_two() -> bool { false }
		fn bench_loop() -> int { 1 }
		fn helper() -> int { 0 }
	`)
	comp, err := compileFile(path, defaultConfig())
	if err != nil {
		t.Fatalf("compileFile: %v", err)
	}
	tests := topLevelFnsWithPrefix(comp.module, testFnPrefix)
	if len(tests) != 2 {
		t.Fatalf("found %d test_* functions, want 2", len(tests))
	}
	benches := topLevelFnsWithPrefix(comp.module, benchFnPrefix)
	if len(benches) != 1 {
		t.Fatalf("found %d bench_* functions, want 1", len(benches))
	}
}

func TestRunCasePassesAndFails(t *testing.T) {
	path := writeSource(t, `
		fn test_pass() -> bool { true }
		fn test_fail() -> bool { false }
	`)
	cfg := defaultConfig()
	comp, err := compileFile(path, cfg)
	if err != nil {
		t.Fatalf("compileFile: %v", err)
	}
	if err := runCase(comp, cfg, "test_pass"); err != nil {
		t.Fatalf("test_pass: %v", err)
	}
	if err := runCase(comp, cfg, "test_fail"); err == nil {
		t.Fatal("expected test_fail to report an error")
	}
}

func TestNewContextSeedsChainBalances(t *testing.T) {
	cfg := defaultConfig()
	cfg.Chain.Balances["aa"] = "500"
	_, ledger, err := newContext(cfg)
	if err != nil {
		t.Fatalf("newContext: %v", err)
	}
	bal := ledger.Balance([]byte{0xaa})
	if !bal.IsUint64() || bal.Uint64() != 500 {
		t.Fatalf("balance = %s, want 500", bal.String())
	}
}

func TestParseCLIArgs(t *testing.T) {
	args, err := parseCLIArgs([]string{"42", "true", "hello"})
	if err != nil {
		t.Fatalf("parseCLIArgs: %v", err)
	}
	if len(args) != 3 {
		t.Fatalf("len(args) = %d, want 3", len(args))
	}
	if n, err := args[0].AsInteger(); err != nil || n != 42 {
		t.Fatalf("args[0] = %v (%v), want 42", n, err)
	}
	if b, err := args[1].AsBool(); err != nil || !b {
		t.Fatalf("args[1] = %v (%v), want true", b, err)
	}
	if s, err := args[2].AsString(); err != nil || s != "hello" {
		t.Fatalf("args[2] = %q (%v), want \"hello\"", s, err)
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		v    value.Value
		want string
	}{
		{value.Unit(), "()"},
		{value.Bool(true), "true"},
		{value.Integer(7), "7"},
		{value.String("hi"), "hi"},
	}
	for _, c := range cases {
		if got := formatValue(c.v); got != c.want {
			t.Errorf("formatValue(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}
