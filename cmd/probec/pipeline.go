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
	"encoding/hex"
	"fmt"
	"os"

	"github.com/holiman/uint256"

	"github.com/probelang/probe-lang/internal/ast"
	"github.com/probelang/probe-lang/internal/context"
	"github.com/probelang/probe-lang/internal/lower"
	"github.com/probelang/probe-lang/internal/parser"
	"github.com/probelang/probe-lang/internal/resolver"
	"github.com/probelang/probe-lang/internal/stdlib/agentlib"
	"github.com/probelang/probe-lang/internal/stdlib/chainlib"
	"github.com/probelang/probe-lang/internal/stdlib/cryptolib"
	"github.com/probelang/probe-lang/internal/stdlib/mathlib"
	"github.com/probelang/probe-lang/internal/unit"

	"github.com/probelang/probe-lang/internal/codegen"
)

// compiled bundles everything a run/test/bench/disasm subcommand needs
// after the lexer/parser/resolver/lower/codegen pipeline has produced a
// unit: the unit itself, the resolved module (function names in source
// order, for test/bench discovery), and the host context it must run
// against.
type compiled struct {
	unit   *unit.Unit
	module *resolver.Module
	ctx    *context.Context
	ledger *chainlib.Ledger
}

// compileFile reads path, then runs it through parser.Parse, resolver.Resolve
// (for name/type/linearity diagnostics), internal/lower (AST to IR),
// internal/codegen (IR to Unit), and unit.Verify (static bytecode checks) in
// that order. A host Context carrying all four stdlib modules is built
// alongside it, seeded from cfg.
func compileFile(path string, cfg *Config) (*compiled, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	prog, errs := parser.Parse(path, string(src))
	if len(errs) > 0 {
		return nil, fmt.Errorf("parse errors in %s: %v", path, errs)
	}

	mod, errs := resolver.Resolve(prog)
	if len(errs) > 0 {
		return nil, fmt.Errorf("resolve errors in %s: %v", path, errs)
	}

	irProg, err := lower.Program(prog)
	if err != nil {
		return nil, fmt.Errorf("lowering %s: %w", path, err)
	}

	u, err := codegen.Generate(irProg)
	if err != nil {
		return nil, fmt.Errorf("codegen for %s: %w", path, err)
	}

	if verr := unit.Verify(u); len(verr) > 0 {
		return nil, fmt.Errorf("generated unit for %s failed verification: %v", path, verr)
	}

	ctx, ledger, err := newContext(cfg)
	if err != nil {
		return nil, err
	}

	return &compiled{unit: u, module: mod, ctx: ctx, ledger: ledger}, nil
}

// newContext builds a fresh Context with the math, crypto, chain, and agent
// host modules installed, seeding the chain ledger's balances from cfg.
// Each run/test/bench invocation gets its own Context and Ledger so that
// separate test functions in the same file do not observe each other's
// chain-state mutations.
func newContext(cfg *Config) (*context.Context, *chainlib.Ledger, error) {
	ctx := context.New()

	mathMod, err := mathlib.Register()
	if err != nil {
		return nil, nil, fmt.Errorf("registering math module: %w", err)
	}
	if err := ctx.Install(mathMod); err != nil {
		return nil, nil, err
	}

	cryptoMod, err := cryptolib.Register()
	if err != nil {
		return nil, nil, fmt.Errorf("registering crypto module: %w", err)
	}
	if err := ctx.Install(cryptoMod); err != nil {
		return nil, nil, err
	}

	ledger := chainlib.NewLedger()
	for addrHex, amountStr := range cfg.Chain.Balances {
		addr, err := hex.DecodeString(addrHex)
		if err != nil {
			return nil, nil, fmt.Errorf("chain.balances: invalid address %q: %w", addrHex, err)
		}
		amount, err := uint256FromDecimal(amountStr)
		if err != nil {
			return nil, nil, fmt.Errorf("chain.balances: invalid amount for %q: %w", addrHex, err)
		}
		ledger.SetBalance(addr, amount)
	}
	chainMod, err := chainlib.Register(ledger, cfg.Chain.Events)
	if err != nil {
		return nil, nil, fmt.Errorf("registering chain module: %w", err)
	}
	if err := ctx.Install(chainMod); err != nil {
		return nil, nil, err
	}

	agents := agentlib.NewRegistry()
	agentMod, err := agentlib.Register(agents)
	if err != nil {
		return nil, nil, fmt.Errorf("registering agent module: %w", err)
	}
	if err := ctx.Install(agentMod); err != nil {
		return nil, nil, err
	}

	return ctx, ledger, nil
}

func uint256FromDecimal(s string) (*uint256.Int, error) {
	n := new(uint256.Int)
	if err := n.SetFromDecimal(s); err != nil {
		return nil, err
	}
	return n, nil
}

// topLevelFnsWithPrefix returns the resolved module's own free functions
// (declaration order) whose name starts with prefix, the convention test
// and bench discovery use in place of a dedicated language-level
// annotation.
func topLevelFnsWithPrefix(mod *resolver.Module, prefix string) []*ast.FnDecl {
	var out []*ast.FnDecl
	for _, decl := range mod.Functions {
		if len(decl.Name) >= len(prefix) && decl.Name[:len(prefix)] == prefix {
			out = append(out, decl)
		}
	}
	return out
}
