// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package parser

import (
	"strings"
	"testing"

	"github.com/probelang/probe-lang/internal/ast"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// mustParse asserts that the source parses without errors and returns the
// program. If there are errors it fails the test immediately.
func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, errs := Parse("test.probe", src)
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		t.Fatalf("unexpected parse errors:\n%s", strings.Join(msgs, "\n"))
	}
	return prog
}

// parseWithErrors parses and expects at least one error to be reported.
func parseWithErrors(t *testing.T, src string) (*ast.Program, []error) {
	t.Helper()
	prog, errs := Parse("test.probe", src)
	if len(errs) == 0 {
		t.Fatal("expected parse errors, but none were reported")
	}
	return prog, errs
}

// firstDecl returns the first declaration in prog, failing if there is none.
func firstDecl(t *testing.T, prog *ast.Program) ast.Declaration {
	t.Helper()
	if len(prog.Declarations) == 0 {
		t.Fatal("expected at least one declaration in program, got none")
	}
	return prog.Declarations[0]
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

func TestParseFnDecl_Simple(t *testing.T) {
	src := `fn add(a: u64, b: u64) -> u64 { a + b }`
	prog := mustParse(t, src)

	fn, ok := firstDecl(t, prog).(*ast.FnDecl)
	if !ok {
		t.Fatalf("expected *ast.FnDecl, got %T", firstDecl(t, prog))
	}
	if fn.Name != "add" {
		t.Errorf("fn name: want %q, got %q", "add", fn.Name)
	}
	if fn.Kind != ast.FnPlain {
		t.Errorf("fn kind: want FnPlain, got %v", fn.Kind)
	}
	if len(fn.Params) != 2 || fn.Params[0].Name != "a" || fn.Params[1].Name != "b" {
		t.Fatalf("unexpected params: %+v", fn.Params)
	}
	if fn.ReturnType == nil || fn.ReturnType.String() != "u64" {
		t.Errorf("return type: want %q, got %v", "u64", fn.ReturnType)
	}
	if fn.Body.Tail == nil {
		t.Fatal("expected tail expression in body")
	}
}

func TestParseFnDecl_Pub(t *testing.T) {
	src := `pub fn greet() { }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	if !fn.Public {
		t.Error("expected fn to be public")
	}
	if fn.ReturnType != nil {
		t.Error("expected nil return type for unit function")
	}
}

func TestParseFnDecl_GeneratorKind(t *testing.T) {
	src := `generator fn counter() -> int { yield 1; yield 2; }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	if fn.Kind != ast.FnGenerator {
		t.Errorf("fn kind: want FnGenerator, got %v", fn.Kind)
	}
	if len(fn.Body.Statements) != 2 {
		t.Fatalf("want 2 statements, got %d", len(fn.Body.Statements))
	}
	first, ok := fn.Body.Statements[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected *ast.ExprStmt, got %T", fn.Body.Statements[0])
	}
	yield, ok := first.Expression.(*ast.YieldExpr)
	if !ok {
		t.Fatalf("expected *ast.YieldExpr, got %T", first.Expression)
	}
	lit, ok := yield.Value.(*ast.IntLiteral)
	if !ok || lit.Value != 1 {
		t.Errorf("yield value: want IntLiteral(1), got %#v", yield.Value)
	}
}

func TestParseFnDecl_AsyncKind(t *testing.T) {
	src := `async fn fetch() -> int { await pending() }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	if fn.Kind != ast.FnAsync {
		t.Errorf("fn kind: want FnAsync, got %v", fn.Kind)
	}
	await, ok := fn.Body.Tail.(*ast.AwaitExpr)
	if !ok {
		t.Fatalf("expected *ast.AwaitExpr tail, got %T", fn.Body.Tail)
	}
	if _, ok := await.Target.(*ast.CallExpr); !ok {
		t.Errorf("await target: want *ast.CallExpr, got %T", await.Target)
	}
}

func TestParseFnDecl_StreamKind(t *testing.T) {
	src := `stream fn ticks() -> int { yield; }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	if fn.Kind != ast.FnStream {
		t.Errorf("fn kind: want FnStream, got %v", fn.Kind)
	}
	stmt := fn.Body.Statements[0].(*ast.ExprStmt)
	yield := stmt.Expression.(*ast.YieldExpr)
	if yield.Value != nil {
		t.Errorf("expected nil yield value for bare 'yield;', got %#v", yield.Value)
	}
}

// ---------------------------------------------------------------------------
// Let / assignment / control flow
// ---------------------------------------------------------------------------

func TestParseLetStmt(t *testing.T) {
	src := `fn f() { let x: u64 = 42; }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)

	if len(fn.Body.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(fn.Body.Statements))
	}
	let, ok := fn.Body.Statements[0].(*ast.LetStmt)
	if !ok {
		t.Fatalf("expected *ast.LetStmt, got %T", fn.Body.Statements[0])
	}
	if let.Name.Value != "x" || let.Mutable {
		t.Errorf("unexpected let binding: name=%q mutable=%v", let.Name.Value, let.Mutable)
	}
	lit, ok := let.Value.(*ast.IntLiteral)
	if !ok || lit.Value != 42 {
		t.Errorf("let value: want IntLiteral(42), got %#v", let.Value)
	}
}

func TestParseAssignStmt_Compound(t *testing.T) {
	src := `fn f() { let mut x: u64 = 1; x += 2; }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	assign, ok := fn.Body.Statements[1].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected *ast.AssignStmt, got %T", fn.Body.Statements[1])
	}
	if assign.Operator != "+=" {
		t.Errorf("operator: want %q, got %q", "+=", assign.Operator)
	}
}

func TestParseLoopStmt(t *testing.T) {
	src := `fn f() { loop { break; } }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	loopStmt, ok := fn.Body.Statements[0].(*ast.LoopStmt)
	if !ok {
		t.Fatalf("expected *ast.LoopStmt, got %T", fn.Body.Statements[0])
	}
	if len(loopStmt.Body.Statements) != 1 {
		t.Fatalf("expected 1 statement in loop body, got %d", len(loopStmt.Body.Statements))
	}
	if _, ok := loopStmt.Body.Statements[0].(*ast.BreakStmt); !ok {
		t.Errorf("expected *ast.BreakStmt, got %T", loopStmt.Body.Statements[0])
	}
}

func TestParseWhileAndForStmt(t *testing.T) {
	src := `fn f() {
		while x < 10 { x += 1; }
		for item in items { drop item; }
	}`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	if len(fn.Body.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(fn.Body.Statements))
	}
	if _, ok := fn.Body.Statements[0].(*ast.WhileStmt); !ok {
		t.Errorf("expected *ast.WhileStmt, got %T", fn.Body.Statements[0])
	}
	forStmt, ok := fn.Body.Statements[1].(*ast.ForStmt)
	if !ok {
		t.Fatalf("expected *ast.ForStmt, got %T", fn.Body.Statements[1])
	}
	if forStmt.Binding.Value != "item" {
		t.Errorf("for binding: want %q, got %q", "item", forStmt.Binding.Value)
	}
}

func TestParseAssertAndRequireAndTx(t *testing.T) {
	src := `fn f() {
		require(balance >= amount, "insufficient funds");
		assert(total > 0);
		tx {
			balance -= amount;
		}
	}`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	if len(fn.Body.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(fn.Body.Statements))
	}

	req, ok := fn.Body.Statements[0].(*ast.RequireStmt)
	if !ok {
		t.Fatalf("expected *ast.RequireStmt, got %T", fn.Body.Statements[0])
	}
	if req.Message == nil {
		t.Error("expected require message, got nil")
	}

	assertStmt, ok := fn.Body.Statements[1].(*ast.AssertStmt)
	if !ok {
		t.Fatalf("expected *ast.AssertStmt, got %T", fn.Body.Statements[1])
	}
	if assertStmt.Message != nil {
		t.Error("expected nil assert message")
	}

	txStmt, ok := fn.Body.Statements[2].(*ast.TxStmt)
	if !ok {
		t.Fatalf("expected *ast.TxStmt, got %T", fn.Body.Statements[2])
	}
	if len(txStmt.Body.Statements) != 1 {
		t.Errorf("expected 1 statement inside tx body, got %d", len(txStmt.Body.Statements))
	}
}

// ---------------------------------------------------------------------------
// Tuples, struct literals, closures
// ---------------------------------------------------------------------------

func TestParseTupleExprAndIndex(t *testing.T) {
	src := `fn f() -> int { let pair = (1, 2); pair.0 }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)

	let := fn.Body.Statements[0].(*ast.LetStmt)
	tuple, ok := let.Value.(*ast.TupleExpr)
	if !ok {
		t.Fatalf("expected *ast.TupleExpr, got %T", let.Value)
	}
	if len(tuple.Elements) != 2 {
		t.Fatalf("expected 2 tuple elements, got %d", len(tuple.Elements))
	}

	idx, ok := fn.Body.Tail.(*ast.TupleIndexExpr)
	if !ok {
		t.Fatalf("expected *ast.TupleIndexExpr tail, got %T", fn.Body.Tail)
	}
	if idx.Index != 0 {
		t.Errorf("tuple index: want 0, got %d", idx.Index)
	}
}

func TestParseGroupedExprIsNotATuple(t *testing.T) {
	src := `fn f() -> int { (1 + 2) }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	if _, ok := fn.Body.Tail.(*ast.TupleExpr); ok {
		t.Fatal("single parenthesised expression should not parse as a tuple")
	}
	if _, ok := fn.Body.Tail.(*ast.InfixExpr); !ok {
		t.Errorf("expected *ast.InfixExpr, got %T", fn.Body.Tail)
	}
}

func TestParseStructLiteralExpr(t *testing.T) {
	src := `fn f() -> Point { let p = Point { x: 1, y: 2 }; p }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)

	let := fn.Body.Statements[0].(*ast.LetStmt)
	lit, ok := let.Value.(*ast.StructLiteralExpr)
	if !ok {
		t.Fatalf("expected *ast.StructLiteralExpr, got %T", let.Value)
	}
	if lit.Type != "Point" {
		t.Errorf("struct literal type: want %q, got %q", "Point", lit.Type)
	}
	if len(lit.Order) != 2 || lit.Order[0] != "x" || lit.Order[1] != "y" {
		t.Errorf("unexpected field order: %v", lit.Order)
	}
}

func TestParseStructLiteralSuppressedInIfCondition(t *testing.T) {
	// "if flag { ... }" must not try to parse "flag { ... }" as a struct
	// literal — the brace must be read as the start of the consequence.
	src := `fn f() -> int { if flag { 1 } else { 2 } }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	ifExpr, ok := fn.Body.Tail.(*ast.IfExpr)
	if !ok {
		t.Fatalf("expected *ast.IfExpr, got %T", fn.Body.Tail)
	}
	if _, ok := ifExpr.Condition.(*ast.Ident); !ok {
		t.Errorf("condition: want *ast.Ident, got %T", ifExpr.Condition)
	}
	if ifExpr.Consequence.Tail == nil {
		t.Error("expected consequence tail expression")
	}
}

func TestParseClosureExpr(t *testing.T) {
	src := `fn f() { let add = |a: int, b: int| -> int { a + b }; }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	let := fn.Body.Statements[0].(*ast.LetStmt)
	closure, ok := let.Value.(*ast.ClosureExpr)
	if !ok {
		t.Fatalf("expected *ast.ClosureExpr, got %T", let.Value)
	}
	if len(closure.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(closure.Params))
	}
	if closure.ReturnType == nil || closure.ReturnType.String() != "int" {
		t.Errorf("closure return type: want %q, got %v", "int", closure.ReturnType)
	}
}

func TestParseClosureExpr_NoParams(t *testing.T) {
	src := `fn f() { let thunk = || 42; }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	let := fn.Body.Statements[0].(*ast.LetStmt)
	closure, ok := let.Value.(*ast.ClosureExpr)
	if !ok {
		t.Fatalf("expected *ast.ClosureExpr, got %T", let.Value)
	}
	if len(closure.Params) != 0 {
		t.Errorf("expected 0 params, got %d", len(closure.Params))
	}
}

// ---------------------------------------------------------------------------
// Structs, enums, traits, impls
// ---------------------------------------------------------------------------

func TestParseStructDecl_NamedFields(t *testing.T) {
	src := `pub struct Point { pub x: int, y: int }`
	prog := mustParse(t, src)
	decl := firstDecl(t, prog).(*ast.StructDecl)
	if !decl.Public {
		t.Error("expected struct to be public")
	}
	if len(decl.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(decl.Fields))
	}
	if !decl.Fields[0].Public {
		t.Error("expected x field to be public")
	}
}

func TestParseStructDecl_TupleForm(t *testing.T) {
	src := `struct Pair(int, int);`
	prog := mustParse(t, src)
	decl := firstDecl(t, prog).(*ast.StructDecl)
	if decl.Fields != nil {
		t.Error("expected nil named fields for tuple struct")
	}
	if len(decl.TupleTypes) != 2 {
		t.Fatalf("expected 2 tuple types, got %d", len(decl.TupleTypes))
	}
}

func TestParseStructDecl_UnitForm(t *testing.T) {
	src := `struct Marker;`
	prog := mustParse(t, src)
	decl := firstDecl(t, prog).(*ast.StructDecl)
	if decl.Fields != nil || decl.TupleTypes != nil {
		t.Error("expected unit struct to have neither fields nor tuple types")
	}
}

func TestParseEnumDecl(t *testing.T) {
	src := `enum Shape { Circle(int), Square(int, int), Point }`
	prog := mustParse(t, src)
	decl := firstDecl(t, prog).(*ast.EnumDecl)
	if len(decl.Variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(decl.Variants))
	}
	if len(decl.Variants[0].Fields) != 1 {
		t.Errorf("Circle: expected 1 field, got %d", len(decl.Variants[0].Fields))
	}
	if len(decl.Variants[2].Fields) != 0 {
		t.Errorf("Point: expected unit variant, got %d fields", len(decl.Variants[2].Fields))
	}
}

func TestParseTraitAndImplDecl(t *testing.T) {
	src := `
		trait Shape {
			fn area() -> int;
		}
		impl Shape for Circle {
			fn area() -> int { 1 }
		}
	`
	prog := mustParse(t, src)
	if len(prog.Declarations) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(prog.Declarations))
	}
	trait, ok := prog.Declarations[0].(*ast.TraitDecl)
	if !ok {
		t.Fatalf("expected *ast.TraitDecl, got %T", prog.Declarations[0])
	}
	if len(trait.Methods) != 1 {
		t.Fatalf("expected 1 trait method, got %d", len(trait.Methods))
	}
	impl, ok := prog.Declarations[1].(*ast.ImplDecl)
	if !ok {
		t.Fatalf("expected *ast.ImplDecl, got %T", prog.Declarations[1])
	}
	if impl.Trait != "Shape" || impl.TypeName != "Circle" {
		t.Errorf("impl header: want Shape for Circle, got %s for %s", impl.Trait, impl.TypeName)
	}
	if len(impl.Methods) != 1 {
		t.Fatalf("expected 1 impl method, got %d", len(impl.Methods))
	}
}

// ---------------------------------------------------------------------------
// Agents, linear types, and the send/recv/spawn primitives
// ---------------------------------------------------------------------------

func TestParseAgentDecl(t *testing.T) {
	src := `
		agent Counter {
			state { count: int }
			msg Increment(by: int) {
				count += by;
			}
		}
	`
	prog := mustParse(t, src)
	agent, ok := firstDecl(t, prog).(*ast.AgentDecl)
	if !ok {
		t.Fatalf("expected *ast.AgentDecl, got %T", firstDecl(t, prog))
	}
	if agent.State == nil || len(agent.State.Fields) != 1 {
		t.Fatalf("expected 1 state field, got %+v", agent.State)
	}
	if len(agent.Handlers) != 1 || agent.Handlers[0].Name != "Increment" {
		t.Fatalf("unexpected handlers: %+v", agent.Handlers)
	}
}

func TestParseSpawnSendRecv(t *testing.T) {
	src := `fn f() {
		let c = spawn Counter { count: 0 };
		send c 1;
		let reply = recv;
	}`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)

	spawnLet := fn.Body.Statements[0].(*ast.LetStmt)
	spawn, ok := spawnLet.Value.(*ast.SpawnExpr)
	if !ok {
		t.Fatalf("expected *ast.SpawnExpr, got %T", spawnLet.Value)
	}
	if spawn.Agent != "Counter" || len(spawn.Order) != 1 || spawn.Order[0] != "count" {
		t.Errorf("unexpected spawn: agent=%q order=%v", spawn.Agent, spawn.Order)
	}

	sendStmt := fn.Body.Statements[1].(*ast.ExprStmt)
	if _, ok := sendStmt.Expression.(*ast.SendExpr); !ok {
		t.Fatalf("expected *ast.SendExpr, got %T", sendStmt.Expression)
	}

	recvLet := fn.Body.Statements[2].(*ast.LetStmt)
	if _, ok := recvLet.Value.(*ast.RecvExpr); !ok {
		t.Fatalf("expected *ast.RecvExpr, got %T", recvLet.Value)
	}
}

func TestParseMoveCopyDrop(t *testing.T) {
	src := `fn f() {
		let a = move wallet;
		let b = copy balance;
		drop a;
	}`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)

	moveLet := fn.Body.Statements[0].(*ast.LetStmt)
	if _, ok := moveLet.Value.(*ast.MoveExpr); !ok {
		t.Fatalf("expected *ast.MoveExpr, got %T", moveLet.Value)
	}
	copyLet := fn.Body.Statements[1].(*ast.LetStmt)
	if _, ok := copyLet.Value.(*ast.CopyExpr); !ok {
		t.Fatalf("expected *ast.CopyExpr, got %T", copyLet.Value)
	}
	if _, ok := fn.Body.Statements[2].(*ast.DropStmt); !ok {
		t.Fatalf("expected *ast.DropStmt, got %T", fn.Body.Statements[2])
	}
}

func TestParseEmitStmt_FieldOrderPreserved(t *testing.T) {
	src := `fn f() { emit Transfer { from: a, to: b, amount: n }; }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	emit, ok := fn.Body.Statements[0].(*ast.EmitStmt)
	if !ok {
		t.Fatalf("expected *ast.EmitStmt, got %T", fn.Body.Statements[0])
	}
	want := []string{"from", "to", "amount"}
	if len(emit.Order) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(emit.Order))
	}
	for i, name := range want {
		if emit.Order[i] != name {
			t.Errorf("field order[%d]: want %q, got %q", i, name, emit.Order[i])
		}
	}
}

// ---------------------------------------------------------------------------
// Match expressions
// ---------------------------------------------------------------------------

func TestParseMatchExpr(t *testing.T) {
	src := `fn f() -> int {
		match shape {
			Circle(r) => r,
			Square(w, h) => w,
			other if other > 0 => 1,
		}
	}`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	m, ok := fn.Body.Tail.(*ast.MatchExpr)
	if !ok {
		t.Fatalf("expected *ast.MatchExpr, got %T", fn.Body.Tail)
	}
	if len(m.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(m.Arms))
	}
	if m.Arms[2].Guard == nil {
		t.Error("expected guard on third arm")
	}
}

// ---------------------------------------------------------------------------
// use / mod / type decls
// ---------------------------------------------------------------------------

func TestParseUseDecl(t *testing.T) {
	src := `use std::collections::HashMap as Map;`
	prog := mustParse(t, src)
	use, ok := firstDecl(t, prog).(*ast.UseDecl)
	if !ok {
		t.Fatalf("expected *ast.UseDecl, got %T", firstDecl(t, prog))
	}
	if strings.Join(use.Path, "::") != "std::collections::HashMap" {
		t.Errorf("unexpected path: %v", use.Path)
	}
	if use.Alias != "Map" {
		t.Errorf("alias: want %q, got %q", "Map", use.Alias)
	}
}

func TestParseTypeDecl(t *testing.T) {
	src := `type Balance = u64;`
	prog := mustParse(t, src)
	decl, ok := firstDecl(t, prog).(*ast.TypeDecl)
	if !ok {
		t.Fatalf("expected *ast.TypeDecl, got %T", firstDecl(t, prog))
	}
	if decl.Type.String() != "u64" {
		t.Errorf("type: want %q, got %q", "u64", decl.Type.String())
	}
}

// ---------------------------------------------------------------------------
// Type-expression forms: generator/stream/async annotations
// ---------------------------------------------------------------------------

func TestParseCoroutineTypeAnnotations(t *testing.T) {
	src := `
		type Ticker = stream<int>;
		type Job = async<bool>;
		type Seq = generator<int>;
	`
	prog := mustParse(t, src)
	if len(prog.Declarations) != 3 {
		t.Fatalf("expected 3 declarations, got %d", len(prog.Declarations))
	}
	stream := prog.Declarations[0].(*ast.TypeDecl).Type.(*ast.StreamType)
	if stream.Item.String() != "int" {
		t.Errorf("stream item: want %q, got %q", "int", stream.Item.String())
	}
	async := prog.Declarations[1].(*ast.TypeDecl).Type.(*ast.FutureType)
	if async.Result.String() != "bool" {
		t.Errorf("async result: want %q, got %q", "bool", async.Result.String())
	}
	gen := prog.Declarations[2].(*ast.TypeDecl).Type.(*ast.GeneratorType)
	if gen.Yielded.String() != "int" {
		t.Errorf("generator yielded: want %q, got %q", "int", gen.Yielded.String())
	}
}

// ---------------------------------------------------------------------------
// Strings and bytes
// ---------------------------------------------------------------------------

func TestParseStringLiteral_EscapeDecoding(t *testing.T) {
	src := `fn f() -> String { "line1\nline2\t\"quoted\"" }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	lit, ok := fn.Body.Tail.(*ast.StringLiteral)
	if !ok {
		t.Fatalf("expected *ast.StringLiteral, got %T", fn.Body.Tail)
	}
	want := "line1\nline2\t\"quoted\""
	if lit.Value != want {
		t.Errorf("string value: want %q, got %q", want, lit.Value)
	}
}

func TestParseBytesLiteral(t *testing.T) {
	src := `fn f() -> Bytes { 0xdeadbeef }`
	prog := mustParse(t, src)
	fn := firstDecl(t, prog).(*ast.FnDecl)
	lit, ok := fn.Body.Tail.(*ast.BytesLiteral)
	if !ok {
		t.Fatalf("expected *ast.BytesLiteral, got %T", fn.Body.Tail)
	}
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if len(lit.Value) != len(want) {
		t.Fatalf("bytes length: want %d, got %d", len(want), len(lit.Value))
	}
	for i := range want {
		if lit.Value[i] != want[i] {
			t.Errorf("byte[%d]: want %#x, got %#x", i, want[i], lit.Value[i])
		}
	}
}

// ---------------------------------------------------------------------------
// Error recovery
// ---------------------------------------------------------------------------

func TestParseError_MissingClosingBrace(t *testing.T) {
	src := `fn f() { let x: int = 1;`
	_, errs := parseWithErrors(t, src)
	if len(errs) == 0 {
		t.Fatal("expected at least one error")
	}
}

func TestParseError_UnexpectedTopLevelToken(t *testing.T) {
	src := `42;`
	prog, errs := parseWithErrors(t, src)
	if len(errs) == 0 {
		t.Fatal("expected at least one error")
	}
	if len(prog.Declarations) != 0 {
		t.Errorf("expected no declarations to be recovered, got %d", len(prog.Declarations))
	}
}

func TestParseError_RecoversAfterBadDeclaration(t *testing.T) {
	// A bad token at the top level should be skipped so the following,
	// well-formed declaration still parses.
	src := `
		@@@
		fn ok() -> int { 1 }
	`
	prog, errs := parseWithErrors(t, src)
	if len(errs) == 0 {
		t.Fatal("expected at least one error")
	}
	found := false
	for _, d := range prog.Declarations {
		if fn, ok := d.(*ast.FnDecl); ok && fn.Name == "ok" {
			found = true
		}
	}
	if !found {
		t.Error("expected parser to recover and still parse the trailing fn decl")
	}
}
