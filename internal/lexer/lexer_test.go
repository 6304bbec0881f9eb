// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package lexer_test

import (
	"testing"

	"github.com/probelang/probe-lang/internal/lexer"
	"github.com/probelang/probe-lang/internal/token"
)

type tokenCase struct {
	typ     token.Type
	literal string
}

// runTokenize lexes input and checks that it produces exactly the
// expected sequence (plus a final EOF).
func runTokenize(t *testing.T, name, input string, want []tokenCase) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		t.Helper()
		l := lexer.New("test.probe", input)
		toks := l.Tokenize()

		if len(toks) == 0 {
			t.Fatal("Tokenize returned empty slice")
		}
		last := toks[len(toks)-1]
		if last.Type != token.EOF {
			t.Errorf("last token is %s, want EOF", last.Type)
		}
		body := toks[:len(toks)-1]

		if len(body) != len(want) {
			t.Errorf("got %d tokens (excl. EOF), want %d", len(body), len(want))
			for i, tok := range body {
				t.Logf("  [%d] %s %q", i, tok.Type, tok.Literal)
			}
			return
		}
		for i, w := range want {
			got := body[i]
			if got.Type != w.typ {
				t.Errorf("token[%d]: type = %s, want %s (literal %q)", i, got.Type, w.typ, got.Literal)
			}
			if got.Literal != w.literal {
				t.Errorf("token[%d]: literal = %q, want %q", i, got.Literal, w.literal)
			}
		}
	})
}

func TestSingleCharTokens(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		wantTyp token.Type
		wantLit string
	}{
		{"plus", "+", token.PLUS, "+"},
		{"minus", "-", token.MINUS, "-"},
		{"star", "*", token.STAR, "*"},
		{"slash", "/", token.SLASH, "/"},
		{"percent", "%", token.PERCENT, "%"},
		{"hash", "#", token.HASH, "#"},
		{"tilde", "~", token.TILDE, "~"},
		{"amp", "&", token.AMP, "&"},
		{"pipe", "|", token.PIPE, "|"},
		{"caret", "^", token.CARET, "^"},
		{"bang", "!", token.BANG, "!"},
		{"dot", ".", token.DOT, "."},
		{"lt", "<", token.LT, "<"},
		{"gt", ">", token.GT, ">"},
		{"assign", "=", token.ASSIGN, "="},
		{"colon", ":", token.COLON, ":"},
		{"at", "@", token.AT, "@"},
		{"lparen", "(", token.LPAREN, "("},
		{"rparen", ")", token.RPAREN, ")"},
		{"lbracket", "[", token.LBRACKET, "["},
		{"rbracket", "]", token.RBRACKET, "]"},
		{"lbrace", "{", token.LBRACE, "{"},
		{"rbrace", "}", token.RBRACE, "}"},
		{"comma", ",", token.COMMA, ","},
		{"semicolon", ";", token.SEMICOLON, ";"},
	}
	for _, c := range cases {
		runTokenize(t, c.name, c.input, []tokenCase{{c.wantTyp, c.wantLit}})
	}
}

func TestMultiCharOperators(t *testing.T) {
	runTokenize(t, "EQ", "==", []tokenCase{{token.EQ, "=="}})
	runTokenize(t, "NEQ", "!=", []tokenCase{{token.NEQ, "!="}})
	runTokenize(t, "LTE", "<=", []tokenCase{{token.LTE, "<="}})
	runTokenize(t, "GTE", ">=", []tokenCase{{token.GTE, ">="}})
	runTokenize(t, "AND", "&&", []tokenCase{{token.AND, "&&"}})
	runTokenize(t, "OR", "||", []tokenCase{{token.OR, "||"}})
	runTokenize(t, "ARROW", "->", []tokenCase{{token.ARROW, "->"}})
	runTokenize(t, "FATARROW", "=>", []tokenCase{{token.FATARROW, "=>"}})
	runTokenize(t, "COLONCOLON", "::", []tokenCase{{token.COLONCOLON, "::"}})
	runTokenize(t, "DOTDOT", "..", []tokenCase{{token.DOTDOT, ".."}})
	runTokenize(t, "LSHIFT", "<<", []tokenCase{{token.LSHIFT, "<<"}})
	runTokenize(t, "RSHIFT", ">>", []tokenCase{{token.RSHIFT, ">>"}})
}

func TestCompoundAssignment(t *testing.T) {
	runTokenize(t, "PLUSEQ", "+=", []tokenCase{{token.PLUSEQ, "+="}})
	runTokenize(t, "MINUSEQ", "-=", []tokenCase{{token.MINUSEQ, "-="}})
	runTokenize(t, "STAREQ", "*=", []tokenCase{{token.STAREQ, "*="}})
	runTokenize(t, "SLASHEQ", "/=", []tokenCase{{token.SLASHEQ, "/="}})
	runTokenize(t, "PERCENTEQ", "%=", []tokenCase{{token.PERCENTEQ, "%="}})
	runTokenize(t, "AMPEQ", "&=", []tokenCase{{token.AMPEQ, "&="}})
	runTokenize(t, "PIPEEQ", "|=", []tokenCase{{token.PIPEEQ, "|="}})
	runTokenize(t, "CARETEQ", "^=", []tokenCase{{token.CARETEQ, "^="}})
	runTokenize(t, "LSHIFTEQ", "<<=", []tokenCase{{token.LSHIFTEQ, "<<="}})
	runTokenize(t, "RSHIFTEQ", ">>=", []tokenCase{{token.RSHIFTEQ, ">>="}})
}

func TestIntLiterals(t *testing.T) {
	runTokenize(t, "zero", "0", []tokenCase{{token.INT, "0"}})
	runTokenize(t, "single", "7", []tokenCase{{token.INT, "7"}})
	runTokenize(t, "multi", "42", []tokenCase{{token.INT, "42"}})
	runTokenize(t, "large", "1000000", []tokenCase{{token.INT, "1000000"}})
}

func TestFloatLiterals(t *testing.T) {
	runTokenize(t, "basic", "3.14", []tokenCase{{token.FLOAT, "3.14"}})
	runTokenize(t, "leading_zero", "0.5", []tokenCase{{token.FLOAT, "0.5"}})
	runTokenize(t, "exponent", "1.5e10", []tokenCase{{token.FLOAT, "1.5e10"}})
	runTokenize(t, "exponent_upper", "2.0E3", []tokenCase{{token.FLOAT, "2.0E3"}})
	runTokenize(t, "exponent_neg", "1.0e-5", []tokenCase{{token.FLOAT, "1.0e-5"}})
	runTokenize(t, "exponent_pos", "1.0e+5", []tokenCase{{token.FLOAT, "1.0e+5"}})
}

func TestHexBytesLiterals(t *testing.T) {
	runTokenize(t, "short", "0xff", []tokenCase{{token.BYTES, "0xff"}})
	runTokenize(t, "upper_x", "0XFF", []tokenCase{{token.BYTES, "0XFF"}})
	runTokenize(t, "deadbeef", "0xdeadbeef", []tokenCase{{token.BYTES, "0xdeadbeef"}})
	runTokenize(t, "mixed_case", "0xDeAdBeEf", []tokenCase{{token.BYTES, "0xDeAdBeEf"}})
}

func TestAddressLiterals(t *testing.T) {
	runTokenize(t, "short_addr", "@0x1234", []tokenCase{{token.ADDRESS, "@0x1234"}})
	runTokenize(t, "at_alone", "@", []tokenCase{{token.AT, "@"}})
	runTokenize(t, "at_nonhex", "@foo", []tokenCase{
		{token.AT, "@"},
		{token.IDENT, "foo"},
	})
}

func TestStringLiterals(t *testing.T) {
	runTokenize(t, "empty", `""`, []tokenCase{{token.STRING, `""`}})
	runTokenize(t, "hello", `"hello"`, []tokenCase{{token.STRING, `"hello"`}})
	runTokenize(t, "escape_n", `"line\nfeed"`, []tokenCase{{token.STRING, `"line\nfeed"`}})
	runTokenize(t, "escape_backslash", `"back\\slash"`, []tokenCase{{token.STRING, `"back\\slash"`}})
	runTokenize(t, "escape_quote", `"say\"hi\""`, []tokenCase{{token.STRING, `"say\"hi\""`}})
	runTokenize(t, "spaces", `"hello world"`, []tokenCase{{token.STRING, `"hello world"`}})
}

func TestUnterminatedString(t *testing.T) {
	runTokenize(t, "unterminated", `"oops`, []tokenCase{{token.ILLEGAL, `"oops`}})
}

func TestIdentifiers(t *testing.T) {
	runTokenize(t, "simple", "foo", []tokenCase{{token.IDENT, "foo"}})
	runTokenize(t, "underscore_prefix", "_bar", []tokenCase{{token.IDENT, "_bar"}})
	runTokenize(t, "underscore_only", "_", []tokenCase{{token.IDENT, "_"}})
	runTokenize(t, "mixed_case", "MyVar", []tokenCase{{token.IDENT, "MyVar"}})
	runTokenize(t, "with_digits", "x1y2z3", []tokenCase{{token.IDENT, "x1y2z3"}})
}

func TestKeywords(t *testing.T) {
	cases := []struct {
		kw  string
		typ token.Type
	}{
		{"fn", token.FN},
		{"let", token.LET},
		{"mut", token.MUT},
		{"move", token.MOVE},
		{"copy", token.COPY},
		{"drop", token.DROP},
		{"if", token.IF},
		{"else", token.ELSE},
		{"match", token.MATCH},
		{"for", token.FOR},
		{"in", token.IN},
		{"while", token.WHILE},
		{"loop", token.LOOP},
		{"return", token.RETURN},
		{"break", token.BREAK},
		{"continue", token.CONTINUE},
		{"struct", token.STRUCT},
		{"enum", token.ENUM},
		{"impl", token.IMPL},
		{"trait", token.TRAIT},
		{"type", token.TYPE},
		{"pub", token.PUB},
		{"use", token.USE},
		{"mod", token.MOD},
		{"as", token.AS},
		{"self", token.SELF},
		{"true", token.TRUE},
		{"false", token.FALSE},
		{"nil", token.NIL},
		{"yield", token.YIELD},
		{"await", token.AWAIT},
		{"async", token.ASYNC},
		{"generator", token.GENERATOR},
		{"stream", token.STREAM},
		{"agent", token.AGENT},
		{"msg", token.MSG},
		{"send", token.SEND},
		{"recv", token.RECV},
		{"spawn", token.SPAWN},
		{"state", token.STATE},
		{"tx", token.TX},
		{"emit", token.EMIT},
		{"require", token.REQUIRE},
		{"assert", token.ASSERT},
		{"resource", token.RESOURCE},
	}
	for _, c := range cases {
		runTokenize(t, c.kw, c.kw, []tokenCase{{c.typ, c.kw}})
	}
}

func TestKeywordPrefixIsIdent(t *testing.T) {
	runTokenize(t, "fn_prefix", "fnn", []tokenCase{{token.IDENT, "fnn"}})
	runTokenize(t, "let_prefix", "letx", []tokenCase{{token.IDENT, "letx"}})
	runTokenize(t, "if_prefix", "iff", []tokenCase{{token.IDENT, "iff"}})
}

func TestLineComment(t *testing.T) {
	runTokenize(t, "trailing_newline", "// hi\n42", []tokenCase{
		{token.COMMENT, "// hi"},
		{token.INT, "42"},
	})
	runTokenize(t, "to_eof", "// hi", []tokenCase{{token.COMMENT, "// hi"}})
}

func TestBlockComment(t *testing.T) {
	runTokenize(t, "single_line", "/* hi */42", []tokenCase{
		{token.COMMENT, "/* hi */"},
		{token.INT, "42"},
	})
	runTokenize(t, "multi_line", "/* a\nb */1", []tokenCase{
		{token.COMMENT, "/* a\nb */"},
		{token.INT, "1"},
	})
	runTokenize(t, "unterminated", "/* oops", []tokenCase{{token.ILLEGAL, "/* oops"}})
}

func TestFunctionSignature(t *testing.T) {
	runTokenize(t, "fn_sig", "fn add(a, b) -> int { a + b }", []tokenCase{
		{token.FN, "fn"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "a"},
		{token.COMMA, ","},
		{token.IDENT, "b"},
		{token.RPAREN, ")"},
		{token.ARROW, "->"},
		{token.IDENT, "int"},
		{token.LBRACE, "{"},
		{token.IDENT, "a"},
		{token.PLUS, "+"},
		{token.IDENT, "b"},
		{token.RBRACE, "}"},
	})
}

func TestGeneratorSignature(t *testing.T) {
	runTokenize(t, "generator_fn", "generator fn counter() { yield 1; }", []tokenCase{
		{token.GENERATOR, "generator"},
		{token.FN, "fn"},
		{token.IDENT, "counter"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.YIELD, "yield"},
		{token.INT, "1"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
	})
}

func TestWhitespaceAndPositions(t *testing.T) {
	l := lexer.New("pos.probe", "let\n  x = 1")
	toks := l.Tokenize()
	if toks[0].Pos.Line != 1 || toks[0].Pos.Column != 1 {
		t.Errorf("'let' position = %v, want line 1 col 1", toks[0].Pos)
	}
	if toks[1].Pos.Line != 2 {
		t.Errorf("'x' line = %d, want 2", toks[1].Pos.Line)
	}
}
