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
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"gopkg.in/urfave/cli.v1"

	"github.com/probelang/probe-lang/internal/alloc"
	"github.com/probelang/probe-lang/internal/diagnostics"
	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/runtime"
	"github.com/probelang/probe-lang/internal/value"
)

var (
	entryFlag = cli.StringFlag{
		Name:  "entry",
		Usage: "name of the function to invoke",
		Value: "main",
	}
	budgetFlag = cli.Int64Flag{
		Name:  "budget",
		Usage: "instruction budget; 0 means the value from probec.toml, or unbounded",
	}
	traceFlag = cli.BoolFlag{
		Name:  "trace",
		Usage: "log every dispatched instruction to stderr",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a probec.toml overriding chain/VM defaults",
	}
)

var runCommand = cli.Command{
	Action:    runAction,
	Name:      "run",
	Usage:     "compile and execute a script",
	ArgsUsage: "<file> [args...]",
	Category:  "PIPELINE COMMANDS",
	Flags:     []cli.Flag{entryFlag, budgetFlag, traceFlag, configFlag},
	Description: `
Compiles <file> through the lexer/parser/resolver/lower/codegen pipeline
and runs the resulting unit's --entry function (default "main") against a
fresh host context with the math, crypto, chain, and agent modules
installed. Any arguments after <file> are parsed as integers, booleans, or
left as strings, and passed as the entry function's arguments in order.`,
}

func runAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("run: expected a source file", 1)
	}
	args := c.Args()
	file := args[0]

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("run: %v", err), 1)
	}
	if budget := c.Int64("budget"); budget != 0 {
		cfg.VM.Budget = budget
	}
	if c.Bool("trace") {
		cfg.VM.Trace = true
	}

	comp, err := compileFile(file, cfg)
	if err != nil {
		color.Red("run: %v", err)
		return cli.NewExitError("", 1)
	}

	entry := c.String("entry")
	meta, ok := comp.unit.Function(hash.String(entry))
	if !ok {
		return cli.NewExitError(fmt.Sprintf("run: function %q not found in %s", entry, file), 1)
	}

	callArgs, err := parseCLIArgs(args.Tail())
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("run: %v", err), 1)
	}
	if uint32(len(callArgs)) != meta.Args {
		return cli.NewExitError(fmt.Sprintf("run: %s expects %d argument(s), got %d", entry, meta.Args, len(callArgs)), 1)
	}

	opts := vmOptions(cfg)
	vm := runtime.NewAt(comp.unit, comp.ctx, meta.Offset, callArgs, opts...)
	result, err := vm.Run()
	if err != nil {
		color.Red("run: %v", err)
		return cli.NewExitError("", 1)
	}
	fmt.Println(formatValue(result))
	return nil
}

// vmOptions builds the runtime.Option set common to run/test/bench: an
// instruction budget (unbounded when cfg.VM.Budget is zero) and a
// diagnostics sink. When tracing is requested the sink logs deprecations and
// per-instruction traces; otherwise it discards all diagnostics.
func vmOptions(cfg *Config) []runtime.Option {
	budget := alloc.Unbounded()
	if cfg.VM.Budget > 0 {
		budget = alloc.NewBudget(cfg.VM.Budget)
	}
	sink := diagnostics.Sink(diagnostics.NoOp())
	if cfg.VM.Trace {
		sink = diagnostics.NewLogSink(true)
	}
	return []runtime.Option{runtime.WithBudget(budget), runtime.WithSink(sink)}
}

// parseCLIArgs converts raw command-line words into Values: an integer if
// it parses as one, else a bool if it parses as one, else the literal
// string.
func parseCLIArgs(words []string) ([]value.Value, error) {
	out := make([]value.Value, 0, len(words))
	for _, w := range words {
		if n, err := strconv.ParseInt(w, 10, 64); err == nil {
			out = append(out, value.Integer(n))
			continue
		}
		if b, err := strconv.ParseBool(w); err == nil {
			out = append(out, value.Bool(b))
			continue
		}
		out = append(out, value.String(w))
	}
	return out, nil
}

// formatValue renders a result value for CLI output. Composite/opaque
// values fall back to their Kind name since no DEBUG_FMT formatter is
// wired into the CLI itself (protocol dispatch for user-defined Debug
// formatting happens inside the VM, not here).
func formatValue(v value.Value) string {
	switch v.Kind() {
	case value.KindUnit:
		return "()"
	case value.KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b)
	case value.KindInteger:
		n, _ := v.AsInteger()
		return strconv.FormatInt(n, 10)
	case value.KindFloat:
		f, _ := v.AsFloat()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case value.KindString:
		s, _ := v.AsString()
		return s
	case value.KindBytes:
		b, _ := v.AsBytes()
		return fmt.Sprintf("%x", b)
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}
