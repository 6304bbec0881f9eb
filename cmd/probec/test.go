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
	"sort"

	"github.com/fatih/color"
	"gopkg.in/urfave/cli.v1"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/runtime"
	"github.com/probelang/probe-lang/internal/value"
)

// testFnPrefix names the convention test discovery uses in place of a
// dedicated language-level test annotation: any zero-argument top-level
// function named test_* is a test case. A bool return of false, or any
// runtime error, fails the case; unit or true passes it.
const testFnPrefix = "test_"

var testCommand = cli.Command{
	Action:    testAction,
	Name:      "test",
	Usage:     "run every test_* function in a file",
	ArgsUsage: "<file>",
	Category:  "PIPELINE COMMANDS",
	Flags:     []cli.Flag{budgetFlag, configFlag},
	Description: `
Compiles <file> and runs every zero-argument top-level function whose name
starts with "test_", each against its own fresh host context so one test's
chain-state or agent mutations cannot leak into another. Prints a PASS/FAIL
line per test and a summary, exiting non-zero if any test failed.`,
}

func testAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("test: expected a source file", 1)
	}
	file := c.Args()[0]

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("test: %v", err), 1)
	}
	if budget := c.Int64("budget"); budget != 0 {
		cfg.VM.Budget = budget
	}

	comp, err := compileFile(file, cfg)
	if err != nil {
		color.Red("test: %v", err)
		return cli.NewExitError("", 1)
	}

	names := testFnNames(comp)
	if len(names) == 0 {
		fmt.Println("test: no test_* functions found")
		return nil
	}

	failures := 0
	for _, name := range names {
		err := runCase(comp, cfg, name)
		if err != nil {
			failures++
			color.Red("FAIL %s: %v", name, err)
			continue
		}
		color.Green("PASS %s", name)
	}

	fmt.Printf("%d passed, %d failed\n", len(names)-failures, failures)
	if failures > 0 {
		return cli.NewExitError("", 1)
	}
	return nil
}

// testFnNames picks which functions to run, leaving the actual Context
// construction (fresh per case, so chain/agent state never leaks between
// tests) to runCase.
func testFnNames(comp *compiled) []string {
	fns := topLevelFnsWithPrefix(comp.module, testFnPrefix)
	names := make([]string, 0, len(fns))
	for _, fn := range fns {
		names = append(names, fn.Name)
	}
	sort.Strings(names)
	return names
}

// runCase runs a zero-argument function to completion against a fresh
// Context (so chain/agent state from one test never leaks into the next),
// reusing comp's already-compiled Unit and failing if the function itself
// errors or returns a false bool.
func runCase(comp *compiled, cfg *Config, name string) error {
	meta, ok := comp.unit.Function(hash.String(name))
	if !ok {
		return fmt.Errorf("function not found after compilation")
	}
	if meta.Args != 0 {
		return fmt.Errorf("%s must take zero arguments, takes %d", name, meta.Args)
	}
	ctx, _, err := newContext(cfg)
	if err != nil {
		return err
	}
	vm := runtime.NewAt(comp.unit, ctx, meta.Offset, nil, vmOptions(cfg)...)
	result, err := vm.Run()
	if err != nil {
		return err
	}
	if result.Kind() == value.KindBool {
		if ok, _ := result.AsBool(); !ok {
			return fmt.Errorf("returned false")
		}
	}
	return nil
}
