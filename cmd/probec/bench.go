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
	"time"

	"github.com/fatih/color"
	"gopkg.in/urfave/cli.v1"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/runtime"
)

const benchFnPrefix = "bench_"

// minBenchDuration is how long each benchmark function's timing loop runs
// before reporting ns/op, matching the order of magnitude Go's own testing
// package targets (go test -bench defaults to 1s per benchmark; this is
// scaled down since each call here re-enters a fresh VM rather than
// amortizing setup the way b.N does).
const minBenchDuration = 200 * time.Millisecond

var benchCommand = cli.Command{
	Action:    benchAction,
	Name:      "bench",
	Usage:     "time every bench_* function in a file",
	ArgsUsage: "<file>",
	Category:  "PIPELINE COMMANDS",
	Flags:     []cli.Flag{budgetFlag, configFlag},
	Description: `
Compiles <file> and repeatedly calls every zero-argument top-level function
whose name starts with "bench_" for at least 200ms each, against a fresh
host context per function, then reports iterations and nanoseconds/op.`,
}

func benchAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("bench: expected a source file", 1)
	}
	file := c.Args()[0]

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("bench: %v", err), 1)
	}
	if budget := c.Int64("budget"); budget != 0 {
		cfg.VM.Budget = budget
	}

	comp, err := compileFile(file, cfg)
	if err != nil {
		color.Red("bench: %v", err)
		return cli.NewExitError("", 1)
	}

	fns := topLevelFnsWithPrefix(comp.module, benchFnPrefix)
	names := make([]string, 0, len(fns))
	for _, fn := range fns {
		names = append(names, fn.Name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		fmt.Println("bench: no bench_* functions found")
		return nil
	}

	for _, name := range names {
		iters, elapsed, err := runBenchCase(comp, cfg, name)
		if err != nil {
			color.Red("%s: %v", name, err)
			continue
		}
		nsPerOp := elapsed.Nanoseconds() / int64(iters)
		fmt.Printf("%-24s %10d iters %12d ns/op\n", name, iters, nsPerOp)
	}
	return nil
}

// runBenchCase calls name repeatedly, each call against a fresh VM and
// Context so one iteration's chain/agent mutations do not skew the next,
// until minBenchDuration has elapsed, then reports the iteration count and
// total elapsed time.
func runBenchCase(comp *compiled, cfg *Config, name string) (int, time.Duration, error) {
	meta, ok := comp.unit.Function(hash.String(name))
	if !ok {
		return 0, 0, fmt.Errorf("function not found after compilation")
	}
	if meta.Args != 0 {
		return 0, 0, fmt.Errorf("%s must take zero arguments, takes %d", name, meta.Args)
	}

	iters := 0
	start := time.Now()
	for {
		ctx, _, err := newContext(cfg)
		if err != nil {
			return 0, 0, err
		}
		vm := runtime.NewAt(comp.unit, ctx, meta.Offset, nil, vmOptions(cfg)...)
		if _, err := vm.Run(); err != nil {
			return 0, 0, err
		}
		iters++
		if elapsed := time.Since(start); elapsed >= minBenchDuration {
			return iters, elapsed, nil
		}
	}
}
