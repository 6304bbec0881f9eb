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
	"io"
	"os"
	"sort"

	"github.com/mattn/go-colorable"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/unit"
	"github.com/probelang/probe-lang/internal/unitfmt"
)

var cachedFlag = cli.BoolFlag{
	Name:  "cached",
	Usage: "treat <file> as a persisted unit (internal/unitfmt) rather than source",
}

var disasmCommand = cli.Command{
	Action:    disasmAction,
	Name:      "disasm",
	Usage:     "print a unit's function table and instruction stream",
	ArgsUsage: "<file>",
	Category:  "PIPELINE COMMANDS",
	Flags:     []cli.Flag{configFlag, cachedFlag},
	Description: `
Compiles <file> (or, with --cached, decodes it as an internal/unitfmt-
persisted unit) and prints its function table and every function's
instructions in two tables.`,
}

func disasmAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("disasm: expected a file", 1)
	}
	file := c.Args()[0]

	var u *unit.Unit
	if c.Bool("cached") {
		f, err := os.Open(file)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("disasm: %v", err), 1)
		}
		defer f.Close()
		decoded, err := unitfmt.Decode(f)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("disasm: %v", err), 1)
		}
		u = decoded
	} else {
		cfg, err := loadConfig(c.String("config"))
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("disasm: %v", err), 1)
		}
		comp, err := compileFile(file, cfg)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("disasm: %v", err), 1)
		}
		u = comp.unit
	}

	out := colorable.NewColorableStdout()

	printFunctionTable(out, u)
	printInstructions(out, u)
	return nil
}

type fnRow struct {
	name string
	meta unit.FunctionMeta
}

func sortedFunctions(u *unit.Unit) []fnRow {
	rows := make([]fnRow, 0, len(u.Functions))
	for h, meta := range u.Functions {
		name := meta.Name
		if name == "" {
			name = fmt.Sprintf("0x%016x", uint64(h))
		}
		rows = append(rows, fnRow{name: name, meta: meta})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].meta.Offset < rows[j].meta.Offset })
	return rows
}

func printFunctionTable(out io.Writer, u *unit.Unit) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Function", "Offset", "Args", "Call Kind"})
	for _, row := range sortedFunctions(u) {
		table.Append([]string{
			row.name,
			fmt.Sprintf("%d", row.meta.Offset),
			fmt.Sprintf("%d", row.meta.Args),
			row.meta.CallKind.String(),
		})
	}
	table.Render()
}

func printInstructions(out io.Writer, u *unit.Unit) {
	rows := sortedFunctions(u)
	boundary := func(ip uint32) string {
		for _, row := range rows {
			if row.meta.Offset == ip {
				return row.name
			}
		}
		return ""
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"IP", "Function", "Op", "A", "B", "C", "Out", "Imm", "Hash"})
	for ip := uint32(0); ip < uint32(len(u.Instructions)); ip++ {
		instr, ok := u.InstructionAt(ip)
		if !ok {
			break
		}
		hashCol := ""
		if instr.Hash != hash.Hash(0) {
			hashCol = fmt.Sprintf("0x%016x", uint64(instr.Hash))
		}
		table.Append([]string{
			fmt.Sprintf("%d", ip),
			boundary(ip),
			instr.Op.String(),
			fmt.Sprintf("%d", instr.A),
			fmt.Sprintf("%d", instr.B),
			fmt.Sprintf("%d", instr.C),
			fmt.Sprintf("%d", instr.Out),
			fmt.Sprintf("%d", instr.Imm),
			hashCol,
		})
	}
	table.Render()
}
