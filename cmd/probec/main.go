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

// Command probec is the scripting language's compiler/runner CLI: it drives
// the lexer/parser/resolver/lower/codegen pipeline and the runtime VM
// against a host context carrying the math, crypto, chain, and agent
// modules. Built on gopkg.in/urfave/cli.v1, the same CLI library go-probe's
// own command-line tools use.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"
)

var gitCommit = "" // set via -ldflags at build time, following go-probe's convention

func main() {
	app := cli.NewApp()
	app.Name = "probec"
	app.Usage = "compile and run scripts against the register-style VM"
	app.Version = versionString()
	app.Commands = []cli.Command{
		runCommand,
		testCommand,
		benchCommand,
		disasmCommand,
		docCommand,
		fmtCommand,
		lspCommand,
	}
	app.CommandNotFound = func(c *cli.Context, name string) {
		fmt.Fprintf(os.Stderr, "probec: no such command %q\n", name)
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionString() string {
	if gitCommit == "" {
		return "dev"
	}
	return gitCommit
}

// notImplemented builds a stub command for a subcommand the CLI names but
// does not implement in this build (doc generation, source formatting, and
// the LSP server are peripheral tooling out of this build's scope).
func notImplemented(name, usage string) cli.Command {
	return cli.Command{
		Name:     name,
		Usage:    usage,
		Category: "PIPELINE COMMANDS",
		Action: func(c *cli.Context) error {
			return cli.NewExitError(fmt.Sprintf("%s: not implemented in this build", name), 1)
		},
	}
}

var (
	docCommand = notImplemented("doc", "generate HTML documentation (not implemented in this build)")
	fmtCommand = notImplemented("fmt", "format a source file (not implemented in this build)")
	lspCommand = notImplemented("lsp", "run the language server (not implemented in this build)")
)
