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
)

func TestLoadConfigEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(\"\"): %v", err)
	}
	if cfg.VM.Budget != 0 || cfg.VM.Trace {
		t.Fatalf("expected zero-value VM config, got %+v", cfg.VM)
	}
}

func TestLoadConfigDecodesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probec.toml")
	src := `
[VM]
Budget = 1000
Trace = true

[Chain]
Events = ["Transfer", "Mint"]

[Chain.Balances]
aa = "500"
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.VM.Budget != 1000 || !cfg.VM.Trace {
		t.Fatalf("VM = %+v, want Budget=1000 Trace=true", cfg.VM)
	}
	if len(cfg.Chain.Events) != 2 {
		t.Fatalf("Events = %v, want 2 entries", cfg.Chain.Events)
	}
	if cfg.Chain.Balances["aa"] != "500" {
		t.Fatalf("Balances[aa] = %q, want \"500\"", cfg.Chain.Balances["aa"])
	}
}

func TestLoadConfigRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probec.toml")
	src := "[VM]\nNotAField = 1\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Fatal("expected an error decoding an unrecognized TOML field")
	}
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
