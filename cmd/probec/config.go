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
	"bufio"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// Config is the optional on-disk configuration probec.toml supplies,
// following the same decode-with-strict-field-matching convention
// go-probe's node config uses.
type Config struct {
	Chain struct {
		// Events lists the names chain::emit::<name> bindings are installed
		// for; a script emitting an event not listed here fails at run time
		// when the call is dispatched, the same way an unregistered native
		// call does.
		Events []string
		// Balances seeds the ledger before the script runs, keyed by a hex
		// address string, valued by a base-10 integer string (kept as a
		// string so it round-trips through TOML without precision loss).
		Balances map[string]string
	}
	VM struct {
		// Budget bounds the instructions a run/test/bench invocation may
		// execute before failing with vmerror.ErrBudgetExceeded. Zero means
		// unbounded.
		Budget int64
		Trace  bool
	}
}

// tomlSettings ensures TOML keys match Go struct field names exactly, the
// same convention go-probe's cmd/gprobe config loader uses.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field %q is not defined in %s", field, rt.String())
	},
}

// defaultConfig returns a Config with no seeded balances, no declared
// events, and an unbounded VM budget.
func defaultConfig() *Config {
	cfg := new(Config)
	cfg.Chain.Balances = make(map[string]string)
	return cfg
}

// loadConfig reads and decodes path, or returns defaultConfig() if path is
// empty. A *toml.LineError is rewrapped with the file name for a clearer
// CLI error, matching go-probe's cmd/gprobe config loader.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg); err != nil {
		if lerr, ok := err.(*toml.LineError); ok {
			return nil, fmt.Errorf("%s, line %d: %w", path, lerr.Line, lerr.Err)
		}
		return nil, err
	}
	return cfg, nil
}
