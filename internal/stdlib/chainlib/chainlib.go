// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package chainlib is the "chain" host module backing the language's
// blockchain host-context primitives: account balances, transfers, event
// emission, and the caller/block_number/block_timestamp transaction
// context reads. Grounded on go-probeum's StateDB balance bookkeeping
// (core/state/statedb.go's GetBalance/AddBalance/SubBalance), adapted from
// *big.Int to *uint256.Int — the fixed-width word type the rest of the
// go-probeum dependency set (github.com/holiman/uint256) already carries
// for on-chain numeric state.
package chainlib

import (
	"encoding/hex"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/module"
	"github.com/probelang/probe-lang/internal/value"
)

// balanceCacheSize bounds the recently-touched-account LRU; eviction only
// affects lookup cost; Ledger.balances remains the source of truth.
const balanceCacheSize = 1024

// Event is one emitted log entry, in the named-fields shape ast.EmitStmt
// produces.
type Event struct {
	Name   string
	Fields map[string]value.Value
	Order  []string
}

// Ledger is the host-side blockchain state a running unit observes through
// the chain:: native functions: account balances, the pending transaction's
// caller, the current block's number/timestamp, and the event log.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]*uint256.Int
	cache    *lru.Cache

	caller      string
	blockNumber uint64
	blockTime   uint64

	Events []Event
}

// NewLedger returns an empty Ledger with zero balances and an unset
// transaction context.
func NewLedger() *Ledger {
	cache, _ := lru.New(balanceCacheSize)
	return &Ledger{
		balances: make(map[string]*uint256.Int),
		cache:    cache,
	}
}

// SetContext installs the transaction context (caller address, block
// number, block timestamp) a test harness or host driver reads from the
// chain before running a unit.
func (l *Ledger) SetContext(caller string, blockNumber, blockTime uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.caller = caller
	l.blockNumber = blockNumber
	l.blockTime = blockTime
}

func addrKey(addr []byte) string { return hex.EncodeToString(addr) }

// Balance returns addr's current balance, zero if the address has never
// been credited.
func (l *Ledger) Balance(addr []byte) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(addrKey(addr))
}

func (l *Ledger) balanceLocked(key string) *uint256.Int {
	if cached, ok := l.cache.Get(key); ok {
		return cached.(*uint256.Int)
	}
	b, ok := l.balances[key]
	if !ok {
		b = uint256.NewInt(0)
		l.balances[key] = b
	}
	l.cache.Add(key, b)
	return b
}

// SetBalance overwrites addr's balance directly, bypassing Transfer's
// insufficient-balance check. Used to seed initial account state before a
// unit runs, mirroring go-probeum's StateDB.SetBalance alongside its
// GetBalance/AddBalance/SubBalance.
func (l *Ledger) SetBalance(addr []byte, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := addrKey(addr)
	l.balances[key] = amount
	l.cache.Add(key, amount)
}

// Transfer moves amount from `from` to `to`, failing without mutating
// either balance if `from` does not hold enough.
func (l *Ledger) Transfer(from, to []byte, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	fromKey, toKey := addrKey(from), addrKey(to)
	fromBal := l.balanceLocked(fromKey)
	if fromBal.Lt(amount) {
		return fmt.Errorf("chainlib: insufficient balance: have %s, need %s", fromBal.String(), amount.String())
	}
	toBal := l.balanceLocked(toKey)

	newFrom := new(uint256.Int).Sub(fromBal, amount)
	newTo := new(uint256.Int).Add(toBal, amount)
	l.balances[fromKey] = newFrom
	l.balances[toKey] = newTo
	l.cache.Add(fromKey, newFrom)
	l.cache.Add(toKey, newTo)
	return nil
}

// Emit appends an event to the log.
func (l *Ledger) Emit(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Events = append(l.Events, e)
}

// Caller returns the current transaction's caller address.
func (l *Ledger) Caller() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.caller
}

// BlockNumber returns the current block number.
func (l *Ledger) BlockNumber() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blockNumber
}

// BlockTimestamp returns the current block timestamp.
func (l *Ledger) BlockTimestamp() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blockTime
}

// ---- Native bindings -------------------------------------------------------

func writeOutput(stack value.Stack, output int64, v value.Value) {
	if output < 0 {
		return
	}
	stack.Set(output, v)
}

func argBytes(stack value.Stack, addr int64) ([]byte, error) {
	v, ok := stack.At(addr)
	if !ok {
		return nil, fmt.Errorf("chainlib: missing argument at %d", addr)
	}
	return v.AsBytes()
}

func u256FromValue(v value.Value) (*uint256.Int, error) {
	n, err := v.AsInteger()
	if err != nil {
		return nil, fmt.Errorf("chainlib: expected an integer amount: %w", err)
	}
	if n < 0 {
		return nil, fmt.Errorf("chainlib: amount must not be negative")
	}
	return uint256.NewInt(uint64(n)), nil
}

func (l *Ledger) nativeBalance(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	addr, err := argBytes(stack, argsAddr)
	if err != nil {
		return err
	}
	bal := l.Balance(addr)
	if !bal.IsUint64() {
		return fmt.Errorf("chainlib: balance exceeds representable integer range")
	}
	writeOutput(stack, output, value.Integer(int64(bal.Uint64())))
	return nil
}

func (l *Ledger) nativeTransfer(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	if argCount < 3 {
		return fmt.Errorf("chainlib: transfer requires 3 arguments")
	}
	from, err := argBytes(stack, argsAddr)
	if err != nil {
		return err
	}
	to, err := argBytes(stack, argsAddr+1)
	if err != nil {
		return err
	}
	amtVal, ok := stack.At(argsAddr + 2)
	if !ok {
		return fmt.Errorf("chainlib: transfer: missing amount argument")
	}
	amount, err := u256FromValue(amtVal)
	if err != nil {
		return err
	}
	if err := l.Transfer(from, to, amount); err != nil {
		writeOutput(stack, output, value.Bool(false))
		return nil
	}
	writeOutput(stack, output, value.Bool(true))
	return nil
}

func (l *Ledger) nativeCaller(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	addr, err := hex.DecodeString(l.Caller())
	if err != nil {
		addr = nil
	}
	writeOutput(stack, output, value.Bytes(addr))
	return nil
}

func (l *Ledger) nativeBlockNum(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	writeOutput(stack, output, value.Integer(int64(l.BlockNumber())))
	return nil
}

func (l *Ledger) nativeBlockTime(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	writeOutput(stack, output, value.Integer(int64(l.BlockTimestamp())))
	return nil
}

// Register builds the "chain" host module bound to this Ledger. Unlike
// OpEmit's event-name family (one registration per event name a unit
// references, since internal/codegen bakes the event name into the call's
// hash as "chain::emit::<name>"), the rest of the surface is a fixed set of
// five names.
func Register(l *Ledger, eventNames []string) (*module.Module, error) {
	m := module.New("chain")

	fns := []struct {
		name    string
		handler value.NativeHandler
	}{
		{"chain::balance", l.nativeBalance},
		{"chain::transfer", l.nativeTransfer},
		{"chain::caller", l.nativeCaller},
		{"chain::block_number", l.nativeBlockNum},
		{"chain::block_timestamp", l.nativeBlockTime},
	}
	for _, f := range fns {
		decl := module.FunctionDecl{
			Hash:    hash.String(f.name),
			Handler: f.handler,
			Meta:    module.Meta{Doc: f.name + " — see internal/stdlib/chainlib"},
		}
		if err := m.RegisterFunction(decl); err != nil {
			return nil, err
		}
	}
	for _, name := range eventNames {
		eventName := name
		handlerName := "chain::emit::" + eventName
		decl := module.FunctionDecl{
			Hash:    hash.String(handlerName),
			Handler: l.nativeEmit(eventName),
			Meta:    module.Meta{Doc: handlerName + " — see internal/stdlib/chainlib"},
		}
		if err := m.RegisterFunction(decl); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (l *Ledger) nativeEmit(eventName string) value.NativeHandler {
	return func(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
		fields := make(map[string]value.Value, argCount)
		order := make([]string, argCount)
		for i := uint32(0); i < argCount; i++ {
			v, ok := stack.At(argsAddr + int64(i))
			if !ok {
				return fmt.Errorf("chainlib: emit %q: missing field %d", eventName, i)
			}
			name := fmt.Sprintf("arg%d", i)
			fields[name] = v
			order[i] = name
		}
		l.Emit(Event{Name: eventName, Fields: fields, Order: order})
		return nil
	}
}
