// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package agentlib is the "agent" host module backing the language's
// actor-model primitives (ir.OpSpawn/OpSend/OpRecv/OpSelf, each lowered by
// internal/codegen to a plain OpCall against the "agent::*" names this
// package registers). Grounded on the teacher's stdlib/agent package, whose
// Identity/Message types fix an agent's shape (an address, a mailbox) even
// though that package stopped short of providing a runnable registry;
// agent identity here is a github.com/google/uuid string rather than the
// teacher's on-chain [20]byte address, since spawned agents in this module
// are host-process goroutines, not ledger accounts.
package agentlib

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/module"
	"github.com/probelang/probe-lang/internal/value"
)

// mailboxCapacity bounds how many undelivered messages an agent will
// buffer before Send fails with a "mailbox full" error.
const mailboxCapacity = 64

// Agent is one spawned actor: an identity and a buffered mailbox.
type Agent struct {
	ID      string
	Mailbox chan value.Value
}

// Registry is the host-side actor directory the agent:: native functions
// operate against: it creates agents, routes messages between their
// mailboxes, and tracks which agent the calling goroutine currently is.
type Registry struct {
	mu     sync.Mutex
	agents map[string]*Agent

	selfMu sync.Mutex
	self   map[uint64]string
}

// NewRegistry returns an empty actor directory.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]*Agent),
		self:   make(map[uint64]string),
	}
}

// Spawn creates a new agent and runs body on its own goroutine, with
// agent::self resolving to the new agent's ID for the duration of body.
// The returned ID is available to the caller immediately.
func (r *Registry) Spawn(body func(self string)) string {
	id := uuid.NewString()
	a := &Agent{ID: id, Mailbox: make(chan value.Value, mailboxCapacity)}

	r.mu.Lock()
	r.agents[id] = a
	r.mu.Unlock()

	started := make(chan struct{})
	go func() {
		r.setSelf(id)
		defer r.clearSelf()
		close(started)
		body(id)
	}()
	<-started
	return id
}

// Send enqueues payload on the target agent's mailbox, failing if the
// target does not exist or its mailbox is full.
func (r *Registry) Send(target string, payload value.Value) error {
	r.mu.Lock()
	a, ok := r.agents[target]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("agentlib: no such agent %q", target)
	}
	select {
	case a.Mailbox <- payload:
		return nil
	default:
		return fmt.Errorf("agentlib: mailbox full for agent %q", target)
	}
}

// Recv blocks until a message arrives in the calling goroutine's own
// mailbox, identified via Self.
func (r *Registry) Recv() (value.Value, error) {
	id, ok := r.Self()
	if !ok {
		return value.Value{}, fmt.Errorf("agentlib: recv called outside an agent")
	}
	r.mu.Lock()
	a, ok := r.agents[id]
	r.mu.Unlock()
	if !ok {
		return value.Value{}, fmt.Errorf("agentlib: no such agent %q", id)
	}
	msg := <-a.Mailbox
	return msg, nil
}

// Self reports the calling goroutine's own agent ID, if it is running
// inside a Spawn-managed body.
func (r *Registry) Self() (string, bool) {
	gid := goroutineID()
	r.selfMu.Lock()
	defer r.selfMu.Unlock()
	id, ok := r.self[gid]
	return id, ok
}

func (r *Registry) setSelf(id string) {
	r.selfMu.Lock()
	defer r.selfMu.Unlock()
	r.self[goroutineID()] = id
}

func (r *Registry) clearSelf() {
	gid := goroutineID()
	r.selfMu.Lock()
	defer r.selfMu.Unlock()
	delete(r.self, gid)
}

// goroutineID extracts the runtime-assigned goroutine number from the
// "goroutine N [running]:" header runtime.Stack prints; there is no
// exported API for this, but it is the standard way to key per-goroutine
// state when a value (here, "which agent am I") must not cross a
// NativeHandler's fixed (stack, args, output) signature.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := strings.Fields(string(buf[:n]))[1]
	id, err := strconv.ParseUint(field, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ---- Native bindings -------------------------------------------------------

func writeOutput(stack value.Stack, output int64, v value.Value) {
	if output < 0 {
		return
	}
	stack.Set(output, v)
}

// nativeSpawn spawns an agent with an empty body: a NativeHandler cannot
// invoke a script-level closure, so the body reads no messages and returns
// at once. The agent stays registered, so Send/Recv/Self still have
// somewhere to target.
func (r *Registry) nativeSpawn(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	id := r.Spawn(func(self string) {})
	writeOutput(stack, output, value.String(id))
	return nil
}

func (r *Registry) nativeSend(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	if argCount < 2 {
		return fmt.Errorf("agentlib: send requires 2 arguments")
	}
	targetArg, ok := stack.At(argsAddr)
	if !ok {
		return fmt.Errorf("agentlib: send: missing target argument")
	}
	target, err := targetArg.AsString()
	if err != nil {
		return fmt.Errorf("agentlib: send: target must be a string agent id: %w", err)
	}
	payload, ok := stack.At(argsAddr + 1)
	if !ok {
		return fmt.Errorf("agentlib: send: missing payload argument")
	}
	if err := r.Send(target, payload); err != nil {
		writeOutput(stack, output, value.Bool(false))
		return nil
	}
	writeOutput(stack, output, value.Bool(true))
	return nil
}

func (r *Registry) nativeRecv(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	msg, err := r.Recv()
	if err != nil {
		return err
	}
	writeOutput(stack, output, msg)
	return nil
}

func (r *Registry) nativeSelf(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	id, ok := r.Self()
	if !ok {
		return fmt.Errorf("agentlib: self called outside an agent")
	}
	writeOutput(stack, output, value.String(id))
	return nil
}

// Register builds the "agent" host module bound to this Registry.
func Register(r *Registry) (*module.Module, error) {
	m := module.New("agent")

	fns := []struct {
		name    string
		handler value.NativeHandler
	}{
		{"agent::spawn", r.nativeSpawn},
		{"agent::send", r.nativeSend},
		{"agent::recv", r.nativeRecv},
		{"agent::self", r.nativeSelf},
	}
	for _, f := range fns {
		decl := module.FunctionDecl{
			Hash:    hash.String(f.name),
			Handler: f.handler,
			Meta:    module.Meta{Doc: f.name + " — see internal/stdlib/agentlib"},
		}
		if err := m.RegisterFunction(decl); err != nil {
			return nil, err
		}
	}
	return m, nil
}
