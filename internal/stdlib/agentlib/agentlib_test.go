package agentlib

import (
	"testing"
	"time"

	"github.com/probelang/probe-lang/internal/stack"
	"github.com/probelang/probe-lang/internal/value"
)

func TestSpawnSendRecvRoundTrip(t *testing.T) {
	r := NewRegistry()
	received := make(chan value.Value, 1)

	id := r.Spawn(func(self string) {
		msg, err := r.Recv()
		if err != nil {
			t.Errorf("Recv inside spawned agent: %v", err)
			return
		}
		received <- msg
	})

	if err := r.Send(id, value.Integer(7)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case msg := <-received:
		n, err := msg.AsInteger()
		if err != nil || n != 7 {
			t.Fatalf("received %v, want 7", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for spawned agent to receive message")
	}
}

func TestSendToUnknownAgentFails(t *testing.T) {
	r := NewRegistry()
	if err := r.Send("nonexistent", value.Integer(1)); err == nil {
		t.Fatal("expected an error sending to an unknown agent")
	}
}

func TestSelfOutsideAgentFails(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Self(); ok {
		t.Fatal("Self() must report false outside a spawned agent body")
	}
}

func TestSelfInsideSpawnedBodyMatchesReturnedID(t *testing.T) {
	r := NewRegistry()
	seen := make(chan string, 1)
	id := r.Spawn(func(self string) {
		got, ok := r.Self()
		if !ok {
			t.Error("Self() reported false inside a spawned agent body")
			return
		}
		seen <- got
	})
	select {
	case got := <-seen:
		if got != id {
			t.Fatalf("Self() = %q inside spawned body, want %q", got, id)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for spawned agent to report Self()")
	}
}

func TestNativeSpawnSendRecvSelf(t *testing.T) {
	r := NewRegistry()
	s := stack.New()

	spawnOut := s.Push(value.Unit())
	if err := r.nativeSpawn(s, 0, 0, spawnOut); err != nil {
		t.Fatalf("nativeSpawn: %v", err)
	}
	idVal, _ := s.At(spawnOut)
	id, err := idVal.AsString()
	if err != nil {
		t.Fatalf("spawned id not a string: %v", err)
	}

	targetAddr := s.Push(value.String(id))
	_ = s.Push(value.Integer(99))
	sendOut := targetAddr + 2
	s.Widen(int(sendOut) + 1)
	if err := r.nativeSend(s, targetAddr, 2, sendOut); err != nil {
		t.Fatalf("nativeSend: %v", err)
	}
	ok, err := mustAt(t, s, sendOut).AsBool()
	if err != nil || !ok {
		t.Fatalf("nativeSend did not report success: %v %v", ok, err)
	}
}

func mustAt(t *testing.T, s *stack.Stack, addr int64) value.Value {
	t.Helper()
	v, ok := s.At(addr)
	if !ok {
		t.Fatalf("no value at address %d", addr)
	}
	return v
}
