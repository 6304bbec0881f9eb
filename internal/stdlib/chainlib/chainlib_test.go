package chainlib

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/probelang/probe-lang/internal/stack"
	"github.com/probelang/probe-lang/internal/value"
)

func TestTransferMovesBalance(t *testing.T) {
	l := NewLedger()
	alice := []byte{0x01}
	bob := []byte{0x02}

	l.balances[addrKey(alice)] = uint256.NewInt(100)

	if err := l.Transfer(alice, bob, uint256.NewInt(40)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := l.Balance(alice).Uint64(); got != 60 {
		t.Fatalf("alice balance = %d, want 60", got)
	}
	if got := l.Balance(bob).Uint64(); got != 40 {
		t.Fatalf("bob balance = %d, want 40", got)
	}
}

func TestTransferInsufficientBalanceLeavesStateUnchanged(t *testing.T) {
	l := NewLedger()
	alice := []byte{0x01}
	bob := []byte{0x02}
	l.balances[addrKey(alice)] = uint256.NewInt(10)

	if err := l.Transfer(alice, bob, uint256.NewInt(50)); err == nil {
		t.Fatal("expected an insufficient-balance error")
	}
	if got := l.Balance(alice).Uint64(); got != 10 {
		t.Fatalf("alice balance mutated to %d despite failed transfer", got)
	}
	if got := l.Balance(bob).Uint64(); got != 0 {
		t.Fatalf("bob balance mutated to %d despite failed transfer", got)
	}
}

func TestEmitAppendsEvent(t *testing.T) {
	l := NewLedger()
	l.Emit(Event{Name: "Transfer", Fields: map[string]value.Value{"amount": value.Integer(5)}, Order: []string{"amount"}})
	if len(l.Events) != 1 || l.Events[0].Name != "Transfer" {
		t.Fatalf("Events = %+v, want one Transfer event", l.Events)
	}
}

func TestContextReads(t *testing.T) {
	l := NewLedger()
	l.SetContext("01", 42, 1000)
	if l.BlockNumber() != 42 {
		t.Fatalf("BlockNumber = %d, want 42", l.BlockNumber())
	}
	if l.BlockTimestamp() != 1000 {
		t.Fatalf("BlockTimestamp = %d, want 1000", l.BlockTimestamp())
	}
	if l.Caller() != "01" {
		t.Fatalf("Caller = %q, want %q", l.Caller(), "01")
	}
}

func TestNativeBalanceAndTransfer(t *testing.T) {
	l := NewLedger()
	alice := []byte{0xAA}
	bob := []byte{0xBB}
	l.balances[addrKey(alice)] = uint256.NewInt(100)

	s := stack.New()
	fromAddr := s.Push(value.Bytes(alice))
	_ = s.Push(value.Bytes(bob))
	_ = s.Push(value.Integer(30))
	outAddr := fromAddr + 3
	s.Widen(int(outAddr) + 1)

	if err := l.nativeTransfer(s, fromAddr, 3, outAddr); err != nil {
		t.Fatalf("nativeTransfer: %v", err)
	}
	out, ok := s.At(outAddr)
	if !ok {
		t.Fatalf("no output written")
	}
	ok2, err := out.AsBool()
	if err != nil || !ok2 {
		t.Fatalf("transfer did not report success: %v %v", ok2, err)
	}

	balArgs := s.Push(value.Bytes(bob))
	balOut := balArgs + 1
	s.Widen(int(balOut) + 1)
	if err := l.nativeBalance(s, balArgs, 1, balOut); err != nil {
		t.Fatalf("nativeBalance: %v", err)
	}
	bv, _ := s.At(balOut)
	n, err := bv.AsInteger()
	if err != nil || n != 30 {
		t.Fatalf("bob native balance = %v, want 30", n)
	}
}

func TestRegisterInstallsFixedAndEventFunctions(t *testing.T) {
	l := NewLedger()
	m, err := Register(l, []string{"Transfer", "Mint"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(m.Functions()) != 5+2 {
		t.Fatalf("got %d registered functions, want 7", len(m.Functions()))
	}
}
