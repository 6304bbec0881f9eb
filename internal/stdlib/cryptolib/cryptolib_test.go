package cryptolib

import (
	"bytes"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/probelang/probe-lang/internal/stack"
	"github.com/probelang/probe-lang/internal/value"
)

func bytesValue(b []byte) value.Value { return value.Bytes(b) }

func TestSHA3KnownVector(t *testing.T) {
	// SHA3-256("") per FIPS 202.
	want := []byte{
		0xa7, 0xff, 0xc6, 0xf8, 0xbf, 0x1e, 0xd7, 0x66,
		0x51, 0xc1, 0x47, 0x56, 0xa0, 0x61, 0xd6, 0x62,
		0xf5, 0x80, 0xff, 0x4d, 0xe4, 0x3b, 0x49, 0xfa,
		0x82, 0xd8, 0x0a, 0x4b, 0x80, 0xf8, 0x43, 0x4a,
	}
	got := SHA3(nil)
	if !bytes.Equal(got, want) {
		t.Fatalf("SHA3(\"\") = %x, want %x", got, want)
	}
}

func TestSHAKE256RespectsOutputLength(t *testing.T) {
	got := SHAKE256([]byte("probe"), 17)
	if len(got) != 17 {
		t.Fatalf("SHAKE256 output length = %d, want 17", len(got))
	}
}

func TestSecp256k1RecoverRoundTrip(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	var digest [32]byte
	copy(digest[:], []byte("deterministic-test-digest-32byt"))

	sigBytes := ecdsa.SignCompact(priv, digest[:], false)
	var sig [65]byte
	copy(sig[:], sigBytes)

	recovered, err := Secp256k1Recover(digest, sig)
	if err != nil {
		t.Fatalf("Secp256k1Recover: %v", err)
	}
	want := priv.PubKey().SerializeUncompressed()
	if !bytes.Equal(recovered, want) {
		t.Fatalf("recovered pubkey mismatch:\n got %x\nwant %x", recovered, want)
	}
}

func TestFalconAndSLHDSAStubsReturnFalse(t *testing.T) {
	if Falcon512Verify(nil, nil, nil) {
		t.Fatal("Falcon512Verify stub must return false")
	}
	if SLHDSAVerify(nil, nil, nil) {
		t.Fatal("SLHDSAVerify stub must return false")
	}
}

func TestNativeSHA3WritesBytes(t *testing.T) {
	s := stack.New()
	argsAddr := s.Push(bytesValue([]byte("hello")))
	outAddr := argsAddr + 1
	s.Widen(int(outAddr) + 1)

	if err := nativeSHA3(s, argsAddr, 1, outAddr); err != nil {
		t.Fatalf("nativeSHA3: %v", err)
	}
	out, ok := s.At(outAddr)
	if !ok {
		t.Fatalf("no output written")
	}
	got, err := out.AsBytes()
	if err != nil {
		t.Fatalf("output not bytes: %v", err)
	}
	if !bytes.Equal(got, SHA3([]byte("hello"))) {
		t.Fatalf("native sha3 mismatch")
	}
}

func TestRegisterInstallsAllFunctions(t *testing.T) {
	m, err := Register()
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(m.Functions()) != 6 {
		t.Fatalf("got %d registered functions, want 6", len(m.Functions()))
	}
}
