// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package cryptolib is the "crypto" host module backing the language's
// SHA3/SHAKE256 hashing and signature-verification primitives
// (ir.OpSHA3, OpSHAKE256, OpFalcon512Verify, OpMLDSAVerify, OpSLHDSAVerify,
// OpSecp256k1Recover), each lowered by internal/codegen to a plain
// OpCall against the "crypto::*" names this package registers.
package cryptolib

import (
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/probelang/probe-lang/internal/hash"
	"github.com/probelang/probe-lang/internal/module"
	"github.com/probelang/probe-lang/internal/value"
)

// SHA3 computes the SHA3-256 digest of data.
func SHA3(data []byte) []byte {
	sum := sha3.Sum256(data)
	return sum[:]
}

// SHAKE256 computes an outputLen-byte SHAKE256 digest of data.
func SHAKE256(data []byte, outputLen int) []byte {
	h := sha3.NewShake256()
	h.Write(data)
	out := make([]byte, outputLen)
	h.Read(out)
	return out
}

// Secp256k1Recover recovers the 65-byte uncompressed public key from a
// recoverable signature over a 32-byte digest.
func Secp256k1Recover(digest [32]byte, sig [65]byte) ([]byte, error) {
	pub, _, err := ecdsaRecoverCompact(sig[:], digest[:])
	if err != nil {
		return nil, fmt.Errorf("cryptolib: secp256k1 recover: %w", err)
	}
	return pub.SerializeUncompressed(), nil
}

func ecdsaRecoverCompact(sig, digest []byte) (*secp256k1.PublicKey, bool, error) {
	return ecdsa.RecoverCompact(sig, digest)
}

// MLDSAVerify verifies an ML-DSA-65 (Dilithium mode 3) signature.
func MLDSAVerify(msg, sig, pubkey []byte) bool {
	var pk mode3.PublicKey
	if err := pk.UnmarshalBinary(pubkey); err != nil {
		return false
	}
	return mode3.Verify(&pk, msg, sig)
}

// Falcon512Verify verifies a Falcon-512 signature.
//
// No Falcon implementation appears in the example pack or as a
// well-established Go module the rest of the dependency set already trusts
// (cloudflare/circl, wired in for ML-DSA above, does not implement
// Falcon); this stays an explicit "not yet wired" stub rather than reaching
// for an unvetted module.
func Falcon512Verify(msg, sig, pubkey []byte) bool {
	return false
}

// SLHDSAVerify verifies an SLH-DSA (SPHINCS+) signature.
//
// Wiring this to a concrete parameter set needs a real SLH-DSA module; circl
// had not yet shipped a stable SLH-DSA verify API as of this module's
// dependency set, so this also stays a stub pending that, rather than
// forcing circl's unrelated dilithium API to stand in for it.
func SLHDSAVerify(msg, sig, pubkey []byte) bool {
	return false
}

// ---- Native bindings -------------------------------------------------------

func argBytes(stack value.Stack, addr int64) ([]byte, error) {
	v, ok := stack.At(addr)
	if !ok {
		return nil, fmt.Errorf("cryptolib: missing argument at %d", addr)
	}
	return v.AsBytes()
}

func writeOutput(stack value.Stack, output int64, v value.Value) {
	if output < 0 {
		return
	}
	stack.Set(output, v)
}

func nativeSHA3(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	data, err := argBytes(stack, argsAddr)
	if err != nil {
		return err
	}
	writeOutput(stack, output, value.Bytes(SHA3(data)))
	return nil
}

func nativeSHAKE256(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	if argCount < 2 {
		return fmt.Errorf("cryptolib: shake256 requires 2 arguments")
	}
	data, err := argBytes(stack, argsAddr)
	if err != nil {
		return err
	}
	lenArg, ok := stack.At(argsAddr + 1)
	if !ok {
		return fmt.Errorf("cryptolib: shake256: missing length argument")
	}
	n, err := lenArg.AsInteger()
	if err != nil {
		return fmt.Errorf("cryptolib: shake256: %w", err)
	}
	writeOutput(stack, output, value.Bytes(SHAKE256(data, int(n))))
	return nil
}

func nativeVerify(verify func(msg, sig, pubkey []byte) bool) value.NativeHandler {
	return func(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
		if argCount < 3 {
			return fmt.Errorf("cryptolib: signature verification requires 3 arguments")
		}
		msg, err := argBytes(stack, argsAddr)
		if err != nil {
			return err
		}
		sig, err := argBytes(stack, argsAddr+1)
		if err != nil {
			return err
		}
		pub, err := argBytes(stack, argsAddr+2)
		if err != nil {
			return err
		}
		writeOutput(stack, output, value.Bool(verify(msg, sig, pub)))
		return nil
	}
}

func nativeSecp256k1Recover(stack value.Stack, argsAddr int64, argCount uint32, output int64) error {
	if argCount < 2 {
		return fmt.Errorf("cryptolib: secp256k1_recover requires 2 arguments")
	}
	digest, err := argBytes(stack, argsAddr)
	if err != nil {
		return err
	}
	sig, err := argBytes(stack, argsAddr+1)
	if err != nil {
		return err
	}
	if len(digest) != 32 || len(sig) != 65 {
		return fmt.Errorf("cryptolib: secp256k1_recover: digest must be 32 bytes and signature 65 bytes")
	}
	var d [32]byte
	var s [65]byte
	copy(d[:], digest)
	copy(s[:], sig)
	pub, err := Secp256k1Recover(d, s)
	if err != nil {
		writeOutput(stack, output, value.Bytes(nil))
		return nil
	}
	writeOutput(stack, output, value.Bytes(pub))
	return nil
}

// Register builds the "crypto" host module.
func Register() (*module.Module, error) {
	m := module.New("crypto")

	fns := []struct {
		name    string
		handler value.NativeHandler
	}{
		{"crypto::sha3", nativeSHA3},
		{"crypto::shake256", nativeSHAKE256},
		{"crypto::falcon512_verify", nativeVerify(Falcon512Verify)},
		{"crypto::mldsa_verify", nativeVerify(MLDSAVerify)},
		{"crypto::slhdsa_verify", nativeVerify(SLHDSAVerify)},
		{"crypto::secp256k1_recover", nativeSecp256k1Recover},
	}
	for _, f := range fns {
		decl := module.FunctionDecl{
			Hash:    hash.String(f.name),
			Handler: f.handler,
			Meta:    module.Meta{Doc: f.name + " — see internal/stdlib/cryptolib"},
		}
		if err := m.RegisterFunction(decl); err != nil {
			return nil, err
		}
	}
	return m, nil
}
