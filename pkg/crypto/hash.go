// Package crypto provides hashing and signing primitives for the
// issuance ledger. All hashes are BLAKE3; domain separation uses the
// BLAKE3 key-derivation mode with an explicit context string.
package crypto

import (
	"github.com/shielded-labs/issuerd/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// HashWithDomain computes a domain-separated BLAKE3-256 hash.
// Different domain strings never produce colliding outputs for the
// same material.
func HashWithDomain(domain string, data []byte) types.Hash {
	var out types.Hash
	blake3.DeriveKey(domain, data, out[:])
	return out
}

// ExpandWithDomain derives n bytes of key material from the input
// under the given domain string.
func ExpandWithDomain(domain string, material []byte, n int) []byte {
	out := make([]byte, n)
	blake3.DeriveKey(domain, material, out)
	return out
}
