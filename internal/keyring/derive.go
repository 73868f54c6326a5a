// Package keyring derives and persists the issuer identity.
//
// The derivation chain is seed -> master -> issuance key (isk) ->
// validating key (ik) -> issuer identifier. Each step is a
// domain-separated BLAKE3 derivation, deterministic for a given seed.
// The hardened-path segments mirror the issuance registration path
// (purpose 227', coin type 133', account') so a future swap to true
// hierarchical curve derivation keeps the same path layout.
package keyring

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/shielded-labs/issuerd/pkg/crypto"
	"github.com/shielded-labs/issuerd/pkg/types"
)

// Hardened derivation path constants.
// Full path: m/227'/133'/account'
const (
	// FirstHardened marks the start of the hardened index range.
	FirstHardened = uint32(0x80000000)

	// PurposeIssuance is the issuance purpose field (hardened).
	PurposeIssuance = FirstHardened + 227

	// CoinTypeShielded is the shielded network coin type (hardened).
	CoinTypeShielded = FirstHardened + 133
)

// Derivation domain strings. Changing any of these changes every key
// derived under it.
const (
	domainMaster     = "issuerd/v1/master"
	domainChild      = "issuerd/v1/child"
	domainValidating = "issuerd/v1/validating"
)

// KeyMaterial is a derived key with its chain code.
type KeyMaterial struct {
	Key       types.Hash
	ChainCode types.Hash
}

// DeriveMaster derives the master key material from a seed.
func DeriveMaster(seed []byte) (KeyMaterial, error) {
	if len(seed) < MinSeedSize || len(seed) > MaxSeedSize {
		return KeyMaterial{}, fmt.Errorf("%w: seed length must be in [%d, %d] bytes, got %d",
			ErrInvalidSeed, MinSeedSize, MaxSeedSize, len(seed))
	}
	return splitKeyMaterial(crypto.ExpandWithDomain(domainMaster, seed, 64)), nil
}

// DeriveIssuanceKey derives the issuance authorizing key for an account
// along the hardened path m/227'/133'/account'.
func DeriveIssuanceKey(master KeyMaterial, account uint32) KeyMaterial {
	node := master
	for _, index := range []uint32{PurposeIssuance, CoinTypeShielded, FirstHardened + account} {
		node = deriveChild(node, index)
	}
	return node
}

// DeriveValidatingKey derives the public validating key (ik) from the
// issuance authorizing key. One-way: ik reveals nothing about isk.
func DeriveValidatingKey(isk types.Hash) types.Hash {
	return crypto.HashWithDomain(domainValidating, isk[:])
}

// EncodeIssuer returns the canonical issuer identifier: the validating
// key as 64 lowercase hex characters.
func EncodeIssuer(ik types.Hash) string {
	return hex.EncodeToString(ik[:])
}

// deriveChild derives one hardened child from parent key material.
// Material layout: parentKey(32) || parentChainCode(32) || index(4, BE).
func deriveChild(parent KeyMaterial, index uint32) KeyMaterial {
	var buf [types.HashSize*2 + 4]byte
	copy(buf[:types.HashSize], parent.Key[:])
	copy(buf[types.HashSize:types.HashSize*2], parent.ChainCode[:])
	binary.BigEndian.PutUint32(buf[types.HashSize*2:], index)
	return splitKeyMaterial(crypto.ExpandWithDomain(domainChild, buf[:], 64))
}

// splitKeyMaterial splits 64 derived bytes into key and chain code.
func splitKeyMaterial(out []byte) KeyMaterial {
	var km KeyMaterial
	copy(km.Key[:], out[:types.HashSize])
	copy(km.ChainCode[:], out[types.HashSize:])
	return km
}
