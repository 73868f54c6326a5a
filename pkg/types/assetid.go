package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// AssetID layout: [tag(1)][issuer validating key(32)][description hash(32)].
const (
	// AssetIDSize is the length of an asset identifier in bytes.
	AssetIDSize = 1 + HashSize + HashSize

	// AssetIDTag is the version tag prepended to every asset identifier.
	AssetIDTag = 0x00

	// AssetIDHexLen is the length of a hex-encoded asset identifier.
	AssetIDHexLen = 2 * AssetIDSize
)

// AssetID is a content-addressed asset identifier. It binds the issuer's
// validating key to the hash of the asset description, so the same
// (issuer, description) pair always names the same asset.
type AssetID [AssetIDSize]byte

// NewAssetID assembles an asset identifier from its components.
func NewAssetID(issuerKey, descHash Hash) AssetID {
	var id AssetID
	id[0] = AssetIDTag
	copy(id[1:1+HashSize], issuerKey[:])
	copy(id[1+HashSize:], descHash[:])
	return id
}

// IsZero returns true if the asset ID is all zeros.
func (a AssetID) IsZero() bool {
	return a == AssetID{}
}

// String returns the 130-character lowercase hex encoding.
func (a AssetID) String() string {
	return hex.EncodeToString(a[:])
}

// IssuerKey returns the embedded 32-byte issuer validating key.
func (a AssetID) IssuerKey() Hash {
	var h Hash
	copy(h[:], a[1:1+HashSize])
	return h
}

// DescHash returns the embedded 32-byte description hash.
func (a AssetID) DescHash() Hash {
	var h Hash
	copy(h[:], a[1+HashSize:])
	return h
}

// MarshalJSON encodes the asset ID as a hex string.
func (a AssetID) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a hex string into an asset ID.
func (a *AssetID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := ParseAssetID(s)
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// ParseAssetID parses a 130-character hex asset identifier.
// The encoding must be lowercase and carry the leading version tag.
func ParseAssetID(s string) (AssetID, error) {
	if len(s) != AssetIDHexLen {
		return AssetID{}, fmt.Errorf("asset id must be %d hex characters, got %d", AssetIDHexLen, len(s))
	}
	if s != strings.ToLower(s) {
		return AssetID{}, fmt.Errorf("asset id must be lowercase hex")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return AssetID{}, fmt.Errorf("invalid asset id hex: %w", err)
	}
	if b[0] != AssetIDTag {
		return AssetID{}, fmt.Errorf("asset id tag must be %02x, got %02x", AssetIDTag, b[0])
	}
	var id AssetID
	copy(id[:], b)
	return id, nil
}
