package asset

import (
	"fmt"

	"github.com/shielded-labs/issuerd/pkg/crypto"
	"github.com/shielded-labs/issuerd/pkg/types"
)

// domainDesc separates asset description hashes from every other hash
// in the system.
const domainDesc = "issuerd/v1/asset-desc"

// DescHash computes the domain-separated hash of a serialized description.
func DescHash(serialized string) types.Hash {
	return crypto.HashWithDomain(domainDesc, []byte(serialized))
}

// ComputeAssetID derives the content-addressed asset identifier for an
// issuer and serialized description. Pure: identical inputs always
// yield the identical identifier.
//
// The issuer argument is the 64-hex-character issuer identifier
// (the encoded validating key).
func ComputeAssetID(issuer, serialized string) (types.AssetID, types.Hash, error) {
	ik, err := types.HexToHash(issuer)
	if err != nil {
		return types.AssetID{}, types.Hash{}, fmt.Errorf("issuer identifier: %w", err)
	}
	descHash := DescHash(serialized)
	return types.NewAssetID(ik, descHash), descHash, nil
}
