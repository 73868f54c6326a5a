// Package issuer defines the boundary to the external transaction tool
// that turns ledger operations into on-chain issuance bundles.
//
// Build assembles an unbroadcast payload locally; only Issue crosses
// the process boundary, so every other ledger operation works with no
// tool installed.
package issuer

import (
	"context"
	"fmt"
)

// FailureKind classifies why an external issuance attempt failed.
type FailureKind string

const (
	// FailSpawn: the tool binary could not be started.
	FailSpawn FailureKind = "spawn"
	// FailValidation: the tool rejected the request as invalid.
	FailValidation FailureKind = "validation"
	// FailBroadcast: the network rejected the transaction.
	FailBroadcast FailureKind = "broadcast"
	// FailMining: the transaction was built but could not be mined.
	FailMining FailureKind = "mining"
	// FailMalformed: the tool exited cleanly but produced unusable output.
	FailMalformed FailureKind = "malformed_output"
)

// ToolError is returned from Issue. It preserves the classification and
// the tool's diagnostic text for operator troubleshooting.
type ToolError struct {
	Kind   FailureKind
	Detail string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("issuance tool %s failure: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("issuance tool %s failure", e.Kind)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// BuildRequest describes the issuance payload to assemble.
type BuildRequest struct {
	AssetDescHash string `json:"asset_desc_hash"`
	AssetName     string `json:"asset_name"`
	Recipient     string `json:"recipient"`
	Amount        uint64 `json:"amount"`
	FirstIssuance bool   `json:"first_issuance"`
	Finalize      bool   `json:"finalize"`
}

// IssueRequest is sent to the external tool for a deployment attempt.
type IssueRequest struct {
	BuildRequest

	Mine bool `json:"mine"`

	// IdempotencyKey identifies this deployment attempt (asset id plus
	// attempt counter) so a timed-out call that actually succeeded
	// downstream is not silently re-issued as a new transaction.
	IdempotencyKey string `json:"idempotency_key"`

	// Signature is a hex Schnorr signature over the request digest,
	// made with the issuance authorizing key.
	Signature string `json:"signature,omitempty"`
}

// IssueResult is the tool's success response. TxID must be present;
// a success exit without it is a malformed-output failure.
type IssueResult struct {
	TxID string `json:"tx_id"`
}

// TransactionIssuer builds and broadcasts issuance transactions.
type TransactionIssuer interface {
	// Build assembles the unbroadcast transaction payload for a request.
	// No subprocess is involved.
	Build(req BuildRequest) ([]byte, error)

	// Issue invokes the external tool synchronously and returns its
	// transaction id. Failures are *ToolError.
	Issue(ctx context.Context, req IssueRequest) (*IssueResult, error)
}
