// Package ledger tracks issued assets: supply accounting bounded by the
// protocol maximum, an irreversible finalization flag, deployment
// status, and an append-only history per token.
package ledger

import (
	"time"

	"github.com/shielded-labs/issuerd/pkg/types"
)

// Status tracks the outcome of the most recent operation on a token.
// Finalization is an independent flag, not a status.
type Status string

const (
	// StatusPending: created or re-issued, not yet deployed.
	StatusPending Status = "pending"
	// StatusDeploying: an external issuance attempt is in flight.
	StatusDeploying Status = "deploying"
	// StatusDeployed: the most recent deployment attempt succeeded.
	StatusDeployed Status = "deployed"
	// StatusFailed: the most recent deployment attempt failed.
	StatusFailed Status = "failed"
	// StatusPendingFinalization: finalized locally, not yet deployed.
	StatusPendingFinalization Status = "pending_finalization"
	// StatusPendingBurn: burned locally, not yet deployed.
	StatusPendingBurn Status = "pending_burn"
)

// EntryType identifies a history entry.
type EntryType string

const (
	EntryCreation         EntryType = "creation"
	EntryIssuance         EntryType = "issuance"
	EntryFinalization     EntryType = "finalization"
	EntryDeployment       EntryType = "deployment"
	EntryDeploymentFailed EntryType = "deployment_failed"
	EntryBurn             EntryType = "burn"
)

// HistoryEntry is one record in a token's append-only history.
// Entries are never edited or removed.
type HistoryEntry struct {
	Type      EntryType    `json:"type"`
	Amount    types.Amount `json:"amount,omitempty"`
	Recipient string       `json:"recipient,omitempty"`
	TxID      string       `json:"tx_id,omitempty"`
	Finalized bool         `json:"finalized,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Token is the mutable unit of ledger state.
//
// The asset id, description hash, and serialized description are fixed
// at creation and never recomputed, even though they are stored
// alongside the display fields.
type Token struct {
	ID            string         `json:"id"`  // opaque internal id
	Seq           uint64         `json:"seq"` // insertion order
	Name          string         `json:"name"`
	Symbol        string         `json:"symbol"`
	Description   string         `json:"description"`
	InitialSupply types.Amount   `json:"initial_supply"`
	TotalSupply   types.Amount   `json:"total_supply"`
	BurnedSupply  types.Amount   `json:"burned_supply"`
	Issuer        string         `json:"issuer"`
	AssetID       types.AssetID  `json:"asset_id"`
	AssetDescHash types.Hash     `json:"asset_desc_hash"`
	AssetDesc     string         `json:"asset_desc"`
	Recipient     string         `json:"recipient"`
	Finalized     bool           `json:"finalized"`
	Status        Status         `json:"status"`
	Network       string         `json:"network"`
	CreatedAt     time.Time      `json:"created_at"`
	DeployedAt    time.Time      `json:"deployed_at"`
	TxID          string         `json:"tx_id,omitempty"`
	LastPayload   []byte         `json:"last_payload,omitempty"`
	Attempts      uint64         `json:"deploy_attempts"`
	History       []HistoryEntry `json:"history"`
}

// EverDeployed reports whether any deployment attempt has succeeded.
func (t *Token) EverDeployed() bool {
	return !t.DeployedAt.IsZero()
}

// appendHistory adds an entry stamped with the given time.
func (t *Token) appendHistory(e HistoryEntry, now time.Time) {
	e.Timestamp = now
	t.History = append(t.History, e)
}
