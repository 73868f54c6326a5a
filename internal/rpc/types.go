package rpc

import (
	"time"

	"github.com/shielded-labs/issuerd/internal/ledger"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeConflict       = -32001
	CodeExternalTool   = -32002
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// AssetCreateParam is used by asset_create.
type AssetCreateParam struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	Supply      string `json:"supply"`
	Recipient   string `json:"recipient"`
	Finalize    bool   `json:"finalize,omitempty"`
}

// AssetIDParam is used by endpoints that take an asset identifier.
type AssetIDParam struct {
	AssetID string `json:"asset_id"`
}

// IDParam is used by asset_getById.
type IDParam struct {
	ID string `json:"id"`
}

// AssetIssueParam is used by asset_issue.
type AssetIssueParam struct {
	AssetID   string `json:"asset_id"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

// AssetBurnParam is used by asset_burn.
type AssetBurnParam struct {
	AssetID string `json:"asset_id"`
	Amount  string `json:"amount"`
	From    string `json:"from,omitempty"` // Defaults to the incinerator address.
}

// AssetDeployParam is used by asset_deploy.
type AssetDeployParam struct {
	AssetID string `json:"asset_id"`
	Mine    *bool  `json:"mine,omitempty"` // Overrides the configured default.
}

// IssuerParam is used by asset_listByIssuer.
type IssuerParam struct {
	Issuer string `json:"issuer"`
}

// ── Result types ────────────────────────────────────────────────────────

// TokenResult describes a token record in RPC responses.
type TokenResult struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Symbol        string                `json:"symbol"`
	Description   string                `json:"description,omitempty"`
	InitialSupply string                `json:"initial_supply"`
	TotalSupply   string                `json:"total_supply"`
	BurnedSupply  string                `json:"burned_supply"`
	Issuer        string                `json:"issuer"`
	AssetID       string                `json:"asset_id"`
	AssetDescHash string                `json:"asset_desc_hash"`
	Recipient     string                `json:"recipient"`
	Finalized     bool                  `json:"finalized"`
	Status        ledger.Status         `json:"status"`
	Network       string                `json:"network"`
	CreatedAt     string                `json:"created_at"`
	DeployedAt    string                `json:"deployed_at,omitempty"`
	TxID          string                `json:"tx_id,omitempty"`
	Attempts      uint64                `json:"attempts,omitempty"`
	History       []ledger.HistoryEntry `json:"history"`
}

// NewTokenResult converts a ledger token into its RPC representation.
func NewTokenResult(t *ledger.Token) *TokenResult {
	r := &TokenResult{
		ID:            t.ID,
		Name:          t.Name,
		Symbol:        t.Symbol,
		Description:   t.Description,
		InitialSupply: t.InitialSupply.String(),
		TotalSupply:   t.TotalSupply.String(),
		BurnedSupply:  t.BurnedSupply.String(),
		Issuer:        t.Issuer,
		AssetID:       t.AssetID.String(),
		AssetDescHash: t.AssetDescHash.String(),
		Recipient:     t.Recipient,
		Finalized:     t.Finalized,
		Status:        t.Status,
		Network:       t.Network,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		TxID:          t.TxID,
		Attempts:      t.Attempts,
		History:       t.History,
	}
	if !t.DeployedAt.IsZero() {
		r.DeployedAt = t.DeployedAt.Format(time.RFC3339)
	}
	return r
}

// DeployResult is returned by asset_deploy.
type DeployResult struct {
	Token *TokenResult `json:"token"`
	TxID  string       `json:"tx_id"`
}

// TokenListResult is returned by asset_list and asset_listByIssuer.
type TokenListResult struct {
	Count  int            `json:"count"`
	Tokens []*TokenResult `json:"tokens"`
}

// IdentityResult is returned by issuer_getIdentity.
type IdentityResult struct {
	Issuer  string `json:"issuer"`
	Network string `json:"network"`
}

// ToolErrorData carries external tool failure detail in the error object.
type ToolErrorData struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}
