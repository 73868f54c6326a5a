package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shielded-labs/issuerd/internal/asset"
	"github.com/shielded-labs/issuerd/internal/issuer"
	klog "github.com/shielded-labs/issuerd/internal/log"
	"github.com/shielded-labs/issuerd/internal/metrics"
	"github.com/shielded-labs/issuerd/pkg/types"
)

// IncineratorAddress is the fixed sink address used when a burn does
// not name an explicit burn address.
const IncineratorAddress = "zs1incinerator00000000000000000000000000000000000000000000000000000000"

// Ledger owns the token collection and enforces supply and lifecycle
// invariants. All mutating operations are serialized behind a single
// lock; the underlying store must not be shared with other writers.
type Ledger struct {
	mu     sync.Mutex
	store  *Store
	tx     issuer.TransactionIssuer
	issuer string // 64-hex issuer identifier
	net    string
	m      *metrics.Metrics
	logger zerolog.Logger
}

// New creates a ledger for the given issuer identity. The metrics
// argument may be nil.
func New(store *Store, tx issuer.TransactionIssuer, issuerID, network string, m *metrics.Metrics) *Ledger {
	return &Ledger{
		store:  store,
		tx:     tx,
		issuer: issuerID,
		net:    network,
		m:      m,
		logger: klog.WithComponent("ledger"),
	}
}

// CreateParams describes a new token. Supplies travel as decimal
// strings so callers cannot lose precision near the protocol maximum.
type CreateParams struct {
	Name          string
	Symbol        string
	Description   string
	InitialSupply string
	Recipient     string
	Finalize      bool
}

// CreateToken validates params, computes the asset identifier, builds
// the initial unbroadcast payload, and persists the new record. Nothing
// is mutated when any precondition fails.
func (l *Ledger) CreateToken(p CreateParams) (*Token, error) {
	desc := asset.Description{Name: p.Name, Symbol: p.Symbol, Description: p.Description}
	if err := desc.Validate(); err != nil {
		l.m.ObserveOp("create", metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if p.Recipient == "" {
		l.m.ObserveOp("create", metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: recipient address is required", ErrValidation)
	}
	supply, err := types.ParseAmount(p.InitialSupply)
	if err != nil {
		l.m.ObserveOp("create", metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: initial supply: %v", ErrValidation, err)
	}

	serialized := desc.Serialize()
	assetID, descHash, err := asset.ComputeAssetID(l.issuer, serialized)
	if err != nil {
		l.m.ObserveOp("create", metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if has, err := l.store.HasAssetID(assetID); err == nil && has {
		l.m.ObserveOp("create", metrics.ResultConflict)
		return nil, fmt.Errorf("%w: asset %s already exists", ErrConflict, assetID)
	}

	payload, err := l.tx.Build(issuer.BuildRequest{
		AssetDescHash: descHash.String(),
		AssetName:     p.Name,
		Recipient:     p.Recipient,
		Amount:        uint64(supply),
		FirstIssuance: true,
		Finalize:      p.Finalize,
	})
	if err != nil {
		l.m.ObserveOp("create", metrics.ResultError)
		return nil, fmt.Errorf("build initial payload: %w", err)
	}

	id, err := NewID()
	if err != nil {
		l.m.ObserveOp("create", metrics.ResultError)
		return nil, err
	}
	seq, err := l.store.NextSeq()
	if err != nil {
		l.m.ObserveOp("create", metrics.ResultError)
		return nil, err
	}

	now := time.Now().UTC()
	t := &Token{
		ID:            id,
		Seq:           seq,
		Name:          p.Name,
		Symbol:        p.Symbol,
		Description:   p.Description,
		InitialSupply: supply,
		TotalSupply:   supply,
		Issuer:        l.issuer,
		AssetID:       assetID,
		AssetDescHash: descHash,
		AssetDesc:     serialized,
		Recipient:     p.Recipient,
		Finalized:     p.Finalize,
		Status:        StatusPending,
		Network:       l.net,
		CreatedAt:     now,
		LastPayload:   payload,
	}
	t.appendHistory(HistoryEntry{
		Type:      EntryCreation,
		Amount:    supply,
		Recipient: p.Recipient,
		Finalized: p.Finalize,
	}, now)

	if err := l.store.Put(t); err != nil {
		l.m.ObserveOp("create", metrics.ResultError)
		return nil, err
	}

	l.m.ObserveOp("create", metrics.ResultOK)
	l.m.SetTokensTracked(len(l.store.List()))
	l.logger.Info().
		Str("asset_id", assetID.String()).
		Str("symbol", p.Symbol).
		Str("supply", supply.String()).
		Msg("token created")
	return t, nil
}

// IssueMore increases a token's supply. Forbidden once finalized.
func (l *Ledger) IssueMore(assetID, amount, recipient string) (*Token, error) {
	aid, amt, err := l.parseAssetAmount(assetID, amount)
	if err != nil {
		l.m.ObserveOp("issue", metrics.ResultInvalid)
		return nil, err
	}
	if amt == 0 {
		l.m.ObserveOp("issue", metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: issuance amount must be positive", ErrValidation)
	}
	if recipient == "" {
		l.m.ObserveOp("issue", metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: recipient address is required", ErrValidation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.store.GetByAssetID(aid)
	if err != nil {
		l.m.ObserveOp("issue", metrics.ResultNotFound)
		return nil, err
	}
	if t.Finalized {
		l.m.ObserveOp("issue", metrics.ResultConflict)
		return nil, fmt.Errorf("%w: asset %s is finalized", ErrConflict, assetID)
	}
	next, ok := t.TotalSupply.CheckedAdd(amt)
	if !ok {
		l.m.ObserveOp("issue", metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: issuing %s would exceed the maximum supply", ErrValidation, amt)
	}

	t.TotalSupply = next
	t.Status = StatusPending
	t.appendHistory(HistoryEntry{
		Type:      EntryIssuance,
		Amount:    amt,
		Recipient: recipient,
	}, time.Now().UTC())

	if err := l.store.Put(t); err != nil {
		l.m.ObserveOp("issue", metrics.ResultError)
		return nil, err
	}
	l.m.ObserveOp("issue", metrics.ResultOK)
	l.logger.Info().
		Str("asset_id", assetID).
		Str("amount", amt.String()).
		Str("total_supply", t.TotalSupply.String()).
		Msg("supply increased")
	return t, nil
}

// FinalizeToken irreversibly stops further issuance of an asset.
// Burns remain permitted afterwards.
func (l *Ledger) FinalizeToken(assetID string) (*Token, error) {
	aid, err := types.ParseAssetID(assetID)
	if err != nil {
		l.m.ObserveOp("finalize", metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.store.GetByAssetID(aid)
	if err != nil {
		l.m.ObserveOp("finalize", metrics.ResultNotFound)
		return nil, err
	}
	if t.Finalized {
		l.m.ObserveOp("finalize", metrics.ResultConflict)
		return nil, fmt.Errorf("%w: asset %s is already finalized", ErrConflict, assetID)
	}

	t.Finalized = true
	t.Status = StatusPendingFinalization
	t.appendHistory(HistoryEntry{
		Type:      EntryFinalization,
		Finalized: true,
	}, time.Now().UTC())

	if err := l.store.Put(t); err != nil {
		l.m.ObserveOp("finalize", metrics.ResultError)
		return nil, err
	}
	l.m.ObserveOp("finalize", metrics.ResultOK)
	l.logger.Info().Str("asset_id", assetID).Msg("token finalized")
	return t, nil
}

// BurnTokens removes amount from circulation, sending it to burnAddress
// (the incinerator when empty). Permitted on finalized tokens.
func (l *Ledger) BurnTokens(assetID, amount, burnAddress string) (*Token, error) {
	aid, amt, err := l.parseAssetAmount(assetID, amount)
	if err != nil {
		l.m.ObserveOp("burn", metrics.ResultInvalid)
		return nil, err
	}
	if amt == 0 {
		l.m.ObserveOp("burn", metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: burn amount must be positive", ErrValidation)
	}
	if burnAddress == "" {
		burnAddress = IncineratorAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.store.GetByAssetID(aid)
	if err != nil {
		l.m.ObserveOp("burn", metrics.ResultNotFound)
		return nil, err
	}
	remaining, ok := t.TotalSupply.CheckedSub(amt)
	if !ok {
		l.m.ObserveOp("burn", metrics.ResultConflict)
		return nil, fmt.Errorf("%w: burn of %s exceeds total supply %s", ErrConflict, amt, t.TotalSupply)
	}
	burned, ok := t.BurnedSupply.CheckedAdd(amt)
	if !ok {
		l.m.ObserveOp("burn", metrics.ResultConflict)
		return nil, fmt.Errorf("%w: burned supply overflow", ErrConflict)
	}

	t.TotalSupply = remaining
	t.BurnedSupply = burned
	t.Status = StatusPendingBurn
	t.appendHistory(HistoryEntry{
		Type:      EntryBurn,
		Amount:    amt,
		Recipient: burnAddress,
	}, time.Now().UTC())

	if err := l.store.Put(t); err != nil {
		l.m.ObserveOp("burn", metrics.ResultError)
		return nil, err
	}
	l.m.ObserveOp("burn", metrics.ResultOK)
	l.logger.Info().
		Str("asset_id", assetID).
		Str("amount", amt.String()).
		Str("total_supply", t.TotalSupply.String()).
		Msg("supply burned")
	return t, nil
}

// DeployOptions control a deployment attempt.
type DeployOptions struct {
	// Mine asks the external tool to mine the transaction itself.
	Mine bool
}

// DeploymentResult is the outcome of a successful deployment.
type DeploymentResult struct {
	Token *Token `json:"token"`
	TxID  string `json:"tx_id"`
}

// DeployToken hands the token to the external transaction tool. On
// success the token becomes deployed with its transaction id recorded;
// on failure the status flips to failed (a best-effort compensating
// write) and the classified tool error is returned.
func (l *Ledger) DeployToken(ctx context.Context, assetID string, opts DeployOptions) (*DeploymentResult, error) {
	aid, err := types.ParseAssetID(assetID)
	if err != nil {
		l.m.ObserveOp("deploy", metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.store.GetByAssetID(aid)
	if err != nil {
		l.m.ObserveOp("deploy", metrics.ResultNotFound)
		return nil, err
	}
	if t.Status == StatusDeployed {
		l.m.ObserveOp("deploy", metrics.ResultConflict)
		return nil, fmt.Errorf("%w: asset %s is already deployed", ErrConflict, assetID)
	}

	first := !t.EverDeployed()
	t.Status = StatusDeploying
	t.Attempts++
	req := issuer.IssueRequest{
		BuildRequest: issuer.BuildRequest{
			AssetDescHash: t.AssetDescHash.String(),
			AssetName:     t.Name,
			Recipient:     t.Recipient,
			Amount:        uint64(t.TotalSupply),
			FirstIssuance: first,
			Finalize:      t.Finalized,
		},
		Mine:           opts.Mine,
		IdempotencyKey: fmt.Sprintf("%s:%d", t.AssetID, t.Attempts),
	}
	// Refreshing the payload is best effort: the tool rebuilds from the
	// request anyway, but a failing assembler must not go unnoticed.
	if payload, buildErr := l.tx.Build(req.BuildRequest); buildErr == nil {
		t.LastPayload = payload
	} else {
		l.logger.Warn().Err(buildErr).Str("asset_id", assetID).Msg("payload assembly failed before deployment")
	}
	if err := l.store.Put(t); err != nil {
		l.m.ObserveOp("deploy", metrics.ResultError)
		return nil, err
	}

	start := time.Now()
	result, issueErr := l.tx.Issue(ctx, req)
	l.m.ObserveDeploy(time.Since(start))

	now := time.Now().UTC()
	if issueErr != nil {
		t.Status = StatusFailed
		t.appendHistory(HistoryEntry{Type: EntryDeploymentFailed}, now)
		// Best-effort compensating write; the tool error stays primary.
		if putErr := l.store.Put(t); putErr != nil {
			l.logger.Error().Err(putErr).Str("asset_id", assetID).Msg("failed to record deployment failure")
		}
		l.m.ObserveOp("deploy", metrics.ResultError)
		l.logger.Error().Err(issueErr).Str("asset_id", assetID).Msg("deployment failed")
		return nil, issueErr
	}

	t.Status = StatusDeployed
	t.TxID = result.TxID
	t.DeployedAt = now
	t.appendHistory(HistoryEntry{
		Type:      EntryDeployment,
		TxID:      result.TxID,
		Finalized: t.Finalized,
	}, now)

	if err := l.store.Put(t); err != nil {
		l.m.ObserveOp("deploy", metrics.ResultError)
		return nil, err
	}
	l.m.ObserveOp("deploy", metrics.ResultOK)
	l.logger.Info().
		Str("asset_id", assetID).
		Str("tx_id", result.TxID).
		Msg("token deployed")
	return &DeploymentResult{Token: t, TxID: result.TxID}, nil
}

// GetAllTokens returns every token record in insertion order. An absent
// or unreadable store yields an empty collection.
func (l *Ledger) GetAllTokens() []*Token {
	return l.store.List()
}

// GetByAssetID retrieves a token by its 130-hex-character asset id.
func (l *Ledger) GetByAssetID(assetID string) (*Token, error) {
	aid, err := types.ParseAssetID(assetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return l.store.GetByAssetID(aid)
}

// GetByID retrieves a token by internal id.
func (l *Ledger) GetByID(id string) (*Token, error) {
	return l.store.GetByID(id)
}

// GetByIssuer returns all tokens minted by an issuer identifier.
func (l *Ledger) GetByIssuer(issuerID string) []*Token {
	return l.store.ListByIssuer(issuerID)
}

// Issuer returns the identifier the ledger mints under.
func (l *Ledger) Issuer() string {
	return l.issuer
}

// parseAssetAmount parses the common (assetID, amount) argument pair.
func (l *Ledger) parseAssetAmount(assetID, amount string) (types.AssetID, types.Amount, error) {
	aid, err := types.ParseAssetID(assetID)
	if err != nil {
		return types.AssetID{}, 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	amt, err := types.ParseAmount(amount)
	if err != nil {
		return types.AssetID{}, 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return aid, amt, nil
}
