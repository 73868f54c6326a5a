package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shielded-labs/issuerd/internal/issuer"
	"github.com/shielded-labs/issuerd/internal/storage"
	"github.com/shielded-labs/issuerd/pkg/types"
)

const testIssuerID = "abababababababababababababababababababababababababababababababab"

// fakeIssuer records issue requests and returns canned results.
type fakeIssuer struct {
	requests []issuer.IssueRequest
	txID     string
	err      *issuer.ToolError
	buildErr error
}

func (f *fakeIssuer) Build(req issuer.BuildRequest) ([]byte, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return json.Marshal(req)
}

func (f *fakeIssuer) Issue(_ context.Context, req issuer.IssueRequest) (*issuer.IssueResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	txID := f.txID
	if txID == "" {
		txID = fmt.Sprintf("tx-%d", len(f.requests))
	}
	return &issuer.IssueResult{TxID: txID}, nil
}

func newTestLedger(t *testing.T) (*Ledger, *fakeIssuer, storage.DB) {
	t.Helper()
	db := storage.NewMemory()
	t.Cleanup(func() { db.Close() })
	fake := &fakeIssuer{}
	return New(NewStore(db), fake, testIssuerID, "testnet", nil), fake, db
}

func mustCreate(t *testing.T, l *Ledger, p CreateParams) *Token {
	t.Helper()
	tok, err := l.CreateToken(p)
	if err != nil {
		t.Fatalf("CreateToken(%+v): %v", p, err)
	}
	return tok
}

func goldParams() CreateParams {
	return CreateParams{
		Name:          "Gold Token",
		Symbol:        "GOLD",
		Description:   "backed by bullion",
		InitialSupply: "1000000",
		Recipient:     "zs1recipient",
	}
}

func TestCreateToken(t *testing.T) {
	l, _, _ := newTestLedger(t)

	tok := mustCreate(t, l, goldParams())

	if tok.ID == "" || tok.Seq != 1 {
		t.Errorf("id/seq = %q/%d, want non-empty/1", tok.ID, tok.Seq)
	}
	if tok.TotalSupply != 1000000 || tok.InitialSupply != 1000000 || tok.BurnedSupply != 0 {
		t.Errorf("supplies = %d/%d/%d", tok.InitialSupply, tok.TotalSupply, tok.BurnedSupply)
	}
	if tok.Issuer != testIssuerID {
		t.Errorf("issuer = %s", tok.Issuer)
	}
	if got := tok.AssetID.String(); len(got) != types.AssetIDHexLen || got[2:66] != testIssuerID {
		t.Errorf("asset id = %s", got)
	}
	if tok.Status != StatusPending {
		t.Errorf("status = %s, want %s", tok.Status, StatusPending)
	}
	if tok.Finalized {
		t.Error("token should not be finalized")
	}
	if len(tok.LastPayload) == 0 {
		t.Error("initial payload was not assembled")
	}
	if len(tok.History) != 1 || tok.History[0].Type != EntryCreation {
		t.Fatalf("history = %+v, want one creation entry", tok.History)
	}
	if tok.History[0].Amount != 1000000 || tok.History[0].Timestamp.IsZero() {
		t.Errorf("creation entry = %+v", tok.History[0])
	}
}

func TestCreateTokenDuplicate(t *testing.T) {
	l, _, _ := newTestLedger(t)
	mustCreate(t, l, goldParams())

	// Same name+symbol+description means the same asset id.
	if _, err := l.CreateToken(goldParams()); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate create error = %v, want ErrConflict", err)
	}

	// A different description yields a distinct asset.
	p := goldParams()
	p.Description = "second tranche"
	if _, err := l.CreateToken(p); err != nil {
		t.Errorf("distinct description create failed: %v", err)
	}
}

func TestCreateTokenValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateParams)
	}{
		{"empty name", func(p *CreateParams) { p.Name = "" }},
		{"short symbol", func(p *CreateParams) { p.Symbol = "G" }},
		{"long symbol", func(p *CreateParams) { p.Symbol = "GOLDGOLDGOL" }},
		{"delimiter in name", func(p *CreateParams) { p.Name = "Gold|Token" }},
		{"empty recipient", func(p *CreateParams) { p.Recipient = "" }},
		{"empty supply", func(p *CreateParams) { p.InitialSupply = "" }},
		{"negative supply", func(p *CreateParams) { p.InitialSupply = "-5" }},
		{"supply above max", func(p *CreateParams) { p.InitialSupply = "18446744073709551616" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, _ := newTestLedger(t)
			p := goldParams()
			tt.mutate(&p)
			if _, err := l.CreateToken(p); !errors.Is(err, ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestIssueMore(t *testing.T) {
	l, _, _ := newTestLedger(t)
	tok := mustCreate(t, l, goldParams())
	aid := tok.AssetID.String()

	got, err := l.IssueMore(aid, "500", "zs1other")
	if err != nil {
		t.Fatalf("IssueMore: %v", err)
	}
	if got.TotalSupply != 1000500 {
		t.Errorf("total supply = %d, want 1000500", got.TotalSupply)
	}
	if got.InitialSupply != 1000000 {
		t.Errorf("initial supply changed to %d", got.InitialSupply)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %s, want %s", got.Status, StatusPending)
	}
	last := got.History[len(got.History)-1]
	if last.Type != EntryIssuance || last.Amount != 500 || last.Recipient != "zs1other" {
		t.Errorf("issuance entry = %+v", last)
	}

	if _, err := l.IssueMore(aid, "0", "zs1other"); !errors.Is(err, ErrValidation) {
		t.Errorf("zero amount error = %v, want ErrValidation", err)
	}
	if _, err := l.IssueMore(aid, "100", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("empty recipient error = %v, want ErrValidation", err)
	}
}

func TestIssueMoreOverflow(t *testing.T) {
	l, _, _ := newTestLedger(t)
	p := goldParams()
	p.InitialSupply = types.MaxIssue.String()
	tok := mustCreate(t, l, p)

	_, err := l.IssueMore(tok.AssetID.String(), "1", "zs1other")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("overflow error = %v, want ErrValidation", err)
	}

	// Supply must be untouched after the rejection.
	got, err := l.GetByAssetID(tok.AssetID.String())
	if err != nil {
		t.Fatalf("GetByAssetID: %v", err)
	}
	if got.TotalSupply != types.MaxIssue {
		t.Errorf("total supply = %d, want max", got.TotalSupply)
	}
	if len(got.History) != 1 {
		t.Errorf("history grew to %d entries after failed issuance", len(got.History))
	}
}

func TestFinalizeToken(t *testing.T) {
	l, _, _ := newTestLedger(t)
	tok := mustCreate(t, l, goldParams())
	aid := tok.AssetID.String()

	got, err := l.FinalizeToken(aid)
	if err != nil {
		t.Fatalf("FinalizeToken: %v", err)
	}
	if !got.Finalized {
		t.Error("token not finalized")
	}
	if got.Status != StatusPendingFinalization {
		t.Errorf("status = %s, want %s", got.Status, StatusPendingFinalization)
	}
	last := got.History[len(got.History)-1]
	if last.Type != EntryFinalization || !last.Finalized {
		t.Errorf("finalization entry = %+v", last)
	}

	// Finalization is irreversible and not repeatable.
	if _, err := l.FinalizeToken(aid); !errors.Is(err, ErrConflict) {
		t.Errorf("double finalize error = %v, want ErrConflict", err)
	}

	// Issuance is forbidden after finalization.
	if _, err := l.IssueMore(aid, "1", "zs1other"); !errors.Is(err, ErrConflict) {
		t.Errorf("issue after finalize error = %v, want ErrConflict", err)
	}
}

func TestCreateFinalized(t *testing.T) {
	l, _, _ := newTestLedger(t)
	p := goldParams()
	p.Finalize = true
	tok := mustCreate(t, l, p)

	if !tok.Finalized {
		t.Error("token should be finalized at creation")
	}
	if _, err := l.IssueMore(tok.AssetID.String(), "1", "zs1other"); !errors.Is(err, ErrConflict) {
		t.Errorf("issue on finalized-at-create error = %v, want ErrConflict", err)
	}
}

func TestBurnTokens(t *testing.T) {
	l, _, _ := newTestLedger(t)
	tok := mustCreate(t, l, goldParams())
	aid := tok.AssetID.String()

	if _, err := l.IssueMore(aid, "500", "zs1other"); err != nil {
		t.Fatalf("IssueMore: %v", err)
	}

	got, err := l.BurnTokens(aid, "200000", "")
	if err != nil {
		t.Fatalf("BurnTokens: %v", err)
	}
	if got.TotalSupply != 800500 || got.BurnedSupply != 200000 {
		t.Errorf("supplies = %d/%d, want 800500/200000", got.TotalSupply, got.BurnedSupply)
	}
	// Conservation: initial + issued == total + burned.
	if got.InitialSupply+500 != got.TotalSupply+got.BurnedSupply {
		t.Error("supply conservation violated")
	}
	if got.Status != StatusPendingBurn {
		t.Errorf("status = %s, want %s", got.Status, StatusPendingBurn)
	}
	last := got.History[len(got.History)-1]
	if last.Type != EntryBurn || last.Amount != 200000 || last.Recipient != IncineratorAddress {
		t.Errorf("burn entry = %+v", last)
	}

	// Explicit burn address is recorded.
	got, err = l.BurnTokens(aid, "100", "zs1furnace")
	if err != nil {
		t.Fatalf("BurnTokens with address: %v", err)
	}
	if got.History[len(got.History)-1].Recipient != "zs1furnace" {
		t.Error("explicit burn address not recorded")
	}
}

func TestBurnExceedsSupply(t *testing.T) {
	l, _, _ := newTestLedger(t)
	tok := mustCreate(t, l, goldParams())
	aid := tok.AssetID.String()

	if _, err := l.BurnTokens(aid, "1000001", ""); !errors.Is(err, ErrConflict) {
		t.Errorf("over-burn error = %v, want ErrConflict", err)
	}
	if _, err := l.BurnTokens(aid, "0", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("zero burn error = %v, want ErrValidation", err)
	}

	got, err := l.GetByAssetID(aid)
	if err != nil {
		t.Fatalf("GetByAssetID: %v", err)
	}
	if got.TotalSupply != 1000000 || got.BurnedSupply != 0 {
		t.Errorf("supplies mutated to %d/%d after rejected burns", got.TotalSupply, got.BurnedSupply)
	}
}

func TestBurnAfterFinalize(t *testing.T) {
	l, _, _ := newTestLedger(t)
	tok := mustCreate(t, l, goldParams())
	aid := tok.AssetID.String()

	if _, err := l.FinalizeToken(aid); err != nil {
		t.Fatalf("FinalizeToken: %v", err)
	}
	got, err := l.BurnTokens(aid, "1000", "")
	if err != nil {
		t.Fatalf("burn after finalize: %v", err)
	}
	if got.TotalSupply != 999000 {
		t.Errorf("total supply = %d, want 999000", got.TotalSupply)
	}
	if !got.Finalized {
		t.Error("burn cleared the finalized flag")
	}
}

func TestDeployToken(t *testing.T) {
	l, fake, _ := newTestLedger(t)
	tok := mustCreate(t, l, goldParams())
	aid := tok.AssetID.String()

	res, err := l.DeployToken(context.Background(), aid, DeployOptions{Mine: true})
	if err != nil {
		t.Fatalf("DeployToken: %v", err)
	}
	if res.TxID == "" || res.Token.TxID != res.TxID {
		t.Errorf("tx id = %q/%q", res.TxID, res.Token.TxID)
	}
	if res.Token.Status != StatusDeployed {
		t.Errorf("status = %s, want %s", res.Token.Status, StatusDeployed)
	}
	if res.Token.DeployedAt.IsZero() {
		t.Error("deployed timestamp not set")
	}
	if res.Token.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", res.Token.Attempts)
	}
	last := res.Token.History[len(res.Token.History)-1]
	if last.Type != EntryDeployment || last.TxID != res.TxID {
		t.Errorf("deployment entry = %+v", last)
	}

	if len(fake.requests) != 1 {
		t.Fatalf("tool invoked %d times, want 1", len(fake.requests))
	}
	req := fake.requests[0]
	if !req.Mine || !req.FirstIssuance {
		t.Errorf("request flags = %+v", req)
	}
	if req.Amount != 1000000 {
		t.Errorf("request amount = %d, want 1000000", req.Amount)
	}
	if want := aid + ":1"; req.IdempotencyKey != want {
		t.Errorf("idempotency key = %q, want %q", req.IdempotencyKey, want)
	}

	// Re-deploying a deployed token is a conflict.
	if _, err := l.DeployToken(context.Background(), aid, DeployOptions{}); !errors.Is(err, ErrConflict) {
		t.Errorf("re-deploy error = %v, want ErrConflict", err)
	}
}

func TestDeployFailureAndRetry(t *testing.T) {
	l, fake, _ := newTestLedger(t)
	tok := mustCreate(t, l, goldParams())
	aid := tok.AssetID.String()

	fake.err = &issuer.ToolError{Kind: issuer.FailBroadcast, Detail: "peer rejected bundle"}
	_, err := l.DeployToken(context.Background(), aid, DeployOptions{})
	if err == nil {
		t.Fatal("expected deployment failure")
	}
	var toolErr *issuer.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error = %v, want *issuer.ToolError", err)
	}
	if toolErr.Kind != issuer.FailBroadcast || toolErr.Detail != "peer rejected bundle" {
		t.Errorf("tool error = %+v", toolErr)
	}

	got, err := l.GetByAssetID(aid)
	if err != nil {
		t.Fatalf("GetByAssetID: %v", err)
	}
	if got.Status != StatusFailed {
		t.Errorf("status = %s, want %s", got.Status, StatusFailed)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}
	if got.History[len(got.History)-1].Type != EntryDeploymentFailed {
		t.Errorf("last history entry = %+v", got.History[len(got.History)-1])
	}

	// A retry gets a fresh idempotency key and can succeed.
	fake.err = nil
	res, err := l.DeployToken(context.Background(), aid, DeployOptions{})
	if err != nil {
		t.Fatalf("retry DeployToken: %v", err)
	}
	if res.Token.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Token.Attempts)
	}
	if want := aid + ":2"; fake.requests[1].IdempotencyKey != want {
		t.Errorf("retry idempotency key = %q, want %q", fake.requests[1].IdempotencyKey, want)
	}
}

func TestDeployBuildFailureNonFatal(t *testing.T) {
	l, fake, _ := newTestLedger(t)
	tok := mustCreate(t, l, goldParams())
	creationPayload := append([]byte{}, tok.LastPayload...)

	// A broken payload assembler must not block the deployment itself.
	fake.buildErr = errors.New("assembler broken")
	res, err := l.DeployToken(context.Background(), tok.AssetID.String(), DeployOptions{})
	if err != nil {
		t.Fatalf("DeployToken: %v", err)
	}
	if res.Token.Status != StatusDeployed {
		t.Errorf("status = %s, want %s", res.Token.Status, StatusDeployed)
	}
	// The creation-time payload stays in place when the refresh fails.
	if !bytes.Equal(res.Token.LastPayload, creationPayload) {
		t.Error("failed payload refresh replaced the stored payload")
	}
}

func TestNotFound(t *testing.T) {
	l, _, _ := newTestLedger(t)
	unknown := "00" + strings.Repeat("0", 128)

	if _, err := l.GetByAssetID(unknown); !errors.Is(err, ErrNotFound) {
		t.Errorf("get error = %v, want ErrNotFound", err)
	}
	if _, err := l.IssueMore(unknown, "1", "zs1x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("issue error = %v, want ErrNotFound", err)
	}
	if _, err := l.FinalizeToken(unknown); !errors.Is(err, ErrNotFound) {
		t.Errorf("finalize error = %v, want ErrNotFound", err)
	}
	if _, err := l.BurnTokens(unknown, "1", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("burn error = %v, want ErrNotFound", err)
	}
	if _, err := l.DeployToken(context.Background(), unknown, DeployOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("deploy error = %v, want ErrNotFound", err)
	}
	if _, err := l.GetByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get by id error = %v, want ErrNotFound", err)
	}

	if _, err := l.GetByAssetID("not-an-asset-id"); !errors.Is(err, ErrValidation) {
		t.Errorf("malformed id error = %v, want ErrValidation", err)
	}
}

func TestPersistenceAcrossRestart(t *testing.T) {
	db := storage.NewMemory()
	defer db.Close()

	fake := &fakeIssuer{}
	l1 := New(NewStore(db), fake, testIssuerID, "testnet", nil)
	tok := mustCreate(t, l1, goldParams())
	if _, err := l1.IssueMore(tok.AssetID.String(), "42", "zs1other"); err != nil {
		t.Fatalf("IssueMore: %v", err)
	}

	// A fresh ledger over the same database sees the full record.
	l2 := New(NewStore(db), fake, testIssuerID, "testnet", nil)
	got, err := l2.GetByAssetID(tok.AssetID.String())
	if err != nil {
		t.Fatalf("GetByAssetID after restart: %v", err)
	}
	if got.TotalSupply != 1000042 {
		t.Errorf("total supply = %d, want 1000042", got.TotalSupply)
	}
	if len(got.History) != 2 {
		t.Errorf("history entries = %d, want 2", len(got.History))
	}
	if got.ID != tok.ID {
		t.Errorf("internal id = %s, want %s", got.ID, tok.ID)
	}
}

func TestListOrdering(t *testing.T) {
	l, _, _ := newTestLedger(t)

	var ids []string
	for i := 0; i < 3; i++ {
		p := goldParams()
		p.Symbol = fmt.Sprintf("GL%d", i)
		tok := mustCreate(t, l, p)
		ids = append(ids, tok.ID)
	}

	all := l.GetAllTokens()
	if len(all) != 3 {
		t.Fatalf("listed %d tokens, want 3", len(all))
	}
	for i, tok := range all {
		if tok.ID != ids[i] {
			t.Errorf("position %d = %s, want %s (insertion order)", i, tok.ID, ids[i])
		}
		if tok.Seq != uint64(i+1) {
			t.Errorf("seq at %d = %d, want %d", i, tok.Seq, i+1)
		}
	}
}

func TestListByIssuer(t *testing.T) {
	l, _, _ := newTestLedger(t)
	mustCreate(t, l, goldParams())

	mine := l.GetByIssuer(testIssuerID)
	if len(mine) != 1 {
		t.Errorf("tokens for issuer = %d, want 1", len(mine))
	}
	other := l.GetByIssuer(strings.Repeat("cd", 32))
	if len(other) != 0 {
		t.Errorf("tokens for stranger = %d, want 0", len(other))
	}
}

func TestStoreNextSeq(t *testing.T) {
	db := storage.NewMemory()
	defer db.Close()
	s := NewStore(db)

	for want := uint64(1); want <= 3; want++ {
		got, err := s.NextSeq()
		if err != nil {
			t.Fatalf("NextSeq: %v", err)
		}
		if got != want {
			t.Errorf("NextSeq = %d, want %d", got, want)
		}
	}
}
