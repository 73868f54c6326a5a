package node

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shielded-labs/issuerd/config"
	"github.com/shielded-labs/issuerd/internal/ledger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default(config.Testnet)
	cfg.DataDir = t.TempDir()
	cfg.RPC.Enabled = false
	cfg.Metrics.Enabled = false
	return cfg
}

func TestNodeLifecycle(t *testing.T) {
	cfg := testConfig(t)

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer n.Stop()

	if len(n.Issuer()) != 64 {
		t.Errorf("issuer length = %d, want 64", len(n.Issuer()))
	}
	if n.RPCAddr() != "" {
		t.Errorf("RPCAddr = %q with RPC disabled", n.RPCAddr())
	}

	tok, err := n.Ledger().CreateToken(ledger.CreateParams{
		Name:          "Gold Token",
		Symbol:        "GOLD",
		InitialSupply: "1000",
		Recipient:     "zs1recipient",
	})
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if tok.Issuer != n.Issuer() {
		t.Error("ledger does not mint under the node identity")
	}

	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestNodeIdentityPersists(t *testing.T) {
	cfg := testConfig(t)

	n1, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	issuer := n1.Issuer()
	tok, err := n1.Ledger().CreateToken(ledger.CreateParams{
		Name:          "Gold Token",
		Symbol:        "GOLD",
		InitialSupply: "1000",
		Recipient:     "zs1recipient",
	})
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	n1.Stop()

	n2, err := New(cfg)
	if err != nil {
		t.Fatalf("New (restart): %v", err)
	}
	defer n2.Stop()

	if n2.Issuer() != issuer {
		t.Errorf("restart changed identity: %s vs %s", n2.Issuer(), issuer)
	}
	got, err := n2.Ledger().GetByAssetID(tok.AssetID.String())
	if err != nil {
		t.Fatalf("GetByAssetID after restart: %v", err)
	}
	if got.TotalSupply != 1000 || got.ID != tok.ID {
		t.Errorf("restart record = id %s supply %d, want id %s supply 1000", got.ID, got.TotalSupply, tok.ID)
	}
}

func TestNodeRPCEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.RPC.Enabled = true
	cfg.RPC.Addr = "127.0.0.1"
	cfg.RPC.Port = 0

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer n.Stop()

	if err := n.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if n.RPCAddr() == "" {
		t.Error("RPCAddr empty after Start with RPC enabled")
	}
}

func TestNodeEncryptedKeyring(t *testing.T) {
	cfg := testConfig(t)
	passFile := filepath.Join(cfg.DataDir, "passphrase")
	if err := os.WriteFile(passFile, []byte("sekrit\n"), 0600); err != nil {
		t.Fatalf("write passphrase file: %v", err)
	}
	cfg.Keyring.PassphraseFile = passFile

	n1, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	issuer := n1.Issuer()
	n1.Stop()

	// Without the passphrase the record must refuse to load.
	bad := config.Default(config.Testnet)
	*bad = *cfg
	bad.Keyring.PassphraseFile = ""
	if _, err := New(bad); err == nil {
		t.Fatal("expected error loading encrypted record without passphrase")
	}

	n2, err := New(cfg)
	if err != nil {
		t.Fatalf("New (with passphrase): %v", err)
	}
	defer n2.Stop()
	if n2.Issuer() != issuer {
		t.Error("encrypted identity did not round trip")
	}
}

func TestReadPassphraseFile(t *testing.T) {
	dir := t.TempDir()

	if got, err := readPassphraseFile(""); err != nil || got != nil {
		t.Errorf("empty path = %q/%v, want nil/nil", got, err)
	}

	path := filepath.Join(dir, "pass")
	if err := os.WriteFile(path, []byte("hunter2\r\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := readPassphraseFile(path)
	if err != nil {
		t.Fatalf("readPassphraseFile: %v", err)
	}
	if string(got) != "hunter2" {
		t.Errorf("passphrase = %q, want hunter2", got)
	}

	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := readPassphraseFile(empty); err == nil {
		t.Error("expected error on empty passphrase file")
	}

	if _, err := readPassphraseFile(filepath.Join(dir, "absent")); err == nil {
		t.Error("expected error on missing passphrase file")
	}
}
