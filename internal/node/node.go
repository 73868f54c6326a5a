// Package node provides a reusable issuance daemon core that can be
// embedded in any binary (daemon, CLI, tests).
package node

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shielded-labs/issuerd/config"
	"github.com/shielded-labs/issuerd/internal/issuer"
	"github.com/shielded-labs/issuerd/internal/keyring"
	"github.com/shielded-labs/issuerd/internal/ledger"
	klog "github.com/shielded-labs/issuerd/internal/log"
	"github.com/shielded-labs/issuerd/internal/metrics"
	"github.com/shielded-labs/issuerd/internal/rpc"
	"github.com/shielded-labs/issuerd/internal/storage"
)

// ledgerKeyspace prefixes every ledger key in the shared database.
var ledgerKeyspace = []byte("ledger/")

// Node is a fully-initialized issuance daemon.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db      storage.DB
	keyring *keyring.Keyring
	tool    *issuer.Tool
	ledger  *ledger.Ledger
	metrics *metrics.Metrics

	// RPC
	rpcServer *rpc.Server
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, storage, keyring, tool, ledger) but does NOT bind the RPC
// listener. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = logsDir + "/issuerd.log"
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("datadir", cfg.DataDir).
		Msg("Starting issuerd")

	// ── 2. Open storage ─────────────────────────────────────────────
	db, err := storage.NewBadger(cfg.LedgerDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.LedgerDir(), err)
	}
	logger.Info().Str("path", cfg.LedgerDir()).Msg("Database opened")

	// ── 3. Issuer identity ──────────────────────────────────────────
	passphrase, err := readPassphraseFile(cfg.Keyring.PassphraseFile)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read passphrase file: %w", err)
	}
	kr, err := keyring.LoadOrCreate(cfg.KeyringFile(), passphrase)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load issuer identity: %w", err)
	}
	logger.Info().
		Str("issuer", kr.Issuer[:16]+"...").
		Msg("Issuer identity ready")

	signer, err := kr.Signer()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("derive request signer: %w", err)
	}

	// ── 4. Transaction tool ─────────────────────────────────────────
	tool := issuer.NewTool(cfg.Issuer.ToolPath, cfg.Issuer.Timeout, signer)

	// ── 5. Metrics ──────────────────────────────────────────────────
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// ── 6. Ledger ───────────────────────────────────────────────────
	// The ledger gets its own namespace inside the database so future
	// keyspaces can share the same Badger instance.
	store := ledger.NewStore(storage.NewPrefixDB(db, ledgerKeyspace))
	lg := ledger.New(store, tool, kr.Issuer, string(cfg.Network), m)
	m.SetTokensTracked(len(lg.GetAllTokens()))

	logger.Info().
		Int("tokens", len(lg.GetAllTokens())).
		Msg("Ledger ready")

	n := &Node{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		keyring: kr,
		tool:    tool,
		ledger:  lg,
		metrics: m,
	}

	// ── 7. RPC server ───────────────────────────────────────────────
	if cfg.RPC.Enabled {
		rpcAddr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		n.rpcServer = rpc.New(rpcAddr, lg, string(cfg.Network), cfg.Issuer.Mine, m, cfg.RPC)
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	return n, nil
}

// Start binds the RPC listener (when enabled).
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start RPC: %w", err)
		}
		n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server started")
	}

	n.logger.Info().
		Str("issuer", n.keyring.Issuer[:16]+"...").
		Msg("Node started successfully")
	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}
	if n.db != nil {
		n.db.Close()
	}
	n.logger.Info().Msg("Goodbye!")
}

// Ledger returns the token ledger.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Issuer returns the hex issuer identifier.
func (n *Node) Issuer() string {
	return n.keyring.Issuer
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// readPassphraseFile loads the at-rest passphrase. An empty path means
// the key record is stored unencrypted.
func readPassphraseFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pass := strings.TrimRight(string(data), "\r\n")
	if pass == "" {
		return nil, fmt.Errorf("passphrase file %s is empty", path)
	}
	return []byte(pass), nil
}
