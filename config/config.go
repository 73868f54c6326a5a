// Package config handles issuerd runtime configuration.
//
// All settings here are node-operational: the asset identifier scheme
// and supply rules are protocol constants and never configurable.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds issuerd runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// RPC server
	RPC RPCConfig

	// Keyring
	Keyring KeyringConfig

	// External transaction tool
	Issuer IssuerConfig

	// Metrics
	Metrics MetricsConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// KeyringConfig holds issuer key record settings.
type KeyringConfig struct {
	// File overrides the default key record path.
	File string `conf:"keyring.file"`
	// PassphraseFile names a file holding the at-rest passphrase.
	// Empty means the record is stored unencrypted.
	PassphraseFile string `conf:"keyring.passphrase_file"`
}

// IssuerConfig holds external transaction tool settings.
type IssuerConfig struct {
	// ToolPath is the issuance tool binary; looked up on PATH when bare.
	ToolPath string `conf:"issuer.tool"`
	// Timeout bounds one deployment attempt.
	Timeout time.Duration `conf:"issuer.timeout"`
	// Mine asks the tool to mine transactions itself.
	Mine bool `conf:"issuer.mine"`
}

// MetricsConfig holds prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool `conf:"metrics.enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.issuerd
//	macOS:   ~/Library/Application Support/Issuerd
//	Windows: %APPDATA%\Issuerd
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".issuerd"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Issuerd")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Issuerd")
		}
		return filepath.Join(home, "AppData", "Roaming", "Issuerd")
	default:
		return filepath.Join(home, ".issuerd")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// LedgerDir returns the token database directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.NetworkDataDir(), "ledger")
}

// KeyringFile returns the issuer key record path.
func (c *Config) KeyringFile() string {
	if c.Keyring.File != "" {
		return c.Keyring.File
	}
	return filepath.Join(c.NetworkDataDir(), "keyring", "issuer.key")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "issuerd.conf")
}
