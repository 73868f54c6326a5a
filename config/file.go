package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// RPC
	case "rpc.enabled", "rpc":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		cfg.RPC.Enabled = b
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		p, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port: %w", err)
		}
		cfg.RPC.Port = p
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = splitList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = splitList(value)

	// Keyring
	case "keyring.file":
		cfg.Keyring.File = value
	case "keyring.passphrase_file":
		cfg.Keyring.PassphraseFile = value

	// Issuer tool
	case "issuer.tool":
		cfg.Issuer.ToolPath = value
	case "issuer.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		cfg.Issuer.Timeout = d
	case "issuer.mine":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		cfg.Issuer.Mine = b

	// Metrics
	case "metrics.enabled", "metrics":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		cfg.Metrics.Enabled = b

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		cfg.Log.JSON = b

	default:
		return fmt.Errorf("unknown config key")
	}
	return nil
}

// WriteDefaultConfig writes a commented default config file.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	content := `# issuerd configuration
#
# Operational settings only. The asset identifier scheme and supply
# rules are protocol constants and cannot be changed here.

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.issuerd)
# datadir = ~/.issuerd

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = ` + strconv.Itoa(cfg.RPC.Port) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# ============================================================================
# Issuer Key Record
# ============================================================================

# Key record path (default: <datadir>/<network>/keyring/issuer.key)
# keyring.file =

# File holding the at-rest passphrase. Empty disables encryption.
# keyring.passphrase_file =

# ============================================================================
# Issuance Tool
# ============================================================================

# Transaction tool binary (looked up on PATH when bare)
issuer.tool = ` + cfg.Issuer.ToolPath + `

# Per-deployment timeout
issuer.timeout = ` + cfg.Issuer.Timeout.String() + `

# Ask the tool to mine transactions itself
issuer.mine = false

# ============================================================================
# Metrics
# ============================================================================

metrics.enabled = true

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file = issuerd.log
log.json = false
`
	return os.WriteFile(path, []byte(content), 0600)
}

func parseBool(value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean: %q", value)
	}
	return b, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
