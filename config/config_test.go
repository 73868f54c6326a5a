package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuerd.conf")
	content := `# comment line
network = testnet

rpc.port = 18232
rpc.allowed = 127.0.0.1, 10.0.0.0/8
issuer.tool = "/opt/zsa/issuance-tool"
log.level = 'debug'
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	want := map[string]string{
		"network":     "testnet",
		"rpc.port":    "18232",
		"rpc.allowed": "127.0.0.1, 10.0.0.0/8",
		"issuer.tool": "/opt/zsa/issuance-tool", // quotes stripped
		"log.level":   "debug",
	}
	for k, v := range want {
		if values[k] != v {
			t.Errorf("values[%q] = %q, want %q", k, values[k], v)
		}
	}
	if len(values) != len(want) {
		t.Errorf("parsed %d keys, want %d", len(values), len(want))
	}
}

func TestLoadFileMissing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "absent.conf"))
	if err != nil {
		t.Fatalf("LoadFile on absent file: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("absent file produced %d values", len(values))
	}
}

func TestLoadFileBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuerd.conf")
	if err := os.WriteFile(path, []byte("no equals sign here\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error on malformed line")
	}
}

func TestApplyFileConfig(t *testing.T) {
	cfg := Default(Mainnet)
	values := map[string]string{
		"network":                 "testnet",
		"datadir":                 "/var/lib/issuerd",
		"rpc.enabled":             "false",
		"rpc.addr":                "0.0.0.0",
		"rpc.port":                "9999",
		"rpc.allowed":             "10.0.0.0/8,192.168.1.5",
		"rpc.cors":                "*",
		"keyring.file":            "/etc/issuerd/issuer.key",
		"keyring.passphrase_file": "/etc/issuerd/pass",
		"issuer.tool":             "/opt/tool",
		"issuer.timeout":          "2m30s",
		"issuer.mine":             "true",
		"metrics.enabled":         "false",
		"log.level":               "debug",
		"log.json":                "true",
	}

	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}

	if cfg.Network != Testnet || cfg.DataDir != "/var/lib/issuerd" {
		t.Errorf("core = %s/%s", cfg.Network, cfg.DataDir)
	}
	if cfg.RPC.Enabled || cfg.RPC.Addr != "0.0.0.0" || cfg.RPC.Port != 9999 {
		t.Errorf("rpc = %+v", cfg.RPC)
	}
	if len(cfg.RPC.AllowedIPs) != 2 || cfg.RPC.AllowedIPs[1] != "192.168.1.5" {
		t.Errorf("allowed = %v", cfg.RPC.AllowedIPs)
	}
	if len(cfg.RPC.CORSOrigins) != 1 || cfg.RPC.CORSOrigins[0] != "*" {
		t.Errorf("cors = %v", cfg.RPC.CORSOrigins)
	}
	if cfg.Keyring.File != "/etc/issuerd/issuer.key" || cfg.Keyring.PassphraseFile != "/etc/issuerd/pass" {
		t.Errorf("keyring = %+v", cfg.Keyring)
	}
	if cfg.Issuer.ToolPath != "/opt/tool" || cfg.Issuer.Timeout != 2*time.Minute+30*time.Second || !cfg.Issuer.Mine {
		t.Errorf("issuer = %+v", cfg.Issuer)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics should be disabled")
	}
	if cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestApplyFileConfigRejects(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"unknown key", map[string]string{"bogus.key": "1"}},
		{"bad bool", map[string]string{"rpc.enabled": "maybe"}},
		{"bad port", map[string]string{"rpc.port": "eighty"}},
		{"bad duration", map[string]string{"issuer.timeout": "forever"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ApplyFileConfig(Default(Mainnet), tt.values); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWriteDefaultConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuerd.conf")
	if err := WriteDefaultConfig(path, Testnet); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg := Default(Testnet)
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.Network != Testnet || cfg.RPC.Port != 18232 {
		t.Errorf("round trip = %s/%d", cfg.Network, cfg.RPC.Port)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("written defaults do not validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad network", func(c *Config) { c.Network = "devnet" }, true},
		{"negative port", func(c *Config) { c.RPC.Port = -1 }, true},
		{"huge port", func(c *Config) { c.RPC.Port = 70000 }, true},
		{"empty tool", func(c *Config) { c.Issuer.ToolPath = "" }, true},
		{"zero timeout", func(c *Config) { c.Issuer.Timeout = 0 }, true},
		{"sub-second timeout", func(c *Config) { c.Issuer.Timeout = 500 * time.Millisecond }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, true},
		{"empty log level", func(c *Config) { c.Log.Level = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(Mainnet)
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default(Testnet)
	cfg.DataDir = "/data"

	if got := cfg.NetworkDataDir(); got != filepath.Join("/data", "testnet") {
		t.Errorf("NetworkDataDir = %s", got)
	}
	if got := cfg.LedgerDir(); !strings.HasSuffix(got, filepath.Join("testnet", "ledger")) {
		t.Errorf("LedgerDir = %s", got)
	}
	if got := cfg.KeyringFile(); !strings.HasSuffix(got, filepath.Join("keyring", "issuer.key")) {
		t.Errorf("KeyringFile = %s", got)
	}
	cfg.Keyring.File = "/custom/key"
	if got := cfg.KeyringFile(); got != "/custom/key" {
		t.Errorf("KeyringFile override = %s", got)
	}
}
