package config

import (
	"fmt"
	"time"
)

// Validate checks runtime daemon config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if cfg.Issuer.ToolPath == "" {
		return fmt.Errorf("issuer.tool must not be empty")
	}
	if cfg.Issuer.Timeout <= 0 {
		return fmt.Errorf("issuer.timeout must be positive")
	}
	if cfg.Issuer.Timeout < time.Second {
		return fmt.Errorf("issuer.timeout below 1s would abort every deployment")
	}
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error")
	}
	return nil
}
