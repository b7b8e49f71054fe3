package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing-on-purpose", "config.yaml"), nil); err == nil {
		t.Fatal("explicit missing config file must error")
	}

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load without file: %v", err)
	}
	if cfg.ListenAddr != ":3000" {
		t.Errorf("listen = %q, want :3000", cfg.ListenAddr)
	}
	if cfg.BatchSize != 2000 || cfg.MaxRetries != 5 {
		t.Errorf("unexpected backfill defaults: %+v", cfg)
	}
	if cfg.RetryBackoff != 500*time.Millisecond {
		t.Errorf("retry backoff = %v, want 500ms", cfg.RetryBackoff)
	}
	if cfg.Multiplier != 1 || cfg.MintDecimals != 18 {
		t.Errorf("unexpected settlement defaults: %+v", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
listen: ":8080"
rpc: "https://rpc.example.test"
trigger-token: "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238"
mint-token: "0x08210f9170f89ab7658f0b5e3ff39b0e03c594d4"
multiplier: 10
tokens:
  - address: "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238"
    symbol: "USDC"
    decimals: 6
  - address: "0x08210f9170f89ab7658f0b5e3ff39b0e03c594d4"
    symbol: "EURC"
    decimals: 6
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.Multiplier != 10 {
		t.Errorf("multiplier = %d, want 10", cfg.Multiplier)
	}
	if len(cfg.Tokens) != 2 {
		t.Fatalf("tokens = %d, want 2", len(cfg.Tokens))
	}
	if cfg.Tokens[0].Symbol != "USDC" || cfg.Tokens[0].Decimals != 6 {
		t.Errorf("unexpected first token: %+v", cfg.Tokens[0])
	}
}
