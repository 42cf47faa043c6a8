package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"crypto_dash/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
api:
  coingecko:
    rest_url: "https://example.test/api/v3"
    currency: "eur"
  binance:
    ws_url: "wss://example.test/ws"
    symbols: ["BTCUSDT", "SOLUSDT"]
dashboard:
  page_size: 50
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.API.CoinGecko.Currency != "eur" {
		t.Errorf("Expected currency eur, got %s", cfg.API.CoinGecko.Currency)
	}
	if cfg.Dashboard.PageSize != 50 {
		t.Errorf("Expected page size 50, got %d", cfg.Dashboard.PageSize)
	}
	if len(cfg.API.Binance.Symbols) != 2 {
		t.Errorf("Expected 2 symbols, got %d", len(cfg.API.Binance.Symbols))
	}
	// Untouched keys keep their defaults
	if cfg.Dashboard.RefreshIntervalSec != 60 {
		t.Errorf("Expected default refresh 60s, got %d", cfg.Dashboard.RefreshIntervalSec)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Dashboard.PageSize != 30 {
		t.Errorf("Expected default page size 30, got %d", cfg.Dashboard.PageSize)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("CRYPTO_COINGECKO_KEY", "CG-test")
	t.Setenv("CRYPTO_CURRENCY", "try")
	t.Setenv("CRYPTO_BINANCE_WS_URL", "ws://localhost:9443/ws")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.API.CoinGecko.APIKey != "CG-test" {
		t.Errorf("Expected API key override, got %q", cfg.API.CoinGecko.APIKey)
	}
	if cfg.API.CoinGecko.Currency != "try" {
		t.Errorf("Expected currency override, got %q", cfg.API.CoinGecko.Currency)
	}
	if cfg.API.Binance.WSURL != "ws://localhost:9443/ws" {
		t.Errorf("Expected WS URL override, got %q", cfg.API.Binance.WSURL)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad rest url", func(c *Config) { c.API.CoinGecko.RestURL = "ftp://x" }, "api.coingecko.rest_url"},
		{"bad ws url", func(c *Config) { c.API.Binance.WSURL = "https://x" }, "api.binance.ws_url"},
		{"empty symbol", func(c *Config) { c.API.Binance.Symbols = []string{" "} }, "api.binance.symbols"},
		{"zero page size", func(c *Config) { c.Dashboard.PageSize = 0 }, "dashboard.page_size"},
		{"zero refresh", func(c *Config) { c.Dashboard.RefreshIntervalSec = 0 }, "dashboard.refresh_interval_sec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, cfgErr.Field)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}
