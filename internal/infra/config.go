package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"crypto_dash/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 민감 내용을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		CoinGecko struct {
			RestURL   string `yaml:"rest_url"`
			APIKey    string `yaml:"api_key"`
			Currency  string `yaml:"currency"`
			TimeoutMS int    `yaml:"timeout_ms"`
		} `yaml:"coingecko"`
		Binance struct {
			WSURL     string   `yaml:"ws_url"`
			Quote     string   `yaml:"quote"`
			Symbols   []string `yaml:"symbols"`
			Reconnect bool     `yaml:"reconnect"`
		} `yaml:"binance"`
	} `yaml:"api"`

	Dashboard struct {
		PageSize           int `yaml:"page_size"`
		RefreshIntervalSec int `yaml:"refresh_interval_sec"`
		ChartTTLSec        int `yaml:"chart_ttl_sec"`
		InboxSize          int `yaml:"inbox_size"`
	} `yaml:"dashboard"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Logging struct {
		Level      string `yaml:"level"`
		Dir        string `yaml:"dir"` // Empty disables the rotated file
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration that talks to the public CoinGecko and Binance endpoints.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "crypto_dash"
	cfg.API.CoinGecko.RestURL = "https://api.coingecko.com/api/v3"
	cfg.API.CoinGecko.Currency = "usd"
	cfg.API.CoinGecko.TimeoutMS = 10000
	cfg.API.Binance.WSURL = "wss://stream.binance.com:9443/ws"
	cfg.API.Binance.Quote = "USDT"
	cfg.API.Binance.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	cfg.Dashboard.PageSize = 30
	cfg.Dashboard.RefreshIntervalSec = 60
	cfg.Dashboard.ChartTTLSec = 300
	cfg.Dashboard.InboxSize = 1024
	cfg.Server.Addr = ":8080"
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 28
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// A missing file is not an error: defaults plus environment are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("Config file not found, using defaults", slog.String("path", path))
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &domain.ConfigError{Field: path, Err: err}
		}
	}

	// .env는 선택 사항입니다
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env", slog.Any("error", err))
	}

	// 4원칙: 보안 우선 - 환경 변수 오버라이드 지원
	overrideWithEnv(cfg)

	// 5원칙: 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	// CoinGecko
	if !strings.HasPrefix(c.API.CoinGecko.RestURL, "http://") && !strings.HasPrefix(c.API.CoinGecko.RestURL, "https://") {
		return &domain.ConfigError{Field: "api.coingecko.rest_url", Err: fmt.Errorf("invalid URL %q", c.API.CoinGecko.RestURL)}
	}
	if c.API.CoinGecko.Currency == "" {
		return &domain.ConfigError{Field: "api.coingecko.currency", Err: errors.New("currency is required")}
	}

	// Binance
	if !strings.HasPrefix(c.API.Binance.WSURL, "ws://") && !strings.HasPrefix(c.API.Binance.WSURL, "wss://") {
		return &domain.ConfigError{Field: "api.binance.ws_url", Err: fmt.Errorf("invalid WS URL %q", c.API.Binance.WSURL)}
	}
	for _, s := range c.API.Binance.Symbols {
		if strings.TrimSpace(s) == "" {
			return &domain.ConfigError{Field: "api.binance.symbols", Err: domain.ErrInvalidSymbol}
		}
	}

	// Dashboard
	if c.Dashboard.PageSize <= 0 || c.Dashboard.PageSize > 250 {
		return &domain.ConfigError{Field: "dashboard.page_size", Err: errors.New("page size must be in 1..250")}
	}
	if c.Dashboard.RefreshIntervalSec <= 0 {
		return &domain.ConfigError{Field: "dashboard.refresh_interval_sec", Err: errors.New("refresh interval must be positive")}
	}
	if c.Dashboard.InboxSize <= 0 {
		return &domain.ConfigError{Field: "dashboard.inbox_size", Err: errors.New("inbox size must be positive")}
	}

	return nil
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("CRYPTO_COINGECKO_URL"); url != "" {
		cfg.API.CoinGecko.RestURL = url
	}
	if key := os.Getenv("CRYPTO_COINGECKO_KEY"); key != "" {
		cfg.API.CoinGecko.APIKey = key
	}
	if cur := os.Getenv("CRYPTO_CURRENCY"); cur != "" {
		cfg.API.CoinGecko.Currency = cur
	}
	if url := os.Getenv("CRYPTO_BINANCE_WS_URL"); url != "" {
		cfg.API.Binance.WSURL = url
	}
	if addr := os.Getenv("CRYPTO_HTTP_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
}
