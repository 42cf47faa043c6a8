package app

import (
	"log/slog"

	"crypto_dash/internal/event"
	"crypto_dash/internal/infra"
)

// DefaultConfigPath is where the YAML configuration is looked up.
const DefaultConfigPath = "configs/config.yaml"

// Bootstrap orchestrates the process startup sequence
type Bootstrap struct {
	Config *infra.Config
	Logger *slog.Logger
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and installs the default logger.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping crypto dashboard...")

	if configPath == "" {
		configPath = DefaultConfigPath
	}

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)

	// 3. Pre-allocate ticker events for the stream hot path
	event.Warmup()

	slog.Info("✅ Configuration loaded",
		slog.String("coingecko", cfg.API.CoinGecko.RestURL),
		slog.String("binance", cfg.API.Binance.WSURL),
		slog.Int("symbols", len(cfg.API.Binance.Symbols)),
	)
	return nil
}
