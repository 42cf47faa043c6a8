package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"crypto_dash/internal/app"
	"crypto_dash/internal/server"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", app.DefaultConfigPath, "path to the YAML configuration")
	pprofAddr := flag.String("pprof", "", "pprof listen address (e.g. localhost:6060), disabled when empty")
	flag.Parse()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 2. Pprof Server (for performance profiling)
	if *pprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", *pprofAddr))
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Dashboard (store, loop, refresh timer, stream, metadata cache)
	dashboard, err := app.NewDashboard(cfg, app.Deps{})
	if err != nil {
		slog.Error("❌ Dashboard init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer dashboard.Stop()

	srv := server.New(cfg.Server.Addr, dashboard, dashboard.Metrics)

	if err := dashboard.Start(ctx); err != nil {
		slog.Error("❌ Dashboard start failed", slog.Any("error", err))
		return
	}

	slog.InfoContext(ctx, "✨ Crypto dashboard fully operational. Press Ctrl+C to exit.", slog.String("addr", cfg.Server.Addr))

	// 5. Serve until shutdown signal
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server failed", slog.Any("error", err))
	}

	slog.Info("👋 Shutting down gracefully...")
}
