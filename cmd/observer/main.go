package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"solana-trade-engine/internal/chain"
	"solana-trade-engine/internal/config"
	applog "solana-trade-engine/internal/log"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/observer"
	chstore "solana-trade-engine/internal/storage/clickhouse"
	"solana-trade-engine/internal/storage/migrations"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.ClickhouseDSN == "" {
		fmt.Fprintln(os.Stderr, "database.clickhouse_dsn is required for the observer")
		os.Exit(1)
	}

	logger, err := applog.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("observer failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Database.ClickhouseDSN)
	if err != nil {
		return fmt.Errorf("prepare clickhouse: %w", err)
	}
	defer conn.Close()
	audit := chstore.NewAuditStore(conn)

	wsCfg := chain.DefaultWSConfig()
	wsCfg.Commitment = cfg.Chain.Commitment
	ws, err := chain.NewWSClient(ctx, cfg.Chain.WSEndpoint, &wsCfg, logger)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	svc := observer.NewService(ws, audit, observer.Config{
		ProgramID:     cfg.Chain.ProgramID,
		BatchSize:     cfg.Observer.BatchSize,
		FlushInterval: cfg.Observer.FlushInterval,
	}, logger)

	return svc.Run(ctx)
}

// serveMetrics exposes /metrics and /health.
func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	logger.Info("metrics server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics server error", zap.Error(err))
	}
}
