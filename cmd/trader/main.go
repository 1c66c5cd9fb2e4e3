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
	"time"

	"go.uber.org/zap"

	"solana-trade-engine/internal/chain"
	"solana-trade-engine/internal/config"
	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/engine"
	"solana-trade-engine/internal/keystore"
	applog "solana-trade-engine/internal/log"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/storage"
	chstore "solana-trade-engine/internal/storage/clickhouse"
	"solana-trade-engine/internal/storage/migrations"
	pgstore "solana-trade-engine/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default configs/config.yaml)")
	op := flag.String("op", "", "Operation: buy, sell, or create (empty to only reconcile)")
	mint := flag.String("mint", "", "Target token mint address")
	amount := flag.Uint64("amount", 0, "Input amount in smallest units (lamports for buy)")
	slippageBps := flag.Uint("slippage-bps", 0, "Slippage tolerance in basis points (0 uses config default)")
	priorityFee := flag.Uint64("priority-fee", 0, "Priority fee hint in lamports")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := applog.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *op, *mint, *amount, uint32(*slippageBps), *priorityFee); err != nil {
		logger.Fatal("trader failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger, op, mint string, amount uint64, slippageBps uint32, priorityFee uint64) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	pool, err := pgstore.NewPool(ctx, cfg.Database.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	oplog := pgstore.NewOperationLog(pool)

	var audit storage.AuditStore
	if cfg.Database.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Database.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("prepare clickhouse: %w", err)
		}
		defer conn.Close()
		audit = chstore.NewAuditStore(conn)
	}

	client := chain.NewHTTPClient(cfg.Chain.Endpoint,
		chain.WithCommitment(cfg.Chain.Commitment),
	)

	keypair, err := keystore.Load(cfg.Wallet.KeypairPath)
	if err != nil {
		return fmt.Errorf("load keypair: %w", err)
	}
	logger.Info("wallet loaded", zap.String("address", keypair.Address()))

	orch := engine.NewOrchestrator(client, oplog, audit, keypair, engine.Config{
		ProgramID:           cfg.Chain.ProgramID,
		BaseFeeLamports:     cfg.Engine.BaseFeeLamports,
		MinBalanceLamports:  cfg.Engine.MinBalanceLamports,
		DedupWindow:         cfg.Engine.DedupWindow,
		InitialVirtualBase:  cfg.Engine.InitialVirtualBase,
		InitialVirtualQuote: cfg.Engine.InitialVirtualQuote,
		Backoff: engine.BackoffPolicy{
			InitialDelay: cfg.Engine.Retry.InitialDelay,
			MaxDelay:     cfg.Engine.Retry.MaxDelay,
			Multiplier:   2.0,
			WaitBudget:   cfg.Engine.Retry.WaitBudget,
			MaxAttempts:  cfg.Engine.Retry.MaxAttempts,
		},
	}, logger)

	// Resolve records a previous run left behind before taking new work.
	if err := orch.Reconcile(ctx); err != nil {
		logger.Warn("startup reconciliation failed", zap.Error(err))
	}

	if op == "" {
		logger.Info("no operation requested, reconciliation done")
		return nil
	}

	kind, err := parseOperation(op)
	if err != nil {
		return err
	}
	if mint == "" {
		return fmt.Errorf("--mint is required")
	}
	if amount == 0 {
		return fmt.Errorf("--amount is required")
	}
	if slippageBps == 0 {
		slippageBps = cfg.Engine.DefaultSlippageBps
	}

	intent := &domain.TradeIntent{
		Kind:        kind,
		Account:     keypair.Address(),
		Mint:        mint,
		Amount:      amount,
		SlippageBps: slippageBps,
		PriorityFee: priorityFee,
		Nonce:       time.Now().UnixMilli(),
	}

	outcome, err := orch.Execute(ctx, intent)
	if err != nil && outcome == nil {
		return err
	}

	logger.Info("operation finished",
		zap.String("status", string(outcome.Status)),
		zap.String("signature", outcome.Signature),
		zap.Int64("slot", outcome.Slot),
		zap.Uint64("expected_out", outcome.ExpectedOut),
		zap.Uint64("min_out", outcome.MinOut),
		zap.Bool("replayed", outcome.Replayed),
		zap.String("detail", outcome.Err),
	)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// parseOperation maps the CLI operation name to its kind.
func parseOperation(op string) (domain.OperationKind, error) {
	switch op {
	case "buy":
		return domain.OpBuy, nil
	case "sell":
		return domain.OpSell, nil
	case "create":
		return domain.OpCreateAndBuy, nil
	}
	return "", fmt.Errorf("unknown operation %q (want buy, sell, or create)", op)
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
