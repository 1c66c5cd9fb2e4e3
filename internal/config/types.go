package config

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"solana-trade-engine/internal/domain"
)

// Config aggregates every runtime setting of the system.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Database DatabaseConfig `mapstructure:"database"`
	Observer ObserverConfig `mapstructure:"observer"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig controls application-level parameters.
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ChainConfig describes the ledger endpoints.
type ChainConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	WSEndpoint string `mapstructure:"ws_endpoint"`
	Commitment string `mapstructure:"commitment"`
	ProgramID  string `mapstructure:"program_id"`
}

// EngineConfig controls orchestration behavior.
type EngineConfig struct {
	DefaultSlippageBps  uint32        `mapstructure:"default_slippage_bps"`
	BaseFeeLamports     uint64        `mapstructure:"base_fee_lamports"`
	MinBalanceLamports  uint64        `mapstructure:"min_balance_lamports"`
	DedupWindow         time.Duration `mapstructure:"dedup_window"`
	InitialVirtualBase  uint64        `mapstructure:"initial_virtual_base"`
	InitialVirtualQuote uint64        `mapstructure:"initial_virtual_quote"`
	Retry               RetryConfig   `mapstructure:"retry"`
}

// RetryConfig controls retry and confirmation pacing.
type RetryConfig struct {
	MaxAttempts  uint32        `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	WaitBudget   time.Duration `mapstructure:"wait_budget"`
}

// WalletConfig locates the signing key.
type WalletConfig struct {
	KeypairPath string `mapstructure:"keypair_path"`
}

// DatabaseConfig describes storage backends. ClickhouseDSN is optional;
// without it audit archiving is disabled.
type DatabaseConfig struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

// ObserverConfig controls event archiving.
type ObserverConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// MetricsConfig controls the metrics/health HTTP server.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig controls zap logger construction.
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var err error

	if c.Chain.Endpoint == "" {
		err = multierr.Append(err, fmt.Errorf("chain.endpoint is required"))
	}
	if c.Chain.ProgramID == "" {
		err = multierr.Append(err, fmt.Errorf("chain.program_id is required"))
	}
	switch c.Chain.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		err = multierr.Append(err, fmt.Errorf("chain.commitment must be processed, confirmed, or finalized, got %q", c.Chain.Commitment))
	}

	if c.Engine.DefaultSlippageBps > domain.MaxSlippageBps {
		err = multierr.Append(err, fmt.Errorf("engine.default_slippage_bps %d out of range [0, %d]", c.Engine.DefaultSlippageBps, domain.MaxSlippageBps))
	}
	if c.Engine.Retry.MaxAttempts == 0 {
		err = multierr.Append(err, fmt.Errorf("engine.retry.max_attempts must be at least 1"))
	}
	if c.Engine.Retry.InitialDelay <= 0 {
		err = multierr.Append(err, fmt.Errorf("engine.retry.initial_delay must be positive"))
	}
	if c.Engine.Retry.WaitBudget <= 0 {
		err = multierr.Append(err, fmt.Errorf("engine.retry.wait_budget must be positive"))
	}

	if c.Wallet.KeypairPath == "" {
		err = multierr.Append(err, fmt.Errorf("wallet.keypair_path is required"))
	}
	if c.Database.PostgresDSN == "" {
		err = multierr.Append(err, fmt.Errorf("database.postgres_dsn is required"))
	}

	return err
}
