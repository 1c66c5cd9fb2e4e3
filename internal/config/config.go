// Package config loads runtime configuration from YAML plus environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "trade"
)

// Load reads the config file and merges environment overrides. Environment
// variables use the TRADE_ prefix with underscores for dots, for example
// TRADE_CHAIN_ENDPOINT.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file %q not found: %w", path, err)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("chain.endpoint", "https://api.devnet.solana.com")
	v.SetDefault("chain.ws_endpoint", "wss://api.devnet.solana.com")
	v.SetDefault("chain.commitment", "confirmed")

	v.SetDefault("engine.default_slippage_bps", 500)
	v.SetDefault("engine.base_fee_lamports", 5000)
	v.SetDefault("engine.min_balance_lamports", 1000000)
	v.SetDefault("engine.dedup_window", "10m")
	v.SetDefault("engine.initial_virtual_base", 1073000000000000)
	v.SetDefault("engine.initial_virtual_quote", 30000000000)
	v.SetDefault("engine.retry.max_attempts", 3)
	v.SetDefault("engine.retry.initial_delay", "500ms")
	v.SetDefault("engine.retry.max_delay", "10s")
	v.SetDefault("engine.retry.wait_budget", "60s")

	v.SetDefault("wallet.keypair_path", "keypair.json")

	v.SetDefault("observer.batch_size", 100)
	v.SetDefault("observer.flush_interval", "5s")

	v.SetDefault("metrics.addr", ":9100")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}
