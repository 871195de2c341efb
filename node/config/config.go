// Package config implements node configuration loading.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"nativeswap/core/pricing"
)

// Duration decodes YAML strings like "30s" or "1m" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// TokenConfig declares a token ledger to register at genesis.
type TokenConfig struct {
	ID       string `yaml:"id"` // 0x-prefixed, 20 bytes
	Name     string `yaml:"name"`
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
}

// BalanceConfig funds an account at genesis. Asset selects the token by
// its hex ID; an empty Asset funds native currency.
type BalanceConfig struct {
	Address string `yaml:"address"`
	Asset   string `yaml:"asset,omitempty"`
	Amount  string `yaml:"amount"` // decimal string
}

// Config holds node configuration.
type Config struct {
	RPCAddr          string   `yaml:"rpc_addr"`
	DataDir          string   `yaml:"data_dir"`
	SnapshotInterval Duration `yaml:"snapshot_interval"`
	FeeRate          uint64   `yaml:"fee_rate"` // basis points

	Tokens  []TokenConfig   `yaml:"tokens"`
	Genesis []BalanceConfig `yaml:"genesis"`
}

// DefaultConfig returns the default node config.
func DefaultConfig() *Config {
	return &Config{
		RPCAddr:          ":8546",
		DataDir:          "data",
		SnapshotInterval: Duration(30 * time.Second),
		FeeRate:          pricing.DefaultFeeRate,
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.FeeRate >= pricing.FeeDenominator {
		return nil, fmt.Errorf("fee_rate %d out of range [0, %d)", cfg.FeeRate, pricing.FeeDenominator)
	}
	return cfg, nil
}
