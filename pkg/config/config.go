// Package config holds the engine configuration, loaded from a YAML file
// with optional .env overrides for credentials.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Execution ExecutionConfig `yaml:"execution"`
	Risk      RiskConfig      `yaml:"risk"`
	Broker    BrokerConfig    `yaml:"broker"`
	Run       RunConfig       `yaml:"run"`
}

// DataConfig selects the bar source.
type DataConfig struct {
	Source    string `yaml:"source"`    // csv | synthetic | bybit
	Timeframe string `yaml:"timeframe"` // 1m | 5m | 15m | 1h | 4h | 1d
	Symbol    string `yaml:"symbol"`
	CSVPath   string `yaml:"csv_path"`
	Category  string `yaml:"category"` // bybit market category
	Limit     int    `yaml:"limit"`
}

// ExecutionConfig parameterizes the fill cost models.
type ExecutionConfig struct {
	FeeBps      float64 `yaml:"fee_bps"`
	MinFee      float64 `yaml:"min_fee"`
	SlippageBps float64 `yaml:"slippage_bps"`
	SpreadBps   float64 `yaml:"spread_bps"`
	LatencyMs   int     `yaml:"latency_ms"`
	MinVolume   float64 `yaml:"min_volume"`
	MaxADVPct   float64 `yaml:"max_adv_pct"`
}

// RiskConfig carries the risk-rule limits.
type RiskConfig struct {
	MaxPositionValue float64 `yaml:"max_position_value"`
	MaxLeverage      float64 `yaml:"max_leverage"`
	MaxDrawdown      float64 `yaml:"max_drawdown"`
	MaxLossStreak    int     `yaml:"max_loss_streak"`
	CorrelationCap   float64 `yaml:"correlation_cap"`
	// VolTarget scales order quantity by min(1, VolTarget/hint) where the
	// hint is the order's vol, signal_vol or atr value in that precedence
	// order. The three hints are not unit-normalized against each other;
	// callers own the convention.
	VolTarget float64 `yaml:"vol_target"`
}

// BrokerConfig configures the paper broker.
type BrokerConfig struct {
	InitialCash float64 `yaml:"initial_cash"`
}

// RunConfig identifies and seeds a run.
type RunConfig struct {
	Strategy     string `yaml:"strategy"`
	Lookback     int    `yaml:"lookback"`
	Seed         int64  `yaml:"seed"`
	ArtifactsDir string `yaml:"artifacts_dir"`
	RunStorePath string `yaml:"run_store_path"`
	MetricsAddr  string `yaml:"metrics_addr"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Source:    "synthetic",
			Timeframe: "1h",
			Symbol:    "AAPL",
			Category:  "spot",
			Limit:     200,
		},
		Execution: ExecutionConfig{
			FeeBps:      1.0,
			SlippageBps: 2.0,
			SpreadBps:   1.0,
			LatencyMs:   250,
			MinVolume:   0,
			MaxADVPct:   0.02,
		},
		Risk: RiskConfig{
			MaxPositionValue: 10_000,
			MaxLeverage:      1.2,
			MaxDrawdown:      0.2,
			MaxLossStreak:    5,
			CorrelationCap:   0.75,
			VolTarget:        0.15,
		},
		Broker: BrokerConfig{InitialCash: 100_000},
		Run: RunConfig{
			Strategy:     "momentum",
			Lookback:     50,
			Seed:         7,
			ArtifactsDir: "runs",
			RunStorePath: "runs/runs.sqlite",
		},
	}
}

// Load reads a YAML config file on top of the defaults. A .env file next
// to the process is loaded first when present so environment-dependent
// values (API keys) resolve before the YAML is applied.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Broker.InitialCash <= 0 {
		return fmt.Errorf("config: broker.initial_cash must be positive, got %.2f", c.Broker.InitialCash)
	}
	if c.Execution.FeeBps < 0 || c.Execution.SlippageBps < 0 || c.Execution.SpreadBps < 0 {
		return fmt.Errorf("config: execution bps values must be non-negative")
	}
	if c.Risk.MaxLeverage <= 0 {
		return fmt.Errorf("config: risk.max_leverage must be positive, got %.2f", c.Risk.MaxLeverage)
	}
	if c.Risk.MaxDrawdown <= 0 || c.Risk.MaxDrawdown > 1 {
		return fmt.Errorf("config: risk.max_drawdown must be in (0, 1], got %.2f", c.Risk.MaxDrawdown)
	}
	return nil
}
