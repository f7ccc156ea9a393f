package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TradingConfig is the file-driven trading parameter set. Environment
// settings control the process; this file controls the strategy book.
type TradingConfig struct {
	Symbols    []string           `yaml:"symbols"`
	Timeframes []string           `yaml:"timeframes"`
	Weights    map[string]float64 `yaml:"timeframe_weights"`

	Risk struct {
		MaxDailyLoss         float64 `yaml:"max_daily_loss"`
		MaxPositionRisk      float64 `yaml:"max_position_risk"`
		PositionRatio        float64 `yaml:"position_ratio"`
		MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`
		MaxPositions         int     `yaml:"max_positions"`
	} `yaml:"risk"`

	Strategies []StrategyConfig `yaml:"strategies"`
}

// StrategyConfig names an evaluator and its parameters.
type StrategyConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// LoadTrading reads the yaml trading config. A missing file returns
// defaults, a malformed file is an error.
func LoadTrading(path string) (*TradingConfig, error) {
	cfg := &TradingConfig{}
	cfg.Risk.MaxDailyLoss = 0.02
	cfg.Risk.MaxPositionRisk = 0.10
	cfg.Risk.PositionRatio = 0.05
	cfg.Risk.MaxConsecutiveLosses = 3
	cfg.Risk.MaxPositions = 5

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read trading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse trading config: %w", err)
	}
	return cfg, nil
}
