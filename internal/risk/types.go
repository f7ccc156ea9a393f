package risk

// Limits are the process-wide risk parameters, loaded once at start.
type Limits struct {
	MaxDailyLoss         float64 `json:"max_daily_loss" yaml:"max_daily_loss"`                   // fraction of capital, e.g. 0.02
	MaxPositionRisk      float64 `json:"max_position_risk" yaml:"max_position_risk"`             // cap on position notional as fraction of balance
	PositionRatio        float64 `json:"position_ratio" yaml:"position_ratio"`                   // fraction of available balance per entry
	MaxConsecutiveLosses int     `json:"max_consecutive_losses" yaml:"max_consecutive_losses"`
	MaxPositions         int     `json:"max_positions" yaml:"max_positions"`
}

// DefaultLimits returns conservative defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxDailyLoss:         0.02,
		MaxPositionRisk:      0.10,
		PositionRatio:        0.05,
		MaxConsecutiveLosses: 3,
		MaxPositions:         5,
	}
}

// Decision is the result of a risk check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Metrics tracks realized results and daily counters.
type Metrics struct {
	DailyPnL          float64 `json:"daily_pnl"`
	DailyTrades       int     `json:"daily_trades"`
	ConsecutiveLosses int     `json:"consecutive_losses"`

	TotalRealizedPnL float64 `json:"total_realized_pnl"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	MaxProfit        float64 `json:"max_profit"`
	MaxDrawdown      float64 `json:"max_drawdown"`
}

// WinRate returns wins over closed trades, 0 when none.
func (m Metrics) WinRate() float64 {
	total := m.Wins + m.Losses
	if total == 0 {
		return 0
	}
	return float64(m.Wins) / float64(total)
}
