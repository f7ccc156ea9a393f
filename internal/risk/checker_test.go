package risk

import (
	"strings"
	"testing"
)

func TestCheckPortfolioDailyLoss(t *testing.T) {
	// default limit is 2% of capital
	tests := []struct {
		name    string
		pnl     float64
		capital float64
		allowed bool
	}{
		{name: "no trades", capital: 10000, allowed: true},
		{name: "small loss", pnl: -100, capital: 10000, allowed: true},
		{name: "at limit", pnl: -200, capital: 10000, allowed: false},
		{name: "over limit", pnl: -300, capital: 10000, allowed: false},
		{name: "profit", pnl: 500, capital: 10000, allowed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(DefaultLimits())
			if tt.pnl != 0 {
				c.RecordTrade(tt.pnl)
			}
			dec := c.CheckPortfolio(tt.capital)
			if dec.Allowed != tt.allowed {
				t.Fatalf("Allowed=%v (%s), expected %v", dec.Allowed, dec.Reason, tt.allowed)
			}
		})
	}
}

func TestCheckPortfolioConsecutiveLosses(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxDailyLoss = 0 // isolate the consecutive-loss limit
	c := NewChecker(limits)

	c.RecordTrade(-10)
	c.RecordTrade(-10)
	if dec := c.CheckPortfolio(10000); !dec.Allowed {
		t.Fatalf("blocked at 2 consecutive losses: %s", dec.Reason)
	}

	c.RecordTrade(-10)
	dec := c.CheckPortfolio(10000)
	if dec.Allowed {
		t.Fatalf("allowed at 3 consecutive losses, limit 3")
	}
	if !strings.Contains(dec.Reason, "consecutive") {
		t.Fatalf("Reason=%q, expected consecutive losses", dec.Reason)
	}

	// a win resets the streak
	c.RecordTrade(5)
	if dec := c.CheckPortfolio(10000); !dec.Allowed {
		t.Fatalf("still blocked after winning trade: %s", dec.Reason)
	}
}

func TestCheckEntry(t *testing.T) {
	c := NewChecker(DefaultLimits()) // max 5 positions

	tests := []struct {
		name        string
		open        int
		hasPosition bool
		allowed     bool
	}{
		{name: "clear", open: 0, allowed: true},
		{name: "room left", open: 4, allowed: true},
		{name: "at cap", open: 5, allowed: false},
		{name: "duplicate symbol", open: 1, hasPosition: true, allowed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := c.CheckEntry(tt.open, tt.hasPosition)
			if dec.Allowed != tt.allowed {
				t.Fatalf("Allowed=%v (%s), expected %v", dec.Allowed, dec.Reason, tt.allowed)
			}
		})
	}
}

func TestPositionNotional(t *testing.T) {
	limits := DefaultLimits()
	limits.PositionRatio = 0.05
	limits.MaxPositionRisk = 0.10
	c := NewChecker(limits)

	if got := c.PositionNotional(10000); got != 500 {
		t.Fatalf("notional=%v, expected 500", got)
	}

	// ratio above the cap gets clamped
	limits.PositionRatio = 0.20
	c = NewChecker(limits)
	if got := c.PositionNotional(10000); got != 1000 {
		t.Fatalf("notional=%v, expected cap 1000", got)
	}
}

func TestRecordTradeMetrics(t *testing.T) {
	c := NewChecker(DefaultLimits())

	c.RecordTrade(100)
	c.RecordTrade(-30)
	c.RecordTrade(-20)
	c.RecordTrade(60)

	m := c.Metrics()
	if m.DailyTrades != 4 {
		t.Fatalf("DailyTrades=%d, expected 4", m.DailyTrades)
	}
	if m.DailyPnL != 110 {
		t.Fatalf("DailyPnL=%v, expected 110", m.DailyPnL)
	}
	if m.Wins != 2 || m.Losses != 2 {
		t.Fatalf("Wins=%d Losses=%d, expected 2 and 2", m.Wins, m.Losses)
	}
	if m.ConsecutiveLosses != 0 {
		t.Fatalf("ConsecutiveLosses=%d after a win, expected 0", m.ConsecutiveLosses)
	}
	if m.MaxProfit != 110 {
		t.Fatalf("MaxProfit=%v, expected 110", m.MaxProfit)
	}
	if m.MaxDrawdown != 50 {
		t.Fatalf("MaxDrawdown=%v, expected 50", m.MaxDrawdown)
	}
	if m.WinRate() != 0.5 {
		t.Fatalf("WinRate=%v, expected 0.5", m.WinRate())
	}
}

func TestResetDaily(t *testing.T) {
	c := NewChecker(DefaultLimits())
	c.RecordTrade(-50)
	c.ResetDaily()

	m := c.Metrics()
	if m.DailyPnL != 0 || m.DailyTrades != 0 {
		t.Fatalf("daily counters=%v/%d after reset, expected zero", m.DailyPnL, m.DailyTrades)
	}
	if m.TotalRealizedPnL != -50 {
		t.Fatalf("TotalRealizedPnL=%v, expected -50 to survive the reset", m.TotalRealizedPnL)
	}
	if m.ConsecutiveLosses != 1 {
		t.Fatalf("ConsecutiveLosses=%d, expected 1 to survive the reset", m.ConsecutiveLosses)
	}
}
