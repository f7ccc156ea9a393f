package risk

import (
	"fmt"
	"log"
	"sync"
)

// Checker evaluates risk limits against realized results. All methods are
// safe for concurrent use; callers get value copies, never live state.
type Checker struct {
	limits Limits

	mu      sync.RWMutex
	metrics Metrics
}

func NewChecker(limits Limits) *Checker {
	log.Printf("risk: checker initialized: daily_loss=%.1f%% position_risk=%.1f%% max_positions=%d",
		limits.MaxDailyLoss*100, limits.MaxPositionRisk*100, limits.MaxPositions)
	return &Checker{limits: limits}
}

// Limits returns a copy of the configured limits.
func (c *Checker) Limits() Limits {
	return c.limits
}

// CheckPortfolio verifies the daily loss and consecutive-loss limits against
// the given capital. A breach pauses trading, it is recoverable.
func (c *Checker) CheckPortfolio(capital float64) Decision {
	c.mu.RLock()
	m := c.metrics
	c.mu.RUnlock()

	if c.limits.MaxDailyLoss > 0 && capital > 0 {
		limit := capital * c.limits.MaxDailyLoss
		if -m.DailyPnL >= limit {
			return Decision{Reason: fmt.Sprintf("daily loss %.2f exceeds limit %.2f", -m.DailyPnL, limit)}
		}
	}

	if c.limits.MaxConsecutiveLosses > 0 && m.ConsecutiveLosses >= c.limits.MaxConsecutiveLosses {
		return Decision{Reason: fmt.Sprintf("%d consecutive losses, limit %d", m.ConsecutiveLosses, c.limits.MaxConsecutiveLosses)}
	}

	return Decision{Allowed: true}
}

// CheckEntry verifies a new entry is allowed given current open positions.
func (c *Checker) CheckEntry(openPositions int, hasPosition bool) Decision {
	if hasPosition {
		return Decision{Reason: "position already open for symbol"}
	}
	if c.limits.MaxPositions > 0 && openPositions >= c.limits.MaxPositions {
		return Decision{Reason: fmt.Sprintf("open positions %d at limit %d", openPositions, c.limits.MaxPositions)}
	}

	c.mu.RLock()
	losses := c.metrics.ConsecutiveLosses
	c.mu.RUnlock()
	if c.limits.MaxConsecutiveLosses > 0 && losses >= c.limits.MaxConsecutiveLosses {
		return Decision{Reason: fmt.Sprintf("%d consecutive losses, limit %d", losses, c.limits.MaxConsecutiveLosses)}
	}

	return Decision{Allowed: true}
}

// PositionNotional sizes a new entry: available balance times the position
// ratio, capped at MaxPositionRisk of balance.
func (c *Checker) PositionNotional(balance float64) float64 {
	notional := balance * c.limits.PositionRatio
	if limit := balance * c.limits.MaxPositionRisk; c.limits.MaxPositionRisk > 0 && notional > limit {
		notional = limit
	}
	return notional
}

// RecordTrade folds a realized trade result into the metrics.
func (c *Checker) RecordTrade(pnl float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := &c.metrics
	m.DailyTrades++
	m.DailyPnL += pnl
	m.TotalRealizedPnL += pnl

	if pnl > 0 {
		m.Wins++
		m.ConsecutiveLosses = 0
	} else if pnl < 0 {
		m.Losses++
		m.ConsecutiveLosses++
	}

	if m.TotalRealizedPnL > m.MaxProfit {
		m.MaxProfit = m.TotalRealizedPnL
	}
	if dd := m.MaxProfit - m.TotalRealizedPnL; dd > m.MaxDrawdown {
		m.MaxDrawdown = dd
	}
}

// ResetDaily clears the daily counters. Call at day rollover.
func (c *Checker) ResetDaily() {
	c.mu.Lock()
	defer c.mu.Unlock()
	log.Printf("risk: daily reset: pnl=%.2f trades=%d", c.metrics.DailyPnL, c.metrics.DailyTrades)
	c.metrics.DailyPnL = 0
	c.metrics.DailyTrades = 0
}

// Metrics returns a snapshot of the current metrics.
func (c *Checker) Metrics() Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metrics
}
