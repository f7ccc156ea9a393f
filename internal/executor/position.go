package executor

import (
	"time"

	"tradefan-core/internal/strategy"
	"tradefan-core/pkg/exchange"
)

// PositionSide is the direction of an open position.
type PositionSide string

const (
	Long  PositionSide = "LONG"
	Short PositionSide = "SHORT"
)

// EntrySide maps a position side to the order side that opens it.
func (s PositionSide) EntrySide() exchange.Side {
	if s == Short {
		return exchange.SideSell
	}
	return exchange.SideBuy
}

// ExitSide maps a position side to the order side that closes it.
func (s PositionSide) ExitSide() exchange.Side {
	return s.EntrySide().Opposite()
}

func sideFor(dir strategy.Direction) PositionSide {
	if dir == strategy.Sell {
		return Short
	}
	return Long
}

// Position is one open holding. Size and EntryPrice are set exactly once at
// creation; only the executor mutates the mark fields.
type Position struct {
	Symbol        string       `json:"symbol"`
	Side          PositionSide `json:"side"`
	Size          float64      `json:"size"`
	EntryPrice    float64      `json:"entry_price"`
	EntryTime     time.Time    `json:"entry_time"`
	CurrentPrice  float64      `json:"current_price"`
	StopLoss      float64      `json:"stop_loss"`
	TakeProfit    float64      `json:"take_profit"`
	UnrealizedPnL float64      `json:"unrealized_pnl"`
	Strategy      string       `json:"strategy"`
	SignalID      string       `json:"signal_id"`
}

// Mark updates the mark price and recomputes unrealized PnL.
func (p *Position) Mark(price float64) {
	p.CurrentPrice = price
	if p.Side == Long {
		p.UnrealizedPnL = (price - p.EntryPrice) * p.Size
	} else {
		p.UnrealizedPnL = (p.EntryPrice - price) * p.Size
	}
}

// PnLRatio is unrealized PnL relative to entry notional.
func (p *Position) PnLRatio() float64 {
	notional := p.EntryPrice * p.Size
	if notional == 0 {
		return 0
	}
	return p.UnrealizedPnL / notional
}

// StopBreached reports whether the mark price crossed the stop-loss level.
func (p *Position) StopBreached() bool {
	if p.StopLoss <= 0 {
		return false
	}
	if p.Side == Long {
		return p.CurrentPrice <= p.StopLoss
	}
	return p.CurrentPrice >= p.StopLoss
}

// TargetReached reports whether the mark price crossed the take-profit level.
func (p *Position) TargetReached() bool {
	if p.TakeProfit <= 0 {
		return false
	}
	if p.Side == Long {
		return p.CurrentPrice >= p.TakeProfit
	}
	return p.CurrentPrice <= p.TakeProfit
}

// RealizedAt computes the PnL realized by closing the full size at price.
func (p *Position) RealizedAt(price float64) float64 {
	if p.Side == Long {
		return (price - p.EntryPrice) * p.Size
	}
	return (p.EntryPrice - price) * p.Size
}
