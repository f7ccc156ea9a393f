package executor

import (
	"testing"

	"tradefan-core/internal/strategy"
	"tradefan-core/pkg/exchange"
)

func TestPositionMark(t *testing.T) {
	tests := []struct {
		name    string
		side    PositionSide
		entry   float64
		size    float64
		mark    float64
		wantPnL float64
	}{
		{name: "long gain", side: Long, entry: 100, size: 2, mark: 110, wantPnL: 20},
		{name: "long loss", side: Long, entry: 100, size: 2, mark: 95, wantPnL: -10},
		{name: "short gain", side: Short, entry: 100, size: 2, mark: 90, wantPnL: 20},
		{name: "short loss", side: Short, entry: 100, size: 2, mark: 105, wantPnL: -10},
		{name: "flat", side: Long, entry: 100, size: 2, mark: 100, wantPnL: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Position{Side: tt.side, EntryPrice: tt.entry, Size: tt.size}
			p.Mark(tt.mark)
			if p.UnrealizedPnL != tt.wantPnL {
				t.Fatalf("UnrealizedPnL=%v, expected %v", p.UnrealizedPnL, tt.wantPnL)
			}
			if p.CurrentPrice != tt.mark {
				t.Fatalf("CurrentPrice=%v, expected %v", p.CurrentPrice, tt.mark)
			}
			// realizing at the mark equals the unrealized number
			if got := p.RealizedAt(tt.mark); got != tt.wantPnL {
				t.Fatalf("RealizedAt=%v, expected %v", got, tt.wantPnL)
			}
		})
	}
}

func TestPositionPnLRatio(t *testing.T) {
	p := &Position{Side: Long, EntryPrice: 100, Size: 2}
	p.Mark(110)
	if got := p.PnLRatio(); got != 0.1 {
		t.Fatalf("PnLRatio=%v, expected 0.1", got)
	}

	zero := &Position{}
	if got := zero.PnLRatio(); got != 0 {
		t.Fatalf("PnLRatio on zero notional=%v, expected 0", got)
	}
}

func TestStopAndTargetChecks(t *testing.T) {
	tests := []struct {
		name       string
		side       PositionSide
		stop       float64
		target     float64
		mark       float64
		wantStop   bool
		wantTarget bool
	}{
		{name: "long stop hit", side: Long, stop: 95, target: 110, mark: 94, wantStop: true},
		{name: "long stop exact", side: Long, stop: 95, target: 110, mark: 95, wantStop: true},
		{name: "long target hit", side: Long, stop: 95, target: 110, mark: 111, wantTarget: true},
		{name: "long in range", side: Long, stop: 95, target: 110, mark: 100},
		{name: "short stop hit", side: Short, stop: 105, target: 90, mark: 106, wantStop: true},
		{name: "short target hit", side: Short, stop: 105, target: 90, mark: 89, wantTarget: true},
		{name: "short in range", side: Short, stop: 105, target: 90, mark: 100},
		{name: "no levels", side: Long, mark: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Position{Side: tt.side, EntryPrice: 100, Size: 1, StopLoss: tt.stop, TakeProfit: tt.target}
			p.Mark(tt.mark)
			if got := p.StopBreached(); got != tt.wantStop {
				t.Fatalf("StopBreached=%v, expected %v", got, tt.wantStop)
			}
			if got := p.TargetReached(); got != tt.wantTarget {
				t.Fatalf("TargetReached=%v, expected %v", got, tt.wantTarget)
			}
		})
	}
}

func TestSideMapping(t *testing.T) {
	if got := Long.EntrySide(); got != exchange.SideBuy {
		t.Fatalf("Long.EntrySide=%s, expected BUY", got)
	}
	if got := Long.ExitSide(); got != exchange.SideSell {
		t.Fatalf("Long.ExitSide=%s, expected SELL", got)
	}
	if got := Short.EntrySide(); got != exchange.SideSell {
		t.Fatalf("Short.EntrySide=%s, expected SELL", got)
	}
	if got := Short.ExitSide(); got != exchange.SideBuy {
		t.Fatalf("Short.ExitSide=%s, expected BUY", got)
	}

	if got := sideFor(strategy.Buy); got != Long {
		t.Fatalf("sideFor(BUY)=%s, expected LONG", got)
	}
	if got := sideFor(strategy.Sell); got != Short {
		t.Fatalf("sideFor(SELL)=%s, expected SHORT", got)
	}
}
