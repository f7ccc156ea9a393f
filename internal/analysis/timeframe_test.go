package analysis

import (
	"testing"
	"time"

	"tradefan-core/internal/market"
)

func ascendingBars(symbol, timeframe string, n int, start float64) []market.Bar {
	bars := make([]market.Bar, n)
	for i := 0; i < n; i++ {
		c := start + float64(i)
		bars[i] = market.Bar{
			Symbol:    symbol,
			Timeframe: timeframe,
			Time:      time.Unix(int64(i)*300, 0),
			Open:      c - 0.5,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    100,
		}
	}
	return bars
}

func descendingBars(symbol, timeframe string, n int, start float64) []market.Bar {
	bars := ascendingBars(symbol, timeframe, n, start)
	for i := range bars {
		c := start - float64(i)
		bars[i].Open = c + 0.5
		bars[i].High = c + 1
		bars[i].Low = c - 1
		bars[i].Close = c
	}
	return bars
}

func TestAnalyzeUptrend(t *testing.T) {
	a := NewAnalyzer(nil)
	ta := a.Analyze(ascendingBars("BTCUSDT", "5m", 60, 100), "5m")

	if ta.TrendDir != TrendUp {
		t.Fatalf("TrendDir=%v, expected up", ta.TrendDir)
	}
	if ta.TrendStrength <= 0 {
		t.Fatalf("TrendStrength=%v, expected > 0", ta.TrendStrength)
	}
	if ta.Momentum <= 20 {
		t.Fatalf("Momentum=%v, expected > 20 for a steady climb", ta.Momentum)
	}
	if ta.Volatility <= 0 {
		t.Fatalf("Volatility=%v, expected > 0", ta.Volatility)
	}
	if len(ta.KeyLevels) == 0 {
		t.Fatalf("expected key levels for 60 bars")
	}
}

func TestAnalyzeDowntrend(t *testing.T) {
	a := NewAnalyzer(nil)
	ta := a.Analyze(descendingBars("BTCUSDT", "5m", 60, 200), "5m")

	if ta.TrendDir != TrendDown {
		t.Fatalf("TrendDir=%v, expected down", ta.TrendDir)
	}
	if ta.Momentum >= 0 {
		t.Fatalf("Momentum=%v, expected negative", ta.Momentum)
	}
}

func TestAnalyzeShortHistoryIsFlat(t *testing.T) {
	a := NewAnalyzer(nil)
	ta := a.Analyze(ascendingBars("BTCUSDT", "5m", 20, 100), "5m")

	if ta.TrendDir != TrendFlat {
		t.Fatalf("TrendDir=%v, expected flat below 55 bars", ta.TrendDir)
	}
	if ta.TrendStrength != 0 {
		t.Fatalf("TrendStrength=%v, expected 0", ta.TrendStrength)
	}
}

func TestSupportResistanceBracketPrice(t *testing.T) {
	a := NewAnalyzer(nil)
	// climb then pull back so swing points exist on both sides of the close
	bars := ascendingBars("BTCUSDT", "5m", 60, 100)
	for i := 50; i < 60; i++ {
		c := 159.0 - float64(i-50)*0.5
		bars[i].Open = c + 0.2
		bars[i].High = c + 1
		bars[i].Low = c - 1
		bars[i].Close = c
	}
	ta := a.Analyze(bars, "5m")

	price := bars[len(bars)-1].Close
	if ta.Support >= price {
		t.Fatalf("Support=%v not below price %v", ta.Support, price)
	}
	if ta.Resistance <= price {
		t.Fatalf("Resistance=%v not above price %v", ta.Resistance, price)
	}
}

func TestTrendAlignment(t *testing.T) {
	a := NewAnalyzer(nil)

	tests := []struct {
		name         string
		analyses     map[string]TimeframeAnalysis
		wantDominant TrendDirection
		wantScore    float64
	}{
		{
			name: "all bullish",
			analyses: map[string]TimeframeAnalysis{
				"5m":  {TrendDir: TrendUp, TrendStrength: 60},
				"15m": {TrendDir: TrendUp, TrendStrength: 50},
				"1h":  {TrendDir: TrendUp, TrendStrength: 70},
			},
			wantDominant: TrendUp,
			wantScore:    100,
		},
		{
			name: "mixed majority bearish",
			analyses: map[string]TimeframeAnalysis{
				"5m":  {TrendDir: TrendDown, TrendStrength: 40},
				"15m": {TrendDir: TrendDown, TrendStrength: 30},
				"1h":  {TrendDir: TrendUp, TrendStrength: 20},
			},
			wantDominant: TrendDown,
			wantScore:    100.0 * 2 / 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.TrendAlignment(tt.analyses)
			if got.DominantTrend != tt.wantDominant {
				t.Fatalf("DominantTrend=%v, expected %v", got.DominantTrend, tt.wantDominant)
			}
			if diff := got.Score - tt.wantScore; diff > 0.001 || diff < -0.001 {
				t.Fatalf("Score=%v, expected %v", got.Score, tt.wantScore)
			}
		})
	}
}

func TestTrendAlignmentEmpty(t *testing.T) {
	a := NewAnalyzer(nil)
	got := a.TrendAlignment(nil)
	if got.Score != 0 || got.DominantTrend != TrendFlat {
		t.Fatalf("empty alignment=%+v, expected zero value", got)
	}
}

func TestEntryConfirmation(t *testing.T) {
	a := NewAnalyzer(nil)

	analyses := map[string]TimeframeAnalysis{
		"5m": {
			TrendDir:      TrendUp,
			TrendStrength: 45,
			Support:       95,
			Resistance:    100,
			Momentum:      30,
			Volatility:    20,
		},
		"15m": {TrendDir: TrendUp},
		"1h":  {TrendDir: TrendUp},
	}

	conf := a.EntryConfirmation(analyses, "5m", 101)
	if !conf.Confirmed {
		t.Fatalf("expected confirmation, reasons=%v", conf.Reasons)
	}
	if conf.HigherSupport != 1 {
		t.Fatalf("HigherSupport=%v, expected 1", conf.HigherSupport)
	}
	if conf.RiskLevel != "low" {
		t.Fatalf("RiskLevel=%q, expected low with %d reasons", conf.RiskLevel, len(conf.Reasons))
	}
}

func TestEntryConfirmationRejectsWeakSetup(t *testing.T) {
	a := NewAnalyzer(nil)

	analyses := map[string]TimeframeAnalysis{
		"5m": {
			TrendDir:      TrendUp,
			TrendStrength: 10, // weak
			Support:       95,
			Resistance:    110, // no breakout at 101
			Momentum:      5,   // weak
			Volatility:    60,  // too hot
		},
		"1h": {TrendDir: TrendDown},
	}

	conf := a.EntryConfirmation(analyses, "5m", 101)
	if conf.Confirmed {
		t.Fatalf("expected rejection, reasons=%v", conf.Reasons)
	}
	if conf.RiskLevel != "high" {
		t.Fatalf("RiskLevel=%q, expected high", conf.RiskLevel)
	}
}

func TestEntryConfirmationMissingTimeframe(t *testing.T) {
	a := NewAnalyzer(nil)
	conf := a.EntryConfirmation(map[string]TimeframeAnalysis{}, "5m", 100)
	if conf.Confirmed {
		t.Fatalf("expected rejection when the signal timeframe has no data")
	}
	if conf.RiskLevel != "high" {
		t.Fatalf("RiskLevel=%q, expected high", conf.RiskLevel)
	}
}
