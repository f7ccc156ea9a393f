package signal

import (
	"math"
	"testing"
	"time"

	"tradefan-core/internal/market"
	"tradefan-core/internal/strategy"
)

func indicatorWindow(n int, close float64) *strategy.IndicatorSet {
	bars := make([]market.Bar, n)
	for i := range bars {
		bars[i] = market.Bar{
			Symbol:    "BTCUSDT",
			Timeframe: "5m",
			Time:      time.Unix(int64(i)*300, 0),
			Open:      close,
			High:      close + 1,
			Low:       close - 1,
			Close:     close,
			Volume:    100,
		}
	}
	ev := strategy.NewStaticEvaluator(strategy.Buy, 0.8)
	return ev.CalculateIndicators(bars)
}

func TestBuildStopsFromATR(t *testing.T) {
	ind := indicatorWindow(60, 100)
	last := len(ind.Bars) - 1
	atr := ind.ATR[last] // constant 2-range bars give ATR == 2

	s := Build("BTCUSDT", "5m", "static", strategy.Buy, 0.8, "test", ind)
	if s.EntryPrice != 100 {
		t.Fatalf("EntryPrice=%v, expected 100", s.EntryPrice)
	}
	if want := 100 - atr*2; math.Abs(s.StopLoss-want) > 1e-9 {
		t.Fatalf("StopLoss=%v, expected %v", s.StopLoss, want)
	}
	if want := 100 + atr*4; math.Abs(s.TakeProfit-want) > 1e-9 {
		t.Fatalf("TakeProfit=%v, expected %v", s.TakeProfit, want)
	}
	if s.ID == "" {
		t.Fatalf("expected a generated ID")
	}
	if s.Metadata["atr"] != atr {
		t.Fatalf("metadata atr=%v, expected %v", s.Metadata["atr"], atr)
	}
}

func TestBuildSellMirrorsLevels(t *testing.T) {
	ind := indicatorWindow(60, 100)
	s := Build("BTCUSDT", "5m", "static", strategy.Sell, 0.8, "test", ind)

	if s.StopLoss <= s.EntryPrice {
		t.Fatalf("sell StopLoss=%v not above entry %v", s.StopLoss, s.EntryPrice)
	}
	if s.TakeProfit >= s.EntryPrice {
		t.Fatalf("sell TakeProfit=%v not below entry %v", s.TakeProfit, s.EntryPrice)
	}
}

// With too little history for an ATR, stops fall back to 2% of price.
func TestBuildATRFallback(t *testing.T) {
	ind := indicatorWindow(5, 100)
	s := Build("BTCUSDT", "5m", "static", strategy.Buy, 0.8, "test", ind)

	fallback := 100 * 0.02
	if want := 100 - fallback*2; math.Abs(s.StopLoss-want) > 1e-9 {
		t.Fatalf("StopLoss=%v, expected %v", s.StopLoss, want)
	}
	if want := 100 + fallback*4; math.Abs(s.TakeProfit-want) > 1e-9 {
		t.Fatalf("TakeProfit=%v, expected %v", s.TakeProfit, want)
	}
}

func TestSignalExpiry(t *testing.T) {
	s := &Signal{CreatedAt: time.Now().Add(-10 * time.Minute)}
	if !s.Expired(5 * time.Minute) {
		t.Fatalf("10 minute old signal not expired with 5m TTL")
	}
	fresh := &Signal{CreatedAt: time.Now()}
	if fresh.Expired(5 * time.Minute) {
		t.Fatalf("fresh signal reported expired")
	}
}

func TestSignalKey(t *testing.T) {
	s := &Signal{Symbol: "ETHUSDT", Timeframe: "1h"}
	if got := s.Key(); got != "ETHUSDT_1h" {
		t.Fatalf("Key=%q, expected ETHUSDT_1h", got)
	}
}

func TestConfidenceStaysInRange(t *testing.T) {
	ind := indicatorWindow(60, 100)
	for _, dir := range []strategy.Direction{strategy.Buy, strategy.Sell} {
		s := Build("BTCUSDT", "5m", "static", dir, 0.9, "test", ind)
		if s.Confidence < 0 || s.Confidence > 1 {
			t.Fatalf("Confidence=%v out of [0,1]", s.Confidence)
		}
	}
}
