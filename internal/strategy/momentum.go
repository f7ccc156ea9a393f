package strategy

import (
	"fmt"
	"math"

	"tradefan-core/internal/market"
)

// MomentumEvaluator combines RSI recovery and MACD crossovers. BUY when RSI
// climbs back out of oversold while MACD crosses above its signal line, SELL
// on the mirrored setup.
type MomentumEvaluator struct {
	name       string
	oversold   float64
	overbought float64
}

func NewMomentumEvaluator() *MomentumEvaluator {
	return &MomentumEvaluator{name: "momentum", oversold: 30, overbought: 70}
}

func (e *MomentumEvaluator) Name() string { return e.name }

func (e *MomentumEvaluator) CalculateIndicators(bars []market.Bar) *IndicatorSet {
	return computeIndicators(bars)
}

func (e *MomentumEvaluator) GenerateSignal(ind *IndicatorSet) (Direction, float64, string) {
	i := ind.lastIdx()
	if i < 26 || math.IsNaN(ind.RSI[i]) || math.IsNaN(ind.RSI[i-1]) {
		return Hold, 0, "insufficient history"
	}

	rsi, prevRSI := ind.RSI[i], ind.RSI[i-1]
	macdUp := ind.MACD[i] > ind.MACDSignal[i] && ind.MACD[i-1] <= ind.MACDSignal[i-1]
	macdDown := ind.MACD[i] < ind.MACDSignal[i] && ind.MACD[i-1] >= ind.MACDSignal[i-1]

	switch {
	case prevRSI < e.oversold && rsi >= e.oversold && macdUp:
		return Buy, e.strength(ind, i), fmt.Sprintf("RSI recovered from oversold (%.1f) with MACD cross up", rsi)
	case prevRSI > e.overbought && rsi <= e.overbought && macdDown:
		return Sell, e.strength(ind, i), fmt.Sprintf("RSI dropped from overbought (%.1f) with MACD cross down", rsi)
	case macdUp && rsi > 50:
		return Buy, e.strength(ind, i) * 0.8, "MACD cross up above RSI midline"
	case macdDown && rsi < 50:
		return Sell, e.strength(ind, i) * 0.8, "MACD cross down below RSI midline"
	default:
		return Hold, 0, "no momentum setup"
	}
}

func (e *MomentumEvaluator) strength(ind *IndicatorSet, i int) float64 {
	rsiDev := math.Abs(ind.RSI[i]-50) / 50
	histMag := 0.0
	if ind.Bars[i].Close != 0 && !math.IsNaN(ind.MACDHist[i]) {
		histMag = math.Abs(ind.MACDHist[i]) / ind.Bars[i].Close * 100
	}
	volBoost := 0.0
	if !math.IsNaN(ind.VolumeRatio[i]) && ind.VolumeRatio[i] > 1.2 {
		volBoost = 0.15
	}
	s := 0.45 + rsiDev*0.4 + histMag*0.1 + volBoost
	if s > 1 {
		s = 1
	}
	return s
}
