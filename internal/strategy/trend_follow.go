package strategy

import (
	"fmt"
	"math"

	"tradefan-core/internal/market"
)

// TrendFollowEvaluator trades EMA stack alignment. It calls BUY when the
// fast/medium/slow EMAs are stacked upward with price above the fast EMA,
// SELL on the mirrored arrangement, HOLD otherwise.
type TrendFollowEvaluator struct {
	name string
}

func NewTrendFollowEvaluator() *TrendFollowEvaluator {
	return &TrendFollowEvaluator{name: "trend_follow"}
}

func (e *TrendFollowEvaluator) Name() string { return e.name }

func (e *TrendFollowEvaluator) CalculateIndicators(bars []market.Bar) *IndicatorSet {
	return computeIndicators(bars)
}

func (e *TrendFollowEvaluator) GenerateSignal(ind *IndicatorSet) (Direction, float64, string) {
	i := ind.lastIdx()
	if i < 55 {
		return Hold, 0, "insufficient history"
	}

	price := ind.Bars[i].Close
	ema8, ema21, ema55 := ind.EMA8[i], ind.EMA21[i], ind.EMA55[i]

	bullStack := ema8 > ema21 && ema21 > ema55
	bearStack := ema8 < ema21 && ema21 < ema55

	switch {
	case bullStack && price > ema8:
		return Buy, e.strength(ind, i), fmt.Sprintf("bull EMA stack, close %.2f above EMA8 %.2f", price, ema8)
	case bearStack && price < ema8:
		return Sell, e.strength(ind, i), fmt.Sprintf("bear EMA stack, close %.2f below EMA8 %.2f", price, ema8)
	default:
		return Hold, 0, "no EMA alignment"
	}
}

// strength scales EMA spread and recent momentum into [0,1].
func (e *TrendFollowEvaluator) strength(ind *IndicatorSet, i int) float64 {
	spread := 0.0
	if ind.EMA55[i] != 0 {
		spread = math.Abs(ind.EMA8[i]-ind.EMA55[i]) / ind.EMA55[i]
	}
	mom := 0.0
	if i >= 10 && ind.Bars[i-10].Close != 0 {
		mom = math.Abs(ind.Bars[i].Close-ind.Bars[i-10].Close) / ind.Bars[i-10].Close
	}
	s := spread*20 + mom*10 + 0.4
	if s > 1 {
		s = 1
	}
	return s
}
