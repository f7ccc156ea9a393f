package strategy

import "tradefan-core/internal/market"

// StaticEvaluator always returns a fixed call once enough bars exist. Used
// for dry runs and pipeline testing.
type StaticEvaluator struct {
	Direction Direction
	Strength  float64
	MinBars   int
}

func NewStaticEvaluator(dir Direction, strength float64) *StaticEvaluator {
	return &StaticEvaluator{Direction: dir, Strength: strength, MinBars: 1}
}

func (e *StaticEvaluator) Name() string { return "static" }

func (e *StaticEvaluator) CalculateIndicators(bars []market.Bar) *IndicatorSet {
	return computeIndicators(bars)
}

func (e *StaticEvaluator) GenerateSignal(ind *IndicatorSet) (Direction, float64, string) {
	if len(ind.Bars) < e.MinBars {
		return Hold, 0, "insufficient history"
	}
	return e.Direction, e.Strength, "static evaluator"
}
