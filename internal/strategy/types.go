package strategy

import (
	"tradefan-core/internal/analysis"
	"tradefan-core/internal/market"
)

// Direction is the raw directional call an evaluator makes.
type Direction int

const (
	Sell Direction = -1
	Hold Direction = 0
	Buy  Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// IndicatorSet is the indicator-augmented view of a bar window. Series are
// aligned with Bars; entries without enough history are NaN.
type IndicatorSet struct {
	Bars        []market.Bar
	EMA8        []float64
	EMA21       []float64
	EMA55       []float64
	RSI         []float64
	MACD        []float64
	MACDSignal  []float64
	MACDHist    []float64
	ATR         []float64
	VolumeRatio []float64
}

// Last returns the final bar of the window.
func (s *IndicatorSet) Last() market.Bar {
	return s.Bars[len(s.Bars)-1]
}

func (s *IndicatorSet) lastIdx() int {
	return len(s.Bars) - 1
}

// Evaluator turns an indicator-augmented bar window into a directional call.
// Implementations must be safe for concurrent use; all state lives in the
// arguments.
type Evaluator interface {
	Name() string
	CalculateIndicators(bars []market.Bar) *IndicatorSet
	GenerateSignal(ind *IndicatorSet) (Direction, float64, string)
}

// computeIndicators is the shared indicator pass used by the built-in
// evaluators.
func computeIndicators(bars []market.Bar) *IndicatorSet {
	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
	}

	macd, macdSig, macdHist := analysis.MACD(closes, 12, 26, 9)
	return &IndicatorSet{
		Bars:        bars,
		EMA8:        analysis.EMA(closes, 8),
		EMA21:       analysis.EMA(closes, 21),
		EMA55:       analysis.EMA(closes, 55),
		RSI:         analysis.RSI(closes, 14),
		MACD:        macd,
		MACDSignal:  macdSig,
		MACDHist:    macdHist,
		ATR:         analysis.ATR(highs, lows, closes, 14),
		VolumeRatio: analysis.VolumeRatio(volumes, 20),
	}
}
