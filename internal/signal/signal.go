package signal

import (
	"math"
	"time"

	"github.com/google/uuid"

	"tradefan-core/internal/strategy"
)

// RiskLevel grades how risky acting on a signal is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Signal is an actionable trading signal. Read-only after creation.
type Signal struct {
	ID         string
	Symbol     string
	Timeframe  string
	Direction  strategy.Direction
	Strength   float64 // 0..1
	Confidence float64 // 0..1
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	RiskLevel  RiskLevel
	Reason     string
	Strategy   string
	CreatedAt  time.Time
	Metadata   map[string]float64
}

// Expired reports whether the signal is older than ttl.
func (s *Signal) Expired(ttl time.Duration) bool {
	return time.Since(s.CreatedAt) > ttl
}

// Key identifies the (symbol, timeframe) stream the signal belongs to.
func (s *Signal) Key() string {
	return s.Symbol + "_" + s.Timeframe
}

// Build assembles a Signal from an evaluator's call and the indicator window
// it was made on. Stops default to 2x ATR below entry and targets to 4x ATR
// above (mirrored for sells); when ATR is unavailable 2% of price stands in.
func Build(symbol, timeframe, strategyName string, dir strategy.Direction, strength float64, reason string, ind *strategy.IndicatorSet) *Signal {
	i := len(ind.Bars) - 1
	price := ind.Bars[i].Close

	atr := ind.ATR[i]
	if math.IsNaN(atr) || atr <= 0 {
		atr = price * 0.02
	}

	var stop, target float64
	if dir == strategy.Buy {
		stop = price - atr*2
		target = price + atr*4
	} else {
		stop = price + atr*2
		target = price - atr*4
	}

	confidence := confidence(ind, dir, strength)

	meta := map[string]float64{
		"atr": atr,
	}
	if !math.IsNaN(ind.RSI[i]) {
		meta["rsi"] = ind.RSI[i]
	}
	if !math.IsNaN(ind.VolumeRatio[i]) {
		meta["volume_ratio"] = ind.VolumeRatio[i]
	}

	return &Signal{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Timeframe:  timeframe,
		Direction:  dir,
		Strength:   strength,
		Confidence: confidence,
		EntryPrice: price,
		StopLoss:   stop,
		TakeProfit: target,
		RiskLevel:  assessRisk(ind, confidence),
		Reason:     reason,
		Strategy:   strategyName,
		CreatedAt:  time.Now(),
		Metadata:   meta,
	}
}

// confidence averages agreement factors: raw strength, recent trend
// direction, volume expansion, and RSI staying out of extreme zones.
func confidence(ind *strategy.IndicatorSet, dir strategy.Direction, strength float64) float64 {
	i := len(ind.Bars) - 1
	factors := []float64{strength}

	if i >= 10 && ind.Bars[i-10].Close != 0 {
		trend := (ind.Bars[i].Close - ind.Bars[i-10].Close) / ind.Bars[i-10].Close
		if (dir == strategy.Buy && trend > 0) || (dir == strategy.Sell && trend < 0) {
			factors = append(factors, 0.8)
		} else {
			factors = append(factors, 0.2)
		}
	}

	if !math.IsNaN(ind.VolumeRatio[i]) {
		if ind.VolumeRatio[i] > 1.2 {
			factors = append(factors, 0.7)
		} else {
			factors = append(factors, 0.3)
		}
	}

	if !math.IsNaN(ind.RSI[i]) {
		if ind.RSI[i] > 30 && ind.RSI[i] < 70 {
			factors = append(factors, 0.6)
		} else {
			factors = append(factors, 0.4)
		}
	}

	sum := 0.0
	for _, f := range factors {
		sum += f
	}
	return sum / float64(len(factors))
}

func assessRisk(ind *strategy.IndicatorSet, confidence float64) RiskLevel {
	i := len(ind.Bars) - 1
	score := 0

	if confidence > 0.7 {
		score++
	} else if confidence < 0.4 {
		score--
	}

	if !math.IsNaN(ind.ATR[i]) && ind.Bars[i].Close > 0 {
		atrRatio := ind.ATR[i] / ind.Bars[i].Close
		if atrRatio > 0.05 {
			score--
		} else if atrRatio < 0.02 {
			score++
		}
	}

	if !math.IsNaN(ind.RSI[i]) && (ind.RSI[i] > 80 || ind.RSI[i] < 20) {
		score--
	}

	switch {
	case score >= 1:
		return RiskLow
	case score == 0:
		return RiskMedium
	default:
		return RiskHigh
	}
}
