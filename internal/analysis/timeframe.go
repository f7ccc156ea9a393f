package analysis

import (
	"math"
	"sort"

	"tradefan-core/internal/market"
)

// TrendDirection classifies a timeframe's prevailing direction.
type TrendDirection int

const (
	TrendDown TrendDirection = -1
	TrendFlat TrendDirection = 0
	TrendUp   TrendDirection = 1
)

func (d TrendDirection) String() string {
	switch d {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "flat"
	}
}

// TimeframeAnalysis is the per-timeframe summary produced by Analyze.
type TimeframeAnalysis struct {
	Timeframe     string
	TrendDir      TrendDirection
	TrendStrength float64 // 0..100
	Support       float64
	Resistance    float64
	KeyLevels     []float64
	Volatility    float64 // ATR as percent of price
	Momentum      float64 // composite, roughly -100..100
}

// Alignment summarizes cross-timeframe agreement.
type Alignment struct {
	Score         float64 // 0..100, share of timeframes agreeing with the majority
	DominantTrend TrendDirection
	Confidence    float64 // 0..100
	Bullish       int
	Bearish       int
	Neutral       int
	WeightedScore float64
}

// Confirmation is the entry gate derived from a signal timeframe plus the
// timeframes above it.
type Confirmation struct {
	Confirmed     bool
	Reasons       []string
	HigherSupport float64 // fraction of higher timeframes agreeing
	RiskLevel     string  // low, medium, high
}

var timeframeOrder = []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"}

var defaultWeights = map[string]float64{
	"1m":  0.05,
	"5m":  0.10,
	"15m": 0.15,
	"30m": 0.20,
	"1h":  0.25,
	"4h":  0.15,
	"1d":  0.10,
}

// Analyzer computes per-timeframe summaries and cross-timeframe alignment.
// It holds no market state; every method works over the bars it is given.
type Analyzer struct {
	weights map[string]float64
}

func NewAnalyzer(weights map[string]float64) *Analyzer {
	if weights == nil {
		weights = defaultWeights
	}
	return &Analyzer{weights: weights}
}

// AnalyzeAll runs Analyze for every timeframe with data.
func (a *Analyzer) AnalyzeAll(snapshots map[string][]market.Bar) map[string]TimeframeAnalysis {
	out := make(map[string]TimeframeAnalysis, len(snapshots))
	for tf, bars := range snapshots {
		if len(bars) == 0 {
			continue
		}
		out[tf] = a.Analyze(bars, tf)
	}
	return out
}

// Analyze summarizes a single timeframe's bars.
func (a *Analyzer) Analyze(bars []market.Bar, timeframe string) TimeframeAnalysis {
	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}

	ta := TimeframeAnalysis{Timeframe: timeframe}
	if len(bars) == 0 {
		return ta
	}

	ema8 := EMA(closes, 8)
	ema21 := EMA(closes, 21)
	ema55 := EMA(closes, 55)
	rsi := RSI(closes, 14)
	macd, macdSig, macdHist := MACD(closes, 12, 26, 9)
	bbMid, bbUp, bbLow := Bollinger(closes, 20, 2)
	atr := ATR(highs, lows, closes, 14)

	ta.TrendDir, ta.TrendStrength = analyzeTrend(closes, ema8, ema21, ema55, rsi, macd, macdSig)
	ta.Support, ta.Resistance = findSupportResistance(highs, lows, closes)
	ta.KeyLevels = findKeyLevels(highs, lows, closes, ema55, bbMid, bbUp, bbLow)
	ta.Volatility = calcVolatility(atr, closes)
	ta.Momentum = calcMomentum(closes, rsi, macdHist)
	return ta
}

func analyzeTrend(closes, ema8, ema21, ema55, rsi, macd, macdSig []float64) (TrendDirection, float64) {
	n := len(closes)
	if n < 55 {
		return TrendFlat, 0
	}
	last := n - 1
	price := closes[last]

	emaScore := 0
	if ema8[last] > ema21[last] && ema21[last] > ema55[last] {
		emaScore = 1
	} else if ema8[last] < ema21[last] && ema21[last] < ema55[last] {
		emaScore = -1
	}

	aboveEMAs := 0
	for _, e := range []float64{ema8[last], ema21[last], ema55[last]} {
		if price > e {
			aboveEMAs++
		}
	}

	macdTrend := -1
	if macd[last] > macdSig[last] {
		macdTrend = 1
	}
	rsiTrend := -1
	if rsi[last] > 50 {
		rsiTrend = 1
	}

	score := emaScore + macdTrend + rsiTrend
	if aboveEMAs >= 2 {
		score++
	} else {
		score--
	}

	dir := TrendFlat
	switch {
	case score > 0:
		dir = TrendUp
	case score < 0:
		dir = TrendDown
	}

	var factors []float64
	if n >= 5 && ema21[n-5] != 0 {
		slope := (ema21[last] - ema21[n-5]) / ema21[n-5]
		factors = append(factors, math.Abs(slope)*100)
	}
	if n >= 10 && closes[n-10] != 0 {
		mom := (price - closes[n-10]) / closes[n-10]
		factors = append(factors, math.Abs(mom)*100)
	}
	if !math.IsNaN(rsi[last]) {
		factors = append(factors, math.Abs(rsi[last]-50)/50*100)
	}
	if macdSig[last] != 0 {
		factors = append(factors, math.Min(math.Abs(macd[last]/macdSig[last])*20, 100))
	}

	return dir, clamp(mean(factors), 0, 100)
}

// findSupportResistance picks the nearest swing low below and swing high
// above the current price from the last 50 bars.
func findSupportResistance(highs, lows, closes []float64) (float64, float64) {
	n := len(closes)
	if n == 0 {
		return 0, 0
	}
	minLow, maxHigh := lows[0], highs[0]
	for i := 1; i < n; i++ {
		minLow = math.Min(minLow, lows[i])
		maxHigh = math.Max(maxHigh, highs[i])
	}
	if n < 50 {
		return minLow, maxHigh
	}

	start := n - 50
	var swingHighs, swingLows []float64
	for i := start + 2; i < n-2; i++ {
		if highs[i] > highs[i-1] && highs[i] > highs[i-2] && highs[i] > highs[i+1] && highs[i] > highs[i+2] {
			swingHighs = append(swingHighs, highs[i])
		}
		if lows[i] < lows[i-1] && lows[i] < lows[i-2] && lows[i] < lows[i+1] && lows[i] < lows[i+2] {
			swingLows = append(swingLows, lows[i])
		}
	}

	price := closes[n-1]
	resistance := maxHigh
	for _, h := range swingHighs {
		if h > price && (resistance == maxHigh || h < resistance) {
			resistance = h
		}
	}
	support := minLow
	for _, l := range swingLows {
		if l < price && (support == minLow || l > support) {
			support = l
		}
	}
	return support, resistance
}

func findKeyLevels(highs, lows, closes, ema55, bbMid, bbUp, bbLow []float64) []float64 {
	n := len(closes)
	if n == 0 {
		return nil
	}
	minLow, maxHigh := lows[0], highs[0]
	for i := 1; i < n; i++ {
		minLow = math.Min(minLow, lows[i])
		maxHigh = math.Max(maxHigh, highs[i])
	}

	priceRange := maxHigh - minLow
	var interval float64
	switch {
	case priceRange > 1000:
		interval = 100
	case priceRange > 100:
		interval = 10
	case priceRange > 10:
		interval = 1
	default:
		interval = 0.1
	}

	seen := make(map[float64]bool)
	var levels []float64
	add := func(v float64) {
		if math.IsNaN(v) || seen[v] {
			return
		}
		seen[v] = true
		levels = append(levels, v)
	}

	base := math.Floor(closes[n-1]/interval) * interval
	for i := -3; i <= 3; i++ {
		level := base + float64(i)*interval
		if level >= minLow && level <= maxHigh {
			add(level)
		}
	}
	if n >= 55 {
		add(ema55[n-1])
	}
	add(bbUp[n-1])
	add(bbMid[n-1])
	add(bbLow[n-1])

	sort.Float64s(levels)
	return levels
}

func calcVolatility(atr, closes []float64) float64 {
	n := len(closes)
	if n < 20 || closes[n-1] == 0 {
		return 0
	}
	v := lastValid(atr)
	return v / closes[n-1] * 100
}

func calcMomentum(closes, rsi, macdHist []float64) float64 {
	n := len(closes)
	if n < 10 || closes[n-10] == 0 {
		return 0
	}
	priceMom := (closes[n-1] - closes[n-10]) / closes[n-10]
	rsiMom := 0.0
	if !math.IsNaN(rsi[n-1]) {
		rsiMom = (rsi[n-1] - 50) / 50
	}
	macdMom := 0.0
	if closes[n-1] != 0 && !math.IsNaN(macdHist[n-1]) {
		macdMom = macdHist[n-1] / closes[n-1]
	}
	return (priceMom*0.5 + rsiMom*0.3 + macdMom*0.2) * 100
}

// TrendAlignment scores how strongly the analyzed timeframes agree.
func (a *Analyzer) TrendAlignment(analyses map[string]TimeframeAnalysis) Alignment {
	if len(analyses) == 0 {
		return Alignment{}
	}

	var weighted, totalWeight float64
	var bullish, bearish, neutral int
	for tf, ta := range analyses {
		w, ok := a.weights[tf]
		if !ok {
			w = 0.1
		}
		weighted += float64(ta.TrendDir) * ta.TrendStrength * w
		totalWeight += w
		switch {
		case ta.TrendDir > 0:
			bullish++
		case ta.TrendDir < 0:
			bearish++
		default:
			neutral++
		}
	}

	total := bullish + bearish + neutral
	majority := bullish
	if bearish > majority {
		majority = bearish
	}
	score := float64(majority) / float64(total) * 100

	dominant := TrendFlat
	if bullish > bearish && bullish > neutral {
		dominant = TrendUp
	} else if bearish > bullish && bearish > neutral {
		dominant = TrendDown
	}

	weightedScore := 0.0
	if totalWeight > 0 {
		weightedScore = weighted / totalWeight
	}
	confidence := math.Min(score*math.Abs(weightedScore)/100, 100)

	return Alignment{
		Score:         score,
		DominantTrend: dominant,
		Confidence:    confidence,
		Bullish:       bullish,
		Bearish:       bearish,
		Neutral:       neutral,
		WeightedScore: weightedScore,
	}
}

// EntryConfirmation gates an entry on the given signal timeframe. It needs
// at least two of: sufficient trend strength, higher-timeframe agreement,
// a level breakout, strong momentum, and moderate volatility.
func (a *Analyzer) EntryConfirmation(analyses map[string]TimeframeAnalysis, signalTimeframe string, price float64) Confirmation {
	sig, ok := analyses[signalTimeframe]
	if !ok {
		return Confirmation{RiskLevel: "high", Reasons: []string{"no data for signal timeframe"}}
	}

	var higher []string
	for i, tf := range timeframeOrder {
		if tf == signalTimeframe {
			higher = timeframeOrder[i+1:]
			break
		}
	}

	var agree, counted int
	for _, tf := range higher {
		h, ok := analyses[tf]
		if !ok {
			continue
		}
		counted++
		if (sig.TrendDir > 0 && h.TrendDir > 0) || (sig.TrendDir < 0 && h.TrendDir < 0) {
			agree++
		}
	}
	higherSupport := 0.0
	if counted > 0 {
		higherSupport = float64(agree) / float64(counted)
	}

	var reasons []string
	if sig.TrendStrength > 30 {
		reasons = append(reasons, "trend strength sufficient")
	}
	if counted > 0 && higherSupport >= 0.6 {
		reasons = append(reasons, "higher timeframes agree")
	}
	if sig.TrendDir > 0 && price > sig.Resistance {
		reasons = append(reasons, "resistance breakout")
	} else if sig.TrendDir < 0 && price < sig.Support {
		reasons = append(reasons, "support breakdown")
	}
	if math.Abs(sig.Momentum) > 20 {
		reasons = append(reasons, "strong momentum")
	}
	if sig.Volatility > 10 && sig.Volatility < 50 {
		reasons = append(reasons, "volatility moderate")
	}

	risk := "high"
	switch {
	case len(reasons) >= 4:
		risk = "low"
	case len(reasons) >= 2:
		risk = "medium"
	}

	return Confirmation{
		Confirmed:     len(reasons) >= 2,
		Reasons:       reasons,
		HigherSupport: higherSupport,
		RiskLevel:     risk,
	}
}
