package analysis

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := SMA(values, 3)

	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatalf("positions before the first full window should be NaN, got %v", got[:2])
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if !almostEqual(got[i+2], w) {
			t.Fatalf("SMA[%d]=%v, expected %v", i+2, got[i+2], w)
		}
	}
}

func TestSMAInsufficientData(t *testing.T) {
	got := SMA([]float64{1, 2}, 5)
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Fatalf("SMA[%d]=%v, expected NaN", i, v)
		}
	}
}

func TestEMASeedsFromFirstValue(t *testing.T) {
	values := []float64{10, 12, 14}
	got := EMA(values, 3) // alpha = 0.5

	if !almostEqual(got[0], 10) {
		t.Fatalf("EMA[0]=%v, expected 10", got[0])
	}
	if !almostEqual(got[1], 11) { // 0.5*12 + 0.5*10
		t.Fatalf("EMA[1]=%v, expected 11", got[1])
	}
	if !almostEqual(got[2], 12.5) { // 0.5*14 + 0.5*11
		t.Fatalf("EMA[2]=%v, expected 12.5", got[2])
	}
}

func TestRSIBounds(t *testing.T) {
	rising := make([]float64, 30)
	falling := make([]float64, 30)
	for i := range rising {
		rising[i] = float64(100 + i)
		falling[i] = float64(100 - i)
	}

	up := RSI(rising, 14)
	if got := up[len(up)-1]; got != 100 {
		t.Fatalf("RSI of monotonic gains=%v, expected 100", got)
	}
	down := RSI(falling, 14)
	if got := down[len(down)-1]; got != 0 {
		t.Fatalf("RSI of monotonic losses=%v, expected 0", got)
	}

	if !math.IsNaN(up[13]) {
		t.Fatalf("RSI[13]=%v, expected NaN before the first full period", up[13])
	}
}

func TestMACDFlatSeriesIsZero(t *testing.T) {
	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 50
	}
	macd, sig, hist := MACD(flat, 12, 26, 9)
	last := len(flat) - 1
	if !almostEqual(macd[last], 0) || !almostEqual(sig[last], 0) || !almostEqual(hist[last], 0) {
		t.Fatalf("MACD of a flat series=(%v, %v, %v), expected zeros", macd[last], sig[last], hist[last])
	}
}

func TestBollingerSymmetry(t *testing.T) {
	values := []float64{10, 11, 12, 11, 10, 11, 12, 11, 10, 11, 12, 11, 10, 11, 12, 11, 10, 11, 12, 11}
	mid, up, low := Bollinger(values, 20, 2)
	last := len(values) - 1

	if math.IsNaN(mid[last]) {
		t.Fatalf("middle band NaN with exactly one full window")
	}
	if !almostEqual(up[last]-mid[last], mid[last]-low[last]) {
		t.Fatalf("bands not symmetric: up-mid=%v, mid-low=%v", up[last]-mid[last], mid[last]-low[last])
	}
	if up[last] <= mid[last] || low[last] >= mid[last] {
		t.Fatalf("band ordering wrong: low=%v mid=%v up=%v", low[last], mid[last], up[last])
	}
}

func TestATRConstantRange(t *testing.T) {
	n := 20
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i := 0; i < n; i++ {
		high[i] = 105
		low[i] = 95
		close[i] = 100
	}
	atr := ATR(high, low, close, 14)
	if got := atr[n-1]; !almostEqual(got, 10) {
		t.Fatalf("ATR of constant 10-range=%v, expected 10", got)
	}
}

func TestVolumeRatio(t *testing.T) {
	vol := make([]float64, 25)
	for i := range vol {
		vol[i] = 100
	}
	vol[24] = 200

	got := VolumeRatio(vol, 20)
	// mean of the trailing 20 includes the spike: (19*100 + 200) / 20 = 105
	if want := 200.0 / 105.0; !almostEqual(got[24], want) {
		t.Fatalf("VolumeRatio=%v, expected %v", got[24], want)
	}
	if !math.IsNaN(got[10]) {
		t.Fatalf("VolumeRatio[10]=%v, expected NaN before the first full window", got[10])
	}
}
