package market

import (
	"time"

	"tradefan-core/pkg/exchange"
)

// Bar is one immutable OHLCV candlestick for a (symbol, timeframe) pair.
type Bar struct {
	Symbol    string
	Timeframe string
	Time      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// BarFromKline converts an exchange kline into a buffer bar.
func BarFromKline(k exchange.Kline) Bar {
	return Bar{
		Symbol:    k.Symbol,
		Timeframe: k.Interval,
		Time:      time.UnixMilli(k.OpenTime),
		Open:      k.Open,
		High:      k.High,
		Low:       k.Low,
		Close:     k.Close,
		Volume:    k.Volume,
	}
}

// PollInterval maps a timeframe to how often its monitor should re-check.
// Shorter timeframes poll more frequently.
func PollInterval(timeframe string) time.Duration {
	switch timeframe {
	case "1m":
		return 5 * time.Second
	case "5m":
		return 10 * time.Second
	case "15m":
		return 30 * time.Second
	case "30m":
		return time.Minute
	case "1h":
		return 2 * time.Minute
	case "4h":
		return 5 * time.Minute
	case "1d":
		return 10 * time.Minute
	default:
		return time.Minute
	}
}
