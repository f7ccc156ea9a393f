package market

import (
	"context"
	"log"
	"math/rand"
	"time"

	"tradefan-core/internal/events"
)

// MockFeed generates synthetic bars for local development and dry runs.
type MockFeed struct {
	Buffer     *Buffer
	Bus        *events.Bus
	Symbols    []string
	Timeframes []string
	StartPrice float64
	Step       float64
	Drift      float64 // positive values bias the walk upward
	Interval   time.Duration
	OnPrice    func(symbol string, price float64) // optional price sink
}

func (m *MockFeed) Start(ctx context.Context) {
	if m.Buffer == nil {
		log.Println("mock feed: buffer not set")
		return
	}
	if len(m.Symbols) == 0 {
		m.Symbols = []string{"BTCUSDT"}
	}
	if len(m.Timeframes) == 0 {
		m.Timeframes = []string{"1m"}
	}
	if m.StartPrice == 0 {
		m.StartPrice = 100.0
	}
	if m.Step == 0 {
		m.Step = 0.5
	}
	if m.Interval == 0 {
		m.Interval = time.Second
	}

	prices := make(map[string]float64, len(m.Symbols))
	for _, sym := range m.Symbols {
		prices[sym] = m.StartPrice
	}

	go func() {
		t := time.NewTicker(m.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				for _, sym := range m.Symbols {
					open := prices[sym]
					// random walk with optional drift
					close := open + (rand.Float64()*2-1)*m.Step + m.Drift
					if close <= 0 {
						close = open
					}
					prices[sym] = close
					if m.OnPrice != nil {
						m.OnPrice(sym, close)
					}

					high := open
					low := open
					if close > high {
						high = close
					}
					if close < low {
						low = close
					}
					for _, tf := range m.Timeframes {
						bar := Bar{
							Symbol:    sym,
							Timeframe: tf,
							Time:      now,
							Open:      open,
							High:      high * 1.001,
							Low:       low * 0.999,
							Close:     close,
							Volume:    100 + rand.Float64()*900,
						}
						m.Buffer.Add(bar)
						if m.Bus != nil {
							m.Bus.Publish(events.EventBar, bar)
						}
					}
				}
			}
		}
	}()
}
