package market

import (
	"context"
	"log"
	"time"

	"tradefan-core/internal/events"
	"tradefan-core/pkg/exchange"
)

// Feed polls klines from the exchange into the buffer and publishes bars.
// One polling goroutine runs per (symbol, timeframe).
type Feed struct {
	Client     exchange.Client
	Buffer     *Buffer
	Bus        *events.Bus
	Symbols    []string
	Timeframes []string
	Backfill   int // bars fetched on the first poll (default 200)
}

// Start launches the polling loops. They exit when ctx is canceled.
func (f *Feed) Start(ctx context.Context) {
	if f.Client == nil || f.Buffer == nil {
		log.Println("market feed not fully configured; skipping start")
		return
	}
	if f.Backfill <= 0 {
		f.Backfill = 200
	}

	for _, sym := range f.Symbols {
		for _, tf := range f.Timeframes {
			go f.poll(ctx, sym, tf)
		}
	}
}

func (f *Feed) poll(ctx context.Context, symbol, timeframe string) {
	interval := PollInterval(timeframe)
	limit := f.Backfill
	var lastOpen int64

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		klines, err := f.Client.GetKlines(ctx, symbol, timeframe, limit)
		if err != nil {
			log.Printf("market feed: klines %s %s error: %v", symbol, timeframe, err)
		} else {
			lastOpen = f.ingest(klines, lastOpen)
			// After the backfill two bars suffice: the newest closed
			// candle plus the one still forming.
			limit = 2
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ingest appends completed candles to the buffer. The newest kline the venue
// returns is still forming, so it is held back until a later poll shows it
// finalized; lastOpen tracks the newest closed candle already stored.
func (f *Feed) ingest(klines []exchange.Kline, lastOpen int64) int64 {
	if len(klines) == 0 {
		return lastOpen
	}
	for _, k := range klines[:len(klines)-1] {
		if k.OpenTime <= lastOpen {
			continue
		}
		lastOpen = k.OpenTime
		bar := BarFromKline(k)
		f.Buffer.Add(bar)
		if f.Bus != nil {
			f.Bus.Publish(events.EventBar, bar)
		}
	}
	return lastOpen
}
