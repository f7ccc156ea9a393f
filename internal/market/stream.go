package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"tradefan-core/internal/events"
)

// StreamClient subscribes to public kline websockets for push-based bars.
type StreamClient struct {
	StreamURL string
	dialer    *websocket.Dialer
}

// NewStreamClient builds a websocket client; testnet toggles the host.
func NewStreamClient(testnet bool) *StreamClient {
	host := "stream.binance.com:9443"
	if testnet {
		host = "testnet.binance.vision"
	}
	return &StreamClient{
		StreamURL: (&url.URL{Scheme: "wss", Host: host, Path: "/ws"}).String(),
		dialer:    websocket.DefaultDialer,
	}
}

// SubscribeKlines listens to a kline stream and pushes closed bars into a
// channel. It returns the channel and a stop function.
func (c *StreamClient) SubscribeKlines(ctx context.Context, symbol, interval string) (<-chan Bar, func(), error) {
	// The venue requires lowercase symbols for websocket streams.
	stream := fmt.Sprintf("%s@kline_%s", strings.ToLower(symbol), interval)
	u := fmt.Sprintf("%s/%s", c.StreamURL, stream)

	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial kline ws: %w", err)
	}

	out := make(chan Bar, 100)
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		})
	}

	// Closing the connection is the only way to unblock a quiet ReadMessage.
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	go func() {
		defer close(out)
		defer close(done)
		defer stop()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil &&
					!websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
					!strings.Contains(err.Error(), "use of closed network connection") {
					log.Printf("market stream: read error: %v", err)
				}
				return
			}

			bar, closed, err := parseKlineMessage(msg)
			if err != nil {
				log.Printf("market stream: parse error: %v", err)
				continue
			}
			if !closed {
				continue // only completed candles enter the buffer
			}
			select {
			case out <- bar:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, stop, nil
}

// klineMessage mirrors the wire format of a kline stream event.
type klineMessage struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Kline     struct {
		StartTime int64  `json:"t"`
		Interval  string `json:"i"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Volume    string `json:"v"`
		Closed    bool   `json:"x"`
	} `json:"k"`
}

func parseKlineMessage(msg []byte) (Bar, bool, error) {
	var m klineMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return Bar{}, false, err
	}
	if m.EventType != "kline" {
		return Bar{}, false, fmt.Errorf("unexpected event type %q", m.EventType)
	}
	bar := Bar{
		Symbol:    m.Symbol,
		Timeframe: m.Kline.Interval,
		Time:      msToTime(m.Kline.StartTime),
		Open:      mustFloat(m.Kline.Open),
		High:      mustFloat(m.Kline.High),
		Low:       mustFloat(m.Kline.Low),
		Close:     mustFloat(m.Kline.Close),
		Volume:    mustFloat(m.Kline.Volume),
	}
	return bar, m.Kline.Closed, nil
}

func mustFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// StreamFeed wires websocket klines into the buffer, with the polling Feed
// typically kept alongside as a gap-filling fallback.
type StreamFeed struct {
	Stream     *StreamClient
	Buffer     *Buffer
	Bus        *events.Bus
	Symbols    []string
	Timeframes []string
}

// Start opens one websocket subscription per (symbol, timeframe). A dropped
// connection is redialed with exponential backoff until ctx is canceled.
func (f *StreamFeed) Start(ctx context.Context) {
	if f.Stream == nil || f.Buffer == nil {
		log.Println("market stream feed not fully configured; skipping start")
		return
	}
	for _, sym := range f.Symbols {
		for _, tf := range f.Timeframes {
			go f.run(ctx, sym, tf)
		}
	}
}

func (f *StreamFeed) run(ctx context.Context, symbol, timeframe string) {
	b := &backoff.Backoff{Min: time.Second, Max: time.Minute, Jitter: true}
	for {
		ch, stop, err := f.Stream.SubscribeKlines(ctx, symbol, timeframe)
		if err != nil {
			d := b.Duration()
			log.Printf("market stream: subscribe %s %s error: %v (retry in %s)", symbol, timeframe, err, d)
			select {
			case <-ctx.Done():
				return
			case <-time.After(d):
			}
			continue
		}
		b.Reset()

		for bar := range ch {
			f.Buffer.Add(bar)
			if f.Bus != nil {
				f.Bus.Publish(events.EventBar, bar)
			}
		}
		stop()

		select {
		case <-ctx.Done():
			return
		case <-time.After(b.Duration()):
		}
	}
}
