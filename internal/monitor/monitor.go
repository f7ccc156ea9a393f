package monitor

import (
	"context"
	"log"
	"time"

	"tradefan-core/internal/events"
)

// Monitor watches engine events, keeps counters current, and emits alerts.
type Monitor struct {
	Bus     *events.Bus
	Metrics *SystemMetrics
	AlertFn func(string)
}

// Start subscribes to the event streams. Runs until ctx is canceled.
func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil {
		log.Println("monitor not fully configured; skipping")
		return
	}

	if m.Metrics != nil {
		m.count(ctx, events.EventBar, m.Metrics.IncrementBars)
		m.count(ctx, events.EventSignalAccepted, m.Metrics.IncrementSignals)
		m.count(ctx, events.EventOrderSubmitted, m.Metrics.IncrementOrders)
		m.count(ctx, events.EventOrderFailed, m.Metrics.IncrementErrors)
	}

	if m.AlertFn != nil {
		stream, unsub := m.Bus.Subscribe(events.EventRiskAlert, 50)
		go func() {
			defer unsub()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-stream:
					if !ok {
						return
					}
					m.AlertFn(formatAlert(msg))
				}
			}
		}()
	}
}

func (m *Monitor) count(ctx context.Context, topic events.Event, inc func()) {
	stream, unsub := m.Bus.Subscribe(topic, 100)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-stream:
				if !ok {
					return
				}
				inc()
			}
		}
	}()
}

func formatAlert(msg any) string {
	return "[" + time.Now().Format(time.RFC3339) + "] " + toString(msg)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return "risk alert triggered"
	}
}
