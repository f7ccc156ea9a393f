package monitor

import (
	"context"
	"strings"
	"testing"
	"time"

	"tradefan-core/internal/events"
)

func TestMonitorCountsEvents(t *testing.T) {
	bus := events.NewBus()
	metrics := NewSystemMetrics()
	m := &Monitor{Bus: bus, Metrics: metrics}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	bus.Publish(events.EventBar, nil)
	bus.Publish(events.EventBar, nil)
	bus.Publish(events.EventSignalAccepted, nil)
	bus.Publish(events.EventOrderSubmitted, nil)
	bus.Publish(events.EventOrderFailed, nil)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := metrics.GetSnapshot()
		if snap.BarsProcessed == 2 && snap.SignalsGenerated == 1 &&
			snap.OrdersProcessed == 1 && snap.ErrorsCount == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("counters never converged: %+v", metrics.GetSnapshot())
}

func TestMonitorFiresAlerts(t *testing.T) {
	bus := events.NewBus()
	alerts := make(chan string, 1)
	m := &Monitor{Bus: bus, AlertFn: func(msg string) {
		select {
		case alerts <- msg:
		default:
		}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	bus.Publish(events.EventRiskAlert, "daily loss limit breached")

	select {
	case msg := <-alerts:
		if !strings.Contains(msg, "daily loss limit breached") {
			t.Fatalf("alert=%q, expected the breach reason", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no alert delivered")
	}
}

func TestMonitorWithoutBusIsNoOp(t *testing.T) {
	m := &Monitor{}
	m.Start(context.Background()) // must not panic
}
