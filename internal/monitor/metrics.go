package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics aggregates engine-wide counters and latency windows.
type SystemMetrics struct {
	OrderLatency    *LatencyHistogram
	AnalysisLatency *LatencyHistogram

	bars    atomic.Uint64
	signals atomic.Uint64
	orders  atomic.Uint64
	errors  atomic.Uint64
}

func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		OrderLatency:    NewLatencyHistogram(1000),
		AnalysisLatency: NewLatencyHistogram(1000),
	}
}

func (m *SystemMetrics) IncrementBars()    { m.bars.Add(1) }
func (m *SystemMetrics) IncrementSignals() { m.signals.Add(1) }
func (m *SystemMetrics) IncrementOrders()  { m.orders.Add(1) }
func (m *SystemMetrics) IncrementErrors()  { m.errors.Add(1) }

// LatencyHistogram keeps the newest samples in a fixed ring and computes
// percentiles on demand, caching the result until a new sample arrives.
type LatencyHistogram struct {
	mu     sync.Mutex
	ring   []float64
	next   int
	filled bool
	stale  bool
	cached LatencyStats
}

func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{ring: make([]float64, size)}
}

// Record adds a sample in milliseconds, evicting the oldest when full.
func (h *LatencyHistogram) Record(ms float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ring[h.next] = ms
	h.next++
	if h.next == len(h.ring) {
		h.next = 0
		h.filled = true
	}
	h.stale = true
}

func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d) / float64(time.Millisecond))
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// Stats returns the window's min/max/avg and percentiles. The computation
// runs only when samples changed since the previous call.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.stale {
		return h.cached
	}

	n := h.next
	if h.filled {
		n = len(h.ring)
	}
	if n == 0 {
		return LatencyStats{}
	}

	sorted := append([]float64(nil), h.ring[:n]...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	h.cached = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.stale = false
	return h.cached
}

// MetricsSnapshot is a point-in-time view served by the status API.
type MetricsSnapshot struct {
	OrderLatency     LatencyStats `json:"order_latency"`
	AnalysisLatency  LatencyStats `json:"analysis_latency"`
	BarsProcessed    uint64       `json:"bars_processed"`
	SignalsGenerated uint64       `json:"signals_generated"`
	OrdersProcessed  uint64       `json:"orders_processed"`
	ErrorsCount      uint64       `json:"errors_count"`
	GoroutineCount   int          `json:"goroutine_count"`
	HeapAlloc        uint64       `json:"heap_alloc_bytes"`
	HeapSys          uint64       `json:"heap_sys_bytes"`
	Timestamp        time.Time    `json:"timestamp"`
}

func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return MetricsSnapshot{
		OrderLatency:     m.OrderLatency.Stats(),
		AnalysisLatency:  m.AnalysisLatency.Stats(),
		BarsProcessed:    m.bars.Load(),
		SignalsGenerated: m.signals.Load(),
		OrdersProcessed:  m.orders.Load(),
		ErrorsCount:      m.errors.Load(),
		GoroutineCount:   runtime.NumGoroutine(),
		HeapAlloc:        mem.HeapAlloc,
		HeapSys:          mem.HeapSys,
		Timestamp:        time.Now(),
	}
}

// Timer measures one operation and feeds the elapsed time to a histogram.
type Timer struct {
	start time.Time
	hist  *LatencyHistogram
}

func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{start: time.Now(), hist: h}
}

// Stop records the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.hist != nil {
		t.hist.RecordDuration(elapsed)
	}
	return elapsed
}
