package market

import "sync"

// DefaultCapacity bounds each (symbol, timeframe) ring.
const DefaultCapacity = 1000

// Buffer keeps a bounded ring of bars per (symbol, timeframe) key.
// Multiple producers append and multiple readers snapshot concurrently;
// snapshots are consistent copies, never live views.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	rings    map[string]*ring
}

type ring struct {
	bars  []Bar
	head  int // index of oldest element
	count int
}

func key(symbol, timeframe string) string {
	return symbol + "_" + timeframe
}

// NewBuffer creates a buffer; capacity <= 0 uses DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		rings:    make(map[string]*ring),
	}
}

// Add appends one bar, evicting the oldest when the ring is full. O(1).
func (b *Buffer) Add(bar Bar) {
	k := key(bar.Symbol, bar.Timeframe)

	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rings[k]
	if !ok {
		r = &ring{bars: make([]Bar, b.capacity)}
		b.rings[k] = r
	}

	idx := (r.head + r.count) % b.capacity
	r.bars[idx] = bar
	if r.count < b.capacity {
		r.count++
	} else {
		r.head = (r.head + 1) % b.capacity
	}
}

// Snapshot returns a copy of the most recent n bars in chronological order.
// n <= 0 returns everything. Never blocks; an unknown key yields an empty slice.
func (b *Buffer) Snapshot(symbol, timeframe string, n int) []Bar {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.rings[key(symbol, timeframe)]
	if !ok || r.count == 0 {
		return []Bar{}
	}

	count := r.count
	if n > 0 && n < count {
		count = n
	}

	out := make([]Bar, count)
	start := r.head + r.count - count
	for i := 0; i < count; i++ {
		out[i] = r.bars[(start+i)%b.capacity]
	}
	return out
}

// Len reports the number of buffered bars for a key.
func (b *Buffer) Len(symbol, timeframe string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.rings[key(symbol, timeframe)]
	if !ok {
		return 0
	}
	return r.count
}
