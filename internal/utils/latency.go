package utils

import (
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

const defaultLatencyWindow = 512

// LatencyWindow keeps the most recent request latencies in a ring and reports
// nearest-rank percentiles over them.
type LatencyWindow struct {
	mu     sync.Mutex
	ring   []time.Duration
	next   int
	filled bool
}

// NewLatencyWindow holds up to size samples.
func NewLatencyWindow(size int) *LatencyWindow {
	if size <= 0 {
		size = defaultLatencyWindow
	}
	return &LatencyWindow{ring: make([]time.Duration, size)}
}

// Observe records d, overwriting the oldest sample once the window is full.
func (w *LatencyWindow) Observe(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ring[w.next] = d
	w.next = (w.next + 1) % len(w.ring)
	if w.next == 0 {
		w.filled = true
	}
}

// Len reports how many samples the window currently holds.
func (w *LatencyWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.len()
}

// Percentile returns the p-th percentile (clamped to 0..100), or zero when empty.
func (w *LatencyWindow) Percentile(p float64) time.Duration {
	w.mu.Lock()
	data := make(stats.Float64Data, w.len())
	for i := range data {
		data[i] = float64(w.ring[i])
	}
	w.mu.Unlock()

	if len(data) == 0 {
		return 0
	}
	p = min(max(p, 0), 100)
	v, err := stats.PercentileNearestRank(data, p)
	if err != nil {
		return 0
	}
	return time.Duration(v)
}

func (w *LatencyWindow) len() int {
	if w.filled {
		return len(w.ring)
	}
	return w.next
}
