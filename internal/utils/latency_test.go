package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestLatencyWindowPercentiles(t *testing.T) {
	w := NewLatencyWindow(10)
	assert.Equal(t, time.Duration(0), w.Percentile(95))

	// Explanations served from the store are fast; the one Gemini call is slow.
	for _, d := range []time.Duration{ms(4), ms(6), ms(5), ms(2400), ms(3)} {
		w.Observe(d)
	}
	assert.Equal(t, 5, w.Len())
	assert.Equal(t, ms(2400), w.Percentile(95))
	assert.Equal(t, ms(5), w.Percentile(50))
	assert.Equal(t, ms(3), w.Percentile(0))
	assert.Equal(t, ms(3), w.Percentile(-10))
	assert.Equal(t, ms(2400), w.Percentile(250))
}

func TestLatencyWindowForgetsOldest(t *testing.T) {
	w := NewLatencyWindow(3)
	w.Observe(ms(9000))
	for i := 1; i <= 5; i++ {
		w.Observe(ms(i))
	}
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, ms(5), w.Percentile(100))
	assert.Equal(t, ms(3), w.Percentile(0))
}

func TestNewLatencyWindowDefaultSize(t *testing.T) {
	w := NewLatencyWindow(0)
	for i := 0; i < defaultLatencyWindow+7; i++ {
		w.Observe(ms(1))
	}
	assert.Equal(t, defaultLatencyWindow, w.Len())
}
