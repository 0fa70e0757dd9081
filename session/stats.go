package session

import (
	"sync"
	"time"
)

// Sample is one timestamped transport metric.
type Sample struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// StatsAggregator accumulates transport telemetry over one session, keyed by
// category. It is written from event callbacks and read by the display
// surface; reads return copies so iteration never observes a torn slice.
// Build a fresh aggregator per session; never reuse one across sessions.
type StatsAggregator struct {
	mu      sync.Mutex
	samples map[string][]Sample
}

func NewStatsAggregator() *StatsAggregator {
	return &StatsAggregator{
		samples: make(map[string][]Sample),
	}
}

// Record appends one sample. It never fails.
func (a *StatsAggregator) Record(category string, value float64, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples[category] = append(a.samples[category], Sample{Value: value, At: at})
}

// Read returns a copy of the sample sequence for a category, in recording
// order.
func (a *StatsAggregator) Read(category string) []Sample {
	a.mu.Lock()
	defer a.mu.Unlock()
	src := a.samples[category]
	out := make([]Sample, len(src))
	copy(out, src)
	return out
}

// Snapshot returns a copy of every category's samples.
func (a *StatsAggregator) Snapshot() map[string][]Sample {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string][]Sample, len(a.samples))
	for category, src := range a.samples {
		samples := make([]Sample, len(src))
		copy(samples, src)
		out[category] = samples
	}
	return out
}
