package node

import (
	"log"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// LatencyRecorder accumulates per-request latencies and reports p50/p95/p99
// on demand. Grounded on teacher's use of montanaflynn/stats for
// bootstrapping-precision measurement; wired here into the compute node's
// request path instead of a standalone benchmarking harness.
type LatencyRecorder struct {
	mu      sync.Mutex
	samples []float64 // milliseconds
}

// NewLatencyRecorder returns an empty recorder.
func NewLatencyRecorder() *LatencyRecorder {
	return &LatencyRecorder{}
}

// Observe records one request's duration.
func (r *LatencyRecorder) Observe(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, float64(d.Microseconds())/1000.0)
}

// LatencySnapshot reports percentile latencies in milliseconds.
type LatencySnapshot struct {
	Count         int
	P50, P95, P99 float64
}

// Snapshot computes the current percentile distribution. Returns a
// zero-Count snapshot if no requests have been observed yet.
func (r *LatencyRecorder) Snapshot() (LatencySnapshot, error) {
	r.mu.Lock()
	samples := append([]float64(nil), r.samples...)
	r.mu.Unlock()

	if len(samples) == 0 {
		return LatencySnapshot{}, nil
	}
	p50, err := stats.Percentile(samples, 50)
	if err != nil {
		return LatencySnapshot{}, err
	}
	p95, err := stats.Percentile(samples, 95)
	if err != nil {
		return LatencySnapshot{}, err
	}
	p99, err := stats.Percentile(samples, 99)
	if err != nil {
		return LatencySnapshot{}, err
	}
	return LatencySnapshot{Count: len(samples), P50: p50, P95: p95, P99: p99}, nil
}

// LogSummary writes the current percentile snapshot to log, for use at
// shutdown.
func (r *LatencyRecorder) LogSummary(label string) {
	snap, err := r.Snapshot()
	if err != nil {
		log.Printf("%s: latency summary unavailable: %v", label, err)
		return
	}
	if snap.Count == 0 {
		log.Printf("%s: no requests observed", label)
		return
	}
	log.Printf("%s: n=%d p50=%.2fms p95=%.2fms p99=%.2fms", label, snap.Count, snap.P50, snap.P95, snap.P99)
}
