package sched

import (
	"time"

	"github.com/jamiealquiza/tachymeter"
)

// metricsState holds the rolling counters. It is guarded by the
// scheduler's mutex.
type metricsState struct {
	submitted uint64
	executed  uint64
	peak      time.Duration
	samples   int
	tach      *tachymeter.Tachymeter
}

func newMetricsState() *metricsState {
	return &metricsState{
		tach: tachymeter.New(&tachymeter.Config{Size: batchWindow}),
	}
}

func (m *metricsState) recordBatch(executed int, took time.Duration) {
	m.executed += uint64(executed)
	if took > m.peak {
		m.peak = took
	}
	m.tach.AddTime(took)
	m.samples++
}

func (m *metricsState) reset() {
	m.submitted = 0
	m.executed = 0
	m.peak = 0
	m.samples = 0
	m.tach = tachymeter.New(&tachymeter.Config{Size: batchWindow})
}

// LaneStats is the per-lane slice of a metrics snapshot.
type LaneStats struct {
	Depth  int    // operations currently queued
	Cycles uint64 // pacing cycles armed since the last clear
}

// Metrics is a point-in-time snapshot of the scheduler's counters and
// batch timing statistics. Timings cover a rolling window of the last 100
// processed batches; PeakBatch is the all-time peak since the last clear.
type Metrics struct {
	TotalOperations uint64 // submissions since the last clear
	TotalExecuted   uint64 // entries dispatched to an effect

	Lanes [laneCount]LaneStats

	AvgBatch  time.Duration
	MinBatch  time.Duration
	MaxBatch  time.Duration
	P99Batch  time.Duration
	PeakBatch time.Duration
	Batches   int // samples currently in the window
}

// Metrics returns a snapshot. It is pull-based; nothing is pushed or
// published elsewhere.
func (s *Scheduler) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Metrics{
		TotalOperations: s.metrics.submitted,
		TotalExecuted:   s.metrics.executed,
		PeakBatch:       s.metrics.peak,
		Batches:         min(s.metrics.samples, batchWindow),
	}
	for i := range s.lanes {
		out.Lanes[i] = LaneStats{
			Depth:  len(s.lanes[i].ops),
			Cycles: s.lanes[i].cycles,
		}
	}
	if s.metrics.samples > 0 {
		calc := s.metrics.tach.Calc()
		out.AvgBatch = calc.Time.Avg
		out.MinBatch = calc.Time.Min
		out.MaxBatch = calc.Time.Max
		out.P99Batch = calc.Time.P99
	}
	return out
}
