package metrics

import (
	"fmt"
	"math"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Snapshot is an immutable, point-in-time value exported by a Metric.
// The set of implementations is closed: CounterSnapshot, GaugeSnapshot,
// MeterSnapshot and *HistogramSnapshot. Consumers dispatch with a type switch.
type Snapshot interface {
	Kind() Kind
	snapshot()
}

// CounterSnapshot is the exported value of a counter.
type CounterSnapshot struct {
	Value int64
}

func (CounterSnapshot) Kind() Kind { return KindCounter }
func (CounterSnapshot) snapshot()  {}

// GaugeSnapshot is the exported value of a gauge.
type GaugeSnapshot struct {
	Value float64
}

func (GaugeSnapshot) Kind() Kind { return KindGauge }
func (GaugeSnapshot) snapshot()  {}

// Rate window indexes into MeterSnapshot.Rates.
const (
	RateM1 = iota
	RateM5
	RateM15
)

// MeterSnapshot is the exported state of a meter. Rates are events per second,
// exponentially decayed over 1, 5 and 15 minutes. Mean is the average rate
// since the meter was created.
type MeterSnapshot struct {
	Count int64
	Mean  float64
	Rates [3]float64
}

func (MeterSnapshot) Kind() Kind { return KindMeter }
func (MeterSnapshot) snapshot()  {}

func (s MeterSnapshot) M1() float64  { return s.Rates[RateM1] }
func (s MeterSnapshot) M5() float64  { return s.Rates[RateM5] }
func (s MeterSnapshot) M15() float64 { return s.Rates[RateM15] }

// HistogramSnapshot holds a private copy of a histogram's accumulator.
// Percentile queries walk the copied buckets, so the snapshot keeps its own
// lock and may be shared between goroutines.
type HistogramSnapshot struct {
	mu sync.Mutex
	h  *hdrhistogram.Histogram
}

func newHistogramSnapshot(h *hdrhistogram.Histogram) *HistogramSnapshot {
	return &HistogramSnapshot{h: hdrhistogram.Import(h.Export())}
}

func (*HistogramSnapshot) Kind() Kind { return KindHistogram }
func (*HistogramSnapshot) snapshot()  {}

// Count returns the number of recorded values.
func (s *HistogramSnapshot) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.TotalCount()
}

// Percentile returns the value at percentile p, where p is within [0, 100].
// Percentile(0) is the smallest and Percentile(100) the largest recorded value,
// both at the histogram's configured precision.
func (s *HistogramSnapshot) Percentile(p float64) (int64, error) {
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPercentile, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.h.TotalCount() == 0:
		return 0, nil
	case p == 0:
		return s.h.Min(), nil
	case p == 100:
		return s.h.Max(), nil
	default:
		return s.h.ValueAtQuantile(p), nil
	}
}

// Min returns the smallest recorded value, or 0 when empty.
func (s *HistogramSnapshot) Min() int64 {
	v, _ := s.Percentile(0)
	return v
}

// Max returns the largest recorded value, or 0 when empty.
func (s *HistogramSnapshot) Max() int64 {
	v, _ := s.Percentile(100)
	return v
}

// Mean returns the arithmetic mean of recorded values, or 0 when empty.
func (s *HistogramSnapshot) Mean() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.h.TotalCount() == 0 {
		return 0
	}
	return s.h.Mean()
}
