package metrics

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestStdCounter_ExportAfterIncrements(t *testing.T) {
	c := NewStdCounter()
	const n = 1000
	var wg sync.WaitGroup
	wg.Add(4)
	for g := 0; g < 4; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < n/4; i++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()
	if got := c.Export().(CounterSnapshot).Value; got != n {
		t.Fatalf("unexpected counter snapshot: got %d want %d", got, n)
	}

	c.Dec()
	c.Add(-9)
	if got := c.Count(); got != n-10 {
		t.Fatalf("unexpected counter value: got %d want %d", got, n-10)
	}
	c.Clear()
	if got := c.Count(); got != 0 {
		t.Fatalf("expected cleared counter, got %d", got)
	}
}

func TestStdGauge_Export(t *testing.T) {
	g := NewStdGauge()
	if got := g.Export().(GaugeSnapshot).Value; got != 0 {
		t.Fatalf("expected zero gauge, got %v", got)
	}
	g.Set(-3.25)
	if got := g.Export().(GaugeSnapshot).Value; got != -3.25 {
		t.Fatalf("unexpected gauge snapshot: got %v want %v", got, -3.25)
	}
}

func TestStdMeter_Rates(t *testing.T) {
	mock := clock.NewMock()
	m := NewStdMeterWithClock(mock)

	m.Mark(300)
	s := m.Export().(MeterSnapshot)
	if s.Count != 300 {
		t.Fatalf("unexpected count: got %d want %d", s.Count, 300)
	}
	if s.M1() != 0 || s.M5() != 0 || s.M15() != 0 {
		t.Fatalf("expected no rates before the first tick, got %v", s.Rates)
	}

	mock.Add(5 * time.Second)
	s = m.Export().(MeterSnapshot)
	for i, r := range s.Rates {
		if r != 60 {
			t.Fatalf("unexpected rate %d after first tick: got %v want %v", i, r, 60.0)
		}
	}
	if s.Mean != 60 {
		t.Fatalf("unexpected mean: got %v want %v", s.Mean, 60.0)
	}

	// twelve idle ticks decay the one-minute rate by e^-1
	mock.Add(time.Minute)
	s = m.Export().(MeterSnapshot)
	if want := 60 * math.Exp(-1); math.Abs(s.M1()-want) > 1e-9 {
		t.Fatalf("unexpected m1: got %v want %v", s.M1(), want)
	}
	if !(s.M15() > s.M5() && s.M5() > s.M1()) {
		t.Fatalf("expected slower windows to decay slower, got %v", s.Rates)
	}
	if s.Count != 300 {
		t.Fatalf("count changed without marks: %d", s.Count)
	}
}

func TestStdHistogram_SingleSample(t *testing.T) {
	h, err := NewStdHistogram(HistogramConfig{MinValue: 1, MaxValue: 100, Precision: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.RecordN(1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := h.Export().(*HistogramSnapshot)
	if s.Count() != 1 {
		t.Fatalf("unexpected count: got %d want 1", s.Count())
	}
	for _, p := range []float64{0, 100} {
		v, err := s.Percentile(p)
		if err != nil {
			t.Fatalf("percentile %v: %v", p, err)
		}
		if v != 1 {
			t.Fatalf("unexpected percentile %v: got %d want 1", p, v)
		}
	}
}

func TestStdHistogram_Percentiles(t *testing.T) {
	h, err := NewStdHistogram(HistogramConfig{MinValue: 1, MaxValue: 10000, Precision: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for v := int64(1); v <= 1000; v++ {
		if err := h.Record(v); err != nil {
			t.Fatalf("record %d: %v", v, err)
		}
	}
	s := h.Export().(*HistogramSnapshot)

	// recording after export does not affect the snapshot
	_ = h.Record(5000)

	if s.Count() != 1000 {
		t.Fatalf("unexpected count: got %d want 1000", s.Count())
	}
	if s.Min() != 1 {
		t.Fatalf("unexpected min: got %d want 1", s.Min())
	}
	if s.Max() != 1000 {
		t.Fatalf("unexpected max: got %d want 1000", s.Max())
	}
	p50, _ := s.Percentile(50)
	if p50 < 495 || p50 > 505 {
		t.Fatalf("unexpected p50: got %d", p50)
	}
	if mean := s.Mean(); math.Abs(mean-500.5) > 1 {
		t.Fatalf("unexpected mean: got %v", mean)
	}
}

func TestStdHistogram_Errors(t *testing.T) {
	if _, err := NewStdHistogram(HistogramConfig{MinValue: 0, MaxValue: 10, Precision: 1}); !errors.Is(err, ErrInvalidHistogramConfig) {
		t.Fatalf("expected ErrInvalidHistogramConfig for min 0, got %v", err)
	}
	if _, err := NewStdHistogram(HistogramConfig{MinValue: 10, MaxValue: 15, Precision: 1}); !errors.Is(err, ErrInvalidHistogramConfig) {
		t.Fatalf("expected ErrInvalidHistogramConfig for narrow range, got %v", err)
	}

	h, _ := NewStdHistogram(HistogramConfig{MinValue: 1, MaxValue: 100, Precision: 1})
	for _, v := range []int64{-1, 0, 101} {
		if err := h.Record(v); !errors.Is(err, ErrValueOutOfRange) {
			t.Fatalf("expected ErrValueOutOfRange for %d, got %v", v, err)
		}
	}

	s := h.Export().(*HistogramSnapshot)
	for _, p := range []float64{-0.1, 100.1, math.NaN()} {
		if _, err := s.Percentile(p); !errors.Is(err, ErrInvalidPercentile) {
			t.Fatalf("expected ErrInvalidPercentile for %v, got %v", p, err)
		}
	}
	if v, err := s.Percentile(99); err != nil || v != 0 {
		t.Fatalf("expected 0 from an empty snapshot, got %d, %v", v, err)
	}
}

func TestSnapshotKinds(t *testing.T) {
	h, _ := NewStdHistogram(DefaultHistogramConfig)
	cases := []struct {
		metric Metric
		want   Kind
	}{
		{NewStdCounter(), KindCounter},
		{NewStdGauge(), KindGauge},
		{NewStdMeter(), KindMeter},
		{h, KindHistogram},
	}
	for _, tc := range cases {
		t.Run(tc.want.String(), func(t *testing.T) {
			if got := tc.metric.Export().Kind(); got != tc.want {
				t.Fatalf("unexpected kind: got %s want %s", got, tc.want)
			}
			if got := kindOf(tc.metric); got != tc.want {
				t.Fatalf("unexpected kindOf: got %s want %s", got, tc.want)
			}
		})
	}
}

func TestStdHistogram_BelowMinValueRejected(t *testing.T) {
	h, err := NewStdHistogram(HistogramConfig{MinValue: 16, MaxValue: 1024, Precision: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.Record(3); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("expected ErrValueOutOfRange for 3, got %v", err)
	}
	if err := h.Record(16); err != nil {
		t.Fatalf("unexpected error recording MinValue: %v", err)
	}

	s := h.Export().(*HistogramSnapshot)
	if s.Count() != 1 {
		t.Fatalf("unexpected count: got %d want 1", s.Count())
	}
	if s.Min() != 16 {
		t.Fatalf("unexpected min: got %d want 16", s.Min())
	}
}
