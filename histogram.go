package metrics

import (
	"fmt"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// HistogramConfig bounds the values a StdHistogram can record: values outside
// [MinValue, MaxValue] are rejected. Precision is the number of significant
// decimal figures kept (1..5).
type HistogramConfig struct {
	MinValue  int64
	MaxValue  int64
	Precision int
}

// DefaultHistogramConfig tracks values from 1 to one hour in microseconds with
// three significant figures.
var DefaultHistogramConfig = HistogramConfig{MinValue: 1, MaxValue: 3_600_000_000, Precision: 3}

func (c HistogramConfig) validate() error {
	switch {
	case c.MinValue < 1:
		return fmt.Errorf("%w: min value %d < 1", ErrInvalidHistogramConfig, c.MinValue)
	case c.MaxValue < 2*c.MinValue:
		return fmt.Errorf("%w: max value %d < 2 * min value %d", ErrInvalidHistogramConfig, c.MaxValue, c.MinValue)
	case c.Precision < 1 || c.Precision > 5:
		return fmt.Errorf("%w: precision %d not in [1, 5]", ErrInvalidHistogramConfig, c.Precision)
	}
	return nil
}

// StdHistogram is a thread-safe HDR histogram of int64 values.
type StdHistogram struct {
	cfg HistogramConfig

	mu sync.Mutex
	h  *hdrhistogram.Histogram
}

// NewStdHistogram constructs a histogram for the given range and precision.
func NewStdHistogram(cfg HistogramConfig) (*StdHistogram, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &StdHistogram{
		cfg: cfg,
		h:   hdrhistogram.New(cfg.MinValue, cfg.MaxValue, cfg.Precision),
	}, nil
}

// Config returns the histogram's configuration.
func (h *StdHistogram) Config() HistogramConfig { return h.cfg }

// Record adds a single value.
func (h *StdHistogram) Record(v int64) error { return h.RecordN(v, 1) }

// RecordN adds value v with weight n.
func (h *StdHistogram) RecordN(v, n int64) error {
	// HDR buckets reach past MaxValue and fold values under MinValue into 0,
	// so bound explicitly
	if v < h.cfg.MinValue || v > h.cfg.MaxValue {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrValueOutOfRange, v, h.cfg.MinValue, h.cfg.MaxValue)
	}
	h.mu.Lock()
	err := h.h.RecordValues(v, n)
	h.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValueOutOfRange, err)
	}
	return nil
}

// Export copies the accumulator under lock into a HistogramSnapshot.
func (h *StdHistogram) Export() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return newHistogramSnapshot(h.h)
}
