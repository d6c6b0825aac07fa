package metrics

import (
	"math"
	"sync/atomic"
)

// StdCounter is a thread-safe integer counter.
type StdCounter struct {
	val atomic.Int64
}

// NewStdCounter constructs a counter starting at zero.
func NewStdCounter() *StdCounter { return &StdCounter{} }

// Inc increments the counter by one.
func (c *StdCounter) Inc() { c.val.Add(1) }

// Dec decrements the counter by one.
func (c *StdCounter) Dec() { c.val.Add(-1) }

// Add adds n to the counter (n may be negative).
func (c *StdCounter) Add(n int64) { c.val.Add(n) }

// Clear resets the counter to zero.
func (c *StdCounter) Clear() { c.val.Store(0) }

// Count returns the current value.
func (c *StdCounter) Count() int64 { return c.val.Load() }

// Export returns a CounterSnapshot of the current value.
func (c *StdCounter) Export() Snapshot { return CounterSnapshot{Value: c.val.Load()} }

// StdGauge is a thread-safe floating-point gauge.
type StdGauge struct {
	bits atomic.Uint64
}

// NewStdGauge constructs a gauge starting at zero.
func NewStdGauge() *StdGauge { return &StdGauge{} }

// Set replaces the current value.
func (g *StdGauge) Set(v float64) { g.bits.Store(math.Float64bits(v)) }

// Value returns the current value.
func (g *StdGauge) Value() float64 { return math.Float64frombits(g.bits.Load()) }

// Export returns a GaugeSnapshot of the current value.
func (g *StdGauge) Export() Snapshot { return GaugeSnapshot{Value: g.Value()} }
