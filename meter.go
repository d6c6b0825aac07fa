package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const meterTickInterval = 5 * time.Second

// ewma is an exponentially-weighted moving average of a per-second rate,
// updated once per meterTickInterval.
type ewma struct {
	alpha     float64
	rate      float64
	uncounted int64
	init      bool
}

func newEWMA(minutes float64) ewma {
	return ewma{alpha: 1 - math.Exp(-meterTickInterval.Seconds()/60/minutes)}
}

func (e *ewma) tick() {
	instant := float64(e.uncounted) / meterTickInterval.Seconds()
	e.uncounted = 0
	if e.init {
		e.rate += e.alpha * (instant - e.rate)
		return
	}
	e.rate = instant
	e.init = true
}

// StdMeter counts events and tracks their 1, 5 and 15 minute decayed rates.
// Rates are advanced lazily on Mark and Export, so a meter needs no goroutine.
type StdMeter struct {
	clock clock.Clock

	mu       sync.Mutex
	count    int64
	start    time.Time
	lastTick time.Time
	rates    [3]ewma
}

// NewStdMeter constructs a meter using the wall clock.
func NewStdMeter() *StdMeter { return NewStdMeterWithClock(clock.New()) }

// NewStdMeterWithClock constructs a meter driven by clk.
func NewStdMeterWithClock(clk clock.Clock) *StdMeter {
	now := clk.Now()
	return &StdMeter{
		clock:    clk,
		start:    now,
		lastTick: now,
		rates:    [3]ewma{newEWMA(1), newEWMA(5), newEWMA(15)},
	}
}

// Mark records n events.
func (m *StdMeter) Mark(n int64) {
	m.mu.Lock()
	m.tickIfNecessary(m.clock.Now())
	m.count += n
	for i := range m.rates {
		m.rates[i].uncounted += n
	}
	m.mu.Unlock()
}

// Export returns count and rates read under one lock.
func (m *StdMeter) Export() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	m.tickIfNecessary(now)

	s := MeterSnapshot{Count: m.count}
	if elapsed := now.Sub(m.start).Seconds(); elapsed > 0 {
		s.Mean = float64(m.count) / elapsed
	}
	for i := range m.rates {
		s.Rates[i] = m.rates[i].rate
	}
	return s
}

// tickIfNecessary must be called with m.mu held.
func (m *StdMeter) tickIfNecessary(now time.Time) {
	age := now.Sub(m.lastTick)
	if age < meterTickInterval {
		return
	}
	ticks := int64(age / meterTickInterval)
	m.lastTick = m.lastTick.Add(time.Duration(ticks) * meterTickInterval)
	for ; ticks > 0; ticks-- {
		for i := range m.rates {
			m.rates[i].tick()
		}
	}
}
