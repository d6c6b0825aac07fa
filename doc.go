/*
Package metrics provides a concurrency-safe, in-process metrics registry whose
contents can be exported by Carbon (push) and Prometheus (pull) reporters.

# Overview

The library is organized around three pieces:

1. Metric: anything that can produce an immutable Snapshot on demand.
Export must be safe to call while application code mutates the metric.

	type Metric interface {
	  Export() Snapshot
	}

2. Snapshot: a closed set of variants (CounterSnapshot, GaugeSnapshot,
MeterSnapshot, *HistogramSnapshot). Reporters dispatch with a type switch and
never need to know how a metric mutates its state.

3. Registry: an ordered name -> Metric mapping shared between the application
and any number of reporters.

	type Registry interface {
	  Insert(name string, m Metric, opts ...InstrumentOption) error
	  Get(name string) (Metric, error)
	  Names() []string
	}

# Reference implementation

StdRegistry implements Registry with a map guarded by a sync.RWMutex and a
slice that records insertion order. Inserting an existing name overwrites the
metric (the name keeps its original position). Get on an unknown name returns
an error wrapping ErrNotFound.

GetOrInsert and the typed helpers (Counter, Gauge, Meter, Histogram) create
metrics lazily. A separate sync.Map of per-name mutexes serializes first-time
initialization so concurrent callers get the same instance. After
initialization the per-name mutex entry is removed (disable with
WithInitCleanupDisabled).

The standard primitives are StdCounter, StdGauge, StdMeter (1/5/15 minute
EWMA rates, ticked lazily) and StdHistogram (HDR histogram with configurable
range and precision).

Examples

	r := metrics.NewStdRegistry()
	c, _ := r.Counter("requests", metrics.WithDescription("HTTP requests"))
	c.Inc()

	for _, name := range r.Names() {
	    m, _ := r.Get(name)
	    switch s := m.Export().(type) {
	    case metrics.CounterSnapshot:
	        _ = s.Value
	    }
	}

# Reporters

Package carbon pushes `<prefix>.<name>[.<field>] <value> <unix_ms>` lines to a
Graphite endpoint on a fixed interval, reconnecting after a fixed delay when
the stream breaks. Package prometheus serves the registry as delimited
protobuf metric families on `GET /`.

# Build and test

	go test ./...
	go test -race ./...
	go test -tags=debug ./...

In debug and race builds internal invariant violations panic; otherwise they
are logged through the registry logger.
*/
package metrics
