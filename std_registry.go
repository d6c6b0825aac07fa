package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// StdRegistry is an ordered, concurrency-safe, in-memory Registry.
// Names are enumerated in the order they were first inserted. Re-inserting a
// name overwrites the stored metric and metadata but keeps the name's position.
// A single *StdRegistry is meant to be shared by pointer between application
// code and any number of reporters.
type StdRegistry struct {
	cfg    *registryConfig
	logger logger

	mu      sync.RWMutex
	entries map[string]entry
	names   []string

	// per-name init mutexes: protect concurrent GetOrInsert for the same name
	inits      sync.Map // map[string]*sync.Mutex
	violations atomic.Int32
}

type entry struct {
	metric Metric
	cfg    InstrumentConfig
}

// NewStdRegistry constructs an empty registry.
// Accepts optional functional options to customize behavior.
func NewStdRegistry(opts ...RegistryOption) *StdRegistry {
	cfg := &registryConfig{}
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}
	l := cfg.logger
	if l == nil {
		l = newNoopLogger()
	}
	return &StdRegistry{cfg: cfg, logger: l, entries: make(map[string]entry)}
}

// Insert registers m under name, overwriting any metric already stored there.
// Options are applied before the registry lock is taken.
func (r *StdRegistry) Insert(name string, m Metric, opts ...InstrumentOption) error {
	if name == "" {
		return ErrEmptyName
	}
	if m == nil {
		return fmt.Errorf("%w: %q", ErrNilMetric, name)
	}
	cfg := applyOptions(opts)

	r.mu.Lock()
	r.store(name, m, cfg)
	r.mu.Unlock()
	return nil
}

// store must be called with r.mu held for writing.
func (r *StdRegistry) store(name string, m Metric, cfg InstrumentConfig) {
	if _, ok := r.entries[name]; !ok {
		r.names = append(r.names, name)
	}
	r.entries[name] = entry{metric: m, cfg: cfg}
}

// Get returns the metric registered under name.
func (r *StdRegistry) Get(name string) (Metric, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.metric, nil
}

// Names returns a copy of all registered names in insertion order.
func (r *StdRegistry) Names() []string {
	r.mu.RLock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	n := len(r.entries)
	r.mu.RUnlock()

	if n != len(out) {
		r.reportInvariantViolation("names_entries_len", fmt.Sprintf("%d names, %d entries", len(out), n))
	}
	return out
}

// Len returns the number of registered metrics.
func (r *StdRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// keyMu returns a per-name mutex for the given name, creating one if necessary.
// The returned mutex is owned by the registry and should be locked/unlocked by callers.
func (r *StdRegistry) keyMu(name string) *sync.Mutex {
	m, _ := r.inits.LoadOrStore(name, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// GetOrInsert returns the metric stored under name, creating it with newMetric
// if absent. Concurrent callers for the same name create at most one metric.
// Options only apply when the metric is created.
func (r *StdRegistry) GetOrInsert(name string, newMetric func() (Metric, error), opts ...InstrumentOption) (Metric, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	// fast read path
	if m, err := r.Get(name); err == nil {
		return m, nil
	}

	// compute config off-lock to avoid holding per-name mutex during option application
	cfg := applyOptions(opts)

	km := r.keyMu(name)
	km.Lock()
	defer km.Unlock()

	// re-check after acquiring per-name mutex
	if m, err := r.Get(name); err == nil {
		return m, nil
	}
	m, err := newMetric()
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrNilMetric, name)
	}

	r.mu.Lock()
	// Insert does not take the per-name mutex; keep whatever it stored meanwhile
	if e, ok := r.entries[name]; ok {
		m = e.metric
	} else {
		r.store(name, m, cfg)
	}
	r.mu.Unlock()

	// It's safe to delete while holding the mutex; goroutines that already
	// hold the pointer will continue to use it, and new callers will hit the fast path.
	if !r.cfg.doNotCleanupInits {
		r.inits.Delete(name)
	}
	return m, nil
}

// Counter returns the *StdCounter registered under name, creating it if absent.
func (r *StdRegistry) Counter(name string, opts ...InstrumentOption) (*StdCounter, error) {
	m, err := r.GetOrInsert(name, func() (Metric, error) { return NewStdCounter(), nil }, opts...)
	if err != nil {
		return nil, err
	}
	c, ok := m.(*StdCounter)
	if !ok {
		return nil, kindMismatch(name, KindCounter, m)
	}
	return c, nil
}

// Gauge returns the *StdGauge registered under name, creating it if absent.
func (r *StdRegistry) Gauge(name string, opts ...InstrumentOption) (*StdGauge, error) {
	m, err := r.GetOrInsert(name, func() (Metric, error) { return NewStdGauge(), nil }, opts...)
	if err != nil {
		return nil, err
	}
	g, ok := m.(*StdGauge)
	if !ok {
		return nil, kindMismatch(name, KindGauge, m)
	}
	return g, nil
}

// Meter returns the *StdMeter registered under name, creating it if absent.
func (r *StdRegistry) Meter(name string, opts ...InstrumentOption) (*StdMeter, error) {
	m, err := r.GetOrInsert(name, func() (Metric, error) { return NewStdMeter(), nil }, opts...)
	if err != nil {
		return nil, err
	}
	mt, ok := m.(*StdMeter)
	if !ok {
		return nil, kindMismatch(name, KindMeter, m)
	}
	return mt, nil
}

// Histogram returns the *StdHistogram registered under name, creating it with
// cfg if absent. cfg is ignored when the histogram already exists.
func (r *StdRegistry) Histogram(name string, cfg HistogramConfig, opts ...InstrumentOption) (*StdHistogram, error) {
	m, err := r.GetOrInsert(name, func() (Metric, error) {
		h, err := NewStdHistogram(cfg)
		if err != nil {
			return nil, err
		}
		return h, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	h, ok := m.(*StdHistogram)
	if !ok {
		return nil, kindMismatch(name, KindHistogram, m)
	}
	return h, nil
}

func kindMismatch(name string, want Kind, got Metric) error {
	return fmt.Errorf("%w: %q is %s, not %s", ErrKindMismatch, name, kindOf(got), want)
}

// kindOf avoids exporting the standard primitives just to learn their kind.
func kindOf(m Metric) Kind {
	switch m.(type) {
	case *StdCounter:
		return KindCounter
	case *StdGauge:
		return KindGauge
	case *StdMeter:
		return KindMeter
	case *StdHistogram:
		return KindHistogram
	default:
		return m.Export().Kind()
	}
}

// reportInvariantViolation reports unexpected internal states such as
// "name listed but entry missing". In release builds it logs up to 10 times;
// in debug builds (or under race detector) it panics to catch bugs early.
func (r *StdRegistry) reportInvariantViolation(kind, detail string) {
	const maxReports = 10
	if r.violations.Add(1) > maxReports {
		return
	}

	msg := "[metrics] invariant violation: " + kind + " (" + detail + ")"

	// In debug builds, fail fast.
	if isDebugBuild() {
		panic(msg)
	}

	r.logger.Warnf("%s", msg)
}

// isDebugBuild reports whether we're in a "debug" or "race" build.
// This uses Go's built-in race detector flag or a debug build tag.
func isDebugBuild() bool {
	return raceBuild || debugBuild
}
