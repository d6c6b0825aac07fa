package metrics

import "fmt"

// GetWithMeta returns the metric registered under name together with a
// defensive copy of its InstrumentConfig, read under one lock.
func (r *StdRegistry) GetWithMeta(name string) (Metric, InstrumentConfig, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, InstrumentConfig{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.metric, copyConfig(e.cfg), nil
}

// Entries returns a point-in-time enumeration of registered metrics in
// insertion order, for admin/debug UIs.
func (r *StdRegistry) Entries() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.names))
	var missing []string
	for _, name := range r.names {
		e, ok := r.entries[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out = append(out, Entry{Name: name, Kind: kindOf(e.metric), Config: copyConfig(e.cfg)})
	}
	r.mu.RUnlock()

	for _, name := range missing {
		r.reportInvariantViolation("entry_missing", name)
	}
	return out
}
