package metrics

// test helper: read metadata stored for name without going through GetWithMeta.
// Placed in a _test.go file so it is test-only and not part of the public API.
func metaLoad(r *StdRegistry, name string) (InstrumentConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return InstrumentConfig{}, false
	}
	return e.cfg, true
}
