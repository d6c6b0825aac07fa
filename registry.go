package metrics

// Registry is the name-keyed store of live metrics.
// Implementations must be safe for concurrent use by multiple goroutines.
//
// This interface is designed to be minimal and stable: it is all a reporter needs.
// Optional capabilities (metadata, lazy creation) live on StdRegistry.
type Registry interface {
	// Insert registers m under name. An existing name is overwritten.
	Insert(name string, m Metric, opts ...InstrumentOption) error
	// Get returns the metric registered under name or an error wrapping ErrNotFound.
	Get(name string) (Metric, error)
	// Names returns all registered names in insertion order.
	Names() []string
}

// MetaRegistry is implemented by registries that keep InstrumentConfig
// alongside each metric. Returned configs are defensive copies.
type MetaRegistry interface {
	Registry
	GetWithMeta(name string) (Metric, InstrumentConfig, error)
}

// Entry describes one registered metric for admin/debug enumeration.
type Entry struct {
	Name   string
	Kind   Kind
	Config InstrumentConfig // defensive copy
}
