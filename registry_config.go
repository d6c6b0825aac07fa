package metrics

import "go.uber.org/zap"

type registryConfig struct {
	// when false, remove per-name mutex entries from `inits` after initialization to
	// allow GC of mutexes for many ephemeral metric names. Default: false.
	doNotCleanupInits bool
	logger            logger
}

// RegistryOption configures a StdRegistry constructed by NewStdRegistry.
type RegistryOption func(*registryConfig)

// WithInitCleanupDisabled controls whether per-name init mutex entries are removed from
// the registry's internal `inits` map after GetOrInsert creates a metric. When enabled the
// entries are deleted to allow GC of mutexes for ephemeral metric names.
// Init cleanup is enabled by default; this option disables it.
func WithInitCleanupDisabled() RegistryOption {
	return func(cfg *registryConfig) { cfg.doNotCleanupInits = true }
}

// WithRegistryLogger sets the logger used to report internal invariant violations.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(cfg *registryConfig) {
		if l != nil {
			cfg.logger = l.Sugar()
		}
	}
}
