package metrics

import "errors"

var (
	// ErrNotFound is returned when a name is not registered.
	ErrNotFound = errors.New("metric not found")
	// ErrEmptyName is returned when inserting a metric under an empty name.
	ErrEmptyName = errors.New("metric name is empty")
	// ErrNilMetric is returned when inserting a nil metric.
	ErrNilMetric = errors.New("metric is nil")
	// ErrKindMismatch is returned by typed lookups when the name holds another kind.
	ErrKindMismatch = errors.New("metric kind mismatch")

	ErrInvalidPercentile      = errors.New("percentile must be within [0, 100]")
	ErrValueOutOfRange        = errors.New("value outside histogram range")
	ErrInvalidHistogramConfig = errors.New("invalid histogram config")
)
