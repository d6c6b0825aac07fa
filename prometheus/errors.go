package prometheus

import "errors"

var (
	ErrInvalidConfig   = errors.New("prometheus: invalid config")
	ErrBindFailure     = errors.New("prometheus: bind failure")
	ErrEncodingFailure = errors.New("prometheus: encoding failure")
	ErrNameCollision   = errors.New("prometheus: metric name already exported")
)
