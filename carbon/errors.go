package carbon

import "errors"

var (
	ErrInvalidConfig       = errors.New("carbon: invalid config")
	ErrConnectionFailure   = errors.New("carbon: connection failure")
	ErrWriteFailure        = errors.New("carbon: write failure")
	ErrUnsupportedSnapshot = errors.New("carbon: unsupported snapshot")
	ErrAlreadyStarted      = errors.New("carbon: reporter already started")
	ErrNotStarted          = errors.New("carbon: reporter not started")
)
