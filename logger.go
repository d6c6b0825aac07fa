package metrics

import "go.uber.org/zap"

// logger is the subset of *zap.SugaredLogger the registry uses.
type logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

func newNoopLogger() logger {
	return zap.NewNop().Sugar()
}
