package prometheus

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

const DefaultReadHeaderTimeout = 10 * time.Second

// Config configures a Reporter. HostAndPort, Prefix and ReporterName are required.
type Config struct {
	HostAndPort  string `mapstructure:"host_and_port"`
	Prefix       string `mapstructure:"prefix"`
	ReporterName string `mapstructure:"reporter_name"`

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
}

func (c *Config) complete() {
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
}

func (c Config) validate() error {
	switch {
	case c.HostAndPort == "":
		return fmt.Errorf("%w: host_and_port is required", ErrInvalidConfig)
	case c.Prefix == "":
		return fmt.Errorf("%w: prefix is required", ErrInvalidConfig)
	case c.ReporterName == "":
		return fmt.Errorf("%w: reporter_name is required", ErrInvalidConfig)
	}
	return nil
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}
