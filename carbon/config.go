package carbon

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	DefaultReconnectDelay = 100 * time.Millisecond
	DefaultDialTimeout    = 5 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
)

// Config configures a Reporter. HostAndPort, Prefix, ReporterName and Delay
// are required; zero timeouts fall back to the package defaults.
type Config struct {
	HostAndPort  string        `mapstructure:"host_and_port"`
	Prefix       string        `mapstructure:"prefix"`
	ReporterName string        `mapstructure:"reporter_name"`
	Delay        time.Duration `mapstructure:"delay"`

	// ReconnectDelay is the fixed wait before every reconnect attempt.
	// Attempts are not limited and do not back off.
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

func (c *Config) complete() {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
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
	case c.Delay <= 0:
		return fmt.Errorf("%w: delay must be positive", ErrInvalidConfig)
	}
	if _, _, err := net.SplitHostPort(c.HostAndPort); err != nil {
		return fmt.Errorf("%w: host_and_port: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Dialer opens the outbound stream. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
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

// WithClock sets the clock used for cycle timestamps and all waits.
func WithClock(c clock.Clock) Option {
	return func(r *Reporter) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) Option {
	return func(r *Reporter) {
		if d != nil {
			r.dialer = d
		}
	}
}
