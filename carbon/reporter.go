// Package carbon pushes a metrics registry to a Graphite/Carbon plaintext
// endpoint on a fixed interval.
package carbon

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/ygrebnov/go-metrics"
)

// Reporter writes every metric in a registry to a Carbon endpoint once per
// Config.Delay. All lines of one cycle carry the same timestamp.
type Reporter struct {
	registry metrics.Registry
	cfg      Config
	logger   *zap.Logger
	clock    clock.Clock
	dialer   Dialer
	stream   *stream

	started atomic.Bool
	running atomic.Bool
	done    chan struct{}
	err     error
}

var _ metrics.Reporter = (*Reporter)(nil)

// New validates cfg and constructs a Reporter. Nothing is dialed until Start or Run.
func New(registry metrics.Registry, cfg Config, opts ...Option) (*Reporter, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.complete()

	r := &Reporter{
		registry: registry,
		cfg:      cfg,
		logger:   zap.NewNop(),
		clock:    clock.New(),
		dialer:   &net.Dialer{},
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	r.logger = r.logger.With(zap.String("reporter", cfg.ReporterName))
	r.stream = &stream{
		addr:           cfg.HostAndPort,
		dialer:         r.dialer,
		clock:          r.clock,
		logger:         r.logger,
		dialTimeout:    cfg.DialTimeout,
		writeTimeout:   cfg.WriteTimeout,
		reconnectDelay: cfg.ReconnectDelay,
	}
	return r, nil
}

// UniqueReporterName returns Config.ReporterName.
func (r *Reporter) UniqueReporterName() string { return r.cfg.ReporterName }

// State reports whether the outbound stream is currently connected.
func (r *Reporter) State() State { return r.stream.state() }

// Start connects to the endpoint and runs the reporting loop on its own
// goroutine until ctx is done. A failed initial connection is returned and
// nothing is started. Use Done or Wait to track the loop.
func (r *Reporter) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if err := r.stream.connect(ctx); err != nil {
		r.started.Store(false)
		return err
	}
	r.logger.Info("carbon reporter started",
		zap.String("addr", r.cfg.HostAndPort),
		zap.Duration("delay", r.cfg.Delay),
	)
	r.running.Store(true)
	go func() {
		defer close(r.done)
		r.err = r.loop(ctx)
	}()
	return nil
}

// Run is Start followed by Wait.
func (r *Reporter) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	return r.Wait()
}

// Done is closed when the loop started by Start returns. It is never closed
// if Start was not called or failed.
func (r *Reporter) Done() <-chan struct{} { return r.done }

// Wait blocks until the loop returns and reports why it stopped, which is
// ctx.Err() under normal operation. It returns ErrNotStarted at once when no
// loop was launched.
func (r *Reporter) Wait() error {
	if !r.running.Load() {
		return ErrNotStarted
	}
	<-r.done
	return r.err
}

// Close closes the outbound stream. A running loop reconnects on its next
// write unless its context is done.
func (r *Reporter) Close() error { return r.stream.close() }

func (r *Reporter) loop(ctx context.Context) error {
	defer r.stream.close()
	for {
		if err := r.ReportOnce(ctx); err != nil {
			r.logger.Info("carbon reporter stopped", zap.Error(err))
			return err
		}
		if err := sleep(ctx, r.clock, r.cfg.Delay); err != nil {
			r.logger.Info("carbon reporter stopped", zap.Error(err))
			return err
		}
	}
}

// ReportOnce runs a single reporting cycle. It only fails when ctx is done;
// metrics that cannot be fetched or formatted are logged and skipped.
func (r *Reporter) ReportOnce(ctx context.Context) error {
	ts := r.clock.Now().UnixMilli()
	written := 0
	for _, name := range r.registry.Names() {
		m, err := r.registry.Get(name)
		if err != nil {
			r.logger.Warn("skipping metric", zap.String("metric", name), zap.Error(err))
			continue
		}
		lines, err := Format(r.cfg.Prefix, name, m.Export(), ts)
		if err != nil {
			r.logger.Warn("skipping metric", zap.String("metric", name), zap.Error(err))
			continue
		}
		for _, l := range lines {
			if err := r.stream.write(ctx, l); err != nil {
				return err
			}
			written++
		}
	}
	r.logger.Debug("cycle flushed", zap.Int("lines", written), zap.Int64("ts", ts))
	return nil
}
