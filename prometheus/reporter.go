// Package prometheus serves a metrics registry to Prometheus scrapers.
//
// Every GET / takes a fresh snapshot of the whole registry and answers with
// length-delimited protobuf MetricFamily messages. There is no background
// goroutine besides the HTTP listener itself.
package prometheus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ygrebnov/go-metrics"
)

// Format is the exposition format of every response body.
var Format = expfmt.NewFormat(expfmt.TypeProtoDelim)

// Reporter is a pull-based exporter of a metrics registry.
type Reporter struct {
	registry metrics.Registry
	cfg      Config
	logger   *zap.Logger

	gatherer *prometheus.Registry
	scrapes  prometheus.Counter
	engine   *gin.Engine
}

var _ metrics.Reporter = (*Reporter)(nil)

// New validates cfg and builds the HTTP handler. The registry reference is
// bound here and never re-resolved.
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
	}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	r.logger = r.logger.With(zap.String("reporter", cfg.ReporterName))

	namespace := namespaceOf(cfg.Prefix)
	r.scrapes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: selfSubsystem,
		Name:      "scrapes_total",
		Help:      "Number of scrapes served.",
	})
	r.gatherer = prometheus.NewRegistry()
	if err := r.gatherer.Register(r.scrapes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := r.gatherer.Register(newCollector(registry, namespace, r.logger)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	gin.SetMode(gin.ReleaseMode)
	r.engine = gin.New()
	r.engine.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		r.logger.Error("scrape handler panicked", zap.Any("panic", recovered))
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	r.engine.GET("/", r.handle)
	return r, nil
}

// UniqueReporterName returns Config.ReporterName.
func (r *Reporter) UniqueReporterName() string { return r.cfg.ReporterName }

// Handler returns the HTTP handler serving the scrape route.
func (r *Reporter) Handler() http.Handler { return r.engine }

// Gatherer returns the Prometheus registry backing the handler.
func (r *Reporter) Gatherer() prometheus.Gatherer { return r.gatherer }

func (r *Reporter) handle(c *gin.Context) {
	r.scrapes.Inc()
	body, err := r.encode()
	if err != nil {
		r.logger.Error("scrape failed", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, string(Format), body)
}

// encode gathers the whole registry. Any gather error fails the scrape; a
// partially gathered set is never written.
func (r *Reporter) encode() ([]byte, error) {
	mfs, err := r.gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, Format)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrEncodingFailure, mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}

// Start binds Config.HostAndPort and serves on a new goroutine. Bind errors
// are returned synchronously. The returned Listener tracks the server.
func (r *Reporter) Start() (*Listener, error) {
	ln, err := net.Listen("tcp", r.cfg.HostAndPort)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBindFailure, r.cfg.HostAndPort, err)
	}
	l := &Listener{
		ln: ln,
		srv: &http.Server{
			Handler:           r.engine,
			ReadHeaderTimeout: r.cfg.ReadHeaderTimeout,
		},
		done: make(chan struct{}),
	}
	r.logger.Info("prometheus reporter listening", zap.String("addr", ln.Addr().String()))
	go func() {
		defer close(l.done)
		if err := l.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("prometheus reporter stopped", zap.Error(err))
			l.err = err
		}
	}()
	return l, nil
}

// Listener is a handle on a running Reporter.
type Listener struct {
	ln   net.Listener
	srv  *http.Server
	done chan struct{}
	err  error
}

// Addr returns the bound address, useful when Config.HostAndPort used port 0.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Done is closed when the server stops serving.
func (l *Listener) Done() <-chan struct{} { return l.done }

// Wait blocks until the server stops. It returns nil after a Shutdown.
func (l *Listener) Wait() error {
	<-l.done
	return l.err
}

// Shutdown gracefully stops the server and waits for the serving goroutine.
func (l *Listener) Shutdown(ctx context.Context) error {
	err := l.srv.Shutdown(ctx)
	select {
	case <-l.done:
		return multierr.Append(err, l.err)
	case <-ctx.Done():
		return multierr.Append(err, ctx.Err())
	}
}
