// Command metricsd runs a demo metrics registry and exposes it through the
// Carbon push reporter, the Prometheus pull reporter, or both.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ygrebnov/go-metrics"
	"github.com/ygrebnov/go-metrics/carbon"
	"github.com/ygrebnov/go-metrics/prometheus"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	opts := NewOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:           "metricsd",
		Short:         "Serve a demo metrics registry over Carbon and Prometheus",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := newViper(cmd.Flags())
			if err != nil {
				return err
			}
			if configFile != "" {
				v.SetConfigFile(configFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config %s: %w", configFile, err)
				}
			}
			if err := opts.Load(v); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML, JSON or TOML config file.")
	opts.AddFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, opts *Options) (err error) {
	logger, err := opts.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	registry, demo, err := newDemoRegistry(logger)
	if err != nil {
		return err
	}

	var (
		push *carbon.Reporter
		pull *prometheus.Reporter
	)
	if opts.Carbon.Enabled {
		if push, err = carbon.New(registry, opts.CarbonConfig(), carbon.WithLogger(logger)); err != nil {
			return err
		}
	}
	if opts.Prometheus.Enabled {
		if pull, err = prometheus.New(registry, opts.PrometheusConfig(), prometheus.WithLogger(logger)); err != nil {
			return err
		}
	}

	var l *prometheus.Listener
	if pull != nil {
		if l, err = pull.Start(); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return demo.run(ctx, opts.Demo.Interval) })
	if push != nil {
		g.Go(func() error { return push.Run(ctx) })
	}
	if l != nil {
		g.Go(func() error {
			select {
			case <-ctx.Done():
			case <-l.Done():
				return l.Wait()
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return l.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("metricsd stopped", zap.Error(err))
	return err
}

// demoTraffic feeds the demo metrics with synthetic values.
type demoTraffic struct {
	logger    *zap.Logger
	meter     *metrics.StdMeter
	counter   *metrics.StdCounter
	gauge     *metrics.StdGauge
	histogram *metrics.StdHistogram
}

func newDemoRegistry(logger *zap.Logger) (*metrics.StdRegistry, *demoTraffic, error) {
	r := metrics.NewStdRegistry(metrics.WithRegistryLogger(logger))
	d := &demoTraffic{logger: logger}

	var err, e error
	d.meter, e = r.Meter("meter1", metrics.WithDescription("Synthetic events."))
	err = multierr.Append(err, e)
	d.counter, e = r.Counter("counter1", metrics.WithDescription("Synthetic counter."))
	err = multierr.Append(err, e)
	d.gauge, e = r.Gauge("gauge1", metrics.WithDescription("Synthetic gauge."))
	err = multierr.Append(err, e)
	d.histogram, e = r.Histogram("histogram",
		metrics.HistogramConfig{MinValue: 1, MaxValue: 100, Precision: 1},
		metrics.WithDescription("Synthetic samples in [1, 100]."),
	)
	err = multierr.Append(err, e)
	if err != nil {
		return nil, nil, err
	}
	return r, d, nil
}

func (d *demoTraffic) run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		d.tick()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (d *demoTraffic) tick() {
	d.meter.Mark(rand.Int63n(10) + 1)
	d.counter.Inc()
	d.gauge.Set(rand.Float64() * 10)
	if err := d.histogram.Record(rand.Int63n(100) + 1); err != nil {
		d.logger.Warn("record failed", zap.Error(err))
	}
}
