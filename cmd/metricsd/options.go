package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ygrebnov/go-metrics/carbon"
	"github.com/ygrebnov/go-metrics/prometheus"
)

// Options is the full process configuration. Keys mirror the reporter
// construction options: registry is implicit, the rest come from flags, the
// config file or METRICSD_* environment variables.
type Options struct {
	Log        LogOptions        `mapstructure:"log"`
	Carbon     CarbonOptions     `mapstructure:"carbon"`
	Prometheus PrometheusOptions `mapstructure:"prometheus"`
	Demo       DemoOptions       `mapstructure:"demo"`
}

type LogOptions struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type CarbonOptions struct {
	Enabled          bool   `mapstructure:"enabled"`
	HostAndPort      string `mapstructure:"host_and_port"`
	Prefix           string `mapstructure:"prefix"`
	ReporterName     string `mapstructure:"reporter_name"`
	DelayMS          uint32 `mapstructure:"delay_ms"`
	ReconnectDelayMS uint32 `mapstructure:"reconnect_delay_ms"`
}

type PrometheusOptions struct {
	Enabled      bool   `mapstructure:"enabled"`
	HostAndPort  string `mapstructure:"host_and_port"`
	Prefix       string `mapstructure:"prefix"`
	ReporterName string `mapstructure:"reporter_name"`
}

// DemoOptions drive the synthetic traffic that keeps the demo metrics moving.
type DemoOptions struct {
	Interval time.Duration `mapstructure:"interval"`
}

func NewOptions() *Options {
	return &Options{
		Log: LogOptions{Level: "info"},
		Carbon: CarbonOptions{
			HostAndPort:  "127.0.0.1:2003",
			Prefix:       "metricsd",
			ReporterName: "carbon",
			DelayMS:      10_000,
		},
		Prometheus: PrometheusOptions{
			Enabled:      true,
			HostAndPort:  "0.0.0.0:8080",
			Prefix:       "metricsd",
			ReporterName: "prometheus",
		},
		Demo: DemoOptions{Interval: time.Second},
	}
}

// AddFlags registers flags named after their viper keys.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.String("log.level", o.Log.Level, "Log level (debug, info, warn, error).")
	fs.Bool("log.development", o.Log.Development, "Use the zap development encoder.")

	fs.Bool("carbon.enabled", o.Carbon.Enabled, "Push metrics to a Carbon endpoint.")
	fs.String("carbon.host_and_port", o.Carbon.HostAndPort, "Carbon plaintext endpoint.")
	fs.String("carbon.prefix", o.Carbon.Prefix, "Prefix of every Carbon metric path.")
	fs.String("carbon.reporter_name", o.Carbon.ReporterName, "Carbon reporter identity.")
	fs.Uint32("carbon.delay_ms", o.Carbon.DelayMS, "Milliseconds between Carbon reporting cycles.")
	fs.Uint32("carbon.reconnect_delay_ms", o.Carbon.ReconnectDelayMS, "Milliseconds to wait before reconnecting (0 = default).")

	fs.Bool("prometheus.enabled", o.Prometheus.Enabled, "Serve metrics for Prometheus scrapes.")
	fs.String("prometheus.host_and_port", o.Prometheus.HostAndPort, "Bind address of the scrape endpoint.")
	fs.String("prometheus.prefix", o.Prometheus.Prefix, "Namespace of every Prometheus metric.")
	fs.String("prometheus.reporter_name", o.Prometheus.ReporterName, "Prometheus reporter identity.")

	fs.Duration("demo.interval", o.Demo.Interval, "Interval between synthetic demo updates.")
}

// Load fills o from v, which already has flags, env and config file bound.
func (o *Options) Load(v *viper.Viper) error {
	if err := v.Unmarshal(o); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return o.Validate()
}

func (o *Options) Validate() error {
	var err error
	if !o.Carbon.Enabled && !o.Prometheus.Enabled {
		err = multierr.Append(err, errors.New("at least one of carbon.enabled, prometheus.enabled must be set"))
	}
	if o.Carbon.Enabled && o.Carbon.DelayMS == 0 {
		err = multierr.Append(err, errors.New("carbon.delay_ms must be positive"))
	}
	if o.Demo.Interval <= 0 {
		err = multierr.Append(err, errors.New("demo.interval must be positive"))
	}
	if _, lerr := zapcore.ParseLevel(o.Log.Level); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("log.level: %w", lerr))
	}
	return err
}

func (o *Options) CarbonConfig() carbon.Config {
	return carbon.Config{
		HostAndPort:    o.Carbon.HostAndPort,
		Prefix:         o.Carbon.Prefix,
		ReporterName:   o.Carbon.ReporterName,
		Delay:          time.Duration(o.Carbon.DelayMS) * time.Millisecond,
		ReconnectDelay: time.Duration(o.Carbon.ReconnectDelayMS) * time.Millisecond,
	}
}

func (o *Options) PrometheusConfig() prometheus.Config {
	return prometheus.Config{
		HostAndPort:  o.Prometheus.HostAndPort,
		Prefix:       o.Prometheus.Prefix,
		ReporterName: o.Prometheus.ReporterName,
	}
}

func (o *Options) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(o.Log.Level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if o.Log.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("METRICSD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}
