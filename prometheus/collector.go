package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"

	"github.com/ygrebnov/go-metrics"
)

var summaryQuantiles = []float64{0.5, 0.75, 0.95, 0.98, 0.99, 0.999, 0.9999, 0.99999}

const selfSubsystem = "reporter"

// collector exposes every metric of a registry as const Prometheus metrics.
// It describes nothing up front, so the Prometheus registry treats it as
// unchecked and accepts whatever names the metrics registry holds at scrape time.
// Name clashes are resolved here instead: the first metric to claim a family
// name keeps it and later ones are skipped.
type collector struct {
	registry  metrics.Registry
	namespace string
	logger    *zap.Logger

	exportedDesc *prometheus.Desc
	reserved     []string
}

func newCollector(registry metrics.Registry, namespace string, logger *zap.Logger) *collector {
	exported := prometheus.BuildFQName(namespace, selfSubsystem, "metrics")
	return &collector{
		registry:  registry,
		namespace: namespace,
		logger:    logger,
		exportedDesc: prometheus.NewDesc(
			exported,
			"Number of registry metrics exported by the last scrape.",
			nil, nil,
		),
		reserved: []string{exported, prometheus.BuildFQName(namespace, selfSubsystem, "scrapes_total")},
	}
}

func (c *collector) Describe(chan<- *prometheus.Desc) {}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	taken := make(map[string]string, len(c.reserved))
	for _, n := range c.reserved {
		taken[n] = selfSubsystem
	}

	exported := 0
	for _, name := range c.registry.Names() {
		m, cfg, err := c.lookup(name)
		if err != nil {
			c.logger.Warn("skipping metric", zap.String("metric", name), zap.Error(err))
			continue
		}
		s := m.Export()
		fqName := metricName(c.namespace, name)
		families := familyNames(fqName, s.Kind())
		if family, clash := firstTaken(taken, families); clash {
			c.logger.Warn("skipping metric",
				zap.String("metric", name),
				zap.String("family", family),
				zap.String("owner", taken[family]),
				zap.Error(ErrNameCollision),
			)
			continue
		}
		out, err := c.convert(fqName, name, s, cfg)
		if err != nil {
			c.logger.Warn("skipping metric", zap.String("metric", name), zap.Error(err))
			continue
		}
		for _, f := range families {
			taken[f] = name
		}
		for _, pm := range out {
			ch <- pm
		}
		exported++
	}
	ch <- prometheus.MustNewConstMetric(c.exportedDesc, prometheus.GaugeValue, float64(exported))
}

// familyNames lists every family name a snapshot of kind k occupies once
// exported under fqName, including the suffixes a summary reserves.
func familyNames(fqName string, k metrics.Kind) []string {
	switch k {
	case metrics.KindMeter:
		return []string{fqName + "_total", fqName + "_rate"}
	case metrics.KindHistogram:
		return []string{fqName, fqName + "_count", fqName + "_sum"}
	default:
		return []string{fqName}
	}
}

func firstTaken(taken map[string]string, families []string) (string, bool) {
	for _, f := range families {
		if _, ok := taken[f]; ok {
			return f, true
		}
	}
	return "", false
}

func (c *collector) lookup(name string) (metrics.Metric, metrics.InstrumentConfig, error) {
	if mr, ok := c.registry.(metrics.MetaRegistry); ok {
		return mr.GetWithMeta(name)
	}
	m, err := c.registry.Get(name)
	return m, metrics.InstrumentConfig{}, err
}

func (c *collector) convert(fqName, name string, s metrics.Snapshot, cfg metrics.InstrumentConfig) ([]prometheus.Metric, error) {
	help := cfg.Description
	if help == "" {
		help = fmt.Sprintf("%s %q exported from the metrics registry.", s.Kind(), name)
	}

	switch v := s.(type) {
	case metrics.CounterSnapshot:
		pm, err := prometheus.NewConstMetric(
			prometheus.NewDesc(fqName, help, nil, nil), prometheus.CounterValue, float64(v.Value))
		return []prometheus.Metric{pm}, err
	case metrics.GaugeSnapshot:
		pm, err := prometheus.NewConstMetric(
			prometheus.NewDesc(fqName, help, nil, nil), prometheus.GaugeValue, v.Value)
		return []prometheus.Metric{pm}, err
	case metrics.MeterSnapshot:
		return c.convertMeter(fqName, help, v)
	case *metrics.HistogramSnapshot:
		quantiles := make(map[float64]float64, len(summaryQuantiles))
		for _, q := range summaryQuantiles {
			pv, err := v.Percentile(q * 100)
			if err != nil {
				return nil, err
			}
			quantiles[q] = float64(pv)
		}
		count := v.Count()
		pm, err := prometheus.NewConstSummary(
			prometheus.NewDesc(fqName, help, nil, nil),
			uint64(count), v.Mean()*float64(count), quantiles,
		)
		return []prometheus.Metric{pm}, err
	default:
		return nil, fmt.Errorf("unsupported snapshot %T", s)
	}
}

func (c *collector) convertMeter(fqName, help string, v metrics.MeterSnapshot) ([]prometheus.Metric, error) {
	total, err := prometheus.NewConstMetric(
		prometheus.NewDesc(fqName+"_total", help, nil, nil), prometheus.CounterValue, float64(v.Count))
	if err != nil {
		return nil, err
	}
	rateDesc := prometheus.NewDesc(fqName+"_rate", help+" Events per second.", []string{"window"}, nil)
	out := []prometheus.Metric{total}
	for _, w := range []struct {
		label string
		value float64
	}{
		{"m1", v.M1()},
		{"m5", v.M5()},
		{"m15", v.M15()},
		{"mean", v.Mean},
	} {
		pm, err := prometheus.NewConstMetric(rateDesc, prometheus.GaugeValue, w.value, w.label)
		if err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, nil
}

// namespaceOf maps a reporter prefix onto a valid metric name prefix. A
// leading digit gets an underscore in front instead of being replaced.
func namespaceOf(prefix string) string {
	if prefix != "" && prefix[0] >= '0' && prefix[0] <= '9' {
		prefix = "_" + prefix
	}
	return model.EscapeName(prefix, model.UnderscoreEscaping)
}

// metricName escapes a registry name under namespace. Digits right after the
// namespace separator are kept.
func metricName(namespace, name string) string {
	return model.EscapeName(namespace+"_"+name, model.UnderscoreEscaping)
}
