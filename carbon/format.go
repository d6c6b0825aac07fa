package carbon

import (
	"fmt"
	"strconv"

	"github.com/ygrebnov/go-metrics"
)

var histogramPercentiles = []struct {
	field string
	p     float64
}{
	{"p50", 50},
	{"p75", 75},
	{"p95", 95},
	{"p98", 98},
	{"p99", 99},
	{"p999", 99.9},
	{"p9999", 99.99},
	{"p99999", 99.999},
}

// Format renders one snapshot as Carbon plaintext lines, each terminated by
// "\n" and stamped with ts (unix milliseconds).
//
// Counters and gauges produce a single bare line. Meters produce count, m1,
// m5, m15 and mean. Histograms produce count, max, min and p50 through
// p99999; mean and sum are not emitted.
func Format(prefix, name string, s metrics.Snapshot, ts int64) ([]string, error) {
	base := name
	if prefix != "" {
		base = prefix + "." + name
	}

	switch v := s.(type) {
	case metrics.CounterSnapshot:
		return []string{line(base, strconv.FormatInt(v.Value, 10), ts)}, nil
	case metrics.GaugeSnapshot:
		return []string{line(base, formatFloat(v.Value), ts)}, nil
	case metrics.MeterSnapshot:
		return []string{
			line(base+".count", strconv.FormatInt(v.Count, 10), ts),
			line(base+".m1", formatFloat(v.M1()), ts),
			line(base+".m5", formatFloat(v.M5()), ts),
			line(base+".m15", formatFloat(v.M15()), ts),
			line(base+".mean", formatFloat(v.Mean), ts),
		}, nil
	case *metrics.HistogramSnapshot:
		lines := make([]string, 0, 3+len(histogramPercentiles))
		lines = append(lines,
			line(base+".count", strconv.FormatInt(v.Count(), 10), ts),
			line(base+".max", strconv.FormatInt(v.Max(), 10), ts),
			line(base+".min", strconv.FormatInt(v.Min(), 10), ts),
		)
		for _, hp := range histogramPercentiles {
			pv, err := v.Percentile(hp.p)
			if err != nil {
				return nil, err
			}
			lines = append(lines, line(base+"."+hp.field, strconv.FormatInt(pv, 10), ts))
		}
		return lines, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedSnapshot, s)
	}
}

func line(path, value string, ts int64) string {
	return path + " " + value + " " + strconv.FormatInt(ts, 10) + "\n"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
