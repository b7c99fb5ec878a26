package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricType selects the collector NewMetric builds.
type MetricType string

const (
	MetricTypeCounter      MetricType = "counter"
	MetricTypeCounterVec   MetricType = "counter_vec"
	MetricTypeGauge        MetricType = "gauge"
	MetricTypeHistogramVec MetricType = "histogram_vec"
	MetricTypeSummaryVec   MetricType = "summary_vec"
)

// LatencyBuckets in milliseconds. Mobile-money APIs answer within a few
// seconds; the tail is past the default provider client timeout.
var LatencyBuckets = []float64{
	25, 50, 100, 250, 500,
	750, 1000, 1500, 2000, 3000,
	5000, 7500, 10000, 15000, 20000, 30000,
}

// Metric describes one collector.
type Metric struct {
	ID          string
	Name        string
	Description string
	Type        MetricType
	Args        []string
}

// NewMetric builds the collector for m, or nil for an unknown type.
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Type {
	case MetricTypeCounter:
		return prometheus.NewCounter(prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description})
	case MetricTypeCounterVec:
		return prometheus.NewCounterVec(prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	case MetricTypeGauge:
		return prometheus.NewGauge(prometheus.GaugeOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description})
	case MetricTypeHistogramVec:
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   LatencyBuckets,
		}, m.Args)
	case MetricTypeSummaryVec:
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	}
	return nil
}
