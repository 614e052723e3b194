// Package metrics records merge outcomes in a private Prometheus registry.
// A CLI run has no scrape endpoint, so the registry is written to a file
// read by the node exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"ledgermerge/pkg/errors"
)

// Namespace prefixes every metric name
const Namespace = "ledgermerge"

// Partition labels of the merge transaction counter
const (
	PartitionRetained = "retained"
	PartitionUpdated  = "updated"
	PartitionNew      = "new"
	PartitionDropped  = "dropped"
)

// Recorder receives merge outcomes
type Recorder interface {
	ObserveMerge(partitions map[string]int, balance decimal.Decimal, duration time.Duration)
	ObserveFailure(code errors.ErrorCode)
}

// PrometheusRecorder implements Recorder on its own registry
type PrometheusRecorder struct {
	registry *prometheus.Registry

	transactions  *prometheus.CounterVec
	merges        prometheus.Counter
	failures      *prometheus.CounterVec
	balance       prometheus.Gauge
	mergeDuration prometheus.Histogram
}

// NewPrometheusRecorder creates a recorder with every metric registered
func NewPrometheusRecorder() *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "merge_transactions",
				Help:      "Transactions written by merges per partition",
			},
			[]string{"partition"},
		),
		merges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "merge_total",
				Help:      "Total number of completed merges",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "merge_failures_total",
				Help:      "Total number of failed merges per error code",
			},
			[]string{"code"},
		),
		balance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "ledger_balance",
				Help:      "Final balance of the last merged ledger",
			},
		),
		mergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "merge_duration_seconds",
				Help:      "Merge duration including file reads and writes",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
		),
	}

	r.registry.MustRegister(r.transactions, r.merges, r.failures, r.balance, r.mergeDuration)
	return r
}

// ObserveMerge records one successful merge
func (r *PrometheusRecorder) ObserveMerge(partitions map[string]int, balance decimal.Decimal, duration time.Duration) {
	for partition, count := range partitions {
		r.transactions.WithLabelValues(partition).Add(float64(count))
	}
	r.merges.Inc()
	r.balance.Set(balance.InexactFloat64())
	r.mergeDuration.Observe(duration.Seconds())
}

// ObserveFailure records one failed merge
func (r *PrometheusRecorder) ObserveFailure(code errors.ErrorCode) {
	if code == "" {
		code = errors.CodeUnexpectedError
	}
	r.failures.WithLabelValues(string(code)).Inc()
}

// Registry exposes the underlying registry, e.g. for an HTTP handler
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteToTextfile writes every metric to path in the text exposition format
func (r *PrometheusRecorder) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	return nil
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) ObserveMerge(map[string]int, decimal.Decimal, time.Duration) {}
func (NopRecorder) ObserveFailure(errors.ErrorCode)                             {}
