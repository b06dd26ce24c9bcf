package index

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the set of Prometheus collectors this package registers,
// grounded on the pack's own use of client_golang for per-component gauges
// and histograms (drpcorg-chotki/index_manager.go registers a comparable
// commits/errors/priority family). Callers own registration; NewMetrics
// only constructs the collectors.
type Metrics struct {
	CommitsTotal        *prometheus.CounterVec
	CommitDuration       *prometheus.HistogramVec
	WriteErrorsTotal     *prometheus.CounterVec
	PriorityState        *prometheus.GaugeVec
	BackupDuration       *prometheus.HistogramVec
	BackupFilesCopied    *prometheus.CounterVec
}

// NewMetrics constructs the collector family under the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CommitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writer_commits_total",
			Help:      "Number of commits applied per index.",
		}, []string{"index"}),
		CommitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "writer_commit_duration_seconds",
			Help:      "Latency of Writer.Apply commits.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"index"}),
		WriteErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_errors_total",
			Help:      "Number of failed commits per index.",
		}, []string{"index"}),
		PriorityState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "priority_state",
			Help:      "Current indexing priority, as its numeric Priority value.",
		}, []string{"index"}),
		BackupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backup_duration_seconds",
			Help:      "Latency of per-index Backup calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"index"}),
		BackupFilesCopied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backup_files_copied_total",
			Help:      "Number of segment files copied by Backup.",
		}, []string{"index"}),
	}
}

// MustRegister registers every collector with reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.CommitsTotal,
		m.CommitDuration,
		m.WriteErrorsTotal,
		m.PriorityState,
		m.BackupDuration,
		m.BackupFilesCopied,
	)
}

// Observe records the outcome of one Writer.Apply call.
func (m *Metrics) Observe(indexName string, seconds float64, err error) {
	m.CommitDuration.WithLabelValues(indexName).Observe(seconds)
	if err != nil {
		m.WriteErrorsTotal.WithLabelValues(indexName).Inc()
		return
	}
	m.CommitsTotal.WithLabelValues(indexName).Inc()
}

// ObservePriority reflects idx's current priority into the gauge.
func (m *Metrics) ObservePriority(indexName string, p Priority) {
	m.PriorityState.WithLabelValues(indexName).Set(float64(p))
}

// ObserveBackup records the outcome of one Backup call.
func (m *Metrics) ObserveBackup(indexName string, seconds float64, filesCopied int) {
	m.BackupDuration.WithLabelValues(indexName).Observe(seconds)
	m.BackupFilesCopied.WithLabelValues(indexName).Add(float64(filesCopied))
}
