package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "ontrakk"
	Subsystem = "api"
)

type Instrumentation struct {
	// counters
	CounterRequests   *prometheus.CounterVec
	CounterBackupOps  *prometheus.CounterVec
	CounterMigrations *prometheus.CounterVec
	CounterStatsCache *prometheus.CounterVec

	// gauges
	GaugeRequests prometheus.Gauge

	// histograms
	HistRequestDuration prometheus.Histogram
}

// SetupRegistry returns a registry with Go build info, runtime and process collectors.
func SetupRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewTestInstrumentation() *Instrumentation {
	return NewInstrumentation(prometheus.NewRegistry())
}

func NewInstrumentation(reg prometheus.Registerer) *Instrumentation {
	factory := promauto.With(reg)

	return &Instrumentation{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "requests_total",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		CounterBackupOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "backup_operations_total",
			Help:      "Backup operations by kind and outcome",
		}, []string{"op", "result"}),
		CounterMigrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "bundle_migrations_total",
			Help:      "Backup bundles migrated, by source version",
		}, []string{"from"}),
		CounterStatsCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "stats_cache_total",
			Help:      "Stats cache lookups by result",
		}, []string{"result"}),
		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "current_requests",
			Help:      "Current number of requests served",
		}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "request_duration_seconds",
			Help:      "Request duration",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// The helpers below accept a nil receiver so services can run without metrics.

func (i *Instrumentation) BackupOp(op, result string) {
	if i == nil {
		return
	}
	i.CounterBackupOps.WithLabelValues(op, result).Inc()
}

func (i *Instrumentation) Migration(from string) {
	if i == nil {
		return
	}
	i.CounterMigrations.WithLabelValues(from).Inc()
}

func (i *Instrumentation) StatsCache(hit bool) {
	if i == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	i.CounterStatsCache.WithLabelValues(result).Inc()
}
