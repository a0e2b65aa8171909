package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TrackerMetrics contains Prometheus metrics for the location tracking service.
type TrackerMetrics struct {
	MessagesTotal          *prometheus.CounterVec
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	SweepRunsTotal         *prometheus.CounterVec
	BroadcastsTotal        prometheus.Counter
	BroadcastsDropped      prometheus.Counter
	SweepDeletedTotal      prometheus.Counter
	ConnectionsActive      prometheus.Gauge
	SubjectsActive         prometheus.Gauge
}

// NewTrackerMetrics creates and registers tracker service metrics.
func NewTrackerMetrics(namespace string) *TrackerMetrics {
	m := &TrackerMetrics{
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "messages_total",
				Help:      "Total number of inbound messages handled",
			},
			[]string{"kind", "status"}, // status: success, error
		),
		ConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "connections_active",
				Help:      "Number of currently open client connections",
			},
		),
		SubjectsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "presence",
				Name:      "subjects_active",
				Help:      "Number of subjects with at least one reporting connection",
			},
		),
		BroadcastsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "broadcast",
				Name:      "events_total",
				Help:      "Total number of position events published to observers",
			},
		),
		BroadcastsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "broadcast",
				Name:      "events_dropped_total",
				Help:      "Total number of events dropped because an observer was lagging",
			},
		),
		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of location store operations",
			},
			[]string{"operation", "status"}, // operation: append, query, delete
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Duration of location store operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		SweepRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sweeper",
				Name:      "runs_total",
				Help:      "Total number of retention sweep runs",
			},
			[]string{"status"}, // status: success, error
		),
		SweepDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sweeper",
				Name:      "deleted_rows_total",
				Help:      "Total number of location samples deleted by retention sweeps",
			},
		),
	}

	MustRegister(
		m.MessagesTotal,
		m.ConnectionsActive,
		m.SubjectsActive,
		m.BroadcastsTotal,
		m.BroadcastsDropped,
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
		m.SweepRunsTotal,
		m.SweepDeletedTotal,
	)

	return m
}
