package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unfound-os/unfoundfs/pkg/notify"
)

// notifyMetrics is the Prometheus implementation of notify.Metrics.
type notifyMetrics struct {
	triggered prometheus.Counter
	dropped   prometheus.Counter
	pending   prometheus.Gauge
}

// NewNotifyMetrics creates a Prometheus-backed notify.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewNotifyMetrics() notify.Metrics {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}

	return &notifyMetrics{
		triggered: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "unfoundfs_events_triggered_total",
				Help: "Total number of file events appended to the queue",
			},
		),
		dropped: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "unfoundfs_events_dropped_total",
				Help: "Total number of events discarded due to queue overflow",
			},
		),
		pending: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "unfoundfs_events_pending",
				Help: "Number of events currently waiting in the queue",
			},
		),
	}
}

func (m *notifyMetrics) RecordTriggered() {
	m.triggered.Inc()
}

func (m *notifyMetrics) RecordDropped() {
	m.dropped.Inc()
}

func (m *notifyMetrics) RecordPending(count int) {
	m.pending.Set(float64(count))
}
