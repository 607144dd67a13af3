package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	polls           *prometheus.CounterVec
	reports         *prometheus.CounterVec
	queueRejections prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		polls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boardlink",
			Subsystem: "client",
			Name:      "polls_total",
			Help:      "Coefficient poll completions by result.",
		}, []string{"result"}),
		reports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boardlink",
			Subsystem: "client",
			Name:      "reports_total",
			Help:      "Telemetry report completions by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		queueRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "boardlink",
			Subsystem: "client",
			Name:      "queue_rejections_total",
			Help:      "Submissions rejected by the request queue.",
		}),
	}
}
