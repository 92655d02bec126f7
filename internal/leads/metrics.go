package leads

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	persistsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trulybot",
		Subsystem: "leads",
		Name:      "persists_total",
		Help:      "Lead rows written, by action (created, updated).",
	}, []string{"action"})

	dropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trulybot",
		Subsystem: "leads",
		Name:      "drops_total",
		Help:      "Lead jobs dropped before persistence, by reason.",
	}, []string{"reason"})
)

func recordPersist(action string) {
	persistsTotal.WithLabelValues(action).Inc()
}

func recordDrop(reason string) {
	dropsTotal.WithLabelValues(reason).Inc()
}
