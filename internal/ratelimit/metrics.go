package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trulybot",
	Subsystem: "ratelimit",
	Name:      "rejections_total",
	Help:      "Requests rejected, by counter.",
}, []string{"counter"})
