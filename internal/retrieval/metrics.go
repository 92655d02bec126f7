package retrieval

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	answersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trulybot",
		Subsystem: "retrieval",
		Name:      "answers_total",
		Help:      "Answers produced, by outcome (grounded, fallback, demo).",
	}, []string{"outcome"})

	answerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trulybot",
		Subsystem: "retrieval",
		Name:      "answer_duration_seconds",
		Help:      "End-to-end answer latency, by outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
)

func recordAnswer(outcome string, d time.Duration) {
	answersTotal.WithLabelValues(outcome).Inc()
	answerDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
