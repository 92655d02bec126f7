package embeddings

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trulybot",
			Subsystem: "embeddings",
			Name:      "generations_total",
			Help:      "Total number of embedding generations",
		},
		[]string{"operation", "result"},
	)

	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trulybot",
			Subsystem: "embeddings",
			Name:      "generation_duration_seconds",
			Help:      "Duration of embedding generation in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	textsEmbeddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trulybot",
			Subsystem: "embeddings",
			Name:      "texts_embedded_total",
			Help:      "Total number of texts embedded",
		},
	)
)

// recordGeneration records the outcome of one embedding call.
func recordGeneration(operation string, d time.Duration, textCount int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	generationsTotal.WithLabelValues(operation, result).Inc()
	generationDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err == nil {
		textsEmbeddedTotal.Add(float64(textCount))
	}
}
