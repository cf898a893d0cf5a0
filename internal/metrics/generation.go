package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Generation and classification backend metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of language model requests",
		},
		[]string{"operation", "model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_request_duration_seconds",
			Help:      "Language model request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"operation", "model"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_tokens_total",
			Help:      "Total language model tokens consumed",
		},
		[]string{"operation", "model", "type"},
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answer requests by outcome",
		},
		[]string{"outcome"}, // answered / no_products / timeout / unavailable / rate_limited / quota
	)

	ChatIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_intents_total",
			Help:      "Routed chat messages by intent",
		},
		[]string{"intent"},
	)
)

var registerGeneration sync.Once

// RegisterGenerationMetrics registers language model metrics. Must be called once from main.
func RegisterGenerationMetrics() {
	registerGeneration.Do(func() {
		prometheus.MustRegister(
			GenerationRequestsTotal,
			GenerationRequestDuration,
			GenerationTokensTotal,
			AnswersTotal,
			ChatIntentsTotal,
		)
	})
}
