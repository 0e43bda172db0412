// Package metrics holds the process prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	ingestChunks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docqa_ingest_chunks_total",
		Help: "Chunks processed by ingestion runs, by result.",
	}, []string{"result"})

	ingestRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docqa_ingest_runs_total",
		Help: "Finished ingestion runs, by final state.",
	}, []string{"state"})

	webhookEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docqa_webhook_events_total",
		Help: "Webhook events handled, by outcome.",
	}, []string{"outcome"})

	answerDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "docqa_answer_duration_seconds",
		Help:    "Time spent composing one answer.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
	})

	messagingFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docqa_messaging_failures_total",
		Help: "Failed messaging sends, by operation.",
	}, []string{"op"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ingestChunks,
		ingestRuns,
		webhookEvents,
		answerDuration,
		messagingFailures,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func IngestChunks(succeeded, failed int) {
	ingestChunks.WithLabelValues("succeeded").Add(float64(succeeded))
	ingestChunks.WithLabelValues("failed").Add(float64(failed))
}

func IngestRun(state string) {
	ingestRuns.WithLabelValues(state).Inc()
}

func WebhookEvent(outcome string) {
	webhookEvents.WithLabelValues(outcome).Inc()
}

func AnswerDuration(d time.Duration) {
	answerDuration.Observe(d.Seconds())
}

func MessagingFailure(op string) {
	messagingFailures.WithLabelValues(op).Inc()
}
