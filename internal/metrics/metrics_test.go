package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestCountersIncrement(t *testing.T) {
	before := counterValue(t, webhookEvents.WithLabelValues("skipped"))
	WebhookEvent("skipped")
	require.Equal(t, before+1, counterValue(t, webhookEvents.WithLabelValues("skipped")))

	beforeOK := counterValue(t, ingestChunks.WithLabelValues("succeeded"))
	beforeFailed := counterValue(t, ingestChunks.WithLabelValues("failed"))
	IngestChunks(3, 1)
	require.Equal(t, beforeOK+3, counterValue(t, ingestChunks.WithLabelValues("succeeded")))
	require.Equal(t, beforeFailed+1, counterValue(t, ingestChunks.WithLabelValues("failed")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	AnswerDuration(150 * time.Millisecond)
	IngestRun("done")
	MessagingFailure("reply")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "docqa_answer_duration_seconds_bucket")
	require.Contains(t, string(body), `docqa_ingest_runs_total{state="done"}`)
	require.Contains(t, string(body), `docqa_messaging_failures_total{op="reply"}`)
}
