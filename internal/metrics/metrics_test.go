// AngelaMos | 2026
// metrics_test.go

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGeneration("success")
	c.RecordGeneration("success")
	c.RecordGeneration("model_error")

	assert.InDelta(t, 2, testutil.ToFloat64(c.generations.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.generations.WithLabelValues("model_error")), 0)
}

func TestCollector_CreditMovementsAreAbsolute(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCreditMovement("generation", -1)
	c.RecordCreditMovement("generation", -1)
	c.RecordCreditMovement("purchase", 50)

	assert.InDelta(t, 2, testutil.ToFloat64(c.creditMovements.WithLabelValues("generation")), 0)
	assert.InDelta(t, 50, testutil.ToFloat64(c.creditMovements.WithLabelValues("purchase")), 0)
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordWebhook("credited")
	c.ObserveModelLatency("success", 1500*time.Millisecond)
	c.RecordRefundFailure()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `copystudio_payment_webhooks_total{outcome="credited"} 1`)
	assert.Contains(t, string(body), "copystudio_model_request_duration_seconds_bucket")
	assert.Contains(t, string(body), "copystudio_refund_failures_total 1")
}
