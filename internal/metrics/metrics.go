// AngelaMos | 2026
// metrics.go

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "copystudio"

// Recorder is what services depend on. Collector is the Prometheus
// implementation and Noop is used in tests and when metrics are disabled.
type Recorder interface {
	RecordGeneration(outcome string)
	ObserveModelLatency(outcome string, d time.Duration)
	RecordCreditMovement(kind string, credits int)
	RecordWebhook(outcome string)
	RecordRefundFailure()
}

type Collector struct {
	generations     *prometheus.CounterVec
	modelLatency    *prometheus.HistogramVec
	creditMovements *prometheus.CounterVec
	webhooks        *prometheus.CounterVec
	refundFailures  prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation requests by final outcome.",
		}, []string{"outcome"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Latency of completion model calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}, []string{"outcome"}),
		creditMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credit_movements_total",
			Help:      "Absolute credits moved through the ledger by entry kind.",
		}, []string{"kind"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhooks_total",
			Help:      "Payment webhook deliveries by outcome.",
		}, []string{"outcome"}),
		refundFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refund_failures_total",
			Help:      "Compensating refunds that could not be written.",
		}),
	}

	reg.MustRegister(
		c.generations,
		c.modelLatency,
		c.creditMovements,
		c.webhooks,
		c.refundFailures,
	)

	return c
}

func (c *Collector) RecordGeneration(outcome string) {
	c.generations.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveModelLatency(outcome string, d time.Duration) {
	c.modelLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

func (c *Collector) RecordCreditMovement(kind string, credits int) {
	if credits < 0 {
		credits = -credits
	}
	c.creditMovements.WithLabelValues(kind).Add(float64(credits))
}

func (c *Collector) RecordWebhook(outcome string) {
	c.webhooks.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRefundFailure() {
	c.refundFailures.Inc()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type Noop struct{}

func (Noop) RecordGeneration(string) {}
func (Noop) ObserveModelLatency(string, time.Duration) {}
func (Noop) RecordCreditMovement(string, int) {}
func (Noop) RecordWebhook(string) {}
func (Noop) RecordRefundFailure() {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Noop{}
)
