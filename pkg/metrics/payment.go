package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

const paymentSubsystem = "paybridge"

var paymentsInitiated = &Metric{
	ID:          "paymentsInitiated",
	Name:        "payments_initiated_total",
	Description: "Payment initiation attempts, partitioned by provider and result.",
	Type:        MetricTypeCounterVec,
	Args:        []string{"provider", "result"},
}

var webhooksProcessed = &Metric{
	ID:          "webhooksProcessed",
	Name:        "webhooks_processed_total",
	Description: "Inbound provider webhooks, partitioned by provider and outcome.",
	Type:        MetricTypeCounterVec,
	Args:        []string{"provider", "outcome"},
}

var providerRequestDur = &Metric{
	ID:          "providerRequestDur",
	Name:        "provider_request_dur_ms",
	Description: "Latency of outbound provider API calls in milliseconds.",
	Type:        MetricTypeHistogramVec,
	Args:        []string{"provider", "code"},
}

var notificationDeadLetters = &Metric{
	ID:          "notificationDeadLetters",
	Name:        "notification_dead_letters_total",
	Description: "Order notifications abandoned after exhausting retries.",
	Type:        MetricTypeCounter,
}

var stalePendingPayments = &Metric{
	ID:          "stalePendingPayments",
	Name:        "stale_pending_payments",
	Description: "Payments still pending past the reconcile threshold at the last sweep.",
	Type:        MetricTypeGauge,
}

// PaymentMetrics groups the business metrics of the payment pipeline. A nil
// *PaymentMetrics is valid and records nothing.
type PaymentMetrics struct {
	initiated    *prometheus.CounterVec
	webhooks     *prometheus.CounterVec
	providerDur  *prometheus.HistogramVec
	deadLetters  prometheus.Counter
	stalePending prometheus.Gauge
}

func NewPaymentMetrics(reg prometheus.Registerer) (*PaymentMetrics, error) {
	m := &PaymentMetrics{}
	for _, def := range []*Metric{paymentsInitiated, webhooksProcessed, providerRequestDur, notificationDeadLetters, stalePendingPayments} {
		c := NewMetric(def, paymentSubsystem)
		if err := reg.Register(c); err != nil {
			return nil, err
		}
		switch def {
		case paymentsInitiated:
			m.initiated = c.(*prometheus.CounterVec)
		case webhooksProcessed:
			m.webhooks = c.(*prometheus.CounterVec)
		case providerRequestDur:
			m.providerDur = c.(*prometheus.HistogramVec)
		case notificationDeadLetters:
			m.deadLetters = c.(prometheus.Counter)
		case stalePendingPayments:
			m.stalePending = c.(prometheus.Gauge)
		}
	}
	return m, nil
}

func (m *PaymentMetrics) ObserveInitiation(provider, result string) {
	if m == nil {
		return
	}
	m.initiated.WithLabelValues(provider, result).Inc()
}

func (m *PaymentMetrics) ObserveWebhook(provider, outcome string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(provider, outcome).Inc()
}

// ObserveProviderRequest records one HTTP attempt; code 0 means a transport error.
func (m *PaymentMetrics) ObserveProviderRequest(provider string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerDur.WithLabelValues(provider, strconv.Itoa(code)).Observe(float64(elapsed.Milliseconds()))
}

func (m *PaymentMetrics) IncDeadLetter() {
	if m == nil {
		return
	}
	m.deadLetters.Inc()
}

func (m *PaymentMetrics) SetStalePending(n int) {
	if m == nil {
		return
	}
	m.stalePending.Set(float64(n))
}

func newDefaultPaymentMetrics() (*PaymentMetrics, error) {
	return NewPaymentMetrics(prometheus.DefaultRegisterer)
}

var Module = fx.Options(
	fx.Provide(newDefaultPaymentMetrics),
)
