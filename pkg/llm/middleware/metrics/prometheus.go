package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reprocessTotal  *prometheus.CounterVec
}

// NewPrometheusRecorder creates a Prometheus-based metrics recorder registered
// on the default registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_llm_requests_total",
				Help: "Total number of gateway requests by model, bot, and status",
			},
			[]string{"model", "bot_id", "status", "error_type"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_llm_tokens_total",
				Help: "Total number of tokens used in gateway requests",
			},
			[]string{"model", "bot_id", "type"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chat_llm_request_duration_seconds",
				Help:    "Duration of gateway requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "bot_id"},
		),
		reprocessTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_reprocessing_cycles_total",
				Help: "Total number of reprocessing cycles by bot and outcome",
			},
			[]string{"bot_id", "outcome"},
		),
	}
}

// ObserveRequest implements Recorder.
func (p *PrometheusRecorder) ObserveRequest(model, botID string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}

	p.requestsTotal.WithLabelValues(model, botID, status, errorType).Inc()
	if success {
		p.tokensTotal.WithLabelValues(model, botID, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, botID, "completion").Add(float64(completionTokens))
	}
	p.requestDuration.WithLabelValues(model, botID).Observe(duration.Seconds())
}

// IncReprocessing counts a reprocessing cycle outcome ("completed" or "failed").
func (p *PrometheusRecorder) IncReprocessing(botID, outcome string) {
	p.reprocessTotal.WithLabelValues(botID, outcome).Inc()
}
