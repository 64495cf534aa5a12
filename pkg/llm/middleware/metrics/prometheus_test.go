package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"botchat/pkg/events"
)

// One recorder per test binary: promauto registers on the default registry.
//
//nolint:gochecknoglobals
var promRecorder = NewPrometheusRecorder()

func TestPrometheusRecorderReprocessingCounter(t *testing.T) {
	bus := events.NewBus()
	ObserveReprocessing(bus, promRecorder)

	bus.EmitFor(events.ReprocessingCompleted, "counter-bot", map[string]any{"depth": 1})
	bus.EmitFor(events.ReprocessingCompleted, "counter-bot", map[string]any{"depth": 2})
	bus.EmitFor(events.ReprocessingFailed, "counter-bot", map[string]any{"error": "boom"})

	completed := promRecorder.reprocessTotal.WithLabelValues("counter-bot", OutcomeCompleted)
	failed := promRecorder.reprocessTotal.WithLabelValues("counter-bot", OutcomeFailed)
	assert.InDelta(t, 2.0, testutil.ToFloat64(completed), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(failed), 0.001)
}

func TestPrometheusRecorderObserveRequest(t *testing.T) {
	promRecorder.ObserveRequest("test-model", "request-bot", 10, 5, true, "", 20*time.Millisecond)
	promRecorder.ObserveRequest("test-model", "request-bot", 0, 0, false, "timeout", 20*time.Millisecond)

	success := promRecorder.requestsTotal.WithLabelValues("test-model", "request-bot", "success", "")
	failure := promRecorder.requestsTotal.WithLabelValues("test-model", "request-bot", "error", "timeout")
	assert.InDelta(t, 1.0, testutil.ToFloat64(success), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(failure), 0.001)

	prompt := promRecorder.tokensTotal.WithLabelValues("test-model", "request-bot", "prompt")
	assert.InDelta(t, 10.0, testutil.ToFloat64(prompt), 0.001)
}
