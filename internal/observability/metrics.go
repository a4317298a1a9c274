package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	SessionEvents  *prometheus.CounterVec
	WSMessages     *prometheus.CounterVec
	Turns          *prometheus.CounterVec
	ToolCalls      *prometheus.CounterVec
	BrainErrors    *prometheus.CounterVec
	TurnLatency    prometheus.Histogram

	latency *latencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active chat sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Chat turns by agent mode and outcome.",
		}, []string{"mode", "outcome"}),
		ToolCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		BrainErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "brain_errors_total",
			Help:      "Language model errors by provider and code.",
		}, []string{"provider", "code"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "End-to-end chat turn latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 16000},
		}),
		latency: newLatencyWindow(256),
	}
}

func (m *Metrics) ObserveSessionEvent(event string) {
	m.SessionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

func (m *Metrics) ObserveTurn(mode, outcome string, d time.Duration) {
	m.Turns.WithLabelValues(mode, outcome).Inc()
	m.TurnLatency.Observe(float64(d.Milliseconds()))
	m.latency.observe(StageTurnTotal, durationMS(d))
	m.latency.countTurn(mode, outcome)
}

func (m *Metrics) ObserveToolCall(tool, outcome string) {
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) ObserveBrainError(provider, code string) {
	m.BrainErrors.WithLabelValues(provider, code).Inc()
}

// ObserveStage records one agent stage sample; it satisfies agent.Observer.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.latency.observe(stage, durationMS(d))
}

func (m *Metrics) LatencyReport() LatencyReport {
	return m.latency.report()
}

func (m *Metrics) ResetLatency() {
	m.latency.reset()
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
