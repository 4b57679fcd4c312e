package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat widget.
type ChatMetrics struct {
	turnsTotal       *prometheus.CounterVec
	intentsTotal     *prometheus.CounterVec
	escalationsTotal prometheus.Counter
	turnLatency      prometheus.Histogram
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mzansiprolife",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total chat turns processed by the flow engine",
		}, []string{"flow", "source"}),
		intentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mzansiprolife",
			Subsystem: "chat",
			Name:      "intents_total",
			Help:      "Total detected intents from free-text input",
		}, []string{"intent"}),
		escalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mzansiprolife",
			Subsystem: "chat",
			Name:      "escalations_total",
			Help:      "Total conversations escalated to a human",
		}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mzansiprolife",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one engine turn including persistence",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.intentsTotal, m.escalationsTotal, m.turnLatency)
	return m
}

// ObserveTurn counts one processed turn. source is "text" or "option".
func (m *ChatMetrics) ObserveTurn(flow, source string) {
	if m == nil {
		return
	}
	if flow == "" {
		flow = "menu"
	}
	m.turnsTotal.WithLabelValues(flow, source).Inc()
}

func (m *ChatMetrics) ObserveIntent(intent string) {
	if m == nil {
		return
	}
	m.intentsTotal.WithLabelValues(intent).Inc()
}

func (m *ChatMetrics) ObserveEscalation() {
	if m == nil {
		return
	}
	m.escalationsTotal.Inc()
}

func (m *ChatMetrics) ObserveTurnLatency(seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.Observe(seconds)
}

// HTTPMetrics exposes request counters and latency for the public API.
type HTTPMetrics struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mzansiprolife",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mzansiprolife",
			Subsystem: "http",
			Name:      "request_latency_seconds",
			Help:      "Latency of HTTP request handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency)
	return m
}

func (m *HTTPMetrics) ObserveRequest(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, status).Inc()
	m.requestLatency.WithLabelValues(method).Observe(seconds)
}
