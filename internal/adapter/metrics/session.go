package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics tracks linking attempts and the live client registry.
type SessionMetrics struct {
	SessionsCreated *prometheus.CounterVec
	Attempts        *prometheus.CounterVec
	Links           *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	Evictions       prometheus.Counter
	LiveClients     prometheus.Gauge
	TimeToResult    *prometheus.HistogramVec
}

// NewSessionMetrics creates and registers session metrics on the given registry.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		SessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Total number of session directories created, by mode.",
		}, []string{"mode"}),
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "attempts_total",
			Help:      "Total number of pairing code and QR requests, by mode and result.",
		}, []string{"mode", "result"}),
		Links: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "links_total",
			Help:      "Total number of devices linked, by mode.",
		}, []string{"mode"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "notifications_total",
			Help:      "Total number of session ID direct messages, by result.",
		}, []string{"result"}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "evictions_total",
			Help:      "Total number of live clients closed after exceeding the session TTL.",
		}),
		LiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "live_clients",
			Help:      "Number of WhatsApp clients currently held open.",
		}),
		TimeToResult: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "time_to_result_seconds",
			Help:      "Time from request to pairing code or first QR payload, in seconds.",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 20, 30, 60},
		}, []string{"mode"}),
	}

	reg.MustRegister(m.SessionsCreated, m.Attempts, m.Links, m.Notifications, m.Evictions, m.LiveClients, m.TimeToResult)
	return m
}
