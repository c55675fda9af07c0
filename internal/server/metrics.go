package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nexusai/internal/apperr"
)

var (
	// httpRequests counts handled requests.
	// Labels: method, route, status
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexusai",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests handled",
	}, []string{"method", "route", "status"})

	// httpLatency measures request handling time, streaming included.
	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nexusai",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "route"})

	// chatTurns counts submitted messages.
	// Labels: provider, outcome (ok, data or the error kind)
	chatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexusai",
		Subsystem: "chat",
		Name:      "turns_total",
		Help:      "Total chat turns by provider and outcome",
	}, []string{"provider", "outcome"})

	// accountEvents counts sign-ups and logins.
	// Labels: action (signup, login), outcome (ok or the error kind)
	accountEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexusai",
		Subsystem: "account",
		Name:      "events_total",
		Help:      "Total sign-up and login attempts by outcome",
	}, []string{"action", "outcome"})

	// sessionEvents counts lifecycle events emitted by chat sessions.
	// Labels: event, type
	sessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexusai",
		Subsystem: "chat",
		Name:      "events_total",
		Help:      "Total chat session events",
	}, []string{"event", "type"})

	// activeSessions is the number of live chat sessions, set on every scrape.
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nexusai",
		Subsystem: "chat",
		Name:      "active_sessions",
		Help:      "Chat sessions currently open",
	})
)

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := apperr.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
