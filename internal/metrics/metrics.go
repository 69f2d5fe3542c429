// Package metrics holds the prometheus collectors for chat turns, bookings,
// notifications and background tasks.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build independent instances.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	chatTurns     *prometheus.CounterVec
	bookings      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	tasksDropped  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		chatTurns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nazborg_chat_turns_total",
				Help: "Chat turns handled, by outcome",
			},
			[]string{"outcome"},
		),
		bookings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nazborg_bookings_total",
				Help: "Booking attempts, by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nazborg_notifications_total",
				Help: "Operator notifications, by outcome",
			},
			[]string{"outcome"},
		),
		tasksDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nazborg_background_tasks_dropped_total",
				Help: "Background tasks dropped because the queue was full or closed",
			},
			[]string{"task"},
		),
	}
	m.Registry.MustRegister(
		m.chatTurns, m.bookings, m.notifications, m.tasksDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ChatTurn(outcome string) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Booking(source, outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) Notification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TaskDropped(task string) {
	if m == nil {
		return
	}
	m.tasksDropped.WithLabelValues(task).Inc()
}
