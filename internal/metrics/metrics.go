// Package metrics holds the Prometheus collectors for the dispatch
// pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhle/deskalert/internal/model"
)

// CategoryOther is the label for categories the daemon does not know.
const CategoryOther = "other"

var knownCategories = map[string]bool{
	string(model.CategoryAssignmentReminder): true,
	string(model.CategoryEmergencyTask):      true,
	string(model.CategoryPaymentReminder):    true,
	string(model.CategoryDailySummary):       true,
	string(model.CategoryMeetingReminder):    true,
	string(model.CategoryMessage):            true,
}

// CategoryLabel bounds the category label. Realtime rows carry whatever
// type the server sent, so unknown values collapse into CategoryOther.
func CategoryLabel(category string) string {
	if knownCategories[category] {
		return category
	}
	return CategoryOther
}

// Notification outcomes.
const (
	OutcomeDispatched   = "dispatched"
	OutcomeDeduplicated = "deduplicated"
	OutcomeSuppressed   = "suppressed"
	OutcomeDenied       = "denied"
	OutcomeDuplicate    = "duplicate"
	OutcomeFailed       = "failed"
)

// Metrics bundles every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	notifications  *prometheus.CounterVec
	reminders      *prometheus.CounterVec
	realtimeEvents *prometheus.CounterVec
	realtimeStatus *prometheus.CounterVec
	queueDepth     prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskalert_notifications_total",
				Help: "Notification events handled by the queue, by outcome",
			},
			[]string{"category", "outcome"},
		),
		reminders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskalert_reminders_total",
				Help: "Reminders emitted by the scanners",
			},
			[]string{"kind"},
		),
		realtimeEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskalert_realtime_events_total",
				Help: "Row change events received from the realtime feed",
			},
			[]string{"table", "event"},
		),
		realtimeStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskalert_realtime_status_total",
				Help: "Realtime subscription status transitions",
			},
			[]string{"status"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "deskalert_queue_depth",
				Help: "Events waiting in the notification queue",
			},
		),
	}

	m.registry.MustRegister(
		m.notifications,
		m.reminders,
		m.realtimeEvents,
		m.realtimeStatus,
		m.queueDepth,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Notification counts one queue outcome for category.
func (m *Metrics) Notification(category, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(CategoryLabel(category), outcome).Inc()
}

// Reminder counts one emitted reminder of kind.
func (m *Metrics) Reminder(kind string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(kind).Inc()
}

// RealtimeEvent counts one change event.
func (m *Metrics) RealtimeEvent(table, event string) {
	if m == nil {
		return
	}
	m.realtimeEvents.WithLabelValues(table, event).Inc()
}

// RealtimeStatus counts one subscription status transition.
func (m *Metrics) RealtimeStatus(status string) {
	if m == nil {
		return
	}
	m.realtimeStatus.WithLabelValues(status).Inc()
}

// QueueDepth sets the current queue length.
func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
