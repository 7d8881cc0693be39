package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Notification("message", OutcomeDispatched)
	m.Reminder("payment")
	m.RealtimeEvent("notifications", "INSERT")
	m.RealtimeStatus("connected")
	m.QueueDepth(3)
	if m.Registry() != nil {
		t.Error("nil Metrics should have no registry")
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func TestCountersAndGauge(t *testing.T) {
	m := New()
	m.Notification("payment_reminder", OutcomeDispatched)
	m.Notification("payment_reminder", OutcomeDispatched)
	m.Notification("payment_reminder", OutcomeSuppressed)
	m.Reminder("assignment")
	m.QueueDepth(4)

	out := scrape(t, m)
	for _, want := range []string{
		`deskalert_notifications_total{category="payment_reminder",outcome="dispatched"} 2`,
		`deskalert_notifications_total{category="payment_reminder",outcome="suppressed"} 1`,
		`deskalert_reminders_total{kind="assignment"} 1`,
		`deskalert_queue_depth 4`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q:\n%s", want, out)
		}
	}
}

func TestUnknownCategoriesShareOneSeries(t *testing.T) {
	m := New()
	m.Notification("rating_received", OutcomeDispatched)
	m.Notification("attendance_marked", OutcomeDispatched)
	m.Notification("message", OutcomeDispatched)

	out := scrape(t, m)
	if strings.Contains(out, "rating_received") || strings.Contains(out, "attendance_marked") {
		t.Errorf("server-supplied categories leaked into labels:\n%s", out)
	}
	for _, want := range []string{
		`deskalert_notifications_total{category="other",outcome="dispatched"} 2`,
		`deskalert_notifications_total{category="message",outcome="dispatched"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("scrape missing %q:\n%s", want, out)
		}
	}
}
