package scanner

import (
	"fmt"
	"math"
	"time"

	"github.com/nhle/deskalert/internal/model"
)

// Days before a payment's due date at which reminders start.
const paymentDueSoonDays = 3

// DefaultMeetingLead is how far ahead of its start a meeting is announced.
const DefaultMeetingLead = 15 * time.Minute

// DefaultDailySummaryHour is the local hour the daily summary is sent.
const DefaultDailySummaryHour = 9

// SummaryAtMidnight requests the daily summary at hour 0. A zero
// Options.DailySummaryHour selects DefaultDailySummaryHour instead.
const SummaryAtMidnight = -1

// SummaryHour converts a configured hour (0-23) into the Options value.
func SummaryHour(hour int) int {
	if hour == 0 {
		return SummaryAtMidnight
	}
	return hour
}

// daysUntil returns the number of calendar days from now to t, both taken
// in loc. Tomorrow is 1, yesterday is -1.
func daysUntil(t, now time.Time, loc *time.Location) int {
	t = t.In(loc)
	now = now.In(loc)
	due := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(due.Sub(today).Hours() / 24)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// AssignmentReminder evaluates the assignment rules in order: emergency,
// due today, due tomorrow, overdue. The first match wins. Every rule shares
// the key assignment-<id>, so only one reminder per assignment fires per
// cooldown window even if the assignment moves between rules.
func AssignmentReminder(a model.Assignment, now time.Time, loc *time.Location) (model.NotificationEvent, bool) {
	if a.IsCompleted() {
		return model.NotificationEvent{}, false
	}

	ev := model.NotificationEvent{
		Category:  model.CategoryAssignmentReminder,
		ActionURL: "/assignments/" + a.ID,
		Variant:   model.ToastProject,
		EntityID:  a.ID,
		Key:       model.NewReminderKey(model.KeyTagAssignment, a.ID),
	}

	if a.Priority == model.AssignmentPriorityEmergency {
		ev.Category = model.CategoryEmergencyTask
		ev.Title = "Emergency Task"
		ev.Message = fmt.Sprintf("%s needs immediate attention", a.Title)
		ev.Priority = model.PriorityCritical
		return ev, true
	}

	if a.DueDate == nil {
		return model.NotificationEvent{}, false
	}

	switch days := daysUntil(*a.DueDate, now, loc); {
	case days == 0:
		ev.Title = "Assignment Due Today"
		ev.Message = fmt.Sprintf("%s is due today", a.Title)
		ev.Priority = model.PriorityCritical
	case days == 1:
		ev.Title = "Assignment Due Tomorrow"
		ev.Message = fmt.Sprintf("%s is due tomorrow", a.Title)
		ev.Priority = model.PriorityNormal
	case days < 0:
		ev.Title = "Assignment Overdue"
		ev.Message = fmt.Sprintf("%s is %s overdue", a.Title, plural(-days, "day"))
		ev.Priority = model.PriorityCritical
	default:
		return model.NotificationEvent{}, false
	}

	return ev, true
}

// PaymentReminder fires for unsettled payments due within three days
// (critical on the due date, high before) and for overdue payments.
func PaymentReminder(p model.Payment, now time.Time, loc *time.Location) (model.NotificationEvent, bool) {
	if p.IsSettled() || p.DueDate == nil {
		return model.NotificationEvent{}, false
	}

	ev := model.NotificationEvent{
		Category:  model.CategoryPaymentReminder,
		ActionURL: "/payments/" + p.ID,
		Variant:   model.ToastPayment,
		EntityID:  p.ID,
		Key:       model.NewReminderKey(model.KeyTagPayment, p.ID),
	}

	label := p.Title
	if p.Amount > 0 {
		label = fmt.Sprintf("%s (%s)", p.Title, formatAmount(p.Amount, p.Currency))
	}

	switch days := daysUntil(*p.DueDate, now, loc); {
	case days == 0:
		ev.Title = "Payment Due Today"
		ev.Message = fmt.Sprintf("%s is due today", label)
		ev.Priority = model.PriorityCritical
	case days > 0 && days <= paymentDueSoonDays:
		ev.Title = "Payment Due Soon"
		ev.Message = fmt.Sprintf("%s is due in %s", label, plural(days, "day"))
		ev.Priority = model.PriorityHigh
	case days < 0:
		ev.Title = "Payment Overdue"
		ev.Message = fmt.Sprintf("%s is %s overdue", label, plural(-days, "day"))
		ev.Priority = model.PriorityCritical
	default:
		return model.NotificationEvent{}, false
	}

	return ev, true
}

func formatAmount(amount float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

// MeetingReminder fires for scheduled meetings that start within lead.
func MeetingReminder(m model.Meeting, now time.Time, lead time.Duration) (model.NotificationEvent, bool) {
	if m.Status != model.MeetingStatusScheduled {
		return model.NotificationEvent{}, false
	}

	until := m.StartsAt.Sub(now)
	if until <= 0 || until > lead {
		return model.NotificationEvent{}, false
	}

	minutes := int(math.Ceil(until.Minutes()))
	msg := fmt.Sprintf("%s starts in %s", m.Title, plural(minutes, "minute"))
	if m.Location != "" {
		msg += " at " + m.Location
	}

	return model.NotificationEvent{
		Category:  model.CategoryMeetingReminder,
		Title:     "Meeting Starting Soon",
		Message:   msg,
		ActionURL: "/meetings/" + m.ID,
		Priority:  model.PriorityHigh,
		Variant:   model.ToastNormal,
		EntityID:  m.ID,
		Key:       model.NewReminderKey(model.KeyTagMeeting, m.ID),
	}, true
}

// Snapshot is the data a scan evaluates.
type Snapshot struct {
	Assignments []model.Assignment
	Payments    []model.Payment
	Meetings    []model.Meeting
}

// DailySummary fires once during the hour starting at hour (local time)
// when anything is due today or overdue. The key carries the date so each
// day gets its own summary.
func DailySummary(s Snapshot, now time.Time, loc *time.Location, hour int) (model.NotificationEvent, bool) {
	local := now.In(loc)
	if local.Hour() != hour {
		return model.NotificationEvent{}, false
	}

	var dueToday, overdue, payments int
	for _, a := range s.Assignments {
		if a.IsCompleted() || a.DueDate == nil {
			continue
		}
		switch days := daysUntil(*a.DueDate, now, loc); {
		case days == 0:
			dueToday++
		case days < 0:
			overdue++
		}
	}
	for _, p := range s.Payments {
		if p.IsSettled() || p.DueDate == nil {
			continue
		}
		if daysUntil(*p.DueDate, now, loc) <= paymentDueSoonDays {
			payments++
		}
	}

	if dueToday+overdue+payments == 0 {
		return model.NotificationEvent{}, false
	}

	date := local.Format("2006-01-02")
	return model.NotificationEvent{
		Category: model.CategoryDailySummary,
		Title:    "Daily Summary",
		Message: fmt.Sprintf("%s due today, %s overdue, %s due",
			plural(dueToday, "assignment"), plural(overdue, "assignment"), plural(payments, "payment")),
		ActionURL: "/dashboard",
		Priority:  model.PriorityNormal,
		Variant:   model.ToastNormal,
		EntityID:  date,
		Key:       model.NewReminderKey(model.KeyTagDailySummary, date),
	}, true
}
