// Package scanner turns cached assignments, payments and meetings into
// reminders. Rules are pure functions of the data and the clock; the
// Scanner filters their output through the dedup ledger, shows a toast and
// hands the event to the notification queue.
package scanner

import (
	"context"
	"log"
	"time"

	"github.com/nhle/deskalert/internal/logging"
	"github.com/nhle/deskalert/internal/metrics"
	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/toast"
)

// Source provides the already-loaded collections to scan.
type Source interface {
	Assignments() []model.Assignment
	Payments() []model.Payment
	Meetings() []model.Meeting
}

// Ledger is the cross-session reminder dedup store.
type Ledger interface {
	ShouldShow(ctx context.Context, key model.ReminderKey) bool
	MarkShown(ctx context.Context, key model.ReminderKey)
}

// Enqueuer accepts events for OS delivery.
type Enqueuer interface {
	Enqueue(ev model.NotificationEvent)
}

// Options configures a Scanner.
type Options struct {
	Location    *time.Location
	MeetingLead time.Duration

	// DailySummaryHour is the local hour of the daily summary. Zero means
	// DefaultDailySummaryHour; use SummaryAtMidnight for hour 0.
	DailySummaryHour int

	Now              func() time.Time
	Metrics          *metrics.Metrics
}

// Scanner evaluates reminder rules against a Source.
type Scanner struct {
	source  Source
	ledger  Ledger
	toaster toast.Toaster
	queue   Enqueuer
	opts    Options
	log     *log.Logger
}

// New creates a Scanner.
func New(source Source, ledger Ledger, toaster toast.Toaster, queue Enqueuer, opts Options) *Scanner {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MeetingLead <= 0 {
		opts.MeetingLead = DefaultMeetingLead
	}
	switch opts.DailySummaryHour {
	case 0:
		opts.DailySummaryHour = DefaultDailySummaryHour
	case SummaryAtMidnight:
		opts.DailySummaryHour = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scanner{
		source:  source,
		ledger:  ledger,
		toaster: toaster,
		queue:   queue,
		opts:    opts,
		log:     logging.GetLogger(logging.Scanner),
	}
}

// ScanAssignments emits reminders for assignments and returns how many fired.
func (s *Scanner) ScanAssignments(ctx context.Context) int {
	now := s.opts.Now()
	fired := 0
	for _, a := range s.source.Assignments() {
		if ev, ok := AssignmentReminder(a, now, s.opts.Location); ok && s.emit(ctx, ev, model.KeyTagAssignment) {
			fired++
		}
	}
	return fired
}

// ScanPayments emits reminders for payments and returns how many fired.
func (s *Scanner) ScanPayments(ctx context.Context) int {
	now := s.opts.Now()
	fired := 0
	for _, p := range s.source.Payments() {
		if ev, ok := PaymentReminder(p, now, s.opts.Location); ok && s.emit(ctx, ev, model.KeyTagPayment) {
			fired++
		}
	}
	return fired
}

// ScanMeetings emits reminders for upcoming meetings and returns how many fired.
func (s *Scanner) ScanMeetings(ctx context.Context) int {
	now := s.opts.Now()
	fired := 0
	for _, m := range s.source.Meetings() {
		if ev, ok := MeetingReminder(m, now, s.opts.MeetingLead); ok && s.emit(ctx, ev, model.KeyTagMeeting) {
			fired++
		}
	}
	return fired
}

// ScanDailySummary emits the daily summary when due and reports whether it fired.
func (s *Scanner) ScanDailySummary(ctx context.Context) bool {
	snap := Snapshot{
		Assignments: s.source.Assignments(),
		Payments:    s.source.Payments(),
	}
	ev, ok := DailySummary(snap, s.opts.Now(), s.opts.Location, s.opts.DailySummaryHour)
	return ok && s.emit(ctx, ev, model.KeyTagDailySummary)
}

// emit shows ev unless the ledger has seen its key within the cooldown.
func (s *Scanner) emit(ctx context.Context, ev model.NotificationEvent, kind string) bool {
	if !s.ledger.ShouldShow(ctx, ev.Key) {
		return false
	}
	s.ledger.MarkShown(ctx, ev.Key)

	s.log.Printf("[INFO] Reminder %s: %s\n", ev.Key, ev.Message)
	s.opts.Metrics.Reminder(kind)

	if err := s.toaster.Toast(ctx, toast.FromEvent(ev)); err != nil {
		s.log.Printf("[WARN] Cannot show toast for %s: %s\n", ev.Key, err.Error())
	}
	s.queue.Enqueue(ev)
	return true
}

// Jobs returns the scheduler jobs for every scan.
func (s *Scanner) Jobs(interval, initialDelay time.Duration) []Job {
	mk := func(name string, fn func(ctx context.Context)) Job {
		return Job{Name: name, Interval: interval, InitialDelay: initialDelay, Run: fn}
	}
	return []Job{
		mk(model.KeyTagAssignment, func(ctx context.Context) { s.ScanAssignments(ctx) }),
		mk(model.KeyTagPayment, func(ctx context.Context) { s.ScanPayments(ctx) }),
		mk(model.KeyTagMeeting, func(ctx context.Context) { s.ScanMeetings(ctx) }),
		mk(model.KeyTagDailySummary, func(ctx context.Context) { s.ScanDailySummary(ctx) }),
	}
}
