package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nhle/deskalert/internal/ledger"
	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/testutil"
	"github.com/nhle/deskalert/internal/toast"
)

type memSource struct {
	assignments []model.Assignment
	payments    []model.Payment
	meetings    []model.Meeting
}

func (m *memSource) Assignments() []model.Assignment { return m.assignments }
func (m *memSource) Payments() []model.Payment       { return m.payments }
func (m *memSource) Meetings() []model.Meeting       { return m.meetings }

type recordingQueue struct {
	mu     sync.Mutex
	events []model.NotificationEvent
}

func (q *recordingQueue) Enqueue(ev model.NotificationEvent) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

type recordingToaster struct {
	toasts []toast.Toast
}

func (r *recordingToaster) Toast(ctx context.Context, t toast.Toast) error {
	r.toasts = append(r.toasts, t)
	return nil
}

type fixture struct {
	source  *memSource
	clock   *testutil.Clock
	queue   *recordingQueue
	toaster *recordingToaster
	scanner *Scanner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testutil.NewClock(now)
	f := &fixture{
		source:  &memSource{},
		clock:   clock,
		queue:   &recordingQueue{},
		toaster: &recordingToaster{},
	}
	l := ledger.New(testutil.NewTestStore(t), ledger.Options{Now: clock.Now})
	f.scanner = New(f.source, l, f.toaster, f.queue, Options{
		Location:         loc,
		DailySummaryHour: 9,
		Now:              clock.Now,
	})
	return f
}

func TestScanAssignmentsRespectsLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.assignments = []model.Assignment{
		{ID: "1", Title: "Report", DueDate: day(0)},
		{ID: "2", Title: "Later", DueDate: day(7)},
	}

	if n := f.scanner.ScanAssignments(ctx); n != 1 {
		t.Fatalf("first scan fired %d, want 1", n)
	}
	if n := f.scanner.ScanAssignments(ctx); n != 0 {
		t.Errorf("repeat scan fired %d, want 0 within cooldown", n)
	}

	f.clock.Advance(ledger.DefaultCooldown + time.Minute)
	if n := f.scanner.ScanAssignments(ctx); n != 1 {
		t.Errorf("scan after cooldown fired %d, want 1", n)
	}

	if len(f.queue.events) != 2 || len(f.toaster.toasts) != 2 {
		t.Errorf("queued %d, toasted %d; want 2 each", len(f.queue.events), len(f.toaster.toasts))
	}
}

func TestSharedKeySuppressesStateTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.assignments = []model.Assignment{{ID: "1", Title: "Report", DueDate: day(0)}}

	f.scanner.ScanAssignments(ctx)

	// The assignment turns overdue while its key is still cooling down.
	f.clock.Advance(time.Hour)
	f.source.assignments[0].DueDate = day(-1)
	if n := f.scanner.ScanAssignments(ctx); n != 0 {
		t.Errorf("overdue re-fire within cooldown = %d, want 0", n)
	}
}

func TestScanPaymentsAndMeetings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.payments = []model.Payment{
		{ID: "1", Title: "Rent", DueDate: day(2)},
		{ID: "2", Title: "Paid", DueDate: day(0), Status: model.PaymentStatusPaid},
	}
	f.source.meetings = []model.Meeting{
		{ID: "1", Title: "Standup", StartsAt: now.Add(5 * time.Minute), Status: model.MeetingStatusScheduled},
	}

	if n := f.scanner.ScanPayments(ctx); n != 1 {
		t.Errorf("payments fired %d, want 1", n)
	}
	if n := f.scanner.ScanMeetings(ctx); n != 1 {
		t.Errorf("meetings fired %d, want 1", n)
	}

	if got := f.queue.events[0].Tag(); got != "payment_reminder-1" {
		t.Errorf("first tag = %s", got)
	}
	if got := f.toaster.toasts[0].Variant; got != model.ToastPayment {
		t.Errorf("payment toast variant = %s", got)
	}
}

func TestScanDailySummaryOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock = testutil.NewClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	f.scanner.opts.Now = f.clock.Now
	f.scanner.ledger = ledger.New(testutil.NewTestStore(t), ledger.Options{Now: f.clock.Now})
	f.source.assignments = []model.Assignment{{ID: "1", DueDate: day(0)}}

	if !f.scanner.ScanDailySummary(ctx) {
		t.Fatal("summary should fire at 09:00")
	}
	f.clock.Advance(30 * time.Minute)
	if f.scanner.ScanDailySummary(ctx) {
		t.Error("summary should fire only once per day")
	}
}

func TestDailySummaryHourDefaults(t *testing.T) {
	tests := []struct {
		name string
		hour int
		want int
	}{
		{"zero selects default", 0, DefaultDailySummaryHour},
		{"explicit midnight", SummaryAtMidnight, 0},
		{"configured midnight", SummaryHour(0), 0},
		{"configured hour", SummaryHour(18), 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&memSource{}, nil, nil, nil, Options{DailySummaryHour: tt.hour})
			if s.opts.DailySummaryHour != tt.want {
				t.Errorf("DailySummaryHour = %d, want %d", s.opts.DailySummaryHour, tt.want)
			}
		})
	}
}

func TestZeroOptionsSkipsMidnightSummary(t *testing.T) {
	clock := testutil.NewClock(time.Date(2026, 3, 2, 0, 10, 0, 0, time.UTC))
	src := &memSource{assignments: []model.Assignment{{ID: "1", DueDate: day(0)}}}
	l := ledger.New(testutil.NewTestStore(t), ledger.Options{Now: clock.Now})
	s := New(src, l, &recordingToaster{}, &recordingQueue{}, Options{Location: time.UTC, Now: clock.Now})

	if s.ScanDailySummary(context.Background()) {
		t.Error("summary fired at midnight without being asked to")
	}
}

func TestJobsCoverEveryScan(t *testing.T) {
	f := newFixture(t)
	jobs := f.scanner.Jobs(time.Minute, time.Second)

	names := map[string]bool{}
	for _, j := range jobs {
		names[j.Name] = true
		if j.Interval != time.Minute || j.InitialDelay != time.Second {
			t.Errorf("job %s timing = %s/%s", j.Name, j.Interval, j.InitialDelay)
		}
	}
	for _, want := range []string{"assignment", "payment", "meeting", "daily-summary"} {
		if !names[want] {
			t.Errorf("missing job %q", want)
		}
	}
}
