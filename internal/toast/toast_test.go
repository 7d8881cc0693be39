package toast_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/testutil"
	"github.com/nhle/deskalert/internal/toast"
)

type failingToaster struct{ err error }

func (f failingToaster) Toast(context.Context, toast.Toast) error { return f.err }

func TestInboxStoresUnreadNotification(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	inbox := toast.NewInbox(s, "user-1")

	ev := model.NotificationEvent{
		Category:  model.CategoryPaymentReminder,
		Title:     "Payment Due Soon",
		Message:   "Rent is due in 2 days",
		ActionURL: "/payments",
		Priority:  model.PriorityHigh,
		Variant:   model.ToastPayment,
		EntityID:  "9",
	}
	if err := inbox.Toast(ctx, toast.FromEvent(ev)); err != nil {
		t.Fatalf("Toast: %v", err)
	}

	unread, err := s.GetUnreadNotifications(ctx)
	if err != nil {
		t.Fatalf("GetUnreadNotifications: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("unread = %d, want 1", len(unread))
	}
	n := unread[0]
	if n.Type != string(model.CategoryPaymentReminder) || n.Priority != "high" || n.UserID != "user-1" {
		t.Errorf("stored notification = %+v", n)
	}
}

func TestTerminalRendersTitleAndMessage(t *testing.T) {
	var buf bytes.Buffer
	term := toast.NewTerminal(&buf)

	err := term.Toast(context.Background(), toast.Toast{
		Title:    "Emergency Task",
		Message:  "Server outage",
		Priority: model.PriorityCritical,
	})
	if err != nil {
		t.Fatalf("Toast: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Emergency Task", "Server outage", "CRITICAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFanoutJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	errA := errors.New("a")
	errB := errors.New("b")
	f := toast.Fanout{failingToaster{errA}, toast.NewTerminal(&buf), failingToaster{errB}}

	err := f.Toast(context.Background(), toast.Toast{Title: "Hello"})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("err = %v, want both errors joined", err)
	}
	if !strings.Contains(buf.String(), "Hello") {
		t.Error("healthy toaster should still receive the toast")
	}
}
