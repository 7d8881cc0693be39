package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/notify"
	"github.com/nhle/deskalert/internal/permission"
	"github.com/nhle/deskalert/internal/queue"
	"github.com/nhle/deskalert/internal/settings"
	"github.com/nhle/deskalert/internal/store"
	"github.com/nhle/deskalert/internal/testutil"
	"github.com/nhle/deskalert/internal/toast"
)

type chanFeed struct {
	events   chan model.ChangeEvent
	statuses chan Status
}

func (c *chanFeed) Subscribe(ctx context.Context) (<-chan model.ChangeEvent, <-chan Status, error) {
	return c.events, c.statuses, nil
}

type recorder struct {
	mu          sync.Mutex
	invalidated []string
	refreshes   int
	enqueued    []model.NotificationEvent
	toasts      []toast.Toast
	reconnects  int
}

func (r *recorder) Invalidate(ctx context.Context, table string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, table)
	return nil
}

func (r *recorder) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
	return nil
}

func (r *recorder) Enqueue(ev model.NotificationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueued = append(r.enqueued, ev)
}

func (r *recorder) Toast(ctx context.Context, t toast.Toast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
	return nil
}

func newBridge(t *testing.T, s model.Settings) (*Bridge, *recorder, *store.SQLiteStore) {
	t.Helper()
	r := &recorder{}
	inbox := testutil.NewTestStore(t)
	return &Bridge{
		Dataset:  r,
		Settings: r,
		Gate:     settings.NewGate(settings.NewStatic(s)),
		Queue:    r,
		Toaster:  r,
		Inbox:    inbox,
		OnReconnect: func(context.Context) {
			r.mu.Lock()
			r.reconnects++
			r.mu.Unlock()
		},
	}, r, inbox
}

func insert(table string, row any) model.ChangeEvent {
	raw, _ := json.Marshal(row)
	return model.ChangeEvent{EventType: model.EventInsert, Table: table, New: raw}
}

func TestHandleDataTablesInvalidate(t *testing.T) {
	b, r, _ := newBridge(t, nil)
	ctx := context.Background()

	b.Handle(ctx, model.ChangeEvent{EventType: model.EventUpdate, Table: model.TableAssignments})
	b.Handle(ctx, model.ChangeEvent{EventType: model.EventDelete, Table: model.TablePayments})
	b.Handle(ctx, model.ChangeEvent{EventType: model.EventInsert, Table: model.TableMeetings})
	b.Handle(ctx, model.ChangeEvent{EventType: model.EventInsert, Table: "audit_log"})

	want := []string{model.TableAssignments, model.TablePayments, model.TableMeetings}
	if len(r.invalidated) != len(want) {
		t.Fatalf("invalidated = %v, want %v", r.invalidated, want)
	}
	for i := range want {
		if r.invalidated[i] != want[i] {
			t.Errorf("invalidated[%d] = %s, want %s", i, r.invalidated[i], want[i])
		}
	}
}

func TestHandleSettingsRefresh(t *testing.T) {
	b, r, _ := newBridge(t, nil)
	b.Handle(context.Background(), model.ChangeEvent{EventType: model.EventUpdate, Table: model.TableNotificationSettings})
	if r.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", r.refreshes)
	}
}

func TestHandleNotificationInsert(t *testing.T) {
	b, r, inbox := newBridge(t, nil)
	ctx := context.Background()

	b.Handle(ctx, insert(model.TableNotifications, map[string]any{
		"id":       42,
		"user_id":  "u1",
		"type":     "message",
		"title":    "New message",
		"message":  "Lunch?",
		"priority": "high",
	}))

	if len(r.toasts) != 1 || r.toasts[0].Title != "New message" {
		t.Errorf("toasts = %+v", r.toasts)
	}
	if len(r.enqueued) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(r.enqueued))
	}
	if tag := r.enqueued[0].Tag(); tag != "message-42" {
		t.Errorf("tag = %s, want message-42", tag)
	}

	unread, err := inbox.GetUnreadNotifications(ctx)
	if err != nil {
		t.Fatalf("GetUnreadNotifications: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != "42" {
		t.Errorf("inbox = %+v, want row 42", unread)
	}
}

func TestHandleNotificationDisabledStaysInApp(t *testing.T) {
	tests := []struct {
		name     string
		settings model.Settings
		category string
	}{
		{"message alerts off", model.Settings{model.SettingMessageAlerts: false}, "message"},
		{"payment reminders off", model.Settings{model.SettingPaymentReminders: false}, "payment_reminder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, r, inbox := newBridge(t, tt.settings)
			ctx := context.Background()
			b.Handle(ctx, insert(model.TableNotifications, map[string]any{
				"id": "n-7", "type": tt.category, "title": "Hi", "message": "there",
			}))

			if len(r.toasts) != 0 {
				t.Errorf("toasts = %d, want 0", len(r.toasts))
			}
			if len(r.enqueued) != 0 {
				t.Errorf("enqueued = %d, want 0", len(r.enqueued))
			}

			unread, err := inbox.GetUnreadNotifications(ctx)
			if err != nil {
				t.Fatalf("GetUnreadNotifications: %v", err)
			}
			if len(unread) != 1 || unread[0].ID != "n-7" {
				t.Errorf("inbox = %+v, want row n-7", unread)
			}
		})
	}
}

func TestHandleIgnoresNonInsertAndBadRows(t *testing.T) {
	b, r, _ := newBridge(t, nil)
	ctx := context.Background()

	b.Handle(ctx, model.ChangeEvent{EventType: model.EventUpdate, Table: model.TableNotifications, New: json.RawMessage(`{"id":1}`)})
	b.Handle(ctx, model.ChangeEvent{EventType: model.EventInsert, Table: model.TableNotifications, New: json.RawMessage(`null`)})
	b.Handle(ctx, insert(model.TableNotifications, map[string]any{"title": "no id"}))

	if len(r.toasts) != 0 || len(r.enqueued) != 0 {
		t.Errorf("toasts %d enqueued %d, want none", len(r.toasts), len(r.enqueued))
	}
}

func TestRunStopsWhenFeedCloses(t *testing.T) {
	b, r, _ := newBridge(t, nil)
	feed := &chanFeed{events: make(chan model.ChangeEvent), statuses: make(chan Status)}
	b.Feed = feed

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	feed.statuses <- StatusConnected
	feed.statuses <- StatusReconnected
	feed.events <- model.ChangeEvent{EventType: model.EventUpdate, Table: model.TablePayments}
	close(feed.events)
	close(feed.statuses)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after feed closed")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reconnects != 1 {
		t.Errorf("reconnects = %d, want 1", r.reconnects)
	}
	if len(r.invalidated) != 1 {
		t.Errorf("invalidated = %v", r.invalidated)
	}
}

type countingNotifier struct {
	mu   sync.Mutex
	tags []string
}

func (c *countingNotifier) Notify(ctx context.Context, msg notify.Message) (notify.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = append(c.tags, msg.Tag)
	return notify.Delivered, nil
}

func TestRepeatedInsertDispatchesOnce(t *testing.T) {
	gate := settings.NewGate(settings.NewStatic(nil))
	n := &countingNotifier{}
	q := queue.New(gate, permission.NewGate(permission.Always(true)), n, queue.Options{
		Sleep: func(context.Context, time.Duration) error { return nil },
	})
	t.Cleanup(q.Close)

	b := &Bridge{Gate: gate, Queue: q, Inbox: testutil.NewTestStore(t)}
	row := map[string]any{"id": 12, "type": "message", "title": "Ping", "message": "hello"}
	b.Handle(context.Background(), insert(model.TableNotifications, row))
	b.Handle(context.Background(), insert(model.TableNotifications, row))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.tags) != 1 || n.tags[0] != "message-12" {
		t.Errorf("OS notifications = %v, want one for message-12", n.tags)
	}
}
