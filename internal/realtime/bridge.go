package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nhle/deskalert/internal/logging"
	"github.com/nhle/deskalert/internal/metrics"
	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/toast"
)

// Invalidator reloads a cached collection.
type Invalidator interface {
	Invalidate(ctx context.Context, table string) error
}

// SettingsRefresher reloads settings from the backend.
type SettingsRefresher interface {
	Refresh(ctx context.Context) error
}

// CategoryGate reports whether a notification category is enabled.
type CategoryGate interface {
	IsEnabled(category model.Category) bool
}

// Enqueuer accepts events for OS delivery.
type Enqueuer interface {
	Enqueue(ev model.NotificationEvent)
}

// NotificationWriter records rows in the local in-app list.
type NotificationWriter interface {
	CreateNotification(ctx context.Context, n model.Notification) error
}

// Bridge routes change events from a Feed.
type Bridge struct {
	Feed     Feed
	Dataset  Invalidator
	Settings SettingsRefresher
	Gate     CategoryGate
	Queue    Enqueuer
	Toaster  toast.Toaster
	Inbox    NotificationWriter
	Metrics  *metrics.Metrics

	// OnReconnect, if set, runs after the feed reconnects so data changed
	// while offline is picked up.
	OnReconnect func(ctx context.Context)

	logOnce sync.Once
	log     *log.Logger
}

func (b *Bridge) logger() *log.Logger {
	b.logOnce.Do(func() { b.log = logging.GetLogger(logging.Realtime) })
	return b.log
}

// Run subscribes and handles events until ctx ends or the feed closes.
func (b *Bridge) Run(ctx context.Context) error {
	events, statuses, err := b.Feed.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to changes: %w", err)
	}

	for events != nil || statuses != nil {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			b.Handle(ctx, ev)
		case st, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			b.status(ctx, st)
		}
	}

	b.logger().Println("[INFO] Realtime feed closed")
	return nil
}

func (b *Bridge) status(ctx context.Context, st Status) {
	b.Metrics.RealtimeStatus(string(st))
	switch st {
	case StatusConnected:
		b.logger().Println("[INFO] Realtime connected")
	case StatusReconnected:
		b.logger().Println("[INFO] Realtime reconnected")
		if b.OnReconnect != nil {
			b.OnReconnect(ctx)
		}
	default:
		b.logger().Printf("[WARN] Realtime status %s\n", st)
	}
}

// Handle routes one change event.
func (b *Bridge) Handle(ctx context.Context, ev model.ChangeEvent) {
	b.Metrics.RealtimeEvent(ev.Table, ev.EventType)

	switch ev.Table {
	case model.TableAssignments, model.TablePayments, model.TableMeetings:
		if b.Dataset == nil {
			return
		}
		if err := b.Dataset.Invalidate(ctx, ev.Table); err != nil {
			b.logger().Printf("[WARN] Cannot reload %s: %s\n", ev.Table, err.Error())
		}
	case model.TableNotificationSettings:
		if b.Settings == nil {
			return
		}
		if err := b.Settings.Refresh(ctx); err != nil {
			b.logger().Printf("[WARN] Cannot refresh settings: %s\n", err.Error())
		}
	case model.TableNotifications:
		if ev.EventType != model.EventInsert {
			return
		}
		n, err := decodeNotification(ev.New)
		if err != nil {
			b.logger().Printf("[WARN] Dropping notification row: %s\n", err.Error())
			return
		}
		b.notification(ctx, n)
	default:
		b.logger().Printf("[DEBUG] Ignoring change on %s\n", ev.Table)
	}
}

func (b *Bridge) notification(ctx context.Context, n model.Notification) {
	if b.Inbox != nil {
		if err := b.Inbox.CreateNotification(ctx, n); err != nil {
			b.logger().Printf("[WARN] Cannot record notification %s: %s\n", n.ID, err.Error())
		}
	}

	ev := n.Event()
	if b.Gate != nil && !b.Gate.IsEnabled(ev.Category) {
		b.logger().Printf("[DEBUG] %s disabled, notification %s stays in the list only\n", ev.Category, n.ID)
		return
	}

	if b.Toaster != nil {
		if err := b.Toaster.Toast(ctx, toast.FromEvent(ev)); err != nil {
			b.logger().Printf("[WARN] Cannot show toast for notification %s: %s\n", n.ID, err.Error())
		}
	}
	if b.Queue != nil {
		b.Queue.Enqueue(ev)
	}
}

// rowID accepts both numeric and string primary keys.
type rowID string

func (id *rowID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = rowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = rowID(n.String())
	return nil
}

type notificationRow struct {
	ID        rowID     `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Priority  string    `json:"priority"`
	ActionURL string    `json:"action_url"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func decodeNotification(raw json.RawMessage) (model.Notification, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return model.Notification{}, fmt.Errorf("insert event without a row")
	}

	var row notificationRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return model.Notification{}, fmt.Errorf("decoding notification row: %w", err)
	}
	if row.ID == "" {
		return model.Notification{}, fmt.Errorf("notification row without id")
	}

	createdAt := row.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return model.Notification{
		ID:        string(row.ID),
		UserID:    row.UserID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		Priority:  row.Priority,
		ActionURL: row.ActionURL,
		Read:      row.Read,
		CreatedAt: createdAt,
	}, nil
}
