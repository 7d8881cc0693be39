package toast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/deskalert/internal/model"
)

// NotificationWriter is the storage the inbox appends to.
type NotificationWriter interface {
	CreateNotification(ctx context.Context, n model.Notification) error
}

// Inbox records every toast in the local in-app notification list.
type Inbox struct {
	store  NotificationWriter
	userID string
	now    func() time.Time
}

// NewInbox creates an Inbox for userID.
func NewInbox(store NotificationWriter, userID string) *Inbox {
	return &Inbox{store: store, userID: userID, now: time.Now}
}

// Toast stores t as an unread notification.
func (i *Inbox) Toast(ctx context.Context, t Toast) error {
	n := model.Notification{
		ID:        uuid.New().String(),
		UserID:    i.userID,
		Type:      string(t.Category),
		Title:     t.Title,
		Message:   t.Message,
		Priority:  string(t.Priority),
		ActionURL: t.ActionURL,
		CreatedAt: i.now(),
	}
	if err := i.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("recording toast %q: %w", t.Title, err)
	}
	return nil
}
