package store

import (
	"context"
	"errors"

	"github.com/nhle/deskalert/internal/model"
)

// ErrNotFound is returned when a lookup by key or ID matches nothing.
var ErrNotFound = errors.New("not found")

// Store defines the local persistence interface: the key-value area used
// by the dedup ledger, the in-app notification list, the settings cache,
// and registered push subscriptions.
type Store interface {
	// === Key-value ===

	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	// === Settings cache ===

	GetSettings(ctx context.Context, userID string) (model.Settings, error)
	SaveSettings(ctx context.Context, userID string, s model.Settings) error

	// === Push subscriptions ===

	SavePushSubscription(ctx context.Context, sub model.PushSubscription) error
	GetPushSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error

	Close() error
}
