package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/deskalert/internal/model"
)

// SavePushSubscription registers a push endpoint. Re-registering the same
// endpoint refreshes its keys.
func (s *SQLiteStore) SavePushSubscription(
	ctx context.Context,
	sub model.PushSubscription,
) error {
	if sub.Endpoint == "" {
		return fmt.Errorf("push subscription endpoint must not be empty")
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_subscriptions (id, endpoint, p256dh, auth, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET p256dh = excluded.p256dh, auth = excluded.auth`,
		sub.ID, sub.Endpoint, sub.P256dh, sub.Auth, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving push subscription: %w", err)
	}
	return nil
}

// GetPushSubscriptions returns every registered push endpoint.
func (s *SQLiteStore) GetPushSubscriptions(
	ctx context.Context,
) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.SelectContext(ctx, &subs,
		"SELECT id, endpoint, p256dh, auth, created_at FROM push_subscriptions ORDER BY created_at",
	)
	if err != nil {
		return nil, fmt.Errorf("querying push subscriptions: %w", err)
	}
	return subs, nil
}

// DeletePushSubscription removes an endpoint, typically after the push
// service reported it gone.
func (s *SQLiteStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM push_subscriptions WHERE endpoint = ?", endpoint)
	if err != nil {
		return fmt.Errorf("deleting push subscription: %w", err)
	}
	return nil
}
