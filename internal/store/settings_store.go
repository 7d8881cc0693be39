package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/deskalert/internal/model"
)

// GetSettings returns the cached notification settings for userID, or
// ErrNotFound if nothing has been cached yet.
func (s *SQLiteStore) GetSettings(
	ctx context.Context,
	userID string,
) (model.Settings, error) {
	var flags string
	err := s.db.GetContext(ctx, &flags, "SELECT flags FROM settings WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settings for %q: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting settings for %q: %w", userID, err)
	}

	settings := model.Settings{}
	if err := json.Unmarshal([]byte(flags), &settings); err != nil {
		return nil, fmt.Errorf("unmarshaling settings for %q: %w", userID, err)
	}
	return settings, nil
}

// SaveSettings replaces the cached settings for userID.
func (s *SQLiteStore) SaveSettings(
	ctx context.Context,
	userID string,
	settings model.Settings,
) error {
	if settings == nil {
		settings = model.Settings{}
	}
	flags, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (user_id, flags, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET flags = excluded.flags, updated_at = excluded.updated_at`,
		userID, string(flags), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving settings for %q: %w", userID, err)
	}
	return nil
}
