// Package backend reads and writes the hosted Postgres database that is
// the system of record for assignments, payments, meetings, notifications
// and notification settings.
package backend

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/nhle/deskalert/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Postgres is a backend client scoped to one user.
type Postgres struct {
	db     *sqlx.DB
	userID string
}

// Open connects to dsn and scopes every query to userID.
func Open(ctx context.Context, dsn, userID string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to backend: %w", err)
	}
	return New(db, userID), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB, userID string) *Postgres {
	return &Postgres{db: db, userID: userID}
}

// Migrate creates the tables and change triggers if they are missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying backend schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// ListAssignments returns the user's assignments.
func (p *Postgres) ListAssignments(ctx context.Context) ([]model.Assignment, error) {
	var rows []model.Assignment
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id::text AS id, title, description, status, priority, due_date, assignee_id, updated_at
		FROM assignments
		WHERE assignee_id = $1
		ORDER BY due_date NULLS LAST, id`, p.userID)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	return rows, nil
}

// ListPayments returns the user's payments.
func (p *Postgres) ListPayments(ctx context.Context) ([]model.Payment, error) {
	var rows []model.Payment
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id::text AS id, title, amount::float8 AS amount, currency, due_date, status, payee_id
		FROM payments
		WHERE payee_id = $1
		ORDER BY due_date NULLS LAST, id`, p.userID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	return rows, nil
}

// ListMeetings returns the meetings the user attends.
func (p *Postgres) ListMeetings(ctx context.Context) ([]model.Meeting, error) {
	var rows []model.Meeting
	err := p.db.SelectContext(ctx, &rows, `
		SELECT m.id::text AS id, m.title, m.starts_at, m.location, m.status
		FROM meetings m
		JOIN meeting_attendees a ON a.meeting_id = m.id
		WHERE a.user_id = $1
		ORDER BY m.starts_at`, p.userID)
	if err != nil {
		return nil, fmt.Errorf("listing meetings: %w", err)
	}
	return rows, nil
}

// GetSettings returns the settings row for userID. A user without a row
// gets empty settings, which leaves every notification kind enabled.
func (p *Postgres) GetSettings(ctx context.Context, userID string) (model.Settings, error) {
	var raw []byte
	err := p.db.GetContext(ctx, &raw,
		`SELECT settings FROM notification_settings WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting settings for %s: %w", userID, err)
	}

	s := model.Settings{}
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding settings for %s: %w", userID, err)
	}
	return s, nil
}

// SaveSettings upserts the settings row for userID.
func (p *Postgres) SaveSettings(ctx context.Context, userID string, s model.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO notification_settings (user_id, settings, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = NOW()`,
		userID, raw)
	if err != nil {
		return fmt.Errorf("saving settings for %s: %w", userID, err)
	}
	return nil
}

// CreateNotification inserts a notification row for the user and returns
// its id. The row reaches clients through the realtime feed.
func (p *Postgres) CreateNotification(ctx context.Context, n model.Notification) (string, error) {
	var id string
	err := p.db.GetContext(ctx, &id, `
		INSERT INTO notifications (user_id, type, title, message, priority, action_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text`,
		p.userID, n.Type, n.Title, n.Message, n.Priority, n.ActionURL)
	if err != nil {
		return "", fmt.Errorf("inserting notification: %w", err)
	}
	return id, nil
}
