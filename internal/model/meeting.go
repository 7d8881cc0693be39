package model

import "time"

// Meeting status constants.
const (
	MeetingStatusScheduled = "scheduled"
	MeetingStatusCancelled = "cancelled"
	MeetingStatusCompleted = "completed"
)

// Meeting is a scheduled meeting the current user attends.
type Meeting struct {
	ID       string    `json:"id" db:"id"`
	Title    string    `json:"title" db:"title"`
	StartsAt time.Time `json:"starts_at" db:"starts_at"`
	Location string    `json:"location" db:"location"`
	Status   string    `json:"status" db:"status"`
}
