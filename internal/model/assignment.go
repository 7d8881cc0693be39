package model

import "time"

// Assignment status constants.
const (
	AssignmentStatusPending    = "pending"
	AssignmentStatusInProgress = "in_progress"
	AssignmentStatusCompleted  = "completed"
)

// Assignment priority constants.
const (
	AssignmentPriorityNormal    = "normal"
	AssignmentPriorityHigh      = "high"
	AssignmentPriorityEmergency = "emergency"
)

// Assignment is a task assigned to the current user by the organization.
type Assignment struct {
	// ID is the backend row identifier.
	ID string `json:"id" db:"id"`

	// Title is the human-readable summary of the assignment.
	Title string `json:"title" db:"title"`

	// Description is the full body text.
	Description string `json:"description" db:"description"`

	// Status is one of the AssignmentStatus* constants.
	Status string `json:"status" db:"status"`

	// Priority is one of the AssignmentPriority* constants.
	Priority string `json:"priority" db:"priority"`

	// DueDate is when the assignment must be finished, if set.
	DueDate *time.Time `json:"due_date,omitempty" db:"due_date"`

	// AssigneeID is the user the assignment belongs to.
	AssigneeID string `json:"assignee_id" db:"assignee_id"`

	// UpdatedAt is when the row was last modified on the backend.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsCompleted reports whether the assignment no longer needs reminders.
func (a Assignment) IsCompleted() bool {
	return a.Status == AssignmentStatusCompleted
}
