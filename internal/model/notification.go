package model

import "time"

// Notification is an entry in the in-app notification list. Rows arrive
// from the backend realtime feed or are written locally by the toast layer.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	// UserID is the recipient.
	UserID string `json:"user_id" db:"user_id"`

	// Type is the notification category as sent by the backend.
	Type string `json:"type" db:"type"`

	// Title is the short headline.
	Title string `json:"title" db:"title"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Priority is the urgency tier (normal, high, critical).
	Priority string `json:"priority" db:"priority"`

	// ActionURL is an optional in-app route.
	ActionURL string `json:"action_url" db:"action_url"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read" db:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Event converts a notification row into a queue event, using the row id
// as the dedup tag.
func (n Notification) Event() NotificationEvent {
	priority := Priority(n.Priority)
	if priority == "" {
		priority = PriorityNormal
	}
	return NotificationEvent{
		Category:  Category(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		ActionURL: n.ActionURL,
		Priority:  priority,
		Variant:   ToastNormal,
		EntityID:  n.ID,
	}
}
