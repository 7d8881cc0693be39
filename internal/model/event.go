package model

import "fmt"

// Category identifies the semantic kind of a notification. It decides
// which user setting gates delivery.
type Category string

const (
	CategoryAssignmentReminder Category = "assignment_reminder"
	CategoryEmergencyTask      Category = "emergency_task"
	CategoryPaymentReminder    Category = "payment_reminder"
	CategoryDailySummary       Category = "daily_summary"
	CategoryMeetingReminder    Category = "meeting_reminder"
	CategoryMessage            Category = "message"
)

// Priority is the urgency tier of a notification event.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ToastVariant selects the in-app toast styling.
type ToastVariant string

const (
	ToastNormal  ToastVariant = "normal"
	ToastPayment ToastVariant = "payment"
	ToastProject ToastVariant = "project"
)

// ReminderKey uniquely identifies one logical reminder instance. Two scans
// of the same unresolved condition produce the same key.
type ReminderKey string

// Reminder key tags.
const (
	KeyTagAssignment   = "assignment"
	KeyTagPayment      = "payment"
	KeyTagMeeting      = "meeting"
	KeyTagDailySummary = "daily-summary"
)

// NewReminderKey builds a key from a category tag and an entity identifier,
// e.g. "assignment-42".
func NewReminderKey(tag, entityID string) ReminderKey {
	return ReminderKey(tag + "-" + entityID)
}

// NotificationEvent is a transient notification produced by a scanner or
// the realtime bridge and consumed exactly once by the queue.
type NotificationEvent struct {
	// Category selects the settings flag consulted before dispatch.
	Category Category `json:"category"`

	// Title is the short headline.
	Title string `json:"title"`

	// Message is the human-readable body.
	Message string `json:"message"`

	// ActionURL is an optional in-app route to open on click.
	ActionURL string `json:"action_url,omitempty"`

	// Priority is the urgency tier.
	Priority Priority `json:"priority"`

	// Variant is the toast styling hint.
	Variant ToastVariant `json:"variant"`

	// EntityID identifies the underlying row.
	EntityID string `json:"entity_id"`

	// Key is the dedup key. When empty, Tag() is used.
	Key ReminderKey `json:"key,omitempty"`
}

// Tag returns the OS-level coalescing tag: category plus entity id.
func (e NotificationEvent) Tag() string {
	return fmt.Sprintf("%s-%s", e.Category, e.EntityID)
}

// DedupKey returns the key used for session-level deduplication.
func (e NotificationEvent) DedupKey() string {
	if e.Key != "" {
		return string(e.Key)
	}
	return e.Tag()
}
