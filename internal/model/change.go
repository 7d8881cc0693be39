package model

import "encoding/json"

// Realtime event types.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Backend tables the realtime bridge reacts to.
const (
	TableAssignments          = "assignments"
	TablePayments             = "payments"
	TableMeetings             = "meetings"
	TableNotifications        = "notifications"
	TableNotificationSettings = "notification_settings"
)

// ChangeEvent is a row-change notification pushed by the backend.
type ChangeEvent struct {
	EventType string          `json:"eventType"`
	Table     string          `json:"table"`
	New       json.RawMessage `json:"new,omitempty"`
	Old       json.RawMessage `json:"old,omitempty"`
}
