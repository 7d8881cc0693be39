package model

import "time"

// PushSubscription is a browser push endpoint registered by a client of
// the local API.
type PushSubscription struct {
	ID        string    `json:"id" db:"id"`
	Endpoint  string    `json:"endpoint" db:"endpoint"`
	P256dh    string    `json:"p256dh" db:"p256dh"`
	Auth      string    `json:"auth" db:"auth"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
