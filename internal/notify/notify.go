// Package notify delivers OS-level notifications: freedesktop desktop
// notifications over D-Bus and browser push via VAPID web push.
package notify

import (
	"context"
	"errors"

	"github.com/nhle/deskalert/internal/model"
)

// Urgency is the OS-level urgency of a message.
type Urgency uint8

// Freedesktop urgency levels.
const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Result reports what the sink did with a message.
type Result int

const (
	// Delivered means the message was shown or replaced an earlier one.
	Delivered Result = iota
	// Duplicate means an identical message with the same tag is already showing.
	Duplicate
)

func (r Result) String() string {
	if r == Duplicate {
		return "duplicate"
	}
	return "delivered"
}

// Message is one OS notification.
type Message struct {
	Title string
	Body  string

	// Tag coalesces notifications: a new message with the same tag
	// replaces the earlier one instead of stacking.
	Tag string

	Urgency Urgency

	// RequireInteraction keeps the notification on screen until dismissed.
	RequireInteraction bool
}

// Notifier is an OS notification sink.
type Notifier interface {
	Notify(ctx context.Context, msg Message) (Result, error)
}

// FromEvent builds the OS message for ev. Critical events are shown with
// critical urgency and stay until dismissed; everything else is normal.
func FromEvent(ev model.NotificationEvent) Message {
	msg := Message{
		Title:   ev.Title,
		Body:    ev.Message,
		Tag:     ev.Tag(),
		Urgency: UrgencyNormal,
	}
	if ev.Priority == model.PriorityCritical {
		msg.Urgency = UrgencyCritical
		msg.RequireInteraction = true
	}
	return msg
}

// Multi fans a message out to several sinks.
type Multi []Notifier

// Notify delivers msg to every sink. The result is Delivered if any sink
// delivered and Duplicate if every sink reported a duplicate. An error is
// returned only when every sink failed.
func (m Multi) Notify(ctx context.Context, msg Message) (Result, error) {
	if len(m) == 0 {
		return Delivered, nil
	}

	var (
		errs      []error
		delivered bool
	)
	for _, n := range m {
		res, err := n.Notify(ctx, msg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if res == Delivered {
			delivered = true
		}
	}

	switch {
	case len(errs) == len(m):
		return Delivered, errors.Join(errs...)
	case delivered:
		return Delivered, nil
	default:
		return Duplicate, nil
	}
}
