// Package realtime subscribes to backend row changes and routes them into
// the pipeline. Delivery is best effort: events missed while disconnected
// are not replayed, the periodic scanners rediscover anything that matters.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nhle/deskalert/internal/model"
)

// Status is a subscription state transition.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusReconnected  Status = "reconnected"
	StatusFailed       Status = "failed"
)

// Feed delivers row-change events for the current user. Both channels are
// closed when ctx ends.
type Feed interface {
	Subscribe(ctx context.Context) (<-chan model.ChangeEvent, <-chan Status, error)
}

// ChannelName is the per-user channel row changes are published on.
func ChannelName(userID string) string {
	return "changes_" + userID
}

func decodeEvent(payload []byte) (model.ChangeEvent, error) {
	var ev model.ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("decoding change event: %w", err)
	}
	if ev.Table == "" || ev.EventType == "" {
		return ev, fmt.Errorf("change event missing table or eventType")
	}
	return ev, nil
}

// sendStatus delivers s without blocking the feed.
func sendStatus(ch chan<- Status, s Status) {
	select {
	case ch <- s:
	default:
	}
}
