package realtime

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/nhle/deskalert/internal/logging"
	"github.com/nhle/deskalert/internal/model"
)

// RedisChannel is the pub/sub channel change events for userID are
// published on.
func RedisChannel(userID string) string {
	return "deskalert:changes:" + userID
}

// RedisFeed receives change events over Redis pub/sub.
type RedisFeed struct {
	client  *redis.Client
	channel string
	log     *log.Logger
}

// NewRedisFeed creates a feed for userID.
func NewRedisFeed(client *redis.Client, userID string) *RedisFeed {
	return &RedisFeed{
		client:  client,
		channel: RedisChannel(userID),
		log:     logging.GetLogger(logging.Realtime),
	}
}

// Subscribe subscribes to the user's channel. The client reconnects on its
// own; only the initial connect and the final close are reported.
func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan model.ChangeEvent, <-chan Status, error) {
	pubsub := f.client.Subscribe(ctx, f.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", f.channel, err)
	}
	f.log.Printf("[INFO] Subscribed to %s\n", f.channel)

	events := make(chan model.ChangeEvent, 64)
	statuses := make(chan Status, 16)
	sendStatus(statuses, StatusConnected)

	go func() {
		defer close(statuses)
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					sendStatus(statuses, StatusDisconnected)
					return
				}
				ev, err := decodeEvent([]byte(msg.Payload))
				if err != nil {
					f.log.Printf("[WARN] Dropping malformed change event: %s\n", err.Error())
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, statuses, nil
}
