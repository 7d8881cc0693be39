package realtime

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/nhle/deskalert/internal/logging"
	"github.com/nhle/deskalert/internal/model"
)

const (
	minReconnectInterval = 2 * time.Second
	maxReconnectInterval = time.Minute
	listenerPingInterval = 90 * time.Second
)

// listener is the subset of *pq.Listener used by PostgresFeed.
type listener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// PostgresFeed listens for NOTIFY messages carrying JSON change events.
// The channel name is scoped to the user, so filtering happens on the
// server.
type PostgresFeed struct {
	channel     string
	newListener func(cb pq.EventCallbackType) listener
	log         *log.Logger
}

// NewPostgresFeed creates a feed for userID on the database at dsn.
func NewPostgresFeed(dsn, userID string) *PostgresFeed {
	return &PostgresFeed{
		channel: ChannelName(userID),
		newListener: func(cb pq.EventCallbackType) listener {
			return pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, cb)
		},
		log: logging.GetLogger(logging.Realtime),
	}
}

// Subscribe starts listening. The listener reconnects on its own; each
// transition is reported on the status channel.
func (f *PostgresFeed) Subscribe(ctx context.Context) (<-chan model.ChangeEvent, <-chan Status, error) {
	statuses := make(chan Status, 16)

	// The listener may still call back while shutting down.
	var (
		mu     sync.Mutex
		closed bool
	)
	report := func(s Status) {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			sendStatus(statuses, s)
		}
	}

	l := f.newListener(func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			report(StatusConnected)
		case pq.ListenerEventDisconnected:
			f.log.Printf("[WARN] Realtime connection lost: %v\n", err)
			report(StatusDisconnected)
		case pq.ListenerEventReconnected:
			report(StatusReconnected)
		case pq.ListenerEventConnectionAttemptFailed:
			f.log.Printf("[WARN] Realtime reconnect failed: %v\n", err)
			report(StatusFailed)
		}
	})

	if err := l.Listen(f.channel); err != nil {
		l.Close()
		return nil, nil, fmt.Errorf("listening on %s: %w", f.channel, err)
	}
	f.log.Printf("[INFO] Listening for changes on %s\n", f.channel)

	events := make(chan model.ChangeEvent, 64)
	go func() {
		defer func() {
			l.Close()
			close(events)
			mu.Lock()
			closed = true
			close(statuses)
			mu.Unlock()
		}()

		ping := time.NewTicker(listenerPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				if err := l.Ping(); err != nil {
					f.log.Printf("[DEBUG] Listener ping failed: %s\n", err.Error())
				}
			case n, ok := <-l.NotificationChannel():
				if !ok {
					return
				}
				// A nil notification follows a reconnect.
				if n == nil {
					continue
				}
				ev, err := decodeEvent([]byte(n.Extra))
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
