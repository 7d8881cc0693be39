// Package permission asks the host once whether OS notifications may be
// shown and remembers the answer for the rest of the session.
package permission

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nhle/deskalert/internal/logging"
)

// State mirrors the host's notification permission as last observed.
type State string

const (
	StateDefault State = "default"
	StateGranted State = "granted"
	StateDenied  State = "denied"
)

// Prompter asks the host for permission. Implementations may block while
// the user decides.
type Prompter interface {
	RequestPermission(ctx context.Context) (bool, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context) (bool, error)

// RequestPermission calls f.
func (f PrompterFunc) RequestPermission(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Always returns a Prompter that answers granted without asking anyone.
func Always(granted bool) Prompter {
	return PrompterFunc(func(context.Context) (bool, error) {
		return granted, nil
	})
}

// Gate memoizes the permission prompt. Concurrent callers share a single
// underlying prompt; once answered, the result is cached, including a
// denial, so a user who declined is never asked again.
type Gate struct {
	prompter Prompter
	group    singleflight.Group
	log      *log.Logger

	mu      sync.Mutex
	asked   bool
	granted bool
}

// NewGate creates a Gate over p.
func NewGate(p Prompter) *Gate {
	return &Gate{
		prompter: p,
		log:      logging.GetLogger(logging.Permission),
	}
}

// RequestOnce returns whether OS notifications are permitted, prompting
// the host at most once per Gate. A prompter error counts as denied.
func (g *Gate) RequestOnce(ctx context.Context) bool {
	g.mu.Lock()
	if g.asked {
		granted := g.granted
		g.mu.Unlock()
		return granted
	}
	g.mu.Unlock()

	v, _, _ := g.group.Do("permission", func() (interface{}, error) {
		g.mu.Lock()
		if g.asked {
			granted := g.granted
			g.mu.Unlock()
			return granted, nil
		}
		g.mu.Unlock()

		granted, err := g.prompter.RequestPermission(ctx)
		if err != nil {
			g.log.Printf("[WARN] Notification permission request failed, treating as denied: %s\n",
				err.Error())
			granted = false
		} else if !granted {
			g.log.Println("[INFO] Notification permission was denied")
		}

		g.mu.Lock()
		g.asked = true
		g.granted = granted
		g.mu.Unlock()
		return granted, nil
	})

	return v.(bool)
}

// State returns the cached permission state without prompting.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case !g.asked:
		return StateDefault
	case g.granted:
		return StateGranted
	default:
		return StateDenied
	}
}
