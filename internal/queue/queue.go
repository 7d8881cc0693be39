// Package queue paces OS notifications. Events are accepted without
// blocking, deduplicated for the session, and dispatched one at a time in
// arrival order with a short random pause between dispatches.
package queue

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/nhle/deskalert/internal/logging"
	"github.com/nhle/deskalert/internal/metrics"
	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/notify"
)

// State is the queue's dispatch state.
type State string

const (
	StateIdle     State = "idle"
	StateDraining State = "draining"
)

// Defaults for Options.
const (
	DefaultMinDelay = 500 * time.Millisecond
	DefaultMaxDelay = 1000 * time.Millisecond
	DefaultDedupTTL = 4 * time.Hour
)

// SettingsGate decides whether a category may reach the OS.
type SettingsGate interface {
	IsEnabled(category model.Category) bool
	DesktopEnabled() bool
}

// PermissionGate reports whether the OS allows notifications.
type PermissionGate interface {
	RequestOnce(ctx context.Context) bool
}

// Options configures a Queue.
type Options struct {
	// MinDelay and MaxDelay bound the pause before each dispatch.
	MinDelay time.Duration
	MaxDelay time.Duration

	// DedupTTL is how long a key counts as already processed this session.
	DedupTTL time.Duration

	// Sleep waits d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	Metrics *metrics.Metrics
}

// Queue is the notification dispatch queue.
type Queue struct {
	settings SettingsGate
	perm     PermissionGate
	notifier notify.Notifier
	seen     *cache.Cache
	opts     Options
	metrics  *metrics.Metrics
	log      *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	items    []model.NotificationEvent
	draining bool
	idle     chan struct{}
}

// New creates an idle Queue.
func New(settings SettingsGate, perm PermissionGate, notifier notify.Notifier, opts Options) *Queue {
	if opts.MinDelay == 0 && opts.MaxDelay == 0 {
		opts.MinDelay = DefaultMinDelay
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = DefaultDedupTTL
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}

	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	return &Queue{
		settings: settings,
		perm:     perm,
		notifier: notifier,
		seen:     cache.New(opts.DedupTTL, opts.DedupTTL),
		opts:     opts,
		metrics:  opts.Metrics,
		log:      logging.GetLogger(logging.Queue),
		ctx:      ctx,
		cancel:   cancel,
		idle:     idle,
	}
}

// Enqueue accepts ev for dispatch and returns immediately. Events whose
// dedup key was already processed this session are dropped.
func (q *Queue) Enqueue(ev model.NotificationEvent) {
	key := ev.DedupKey()
	if err := q.seen.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		q.log.Printf("[DEBUG] Dropping %s, already processed this session\n", key)
		q.metrics.Notification(string(ev.Category), metrics.OutcomeDeduplicated)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx.Err() != nil {
		return
	}

	q.items = append(q.items, ev)
	q.metrics.QueueDepth(len(q.items))

	if !q.draining {
		q.draining = true
		q.idle = make(chan struct{})
		go q.drain(q.idle)
	}
}

// Len returns the number of events waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// State reports whether the drain loop is running.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.draining {
		return StateDraining
	}
	return StateIdle
}

// Wait blocks until the queue is idle or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops dispatching. Events still waiting are dropped.
func (q *Queue) Close() {
	q.cancel()
}

func (q *Queue) drain(done chan struct{}) {
	defer close(done)

	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		ev := q.items[0]
		q.items[0] = model.NotificationEvent{}
		q.items = q.items[1:]
		q.metrics.QueueDepth(len(q.items))
		q.mu.Unlock()

		if err := q.opts.Sleep(q.ctx, q.jitter()); err != nil {
			q.mu.Lock()
			dropped := len(q.items) + 1
			q.items = nil
			q.draining = false
			q.metrics.QueueDepth(0)
			q.mu.Unlock()
			q.log.Printf("[INFO] Queue closed, dropping %d pending notifications\n", dropped)
			return
		}

		q.dispatch(ev)
	}
}

func (q *Queue) dispatch(ev model.NotificationEvent) {
	category := string(ev.Category)

	if !q.settings.IsEnabled(ev.Category) || !q.settings.DesktopEnabled() {
		q.log.Printf("[DEBUG] %s disabled by settings, not dispatching %s\n", category, ev.Tag())
		q.metrics.Notification(category, metrics.OutcomeSuppressed)
		return
	}

	if !q.perm.RequestOnce(q.ctx) {
		q.metrics.Notification(category, metrics.OutcomeDenied)
		return
	}

	res, err := q.notifier.Notify(q.ctx, notify.FromEvent(ev))
	switch {
	case err != nil:
		q.log.Printf("[ERROR] Cannot dispatch %s: %s\n", ev.Tag(), err.Error())
		q.metrics.Notification(category, metrics.OutcomeFailed)
	case res == notify.Duplicate:
		q.metrics.Notification(category, metrics.OutcomeDuplicate)
	default:
		q.log.Printf("[DEBUG] Dispatched %s\n", ev.Tag())
		q.metrics.Notification(category, metrics.OutcomeDispatched)
	}
}

func (q *Queue) jitter() time.Duration {
	span := q.opts.MaxDelay - q.opts.MinDelay
	if span <= 0 {
		return q.opts.MinDelay
	}
	return q.opts.MinDelay + rand.N(span)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
