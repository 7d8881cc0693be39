package settings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/nhle/deskalert/internal/logging"
	"github.com/nhle/deskalert/internal/model"
	"github.com/nhle/deskalert/internal/store"
)

// Provider supplies the current user's notification settings and tells
// observers when they change.
type Provider interface {
	// Current returns the latest known settings. It never blocks on I/O.
	Current() model.Settings

	// Subscribe registers fn to be called with the new settings after every
	// change. The returned function removes the subscription.
	Subscribe(fn func(model.Settings)) (unsubscribe func())
}

// Remote is the system of record for settings (the hosted backend).
type Remote interface {
	GetSettings(ctx context.Context, userID string) (model.Settings, error)
	SaveSettings(ctx context.Context, userID string, s model.Settings) error
}

// Cache is the local copy of settings (the SQLite store).
type Cache interface {
	GetSettings(ctx context.Context, userID string) (model.Settings, error)
	SaveSettings(ctx context.Context, userID string, s model.Settings) error
}

// CachedProvider keeps an in-memory snapshot backed by a local cache and
// refreshed from the remote backend.
type CachedProvider struct {
	userID string
	remote Remote
	cache  Cache
	log    *log.Logger

	// notifyMu orders snapshot changes and their fan-out, so observers
	// see updates in the order they were applied.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	current   model.Settings
	observers map[int]func(model.Settings)
	nextID    int
}

// NewCachedProvider creates a provider for userID. remote may be nil when
// running without a backend; the local cache is then authoritative.
func NewCachedProvider(userID string, remote Remote, cache Cache) *CachedProvider {
	return &CachedProvider{
		userID:    userID,
		remote:    remote,
		cache:     cache,
		log:       logging.GetLogger(logging.Settings),
		current:   model.Settings{},
		observers: make(map[int]func(model.Settings)),
	}
}

// Load fills the snapshot from the local cache, then tries the remote.
// A remote failure is logged and the cached copy is kept.
func (p *CachedProvider) Load(ctx context.Context) error {
	cached, err := p.cache.GetSettings(ctx, p.userID)
	switch {
	case err == nil:
		p.set(cached)
	case errors.Is(err, store.ErrNotFound):
	default:
		p.log.Printf("[WARN] Cannot read cached settings: %s\n", err.Error())
	}

	if p.remote == nil {
		return nil
	}
	if err := p.Refresh(ctx); err != nil {
		p.log.Printf("[WARN] Using cached settings, backend unavailable: %s\n", err.Error())
	}
	return nil
}

// Refresh reloads settings from the remote and updates the local cache.
func (p *CachedProvider) Refresh(ctx context.Context) error {
	if p.remote == nil {
		return nil
	}

	fresh, err := p.remote.GetSettings(ctx, p.userID)
	if err != nil {
		return fmt.Errorf("fetching settings: %w", err)
	}

	if err := p.cache.SaveSettings(ctx, p.userID, fresh); err != nil {
		p.log.Printf("[WARN] Cannot cache settings locally: %s\n", err.Error())
	}
	p.set(fresh)
	return nil
}

// Update persists s to the remote and the local cache, then notifies
// observers. The snapshot is only replaced if the remote write succeeds.
func (p *CachedProvider) Update(ctx context.Context, s model.Settings) error {
	s = s.Clone()
	if p.remote != nil {
		if err := p.remote.SaveSettings(ctx, p.userID, s); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
	}

	if err := p.cache.SaveSettings(ctx, p.userID, s); err != nil {
		if p.remote == nil {
			return fmt.Errorf("saving settings locally: %w", err)
		}
		p.log.Printf("[WARN] Cannot cache settings locally: %s\n", err.Error())
	}

	p.set(s)
	return nil
}

// Current returns a copy of the snapshot.
func (p *CachedProvider) Current() model.Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.Clone()
}

// Subscribe registers an observer.
func (p *CachedProvider) Subscribe(fn func(model.Settings)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.observers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

// set replaces the snapshot and notifies observers. Observers run outside
// p.mu but under p.notifyMu; they must not call Update or Refresh.
func (p *CachedProvider) set(s model.Settings) {
	if s == nil {
		s = model.Settings{}
	}

	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	p.current = s.Clone()
	observers := make([]func(model.Settings), 0, len(p.observers))
	for _, fn := range p.observers {
		observers = append(observers, fn)
	}
	p.mu.Unlock()

	for _, fn := range observers {
		fn(s.Clone())
	}
}
