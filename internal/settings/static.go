package settings

import (
	"sync"

	"github.com/nhle/deskalert/internal/model"
)

// Static is an in-memory Provider whose settings change only via Set.
type Static struct {
	notifyMu  sync.Mutex
	mu        sync.Mutex
	settings  model.Settings
	observers []func(model.Settings)
}

// NewStatic returns a Static provider holding s.
func NewStatic(s model.Settings) *Static {
	if s == nil {
		s = model.Settings{}
	}
	return &Static{settings: s.Clone()}
}

// Current returns a copy of the settings.
func (p *Static) Current() model.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings.Clone()
}

// Subscribe registers fn. Subscriptions on Static live as long as it does.
func (p *Static) Subscribe(fn func(model.Settings)) func() {
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
	return func() {}
}

// Set replaces the settings and notifies observers.
func (p *Static) Set(s model.Settings) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	p.settings = s.Clone()
	observers := append([]func(model.Settings){}, p.observers...)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(s.Clone())
	}
}
