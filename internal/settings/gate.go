// Package settings maps notification categories to user preferences and
// keeps them current as the user changes them.
package settings

import (
	"sync"

	"github.com/nhle/deskalert/internal/model"
)

// categoryKeys is the static category to settings-key mapping. Categories
// missing here fall back to assignmentReminders.
var categoryKeys = map[model.Category]string{
	model.CategoryAssignmentReminder: model.SettingAssignmentReminders,
	model.CategoryEmergencyTask:      model.SettingEmergencyAlerts,
	model.CategoryPaymentReminder:    model.SettingPaymentReminders,
	model.CategoryDailySummary:       model.SettingDailySummary,
	model.CategoryMeetingReminder:    model.SettingMeetingReminders,
	model.CategoryMessage:            model.SettingMessageAlerts,
}

// KeyFor returns the settings key consulted for category.
func KeyFor(category model.Category) string {
	if key, ok := categoryKeys[category]; ok {
		return key
	}
	return model.SettingAssignmentReminders
}

// Gate answers whether a category is enabled. It observes its Provider
// and always reflects the latest settings.
type Gate struct {
	mu          sync.RWMutex
	settings    model.Settings
	unsubscribe func()
}

// NewGate creates a Gate that follows p.
func NewGate(p Provider) *Gate {
	g := &Gate{settings: p.Current()}
	g.unsubscribe = p.Subscribe(g.apply)
	return g
}

// IsEnabled reports whether notifications of category may be delivered.
// Unset flags are enabled.
func (g *Gate) IsEnabled(category model.Category) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.settings.Enabled(KeyFor(category))
}

// DesktopEnabled reports whether OS-level delivery is enabled at all.
func (g *Gate) DesktopEnabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.settings.Enabled(model.SettingDesktopNotifications)
}

// Close stops observing the provider.
func (g *Gate) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}

func (g *Gate) apply(s model.Settings) {
	g.mu.Lock()
	g.settings = s
	g.mu.Unlock()
}
