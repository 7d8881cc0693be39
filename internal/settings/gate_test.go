package settings

import (
	"testing"

	"github.com/nhle/deskalert/internal/model"
)

func TestKeyFor(t *testing.T) {
	tests := []struct {
		category model.Category
		want     string
	}{
		{model.CategoryAssignmentReminder, model.SettingAssignmentReminders},
		{model.CategoryEmergencyTask, model.SettingEmergencyAlerts},
		{model.CategoryPaymentReminder, model.SettingPaymentReminders},
		{model.CategoryDailySummary, model.SettingDailySummary},
		{model.CategoryMeetingReminder, model.SettingMeetingReminders},
		{model.CategoryMessage, model.SettingMessageAlerts},
		{"rating_received", model.SettingAssignmentReminders},
		{"", model.SettingAssignmentReminders},
	}

	for _, tt := range tests {
		if got := KeyFor(tt.category); got != tt.want {
			t.Errorf("KeyFor(%q) = %q, want %q", tt.category, got, tt.want)
		}
	}
}

func TestGateDefaultsToEnabled(t *testing.T) {
	g := NewGate(NewStatic(nil))
	defer g.Close()

	for _, c := range []model.Category{
		model.CategoryAssignmentReminder,
		model.CategoryPaymentReminder,
		"unknown",
	} {
		if !g.IsEnabled(c) {
			t.Errorf("IsEnabled(%q) = false with empty settings, want true", c)
		}
	}
	if !g.DesktopEnabled() {
		t.Error("desktop notifications should default to enabled")
	}
}

func TestGateFollowsProvider(t *testing.T) {
	p := NewStatic(model.Settings{model.SettingPaymentReminders: false})
	g := NewGate(p)
	defer g.Close()

	if g.IsEnabled(model.CategoryPaymentReminder) {
		t.Fatal("payment reminders should start disabled")
	}

	p.Set(model.Settings{
		model.SettingPaymentReminders:    true,
		model.SettingAssignmentReminders: false,
	})

	if !g.IsEnabled(model.CategoryPaymentReminder) {
		t.Error("gate did not observe payment reminders being enabled")
	}
	if g.IsEnabled("unmapped_category") {
		t.Error("unmapped category should follow assignmentReminders")
	}
}
