package model

// Settings keys as stored on the backend.
const (
	SettingAssignmentReminders  = "assignmentReminders"
	SettingEmergencyAlerts      = "emergencyAlerts"
	SettingPaymentReminders     = "paymentReminders"
	SettingDailySummary         = "dailySummary"
	SettingMeetingReminders     = "meetingReminders"
	SettingMessageAlerts        = "messageAlerts"
	SettingDesktopNotifications = "desktopNotifications"
)

// Settings maps a settings key to whether that notification kind is
// enabled. Keys that are absent count as enabled.
type Settings map[string]bool

// Enabled returns the flag for key, defaulting to true when unset.
func (s Settings) Enabled(key string) bool {
	v, ok := s[key]
	if !ok {
		return true
	}
	return v
}

// Clone returns an independent copy.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
