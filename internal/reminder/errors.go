package reminder

import (
	"strconv"
	"strings"

	"taskboss/internal/model"
)

// ConfigurationError means reminders cannot be sent with the current settings.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "reminder configuration: " + e.Reason
}

// CheckTransport verifies the settings allow sending anything at all.
func CheckTransport(s model.ReminderSettings) error {
	if !s.WhatsApp.Enabled {
		return &ConfigurationError{Reason: "whatsapp reminders are disabled"}
	}
	if strings.TrimSpace(s.WhatsApp.APIKey) == "" {
		return &ConfigurationError{Reason: "whatsapp api key is not set"}
	}
	return nil
}

// CheckResolvable reports a ConfigurationError when there were tasks to remind
// about but no recipient could be resolved.
func CheckResolvable(p Plan) error {
	if p.TaskCount > 0 && len(p.Jobs) == 0 {
		return &ConfigurationError{Reason: "no phone number, contact or group could be resolved (" + strconv.Itoa(len(p.Skips)) + " skipped)"}
	}
	return nil
}

// SampleMessage renders a template with placeholder sample tasks, for test sends.
func SampleMessage(s model.ReminderSettings, kind Kind) string {
	s = s.WithDefaults()
	template := s.DailyReminders.Message
	if kind == KindAdvance {
		template = s.AdvanceReminders.Message
	}
	msgs := *s.TaskStatusMessages
	tasks := strings.Join([]string{
		"- Sample task 1 (" + model.LocationOffice + ") - " + StatusMessage(Classification{Label: LabelToday}, msgs),
		"- Sample task 2 (" + model.LocationHome + ") - " + StatusMessage(Classification{Label: LabelUpcoming, Days: 1}, msgs),
	}, "\n")
	return Render(template, Values{
		PlaceholderTasks:          tasks,
		PlaceholderReminderNumber: "1",
		PlaceholderDays:           strconv.Itoa(s.AdvanceReminders.Days),
		PlaceholderName:           s.NameInReminder,
	})
}
