package model

import "time"

// Contact is an individual WhatsApp recipient. Name is matched against Task.PIC.
type Contact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// WhatsAppGroup is a group recipient addressed by a gateway-specific id.
type WhatsAppGroup struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	GroupID string `json:"groupId"`
}

type ReminderTime struct {
	Time    string `json:"time"`
	Enabled bool   `json:"enabled"`
}

type DailyReminders struct {
	Enabled bool           `json:"enabled"`
	Times   []ReminderTime `json:"times"`
	Message string         `json:"message"`
	// IncludeHoldAndReview keeps hold and to-review tasks in daily lists.
	IncludeHoldAndReview *bool `json:"includeHoldAndReview,omitempty"`
}

// IncludesParked reports whether hold/to-review tasks appear in daily lists. Defaults to true.
func (d DailyReminders) IncludesParked() bool {
	return d.IncludeHoldAndReview == nil || *d.IncludeHoldAndReview
}

type AdvanceReminders struct {
	Enabled bool   `json:"enabled"`
	Days    int    `json:"days"`
	Time    string `json:"time"`
	Message string `json:"message"`
}

type WhatsAppSettings struct {
	Enabled     bool   `json:"enabled"`
	PhoneNumber string `json:"phoneNumber"`
	APIKey      string `json:"apiKey"`
	UseGroups   bool   `json:"useGroups"`
	GroupID     string `json:"groupId,omitempty"`
}

type TaskStatusMessages struct {
	Overdue  string `json:"overdue"`
	Today    string `json:"today"`
	Upcoming string `json:"upcoming"`
}

// Targets selects which contacts and groups receive one kind of reminder.
type Targets struct {
	UseIndividual    bool     `json:"useIndividual"`
	UseGroups        bool     `json:"useGroups"`
	SelectedContacts []string `json:"selectedContacts"`
	SelectedGroups   []string `json:"selectedGroups"`
}

// ReminderSettings is saved and loaded as a whole.
type ReminderSettings struct {
	DailyReminders     DailyReminders      `json:"dailyReminders"`
	AdvanceReminders   AdvanceReminders    `json:"advanceReminders"`
	WhatsApp           WhatsAppSettings    `json:"whatsapp"`
	NameInReminder     string              `json:"nameInReminder"`
	GroupLabel         string              `json:"groupLabel,omitempty"`
	TaskStatusMessages *TaskStatusMessages `json:"taskStatusMessages,omitempty"`
	Contacts           []Contact           `json:"contacts"`
	Groups             []WhatsAppGroup     `json:"groups"`
	DailyTargets       *Targets            `json:"dailyTargets,omitempty"`
	AdvanceTargets     *Targets            `json:"advanceTargets,omitempty"`
}

// SettingsRecord is the storage row holding one user's settings document.
type SettingsRecord struct {
	ID        uint             `gorm:"primaryKey"`
	UserID    uint             `gorm:"uniqueIndex"`
	Settings  ReminderSettings `gorm:"serializer:json;type:text"`
	UpdatedAt time.Time
}

func (SettingsRecord) TableName() string {
	return "reminder_settings"
}

const (
	DefaultDailyMessage   = "Halo, BOSQU 👋\n\nGue mau ingetin nih! 😎\nIni status tugas lo!:\n\n{tasks}\n\nSampai jumpa besok! 👋 \n\nReminder {reminder_number} via TaskBoss."
	DefaultAdvanceMessage = "Halo, BOS BESAR!! 👋\n\nGue mau ingetin nih!\nUntuk {days} hari ke depan, ada tugas:\n\n{tasks}\n\nHave a nice day!"
	DefaultName           = "BOSQU"
	DefaultGroupLabel     = "Team"
	DefaultAdvanceDays    = 14
)

func DefaultStatusMessages() TaskStatusMessages {
	return TaskStatusMessages{
		Overdue:  "terlewat hari / overdue",
		Today:    "this is the day!!",
		Upcoming: "{days} hari lagi",
	}
}

func DefaultTargets() Targets {
	return Targets{UseIndividual: true, SelectedContacts: []string{}, SelectedGroups: []string{}}
}

// DefaultReminderSettings is what a new user starts with.
func DefaultReminderSettings() ReminderSettings {
	msgs := DefaultStatusMessages()
	daily := DefaultTargets()
	advance := DefaultTargets()
	return ReminderSettings{
		DailyReminders: DailyReminders{
			Enabled: true,
			Times: []ReminderTime{
				{Time: "08:00", Enabled: true},
				{Time: "12:00", Enabled: true},
				{Time: "17:00", Enabled: true},
			},
			Message: DefaultDailyMessage,
		},
		AdvanceReminders: AdvanceReminders{
			Enabled: true,
			Days:    DefaultAdvanceDays,
			Time:    "07:00",
			Message: DefaultAdvanceMessage,
		},
		WhatsApp:           WhatsAppSettings{Enabled: true},
		NameInReminder:     DefaultName,
		GroupLabel:         DefaultGroupLabel,
		TaskStatusMessages: &msgs,
		Contacts:           []Contact{},
		Groups:             []WhatsAppGroup{},
		DailyTargets:       &daily,
		AdvanceTargets:     &advance,
	}
}

// WithDefaults back-fills sections missing from documents saved by older versions.
func (s ReminderSettings) WithDefaults() ReminderSettings {
	if s.TaskStatusMessages == nil {
		msgs := DefaultStatusMessages()
		s.TaskStatusMessages = &msgs
	}
	if s.DailyTargets == nil {
		t := DefaultTargets()
		s.DailyTargets = &t
	}
	if s.AdvanceTargets == nil {
		t := DefaultTargets()
		s.AdvanceTargets = &t
	}
	if s.Contacts == nil {
		s.Contacts = []Contact{}
	}
	if s.Groups == nil {
		s.Groups = []WhatsAppGroup{}
	}
	if s.GroupLabel == "" {
		s.GroupLabel = DefaultGroupLabel
	}
	if s.AdvanceReminders.Days <= 0 {
		s.AdvanceReminders.Days = DefaultAdvanceDays
	}
	return s
}
