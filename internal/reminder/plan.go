package reminder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"taskboss/internal/model"
)

// Kind of reminder.
type Kind string

const (
	KindDaily   Kind = "daily"
	KindAdvance Kind = "advance"
)

func (k Kind) Valid() bool {
	return k == KindDaily || k == KindAdvance
}

// TargetType tells the transport whether Target is a phone number or a group id.
type TargetType string

const (
	TargetContact TargetType = "contact"
	TargetGroup   TargetType = "group"
)

// Job is one rendered message bound for one recipient.
type Job struct {
	Kind       Kind       `json:"kind"`
	TargetType TargetType `json:"targetType"`
	// Recipient is the contact or group name the job was resolved from.
	Recipient string `json:"recipient"`
	Target    string `json:"target"`
	Message   string `json:"message"`
	TaskCount int    `json:"taskCount"`
}

// Skip records a recipient that could not be resolved. Skips are not errors.
type Skip struct {
	Kind       Kind       `json:"kind"`
	TargetType TargetType `json:"targetType"`
	Name       string     `json:"name"`
	Reason     string     `json:"reason"`
}

// Plan is the outcome of planning one reminder run.
type Plan struct {
	Jobs  []Job  `json:"jobs"`
	Skips []Skip `json:"skips"`
	// TaskCount is the number of tasks that passed the reminder filter.
	TaskCount int `json:"taskCount"`
}

// EnabledSlots returns the enabled daily times ordered by time of day. The
// reminder number of a slot is its index in this list plus one. Times that do
// not parse keep their relative order after the valid ones.
func EnabledSlots(daily model.DailyReminders) []string {
	var slots []string
	for _, t := range daily.Times {
		if t.Enabled {
			slots = append(slots, t.Time)
		}
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return minuteOfDay(slots[i]) < minuteOfDay(slots[j])
	})
	return slots
}

// ParseClock parses an HH:MM time of day.
func ParseClock(timeStr string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(timeStr), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", timeStr)
	}
	return hour, minute, nil
}

func minuteOfDay(timeStr string) int {
	hour, minute, err := ParseClock(timeStr)
	if err != nil {
		return 24 * 60
	}
	return hour*60 + minute
}

// PlanDaily plans the daily status reminder for the given 1-based slot.
func PlanDaily(settings model.ReminderSettings, tasks []model.Task, reminderNumber int, now time.Time) Plan {
	settings = settings.WithDefaults()
	if !settings.DailyReminders.Enabled {
		return Plan{}
	}

	includeParked := settings.DailyReminders.IncludesParked()
	filtered := filterTasks(tasks, func(t model.Task) bool {
		if t.Status.Closed() {
			return false
		}
		return includeParked || !t.Status.Parked()
	})

	base := Values{PlaceholderReminderNumber: strconv.Itoa(reminderNumber)}
	return fanOut(KindDaily, settings, *settings.DailyTargets, settings.DailyReminders.Message, base, filtered, now)
}

// PlanAdvance plans the advance reminder: open tasks due between today and
// today plus the configured window, inclusive.
func PlanAdvance(settings model.ReminderSettings, tasks []model.Task, now time.Time) Plan {
	settings = settings.WithDefaults()
	if !settings.AdvanceReminders.Enabled {
		return Plan{}
	}

	window := settings.AdvanceReminders.Days
	filtered := filterTasks(tasks, func(t model.Task) bool {
		if t.Status.Closed() {
			return false
		}
		d := DaysUntil(now, t.Deadline)
		return d >= 0 && d <= window
	})

	base := Values{PlaceholderDays: strconv.Itoa(window)}
	return fanOut(KindAdvance, settings, *settings.AdvanceTargets, settings.AdvanceReminders.Message, base, filtered, now)
}

func fanOut(kind Kind, s model.ReminderSettings, targets model.Targets, template string, base Values, tasks []model.Task, now time.Time) Plan {
	plan := Plan{TaskCount: len(tasks)}
	if len(tasks) == 0 {
		return plan
	}
	msgs := *s.TaskStatusMessages

	render := func(name string, list []model.Task, withPIC bool) string {
		values := Values{
			PlaceholderTasks: TaskList(list, now, msgs, withPIC),
			PlaceholderName:  name,
		}
		for k, v := range base {
			values[k] = v
		}
		return Render(template, values)
	}

	if targets.UseIndividual {
		if len(s.Contacts) == 0 && s.WhatsApp.PhoneNumber != "" {
			// No address book: everything goes to the owner's own number.
			plan.Jobs = append(plan.Jobs, Job{
				Kind:       kind,
				TargetType: TargetContact,
				Recipient:  s.NameInReminder,
				Target:     s.WhatsApp.PhoneNumber,
				Message:    render(s.NameInReminder, tasks, false),
				TaskCount:  len(tasks),
			})
		} else {
			selected := toSet(targets.SelectedContacts)
			for _, bucket := range Aggregate(tasks, GroupByPIC) {
				if len(selected) > 0 && !selected[bucket.Key] {
					continue
				}
				contact, ok := findContact(s.Contacts, bucket.Key)
				if !ok {
					plan.Skips = append(plan.Skips, Skip{Kind: kind, TargetType: TargetContact, Name: bucket.Key, Reason: "no contact with this name"})
					continue
				}
				if contact.PhoneNumber == "" {
					plan.Skips = append(plan.Skips, Skip{Kind: kind, TargetType: TargetContact, Name: bucket.Key, Reason: "contact has no phone number"})
					continue
				}
				plan.Jobs = append(plan.Jobs, Job{
					Kind:       kind,
					TargetType: TargetContact,
					Recipient:  contact.Name,
					Target:     contact.PhoneNumber,
					Message:    render(bucket.Key, bucket.Tasks, false),
					TaskCount:  len(bucket.Tasks),
				})
			}
		}
	}

	if targets.UseGroups && s.WhatsApp.UseGroups {
		all := Aggregate(tasks, GroupByNone)[0].Tasks
		message := render(s.GroupLabel, all, true)
		if len(targets.SelectedGroups) == 0 && s.WhatsApp.GroupID != "" {
			plan.Jobs = append(plan.Jobs, Job{
				Kind:       kind,
				TargetType: TargetGroup,
				Recipient:  s.GroupLabel,
				Target:     s.WhatsApp.GroupID,
				Message:    message,
				TaskCount:  len(all),
			})
		}
		for _, name := range targets.SelectedGroups {
			group, ok := findGroup(s.Groups, name)
			if !ok || group.GroupID == "" {
				plan.Skips = append(plan.Skips, Skip{Kind: kind, TargetType: TargetGroup, Name: name, Reason: "no group with this name"})
				continue
			}
			plan.Jobs = append(plan.Jobs, Job{
				Kind:       kind,
				TargetType: TargetGroup,
				Recipient:  group.Name,
				Target:     group.GroupID,
				Message:    message,
				TaskCount:  len(all),
			})
		}
	}

	return plan
}

// filterTasks keeps the tasks accepted by keep, sorted by deadline ascending.
func filterTasks(tasks []model.Task, keep func(model.Task) bool) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Deadline.Before(out[j].Deadline)
	})
	return out
}

func findContact(contacts []model.Contact, name string) (model.Contact, bool) {
	for _, c := range contacts {
		if c.Name == name {
			return c, true
		}
	}
	return model.Contact{}, false
}

func findGroup(groups []model.WhatsAppGroup, name string) (model.WhatsAppGroup, bool) {
	for _, g := range groups {
		if g.Name == name {
			return g, true
		}
	}
	return model.WhatsAppGroup{}, false
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
