package reminder

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"taskboss/internal/model"
)

// Placeholder names understood by Render. In templates they appear in braces.
const (
	PlaceholderTasks          = "tasks"
	PlaceholderReminderNumber = "reminder_number"
	PlaceholderName           = "name"
	PlaceholderDays           = "days"
)

// Values maps placeholder names (without braces) to their replacement.
type Values map[string]string

// Render replaces every "{key}" in template with values[key]. Unknown
// placeholders are left untouched. Replacement is a single pass, so text
// inserted for one placeholder is never expanded again.
func Render(template string, values Values) string {
	if len(values) == 0 {
		return template
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", values[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// StatusMessage returns the phrase for a classification, falling back to the
// default phrase when the configured one is blank.
func StatusMessage(c Classification, msgs model.TaskStatusMessages) string {
	defaults := model.DefaultStatusMessages()
	switch c.Label {
	case LabelOverdue:
		return orDefault(msgs.Overdue, defaults.Overdue)
	case LabelToday:
		return orDefault(msgs.Today, defaults.Today)
	default:
		tmpl := orDefault(msgs.Upcoming, defaults.Upcoming)
		return Render(tmpl, Values{PlaceholderDays: strconv.Itoa(c.Days)})
	}
}

// TaskLine renders "- title (location) - status". With withPIC the person in
// charge is appended in brackets after the location.
func TaskLine(task model.Task, now time.Time, msgs model.TaskStatusMessages, withPIC bool) string {
	var sb strings.Builder
	sb.WriteString("- ")
	sb.WriteString(strings.TrimSpace(task.Title))
	sb.WriteString(" (")
	sb.WriteString(task.Location)
	sb.WriteString(")")
	if withPIC && task.PIC != "" {
		sb.WriteString(" [")
		sb.WriteString(task.PIC)
		sb.WriteString("]")
	}
	sb.WriteString(" - ")
	sb.WriteString(TaskPhrase(task, now, msgs))
	return sb.String()
}

// TaskPhrase is the status shown for a task in a reminder. Hold, to-review,
// completed and canceled tasks show their stored status; the deadline phrases
// only apply to tasks that are still being worked on.
func TaskPhrase(task model.Task, now time.Time, msgs model.TaskStatusMessages) string {
	if task.Status.Parked() || task.Status.Closed() {
		return string(task.Status)
	}
	return StatusMessage(Classify(task.Deadline, task.Status, now), msgs)
}

// TaskList joins the task lines with newlines.
func TaskList(tasks []model.Task, now time.Time, msgs model.TaskStatusMessages, withPIC bool) string {
	lines := make([]string, 0, len(tasks))
	for _, task := range tasks {
		lines = append(lines, TaskLine(task, now, msgs, withPIC))
	}
	return strings.Join(lines, "\n")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
