package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskboss/internal/model"
	"taskboss/internal/reminder"
	"taskboss/internal/service"
)

const (
	iconDefault = "🟢"
	iconDue     = "⏳"
	iconOverdue = "⚠️"
	iconParked  = "⏸️"
	noPIC       = "No PIC"
)

func escape(s string) string {
	return html.EscapeString(s)
}

// formatTaskList renders open tasks grouped by PIC and one row of inline
// buttons per task.
func formatTaskList(tasks []model.Task, now time.Time) (string, [][]tgbotapi.InlineKeyboardButton) {
	open := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if !task.Status.Closed() {
			open = append(open, task)
		}
	}
	if len(open) == 0 {
		return "No open tasks. Add one with /newtask.", nil
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Open tasks</b>\n")
	builder.WriteString("Use the buttons to complete or delete a task.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, bucket := range reminder.Aggregate(open, reminder.GroupByPIC) {
		name := bucket.Key
		if name == "" {
			name = noPIC
		}
		builder.WriteString(fmt.Sprintf("👤 <b>%s</b>\n", escape(name)))
		for _, task := range bucket.Tasks {
			builder.WriteString(formatTask(task, now))
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ "+shortTitle(task.Title, 24), cbCompletePrefix+task.ID),
				tgbotapi.NewInlineKeyboardButtonData("\U0001F5D1", cbDeletePrefix+task.ID),
			))
		}
		builder.WriteByte('\n')
	}
	return strings.TrimSpace(builder.String()), buttons
}

func formatTask(task model.Task, now time.Time) string {
	c := reminder.Classify(task.Deadline, task.Status, now)
	icon := iconDefault
	switch {
	case task.Status.Parked():
		icon = iconParked
	case c.Label == reminder.LabelOverdue:
		icon = iconOverdue
	case c.Label == reminder.LabelToday || c.Days <= 2:
		icon = iconDue
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s", icon, escape(task.Title)))
	if task.Location != "" {
		b.WriteString(fmt.Sprintf(" (%s)", escape(task.Location)))
	}
	b.WriteByte('\n')

	deadline := task.Deadline.In(now.Location()).Format("2006-01-02")
	if task.Status.Parked() {
		b.WriteString(fmt.Sprintf("   ⏰ %s · %s\n", deadline, task.Status))
		return b.String()
	}
	status := reminder.TaskPhrase(task, now, model.DefaultStatusMessages())
	b.WriteString(fmt.Sprintf("   ⏰ %s · %s · %s\n", deadline, escape(status), reminder.DisplayStatus(task, now)))
	return b.String()
}

func formatCreated(task model.Task, loc *time.Location) string {
	var summary strings.Builder
	summary.WriteString("✅ <b>Task saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(task.Title)))
	summary.WriteString(fmt.Sprintf("• <b>PIC:</b> %s\n", escape(task.PIC)))
	if task.Location != "" {
		summary.WriteString(fmt.Sprintf("• <b>Location:</b> %s\n", escape(task.Location)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Deadline:</b> %s\n", task.Deadline.In(loc).Format("2006-01-02")))
	summary.WriteString(fmt.Sprintf("• <b>Priority:</b> %s\n", task.Priority))
	return strings.TrimSpace(summary.String())
}

func formatPlan(plan reminder.Plan) string {
	if len(plan.Jobs) == 0 && len(plan.Skips) == 0 {
		return "Nothing to remind about."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("👀 <b>%d message(s), %d task(s)</b>\n", len(plan.Jobs), plan.TaskCount))
	for _, job := range plan.Jobs {
		b.WriteString(fmt.Sprintf("\n<b>→ %s</b> (%s)\n<pre>%s</pre>\n", escape(job.Recipient), job.TargetType, escape(job.Message)))
	}
	writeSkips(&b, plan.Skips)
	return strings.TrimSpace(b.String())
}

func formatDispatch(out *service.Dispatch) string {
	if len(out.Results) == 0 && len(out.Plan.Skips) == 0 {
		return "Nothing to remind about."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📨 <b>Sent %d, failed %d</b>\n", out.Sent, out.Failed))
	for _, res := range out.Results {
		if res.Sent {
			b.WriteString(fmt.Sprintf("✅ %s · %d task(s)\n", escape(res.Job.Recipient), res.Job.TaskCount))
		} else {
			b.WriteString(fmt.Sprintf("❌ %s: %s\n", escape(res.Job.Recipient), escape(res.Error)))
		}
	}
	writeSkips(&b, out.Plan.Skips)
	return strings.TrimSpace(b.String())
}

func writeSkips(b *strings.Builder, skips []reminder.Skip) {
	for _, skip := range skips {
		b.WriteString(fmt.Sprintf("⚠️ skipped %s: %s\n", escape(skip.Name), escape(skip.Reason)))
	}
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
