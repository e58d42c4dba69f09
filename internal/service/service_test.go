package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"taskboss/internal/model"
	"taskboss/internal/reminder"
	"taskboss/internal/repository"
)

var wib = time.FixedZone("WIB", 7*60*60)

var testNow = time.Date(2025, time.April, 14, 9, 0, 0, 0, wib)

func fixedClock() time.Time { return testNow }

func daysFromNow(n int) *time.Time {
	t := testNow.AddDate(0, 0, n)
	return &t
}

type sentMessage struct {
	apiKey, target, message string
}

// fakeSender records messages and fails for targets listed in failFor.
type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]bool
}

func (f *fakeSender) Send(ctx context.Context, apiKey, target, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[target] {
		return fmt.Errorf("gateway down for %s", target)
	}
	f.sent = append(f.sent, sentMessage{apiKey, target, message})
	return nil
}

type fixture struct {
	tasks     *TaskService
	settings  *SettingsService
	reminders *ReminderService
	reports   *ReportService
	users     *repository.UserRepository
	sender    *fakeSender
	userID    uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("NewDB() = %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })

	taskRepo := repository.NewTaskRepository(db)
	users := repository.NewUserRepository(db)
	settings := NewSettingsService(repository.NewSettingsRepository(db))
	sender := &fakeSender{failFor: map[string]bool{}}

	owner, err := users.EnsureOwner(context.Background(), "BOSQU", "owner@test")
	if err != nil {
		t.Fatalf("EnsureOwner() = %v", err)
	}

	return &fixture{
		tasks:     NewTaskService(taskRepo, fixedClock),
		settings:  settings,
		reminders: NewReminderService(taskRepo, settings, sender, time.Second),
		reports:   NewReportService(taskRepo, fixedClock),
		users:     users,
		sender:    sender,
		userID:    owner.ID,
	}
}

func (f *fixture) addTask(t *testing.T, title, pic string, deadline *time.Time, status model.Status) *model.Task {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), f.userID, TaskInput{
		Title: title, PIC: pic, Deadline: deadline, Status: status, Location: model.LocationHome,
	})
	if err != nil {
		t.Fatalf("CreateTask(%s) = %v", title, err)
	}
	return task
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input TaskInput
	}{
		{"missing title", TaskInput{PIC: "Bo", Deadline: daysFromNow(1)}},
		{"missing pic", TaskInput{Title: "x", Deadline: daysFromNow(1)}},
		{"missing deadline", TaskInput{Title: "x", PIC: "Bo"}},
		{"overdue cannot be stored", TaskInput{Title: "x", PIC: "Bo", Deadline: daysFromNow(1), Status: model.StatusOverdue}},
		{"unknown status", TaskInput{Title: "x", PIC: "Bo", Deadline: daysFromNow(1), Status: "done"}},
		{"unknown priority", TaskInput{Title: "x", PIC: "Bo", Deadline: daysFromNow(1), Priority: "urgent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.tasks.CreateTask(ctx, f.userID, tt.input); !errors.Is(err, ErrValidation) {
				t.Errorf("CreateTask() = %v, want ErrValidation", err)
			}
		})
	}

	task, err := f.tasks.CreateTask(ctx, f.userID, TaskInput{Title: "  ok  ", PIC: "Bo", Deadline: daysFromNow(1)})
	if err != nil {
		t.Fatalf("CreateTask() = %v", err)
	}
	if task.Title != "ok" || task.Status != model.StatusTodo || task.Priority != model.PriorityMedium {
		t.Errorf("defaults not applied: %+v", task)
	}
}

func TestTaskDisplayStatusIsDerived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late := f.addTask(t, "late", "Bo", daysFromNow(-2), model.StatusTodo)
	f.addTask(t, "parked", "Bo", daysFromNow(-2), model.StatusHold)
	f.addTask(t, "fine", "Bo", daysFromNow(2), model.StatusTodo)

	if late.DisplayStatus != model.StatusOverdue || late.Status != model.StatusTodo {
		t.Errorf("late task: status=%s display=%s", late.Status, late.DisplayStatus)
	}

	overdue, err := f.tasks.ListTasks(ctx, f.userID, repository.TaskFilter{Status: model.StatusOverdue})
	if err != nil {
		t.Fatalf("ListTasks() = %v", err)
	}
	if len(overdue) != 1 || overdue[0].Title != "late" {
		t.Errorf("overdue filter = %+v", overdue)
	}

	done, err := f.tasks.SetStatus(ctx, f.userID, late.ID, model.StatusCompleted)
	if err != nil {
		t.Fatalf("SetStatus() = %v", err)
	}
	if done.DisplayStatus != model.StatusCompleted {
		t.Errorf("DisplayStatus = %s, want completed", done.DisplayStatus)
	}
	if _, err := f.tasks.SetStatus(ctx, f.userID, late.ID, model.StatusOverdue); !errors.Is(err, ErrValidation) {
		t.Errorf("SetStatus(overdue) = %v, want ErrValidation", err)
	}
}

func TestTaskNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.tasks.GetTask(ctx, f.userID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTask() = %v", err)
	}
	if err := f.tasks.DeleteTask(ctx, f.userID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteTask() = %v", err)
	}
	if _, err := f.tasks.UpdateTask(ctx, f.userID, "missing", TaskInput{Title: "x", PIC: "y", Deadline: daysFromNow(0)}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateTask() = %v", err)
	}
}

func TestSettingsDefaultsAndSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.settings.Get(ctx, f.userID)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if len(s.DailyReminders.Times) != 3 || s.AdvanceReminders.Days != 14 || s.NameInReminder != "BOSQU" {
		t.Errorf("defaults = %+v", s)
	}

	var hooked model.ReminderSettings
	f.settings.OnSave(func(userID uint, saved model.ReminderSettings) error {
		hooked = saved
		return nil
	})

	s.Contacts = []model.Contact{{Name: " Alice ", PhoneNumber: "62811"}}
	s.Groups = []model.WhatsAppGroup{{Name: "Ops", GroupID: "1@g.us"}}
	saved, err := f.settings.Save(ctx, f.userID, s)
	if err != nil {
		t.Fatalf("Save() = %v", err)
	}
	if saved.Contacts[0].Name != "Alice" || saved.Contacts[0].ID == "" || saved.Groups[0].ID == "" {
		t.Errorf("contacts not normalized: %+v %+v", saved.Contacts, saved.Groups)
	}
	if len(hooked.Contacts) != 1 {
		t.Errorf("OnSave hook not called")
	}

	again, err := f.settings.Get(ctx, f.userID)
	if err != nil || again.Contacts[0].ID != saved.Contacts[0].ID {
		t.Errorf("Get() after save = %+v, %v", again.Contacts, err)
	}
}

func TestSettingsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.ReminderSettings)
	}{
		{"bad daily time", func(s *model.ReminderSettings) { s.DailyReminders.Times[0].Time = "25:00" }},
		{"bad advance time", func(s *model.ReminderSettings) { s.AdvanceReminders.Time = "7am" }},
		{"empty daily message", func(s *model.ReminderSettings) { s.DailyReminders.Message = " " }},
		{"duplicate contact", func(s *model.ReminderSettings) {
			s.Contacts = []model.Contact{{Name: "A", PhoneNumber: "1"}, {Name: "A", PhoneNumber: "2"}}
		}},
		{"contact without phone", func(s *model.ReminderSettings) { s.Contacts = []model.Contact{{Name: "A"}} }},
		{"group without id", func(s *model.ReminderSettings) { s.Groups = []model.WhatsAppGroup{{Name: "G"}} }},
		{"window too long", func(s *model.ReminderSettings) { s.AdvanceReminders.Days = 1000 }},
		{"zero day window", func(s *model.ReminderSettings) { s.AdvanceReminders.Days = 0 }},
		{"negative window", func(s *model.ReminderSettings) { s.AdvanceReminders.Days = -3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := model.DefaultReminderSettings()
			tt.mutate(&s)
			if _, err := f.settings.Save(ctx, f.userID, s); !errors.Is(err, ErrValidation) {
				t.Errorf("Save() = %v, want ErrValidation", err)
			}
		})
	}
}

func (f *fixture) saveSettings(t *testing.T, mutate func(*model.ReminderSettings)) {
	t.Helper()
	s := model.DefaultReminderSettings()
	s.WhatsApp.APIKey = "key-1"
	mutate(&s)
	if _, err := f.settings.Save(context.Background(), f.userID, s); err != nil {
		t.Fatalf("Save() = %v", err)
	}
}

func TestDispatchSendsToResolvedContacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.saveSettings(t, func(s *model.ReminderSettings) {
		s.DailyReminders.Message = "{name} #{reminder_number}\n{tasks}"
		s.Contacts = []model.Contact{{Name: "Alice", PhoneNumber: "62811"}, {Name: "Bob", PhoneNumber: "62822"}}
	})
	f.addTask(t, "a", "Alice", daysFromNow(0), model.StatusTodo)
	f.addTask(t, "b", "Bob", daysFromNow(1), model.StatusTodo)
	f.addTask(t, "c", "Charlie", daysFromNow(1), model.StatusTodo)
	f.addTask(t, "d", "Alice", daysFromNow(1), model.StatusCompleted)
	f.sender.failFor["62822"] = true

	out, err := f.reminders.Dispatch(ctx, f.userID, reminder.KindDaily, 2, testNow)
	if err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
	if len(out.Results) != 2 || out.Sent != 1 || out.Failed != 1 {
		t.Fatalf("results = %+v", out)
	}
	if out.Results[1].Sent || out.Results[1].Err() == nil {
		t.Errorf("Bob's send should have failed: %+v", out.Results[1])
	}
	if len(out.Plan.Skips) != 1 || out.Plan.Skips[0].Name != "Charlie" {
		t.Errorf("skips = %+v", out.Plan.Skips)
	}

	if len(f.sender.sent) != 1 {
		t.Fatalf("sent %d messages", len(f.sender.sent))
	}
	msg := f.sender.sent[0]
	if msg.apiKey != "key-1" || msg.target != "62811" {
		t.Errorf("sent = %+v", msg)
	}
	if want := "Alice #2\n- a (RUMAH) - this is the day!!"; msg.message != want {
		t.Errorf("message = %q, want %q", msg.message, want)
	}
}

func TestDispatchConfigurationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTask(t, "a", "Charlie", daysFromNow(1), model.StatusTodo)

	var cfgErr *reminder.ConfigurationError

	// Defaults carry no api key.
	if _, err := f.reminders.Dispatch(ctx, f.userID, reminder.KindDaily, 1, testNow); !errors.As(err, &cfgErr) {
		t.Errorf("missing key: Dispatch() = %v", err)
	}

	f.saveSettings(t, func(s *model.ReminderSettings) {
		s.Contacts = []model.Contact{{Name: "Alice", PhoneNumber: "62811"}}
	})
	if _, err := f.reminders.Dispatch(ctx, f.userID, reminder.KindDaily, 1, testNow); !errors.As(err, &cfgErr) {
		t.Errorf("unresolvable: Dispatch() = %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Errorf("messages sent despite configuration error")
	}

	if _, err := f.reminders.Dispatch(ctx, f.userID, "weekly", 1, testNow); !errors.Is(err, ErrValidation) {
		t.Errorf("bad kind: Dispatch() = %v", err)
	}
}

func TestPlanAdvanceDoesNotSend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.saveSettings(t, func(s *model.ReminderSettings) {
		s.WhatsApp.PhoneNumber = "628000"
		s.AdvanceReminders.Days = 3
	})
	f.addTask(t, "in window", "Bo", daysFromNow(3), model.StatusTodo)
	f.addTask(t, "outside", "Bo", daysFromNow(4), model.StatusTodo)

	plan, err := f.reminders.Plan(ctx, f.userID, reminder.KindAdvance, 0, testNow)
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}
	if len(plan.Jobs) != 1 || plan.TaskCount != 1 || plan.Jobs[0].Target != "628000" {
		t.Errorf("plan = %+v", plan)
	}
	if !strings.Contains(plan.Jobs[0].Message, "Untuk 3 hari ke depan") {
		t.Errorf("window not rendered: %q", plan.Jobs[0].Message)
	}
	if len(f.sender.sent) != 0 {
		t.Errorf("Plan() sent messages")
	}
}

func TestSendTest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.saveSettings(t, func(s *model.ReminderSettings) {
		s.Contacts = []model.Contact{{Name: "Alice", PhoneNumber: "62811"}}
		s.DailyTargets.SelectedContacts = []string{"Alice"}
	})

	job, err := f.reminders.SendTest(ctx, f.userID, reminder.KindDaily)
	if err != nil {
		t.Fatalf("SendTest() = %v", err)
	}
	if job.Target != "62811" || !strings.Contains(job.Message, "Sample task 1") {
		t.Errorf("job = %+v", job)
	}

	f.saveSettings(t, func(s *model.ReminderSettings) {})
	var cfgErr *reminder.ConfigurationError
	if _, err := f.reminders.SendTest(ctx, f.userID, reminder.KindDaily); !errors.As(err, &cfgErr) {
		t.Errorf("no recipient: SendTest() = %v", err)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addTask(t, "late", "Bo", daysFromNow(-1), model.StatusInProgress)
	f.addTask(t, "today", "Bo", daysFromNow(0), model.StatusCompleted)
	f.addTask(t, "soon", "Al", daysFromNow(2), model.StatusInProgress)
	f.addTask(t, "dropped", "Al", daysFromNow(2), model.StatusCanceled)

	sum, err := f.reports.Summary(ctx, f.userID, "", "")
	if err != nil {
		t.Fatalf("Summary() = %v", err)
	}
	if sum.Total != 4 || sum.Completed != 1 || sum.Overdue != 1 || sum.InProgress != 1 {
		t.Errorf("counts = %+v", sum)
	}
	if len(sum.Today) != 1 || len(sum.Upcoming) != 1 || len(sum.Late) != 1 {
		t.Errorf("lists today=%d upcoming=%d late=%d", len(sum.Today), len(sum.Upcoming), len(sum.Late))
	}
	if sum.ByPIC["Bo"] != 2 || sum.ByLocation[model.LocationHome] != 4 {
		t.Errorf("ByPIC=%v ByLocation=%v", sum.ByPIC, sum.ByLocation)
	}

	narrowed, err := f.reports.Summary(ctx, f.userID, "Al", "")
	if err != nil || narrowed.Total != 2 {
		t.Errorf("narrowed = %+v, %v", narrowed, err)
	}
}

func TestReminderSchedulerRegistersEnabledSlots(t *testing.T) {
	f := newFixture(t)
	scheduler := NewSchedulerService(wib)
	rs := NewReminderScheduler(scheduler, f.reminders, f.settings, f.users, fixedClock)

	s := model.DefaultReminderSettings()
	s.DailyReminders.Times[1].Enabled = false
	if err := rs.Reschedule(f.userID, s); err != nil {
		t.Fatalf("Reschedule() = %v", err)
	}
	if got := scheduler.GroupSize(groupKey(f.userID)); got != 3 {
		t.Errorf("jobs = %d, want 2 daily + 1 advance", got)
	}

	s.WhatsApp.Enabled = false
	if err := rs.Reschedule(f.userID, s); err != nil {
		t.Fatalf("Reschedule() = %v", err)
	}
	if got := scheduler.GroupSize(groupKey(f.userID)); got != 0 {
		t.Errorf("jobs with whatsapp disabled = %d, want 0", got)
	}

	if err := rs.RescheduleAll(context.Background()); err != nil {
		t.Fatalf("RescheduleAll() = %v", err)
	}
	if got := scheduler.GroupSize(groupKey(f.userID)); got != 4 {
		t.Errorf("jobs after RescheduleAll = %d, want defaults (3 daily + 1 advance)", got)
	}
}

func TestSchedulerReplaceGroupIsAllOrNothing(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	noop := func() {}

	if err := s.ReplaceGroup("k", []DailyJob{{Time: "08:00", Run: noop}, {Time: "09:30", Run: noop}}); err != nil {
		t.Fatalf("ReplaceGroup() = %v", err)
	}
	if s.GroupSize("k") != 2 {
		t.Fatalf("GroupSize() = %d", s.GroupSize("k"))
	}
	if err := s.ReplaceGroup("k", []DailyJob{{Time: "10:00", Run: noop}, {Time: "bad", Run: noop}}); err == nil {
		t.Fatal("ReplaceGroup() accepted a bad time")
	}
	if s.GroupSize("k") != 0 {
		t.Errorf("GroupSize() after failed replace = %d, want 0", s.GroupSize("k"))
	}
}
