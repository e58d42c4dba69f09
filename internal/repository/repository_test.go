package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"taskboss/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("NewDB() = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() = %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestTaskRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	base := time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC)

	tasks := []*model.Task{
		{UserID: 1, Title: "later", Deadline: base.AddDate(0, 0, 3), Status: model.StatusTodo, PIC: "Alice", Priority: model.PriorityLow, Location: "RUMAH"},
		{UserID: 1, Title: "sooner", Deadline: base.AddDate(0, 0, 1), Status: model.StatusInProgress, PIC: "Bob", Priority: model.PriorityHigh, Location: "BOSQU"},
		{UserID: 2, Title: "someone else", Deadline: base, Status: model.StatusTodo, PIC: "Alice", Priority: model.PriorityMedium},
	}
	for _, task := range tasks {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("Create() = %v", err)
		}
		if task.ID == "" {
			t.Fatal("Create() did not assign an id")
		}
	}

	list, err := repo.ListByUser(ctx, 1, TaskFilter{})
	if err != nil {
		t.Fatalf("ListByUser() = %v", err)
	}
	if len(list) != 2 || list[0].Title != "sooner" || list[1].Title != "later" {
		t.Fatalf("ListByUser() = %+v, want sooner then later", list)
	}

	filtered, err := repo.ListByUser(ctx, 1, TaskFilter{PIC: "Alice", Location: "RUMAH"})
	if err != nil || len(filtered) != 1 || filtered[0].Title != "later" {
		t.Fatalf("filtered = %+v, %v", filtered, err)
	}

	got, err := repo.FindByID(ctx, 1, tasks[0].ID)
	if err != nil {
		t.Fatalf("FindByID() = %v", err)
	}
	got.Status = model.StatusCompleted
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	done, err := repo.ListByUser(ctx, 1, TaskFilter{Status: model.StatusCompleted})
	if err != nil || len(done) != 1 {
		t.Fatalf("completed = %+v, %v", done, err)
	}

	if _, err := repo.FindByID(ctx, 2, tasks[0].ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("FindByID() for another user = %v, want not found", err)
	}
	if err := repo.Delete(ctx, 2, tasks[0].ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Delete() for another user = %v, want not found", err)
	}
	if err := repo.Delete(ctx, 1, tasks[0].ID); err != nil {
		t.Errorf("Delete() = %v", err)
	}

	n, err := repo.DeleteAll(ctx, 1)
	if err != nil || n != 1 {
		t.Errorf("DeleteAll() = %d, %v, want 1", n, err)
	}
	if rest, _ := repo.ListByUser(ctx, 2, TaskFilter{}); len(rest) != 1 {
		t.Errorf("other user's tasks = %d, want 1", len(rest))
	}
}

func TestTaskRepositoryReadsLegacyOverdueAsTodo(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTaskRepository(db)

	task := &model.Task{UserID: 1, Title: "old", Deadline: time.Now(), Status: model.StatusTodo}
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if err := db.Model(&model.Task{}).Where("id = ?", task.ID).Update("status", "overdue").Error; err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.FindByID(ctx, 1, task.ID)
	if err != nil {
		t.Fatalf("FindByID() = %v", err)
	}
	if got.Status != model.StatusTodo {
		t.Errorf("Status = %q, want todo", got.Status)
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	owner, err := repo.EnsureOwner(ctx, "BOSQU", "owner@test")
	if err != nil {
		t.Fatalf("EnsureOwner() = %v", err)
	}
	again, err := repo.EnsureOwner(ctx, "other", "owner@test")
	if err != nil || again.ID != owner.ID {
		t.Fatalf("EnsureOwner() twice = %+v, %v", again, err)
	}

	tg, err := repo.UpsertFromTelegram(ctx, 42, "Ann")
	if err != nil {
		t.Fatalf("UpsertFromTelegram() = %v", err)
	}
	renamed, err := repo.UpsertFromTelegram(ctx, 42, "Anna")
	if err != nil || renamed.ID != tg.ID {
		t.Fatalf("UpsertFromTelegram() twice = %+v, %v", renamed, err)
	}
	found, err := repo.FindByTelegramID(ctx, 42)
	if err != nil || found.Name != "Anna" {
		t.Fatalf("FindByTelegramID() = %+v, %v", found, err)
	}

	if err := repo.LinkTelegram(ctx, owner.ID, 7); err != nil {
		t.Fatalf("LinkTelegram() = %v", err)
	}
	linked, err := repo.FindByTelegramID(ctx, 7)
	if err != nil || linked.ID != owner.ID {
		t.Fatalf("linked = %+v, %v", linked, err)
	}

	all, err := repo.ListAll(ctx)
	if err != nil || len(all) != 2 {
		t.Errorf("ListAll() = %d users, %v", len(all), err)
	}
}

func TestSettingsRepositoryReplacesWholeDocument(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(newTestDB(t))

	if _, err := repo.Get(ctx, 1); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Get() before save = %v, want not found", err)
	}

	s := model.DefaultReminderSettings()
	s.Contacts = []model.Contact{{ID: "c1", Name: "Alice", PhoneNumber: "62811"}}
	if err := repo.Save(ctx, 1, s); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	s.Contacts = nil
	s.NameInReminder = "Boss"
	if err := repo.Save(ctx, 1, s); err != nil {
		t.Fatalf("second Save() = %v", err)
	}

	got, err := repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if got.NameInReminder != "Boss" {
		t.Errorf("NameInReminder = %q", got.NameInReminder)
	}
	if len(got.Contacts) != 0 {
		t.Errorf("Contacts = %+v, want replaced with empty", got.Contacts)
	}
	if got.DailyReminders.Message != model.DefaultDailyMessage {
		t.Errorf("daily message not round-tripped")
	}
}
