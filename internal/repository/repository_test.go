package repository

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"deadline-planner/internal/model"
	"deadline-planner/internal/planner"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "planner.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestUserUpsert(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(newTestDB(t))

	first, err := users.UpsertFromTelegram(ctx, 42, "Ann", "", "ann")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := users.UpsertFromTelegram(ctx, 42, "Anna", "K", "anna")
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("upsert created a second user: %d vs %d", first.ID, second.ID)
	}
	found, err := users.FindByTelegramID(ctx, 42)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.FirstName != "Anna" {
		t.Fatalf("FirstName = %q, want Anna", found.FirstName)
	}

	at := time.Date(2025, time.October, 27, 6, 0, 0, 0, time.UTC)
	if err := users.TouchPlan(ctx, found.ID, at); err != nil {
		t.Fatalf("touch plan: %v", err)
	}
	all, err := users.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 || all[0].LastPlanAt == nil || !all[0].LastPlanAt.Equal(at) {
		t.Fatalf("ListAll = %+v", all)
	}
}

func TestTaskRepositoryOpenAndSaveAll(t *testing.T) {
	ctx := context.Background()
	tasks := NewTaskRepository(newTestDB(t))
	deadline := time.Date(2025, time.October, 28, 18, 0, 0, 0, time.UTC)

	records := []model.Task{
		{UserID: 1, Title: "Report", Deadline: deadline, DurationMinutes: 180, Priority: "high", Status: "pending"},
		{UserID: 1, Title: "Done", Deadline: deadline, DurationMinutes: 30, Priority: "low", Status: "completed"},
		{UserID: 1, Title: "Dropped", Deadline: deadline, DurationMinutes: 30, Priority: "low", Status: "cancelled"},
		{UserID: 2, Title: "Other user", Deadline: deadline, DurationMinutes: 30, Priority: "low", Status: "pending"},
	}
	for i := range records {
		if err := tasks.Create(ctx, &records[i]); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	open, err := tasks.ListOpen(ctx, 1)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 || open[0].Title != "Report" {
		t.Fatalf("ListOpen = %+v", open)
	}

	start := deadline.Add(-3 * time.Hour)
	open[0].Status = string(planner.StatusScheduled)
	open[0].ScheduledStart = &start
	open[0].ScheduledEnd = &deadline
	if err := tasks.SaveAll(ctx, open); err != nil {
		t.Fatalf("save all: %v", err)
	}

	scheduled, err := tasks.ListByStatus(ctx, 1, planner.StatusScheduled)
	if err != nil {
		t.Fatalf("list scheduled: %v", err)
	}
	if len(scheduled) != 1 || scheduled[0].ScheduledStart == nil || !scheduled[0].ScheduledStart.Equal(start) {
		t.Fatalf("ListByStatus = %+v", scheduled)
	}
}

func TestNewDBLogsQueryErrors(t *testing.T) {
	var buf bytes.Buffer
	db, err := NewDB(filepath.Join(t.TempDir(), "planner.db"), zerolog.New(&buf).Level(zerolog.InfoLevel))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if err := db.Exec("SELECT * FROM missing_table").Error; err == nil {
		t.Fatalf("expected query error")
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "missing_table") {
		t.Fatalf("query error missing from log: %q", out)
	}
}

func TestTaskRepositoryDeleteMissing(t *testing.T) {
	tasks := NewTaskRepository(newTestDB(t))
	if err := tasks.Delete(context.Background(), 1, 99); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Delete missing = %v, want ErrRecordNotFound", err)
	}
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	events := NewEventRepository(newTestDB(t))

	for _, e := range []model.FixedEvent{
		{UserID: 1, Name: "MATH285", Weekdays: "1,3", StartTime: "11:00", EndTime: "12:30"},
		{UserID: 1, Name: "CS101", Weekdays: "1,3", StartTime: "09:00", EndTime: "10:30"},
		{UserID: 2, Name: "Shift", Weekdays: "2", StartTime: "13:00", EndTime: "17:00"},
	} {
		e := e
		if err := events.Create(ctx, &e); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := events.ListByUser(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "CS101" {
		t.Fatalf("ListByUser = %+v", list)
	}

	if err := events.Delete(ctx, 2, list[0].ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("deleting another user's event = %v, want ErrRecordNotFound", err)
	}
	if err := events.Delete(ctx, 1, list[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := events.GetByID(ctx, 1, list[0].ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetByID after delete = %v", err)
	}
}
