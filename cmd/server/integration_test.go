package main

import (
	"context"
	"os"
	"testing"
	"time"

	"taskboard/internal/cache"
	"taskboard/internal/config"
	"taskboard/internal/models"
	"taskboard/internal/services"
	"taskboard/internal/storage"
	"taskboard/internal/store"
)

func TestApplicationStartupConfig(t *testing.T) {
	os.Setenv("ENVIRONMENT", "development")
	os.Setenv("STORAGE_DRIVER", "sqlite")
	defer func() {
		os.Unsetenv("ENVIRONMENT")
		os.Unsetenv("STORAGE_DRIVER")
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Expected sqlite driver, got %q", cfg.Storage.Driver)
	}
}

// The full workflow over a real sqlite-backed store: seed an admin,
// register a member, assign a task, complete it, then run the unlock
// request through approval.
func TestTaskLifecycleIntegration(t *testing.T) {
	kv, err := storage.OpenGormKV("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	defer kv.Close()

	ctx := context.Background()
	recordStore := store.New(kv)
	if err := recordStore.LoadAll(ctx); err != nil {
		t.Fatalf("Failed to load collections: %v", err)
	}

	authService := services.NewAuthService(recordStore, "integration-secret", 15*time.Minute, 24*time.Hour, 4)
	registerService := services.NewRegisterService(recordStore, authService)
	taskService := services.NewTaskService(recordStore)
	editRequestService := services.NewEditRequestService(recordStore)
	statsService := services.NewStatsService(recordStore, cache.NewMemoryCache(), time.Minute)

	adminHash, err := authService.HashPassword("admin-password")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	adminRecord, err := models.NewUser("admin", "admin@example.com", adminHash, models.RoleAdmin)
	if err != nil {
		t.Fatalf("Failed to build admin: %v", err)
	}
	admin, err := recordStore.AddUser(ctx, *adminRecord)
	if err != nil {
		t.Fatalf("Failed to seed admin: %v", err)
	}

	member, err := registerService.RegisterUser(ctx, services.RegistrationRequest{
		Username: "dana",
		Email:    "dana@example.com",
		Password: "long-enough-pass",
	})
	if err != nil {
		t.Fatalf("Failed to register member: %v", err)
	}

	logged, err := authService.LoginUser(ctx, "dana", "long-enough-pass")
	if err != nil {
		t.Fatalf("Failed to log in member: %v", err)
	}
	if logged.LastLoginAt == nil {
		t.Error("Login should stamp the last-login date")
	}

	start := time.Now()
	view, err := taskService.CreateTask(ctx, &admin, services.TaskInput{
		Title:      "Prepare onboarding docs",
		AssigneeID: member.ID,
		StartDate:  start,
		EndDate:    start.Add(72 * time.Hour),
		Priority:   models.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	completed := models.StatusCompleted
	view, err = taskService.UpdateTask(ctx, member, view.ID, services.TaskPatch{Status: &completed})
	if err != nil {
		t.Fatalf("Failed to complete task: %v", err)
	}
	if !view.LockedForEditing {
		t.Fatal("Completing a task must lock it")
	}

	if _, err := taskService.UpdateTask(ctx, member, view.ID, services.TaskPatch{Description: strPtr("late edit")}); err == nil {
		t.Fatal("Editing a locked task must be rejected")
	}

	request, err := editRequestService.Submit(ctx, member, view.ID, "forgot the checklist link")
	if err != nil {
		t.Fatalf("Failed to submit edit request: %v", err)
	}
	if _, err := editRequestService.Approve(ctx, &admin, request.ID); err != nil {
		t.Fatalf("Failed to approve edit request: %v", err)
	}

	view, err = taskService.GetTask(member, view.ID)
	if err != nil {
		t.Fatalf("Failed to re-read task: %v", err)
	}
	if view.LockedForEditing {
		t.Error("Approval must unlock the task")
	}

	// A second process over the same backend sees the identical state.
	reloaded := store.New(kv)
	if err := reloaded.LoadAll(ctx); err != nil {
		t.Fatalf("Failed to reload collections: %v", err)
	}
	persisted, err := reloaded.TaskByID(view.ID)
	if err != nil {
		t.Fatalf("Failed to find persisted task: %v", err)
	}
	if persisted.LockedForEditing {
		t.Error("Unlock must survive a reload from storage")
	}

	snapshot, err := statsService.Refresh()
	if err != nil {
		t.Fatalf("Failed to compute stats: %v", err)
	}
	if snapshot.TotalTasks != 1 || snapshot.TotalUsers != 2 {
		t.Errorf("Expected 1 task and 2 users in snapshot, got %d and %d",
			snapshot.TotalTasks, snapshot.TotalUsers)
	}
}

func strPtr(s string) *string { return &s }
