package worker_test

import (
	"context"
	"testing"
	"time"

	"taskboard/internal/cache"
	"taskboard/internal/deadline"
	"taskboard/internal/models"
	"taskboard/internal/services"
	"taskboard/internal/storage"
	"taskboard/internal/store"
	"taskboard/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refresherFixture(t *testing.T) (*store.Store, *worker.Refresher, models.User) {
	t.Helper()
	ctx := context.Background()

	kv, err := storage.OpenFileKV(t.TempDir())
	require.NoError(t, err)
	s := store.New(kv)
	require.NoError(t, s.LoadAll(ctx))

	owner, err := s.AddUser(ctx, models.User{Username: "owner", Email: "owner@example.com", Password: "hash", Role: models.RoleUser})
	require.NoError(t, err)

	now := time.Now()
	_, err = s.AddTask(ctx, models.Task{
		OwnerID: owner.ID, Title: "overdue one",
		StartDate: now.AddDate(0, 0, -5), EndDate: now.AddDate(0, 0, -1),
		Priority: models.PriorityHigh, Status: models.StatusInProgress,
	})
	require.NoError(t, err)
	_, err = s.AddTask(ctx, models.Task{
		OwnerID: owner.ID, Title: "distant",
		StartDate: now, EndDate: now.AddDate(0, 0, 60),
		Priority: models.PriorityLow, Status: models.StatusNotStarted,
	})
	require.NoError(t, err)

	stats := services.NewStatsService(s, cache.NewMemoryCache(), time.Minute)
	r := worker.NewRefresher(worker.RefresherConfig{
		Store:            s,
		Stats:            stats,
		ClockInterval:    5 * time.Millisecond,
		DeadlineInterval: 10 * time.Millisecond,
		StatsInterval:    10 * time.Millisecond,
	})
	return s, r, owner
}

func TestRefresher_StartBuildsAlertSnapshot(t *testing.T) {
	_, r, owner := refresherFixture(t)

	r.Start()
	defer r.Stop()

	alerts := r.Alerts(&owner)
	require.Len(t, alerts, 1)
	assert.Equal(t, "overdue one", alerts[0].Title)
	assert.Equal(t, deadline.UrgencyOverdue, alerts[0].Urgency)
}

func TestRefresher_SweepPicksUpNewTasks(t *testing.T) {
	s, r, owner := refresherFixture(t)
	ctx := context.Background()

	r.Start()
	defer r.Stop()

	now := time.Now()
	_, err := s.AddTask(ctx, models.Task{
		OwnerID: owner.ID, Title: "due today",
		StartDate: now.AddDate(0, 0, -1), EndDate: now,
		Priority: models.PriorityMedium, Status: models.StatusNotStarted,
	})
	require.NoError(t, err)

	deadlineTick := func() bool {
		return len(r.Alerts(&owner)) == 2
	}
	assert.Eventually(t, deadlineTick, time.Second, 5*time.Millisecond)
}

func TestRefresher_StopDetachesLoops(t *testing.T) {
	_, r, _ := refresherFixture(t)

	r.Start()

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Refresher did not stop within two seconds")
	}
}

func TestRefresher_ClockAdvances(t *testing.T) {
	_, r, _ := refresherFixture(t)

	r.Start()
	defer r.Stop()

	first := r.Now()
	assert.Eventually(t, func() bool {
		return r.Now().After(first)
	}, time.Second, 5*time.Millisecond)
}

func TestRefresher_AlertScoping(t *testing.T) {
	s, r, _ := refresherFixture(t)
	ctx := context.Background()

	outsider, err := s.AddUser(ctx, models.User{Username: "outsider", Email: "out@example.com", Password: "hash", Role: models.RoleUser})
	require.NoError(t, err)
	admin, err := s.AddUser(ctx, models.User{Username: "boss", Email: "boss@example.com", Password: "hash", Role: models.RoleAdmin})
	require.NoError(t, err)

	r.Start()
	defer r.Stop()

	assert.Empty(t, r.Alerts(&outsider))
	assert.Len(t, r.Alerts(&admin), 1)
}
