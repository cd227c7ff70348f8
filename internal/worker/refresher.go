// Package worker runs the periodic derived-state refreshes: the wall-clock
// tick, the deadline recalculation sweep and the aggregate statistics
// refresh. All loops are detached on shutdown so nothing recomputes against
// a stopped application.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"taskboard/internal/deadline"
	"taskboard/internal/models"
	"taskboard/internal/services"
	"taskboard/internal/store"
)

// DeadlineAlert is one entry in the current alert snapshot: a visible task
// that is due, imminent or overdue.
type DeadlineAlert struct {
	TaskID  int64            `json:"task_id"`
	OwnerID int64            `json:"owner_id"`
	Title   string           `json:"title"`
	Urgency deadline.Urgency `json:"urgency"`
	Label   string           `json:"label"`
}

type Refresher struct {
	store *store.Store
	stats services.StatsService

	clockInterval    time.Duration
	deadlineInterval time.Duration
	statsInterval    time.Duration

	mu     sync.RWMutex
	now    time.Time
	alerts []DeadlineAlert

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type RefresherConfig struct {
	Store            *store.Store
	Stats            services.StatsService
	ClockInterval    time.Duration
	DeadlineInterval time.Duration
	StatsInterval    time.Duration
}

func NewRefresher(config RefresherConfig) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		store:            config.Store,
		stats:            config.Stats,
		clockInterval:    config.ClockInterval,
		deadlineInterval: config.DeadlineInterval,
		statsInterval:    config.StatsInterval,
		now:              time.Now(),
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Start launches the three refresh loops. Each runs an immediate pass first
// so the derived state exists before the first tick.
func (r *Refresher) Start() {
	log.Printf("Starting refresher (clock %v, deadlines %v, stats %v)",
		r.clockInterval, r.deadlineInterval, r.statsInterval)

	r.sweepDeadlines()
	if _, err := r.stats.Refresh(); err != nil {
		log.Printf("refresher: initial stats refresh failed: %v", err)
	}

	r.wg.Add(3)
	go r.loop(r.clockInterval, r.tickClock)
	go r.loop(r.deadlineInterval, r.sweepDeadlines)
	go r.loop(r.statsInterval, r.refreshStats)
}

// Stop detaches every loop and waits for them to exit.
func (r *Refresher) Stop() {
	log.Println("Stopping refresher...")
	r.cancel()
	r.wg.Wait()
	log.Println("Refresher stopped")
}

func (r *Refresher) loop(interval time.Duration, fn func()) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (r *Refresher) tickClock() {
	r.mu.Lock()
	r.now = time.Now()
	r.mu.Unlock()
}

// Now returns the wall-clock snapshot maintained by the clock tick.
func (r *Refresher) Now() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.now
}

// sweepDeadlines reclassifies every task and rebuilds the alert snapshot.
// Classification is derived state only; task records are never written here.
func (r *Refresher) sweepDeadlines() {
	now := time.Now()
	alerts := []DeadlineAlert{}
	for _, task := range r.store.Tasks() {
		classification := deadline.ClassifyTask(&task, now)
		switch classification.Urgency {
		case deadline.UrgencyOverdue, deadline.UrgencyToday, deadline.UrgencyUrgent:
			alerts = append(alerts, DeadlineAlert{
				TaskID:  task.ID,
				OwnerID: task.OwnerID,
				Title:   task.Title,
				Urgency: classification.Urgency,
				Label:   classification.Label,
			})
		}
	}

	r.mu.Lock()
	r.now = now
	r.alerts = alerts
	r.mu.Unlock()
}

func (r *Refresher) refreshStats() {
	if _, err := r.stats.Refresh(); err != nil {
		log.Printf("refresher: stats refresh failed: %v", err)
	}
}

// Alerts returns the current deadline alerts, optionally narrowed to tasks
// the given user owns or is assigned.
func (r *Refresher) Alerts(user *models.User) []DeadlineAlert {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if user == nil || user.IsAdmin() {
		out := make([]DeadlineAlert, len(r.alerts))
		copy(out, r.alerts)
		return out
	}

	out := []DeadlineAlert{}
	for _, alert := range r.alerts {
		task, err := r.store.TaskByID(alert.TaskID)
		if err != nil {
			continue
		}
		if task.OwnerID == user.ID || task.AssigneeID == user.ID {
			out = append(out, alert)
		}
	}
	return out
}
