package services

import (
	"fmt"
	"log"
	"sort"
	"time"

	"taskboard/internal/cache"
	"taskboard/internal/deadline"
	"taskboard/internal/models"
	"taskboard/internal/policy"
	"taskboard/internal/store"
)

const statsCacheKey = "taskboard:stats_snapshot"

// StatsSnapshot is the aggregate view behind the team dashboard charts.
type StatsSnapshot struct {
	GeneratedAt         time.Time      `json:"generated_at"`
	TotalTasks          int            `json:"total_tasks"`
	TotalUsers          int            `json:"total_users"`
	ByStatus            map[string]int `json:"by_status"`
	ByPriority          map[string]int `json:"by_priority"`
	ByUrgency           map[string]int `json:"by_urgency"`
	OverdueTasks        int            `json:"overdue_tasks"`
	DueToday            int            `json:"due_today"`
	PendingEditRequests int            `json:"pending_edit_requests"`
}

// CalendarEvent is one dated, colored entry for the calendar component.
type CalendarEvent struct {
	TaskID  int64            `json:"task_id"`
	Title   string           `json:"title"`
	Date    time.Time        `json:"date"`
	Urgency deadline.Urgency `json:"urgency"`
	Label   string           `json:"label"`
}

type StatsService interface {
	Snapshot() (*StatsSnapshot, error)
	Refresh() (*StatsSnapshot, error)
	CalendarEvents(actor *models.User) []CalendarEvent
	ReportLines(actor *models.User) []string
}

type StatsServiceImpl struct {
	store    *store.Store
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewStatsService(s *store.Store, c cache.Cache, ttl time.Duration) *StatsServiceImpl {
	return &StatsServiceImpl{store: s, cache: c, cacheTTL: ttl}
}

// Snapshot serves the cached aggregate when it is fresh and recomputes
// otherwise. Staleness is bounded by the cache TTL, which matches the stats
// refresh interval.
func (s *StatsServiceImpl) Snapshot() (*StatsSnapshot, error) {
	var cached StatsSnapshot
	if err := s.cache.Get(statsCacheKey, &cached); err == nil {
		return &cached, nil
	}
	return s.Refresh()
}

// Refresh recomputes the aggregate and replaces the cached snapshot. The
// periodic refresher calls this on its stats tick.
func (s *StatsServiceImpl) Refresh() (*StatsSnapshot, error) {
	now := time.Now()
	snapshot := &StatsSnapshot{
		GeneratedAt: now,
		ByStatus:    map[string]int{},
		ByPriority:  map[string]int{},
		ByUrgency:   map[string]int{},
	}

	for _, task := range s.store.Tasks() {
		snapshot.TotalTasks++
		snapshot.ByStatus[string(task.Status)]++
		snapshot.ByPriority[string(task.Priority)]++

		classification := deadline.ClassifyTask(&task, now)
		snapshot.ByUrgency[string(classification.Urgency)]++
		if classification.IsOverdue {
			snapshot.OverdueTasks++
		}
		if classification.Urgency == deadline.UrgencyToday {
			snapshot.DueToday++
		}
	}

	snapshot.TotalUsers = len(s.store.Users())
	for _, request := range s.store.EditRequests() {
		if request.IsPending() {
			snapshot.PendingEditRequests++
		}
	}

	if err := s.cache.Set(statsCacheKey, snapshot, s.cacheTTL); err != nil {
		// A dead cache degrades to recompute-per-request, not to an error.
		log.Printf("stats: failed to cache snapshot: %v", err)
	}
	return snapshot, nil
}

// CalendarEvents lists one dated entry per task visible to the actor, for
// the calendar component to color by urgency.
func (s *StatsServiceImpl) CalendarEvents(actor *models.User) []CalendarEvent {
	now := time.Now()
	events := []CalendarEvent{}
	for _, task := range s.store.Tasks() {
		if !policy.TaskVisibility(&task, actor).IsVisible {
			continue
		}
		classification := deadline.ClassifyTask(&task, now)
		events = append(events, CalendarEvent{
			TaskID:  task.ID,
			Title:   task.Title,
			Date:    task.EndDate,
			Urgency: classification.Urgency,
			Label:   classification.Label,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}

// ReportLines renders the actor's visible tasks as the ordered text lines
// the report generator consumes. Admins get the team-wide report.
func (s *StatsServiceImpl) ReportLines(actor *models.User) []string {
	now := time.Now()
	scope := "My Tasks"
	if actor.IsAdmin() {
		scope = "Team"
	}

	lines := []string{
		fmt.Sprintf("%s Report - %s", scope, now.Format("2006-01-02")),
		"",
	}

	tasks := []models.Task{}
	for _, task := range s.store.Tasks() {
		if policy.TaskVisibility(&task, actor).IsVisible {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].EndDate.Before(tasks[j].EndDate)
	})

	var completed, overdue int
	for _, task := range tasks {
		classification := deadline.ClassifyTask(&task, now)
		if task.IsCompleted() {
			completed++
		}
		if classification.IsOverdue {
			overdue++
		}
		lines = append(lines, fmt.Sprintf("[%s] %s - due %s (%s, %s)",
			task.Status, task.Title, task.EndDate.Format("2006-01-02"), task.Priority, classification.Label))
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Total: %d  Completed: %d  Overdue: %d", len(tasks), completed, overdue),
	)
	return lines
}
