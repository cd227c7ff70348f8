// Package deadline derives an urgency classification for a task from its end
// date and status. The classification is never stored on the task record; it
// is recomputed on every read and by the periodic refresh sweep.
package deadline

import (
	"fmt"
	"time"

	"taskboard/internal/models"
)

type Urgency string

const (
	UrgencyCompleted Urgency = "completed"
	UrgencyOverdue   Urgency = "overdue"
	UrgencyToday     Urgency = "today"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyWarning   Urgency = "warning"
	UrgencySafe      Urgency = "safe"
)

// Classification is the derived deadline state of a single task.
type Classification struct {
	Urgency       Urgency `json:"urgency"`
	Label         string  `json:"label"`
	IsOverdue     bool    `json:"is_overdue"`
	DaysRemaining int     `json:"days_remaining"`
}

// Classify computes the urgency of a deadline as of today. Both dates are
// normalized to midnight so a task due later today still counts as due today.
// A completed task is never overdue, regardless of when it was finished.
func Classify(endDate time.Time, status models.TaskStatus, today time.Time) Classification {
	end := midnight(endDate)
	now := midnight(today)
	days := int(end.Sub(now).Hours() / 24)

	c := Classification{DaysRemaining: days}

	switch {
	case status == models.StatusCompleted:
		c.Urgency = UrgencyCompleted
		c.Label = "Completed"
	case days < 0:
		c.Urgency = UrgencyOverdue
		c.Label = fmt.Sprintf("%d days overdue", -days)
		c.IsOverdue = true
	case days == 0:
		c.Urgency = UrgencyToday
		c.Label = "Due today"
	case days == 1:
		c.Urgency = UrgencyUrgent
		c.Label = "Due tomorrow"
	case days == 2:
		c.Urgency = UrgencyUrgent
		c.Label = fmt.Sprintf("%d days remaining", days)
	case days <= 7:
		c.Urgency = UrgencyWarning
		c.Label = fmt.Sprintf("%d days remaining", days)
	default:
		c.Urgency = UrgencySafe
		c.Label = fmt.Sprintf("%d days remaining", days)
	}

	return c
}

// ClassifyTask is the convenience form used by listing and refresh paths.
func ClassifyTask(t *models.Task, today time.Time) Classification {
	return Classify(t.EndDate, t.Status, today)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
