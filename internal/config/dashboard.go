package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskboard/internal/storage"
)

// Dashboard is the persisted configuration record the UI consumes: labels,
// branding, feature toggles and refresh intervals. It lives in the KV store
// next to the collections and admins can change it at runtime.
type Dashboard struct {
	AppName     string      `json:"app_name"`
	MenuItems   MenuItems   `json:"menu_items"`
	CompanyInfo CompanyInfo `json:"company_info"`
	Features    Features    `json:"features"`
	Timing      Timing      `json:"timing"`
}

type MenuItems struct {
	Overview     string `json:"overview"`
	MyTasks      string `json:"my_tasks"`
	Schedule     string `json:"schedule"`
	Profile      string `json:"profile"`
	AdminPanel   string `json:"admin_panel"`
	TeamProgress string `json:"team_progress"`
	Reports      string `json:"reports"`
	Settings     string `json:"settings"`
}

type CompanyInfo struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type Features struct {
	EditRequests    bool `json:"edit_requests"`
	PDFReports      bool `json:"pdf_reports"`
	TeamDashboard   bool `json:"team_dashboard"`
	CalendarView    bool `json:"calendar_view"`
	DeadlineAlerts  bool `json:"deadline_alerts"`
	RealTimeUpdates bool `json:"real_time_updates"`
}

type Timing struct {
	Timezone        string          `json:"timezone"`
	UpdateIntervals UpdateIntervals `json:"update_intervals"`
}

// UpdateIntervals are expressed in milliseconds, matching the stored record.
type UpdateIntervals struct {
	Clock     int `json:"clock"`
	Deadlines int `json:"deadlines"`
	Stats     int `json:"stats"`
}

func DefaultDashboard() Dashboard {
	return Dashboard{
		AppName: "Taskboard",
		MenuItems: MenuItems{
			Overview:     "Overview",
			MyTasks:      "My Tasks",
			Schedule:     "Schedule",
			Profile:      "Profile",
			AdminPanel:   "Admin Panel",
			TeamProgress: "Team Progress",
			Reports:      "Reports",
			Settings:     "Settings",
		},
		CompanyInfo: CompanyInfo{Name: "Taskboard", Logo: ""},
		Features: Features{
			EditRequests:    true,
			PDFReports:      true,
			TeamDashboard:   true,
			CalendarView:    true,
			DeadlineAlerts:  true,
			RealTimeUpdates: true,
		},
		Timing: Timing{
			Timezone: "UTC",
			UpdateIntervals: UpdateIntervals{
				Clock:     1000,
				Deadlines: 60000,
				Stats:     30000,
			},
		},
	}
}

// ClockInterval converts the stored millisecond value, falling back to the
// default when the record carries a non-positive interval.
func (d Dashboard) ClockInterval() time.Duration {
	return intervalOrDefault(d.Timing.UpdateIntervals.Clock, time.Second)
}

func (d Dashboard) DeadlinesInterval() time.Duration {
	return intervalOrDefault(d.Timing.UpdateIntervals.Deadlines, time.Minute)
}

func (d Dashboard) StatsInterval() time.Duration {
	return intervalOrDefault(d.Timing.UpdateIntervals.Stats, 30*time.Second)
}

func intervalOrDefault(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// LoadDashboard reads the config record, applying defaults when it is absent
// or unreadable on first run.
func LoadDashboard(ctx context.Context, kv storage.KV) (Dashboard, error) {
	data, err := kv.Get(ctx, storage.KeyConfig)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return DefaultDashboard(), nil
		}
		return Dashboard{}, fmt.Errorf("load dashboard config: %w", err)
	}

	d := DefaultDashboard()
	if err := json.Unmarshal(data, &d); err != nil {
		return Dashboard{}, fmt.Errorf("decode dashboard config: %w", err)
	}
	return d, nil
}

func SaveDashboard(ctx context.Context, kv storage.KV, d Dashboard) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode dashboard config: %w", err)
	}
	if err := kv.Put(ctx, storage.KeyConfig, data); err != nil {
		return fmt.Errorf("save dashboard config: %w", err)
	}
	return nil
}
