package main

import (
	"time"

	"fyne.io/fyne/v2"

	"github.com/borgmon/daybook/pkg/eventstore"
)

type Config struct {
	AutoStart       bool   `json:"auto_start"`
	WeekStart       string `json:"week_start"` // "sunday" or "monday"
	SaveChime       bool   `json:"save_chime"`
	ServerURL       string `json:"server_url"`
	Username        string `json:"username"`
	Password        string `json:"password"` // app-specific password
	CalendarName    string `json:"calendar_name"`
	PollIntervalMin int    `json:"poll_interval_min"`
	Managed         bool   `json:"managed"` // pushed by deployment, not editable in the UI
}

func loadConfig(app fyne.App) *Config {
	prefs := app.Preferences()

	config := &Config{
		AutoStart:       prefs.BoolWithFallback("auto_start", false),
		WeekStart:       prefs.StringWithFallback("week_start", "sunday"),
		SaveChime:       prefs.BoolWithFallback("save_chime", true),
		ServerURL:       prefs.String("server_url"),
		Username:        prefs.String("username"),
		Password:        prefs.String("password"),
		CalendarName:    prefs.String("calendar_name"),
		PollIntervalMin: prefs.IntWithFallback("poll_interval_min", 5),
		Managed:         prefs.BoolWithFallback("managed", false),
	}

	if config.WeekStart != "sunday" && config.WeekStart != "monday" {
		config.WeekStart = "sunday"
	}

	return config
}

func saveConfig(app fyne.App, config *Config) {
	prefs := app.Preferences()

	prefs.SetBool("auto_start", config.AutoStart)
	prefs.SetString("week_start", config.WeekStart)
	prefs.SetBool("save_chime", config.SaveChime)
	prefs.SetString("server_url", config.ServerURL)
	prefs.SetString("username", config.Username)
	prefs.SetString("password", config.Password)
	prefs.SetString("calendar_name", config.CalendarName)
	prefs.SetInt("poll_interval_min", config.PollIntervalMin)
}

func (c *Config) NeedsConfiguration() bool {
	return c.ServerURL == ""
}

// FirstWeekday maps the configured week start onto time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMin) * time.Minute
}

// prefsGrantStorage persists the calendar access grant in Fyne
// preferences, standing in for the OS permission database.
type prefsGrantStorage struct {
	app fyne.App
}

func (g *prefsGrantStorage) LoadGrant() (eventstore.GrantRecord, bool) {
	prefs := g.app.Preferences()

	status := prefs.String("access_grant_status")
	if status == "" {
		return eventstore.GrantRecord{}, false
	}

	// Records written before the full/write-only split have no version
	// key; they carry the legacy "authorized"/"denied" values.
	version := prefs.IntWithFallback("access_grant_version", 1)

	return eventstore.GrantRecord{
		Version: version,
		Status:  eventstore.AuthStatus(status),
	}, true
}

func (g *prefsGrantStorage) SaveGrant(rec eventstore.GrantRecord) {
	prefs := g.app.Preferences()
	prefs.SetInt("access_grant_version", rec.Version)
	prefs.SetString("access_grant_status", string(rec.Status))
}
