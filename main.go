package main

import (
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"

	"github.com/borgmon/daybook/pkg/authorization"
	"github.com/borgmon/daybook/pkg/eventstore"
	"github.com/borgmon/daybook/pkg/models"
	"github.com/borgmon/daybook/pkg/repository"
)

type Daybook struct {
	app    fyne.App
	config *Config
	store  *eventstore.CalDAVStore
	authz  *authorization.Coordinator
	repo   *repository.EventRepository

	calendarWindow *CalendarWindow
	settingsWindow *SettingsWindow
}

func main() {
	db := &Daybook{
		app: app.NewWithID("com.borgmon.daybook"),
	}

	if err := db.initialize(); err != nil {
		log.Fatal(err)
	}

	db.run()
}

func (db *Daybook) initialize() error {
	db.config = loadConfig(db.app)

	// Sync autostart state with config on startup
	if err := setupAutostart(db.config.AutoStart); err != nil {
		log.Printf("Warning: failed to setup autostart: %v", err)
	}

	saveConfig(db.app, db.config)

	store, err := eventstore.NewCalDAVStore(db.storeOptions(), &prefsGrantStorage{app: db.app})
	if err != nil {
		return err
	}
	db.store = store
	db.store.SetPrompter(db.promptForAccess)

	db.authz = authorization.New(db.store, authorization.WithDispatcher(fyne.Do))
	db.repo = repository.New(db.store, db.authz, repository.WithDispatcher(fyne.Do))

	db.repo.SetOnSaved(func(event models.Event) {
		if db.config.SaveChime {
			playSaveChime()
		}
	})

	db.calendarWindow = NewCalendarWindow(db.app, db.config, db.authz, db.repo, db.showSettingsWindow)

	// A refresh landing on a read-eligible status reloads whatever
	// month is on screen.
	db.authz.SetOnReadEligible(func() {
		db.repo.LoadEvents(db.calendarWindow.DisplayedMonth())
	})

	// External mutations (another client added an event) re-check the
	// grant and reload. The same happens when the app comes back to
	// the foreground.
	db.store.Subscribe(func() {
		fyne.Do(func() {
			db.authz.RefreshStatus()
		})
	})
	db.store.StartChangePolling()

	db.app.Lifecycle().SetOnEnteredForeground(func() {
		db.authz.RefreshStatus()
	})

	db.setupSystemTray()
	db.repo.Subscribe(db.updateSystemTrayMenu)

	db.calendarWindow.Show()
	db.calendarWindow.Mount()

	if db.config.NeedsConfiguration() {
		db.showSettingsWindow()
	}

	return nil
}

func (db *Daybook) run() {
	db.app.Run()
}

func (db *Daybook) storeOptions() eventstore.CalDAVOptions {
	return eventstore.CalDAVOptions{
		Endpoint:     db.config.ServerURL,
		Username:     db.config.Username,
		Password:     db.config.Password,
		CalendarName: db.config.CalendarName,
		Managed:      db.config.Managed,
		PollInterval: db.config.PollInterval(),
	}
}

// promptForAccess is the consent dialog shown when the store needs a
// permission answer. It is called off the UI thread and blocks until
// the user decides.
func (db *Daybook) promptForAccess(scope eventstore.AccessScope) bool {
	message := "Daybook would like to read and add events in your calendar."
	if scope == eventstore.ScopeWriteOnly {
		message = "Daybook would like to add events to your calendar without reading existing ones."
	}

	answer := make(chan bool, 1)
	fyne.Do(func() {
		dialog.ShowConfirm("Calendar Access", message, func(granted bool) {
			answer <- granted
		}, db.calendarWindow.window)
	})

	return <-answer
}

func (db *Daybook) showSettingsWindow() {
	// If the settings window already exists, just bring it to front
	if db.settingsWindow != nil && db.settingsWindow.window != nil {
		db.settingsWindow.window.RequestFocus()
		db.settingsWindow.window.Show()
		return
	}

	db.settingsWindow = NewSettingsWindow(db.app, db.config, db.store, func(newConfig *Config) {
		db.config = newConfig
		saveConfig(db.app, db.config)

		if err := db.store.UpdateOptions(db.storeOptions()); err != nil {
			log.Printf("Failed to apply account settings: %v", err)
		}
		db.store.Close()
		db.store.StartChangePolling()

		fyne.Do(func() {
			db.calendarWindow.ApplyConfig(db.config)
			db.authz.RefreshStatus()
		})
	})

	db.settingsWindow.window.SetOnClosed(func() {
		db.settingsWindow = nil
	})

	db.settingsWindow.Show()
}

func (db *Daybook) quit() {
	db.store.Close()
	db.app.Quit()
}
