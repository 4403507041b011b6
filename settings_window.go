package main

import (
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/borgmon/daybook/pkg/eventstore"
)

type SettingsWindow struct {
	window fyne.Window
	app    fyne.App
	config *Config
	store  *eventstore.CalDAVStore
	onSave func(*Config)

	// General tab
	autoStartCheck  *widget.Check
	weekStartSelect *widget.Select
	saveChimeCheck  *widget.Check

	// Account tab
	serverEntry        *widget.Entry
	usernameEntry      *widget.Entry
	passwordEntry      *widget.Entry
	calendarEntry      *widget.Entry
	pollIntervalSelect *widget.Select
	testButton         *widget.Button

	// UI state
	hasUnsavedChanges bool
	saveStatusLabel   *widget.Label
	saveButton        *widget.Button
}

func NewSettingsWindow(app fyne.App, config *Config, store *eventstore.CalDAVStore, onSave func(*Config)) *SettingsWindow {
	sw := &SettingsWindow{
		app:    app,
		config: config,
		store:  store,
		onSave: onSave,
	}

	sw.window = app.NewWindow("Daybook - Settings")
	sw.buildUI()

	return sw
}

func (sw *SettingsWindow) buildUI() {
	tabs := container.NewAppTabs(
		container.NewTabItem("General", sw.buildGeneralTab()),
		container.NewTabItem("Account", sw.buildAccountTab()),
	)

	sw.saveStatusLabel = widget.NewLabel("")
	sw.saveStatusLabel.Importance = widget.SuccessImportance

	sw.saveButton = widget.NewButton("Save", func() {
		sw.saveButton.Disable()
		sw.saveStatusLabel.SetText("Saving...")
		sw.saveStatusLabel.Importance = widget.MediumImportance
		sw.saveStatusLabel.Refresh()

		newConfig := sw.getConfigFromUI()
		go func() {
			if err := setupAutostart(newConfig.AutoStart); err != nil {
				log.Printf("Error setting autostart: %v", err)
				fyne.Do(func() {
					sw.saveStatusLabel.SetText("Error: Failed to set autostart")
					sw.saveStatusLabel.Importance = widget.DangerImportance
					sw.saveStatusLabel.Refresh()
					sw.updateSaveButtonState()
				})
				return
			}

			if sw.onSave != nil {
				sw.onSave(newConfig)
			}

			fyne.Do(func() {
				sw.config = newConfig
				sw.hasUnsavedChanges = false
				sw.saveStatusLabel.SetText("Settings saved successfully")
				sw.saveStatusLabel.Importance = widget.SuccessImportance
				sw.saveStatusLabel.Refresh()
				sw.updateSaveButtonState()

				// Clear success message after 3 seconds
				go func() {
					time.Sleep(3 * time.Second)
					fyne.Do(func() {
						if sw.saveStatusLabel.Text == "Settings saved successfully" {
							sw.saveStatusLabel.SetText("")
							sw.saveStatusLabel.Refresh()
						}
					})
				}()
			})
		}()
	})
	sw.saveButton.Importance = widget.HighImportance
	sw.saveButton.Disable() // Initially disabled until changes are made

	closeButton := widget.NewButton("Close", func() {
		sw.handleClose()
	})

	leftButtons := container.NewHBox(
		sw.saveButton,
		sw.saveStatusLabel,
	)

	buttonRow := container.NewBorder(
		nil,
		nil,
		leftButtons,
		closeButton,
		container.NewHBox(),
	)

	content := container.NewBorder(
		nil,
		container.NewPadded(buttonRow),
		nil,
		nil,
		tabs,
	)

	sw.window.SetContent(content)
	sw.window.Resize(fyne.NewSize(700, 500))
	sw.window.CenterOnScreen()

	sw.window.SetCloseIntercept(func() {
		sw.handleClose()
	})
}

func (sw *SettingsWindow) getConfigFromUI() *Config {
	weekStart := "sunday"
	if sw.weekStartSelect.Selected == "Monday" {
		weekStart = "monday"
	}

	pollInterval := sw.config.PollIntervalMin
	if v, ok := pollIntervalOptionValue(sw.pollIntervalSelect.Selected); ok {
		pollInterval = v
	}

	return &Config{
		AutoStart:       sw.autoStartCheck.Checked,
		WeekStart:       weekStart,
		SaveChime:       sw.saveChimeCheck.Checked,
		ServerURL:       sw.serverEntry.Text,
		Username:        sw.usernameEntry.Text,
		Password:        sw.passwordEntry.Text,
		CalendarName:    sw.calendarEntry.Text,
		PollIntervalMin: pollInterval,
		Managed:         sw.config.Managed,
	}
}

func (sw *SettingsWindow) Show() {
	sw.window.Show()
}

// markChanged marks the config as having unsaved changes
func (sw *SettingsWindow) markChanged() {
	sw.hasUnsavedChanges = true
	sw.updateSaveButtonState()
}

func (sw *SettingsWindow) updateSaveButtonState() {
	if sw.saveButton != nil {
		if sw.hasUnsavedChanges {
			sw.saveButton.Enable()
		} else {
			sw.saveButton.Disable()
		}
	}
}

// handleClose handles window close with unsaved changes check
func (sw *SettingsWindow) handleClose() {
	if sw.hasActualChanges() {
		dialog.ShowConfirm("Unsaved Changes",
			"You have unsaved changes. Are you sure you want to close?",
			func(confirmed bool) {
				if confirmed {
					sw.window.Close()
				}
			}, sw.window)
	} else {
		sw.window.Close()
	}
}

// hasActualChanges checks if the current UI state differs from the saved config
func (sw *SettingsWindow) hasActualChanges() bool {
	current := sw.getConfigFromUI()

	return current.AutoStart != sw.config.AutoStart ||
		current.WeekStart != sw.config.WeekStart ||
		current.SaveChime != sw.config.SaveChime ||
		current.ServerURL != sw.config.ServerURL ||
		current.Username != sw.config.Username ||
		current.Password != sw.config.Password ||
		current.CalendarName != sw.config.CalendarName ||
		current.PollIntervalMin != sw.config.PollIntervalMin
}
