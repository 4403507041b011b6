package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/borgmon/daybook/pkg/eventstore"
)

var pollIntervalOptions = []string{"1 min", "5 min", "10 min", "15 min", "30 min", "60 min"}

func pollIntervalOptionValue(selected string) (int, bool) {
	var val int
	if _, err := fmt.Sscanf(selected, "%d min", &val); err != nil {
		return 0, false
	}
	return val, true
}

func (sw *SettingsWindow) buildAccountTab() fyne.CanvasObject {
	sw.serverEntry = widget.NewEntry()
	sw.serverEntry.SetPlaceHolder("https://caldav.example.com/")
	sw.serverEntry.SetText(sw.config.ServerURL)
	sw.serverEntry.OnChanged = func(string) { sw.markChanged() }

	sw.usernameEntry = widget.NewEntry()
	sw.usernameEntry.SetText(sw.config.Username)
	sw.usernameEntry.OnChanged = func(string) { sw.markChanged() }

	sw.passwordEntry = widget.NewPasswordEntry()
	sw.passwordEntry.SetText(sw.config.Password)
	sw.passwordEntry.OnChanged = func(string) { sw.markChanged() }

	sw.calendarEntry = widget.NewEntry()
	sw.calendarEntry.SetPlaceHolder("Leave empty to use the first calendar")
	sw.calendarEntry.SetText(sw.config.CalendarName)
	sw.calendarEntry.OnChanged = func(string) { sw.markChanged() }

	sw.pollIntervalSelect = widget.NewSelect(pollIntervalOptions, func(value string) {
		sw.markChanged()
	})
	sw.pollIntervalSelect.SetSelected(strconv.Itoa(sw.config.PollIntervalMin) + " min")

	testStatusLabel := widget.NewLabel("")
	testStatusLabel.Importance = widget.MediumImportance

	sw.testButton = widget.NewButton("Test Connection", func() {
		sw.testButton.Disable()
		testStatusLabel.SetText("Connecting...")
		testStatusLabel.Importance = widget.MediumImportance
		testStatusLabel.Refresh()

		opts := eventstore.CalDAVOptions{
			Endpoint:     sw.serverEntry.Text,
			Username:     sw.usernameEntry.Text,
			Password:     sw.passwordEntry.Text,
			CalendarName: sw.calendarEntry.Text,
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			err := eventstore.VerifyOptions(ctx, opts)

			fyne.Do(func() {
				if err != nil {
					testStatusLabel.SetText("Connection failed: " + err.Error())
					testStatusLabel.Importance = widget.DangerImportance
				} else {
					testStatusLabel.SetText("Connection successful")
					testStatusLabel.Importance = widget.SuccessImportance
				}
				testStatusLabel.Refresh()
				sw.testButton.Enable()
			})
		}()
	})
	sw.testButton.Icon = theme.ViewRefreshIcon()

	// Create labels with help text
	serverLabel := widget.NewLabel("Server URL:")
	serverHelp := widget.NewLabel("Your provider's CalDAV endpoint")
	serverHelp.Importance = widget.MediumImportance

	usernameLabel := widget.NewLabel("Username:")
	usernameHelp := widget.NewLabel("Usually your account email address")
	usernameHelp.Importance = widget.MediumImportance

	passwordLabel := widget.NewLabel("Password:")
	passwordHelp := widget.NewLabel("Most providers require an app-specific password")
	passwordHelp.Wrapping = fyne.TextWrapWord
	passwordHelp.Importance = widget.MediumImportance

	calendarLabel := widget.NewLabel("Calendar:")
	calendarHelp := widget.NewLabel("Display name of the calendar to use")
	calendarHelp.Importance = widget.MediumImportance

	pollLabel := widget.NewLabel("Refresh Interval:")
	pollHelp := widget.NewLabel("How often to check the server for external changes")
	pollHelp.Importance = widget.MediumImportance

	testLabel := widget.NewLabel("Connection:")
	testHelp := widget.NewLabel("Verify the account settings above before saving")
	testHelp.Importance = widget.MediumImportance

	form := container.New(layout.NewFormLayout(),
		container.NewVBox(serverLabel, serverHelp),
		sw.serverEntry,

		container.NewVBox(usernameLabel, usernameHelp),
		sw.usernameEntry,

		container.NewVBox(passwordLabel, passwordHelp),
		sw.passwordEntry,

		container.NewVBox(calendarLabel, calendarHelp),
		sw.calendarEntry,

		container.NewVBox(pollLabel, pollHelp),
		container.NewVBox(sw.pollIntervalSelect),

		container.NewVBox(testLabel, testHelp),
		container.NewVBox(container.NewHBox(sw.testButton, testStatusLabel)),
	)

	content := container.NewVBox(
		widget.NewLabel("Account Settings"),
		widget.NewSeparator(),
		form,
	)

	return container.NewPadded(container.NewVScroll(content))
}
