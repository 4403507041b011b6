package main

import (
	"log"
	"os/exec"
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

func (sw *SettingsWindow) buildGeneralTab() fyne.CanvasObject {
	// Auto Start checkbox
	sw.autoStartCheck = widget.NewCheck("Auto Start on System Boot", func(checked bool) {
		sw.markChanged()
	})
	sw.autoStartCheck.SetChecked(sw.config.AutoStart)

	// Week start select
	sw.weekStartSelect = widget.NewSelect([]string{"Sunday", "Monday"}, func(value string) {
		sw.markChanged()
	})
	if sw.config.WeekStart == "monday" {
		sw.weekStartSelect.SetSelected("Monday")
	} else {
		sw.weekStartSelect.SetSelected("Sunday")
	}

	// Save chime checkbox
	sw.saveChimeCheck = widget.NewCheck("Play a chime after saving an event", func(checked bool) {
		sw.markChanged()
	})
	sw.saveChimeCheck.SetChecked(sw.config.SaveChime)

	// Storage root URI display (read-only)
	storageURIEntry := widget.NewEntry()
	storageURIEntry.SetText(sw.app.Storage().RootURI().String())
	storageURIEntry.Disable()

	openStorageButton := widget.NewButton("Open in File Manager", func() {
		path := sw.app.Storage().RootURI().Path()
		var cmd *exec.Cmd

		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", path)
		case "windows":
			cmd = exec.Command("explorer", path)
		case "linux":
			cmd = exec.Command("xdg-open", path)
		default:
			log.Printf("Unsupported OS: %s", runtime.GOOS)
			return
		}

		if err := cmd.Start(); err != nil {
			log.Printf("Error opening file manager: %v", err)
		}
	})

	// Create labels with help text
	autoStartLabel := widget.NewLabel("Auto Start:")
	autoStartHelp := widget.NewLabel("Launch Daybook automatically when your system starts")
	autoStartHelp.Importance = widget.MediumImportance

	weekStartLabel := widget.NewLabel("Week Starts On:")
	weekStartHelp := widget.NewLabel("First column of the month grid")
	weekStartHelp.Importance = widget.MediumImportance

	chimeLabel := widget.NewLabel("Save Chime:")
	chimeHelp := widget.NewLabel("Audible confirmation when a new event was written")
	chimeHelp.Importance = widget.MediumImportance

	storageLabel := widget.NewLabel("Storage Location:")
	storageHelp := widget.NewLabel("Application data and settings are stored here")
	storageHelp.Wrapping = fyne.TextWrapWord
	storageHelp.Importance = widget.MediumImportance

	storageContainer := container.NewBorder(
		nil,
		container.NewPadded(openStorageButton),
		nil,
		nil,
		storageURIEntry,
	)

	// Use FormLayout for proper label-value alignment
	form := container.New(layout.NewFormLayout(),
		container.NewVBox(autoStartLabel, autoStartHelp),
		sw.autoStartCheck,

		container.NewVBox(weekStartLabel, weekStartHelp),
		container.NewVBox(sw.weekStartSelect),

		container.NewVBox(chimeLabel, chimeHelp),
		sw.saveChimeCheck,

		container.NewVBox(storageLabel, storageHelp),
		storageContainer,
	)

	content := container.NewVBox(
		widget.NewLabel("General Settings"),
		widget.NewSeparator(),
		form,
	)

	return container.NewPadded(container.NewVScroll(content))
}
