package main

import (
	"errors"
	"time"

	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/borgmon/daybook/pkg/repository"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// showAddEventDialog collects a title and a time range for a new event
// on the selected day and hands it to the repository.
func (cw *CalendarWindow) showAddEventDialog() {
	titleEntry := widget.NewEntry()
	titleEntry.SetPlaceHolder("Event title")

	dateEntry := widget.NewEntry()
	dateEntry.SetText(cw.selected.Format(dateLayout))

	startEntry := widget.NewEntry()
	startEntry.SetPlaceHolder("09:00")
	endEntry := widget.NewEntry()
	endEntry.SetPlaceHolder("10:00")

	items := []*widget.FormItem{
		widget.NewFormItem("Title", titleEntry),
		widget.NewFormItem("Date", dateEntry),
		widget.NewFormItem("Start", startEntry),
		widget.NewFormItem("End", endEntry),
	}

	dialog.ShowForm("Add Event", "Add", "Cancel", items, func(confirmed bool) {
		if !confirmed {
			return
		}

		start, end, err := parseEventTimes(dateEntry.Text, startEntry.Text, endEntry.Text)
		if err != nil {
			dialog.ShowError(err, cw.window)
			return
		}
		if titleEntry.Text == "" {
			dialog.ShowError(errors.New("event title must not be empty"), cw.window)
			return
		}

		if err := cw.repo.AddEvent(titleEntry.Text, start, end); err != nil {
			if errors.Is(err, repository.ErrEndNotAfterStart) {
				dialog.ShowError(errors.New("the end time must be after the start time"), cw.window)
				return
			}
			dialog.ShowError(err, cw.window)
		}
	}, cw.window)
}

func parseEventTimes(dateText, startText, endText string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, dateText, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("date must look like 2026-08-31")
	}

	startClock, err := time.Parse(timeLayout, startText)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("start time must look like 09:00")
	}
	endClock, err := time.Parse(timeLayout, endText)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("end time must look like 10:00")
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), startClock.Hour(), startClock.Minute(), 0, 0, time.Local)
	end := time.Date(day.Year(), day.Month(), day.Day(), endClock.Hour(), endClock.Minute(), 0, 0, time.Local)
	return start, end, nil
}
