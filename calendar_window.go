package main

import (
	"fmt"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/borgmon/daybook/pkg/authorization"
	"github.com/borgmon/daybook/pkg/eventstore"
	"github.com/borgmon/daybook/pkg/grid"
	"github.com/borgmon/daybook/pkg/models"
	"github.com/borgmon/daybook/pkg/platform"
	"github.com/borgmon/daybook/pkg/repository"
)

type CalendarWindow struct {
	window fyne.Window
	app    fyne.App
	config *Config
	authz  *authorization.Coordinator
	repo   *repository.EventRepository

	onOpenSettings func()

	displayed time.Time // reference date of the shown month
	selected  time.Time // selected day

	monthLabel *widget.Label
	gridBox    *fyne.Container

	dayTitle  *widget.Label
	dayEvents []models.Event
	eventList *widget.List
	addButton *widget.Button

	banner        *fyne.Container
	bannerLabel   *widget.Label
	bannerButton  *widget.Button
	requestLabel  *widget.Label
	lastErrorSeen error
}

func NewCalendarWindow(app fyne.App, config *Config, authz *authorization.Coordinator, repo *repository.EventRepository, onOpenSettings func()) *CalendarWindow {
	now := time.Now()
	cw := &CalendarWindow{
		app:            app,
		config:         config,
		authz:          authz,
		repo:           repo,
		onOpenSettings: onOpenSettings,
		displayed:      now,
		selected:       now,
	}

	cw.window = app.NewWindow("Daybook")
	cw.buildUI()

	authz.Subscribe(cw.refreshAuthorization)
	repo.Subscribe(cw.refreshEvents)

	return cw
}

// Mount runs the on-show flow: re-check the grant and, when nothing
// was ever decided, ask right away.
func (cw *CalendarWindow) Mount() {
	cw.authz.RefreshStatus()

	if cw.authz.Status() == models.AuthUndetermined {
		cw.requestAccess()
	}

	cw.repo.LoadEvents(cw.displayed)
}

// DisplayedMonth returns the reference date of the month on screen.
func (cw *CalendarWindow) DisplayedMonth() time.Time {
	return cw.displayed
}

// ApplyConfig re-renders anything that depends on settings, currently
// the first day of the week.
func (cw *CalendarWindow) ApplyConfig(config *Config) {
	cw.config = config
	cw.rebuildGrid()
}

func (cw *CalendarWindow) buildUI() {
	cw.monthLabel = widget.NewLabel("")
	cw.monthLabel.TextStyle.Bold = true
	cw.monthLabel.Alignment = fyne.TextAlignCenter

	prevButton := widget.NewButtonWithIcon("", theme.NavigateBackIcon(), func() {
		cw.showMonth(cw.displayed.AddDate(0, -1, 0))
	})
	nextButton := widget.NewButtonWithIcon("", theme.NavigateNextIcon(), func() {
		cw.showMonth(cw.displayed.AddDate(0, 1, 0))
	})
	todayButton := widget.NewButton("Today", func() {
		now := time.Now()
		cw.selected = now
		cw.showMonth(now)
	})
	settingsButton := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		if cw.onOpenSettings != nil {
			cw.onOpenSettings()
		}
	})

	header := container.NewBorder(
		nil, nil,
		prevButton,
		container.NewHBox(nextButton, todayButton, settingsButton),
		cw.monthLabel,
	)

	cw.gridBox = container.NewGridWithColumns(7)

	// Permission banner, hidden once full access is in place
	cw.bannerLabel = widget.NewLabel("")
	cw.bannerLabel.Wrapping = fyne.TextWrapWord
	cw.bannerButton = widget.NewButton("Grant Access", cw.requestAccess)
	cw.bannerButton.Importance = widget.HighImportance
	cw.requestLabel = widget.NewLabel("")
	cw.requestLabel.Importance = widget.MediumImportance
	cw.banner = container.NewVBox(
		container.NewBorder(nil, nil, nil, cw.bannerButton, cw.bannerLabel),
		widget.NewSeparator(),
	)

	// Selected day event list
	cw.dayTitle = widget.NewLabel("")
	cw.dayTitle.TextStyle.Bold = true

	cw.eventList = widget.NewList(
		func() int {
			return len(cw.dayEvents)
		},
		func() fyne.CanvasObject {
			titleLabel := widget.NewLabel("Title")
			titleLabel.TextStyle.Bold = true
			timeLabel := widget.NewLabel("Time")
			timeLabel.Importance = widget.MediumImportance
			return container.NewVBox(titleLabel, timeLabel)
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			vbox := o.(*fyne.Container)
			titleLabel := vbox.Objects[0].(*widget.Label)
			timeLabel := vbox.Objects[1].(*widget.Label)

			event := cw.dayEvents[i]
			titleLabel.SetText(event.Title)
			timeLabel.SetText(fmt.Sprintf("%s - %s",
				event.StartTime.Format("3:04 PM"),
				event.EndTime.Format("3:04 PM")))
		})

	cw.addButton = widget.NewButtonWithIcon("Add Event", theme.ContentAddIcon(), cw.showAddEventDialog)

	dayHeader := container.NewBorder(nil, nil, cw.dayTitle, cw.addButton)

	top := container.NewVBox(
		cw.banner,
		cw.requestLabel,
		header,
	)

	listArea := container.NewBorder(dayHeader, nil, nil, nil, cw.eventList)

	split := container.NewVSplit(cw.gridBox, listArea)
	split.SetOffset(0.6)

	cw.window.SetContent(container.NewPadded(container.NewBorder(top, nil, nil, nil, split)))
	cw.window.Resize(fyne.NewSize(900, 700))
	cw.window.CenterOnScreen()

	cw.rebuildGrid()
	cw.refreshAuthorization()
	cw.refreshDayList()
}

func (cw *CalendarWindow) Show() {
	cw.window.Show()
}

// showMonth switches the view to the month containing ref and reloads
// its events. The grid is always fully regenerated, never patched.
func (cw *CalendarWindow) showMonth(ref time.Time) {
	cw.displayed = ref

	if !grid.SameDay(grid.StartOfMonth(cw.selected), grid.StartOfMonth(ref)) {
		cw.selected = grid.StartOfMonth(ref)
	}

	cw.rebuildGrid()
	cw.refreshDayList()
	cw.repo.LoadEvents(ref)
}

func (cw *CalendarWindow) selectDay(day time.Time) {
	cw.selected = day
	cw.rebuildGrid()
	cw.refreshDayList()
}

func (cw *CalendarWindow) rebuildGrid() {
	cw.monthLabel.SetText(cw.displayed.Format("January 2006"))

	weekStart := cw.config.FirstWeekday()
	cells := grid.Build(cw.displayed, weekStart)

	objects := make([]fyne.CanvasObject, 0, 7+len(cells))

	for i := 0; i < 7; i++ {
		wd := time.Weekday((int(weekStart) + i) % 7)
		header := widget.NewLabel(wd.String()[:3])
		header.Alignment = fyne.TextAlignCenter
		header.TextStyle.Bold = true
		objects = append(objects, header)
	}

	now := time.Now()
	for _, cell := range cells {
		if cell.Blank {
			objects = append(objects, widget.NewLabel(""))
			continue
		}

		date := cell.Date
		button := widget.NewButton(fmt.Sprintf("%d", cell.Day()), func() {
			cw.selectDay(date)
		})
		switch {
		case grid.SameDay(date, cw.selected):
			button.Importance = widget.HighImportance
		case grid.SameDay(date, now):
			button.Importance = widget.MediumImportance
		}
		objects = append(objects, button)
	}

	cw.gridBox.Objects = objects
	cw.gridBox.Refresh()
}

func (cw *CalendarWindow) refreshDayList() {
	cw.dayTitle.SetText(cw.selected.Format("Monday, January 2"))
	cw.dayEvents = cw.repo.EventsOn(cw.selected)
	cw.eventList.Refresh()
}

// refreshEvents is the repository subscription: the month list or the
// error state moved.
func (cw *CalendarWindow) refreshEvents() {
	cw.refreshDayList()

	if err := cw.repo.LastError(); err != nil && err != cw.lastErrorSeen {
		cw.lastErrorSeen = err
		dialog.ShowError(err, cw.window)
	}
}

// refreshAuthorization is the coordinator subscription: status or
// request state moved.
func (cw *CalendarWindow) refreshAuthorization() {
	status := cw.authz.Status()

	if cw.authz.IsWriteEligible() {
		cw.addButton.Enable()
	} else {
		cw.addButton.Disable()
	}

	switch cw.authz.RequestState().Phase {
	case authorization.PhaseInProgress:
		cw.requestLabel.SetText("Requesting calendar access...")
		cw.requestLabel.Show()
	case authorization.PhaseSucceeded:
		cw.requestLabel.SetText("Calendar access granted")
		cw.requestLabel.Show()
	case authorization.PhaseFailed:
		cw.requestLabel.SetText("Access request failed: " + cw.authz.RequestState().Reason)
		cw.requestLabel.Show()
	default:
		cw.requestLabel.SetText("")
		cw.requestLabel.Hide()
	}

	switch status {
	case models.AuthFullAccess:
		cw.banner.Hide()
		return
	case models.AuthWriteOnly:
		cw.bannerLabel.SetText("Daybook can add events but cannot display existing ones.")
		cw.bannerButton.SetText("Grant Full Access")
		cw.bannerButton.Show()
	case models.AuthDenied:
		cw.bannerLabel.SetText("Calendar access was denied. You can change this in system settings.")
		cw.bannerButton.SetText("Open Settings")
		cw.bannerButton.Show()
	case models.AuthRestricted:
		cw.bannerLabel.SetText("Calendar access is restricted on this device and cannot be changed here.")
		cw.bannerButton.Hide()
	default:
		cw.bannerLabel.SetText("Daybook needs access to your calendar to show and add events.")
		cw.bannerButton.SetText("Grant Access")
		cw.bannerButton.Show()
	}
	cw.banner.Show()
}

// requestAccess runs the permission flow for full access and routes
// the denied case to system settings.
func (cw *CalendarWindow) requestAccess() {
	decision := cw.authz.RequestAccess(eventstore.ScopeFullAccess, nil)

	switch decision {
	case authorization.DecisionOpenSettings:
		dialog.ShowConfirm("Open System Settings",
			"Calendar access was denied earlier, so the system will not ask again. Open the privacy settings to change it?",
			func(confirmed bool) {
				if !confirmed {
					return
				}
				if err := platform.OpenPrivacySettings(); err != nil {
					log.Printf("Failed to open system settings: %v", err)
					dialog.ShowError(err, cw.window)
				}
			}, cw.window)
	case authorization.DecisionRefused:
		dialog.ShowInformation("Access Restricted",
			"Calendar access is managed by your device policy and cannot be requested.", cw.window)
	case authorization.DecisionBusy:
		log.Println("Access request already in progress")
	}
}
