package main

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

func (db *Daybook) setupSystemTray() {
	db.updateSystemTrayMenu()
}

func (db *Daybook) updateSystemTrayMenu() {
	if desk, ok := db.app.(desktop.App); ok {
		menuItems := []*fyne.MenuItem{}

		// Today's events at the top, if the loaded month covers today
		today := db.repo.EventsOn(time.Now())
		if len(today) > 0 {
			headerItem := fyne.NewMenuItem("Today:", nil)
			headerItem.Disabled = true
			menuItems = append(menuItems, headerItem)

			limit := 5
			if len(today) < limit {
				limit = len(today)
			}
			for _, event := range today[:limit] {
				eventText := fmt.Sprintf("  %s - %s",
					event.StartTime.Format("3:04 PM"),
					truncateString(event.Title, 35))

				eventItem := fyne.NewMenuItem(eventText, nil)
				eventItem.Disabled = true
				menuItems = append(menuItems, eventItem)
			}

			menuItems = append(menuItems, fyne.NewMenuItemSeparator())
		}

		menuItems = append(menuItems,
			fyne.NewMenuItem("Open Calendar", func() {
				db.calendarWindow.Show()
			}),
			fyne.NewMenuItem("Settings", func() {
				db.showSettingsWindow()
			}),
			fyne.NewMenuItem("Refresh", func() {
				db.repo.LoadEvents(db.calendarWindow.DisplayedMonth())
			}),
		)

		menuItems = append(menuItems, fyne.NewMenuItemSeparator())
		menuItems = append(menuItems, fyne.NewMenuItem("Quit", func() {
			db.quit()
		}))

		menu := fyne.NewMenu("Daybook", menuItems...)
		desk.SetSystemTrayMenu(menu)
	}
}

// truncateString truncates a string to maxLen runes, adding "..." if needed
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
