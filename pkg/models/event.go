package models

import "time"

// Event represents a calendar event as returned by the event store.
// Events are never mutated locally; the repository reads fresh
// snapshots per month and issues write commands.
type Event struct {
	ID          string    // stable UID within the store
	Title       string    // event title/summary
	Description string    // event description
	Location    string    // event location
	StartTime   time.Time // event start instant
	EndTime     time.Time // event end instant
	CalendarID  string    // calendar collection the event belongs to
}
