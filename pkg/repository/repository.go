// Package repository is the month-scoped query/command facade over
// the external event store, gated by the current authorization.
package repository

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/borgmon/daybook/pkg/eventstore"
	"github.com/borgmon/daybook/pkg/grid"
	"github.com/borgmon/daybook/pkg/models"
)

var (
	// ErrEndNotAfterStart rejects malformed input before it reaches
	// the store.
	ErrEndNotAfterStart = errors.New("event end must be after its start")

	// ErrNotAuthorized rejects writes without at least write access.
	ErrNotAuthorized = errors.New("no write access to the calendar")
)

// CapabilityGate exposes the coordinator's derived capability flags.
type CapabilityGate interface {
	IsReadEligible() bool
	IsWriteEligible() bool
}

// EventRepository loads one month of events at a time and appends new
// events. Like the coordinator, its state belongs to the UI thread;
// store calls run on goroutines and completions come back through the
// dispatcher. Loads are last-write-wins: a stale result arriving after
// a newer request is discarded.
type EventRepository struct {
	store    eventstore.Store
	gate     CapabilityGate
	dispatch func(func())

	month   time.Time // first day of the displayed month
	events  []models.Event
	lastErr error
	loadSeq uint64

	subscribers map[int]func()
	nextSubID   int
	onSaved     func(models.Event)
}

// Option configures an EventRepository.
type Option func(*EventRepository)

// WithDispatcher sets the UI-thread marshaling function.
func WithDispatcher(dispatch func(func())) Option {
	return func(r *EventRepository) { r.dispatch = dispatch }
}

func New(store eventstore.Store, gate CapabilityGate, opts ...Option) *EventRepository {
	r := &EventRepository{
		store:       store,
		gate:        gate,
		dispatch:    func(fn func()) { fn() },
		subscribers: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events returns the current month's events, sorted ascending by
// start time.
func (r *EventRepository) Events() []models.Event {
	return r.events
}

// Month returns the first day of the currently loaded month.
func (r *EventRepository) Month() time.Time {
	return r.month
}

// LastError returns the most recent load or save failure, cleared by
// the next successful load.
func (r *EventRepository) LastError() error {
	return r.lastErr
}

// Subscribe registers a callback fired after the event list or error
// state changes. The returned func cancels the subscription.
func (r *EventRepository) Subscribe(fn func()) func() {
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = fn
	return func() { delete(r.subscribers, id) }
}

// SetOnSaved registers a hook fired after an event was written to the
// store.
func (r *EventRepository) SetOnSaved(fn func(models.Event)) {
	r.onSaved = fn
}

// LoadEvents replaces the event list with the month containing ref.
// Without read access the list is cleared rather than preserved, so a
// revoked grant never leaves stale events on screen. The store query
// covers the full month range with overlap semantics and the result
// is sorted by start time; equal starts keep store order.
func (r *EventRepository) LoadEvents(ref time.Time) {
	r.month = grid.StartOfMonth(ref)

	if !r.gate.IsReadEligible() {
		// Invalidate any in-flight load; its result must not repopulate
		// the cleared list.
		r.loadSeq++
		r.events = nil
		r.notify()
		return
	}

	r.loadSeq++
	seq := r.loadSeq
	start, end := grid.MonthBounds(ref)

	go func() {
		events, err := r.store.Events(context.Background(), start, end)

		r.dispatch(func() {
			if seq != r.loadSeq {
				// Superseded by a newer load.
				return
			}
			if err != nil {
				log.Printf("Failed to load events for %s: %v", start.Format("2006-01"), err)
				r.lastErr = err
				r.notify()
				return
			}

			sort.SliceStable(events, func(i, j int) bool {
				return events[i].StartTime.Before(events[j].StartTime)
			})

			r.events = events
			r.lastErr = nil
			r.notify()
		})
	}()
}

// AddEvent writes a single non-recurring event to the store's default
// calendar. Malformed ranges and missing write access are rejected
// before any store call. On success the month containing start is
// reloaded when read access allows it; with write-only access the
// list is intentionally left untouched, since it could only ever be
// empty. Save failures are surfaced via LastError and never retried
// automatically.
func (r *EventRepository) AddEvent(title string, start, end time.Time) error {
	if !end.After(start) {
		return ErrEndNotAfterStart
	}
	if !r.gate.IsWriteEligible() {
		return ErrNotAuthorized
	}

	event := models.Event{
		ID:         uuid.New().String(),
		Title:      title,
		StartTime:  start,
		EndTime:    end,
		CalendarID: r.store.DefaultCalendarID(),
	}

	go func() {
		err := r.store.SaveEvent(context.Background(), &event)

		r.dispatch(func() {
			if err != nil {
				log.Printf("Failed to save event '%s': %v", title, err)
				r.lastErr = err
				r.notify()
				return
			}

			log.Printf("Saved event '%s' at %s", title, start.Format(time.RFC3339))
			if r.onSaved != nil {
				r.onSaved(event)
			}

			if r.gate.IsReadEligible() {
				r.LoadEvents(start)
			}
		})
	}()

	return nil
}

// EventsOn filters the loaded month down to events overlapping the
// given day, preserving order.
func (r *EventRepository) EventsOn(day time.Time) []models.Event {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var out []models.Event
	for _, ev := range r.events {
		// Externally sourced events are not re-validated; fall back to
		// the start day when the end instant is missing or malformed.
		if !ev.EndTime.After(ev.StartTime) {
			if grid.SameDay(ev.StartTime, day) {
				out = append(out, ev)
			}
			continue
		}
		if ev.StartTime.Before(dayEnd) && ev.EndTime.After(dayStart) {
			out = append(out, ev)
		}
	}
	return out
}

func (r *EventRepository) notify() {
	for _, fn := range r.subscribers {
		fn()
	}
}
