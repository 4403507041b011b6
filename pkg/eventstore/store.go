// Package eventstore talks to the external calendar store that owns
// both the events and the access grant. Daybook never persists events
// itself; everything goes through the Store interface.
package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/borgmon/daybook/pkg/models"
)

// AuthStatus is the raw authorization value as recorded by the store.
// Grant records written by releases before the split into full and
// write-only access carry the single legacy "authorized" value; the
// authorization coordinator normalizes both shapes.
type AuthStatus string

const (
	StatusNotDetermined AuthStatus = "notDetermined"
	StatusRestricted    AuthStatus = "restricted"
	StatusDenied        AuthStatus = "denied"
	StatusAuthorized    AuthStatus = "authorized" // legacy schema v1
	StatusFullAccess    AuthStatus = "fullAccess"
	StatusWriteOnly     AuthStatus = "writeOnly"
)

// AccessScope is the access level asked for when prompting the user.
type AccessScope string

const (
	ScopeFullAccess AccessScope = "fullAccess"
	ScopeWriteOnly  AccessScope = "writeOnly"
)

var (
	// ErrNotConfigured is returned when no calendar account is set up.
	ErrNotConfigured = errors.New("calendar account not configured")

	// ErrRestricted is returned when access is managed externally and
	// the user cannot be prompted.
	ErrRestricted = errors.New("calendar access is restricted")
)

// Store is the external calendar/event store. Status reads are
// synchronous and always succeed; everything else may block on the
// network and should be called off the UI thread.
type Store interface {
	// AuthorizationStatus returns the recorded grant. A store with no
	// prior determination reports StatusNotDetermined, never an error.
	AuthorizationStatus() AuthStatus

	// RequestAccess prompts the user for the given scope and records
	// the answer. granted is false both on decline and on failure.
	RequestAccess(ctx context.Context, scope AccessScope) (granted bool, err error)

	// Events returns all events overlapping [start, end]. Range
	// overlap, not containment: an event straddling a boundary is
	// included once.
	Events(ctx context.Context, start, end time.Time) ([]models.Event, error)

	// SaveEvent writes a single non-recurring event.
	SaveEvent(ctx context.Context, event *models.Event) error

	// DefaultCalendarID identifies the calendar new events go into.
	DefaultCalendarID() string

	// Subscribe registers a callback fired when the store content
	// changes externally. The returned func cancels the subscription.
	Subscribe(fn func()) (cancel func())
}

// GrantSchemaVersion is the schema written for new grant records.
// Version 1 records predate write-only access and use
// StatusAuthorized/StatusDenied only.
const GrantSchemaVersion = 2

// GrantRecord is the persisted answer to a permission prompt, the
// moral equivalent of the OS permission database entry.
type GrantRecord struct {
	Version int
	Status  AuthStatus
}

// GrantStorage persists grant records across runs. The app backs this
// with Fyne preferences.
type GrantStorage interface {
	LoadGrant() (GrantRecord, bool)
	SaveGrant(GrantRecord)
}

// Prompter asks the user to approve an access request. It stands in
// for the OS permission sheet and may block until the user answers.
type Prompter func(scope AccessScope) bool
