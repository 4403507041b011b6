// Package authorization owns the calendar-access permission state and
// the user-facing request flow.
package authorization

import (
	"context"
	"log"
	"time"

	"github.com/borgmon/daybook/pkg/eventstore"
	"github.com/borgmon/daybook/pkg/models"
)

// RequestPhase is the lifecycle of a single user-initiated access
// request.
type RequestPhase string

const (
	PhaseNotRequested RequestPhase = "notRequested"
	PhaseInProgress   RequestPhase = "inProgress"
	PhaseSucceeded    RequestPhase = "succeeded"
	PhaseFailed       RequestPhase = "failed"
)

// RequestState is the current request phase plus a human-readable
// reason when the phase is PhaseFailed.
type RequestState struct {
	Phase  RequestPhase
	Reason string
}

// Decision is the synchronous answer to RequestAccess.
type Decision int

const (
	// DecisionPrompted means the store prompt was issued; the outcome
	// arrives asynchronously.
	DecisionPrompted Decision = iota

	// DecisionRefused means access is restricted and prompting is
	// forbidden. Terminal; not user-correctable inside the app.
	DecisionRefused

	// DecisionOpenSettings means access was previously denied: the
	// store will not prompt again, so the user must be sent to system
	// settings instead.
	DecisionOpenSettings

	// DecisionBusy means a request is already in flight.
	DecisionBusy
)

// successResetDelay is how long PhaseSucceeded stays visible before
// reverting to PhaseNotRequested. Purely a UI affordance.
const successResetDelay = 3 * time.Second

// Coordinator is the single source of truth for "can I read/write
// calendar data right now". All state is owned by the UI thread: the
// dispatcher marshals asynchronous completions back before anything
// is touched, so no locking is needed.
type Coordinator struct {
	store    eventstore.Store
	dispatch func(func())

	status     models.AuthorizationStatus
	reqState   RequestState
	inFlight   bool
	resetDelay time.Duration

	subscribers    map[int]func()
	nextSubID      int
	onReadEligible func()
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDispatcher sets the function that marshals completions onto the
// UI thread (fyne.Do in the app, synchronous in tests).
func WithDispatcher(dispatch func(func())) Option {
	return func(c *Coordinator) { c.dispatch = dispatch }
}

// WithSuccessResetDelay overrides how long PhaseSucceeded lingers.
func WithSuccessResetDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.resetDelay = d }
}

func New(store eventstore.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       store,
		dispatch:    func(fn func()) { fn() },
		status:      models.AuthUndetermined,
		reqState:    RequestState{Phase: PhaseNotRequested},
		resetDelay:  successResetDelay,
		subscribers: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the current normalized authorization status.
func (c *Coordinator) Status() models.AuthorizationStatus {
	return c.status
}

// RequestState returns the state of the current or most recent access
// request.
func (c *Coordinator) RequestState() RequestState {
	return c.reqState
}

func (c *Coordinator) IsReadEligible() bool {
	return c.status.CanRead()
}

func (c *Coordinator) IsWriteEligible() bool {
	return c.status.CanWrite()
}

// SetOnReadEligible registers the hook fired whenever a status refresh
// lands on a read-eligible value; the app uses it to reload the
// displayed month.
func (c *Coordinator) SetOnReadEligible(fn func()) {
	c.onReadEligible = fn
}

// Subscribe registers a callback fired after any state change. The
// returned func cancels the subscription.
func (c *Coordinator) Subscribe(fn func()) func() {
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	return func() { delete(c.subscribers, id) }
}

// RefreshStatus re-reads the store's authorization value and
// normalizes it. Never errors: no prior determination simply yields
// AuthUndetermined. A read-eligible result triggers an event reload
// through the registered hook.
func (c *Coordinator) RefreshStatus() {
	c.setStatus(Normalize(c.store.AuthorizationStatus()))

	if c.status.CanRead() && c.onReadEligible != nil {
		c.onReadEligible()
	}
}

// RequestAccess drives the permission prompt. The returned Decision is
// immediate; when it is DecisionPrompted the outcome is delivered to
// onComplete (may be nil) on the UI thread once the store answers.
//
// Guards, in order: restricted accounts are never prompted; a prior
// denial is not re-prompted (the store will not show the dialog twice)
// and instead redirects to system settings; only one request may be in
// flight.
func (c *Coordinator) RequestAccess(scope eventstore.AccessScope, onComplete func(RequestState)) Decision {
	if c.inFlight {
		return DecisionBusy
	}

	switch c.status {
	case models.AuthRestricted:
		log.Println("Access request refused: account is restricted")
		return DecisionRefused
	case models.AuthDenied:
		// Denial is terminal for prompting; reset the request state so
		// the settings redirect starts from a clean slate.
		c.reqState = RequestState{Phase: PhaseNotRequested}
		c.notify()
		return DecisionOpenSettings
	}

	c.inFlight = true
	c.reqState = RequestState{Phase: PhaseInProgress}
	c.notify()

	go func() {
		granted, err := c.store.RequestAccess(context.Background(), scope)

		c.dispatch(func() {
			c.inFlight = false
			c.setStatus(Normalize(c.store.AuthorizationStatus()))

			if c.status.CanWrite() {
				c.reqState = RequestState{Phase: PhaseSucceeded}
				c.scheduleSuccessReset()
			} else {
				reason := "access denied"
				if err != nil {
					reason = err.Error()
				}
				c.reqState = RequestState{Phase: PhaseFailed, Reason: reason}
				log.Printf("Access request failed (granted=%v): %s", granted, reason)
			}
			c.notify()

			if onComplete != nil {
				onComplete(c.reqState)
			}

			if c.status.CanRead() && c.onReadEligible != nil {
				c.onReadEligible()
			}
		})
	}()

	return DecisionPrompted
}

// scheduleSuccessReset reverts a transient PhaseSucceeded back to
// PhaseNotRequested after the configured delay.
func (c *Coordinator) scheduleSuccessReset() {
	time.AfterFunc(c.resetDelay, func() {
		c.dispatch(func() {
			if c.reqState.Phase == PhaseSucceeded {
				c.reqState = RequestState{Phase: PhaseNotRequested}
				c.notify()
			}
		})
	})
}

func (c *Coordinator) setStatus(status models.AuthorizationStatus) {
	if c.status == status {
		return
	}
	log.Printf("Authorization status: %s -> %s", c.status, status)
	c.status = status
	c.notify()
}

func (c *Coordinator) notify() {
	for _, fn := range c.subscribers {
		fn()
	}
}

// Normalize folds the store's raw grant values, legacy and modern
// alike, into the five-value model. Nothing outside this function
// branches on grant schema versions.
func Normalize(raw eventstore.AuthStatus) models.AuthorizationStatus {
	switch raw {
	case eventstore.StatusAuthorized, eventstore.StatusFullAccess:
		return models.AuthFullAccess
	case eventstore.StatusWriteOnly:
		return models.AuthWriteOnly
	case eventstore.StatusRestricted:
		return models.AuthRestricted
	case eventstore.StatusDenied:
		return models.AuthDenied
	default:
		return models.AuthUndetermined
	}
}
