package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/borgmon/daybook/pkg/eventstore"
	"github.com/borgmon/daybook/pkg/models"
)

// loadCall scripts one Events query: the store blocks until release
// is closed, then returns the given result. A non-zero start binds the
// script to the query for that range, so concurrent loads cannot pick
// up each other's results.
type loadCall struct {
	start   time.Time
	release chan struct{}
	events  []models.Event
	err     error
}

// fakeStore is a scriptable eventstore.Store for repository tests.
type fakeStore struct {
	mu         sync.Mutex
	events     []models.Event
	eventsErr  error
	loads      []*loadCall
	saved      []models.Event
	saveErr    error
	queryCalls int
	lastStart  time.Time
	lastEnd    time.Time
}

func (f *fakeStore) AuthorizationStatus() eventstore.AuthStatus {
	return eventstore.StatusFullAccess
}

func (f *fakeStore) RequestAccess(ctx context.Context, scope eventstore.AccessScope) (bool, error) {
	return true, nil
}

func (f *fakeStore) Events(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	f.mu.Lock()
	f.queryCalls++
	f.lastStart, f.lastEnd = start, end
	var call *loadCall
	for i, c := range f.loads {
		if c.start.IsZero() || c.start.Equal(start) {
			call = c
			f.loads = append(f.loads[:i], f.loads[i+1:]...)
			break
		}
	}
	events, err := f.events, f.eventsErr
	f.mu.Unlock()

	if call != nil {
		<-call.release
		return call.events, call.err
	}
	return events, err
}

func (f *fakeStore) SaveEvent(ctx context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, *event)
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeStore) DefaultCalendarID() string { return "primary" }

func (f *fakeStore) Subscribe(fn func()) func() { return func() {} }

func (f *fakeStore) queries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCalls
}

func (f *fakeStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type fakeGate struct {
	read  bool
	write bool
}

func (g *fakeGate) IsReadEligible() bool  { return g.read }
func (g *fakeGate) IsWriteEligible() bool { return g.write }

func newTestRepo(store *fakeStore, gate *fakeGate) (*EventRepository, chan struct{}) {
	repo := New(store, gate)
	notified := make(chan struct{}, 16)
	repo.Subscribe(func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	})
	return repo, notified
}

func waitNotify(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a repository notification")
	}
}

func ev(id, title string, start time.Time, d time.Duration) models.Event {
	return models.Event{
		ID:        id,
		Title:     title,
		StartTime: start,
		EndTime:   start.Add(d),
	}
}

func TestLoadEventsSortsByStart(t *testing.T) {
	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	store := &fakeStore{events: []models.Event{
		ev("c", "Lunch", base.AddDate(0, 0, 14).Add(12*time.Hour), time.Hour),
		ev("a", "Standup", base.Add(9*time.Hour), 15*time.Minute),
		ev("b", "Review", base.AddDate(0, 0, 7).Add(10*time.Hour), time.Hour),
	}}
	repo, notified := newTestRepo(store, &fakeGate{read: true, write: true})

	repo.LoadEvents(base.AddDate(0, 0, 14))
	waitNotify(t, notified)

	got := repo.Events()
	if len(got) != 3 {
		t.Fatalf("got %d events", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].ID != want {
			t.Errorf("position %d: got %q, want %q", i, got[i].ID, want)
		}
	}
	if repo.LastError() != nil {
		t.Errorf("unexpected error: %v", repo.LastError())
	}
}

func TestLoadEventsStableOnEqualStarts(t *testing.T) {
	start := time.Date(2026, time.April, 10, 9, 0, 0, 0, time.UTC)

	store := &fakeStore{events: []models.Event{
		ev("first", "A", start, time.Hour),
		ev("second", "B", start, 30*time.Minute),
		ev("third", "C", start, 2*time.Hour),
	}}
	repo, notified := newTestRepo(store, &fakeGate{read: true})

	repo.LoadEvents(start)
	waitNotify(t, notified)

	got := repo.Events()
	for i, want := range []string{"first", "second", "third"} {
		if got[i].ID != want {
			t.Errorf("equal starts reordered: position %d is %q", i, got[i].ID)
		}
	}
}

func TestLoadEventsQueriesWholeMonth(t *testing.T) {
	store := &fakeStore{}
	repo, notified := newTestRepo(store, &fakeGate{read: true})

	repo.LoadEvents(time.Date(2026, time.April, 17, 13, 30, 0, 0, time.UTC))
	waitNotify(t, notified)

	store.mu.Lock()
	start, end := store.lastStart, store.lastEnd
	store.mu.Unlock()

	wantStart := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("query start = %v", start)
	}
	if end.Month() != time.April || end.Day() != 30 {
		t.Errorf("query end = %v", end)
	}
	if !repo.Month().Equal(wantStart) {
		t.Errorf("Month() = %v", repo.Month())
	}
}

func TestLoadEventsClearsWithoutReadAccess(t *testing.T) {
	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	gate := &fakeGate{read: true}
	store := &fakeStore{events: []models.Event{ev("a", "Standup", base.Add(9*time.Hour), time.Hour)}}
	repo, notified := newTestRepo(store, gate)

	repo.LoadEvents(base)
	waitNotify(t, notified)
	if len(repo.Events()) != 1 {
		t.Fatalf("precondition failed: %d events loaded", len(repo.Events()))
	}

	// Access revoked: the next load clears instead of showing stale data.
	gate.read = false
	queriesBefore := store.queries()

	repo.LoadEvents(base)
	waitNotify(t, notified)

	if len(repo.Events()) != 0 {
		t.Errorf("events not cleared: %d remain", len(repo.Events()))
	}
	if store.queries() != queriesBefore {
		t.Error("store queried despite missing read access")
	}
}

func TestLoadEventsFailureKeepsList(t *testing.T) {
	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{events: []models.Event{ev("a", "Standup", base.Add(9*time.Hour), time.Hour)}}
	repo, notified := newTestRepo(store, &fakeGate{read: true})

	repo.LoadEvents(base)
	waitNotify(t, notified)

	store.mu.Lock()
	store.eventsErr = errors.New("server unreachable")
	store.mu.Unlock()

	repo.LoadEvents(base)
	waitNotify(t, notified)

	if repo.LastError() == nil {
		t.Error("load failure not surfaced")
	}
	if len(repo.Events()) != 1 {
		t.Errorf("failed load replaced the list: %d events", len(repo.Events()))
	}

	// A later successful load clears the error.
	store.mu.Lock()
	store.eventsErr = nil
	store.mu.Unlock()

	repo.LoadEvents(base)
	waitNotify(t, notified)
	if repo.LastError() != nil {
		t.Errorf("error not cleared: %v", repo.LastError())
	}
}

func TestLoadEventsDiscardsStaleResult(t *testing.T) {
	april := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	may := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)

	slow := &loadCall{start: april, release: make(chan struct{}), events: []models.Event{
		ev("april", "Old month", april.Add(9*time.Hour), time.Hour),
	}}
	fast := &loadCall{start: may, release: make(chan struct{}), events: []models.Event{
		ev("may", "New month", may.Add(9*time.Hour), time.Hour),
	}}

	store := &fakeStore{loads: []*loadCall{slow, fast}}
	repo, notified := newTestRepo(store, &fakeGate{read: true})

	repo.LoadEvents(april)
	repo.LoadEvents(may)

	// The newer query answers first.
	close(fast.release)
	waitNotify(t, notified)

	if len(repo.Events()) != 1 || repo.Events()[0].ID != "may" {
		t.Fatalf("unexpected events after fast load: %+v", repo.Events())
	}

	// The stale answer arrives afterwards and must be dropped.
	close(slow.release)
	time.Sleep(100 * time.Millisecond)

	if len(repo.Events()) != 1 || repo.Events()[0].ID != "may" {
		t.Errorf("stale load overwrote the list: %+v", repo.Events())
	}
}

func TestLoadEventsRevokedAccessInvalidatesInFlightLoad(t *testing.T) {
	april := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	pending := &loadCall{release: make(chan struct{}), events: []models.Event{
		ev("leak", "Should never show", april.Add(9*time.Hour), time.Hour),
	}}
	gate := &fakeGate{read: true}
	store := &fakeStore{loads: []*loadCall{pending}}
	repo, notified := newTestRepo(store, gate)

	// The eligible load is still waiting on the store when access goes
	// away and a clearing load runs.
	repo.LoadEvents(april)
	gate.read = false
	repo.LoadEvents(april)
	waitNotify(t, notified)

	if len(repo.Events()) != 0 {
		t.Fatalf("clearing load left %d events", len(repo.Events()))
	}

	// The stale result arrives after the clear and must be dropped.
	close(pending.release)
	time.Sleep(100 * time.Millisecond)

	if got := repo.Events(); len(got) != 0 {
		t.Errorf("in-flight load repopulated the list after access was revoked: %+v", got)
	}
}

func TestAddEventRejectsBadRange(t *testing.T) {
	store := &fakeStore{}
	repo, _ := newTestRepo(store, &fakeGate{read: true, write: true})

	start := time.Date(2026, time.April, 10, 10, 0, 0, 0, time.UTC)

	if err := repo.AddEvent("Backwards", start, start.Add(-time.Hour)); !errors.Is(err, ErrEndNotAfterStart) {
		t.Errorf("end before start: got %v", err)
	}
	if err := repo.AddEvent("Zero length", start, start); !errors.Is(err, ErrEndNotAfterStart) {
		t.Errorf("zero duration: got %v", err)
	}
	if store.savedCount() != 0 {
		t.Error("invalid events reached the store")
	}
}

func TestAddEventRequiresWriteAccess(t *testing.T) {
	store := &fakeStore{}
	repo, _ := newTestRepo(store, &fakeGate{read: true, write: false})

	start := time.Date(2026, time.April, 10, 10, 0, 0, 0, time.UTC)
	if err := repo.AddEvent("Nope", start, start.Add(time.Hour)); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("got %v, want ErrNotAuthorized", err)
	}
	if store.savedCount() != 0 {
		t.Error("unauthorized event reached the store")
	}
}

func TestAddEventWriteOnlyDoesNotReload(t *testing.T) {
	store := &fakeStore{}
	repo, _ := newTestRepo(store, &fakeGate{read: false, write: true})

	saved := make(chan models.Event, 1)
	repo.SetOnSaved(func(e models.Event) { saved <- e })

	start := time.Date(2026, time.April, 10, 10, 0, 0, 0, time.UTC)
	if err := repo.AddEvent("Dentist", start, start.Add(time.Hour)); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	var got models.Event
	select {
	case got = <-saved:
	case <-time.After(2 * time.Second):
		t.Fatal("saved hook never fired")
	}

	if got.ID == "" {
		t.Error("saved event has no ID")
	}
	if got.CalendarID != "primary" {
		t.Errorf("calendar = %q, want the store default", got.CalendarID)
	}
	if store.savedCount() != 1 {
		t.Errorf("store saved %d events", store.savedCount())
	}
	if store.queries() != 0 {
		t.Error("write-only add triggered a read query")
	}
	if len(repo.Events()) != 0 {
		t.Error("write-only add populated the event list")
	}
}

func TestAddEventReloadsWithReadAccess(t *testing.T) {
	store := &fakeStore{}
	repo, notified := newTestRepo(store, &fakeGate{read: true, write: true})

	start := time.Date(2026, time.April, 10, 10, 0, 0, 0, time.UTC)
	if err := repo.AddEvent("Dentist", start, start.Add(time.Hour)); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	// The save triggers a reload of the month containing the event.
	waitNotify(t, notified)

	got := repo.Events()
	if len(got) != 1 || got[0].Title != "Dentist" {
		t.Fatalf("reloaded list = %+v", got)
	}
	if !repo.Month().Equal(time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Month() = %v after add", repo.Month())
	}
}

func TestAddEventSaveFailure(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("put rejected")}
	repo, notified := newTestRepo(store, &fakeGate{read: true, write: true})

	start := time.Date(2026, time.April, 10, 10, 0, 0, 0, time.UTC)
	if err := repo.AddEvent("Doomed", start, start.Add(time.Hour)); err != nil {
		t.Fatalf("AddEvent returned synchronously: %v", err)
	}

	waitNotify(t, notified)

	if repo.LastError() == nil {
		t.Error("save failure not surfaced")
	}
	if len(repo.Events()) != 0 {
		t.Error("failed save changed the event list")
	}
	if store.queries() != 0 {
		t.Error("failed save still triggered a reload")
	}
}

func TestEventsOn(t *testing.T) {
	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	store := &fakeStore{events: []models.Event{
		ev("morning", "Standup", base.AddDate(0, 0, 9).Add(9*time.Hour), time.Hour),
		ev("overnight", "Red-eye", base.AddDate(0, 0, 9).Add(22*time.Hour), 8*time.Hour),
		ev("other", "Elsewhere", base.AddDate(0, 0, 20).Add(9*time.Hour), time.Hour),
		{ID: "zero", Title: "No end", StartTime: base.AddDate(0, 0, 9).Add(15 * time.Hour)},
	}}
	repo, notified := newTestRepo(store, &fakeGate{read: true})

	repo.LoadEvents(base)
	waitNotify(t, notified)

	day10 := repo.EventsOn(base.AddDate(0, 0, 9))
	if len(day10) != 3 {
		t.Fatalf("day 10: got %d events: %+v", len(day10), day10)
	}

	// The overnight event overlaps the next day too.
	day11 := repo.EventsOn(base.AddDate(0, 0, 10))
	if len(day11) != 1 || day11[0].ID != "overnight" {
		t.Errorf("day 11: %+v", day11)
	}

	if empty := repo.EventsOn(base.AddDate(0, 0, 4)); len(empty) != 0 {
		t.Errorf("day 5 should be empty: %+v", empty)
	}
}
