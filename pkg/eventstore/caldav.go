package eventstore

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"github.com/borgmon/daybook/pkg/models"
)

// CalDAVOptions configure the CalDAV-backed store.
type CalDAVOptions struct {
	Endpoint     string // CalDAV server URL, e.g. https://caldav.example.com/
	Username     string
	Password     string // app-specific password for most providers
	CalendarName string // display name of the calendar; empty picks the first one
	Managed      bool   // deployment-managed account, access cannot be prompted
	PollInterval time.Duration
}

// CalDAVStore implements Store against a CalDAV server. The access
// grant lives in GrantStorage so the recorded answer survives
// restarts, like the OS permission database it mirrors.
type CalDAVStore struct {
	opts     CalDAVOptions
	client   *caldav.Client
	grants   GrantStorage
	prompter Prompter

	mu           sync.Mutex
	calendarPath string
	subscribers  map[int]func()
	nextSubID    int
	lastETag     string
	stopPoll     chan struct{}
}

// NewCalDAVStore creates a store for the given account. An empty
// endpoint is allowed: the store then reports authorization state but
// fails queries with ErrNotConfigured until settings are filled in.
func NewCalDAVStore(opts CalDAVOptions, grants GrantStorage) (*CalDAVStore, error) {
	s := &CalDAVStore{
		opts:        opts,
		grants:      grants,
		subscribers: make(map[int]func()),
	}

	client, err := newClient(opts)
	if err != nil {
		return nil, err
	}
	s.client = client

	return s, nil
}

func newClient(opts CalDAVOptions) (*caldav.Client, error) {
	if opts.Endpoint == "" {
		return nil, nil
	}

	var httpClient webdav.HTTPClient = http.DefaultClient
	if opts.Username != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, opts.Username, opts.Password)
	}

	client, err := caldav.NewClient(httpClient, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create CalDAV client: %w", err)
	}
	return client, nil
}

// UpdateOptions swaps the account settings in place, dropping the
// cached calendar path and change tag. Callers should restart change
// polling afterwards.
func (s *CalDAVStore) UpdateOptions(opts CalDAVOptions) error {
	client, err := newClient(opts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.opts = opts
	s.client = client
	s.calendarPath = ""
	s.lastETag = ""
	s.mu.Unlock()

	return nil
}

// VerifyConnection checks that the configured credentials can reach
// the account's calendar.
func (s *CalDAVStore) VerifyConnection(ctx context.Context) error {
	if s.getClient() == nil {
		return ErrNotConfigured
	}
	return s.verify(ctx)
}

func (s *CalDAVStore) getClient() *caldav.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// SetPrompter registers the consent prompt shown on RequestAccess.
// Without one, requests are treated as approved (the account was
// explicitly configured by the user).
func (s *CalDAVStore) SetPrompter(p Prompter) {
	s.prompter = p
}

func (s *CalDAVStore) AuthorizationStatus() AuthStatus {
	if s.managed() {
		return StatusRestricted
	}

	rec, ok := s.grants.LoadGrant()
	if !ok {
		return StatusNotDetermined
	}

	// Raw value, legacy "authorized" included. Normalization is the
	// coordinator's job.
	return rec.Status
}

func (s *CalDAVStore) RequestAccess(ctx context.Context, scope AccessScope) (bool, error) {
	if s.managed() {
		return false, ErrRestricted
	}
	if s.getClient() == nil {
		return false, ErrNotConfigured
	}

	if s.prompter != nil && !s.prompter(scope) {
		s.grants.SaveGrant(GrantRecord{Version: GrantSchemaVersion, Status: StatusDenied})
		return false, nil
	}

	// Consent given; verify the credentials actually work before
	// recording the grant.
	if err := s.verify(ctx); err != nil {
		if isAuthRejection(err) {
			s.grants.SaveGrant(GrantRecord{Version: GrantSchemaVersion, Status: StatusDenied})
			return false, err
		}
		// Transport failure: leave the grant undetermined so a later
		// user-initiated attempt can still prompt.
		return false, err
	}

	status := StatusFullAccess
	if scope == ScopeWriteOnly {
		status = StatusWriteOnly
	}
	s.grants.SaveGrant(GrantRecord{Version: GrantSchemaVersion, Status: status})

	return true, nil
}

func (s *CalDAVStore) Events(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	client := s.getClient()
	if client == nil {
		return nil, ErrNotConfigured
	}

	calPath, err := s.resolveCalendar(ctx)
	if err != nil {
		return nil, err
	}

	// Time-range comp filters are overlap queries per RFC 4791, which
	// is exactly the month-boundary contract we want.
	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: start,
				End:   end,
			}},
		},
	}

	objects, err := client.QueryCalendar(ctx, calPath, query)
	if err != nil {
		return nil, fmt.Errorf("calendar query failed: %w", err)
	}

	events := []models.Event{}
	for _, obj := range objects {
		for _, comp := range obj.Data.Component.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			events = append(events, parseEvent(comp, calPath))
		}
	}

	return events, nil
}

func (s *CalDAVStore) SaveEvent(ctx context.Context, event *models.Event) error {
	client := s.getClient()
	if client == nil {
		return ErrNotConfigured
	}

	calPath, err := s.resolveCalendar(ctx)
	if err != nil {
		return err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//daybook//EN")
	cal.Children = append(cal.Children, encodeEvent(event))

	objPath := strings.TrimSuffix(calPath, "/") + "/" + event.ID + ".ics"
	if _, err := client.PutCalendarObject(ctx, objPath, cal); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}

	return nil
}

func (s *CalDAVStore) DefaultCalendarID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calendarPath != "" {
		return s.calendarPath
	}
	return s.opts.CalendarName
}

func (s *CalDAVStore) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// StartChangePolling watches the calendar collection's ETag and
// notifies subscribers when another client mutates the store.
func (s *CalDAVStore) StartChangePolling() {
	s.mu.Lock()
	interval := s.opts.PollInterval
	if s.client == nil || interval <= 0 {
		s.mu.Unlock()
		return
	}
	if s.stopPoll != nil {
		s.mu.Unlock()
		return
	}
	s.stopPoll = make(chan struct{})
	stop := s.stopPoll
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.pollOnce()
			}
		}
	}()
}

// Close stops background polling.
func (s *CalDAVStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopPoll != nil {
		close(s.stopPoll)
		s.stopPoll = nil
	}
}

func (s *CalDAVStore) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	calPath, err := s.resolveCalendar(ctx)
	if err != nil {
		log.Printf("Change poll skipped: %v", err)
		return
	}

	client := s.getClient()
	if client == nil {
		return
	}

	info, err := client.Stat(ctx, calPath)
	if err != nil {
		log.Printf("Change poll failed: %v", err)
		return
	}

	tag := info.ETag
	if tag == "" {
		tag = info.ModTime.Format(time.RFC3339Nano)
	}

	s.mu.Lock()
	changed := s.lastETag != "" && s.lastETag != tag
	s.lastETag = tag
	fns := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if !changed {
		return
	}

	log.Printf("Calendar changed externally (etag %s)", tag)
	for _, fn := range fns {
		fn()
	}
}

// verify checks that the credentials can reach the account's calendar.
func (s *CalDAVStore) verify(ctx context.Context) error {
	_, err := s.resolveCalendar(ctx)
	return err
}

// resolveCalendar discovers the calendar collection path once and
// caches it: current-user-principal, then the calendar home set, then
// the calendar matching the configured name (or the first one).
func (s *CalDAVStore) resolveCalendar(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.calendarPath != "" {
		p := s.calendarPath
		s.mu.Unlock()
		return p, nil
	}
	client := s.client
	name := s.opts.CalendarName
	s.mu.Unlock()

	if client == nil {
		return "", ErrNotConfigured
	}

	chosen, err := discoverCalendar(ctx, client, name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.calendarPath = chosen.Path
	s.mu.Unlock()

	log.Printf("Using calendar '%s' at %s", chosen.Name, chosen.Path)
	return chosen.Path, nil
}

// discoverCalendar walks the account to the calendar collection:
// current-user-principal, then the calendar home set, then the
// calendar matching name (or the first one).
func discoverCalendar(ctx context.Context, client *caldav.Client, name string) (caldav.Calendar, error) {
	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return caldav.Calendar{}, fmt.Errorf("failed to find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return caldav.Calendar{}, fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return caldav.Calendar{}, fmt.Errorf("failed to list calendars: %w", err)
	}
	if len(calendars) == 0 {
		return caldav.Calendar{}, fmt.Errorf("no calendars found for account")
	}

	chosen := calendars[0]
	if name != "" {
		found := false
		for _, cal := range calendars {
			if cal.Name == name {
				chosen = cal
				found = true
				break
			}
		}
		if !found {
			return caldav.Calendar{}, fmt.Errorf("no calendar named '%s'", name)
		}
	}
	return chosen, nil
}

// VerifyOptions checks credentials that have not been applied to a
// store yet, for testing account settings before saving them.
func VerifyOptions(ctx context.Context, opts CalDAVOptions) error {
	client, err := newClient(opts)
	if err != nil {
		return err
	}
	if client == nil {
		return ErrNotConfigured
	}
	_, err = discoverCalendar(ctx, client, opts.CalendarName)
	return err
}

func (s *CalDAVStore) managed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Managed
}

// isAuthRejection sniffs credential rejections out of client errors.
// The caldav client does not expose response status codes directly.
func isAuthRejection(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "forbidden")
}

func encodeEvent(event *models.Event) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.ID)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime)

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}

	return ve
}

func parseEvent(comp *ical.Component, calendarID string) models.Event {
	event := models.Event{CalendarID: calendarID}

	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		event.ID = prop.Value
	}
	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		event.Title = prop.Value
	}
	if prop := comp.Props.Get(ical.PropDescription); prop != nil {
		event.Description = prop.Value
	}
	if prop := comp.Props.Get(ical.PropLocation); prop != nil {
		event.Location = prop.Value
	}

	if t, err := comp.Props.DateTime(ical.PropDateTimeStart, time.Local); err == nil {
		event.StartTime = t
	}
	if t, err := comp.Props.DateTime(ical.PropDateTimeEnd, time.Local); err == nil {
		event.EndTime = t
	}

	return event
}
