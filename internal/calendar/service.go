package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"thegrid/internal/logger"
	"thegrid/internal/model"
)

// signInTTL bounds how long an issued OAuth state value stays redeemable.
const signInTTL = 10 * time.Minute

// EventInserter submits an event to a calendar and returns the stored event.
type EventInserter interface {
	Insert(ctx context.Context, calendarID string, event *gcal.Event) (*gcal.Event, error)
}

// InserterFactory builds an EventInserter authorised by ts.
type InserterFactory func(ctx context.Context, ts oauth2.TokenSource) (EventInserter, error)

type googleInserter struct {
	srv *gcal.Service
}

// NewGoogleInserter creates a Calendar API client authorised by ts.
func NewGoogleInserter(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (EventInserter, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return &googleInserter{srv: srv}, nil
}

func (g *googleInserter) Insert(ctx context.Context, calendarID string, event *gcal.Event) (*gcal.Event, error) {
	return g.srv.Events.Insert(calendarID, event).Context(ctx).Do()
}

// LoadOAuthConfig reads a Google client secrets file and requests the
// event-management scope only.
func LoadOAuthConfig(credentialsFile, redirectURL string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", credentialsFile, err)
	}
	cfg, err := google.ConfigFromJSON(b, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg, nil
}

type Options struct {
	OAuth       *oauth2.Config
	TokenFile   string
	CalendarID  string
	Location    *time.Location
	Granularity int
	NewInserter InserterFactory
}

// Service owns the calendar session and creates events from tasks.
type Service struct {
	opts Options

	mu        sync.Mutex
	state     State
	inserter  EventInserter
	pending   map[string]time.Time
	listeners map[int]func(State)
	nextID    int
}

func NewService(opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Granularity <= 0 {
		opts.Granularity = model.DurationGranularity
	}
	if opts.CalendarID == "" {
		opts.CalendarID = "primary"
	}
	if opts.NewInserter == nil {
		opts.NewInserter = func(ctx context.Context, ts oauth2.TokenSource) (EventInserter, error) {
			return NewGoogleInserter(ctx, ts)
		}
	}
	return &Service{
		opts:      opts,
		state:     StateUninitialized,
		pending:   make(map[string]time.Time),
		listeners: make(map[int]func(State)),
	}
}

// State returns the current sign-in state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnStateChange registers fn for every state transition. The returned func removes it.
func (s *Service) OnStateChange(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) setState(state State, inserter EventInserter) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.inserter = inserter
	fns := s.listenersLocked()
	s.mu.Unlock()

	if changed {
		notify(fns, state)
	}
}

// expire signs out only if failed is still the active client; a session
// established while the failing call was in flight is kept.
func (s *Service) expire(failed EventInserter) bool {
	s.mu.Lock()
	if s.inserter != failed {
		s.mu.Unlock()
		return false
	}
	changed := s.state != StateSignedOut
	s.state = StateSignedOut
	s.inserter = nil
	fns := s.listenersLocked()
	s.mu.Unlock()

	if changed {
		notify(fns, StateSignedOut)
	}
	return true
}

func (s *Service) listenersLocked() []func(State) {
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(State), state State) {
	for _, fn := range fns {
		fn(state)
	}
}

// Init restores a stored session, if any. It ends in SignedIn or SignedOut.
func (s *Service) Init(ctx context.Context) error {
	s.setState(StateInitializing, nil)

	tok, err := tokenFromFile(s.opts.TokenFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WarnLog(ctx, "ignoring unreadable calendar token %s: %v", s.opts.TokenFile, err)
		}
		s.setState(StateSignedOut, nil)
		return nil
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		logger.InfoLog(ctx, "stored calendar token has expired")
		s.setState(StateSignedOut, nil)
		return nil
	}
	if s.opts.OAuth == nil {
		s.setState(StateSignedOut, nil)
		return ErrNotConfigured
	}

	if err := s.activate(ctx, tok); err != nil {
		s.setState(StateSignedOut, nil)
		return err
	}
	logger.InfoLog(ctx, "calendar session restored")
	return nil
}

func (s *Service) activate(ctx context.Context, tok *oauth2.Token) error {
	// The token source outlives the request that created it.
	ts := &savingTokenSource{
		base: s.opts.OAuth.TokenSource(context.Background(), tok),
		path: s.opts.TokenFile,
		last: tok.AccessToken,
	}
	inserter, err := s.opts.NewInserter(ctx, oauth2.ReuseTokenSource(tok, ts))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCalendarUnavailable, err)
	}
	s.setState(StateSignedIn, inserter)
	return nil
}

// BeginSignIn starts a user-triggered sign-in and returns the consent URL.
func (s *Service) BeginSignIn() (string, error) {
	if s.opts.OAuth == nil {
		return "", ErrNotConfigured
	}
	state := uuid.NewString()
	now := time.Now()

	s.mu.Lock()
	for k, issued := range s.pending {
		if now.Sub(issued) > signInTTL {
			delete(s.pending, k)
		}
	}
	s.pending[state] = now
	s.mu.Unlock()

	return s.opts.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// CompleteSignIn redeems the authorization code delivered to the redirect URL.
func (s *Service) CompleteSignIn(ctx context.Context, state, code string) error {
	if s.opts.OAuth == nil {
		return ErrNotConfigured
	}

	s.mu.Lock()
	issued, ok := s.pending[state]
	delete(s.pending, state)
	s.mu.Unlock()
	if !ok || time.Since(issued) > signInTTL {
		return ErrInvalidState
	}
	if code == "" {
		return fmt.Errorf("%w: authorization code missing", ErrNotAuthenticated)
	}

	tok, err := s.opts.OAuth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: token exchange failed: %v", ErrNotAuthenticated, err)
	}
	if err := saveToken(s.opts.TokenFile, tok); err != nil {
		logger.WarnLog(ctx, "calendar token not persisted: %v", err)
	}
	return s.activate(ctx, tok)
}

// SignOut forgets the stored session.
func (s *Service) SignOut() error {
	s.setState(StateSignedOut, nil)
	if err := os.Remove(s.opts.TokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not delete token file %s: %w", s.opts.TokenFile, err)
	}
	return nil
}

// CreateEvent mirrors a schedulable task into the target calendar and returns
// the external event id. Each call creates a new event.
func (s *Service) CreateEvent(ctx context.Context, task model.Task) (string, error) {
	s.mu.Lock()
	state, inserter := s.state, s.inserter
	s.mu.Unlock()

	if state != StateSignedIn || inserter == nil {
		return "", ErrNotAuthenticated
	}

	event, err := BuildEvent(task, s.opts.Location, s.opts.Granularity)
	if err != nil {
		return "", err
	}

	created, err := inserter.Insert(ctx, s.opts.CalendarID, event)
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrNotAuthenticated) && s.expire(inserter) {
			logger.WarnLog(ctx, "calendar session expired: %v", err)
		}
		return "", err
	}
	return created.Id, nil
}

func classify(err error) error {
	var apiErr *googleapi.Error
	var retrieveErr *oauth2.RetrieveError
	switch {
	case errors.As(err, &retrieveErr):
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	case errors.As(err, &apiErr):
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
		case http.StatusBadRequest, http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrCalendarUnavailable, err)
}
