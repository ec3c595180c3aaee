package calendar

import "errors"

// State is the sign-in state of the calendar session.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateSignedOut
	StateSignedIn
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateSignedOut:
		return "signed_out"
	case StateSignedIn:
		return "signed_in"
	}
	return "unknown"
}

var (
	// ErrNotAuthenticated is returned when no usable session exists
	ErrNotAuthenticated = errors.New("calendar: not authenticated")

	// ErrCalendarUnavailable is returned on network or service failure
	ErrCalendarUnavailable = errors.New("calendar: service unavailable")

	// ErrInvalidEvent is returned for events the calendar cannot accept
	ErrInvalidEvent = errors.New("calendar: invalid event")

	// ErrInvalidState is returned when an OAuth callback carries an unknown state value
	ErrInvalidState = errors.New("calendar: unknown sign-in state")

	// ErrNotConfigured is returned when no OAuth client is configured
	ErrNotConfigured = errors.New("calendar: oauth client not configured")
)
