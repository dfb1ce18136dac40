// Package session tracks who is making a request. A request starts
// anonymous and becomes authenticated by applying a login event for the
// user its bearer token resolves to.
package session

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidTransition = errors.New("invalid session transition")
)

type Status string

const (
	StatusAnonymous     Status = "anonymous"
	StatusAuthenticated Status = "authenticated"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type State struct {
	Status Status `json:"status"`
	User   User   `json:"user"`
	// Token is the bearer token the state was resolved from, if any.
	Token string `json:"-"`
}

func Anonymous() State {
	return State{Status: StatusAnonymous}
}

func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User.ID != ""
}

// RequireUser returns the signed-in user or ErrUnauthenticated.
func (s State) RequireUser() (User, error) {
	if !s.Authenticated() {
		return User{}, ErrUnauthenticated
	}
	return s.User, nil
}

type EventKind string

const (
	EventLogin  EventKind = "login"
	EventLogout EventKind = "logout"
)

type Event struct {
	Kind EventKind
	User User
}

// Transition returns the state that follows s after e. Logging in again as
// the same user is a no-op.
func Transition(s State, e Event) (State, error) {
	switch e.Kind {
	case EventLogin:
		if e.User.ID == "" {
			return s, fmt.Errorf("%w: login without a user", ErrInvalidTransition)
		}
		if s.Status == StatusAuthenticated && s.User.ID != e.User.ID {
			return s, fmt.Errorf("%w: already signed in as %s", ErrInvalidTransition, s.User.ID)
		}
		return State{Status: StatusAuthenticated, User: e.User, Token: s.Token}, nil
	case EventLogout:
		if s.Status != StatusAuthenticated {
			return s, fmt.Errorf("%w: logout while anonymous", ErrInvalidTransition)
		}
		return Anonymous(), nil
	default:
		return s, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, e.Kind)
	}
}
