package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransition_LoginLogoutCycle(t *testing.T) {
	alice := User{ID: "u1", Email: "alice@x.com"}

	s, err := Transition(Anonymous(), Event{Kind: EventLogin, User: alice})
	require.NoError(t, err)
	require.True(t, s.Authenticated())
	require.Equal(t, alice, s.User)

	s, err = Transition(s, Event{Kind: EventLogin, User: alice})
	require.NoError(t, err)
	require.Equal(t, StatusAuthenticated, s.Status)

	s, err = Transition(s, Event{Kind: EventLogout})
	require.NoError(t, err)
	require.Equal(t, Anonymous(), s)
}

func TestTransition_Rejected(t *testing.T) {
	signedIn := State{Status: StatusAuthenticated, User: User{ID: "u1"}}

	cases := []struct {
		name  string
		state State
		event Event
	}{
		{"logout while anonymous", Anonymous(), Event{Kind: EventLogout}},
		{"login without user", Anonymous(), Event{Kind: EventLogin}},
		{"login as someone else", signedIn, Event{Kind: EventLogin, User: User{ID: "u2"}}},
		{"unknown event", Anonymous(), Event{Kind: "refresh"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.ErrorIs(t, err, ErrInvalidTransition)
			require.Equal(t, tc.state, next)
		})
	}
}

func TestRequireUser(t *testing.T) {
	_, err := Anonymous().RequireUser()
	require.ErrorIs(t, err, ErrUnauthenticated)

	u, err := State{Status: StatusAuthenticated, User: User{ID: "u1"}}.RequireUser()
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
}
