// Package demo provides a small authentication feedback loop used by the
// loopctl demo command and the integration tests: Idle -> Authenticating ->
// Authenticated/Failed, with the authentication call modelled as a lensed
// feedback effect.
package demo

import (
	"context"
	"errors"
	"time"

	"github.com/loopkit/loopkit"
	"github.com/loopkit/loopkit/pkg/feedback"
	"github.com/loopkit/loopkit/pkg/system"
)

// Phase is the authentication lifecycle stage.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseAuthenticating Phase = "authenticating"
	PhaseAuthenticated  Phase = "authenticated"
	PhaseFailed         Phase = "failed"
)

// Credentials is the lensed projection driving the authentication effect.
type Credentials struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// State is the loop state.
type State struct {
	Phase    Phase       `json:"phase"`
	Pending  Credentials `json:"-"`
	User     string      `json:"user,omitempty"`
	Token    string      `json:"token,omitempty"`
	Reason   string      `json:"reason,omitempty"`
	Attempts int         `json:"attempts"`
}

// Initial returns the starting state.
func Initial() State {
	return State{Phase: PhaseIdle}
}

// Event is the loop's event union.
type Event interface {
	Kind() string
}

// Login requests authentication with the given credentials.
type Login struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// Kind implements Event.
func (Login) Kind() string { return "login" }

// Logout returns the loop to idle.
type Logout struct{}

// Kind implements Event.
func (Logout) Kind() string { return "logout" }

// AuthSucceeded carries the token from a successful authentication.
type AuthSucceeded struct {
	Token string `json:"token"`
}

// Kind implements Event.
func (AuthSucceeded) Kind() string { return "auth_succeeded" }

// AuthFailed carries the failure reason.
type AuthFailed struct {
	Reason string `json:"reason"`
}

// Kind implements Event.
func (AuthFailed) Kind() string { return "auth_failed" }

// Reduce is the pure state transition. A Login while already authenticating
// is ignored, so the in-flight authentication effect is never duplicated.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case Login:
		if s.Phase == PhaseAuthenticating {
			return s
		}
		return State{
			Phase:    PhaseAuthenticating,
			Pending:  Credentials{User: ev.User, Password: ev.Password},
			User:     ev.User,
			Attempts: s.Attempts + 1,
		}
	case AuthSucceeded:
		if s.Phase != PhaseAuthenticating {
			return s
		}
		return State{Phase: PhaseAuthenticated, User: s.User, Token: ev.Token, Attempts: s.Attempts}
	case AuthFailed:
		if s.Phase != PhaseAuthenticating {
			return s
		}
		return State{Phase: PhaseFailed, User: s.User, Reason: ev.Reason, Attempts: s.Attempts}
	case Logout:
		return State{Phase: PhaseIdle, Attempts: s.Attempts}
	default:
		return s
	}
}

// Authenticator performs the actual credential check.
type Authenticator func(ctx context.Context, creds Credentials) (token string, err error)

// FakeAuthenticator accepts any non-empty password after a short delay.
func FakeAuthenticator(delay time.Duration) Authenticator {
	return func(ctx context.Context, creds Credentials) (string, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		if creds.Password == "" {
			return "", errors.New("empty password")
		}
		return "tok-" + creds.User, nil
	}
}

// Feedbacks builds the loop's feedback set: one authentication effect keyed
// on the pending credentials while the phase is authenticating. Failures are
// converted into AuthFailed events at this boundary; the engine never sees
// them as errors.
func Feedbacks(auth Authenticator) []system.Feedback[State, Event] {
	authenticating := feedback.SkippingRepeated[State, Event](
		func(s State) (Credentials, bool) {
			return s.Pending, s.Phase == PhaseAuthenticating
		},
		func(ctx context.Context, creds Credentials) <-chan Event {
			out := make(chan Event, 1)
			go func() {
				defer close(out)
				token, err := auth(ctx, creds)
				if err != nil {
					if ctx.Err() != nil {
						return // cancelled, stay silent
					}
					out <- AuthFailed{Reason: err.Error()}
					return
				}
				out <- AuthSucceeded{Token: token}
			}()
			return out
		},
	)
	return []system.Feedback[State, Event]{authenticating}
}

// NewRegistry returns the event registry for the intake boundary.
func NewRegistry() *loopkit.Registry[Event] {
	reg := loopkit.NewRegistry(func(e Event) string { return e.Kind() })
	loopkit.Register(reg, "login", func(e Login) Event { return e })
	loopkit.Register(reg, "logout", func(e Logout) Event { return e })
	loopkit.Register(reg, "auth_succeeded", func(e AuthSucceeded) Event { return e })
	loopkit.Register(reg, "auth_failed", func(e AuthFailed) Event { return e })
	return reg
}
