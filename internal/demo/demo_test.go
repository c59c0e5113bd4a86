package demo_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopkit/loopkit"
	"github.com/loopkit/loopkit/internal/demo"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestReduce_LoginWhileAuthenticatingIsIgnored(t *testing.T) {
	s := demo.Reduce(demo.Initial(), demo.Login{User: "ada", Password: "pw"})
	assert.Equal(t, demo.PhaseAuthenticating, s.Phase)
	assert.Equal(t, 1, s.Attempts)

	again := demo.Reduce(s, demo.Login{User: "eve", Password: "other"})
	assert.Equal(t, s, again, "a login during authentication must not change the state")
}

func TestReduce_ResultsOutsideAuthenticationAreIgnored(t *testing.T) {
	idle := demo.Initial()
	assert.Equal(t, idle, demo.Reduce(idle, demo.AuthSucceeded{Token: "t"}))
	assert.Equal(t, idle, demo.Reduce(idle, demo.AuthFailed{Reason: "r"}))
}

func TestLoop_SuccessfulLogin(t *testing.T) {
	store := loopkit.NewStore(demo.Initial(), demo.Reduce, demo.Feedbacks(demo.FakeAuthenticator(10*time.Millisecond)))
	defer store.Close()

	store.Dispatch(demo.Login{User: "ada", Password: "s3cret"})

	waitFor(t, func() bool { return store.State().Phase == demo.PhaseAuthenticated })
	assert.Equal(t, "tok-ada", store.State().Token)
	assert.Equal(t, "ada", store.State().User)
}

func TestLoop_FailedLogin(t *testing.T) {
	store := loopkit.NewStore(demo.Initial(), demo.Reduce, demo.Feedbacks(demo.FakeAuthenticator(10*time.Millisecond)))
	defer store.Close()

	store.Dispatch(demo.Login{User: "ada", Password: ""})

	waitFor(t, func() bool { return store.State().Phase == demo.PhaseFailed })
	assert.Equal(t, "empty password", store.State().Reason)
}

func TestLoop_NoSecondConcurrentAuthentication(t *testing.T) {
	var calls atomic.Int64
	auth := func(ctx context.Context, creds demo.Credentials) (string, error) {
		calls.Add(1)
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return "tok-" + creds.User, nil
	}

	store := loopkit.NewStore(demo.Initial(), demo.Reduce, demo.Feedbacks(auth))
	defer store.Close()

	store.Dispatch(demo.Login{User: "ada", Password: "pw"})
	store.Dispatch(demo.Login{User: "ada", Password: "pw"})
	store.Dispatch(demo.Login{User: "eve", Password: "pw"})

	waitFor(t, func() bool { return store.State().Phase == demo.PhaseAuthenticated })
	assert.Equal(t, int64(1), calls.Load(), "logins during authentication must not start another check")
	assert.Equal(t, 1, store.State().Attempts)
}

func TestLoop_LogoutReturnsToIdleAndAllowsRetry(t *testing.T) {
	store := loopkit.NewStore(demo.Initial(), demo.Reduce, demo.Feedbacks(demo.FakeAuthenticator(5*time.Millisecond)))
	defer store.Close()

	store.Dispatch(demo.Login{User: "ada", Password: "pw"})
	waitFor(t, func() bool { return store.State().Phase == demo.PhaseAuthenticated })

	store.Dispatch(demo.Logout{})
	waitFor(t, func() bool { return store.State().Phase == demo.PhaseIdle })

	store.Dispatch(demo.Login{User: "ada", Password: "pw"})
	waitFor(t, func() bool { return store.State().Phase == demo.PhaseAuthenticated })
	assert.Equal(t, 2, store.State().Attempts)
}

func TestLoop_CancelledAuthenticationStaysSilent(t *testing.T) {
	started := make(chan struct{}, 1)
	auth := func(ctx context.Context, creds demo.Credentials) (string, error) {
		started <- struct{}{}
		<-ctx.Done()
		return "", errors.New("should never surface")
	}

	store := loopkit.NewStore(demo.Initial(), demo.Reduce, demo.Feedbacks(auth))

	store.Dispatch(demo.Login{User: "ada", Password: "pw"})
	<-started

	require.NoError(t, store.Close())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, demo.PhaseAuthenticating, store.State().Phase, "no result event after disposal")
}

func TestRegistry_CoversAllEventKinds(t *testing.T) {
	reg := demo.NewRegistry()
	assert.Equal(t, []string{"auth_failed", "auth_succeeded", "login", "logout"}, reg.Kinds())

	e, err := reg.DecodeMap("login", map[string]any{"user": "ada", "password": "pw"})
	require.NoError(t, err)
	assert.Equal(t, demo.Login{User: "ada", Password: "pw"}, e)

	kind, payload, err := reg.Encode(demo.AuthSucceeded{Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "auth_succeeded", kind)

	back, err := reg.Decode(kind, payload)
	require.NoError(t, err)
	assert.Equal(t, demo.AuthSucceeded{Token: "tok"}, back)
}
