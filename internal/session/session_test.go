package session

import (
	"context"
	"errors"
	"testing"

	"kasir-sync/internal/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	creds gateway.Credentials
	err   error
	calls int
}

func (f *fakeAuth) Login(context.Context, string, string) (gateway.Credentials, error) {
	f.calls++
	return f.creds, f.err
}

func TestLoginLogoutTransitions(t *testing.T) {
	ctx := context.Background()
	s := New()
	auth := &fakeAuth{creds: gateway.Credentials{Token: "jwt", UserName: "Sari", Role: "cashier"}}

	assert.Equal(t, Unauthenticated, s.State().Status)
	_, err := s.Role()
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = s.Token(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	st, err := s.Login(ctx, auth, " sari@example.com ", "rahasia")
	require.NoError(t, err)
	assert.Equal(t, State{Status: Authenticated, UserName: "Sari", Email: "sari@example.com", Role: "cashier"}, st)

	role, err := s.Role()
	require.NoError(t, err)
	assert.Equal(t, "cashier", role)
	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt", tok)

	_, err = s.Login(ctx, auth, "sari@example.com", "rahasia")
	assert.ErrorIs(t, err, ErrAlreadyLoggedIn)
	assert.Equal(t, 1, auth.calls)

	s.Logout()
	assert.Equal(t, State{Status: Unauthenticated}, s.State())
	_, err = s.Token(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	s.Logout()
}

func TestFailedLoginStaysUnauthenticated(t *testing.T) {
	s := New()
	boom := errors.New("invalid credentials")

	_, err := s.Login(context.Background(), &fakeAuth{err: boom}, "a@b.c", "x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Unauthenticated, s.State().Status)

	_, err = s.Login(context.Background(), &fakeAuth{}, "", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionIsATokenSource(t *testing.T) {
	var _ gateway.TokenSource = New()
}
