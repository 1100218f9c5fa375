// Package session tracks who is signed in at the terminal. It replaces any
// process-wide role variable: callers receive the *Session they act on.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"kasir-sync/internal/gateway"
	"kasir-sync/internal/obs"
)

var (
	ErrUnauthenticated    = errors.New("not logged in")
	ErrAlreadyLoggedIn    = errors.New("already logged in")
	ErrInvalidCredentials = errors.New("email and password are required")
)

// Authenticator checks credentials against the server.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (gateway.Credentials, error)
}

type Status string

const (
	Unauthenticated Status = "unauthenticated"
	Authenticated   Status = "authenticated"
)

// State is a snapshot of the session.
type State struct {
	Status   Status `json:"status"`
	UserName string `json:"user_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Session is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	state State
	token string
}

func New() *Session {
	return &Session{state: State{Status: Unauthenticated}}
}

// Login moves Unauthenticated to Authenticated. A failed login leaves the
// session unauthenticated.
func (s *Session) Login(ctx context.Context, auth Authenticator, email, password string) (State, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return State{}, ErrInvalidCredentials
	}
	if s.State().Status == Authenticated {
		return State{}, ErrAlreadyLoggedIn
	}

	creds, err := auth.Login(ctx, email, password)
	if err != nil {
		obs.Logger.Warn("login_failed", "email", email, "err", err)
		return State{}, fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status == Authenticated {
		return State{}, ErrAlreadyLoggedIn
	}
	s.state = State{Status: Authenticated, UserName: creds.UserName, Email: email, Role: creds.Role}
	s.token = creds.Token
	obs.Logger.Info("login", "email", email, "role", creds.Role)
	return s.state, nil
}

// Logout returns to Unauthenticated. Logging out twice is harmless.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status == Authenticated {
		obs.Logger.Info("logout", "email", s.state.Email)
	}
	s.state = State{Status: Unauthenticated}
	s.token = ""
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Role is the signed-in role, or ErrUnauthenticated.
func (s *Session) Role() (string, error) {
	st := s.State()
	if st.Status != Authenticated {
		return "", ErrUnauthenticated
	}
	return st.Role, nil
}

// Token implements gateway.TokenSource.
func (s *Session) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Status != Authenticated {
		return "", ErrUnauthenticated
	}
	return s.token, nil
}
