// Package session holds the logged-in user as an explicitly constructed
// context. A Session moves from uninitialized through loading to either
// authenticated or anonymous, and mirrors the user to a SessionStore.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/visionqc/visionqc/internal/observability"
	"github.com/visionqc/visionqc/internal/storage"
	"github.com/visionqc/visionqc/pkg/models"
)

// State is the lifecycle phase of a Session.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Session.
type Options struct {
	Store  storage.SessionStore
	Auth   Authenticator
	Events observability.EventLog
	Logger zerolog.Logger
	Now    func() time.Time
}

// Session is the current user context passed to the views that need it.
type Session struct {
	mu    sync.Mutex
	state State
	user  *models.User

	store  storage.SessionStore
	auth   Authenticator
	events observability.EventLog
	log    zerolog.Logger
	now    func() time.Time
}

// New creates an uninitialized Session. Call Restore before use.
func New(opts Options) *Session {
	if opts.Auth == nil {
		opts.Auth = DefaultAuthenticator()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		store:  opts.Store,
		auth:   opts.Auth,
		events: opts.Events,
		log:    opts.Logger.With().Str("component", "session").Logger(),
		now:    opts.Now,
	}
}

// Restore reads the stored user once. A malformed record is deleted and the
// session becomes anonymous; only an unreadable store is returned as an error,
// and even then the session ends anonymous.
func (s *Session) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateLoading
	if s.store == nil {
		s.state = StateAnonymous
		return nil
	}

	user, err := s.store.Load()
	switch {
	case errors.Is(err, storage.ErrMalformedSession):
		s.log.Warn().Err(err).Msg("discarding malformed session")
		if clearErr := s.store.Clear(); clearErr != nil {
			s.log.Warn().Err(clearErr).Msg("removing malformed session")
		}
		s.state = StateAnonymous
		return nil
	case err != nil:
		s.state = StateAnonymous
		return fmt.Errorf("restoring session: %w", err)
	case user == nil:
		s.state = StateAnonymous
		return nil
	}

	s.user = user
	s.state = StateAuthenticated
	s.log.Debug().Str("email", user.Email).Msg("session restored")
	return nil
}

// Login authenticates the pair and persists the resulting user. Rejected
// credentials return ErrInvalidCredentials and leave the session unchanged.
func (s *Session) Login(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.auth.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.log.Info().Str("email", email).Msg("login rejected")
			s.emit(observability.LevelWarn, observability.EventLoginRejected, "login rejected", map[string]any{"email": email})
		}
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(user); err != nil {
			// The in-memory session still proceeds; only persistence is lost.
			s.log.Warn().Err(err).Msg("persisting session")
		}
	}
	s.user = &user
	s.state = StateAuthenticated
	s.log.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("logged in")
	s.emit(observability.LevelInfo, observability.EventSessionLogin, "logged in", map[string]any{
		"email": user.Email,
		"role":  string(user.Role),
	})
	return user, nil
}

// Logout clears the user and the stored record.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.user
	s.user = nil
	s.state = StateAnonymous
	if prev != nil {
		s.log.Info().Str("email", prev.Email).Msg("logged out")
		s.emit(observability.LevelInfo, observability.EventSessionLogout, "logged out", map[string]any{"email": prev.Email})
	}
	if s.store == nil {
		return nil
	}
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// User returns the current user, or nil when not authenticated.
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// State returns the lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticated reports whether a user is logged in.
func (s *Session) Authenticated() bool {
	return s.State() == StateAuthenticated
}

func (s *Session) emit(level, typ, msg string, data map[string]any) {
	if err := observability.Emit(s.events, s.now(), level, typ, msg, data); err != nil {
		s.log.Warn().Err(err).Msg("writing session event")
	}
}
