// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
store.go - Session Store

The session store owns the authenticated identity and its credential.

State machine:

	Unresolved -> Validating -> {Authenticated, Anonymous}
	Authenticated -> Anonymous on logout or credential rejection

Invariants:
  - IsAuthenticated is true iff a resolved identity exists AND the
    credential has been confirmed against the server at least once since
    it was set (login, registration, and restore all confirm it).
  - Only the opaque token is ever persisted; the identity is re-derived
    from GET /users/me on every restore.
  - Logout is local-only and synchronous: no network round-trip.
  - A 401 from any non-login endpoint invalidates the session exactly
    once per credential; repeat 401s against the cleared credential are
    no-ops.
*/
package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/tablemates/internal/logging"
	"github.com/tomtom215/tablemates/internal/metrics"
	"github.com/tomtom215/tablemates/internal/models"
	"github.com/tomtom215/tablemates/internal/transport"
)

// State is the session lifecycle state.
type State int

// Session states.
const (
	StateUnresolved State = iota
	StateValidating
	StateAuthenticated
	StateAnonymous
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateValidating:
		return "validating"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// User-facing messages. Server-provided messages take precedence where
// the server supplies one; these are the fallbacks.
const (
	msgSessionExpired     = "Session expired. Please login again."
	msgLoginFailed        = "Login failed. Please try again."
	msgRegistrationFailed = "Registration failed. Please try again."
	msgProfileFailed      = "Profile update failed. Please try again."
	msgNotAuthenticated   = "Authentication required. Please log in again."
)

// Store owns the authenticated identity, credential, and derived
// authorization flags. It is safe for concurrent use.
type Store struct {
	api    *transport.Client
	tokens TokenStore

	mu      sync.RWMutex
	state   State
	token   string
	user    *models.User
	lastErr string
}

// New creates an empty session store. The credential, if one was
// persisted, is not validated until Restore runs.
func New(api *transport.Client, tokens TokenStore) *Store {
	return &Store{
		api:    api,
		tokens: tokens,
		state:  StateUnresolved,
	}
}

// Token returns the current credential, or "" when anonymous. This is the
// transport client's token source.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsAuthenticated reports whether a server-confirmed identity exists.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateAuthenticated && s.user != nil
}

// User returns a copy of the resolved identity, or nil when anonymous.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// LastError returns the published error message, or "".
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError clears the published error. Consumers clear before retrying
// an operation so a stale message is never re-displayed.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
}

// Restore validates a persisted credential against the server. With no
// persisted credential the store settles to Anonymous without any network
// traffic. Run once at startup and again whenever the credential value
// changes outside Login/Register.
func (s *Store) Restore(ctx context.Context) error {
	token, err := s.tokens.Load()
	if err != nil {
		return fmt.Errorf("load persisted credential: %w", err)
	}
	if token == "" {
		s.mu.Lock()
		s.state = StateAnonymous
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.state = StateValidating
	s.token = token
	s.mu.Unlock()

	var env models.DataEnvelope[models.User]
	err = s.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/users/me",
		Route:  "/users/me",
		Out:    &env,
	})
	if err != nil {
		// The credential was rejected or unverifiable; discard it rather
		// than retrying a token the server no longer honors.
		if derr := s.tokens.Delete(); derr != nil {
			logging.Warn().Err(derr).Msg("Failed to delete rejected credential")
		}
		s.mu.Lock()
		s.state = StateAnonymous
		s.token = ""
		s.user = nil
		s.lastErr = msgSessionExpired
		s.mu.Unlock()
		return fmt.Errorf("restore session: %w", err)
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.user = &env.Data
	s.lastErr = ""
	s.mu.Unlock()

	logging.Debug().Str("user_id", env.Data.ID).Msg("Session restored")
	return nil
}

// Login exchanges credentials for a token and identity. On failure the
// server's message is surfaced verbatim, with a generic fallback.
func (s *Store) Login(ctx context.Context, creds models.Credentials) error {
	var resp models.AuthResponse
	err := s.api.Do(ctx, transport.Request{
		Method:    http.MethodPost,
		Path:      "/users/login",
		Route:     "/users/login",
		Body:      creds,
		LoginPath: true,
		Out:       &resp,
	})
	if err != nil {
		s.publishError(transport.UserMessage(err, msgLoginFailed))
		return fmt.Errorf("login: %w", err)
	}
	return s.adopt(resp)
}

// Register creates a new identity and signs it in, with the same contract
// as Login.
func (s *Store) Register(ctx context.Context, reg models.Registration) error {
	var resp models.AuthResponse
	err := s.api.Do(ctx, transport.Request{
		Method:    http.MethodPost,
		Path:      "/users",
		Route:     "/users",
		Body:      reg,
		LoginPath: true,
		Out:       &resp,
	})
	if err != nil {
		s.publishError(transport.UserMessage(err, msgRegistrationFailed))
		return fmt.Errorf("register: %w", err)
	}
	return s.adopt(resp)
}

// adopt stores a server-issued credential and identity.
func (s *Store) adopt(resp models.AuthResponse) error {
	if err := s.tokens.Save(resp.Token); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.token = resp.Token
	user := resp.User
	s.user = &user
	s.lastErr = ""
	s.mu.Unlock()

	logging.Info().Str("user_id", resp.User.ID).Msg("Signed in")
	return nil
}

// UpdateProfile patches identity fields. Authenticated-only; the
// credential never changes here (the server does not reissue tokens on
// profile updates).
func (s *Store) UpdateProfile(ctx context.Context, patch models.ProfilePatch) (*models.User, error) {
	if !s.IsAuthenticated() {
		s.publishError(msgNotAuthenticated)
		return nil, fmt.Errorf("update profile: not authenticated")
	}

	var env models.DataEnvelope[models.User]
	err := s.api.Do(ctx, transport.Request{
		Method: http.MethodPut,
		Path:   "/users/me",
		Route:  "/users/me",
		Body:   patch,
		Out:    &env,
	})
	if err != nil {
		s.publishError(transport.UserMessage(err, msgProfileFailed))
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.mu.Lock()
	s.user = &env.Data
	s.mu.Unlock()

	u := env.Data
	return &u, nil
}

// Logout discards the credential and identity immediately. Local-only:
// no network round-trip.
func (s *Store) Logout() {
	if err := s.tokens.Delete(); err != nil {
		logging.Warn().Err(err).Msg("Failed to delete persisted credential on logout")
	}

	s.mu.Lock()
	s.state = StateAnonymous
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	logging.Info().Msg("Signed out")
}

// Invalidate is the transport client's 401 hook. The first call for a
// given credential clears it and publishes the session-expired error;
// subsequent calls are no-ops because the credential is already gone.
func (s *Store) Invalidate() {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return
	}
	s.state = StateAnonymous
	s.token = ""
	s.user = nil
	s.lastErr = msgSessionExpired
	s.mu.Unlock()

	if err := s.tokens.Delete(); err != nil {
		logging.Warn().Err(err).Msg("Failed to delete invalidated credential")
	}
	metrics.SessionInvalidationsTotal.Inc()
	logging.Warn().Msg("Credential rejected by server; session invalidated")
}

// ExpiresAt returns the credential's expiry when the token parses as a
// JWT with an exp claim, and the zero time otherwise. The token is
// treated as opaque everywhere else; this is a best-effort peek, not a
// verification.
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Users fetches the user directory. Requires authentication server-side.
func (s *Store) Users(ctx context.Context) ([]models.User, error) {
	var env models.DataEnvelope[[]models.User]
	err := s.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/users",
		Route:  "/users",
		Out:    &env,
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return env.Data, nil
}

// UserByID fetches one user record.
func (s *Store) UserByID(ctx context.Context, id string) (*models.User, error) {
	var env models.DataEnvelope[models.User]
	err := s.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/users/" + id,
		Route:  "/users/:id",
		Out:    &env,
	})
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &env.Data, nil
}

// publishError overwrites the shared last-error slot.
func (s *Store) publishError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = msg
}
