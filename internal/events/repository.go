// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
repository.go - Event Repository

The repository owns the canonical local collection of event records and
keeps it consistent with the remote authority.

Consistency contract:
  - Server confirms before the cache mutates: no operation predicts its
    outcome locally. A mutation's response record replaces the matching
    cache entry whole (delete removes it); on failure the cache is left
    untouched.
  - FetchAll fully replaces the cache on success - last-fetch-wins, no
    partial merge. Under persistent failure it performs a bounded number
    of attempts with doubling delay and then keeps the prior cache.
  - There is no record versioning. Two in-flight mutations against the
    same record resolve last-response-wins; callers see an
    order-dependent final state, never a merge.

Local gates (rejected before any request is issued):
  - Join: event must be approved and below capacity.
  - Approve/Reject: the current identity must be an admin.
  - Reject: the reason must be non-empty after trimming.
  - Create: input validation (required fields, date ordering, capacity
    bounds, image type/size).

Errors are published to a single shared last-error slot; each operation
overwrites the previous value and consumers clear it before retrying.
*/
package events

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tomtom215/tablemates/internal/logging"
	"github.com/tomtom215/tablemates/internal/metrics"
	"github.com/tomtom215/tablemates/internal/models"
	"github.com/tomtom215/tablemates/internal/session"
	"github.com/tomtom215/tablemates/internal/transport"
	"github.com/tomtom215/tablemates/internal/validation"
)

// Local gate failures. These never correspond to a network round-trip.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("event not found in cache")
	ErrNotApproved      = errors.New("event is not approved")
	ErrEventFull        = errors.New("event is full")
	ErrNotAdmin         = errors.New("admin role required")
	ErrEmptyReason      = errors.New("rejection reason is required")
)

// User-facing fallback messages, used when the server supplies nothing
// more specific.
const (
	msgNotAuthenticated = "Not authenticated or token missing"
	msgFetchFailed      = "Failed after multiple retries"
	msgCreateFailed     = "Failed to create event"
	msgUpdateFailed     = "Failed to update event"
	msgDeleteFailed     = "Failed to delete event"
	msgJoinFailed       = "Failed to join event"
	msgLeaveFailed      = "Failed to leave event"
	msgApproveFailed    = "Failed to approve event"
	msgRejectFailed     = "Failed to reject event"
)

// CreateEventInput is the payload for event creation. The optional image
// is sent as a multipart file part.
type CreateEventInput struct {
	Title           string    `validate:"required,min=3,max=100"`
	Description     string    `validate:"required"`
	EventDate       time.Time `validate:"required"`
	RevealDate      time.Time `validate:"required"`
	Location        string    `validate:"required"`
	MaxParticipants int       `validate:"required,min=2,max=100"`
	Image           *ImageAttachment
}

// ImageAttachment is an optional event image.
type ImageAttachment struct {
	Filename string
	Size     int64
	Data     []byte
}

// UpdateEventInput carries partial, non-status field updates. Nil fields
// are omitted from the request and left unchanged by the server.
type UpdateEventInput struct {
	Title           *string    `json:"title,omitempty"`
	Description     *string    `json:"description,omitempty"`
	EventDate       *time.Time `json:"eventDate,omitempty"`
	RevealDate      *time.Time `json:"revealDate,omitempty"`
	Location        *string    `json:"location,omitempty"`
	MaxParticipants *int       `json:"maxParticipants,omitempty"`
}

// sleepFunc waits for d or until ctx is done. Injectable so retry tests
// never sleep for real.
type sleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Repository is the in-memory event cache plus its mutation API. It is
// safe for concurrent use; the cache is only ever mutated under the lock
// with server-confirmed records.
type Repository struct {
	api     *transport.Client
	session *session.Store

	retryAttempts int
	retryDelay    time.Duration
	sleep         sleepFunc

	mu      sync.RWMutex
	events  []models.Event
	lastErr string
}

// Option configures a Repository.
type Option func(*Repository)

// WithRetry overrides the fetch retry schedule: total attempts and the
// first inter-attempt delay (which doubles per attempt).
func WithRetry(attempts int, delay time.Duration) Option {
	return func(r *Repository) {
		if attempts >= 1 {
			r.retryAttempts = attempts
		}
		if delay >= 0 {
			r.retryDelay = delay
		}
	}
}

// WithSleep replaces the inter-attempt wait, for tests.
func WithSleep(fn sleepFunc) Option {
	return func(r *Repository) {
		r.sleep = fn
	}
}

// New creates an empty repository bound to the transport client and the
// session store that gates fetching.
func New(api *transport.Client, sess *session.Store, opts ...Option) *Repository {
	r := &Repository{
		api:           api,
		session:       sess,
		retryAttempts: 3,
		retryDelay:    2 * time.Second,
		sleep:         defaultSleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events returns a copy of the cached collection in cache order.
// Consumers sort client-side as needed.
func (r *Repository) Events() []models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Event, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Clone()
	}
	return out
}

// Event returns a copy of one cached record.
func (r *Repository) Event(id string) (models.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ev := range r.events {
		if ev.ID == id {
			return ev.Clone(), true
		}
	}
	return models.Event{}, false
}

// MyEvents returns the events the current identity created or joined,
// comparing references by id in either shape. Pure projection: recomputed
// on every call, never cached.
func (r *Repository) MyEvents() []models.Event {
	u := r.session.User()
	if u == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Event
	for _, ev := range r.events {
		if ev.CreatedBy.Key() == u.ID || ev.HasParticipant(u.ID) {
			out = append(out, ev.Clone())
		}
	}
	return out
}

// LastError returns the published error message, or "".
func (r *Repository) LastError() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// ClearError clears the shared error slot. Consumers clear before the
// next attempt so a stale message is never re-displayed.
func (r *Repository) ClearError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = ""
}

// FetchAll performs the remote list fetch with bounded retry. Without a
// valid session it publishes an error and issues no request, leaving the
// cache untouched. On success the cache is fully replaced; after
// exhausting retries the prior cache contents are kept.
func (r *Repository) FetchAll(ctx context.Context) error {
	if !r.session.IsAuthenticated() {
		r.publishError(msgNotAuthenticated)
		return ErrNotAuthenticated
	}
	r.ClearError()

	var fetched []models.Event
	var lastErr error
	for attempt := 1; attempt <= r.retryAttempts; attempt++ {
		fetched, lastErr = r.list(ctx)
		if lastErr == nil {
			break
		}
		if attempt == r.retryAttempts {
			break
		}

		// Plain bounded loop with computed delay: 2s, 4s, ... between
		// attempts. Non-final failures are swallowed and retried.
		delay := r.retryDelay << (attempt - 1)
		logging.Warn().Int("attempt", attempt).Dur("delay", delay).Err(lastErr).Msg("Event fetch failed; retrying")
		metrics.FetchRetriesTotal.Inc()
		if err := r.sleep(ctx, delay); err != nil {
			return fmt.Errorf("fetch events: %w", err)
		}
	}
	if lastErr != nil {
		r.publishError(msgFetchFailed)
		return fmt.Errorf("fetch events after %d attempts: %w", r.retryAttempts, lastErr)
	}

	r.mu.Lock()
	r.events = fetched
	r.mu.Unlock()

	logging.Debug().Int("count", len(fetched)).Msg("Event cache replaced")
	return nil
}

// list performs one GET /events round-trip.
func (r *Repository) list(ctx context.Context) ([]models.Event, error) {
	var env models.DataEnvelope[[]models.Event]
	err := r.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/events",
		Route:  "/events",
		Out:    &env,
	})
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Refresh re-fetches one event and replaces its cache entry. Used after
// icebreaker attach/detach, which do not touch the cache themselves.
func (r *Repository) Refresh(ctx context.Context, id string) (*models.Event, error) {
	var env models.DataEnvelope[models.Event]
	err := r.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/events/" + id,
		Route:  "/events/:id",
		Out:    &env,
	})
	if err != nil {
		r.publishError(transport.UserMessage(err, msgFetchFailed))
		return nil, fmt.Errorf("refresh event %s: %w", id, err)
	}
	r.replace(env.Data)
	ev := env.Data.Clone()
	return &ev, nil
}

// Create validates the payload locally, sends it as multipart form data,
// and appends the server's canonical record to the cache.
func (r *Repository) Create(ctx context.Context, input CreateEventInput) (*models.Event, error) {
	if err := r.validateCreate(input); err != nil {
		r.publishError(err.Error())
		return nil, fmt.Errorf("create event: %w", err)
	}
	if !r.session.IsAuthenticated() {
		r.publishError(msgNotAuthenticated)
		return nil, ErrNotAuthenticated
	}
	r.ClearError()

	payload := &transport.MultipartPayload{
		Fields: map[string]string{
			"title":           input.Title,
			"description":     input.Description,
			"eventDate":       input.EventDate.UTC().Format(time.RFC3339),
			"revealDate":      input.RevealDate.UTC().Format(time.RFC3339),
			"location":        input.Location,
			"maxParticipants": strconv.Itoa(input.MaxParticipants),
		},
	}
	if input.Image != nil {
		payload.FileField = "image"
		payload.FileName = input.Image.Filename
		payload.File = bytes.NewReader(input.Image.Data)
	}

	var env models.DataEnvelope[models.Event]
	err := r.api.Do(ctx, transport.Request{
		Method:    http.MethodPost,
		Path:      "/events",
		Route:     "/events",
		Multipart: payload,
		Out:       &env,
	})
	if err != nil {
		r.publishError(transport.UserMessage(err, msgCreateFailed))
		return nil, fmt.Errorf("create event: %w", err)
	}

	r.mu.Lock()
	r.events = append(r.events, env.Data)
	r.mu.Unlock()

	logging.Info().Str("event_id", env.Data.ID).Str("title", env.Data.Title).Msg("Event created")
	ev := env.Data.Clone()
	return &ev, nil
}

// validateCreate applies the local validation taxonomy: struct rules,
// date ordering, and image constraints.
func (r *Repository) validateCreate(input CreateEventInput) error {
	if err := validation.ValidateStruct(&input); err != nil {
		return err
	}
	if err := validation.CheckDateOrder(input.EventDate, input.RevealDate); err != nil {
		return err
	}
	if input.Image != nil {
		size := input.Image.Size
		if size == 0 {
			size = int64(len(input.Image.Data))
		}
		if err := validation.CheckImage(input.Image.Filename, size); err != nil {
			return err
		}
	}
	return nil
}

// Update sends a partial field update. Creator-only; the server enforces
// ownership and its response record replaces the cache entry.
func (r *Repository) Update(ctx context.Context, id string, input UpdateEventInput) (*models.Event, error) {
	return r.mutate(ctx, mutation{
		method:   http.MethodPut,
		path:     "/events/" + id,
		route:    "/events/:id",
		body:     input,
		fallback: msgUpdateFailed,
	})
}

// Delete removes the event remotely and, once confirmed, from the cache.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.ClearError()
	err := r.api.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/events/" + id,
		Route:  "/events/:id",
	})
	if err != nil {
		r.publishError(transport.UserMessage(err, msgDeleteFailed))
		return fmt.Errorf("delete event %s: %w", id, err)
	}

	r.mu.Lock()
	kept := r.events[:0]
	for _, ev := range r.events {
		if ev.ID != id {
			kept = append(kept, ev)
		}
	}
	r.events = kept
	r.mu.Unlock()

	logging.Info().Str("event_id", id).Msg("Event deleted")
	return nil
}

// Join adds the current identity to the participant list. Gated locally:
// only approved events below capacity are joinable; a gate failure never
// issues a request and never mutates the cache.
func (r *Repository) Join(ctx context.Context, id string) (*models.Event, error) {
	ev, ok := r.Event(id)
	if ok {
		if ev.Status != models.StatusApproved {
			r.publishError("Only approved events can be joined")
			return nil, ErrNotApproved
		}
		if ev.IsFull() {
			r.publishError("Event is full")
			return nil, ErrEventFull
		}
	}

	return r.mutate(ctx, mutation{
		method:   http.MethodPut,
		path:     "/events/" + id + "/join",
		route:    "/events/:id/join",
		fallback: msgJoinFailed,
	})
}

// Leave removes the current identity from the participant list.
func (r *Repository) Leave(ctx context.Context, id string) (*models.Event, error) {
	return r.mutate(ctx, mutation{
		method:   http.MethodPut,
		path:     "/events/" + id + "/leave",
		route:    "/events/:id/leave",
		fallback: msgLeaveFailed,
	})
}

// Approve transitions a pending event to approved. Admin-only, checked
// locally before the server enforces it again.
func (r *Repository) Approve(ctx context.Context, id string) (*models.Event, error) {
	if !r.session.User().IsAdmin() {
		r.publishError("Only administrators can approve events")
		return nil, ErrNotAdmin
	}
	return r.mutate(ctx, mutation{
		method:   http.MethodPut,
		path:     "/events/" + id + "/approve",
		route:    "/events/:id/approve",
		fallback: msgApproveFailed,
	})
}

// Reject transitions a pending event to rejected. Admin-only, and the
// reason must be non-empty; an empty reason never reaches the network.
func (r *Repository) Reject(ctx context.Context, id, reason string) (*models.Event, error) {
	if !r.session.User().IsAdmin() {
		r.publishError("Only administrators can reject events")
		return nil, ErrNotAdmin
	}
	if isBlank(reason) {
		r.publishError("A reason is required to reject an event")
		return nil, ErrEmptyReason
	}
	return r.mutate(ctx, mutation{
		method:   http.MethodPut,
		path:     "/events/" + id + "/reject",
		route:    "/events/:id/reject",
		body:     map[string]string{"reason": reason},
		fallback: msgRejectFailed,
	})
}

// mutation describes one server-confirmed cache mutation.
type mutation struct {
	method   string
	path     string
	route    string
	body     interface{}
	fallback string
}

// mutate performs the round-trip and replaces the matching cache entry
// with the server's record. On failure the cache is left untouched and
// the specific message is published.
func (r *Repository) mutate(ctx context.Context, m mutation) (*models.Event, error) {
	r.ClearError()

	var env models.DataEnvelope[models.Event]
	err := r.api.Do(ctx, transport.Request{
		Method: m.method,
		Path:   m.path,
		Route:  m.route,
		Body:   m.body,
		Out:    &env,
	})
	if err != nil {
		r.publishError(transport.UserMessage(err, m.fallback))
		return nil, fmt.Errorf("%s %s: %w", m.method, m.path, err)
	}

	r.replace(env.Data)
	ev := env.Data.Clone()
	return &ev, nil
}

// replace swaps the cache entry with the same id for the given record,
// whole-record, last-response-wins. Unknown ids are ignored: the record
// will appear on the next full fetch.
func (r *Repository) replace(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].ID == ev.ID {
			r.events[i] = ev
			return
		}
	}
}

// publishError overwrites the shared last-error slot.
func (r *Repository) publishError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = msg
}

func isBlank(s string) bool {
	for _, c := range s {
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return false
		}
	}
	return true
}
