// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
repository.go - Icebreaker Repository

The icebreaker collection follows the same server-confirms contract as
the event repository: the cache only ever mutates with server records,
and failures leave it untouched.

Attach and detach are relation operations against an event, not against
this cache. They deliberately do not touch the event cache either: the
updated relation becomes observable only through an explicit event
re-fetch, so there is no window where the local event disagrees with a
relation change the server has not confirmed.
*/
package icebreakers

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/tomtom215/tablemates/internal/logging"
	"github.com/tomtom215/tablemates/internal/models"
	"github.com/tomtom215/tablemates/internal/transport"
	"github.com/tomtom215/tablemates/internal/validation"
)

// User-facing fallback messages.
const (
	msgFetchFailed  = "Failed to fetch icebreakers"
	msgCreateFailed = "Failed to create icebreaker"
	msgUpdateFailed = "Failed to update icebreaker"
	msgDeleteFailed = "Failed to delete icebreaker"
	msgAttachFailed = "Failed to add icebreaker to event"
	msgDetachFailed = "Failed to remove icebreaker from event"
)

// IcebreakerInput is the payload for creating or updating an icebreaker.
type IcebreakerInput struct {
	Question string `json:"question" validate:"required,min=5,max=300"`
	Category string `json:"category" validate:"required"`
}

// Repository is the in-memory icebreaker cache plus its mutation API.
// Safe for concurrent use.
type Repository struct {
	api *transport.Client

	mu          sync.RWMutex
	icebreakers []models.Icebreaker
	lastErr     string
}

// New creates an empty repository bound to the transport client.
func New(api *transport.Client) *Repository {
	return &Repository{api: api}
}

// Icebreakers returns a copy of the cached collection in cache order.
func (r *Repository) Icebreakers() []models.Icebreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Icebreaker, len(r.icebreakers))
	copy(out, r.icebreakers)
	return out
}

// Icebreaker returns one cached record by id.
func (r *Repository) Icebreaker(id string) (models.Icebreaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ib := range r.icebreakers {
		if ib.ID == id {
			return ib, true
		}
	}
	return models.Icebreaker{}, false
}

// LastError returns the published error message, or "".
func (r *Repository) LastError() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// ClearError clears the shared error slot.
func (r *Repository) ClearError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = ""
}

// FetchAll replaces the cache with the server's full collection. On
// failure the prior contents are kept.
func (r *Repository) FetchAll(ctx context.Context) error {
	r.ClearError()

	var env models.DataEnvelope[[]models.Icebreaker]
	err := r.api.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/icebreakers",
		Route:  "/icebreakers",
		Out:    &env,
	})
	if err != nil {
		r.publishError(transport.UserMessage(err, msgFetchFailed))
		return fmt.Errorf("fetch icebreakers: %w", err)
	}

	r.mu.Lock()
	r.icebreakers = env.Data
	r.mu.Unlock()

	logging.Debug().Int("count", len(env.Data)).Msg("Icebreaker cache replaced")
	return nil
}

// Create validates the payload locally and appends the server's
// canonical record on success.
func (r *Repository) Create(ctx context.Context, input IcebreakerInput) (*models.Icebreaker, error) {
	if err := validation.ValidateStruct(&input); err != nil {
		r.publishError(err.Error())
		return nil, fmt.Errorf("create icebreaker: %w", err)
	}
	r.ClearError()

	var env models.DataEnvelope[models.Icebreaker]
	err := r.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/icebreakers",
		Route:  "/icebreakers",
		Body:   input,
		Out:    &env,
	})
	if err != nil {
		r.publishError(transport.UserMessage(err, msgCreateFailed))
		return nil, fmt.Errorf("create icebreaker: %w", err)
	}

	r.mu.Lock()
	r.icebreakers = append(r.icebreakers, env.Data)
	r.mu.Unlock()

	logging.Info().Str("icebreaker_id", env.Data.ID).Msg("Icebreaker created")
	ib := env.Data
	return &ib, nil
}

// Update sends the full payload and replaces the matching cache entry
// with the server's record.
func (r *Repository) Update(ctx context.Context, id string, input IcebreakerInput) (*models.Icebreaker, error) {
	if err := validation.ValidateStruct(&input); err != nil {
		r.publishError(err.Error())
		return nil, fmt.Errorf("update icebreaker %s: %w", id, err)
	}
	r.ClearError()

	var env models.DataEnvelope[models.Icebreaker]
	err := r.api.Do(ctx, transport.Request{
		Method: http.MethodPut,
		Path:   "/icebreakers/" + id,
		Route:  "/icebreakers/:id",
		Body:   input,
		Out:    &env,
	})
	if err != nil {
		r.publishError(transport.UserMessage(err, msgUpdateFailed))
		return nil, fmt.Errorf("update icebreaker %s: %w", id, err)
	}

	r.mu.Lock()
	for i := range r.icebreakers {
		if r.icebreakers[i].ID == env.Data.ID {
			r.icebreakers[i] = env.Data
			break
		}
	}
	r.mu.Unlock()

	ib := env.Data
	return &ib, nil
}

// Delete removes the icebreaker remotely and, once confirmed, filters
// it out of the cache.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.ClearError()

	err := r.api.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/icebreakers/" + id,
		Route:  "/icebreakers/:id",
	})
	if err != nil {
		r.publishError(transport.UserMessage(err, msgDeleteFailed))
		return fmt.Errorf("delete icebreaker %s: %w", id, err)
	}

	r.mu.Lock()
	kept := r.icebreakers[:0]
	for _, ib := range r.icebreakers {
		if ib.ID != id {
			kept = append(kept, ib)
		}
	}
	r.icebreakers = kept
	r.mu.Unlock()

	logging.Info().Str("icebreaker_id", id).Msg("Icebreaker deleted")
	return nil
}

// AttachToEvent adds the icebreaker to the event's relation list on the
// server. No local cache is touched; callers re-fetch the event to
// observe the change.
func (r *Repository) AttachToEvent(ctx context.Context, eventID, icebreakerID string) error {
	r.ClearError()

	err := r.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/events/" + eventID + "/icebreakers",
		Route:  "/events/:id/icebreakers",
		Body:   map[string]string{"icebreakerId": icebreakerID},
	})
	if err != nil {
		r.publishError(transport.UserMessage(err, msgAttachFailed))
		return fmt.Errorf("attach icebreaker %s to event %s: %w", icebreakerID, eventID, err)
	}
	return nil
}

// DetachFromEvent removes the icebreaker from the event's relation list
// on the server. No local cache is touched.
func (r *Repository) DetachFromEvent(ctx context.Context, eventID, icebreakerID string) error {
	r.ClearError()

	err := r.api.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/events/" + eventID + "/icebreakers/" + icebreakerID,
		Route:  "/events/:id/icebreakers/:icebreakerID",
	})
	if err != nil {
		r.publishError(transport.UserMessage(err, msgDetachFailed))
		return fmt.Errorf("detach icebreaker %s from event %s: %w", icebreakerID, eventID, err)
	}
	return nil
}

func (r *Repository) publishError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = msg
}
