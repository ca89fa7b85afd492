// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package models

import "time"

// EventStatus is the lifecycle status of an event.
type EventStatus string

// Event lifecycle statuses. Only approved events accept joins.
const (
	StatusPending   EventStatus = "pending"
	StatusApproved  EventStatus = "approved"
	StatusRejected  EventStatus = "rejected"
	StatusCompleted EventStatus = "completed"
)

// Event is a scheduled dinner with capacity, timing, and an approval
// workflow. RevealDate is the point before EventDate at which participant
// identities become visible to each other.
type Event struct {
	ID              string          `json:"_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	EventDate       time.Time       `json:"eventDate"`
	RevealDate      time.Time       `json:"revealDate"`
	Location        string          `json:"location"`
	MaxParticipants int             `json:"maxParticipants"`
	ImageURL        string          `json:"imageUrl,omitempty"`
	Participants    []UserRef       `json:"participants"`
	Icebreakers     []IcebreakerRef `json:"icebreakers"`
	Status          EventStatus     `json:"status"`
	CreatedBy       UserRef         `json:"createdBy"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// IsFull reports whether the participant list has reached capacity.
func (e *Event) IsFull() bool {
	return len(e.Participants) >= e.MaxParticipants
}

// HasParticipant reports whether the given user id appears in the
// participant list, in either reference shape.
func (e *Event) HasParticipant(userID string) bool {
	for _, p := range e.Participants {
		if p.Key() == userID {
			return true
		}
	}
	return false
}

// HasIcebreaker reports whether the given icebreaker id is attached.
func (e *Event) HasIcebreaker(icebreakerID string) bool {
	for _, ib := range e.Icebreakers {
		if ib.Key() == icebreakerID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Repositories hand out clones so consumers can
// never mutate cache storage through a shared slice.
func (e Event) Clone() Event {
	out := e
	if e.Participants != nil {
		out.Participants = make([]UserRef, len(e.Participants))
		copy(out.Participants, e.Participants)
	}
	if e.Icebreakers != nil {
		out.Icebreakers = make([]IcebreakerRef, len(e.Icebreakers))
		copy(out.Icebreakers, e.Icebreakers)
	}
	return out
}
