// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package models

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// The remote API returns relationship fields in two shapes depending on
// whether the server populated them: a bare id string, or the expanded
// record. UserRef and IcebreakerRef model that as a tagged union with a
// single Key() accessor, so callers never type-switch on the raw JSON.

// UserRef is a reference to a user: either a bare id or an expanded User.
type UserRef struct {
	ID   string
	User *User
}

// Key returns the referenced user's id regardless of shape.
func (r UserRef) Key() string {
	if r.User != nil {
		return r.User.ID
	}
	return r.ID
}

// Expanded reports whether the full record is present.
func (r UserRef) Expanded() bool {
	return r.User != nil
}

// UnmarshalJSON accepts either a JSON string (bare id) or an object
// (expanded user record).
func (r *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty user reference")
	}
	if data[0] == '"' {
		r.User = nil
		return json.Unmarshal(data, &r.ID)
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("decode user reference: %w", err)
	}
	r.User = &u
	r.ID = u.ID
	return nil
}

// MarshalJSON writes back the same shape that was decoded.
func (r UserRef) MarshalJSON() ([]byte, error) {
	if r.User != nil {
		return json.Marshal(r.User)
	}
	return json.Marshal(r.ID)
}

// IcebreakerRef is a reference to an icebreaker: bare id or expanded record.
type IcebreakerRef struct {
	ID         string
	Icebreaker *Icebreaker
}

// Key returns the referenced icebreaker's id regardless of shape.
func (r IcebreakerRef) Key() string {
	if r.Icebreaker != nil {
		return r.Icebreaker.ID
	}
	return r.ID
}

// Expanded reports whether the full record is present.
func (r IcebreakerRef) Expanded() bool {
	return r.Icebreaker != nil
}

// UnmarshalJSON accepts either a JSON string or an expanded record.
func (r *IcebreakerRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty icebreaker reference")
	}
	if data[0] == '"' {
		r.Icebreaker = nil
		return json.Unmarshal(data, &r.ID)
	}
	var ib Icebreaker
	if err := json.Unmarshal(data, &ib); err != nil {
		return fmt.Errorf("decode icebreaker reference: %w", err)
	}
	r.Icebreaker = &ib
	r.ID = ib.ID
	return nil
}

// MarshalJSON writes back the same shape that was decoded.
func (r IcebreakerRef) MarshalJSON() ([]byte, error) {
	if r.Icebreaker != nil {
		return json.Marshal(r.Icebreaker)
	}
	return json.Marshal(r.ID)
}
