// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package models

import "time"

// Icebreaker is a reusable conversation-starter question, attachable to
// events by reference.
type Icebreaker struct {
	ID        string    `json:"_id"`
	Question  string    `json:"question"`
	Category  string    `json:"category"`
	CreatedBy UserRef   `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}
