// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package models

// DataEnvelope is the `{ "data": ... }` wrapper the remote API uses for
// every resource response.
type DataEnvelope[T any] struct {
	Data T `json:"data"`
}

// AuthResponse is returned by the registration and login endpoints.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
