// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package models defines the wire types shared by the session store and the
// repositories. Field names follow the remote API's JSON contract.
package models

import "time"

// Role distinguishes ordinary members from administrators.
type Role string

// User roles known to the remote API.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a resolved identity as returned by the remote API.
type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio,omitempty"`
	City      string    `json:"city,omitempty"`
	Photo     string    `json:"photo,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user may perform admin-only transitions
// (event approval and rejection).
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Credentials are submitted to the login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is submitted when creating a new identity.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio,omitempty"`
	City     string `json:"city,omitempty"`
	Photo    string `json:"photo,omitempty"`
}

// ProfilePatch carries partial identity updates; empty fields are omitted
// from the request body and left unchanged by the server.
type ProfilePatch struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Bio      string `json:"bio,omitempty"`
	City     string `json:"city,omitempty"`
	Photo    string `json:"photo,omitempty"`
}
