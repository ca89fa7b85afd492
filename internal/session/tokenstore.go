// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// credentialKey is the single BadgerDB key holding the persisted token.
// Only the opaque token is persisted; the identity is always re-derived
// from the server.
const credentialKey = "credential:current"

// TokenStore persists the opaque credential token across restarts.
type TokenStore interface {
	// Load returns the persisted token, or "" when none exists.
	Load() (string, error)

	// Save durably stores the token, replacing any previous one.
	Save(token string) error

	// Delete removes the persisted token. Deleting an absent token is
	// not an error.
	Delete() error

	// Close releases the underlying storage.
	Close() error
}

// persistedCredential is the stored value. SavedAt exists for diagnostics
// only; credential validity is always decided by the server.
type persistedCredential struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"savedAt"`
}

// BadgerTokenStore implements TokenStore on BadgerDB.
type BadgerTokenStore struct {
	db *badger.DB
}

// OpenTokenStore opens (or creates) the token database at path. An empty
// path opens an in-memory database, used by tests and by callers that opt
// out of persistence.
func OpenTokenStore(path string) (*BadgerTokenStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	// Badger's default logger writes to stderr; the client binary keeps
	// its output clean and logs through zerolog instead.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	return &BadgerTokenStore{db: db}, nil
}

// Load returns the persisted token, or "" when none exists.
func (s *BadgerTokenStore) Load() (string, error) {
	var cred persistedCredential

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(credentialKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cred)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return cred.Token, nil
}

// Save durably stores the token, replacing any previous one.
func (s *BadgerTokenStore) Save(token string) error {
	data, err := json.Marshal(persistedCredential{Token: token, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(credentialKey), data)
	})
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Delete removes the persisted token.
func (s *BadgerTokenStore) Delete() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(credentialKey))
	})
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *BadgerTokenStore) Close() error {
	return s.db.Close()
}
