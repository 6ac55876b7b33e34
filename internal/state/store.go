// SPDX-License-Identifier: MIT

// Package state persists the username whitelist request progress per user.
// Many viewers send one message and leave; a name is only forwarded for
// approval once its owner has shown up more than once.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Status is the request progress for one username.
type Status string

const (
	StatusNotOnRecord       Status = "NOT_ON_RECORD"
	StatusNeedsMoreMessages Status = "NEEDS_MORE_MESSAGES"
	StatusReadyToRequest    Status = "READY_TO_REQUEST"
	StatusRequestSent       Status = "REQUEST_SENT"
	StatusFailedToRequest   Status = "FAILED_TO_REQUEST"
)

// MinMessagesForRequest is the number of messages a user must have sent
// before their username is forwarded for approval.
const MinMessagesForRequest = 2

// Profile is the stored record for one username.
type Profile struct {
	Status   Status `json:"status"`
	Messages int    `json:"messages"`
}

// Store is a badger-backed profile store. Keys are "unamereq:<username>".
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func key(username string) []byte {
	return []byte("unamereq:" + strings.ToLower(username))
}

// Get returns the stored profile for username, or a NOT_ON_RECORD default.
func (s *Store) Get(username string) (Profile, error) {
	profile := Profile{Status: StatusNotOnRecord}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &profile)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Profile{Status: StatusNotOnRecord}, nil
	}
	if err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (s *Store) put(username string, profile Profile) error {
	buf, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(username), buf)
	})
}

// Advance progresses username one step through the request process and
// returns the status the user was in before any request attempt:
//  1. First sighting: put on record, needs more messages.
//  2. Subsequent sightings increment the counter until the minimum is met.
//  3. At the minimum, request() is attempted; failure is recorded and
//     retried on the next message.
//  4. REQUEST_SENT is terminal; nothing is ever written again.
func (s *Store) Advance(username string, request func() error) (Status, error) {
	profile, err := s.Get(username)
	if err != nil {
		return "", err
	}

	if profile.Status == StatusRequestSent {
		return profile.Status, nil
	}

	initial := profile.Status

	switch profile.Status {
	case StatusNotOnRecord:
		profile = Profile{Status: StatusNeedsMoreMessages, Messages: 1}
	case StatusNeedsMoreMessages:
		if profile.Messages+1 >= MinMessagesForRequest {
			profile.Status = StatusReadyToRequest
		}
		profile.Messages++
	}

	if profile.Status == StatusReadyToRequest || profile.Status == StatusFailedToRequest {
		if err := request(); err != nil {
			profile.Status = StatusFailedToRequest
		} else {
			profile.Status = StatusRequestSent
		}
	}

	if err := s.put(username, profile); err != nil {
		return "", err
	}
	return initial, nil
}
