// Copyright (c) 2025 Rootsline Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history keeps per-user conversation history in memory.
//
// The store is an explicit object injected into the orchestrator rather
// than package-level state, so each test gets a fresh store. Nothing in
// the routing path writes to it today; the chat flow reads only, and the
// write contract exists for when exchanges start being recorded.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ENTRY TYPE
// =============================================================================

// Entry is one recorded exchange for a user.
type Entry struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Provider  string    `json:"provider"`
	Timestamp time.Time `json:"timestamp"`
}

// =============================================================================
// STORE
// =============================================================================

// Store maps user ids to ordered exchange sequences. Safe for concurrent
// use; reads of different users never block each other.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string][]Entry)}
}

// Append records one exchange for userID. The append is atomic per user;
// concurrent appends for the same user never lose entries. The entry id is
// assigned here.
func (s *Store) Append(userID string, e Entry) Entry {
	e.ID = uuid.NewString()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = append(s.entries[userID], e)
	return e
}

// Get returns a snapshot of userID's history in append order. An unknown
// user yields an empty, non-nil slice. The snapshot is a copy; callers can
// hold it without blocking writers.
func (s *Store) Get(userID string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.entries[userID]
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// Len returns the number of recorded exchanges for userID.
func (s *Store) Len(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[userID])
}

// Users returns the number of users with at least one recorded exchange.
func (s *Store) Users() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
