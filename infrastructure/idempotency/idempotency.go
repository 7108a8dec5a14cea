// Package idempotency remembers the outcome of client requests carrying an
// Idempotency-Key so a retried submission replays the first response instead
// of issuing a second batch.
package idempotency

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	keyPrefix = "idem:"
	// Pending is stored while the first request for a key is still running.
	Pending = "__pending__"
)

// Store reserves keys and records responses.
type Store interface {
	// Reserve claims key. When reserved is false, stored holds either Pending
	// or the response recorded by Complete.
	Reserve(ctx context.Context, key string) (stored string, reserved bool, err error)
	Complete(ctx context.Context, key, value string) error
	// Release drops a reservation whose request failed so the client may retry.
	Release(ctx context.Context, key string) error
}

// Key scopes a client supplied key to one user.
func Key(userID int64, clientKey string) string {
	return keyPrefix + strconv.FormatInt(userID, 10) + ":" + strings.TrimSpace(clientKey)
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryStore keeps keys in process. Used when no Redis address is configured.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Reserve(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		return e.value, false, nil
	}
	s.entries[key] = memoryEntry{value: Pending, expires: now.Add(s.ttl)}
	return "", true, nil
}

func (s *MemoryStore) Complete(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// PurgeExpired drops expired keys and returns how many were removed.
func (s *MemoryStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}
