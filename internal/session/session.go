// Package session keeps per-user application state: which property a user
// has selected and which of their scenario submissions is the latest.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/homely-api/internal/redisx"
)

// Store remembers the selected address per session.
type Store interface {
	Selected(ctx context.Context, sessionID string) (address string, ok bool, err error)
	Select(ctx context.Context, sessionID, address string) error
}

type memoryEntry struct {
	address string
	expires time.Time
}

// MemoryStore is a process-local Store. Entries idle past the TTL are
// treated as absent and swept on write.
type MemoryStore struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]memoryEntry
	now func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{ttl: ttl, m: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Selected(_ context.Context, id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[id]
	if !ok || s.now().After(e.expires) {
		return "", false, nil
	}
	return e.address, true, nil
}

func (s *MemoryStore) Select(_ context.Context, id, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.m {
		if now.After(e.expires) {
			delete(s.m, k)
		}
	}
	s.m[id] = memoryEntry{address: address, expires: now.Add(s.ttl)}
	return nil
}

// RedisStore shares selections across instances.
type RedisStore struct {
	Redis *redisx.Client
	TTL   time.Duration
}

func (s *RedisStore) Selected(ctx context.Context, id string) (string, bool, error) {
	return s.Redis.Selection(ctx, id)
}

func (s *RedisStore) Select(ctx context.Context, id, address string) error {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return s.Redis.SetSelection(ctx, id, address, ttl)
}
