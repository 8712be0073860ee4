package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paarshan4800/fin-advisor/internal/cache"
)

type item struct {
	value     []byte
	expiresAt time.Time
}

// sweepInterval bounds how often Set scans for expired entries.
const sweepInterval = time.Minute

// Store is an in-memory implementation of cache.Store.
// It is safe for concurrent use. Data is lost on restart.
type Store struct {
	mu        sync.RWMutex
	items     map[string]item
	nextSweep time.Time
	now       func() time.Time
}

// NewStore creates an empty in-memory cache.
func NewStore() *Store {
	return &Store{
		items: make(map[string]item),
		now:   time.Now,
	}
}

// Set stores a copy of value until ttl elapses.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("memory.Set: key is required")
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !now.Before(s.nextSweep) {
		s.sweep(now)
		s.nextSweep = now.Add(sweepInterval)
	}
	s.items[key] = item{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(ttl),
	}
	return nil
}

// sweep drops every expired entry. The caller holds the write lock.
func (s *Store) sweep(now time.Time) {
	for k, it := range s.items {
		if !now.Before(it.expiresAt) {
			delete(s.items, k)
		}
	}
}

// Get returns a copy of the stored value. Expired entries are evicted on read.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, cache.ErrNotFound
	}
	if !s.now().Before(it.expiresAt) {
		s.mu.Lock()
		if cur, still := s.items[key]; still && cur.expiresAt.Equal(it.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, cache.ErrNotFound
	}
	return append([]byte(nil), it.value...), nil
}

// Len reports the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Close() error {
	return nil
}

var _ cache.Store = (*Store)(nil)
