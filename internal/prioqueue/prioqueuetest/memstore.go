// Package prioqueuetest provides a minimal in-memory PrioStore, useful for
// exercising TieredPQ and Sieve without a reachable Redis instance. Per the
// design's own contract ("any ordered key-value store ... satisfies the
// contract"), this is a legitimate PrioStore backing, not a mock.
package prioqueuetest

import (
	"context"
	"sort"
	"sync"

	"github.com/edirooss/primer/internal/prioqueue"
)

// MemStore is a PrioStore backed by a plain slice, resorted on demand. It
// has none of redisstore.Store's namespacing or network failure modes;
// Close just drops the slice.
type MemStore struct {
	mu    sync.Mutex
	items []prioqueue.Pair
}

// NewMemStore constructs an empty in-memory PrioStore, optionally
// preloaded with items (e.g. to exercise the "TieredPQ wraps a
// non-empty store" scenario without any explicit Insert).
func NewMemStore(preload ...prioqueue.Pair) *MemStore {
	items := append([]prioqueue.Pair(nil), preload...)
	sort.Slice(items, func(i, j int) bool { return items[i].Priority < items[j].Priority })
	return &MemStore{items: items}
}

func (s *MemStore) Insert(_ context.Context, items []prioqueue.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	sort.Slice(s.items, func(i, j int) bool { return s.items[i].Priority < s.items[j].Priority })
	return nil
}

func (s *MemStore) Retrieve(_ context.Context, count int) ([]prioqueue.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count > len(s.items) {
		count = len(s.items)
	}
	out := append([]prioqueue.Pair(nil), s.items[:count]...)
	s.items = s.items[count:]
	return out, nil
}

func (s *MemStore) LowestPriority(_ context.Context) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return 0, false, nil
	}
	return s.items[0].Priority, true, nil
}

func (s *MemStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), nil
}

func (s *MemStore) IsEmpty(ctx context.Context) (bool, error) {
	n, err := s.Len(ctx)
	return n == 0, err
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}

var _ prioqueue.PrioStore = (*MemStore)(nil)
