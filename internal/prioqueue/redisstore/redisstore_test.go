package redisstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/edirooss/primer/internal/prioqueue"
	"github.com/edirooss/primer/internal/prioqueue/redisstore"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a Store against TEST_REDIS_ADDR, skipping the test
// when no Redis is reachable — these are integration tests against the
// real PrioStore backing, not unit tests; internal/prioqueue's own unit
// tests exercise prioqueuetest.MemStore instead.
func newTestStore(t *testing.T) *redisstore.Store {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redisstore integration test")
	}
	store, err := redisstore.New(addr, 0, nil)
	if err != nil {
		t.Skipf("could not reach redis at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_EmptyByDefault(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	empty, err := store.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	_, ok, err := store.LowestPriority(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_InsertAndRetrieveOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	items := []prioqueue.Pair{
		{Priority: 900, Value: 900},
		{Priority: 100, Value: 200},
		{Priority: 500, Value: 600},
		{Priority: 300, Value: 400},
		{Priority: 700, Value: 800},
	}
	require.NoError(t, store.Insert(ctx, items))

	n, err := store.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	lowest, ok, err := store.LowestPriority(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(100), lowest)

	got, err := store.Retrieve(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, []prioqueue.Pair{
		{Priority: 100, Value: 200},
		{Priority: 300, Value: 400},
		{Priority: 500, Value: 600},
		{Priority: 700, Value: 800},
		{Priority: 900, Value: 900},
	}, got)

	empty, err := store.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)
}

func TestStore_RetrieveMoreThanLen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, []prioqueue.Pair{{Priority: 1, Value: 1}, {Priority: 2, Value: 2}}))

	got, err := store.Retrieve(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestStore_DuplicatePriorityAndValue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Two Pairs sharing both Priority and Value must not collapse into
	// one sorted-set member.
	require.NoError(t, store.Insert(ctx, []prioqueue.Pair{
		{Priority: 100, Value: 1},
		{Priority: 100, Value: 1},
	}))

	n, err := store.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestStore_CloseDestroysNamespace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, []prioqueue.Pair{{Priority: 1, Value: 1}}))
	require.NoError(t, store.Close())

	// Close also closed the client this Store opened, so the namespace
	// can no longer be inspected through the Store; this test only
	// asserts that Close itself (DEL plus client close) didn't error.
}
