package prioqueue

import "context"

// PrioStore is the persistent, ordered (priority, value) bag backing the
// cold tier of a TieredPQ. Implementations may be any ordered key-value
// store — an embedded B-tree, an LSM engine, or (as wired here) a Redis
// sorted set — the queue only depends on this contract.
//
// Each PrioStore instance owns a private namespace: two coexisting stores
// never interfere, and Close tears the namespace down. The store is
// ephemeral — nothing about it is expected to survive process restart.
//
// Storage faults are fatal to the enclosing computation: the queue cannot
// function without the store, so every method returns an error the caller
// is expected to propagate rather than retry in place.
type PrioStore interface {
	// Insert appends all items atomically: all-or-nothing on failure.
	// Ordering among stored items is implementation-defined; ordering is
	// imposed only at Retrieve.
	Insert(ctx context.Context, items []Pair) error

	// Retrieve atomically removes and returns up to count Pairs of lowest
	// priority, sorted ascending by priority. Fewer than count are
	// returned if the store holds fewer.
	Retrieve(ctx context.Context, count int) ([]Pair, error)

	// LowestPriority returns the smallest priority currently stored, or
	// ok=false if the store is empty.
	LowestPriority(ctx context.Context) (priority int64, ok bool, err error)

	// Len returns the number of Pairs currently stored.
	Len(ctx context.Context) (int, error)

	// IsEmpty reports whether the store holds no Pairs.
	IsEmpty(ctx context.Context) (bool, error)

	// Close releases the store's resources and destroys its namespace.
	Close() error
}
