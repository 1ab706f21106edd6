// Package prioqueue implements the tiered priority queue over (priority,
// value) pairs described by the sieve's working-set design: a hot
// in-memory ordered tier backed by a cold, persistent PrioStore.
package prioqueue

import "fmt"

// Pair is the universal (priority, value) unit the queue orders by
// Priority. Value is opaque to the queue.
type Pair struct {
	Priority int64
	Value    int64
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d, %d)", p.Priority, p.Value)
}
