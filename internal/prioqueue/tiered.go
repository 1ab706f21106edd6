package prioqueue

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Default offload/reload thresholds, matching the source design.
const (
	DefaultHigh = 5000
	DefaultLow  = 1000
)

// ErrInvalidThresholds is returned by New when the configured HIGH/LOW
// thresholds don't satisfy 0 < LOW < HIGH. This is a programmer error,
// detected at construction — never at call time.
var ErrInvalidThresholds = errors.New("prioqueue: thresholds must satisfy 0 < low < high")

// Option configures a TieredPQ at construction.
type Option func(*options)

type options struct {
	high int
	low  int
	log  *zap.Logger
}

// WithThresholds overrides the default HIGH (offload) and LOW (reload)
// watermarks on the hot tier's size.
func WithThresholds(high, low int) Option {
	return func(o *options) {
		o.high = high
		o.low = low
	}
}

// WithLogger attaches a zap logger for diagnostic fields on sync/offload
// activity. A nil logger (the default) is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// TieredPQ is a priority queue over Pairs, split across a hot in-memory
// tier and a cold PrioStore. It enforces the invariant that, whenever cold
// is non-empty, every Pair in hot has a priority no greater than the
// minimum priority in cold — so the hot tier's minimum is always the
// union's minimum.
//
// Not safe for concurrent use: callers serialize access, exactly as the
// owning Sieve does.
type TieredPQ struct {
	store PrioStore
	log   *zap.Logger

	high int
	low  int

	// hot is kept sorted ascending by Priority at all times. Insert and
	// remove-by-index both use a binary-search position, mirroring the
	// ordered index a single-writer in-memory/Redis-backed store keeps
	// over its own sorted id list.
	hot []Pair

	// size is the cached |hot| + cold.Len(), refreshed by every sync.
	size int
}

// New constructs a TieredPQ over the given store. If the store already
// holds Pairs (e.g. a preloaded PrioStore handed to a fresh TieredPQ),
// Len reflects that without any explicit Insert.
func New(ctx context.Context, store PrioStore, opts ...Option) (*TieredPQ, error) {
	o := options{high: DefaultHigh, low: DefaultLow, log: zap.NewNop()}
	for _, apply := range opts {
		apply(&o)
	}
	if o.high <= 0 || o.low <= 0 || o.low >= o.high {
		return nil, fmt.Errorf("%w (got high=%d low=%d)", ErrInvalidThresholds, o.high, o.low)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	coldLen, err := store.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("prioqueue: initial store length: %w", err)
	}

	return &TieredPQ{
		store: store,
		log:   o.log.Named("tieredpq"),
		high:  o.high,
		low:   o.low,
		hot:   make([]Pair, 0, o.high),
		size:  coldLen,
	}, nil
}

// Len returns the logical number of Pairs in the union of both tiers.
func (q *TieredPQ) Len() int { return q.size }

// IsEmpty reports whether the union holds no Pairs.
func (q *TieredPQ) IsEmpty() bool { return q.size == 0 }

// Peek returns the Pair of least priority in the union without removing
// it. It may trigger a reload from cold if the hot tier has run low.
func (q *TieredPQ) Peek(ctx context.Context) (Pair, bool, error) {
	if len(q.hot) < q.low {
		if err := q.sync(ctx); err != nil {
			return Pair{}, false, err
		}
	}
	if len(q.hot) == 0 {
		return Pair{}, false, nil
	}
	return q.hot[0], true, nil
}

// Poll removes and returns the Pair of least priority in the union.
func (q *TieredPQ) Poll(ctx context.Context) (Pair, bool, error) {
	if len(q.hot) < q.low {
		if err := q.sync(ctx); err != nil {
			return Pair{}, false, err
		}
	}
	if len(q.hot) == 0 {
		return Pair{}, false, nil
	}
	item := q.hot[0]
	q.hot = q.hot[1:]
	q.size--
	return item, true, nil
}

// Insert adds one Pair to the queue.
func (q *TieredPQ) Insert(ctx context.Context, item Pair) error {
	return q.InsertAll(ctx, []Pair{item})
}

// InsertAll adds many Pairs to the queue in one batch.
func (q *TieredPQ) InsertAll(ctx context.Context, items []Pair) error {
	if len(items) == 0 {
		return nil
	}

	for _, item := range items {
		q.hotInsert(item)
	}
	q.size += len(items)

	return q.rebalance(ctx)
}

// rebalance restores both hot-tier bounds after an insert: |hot| <= high,
// and (invariant I1) every hot Pair's priority <= cold's minimum. Checking
// size alone is not enough — a newly-inserted Pair can exceed cold's
// minimum without ever pushing |hot| past high, in which case a
// size-triggered offload would never run and I1 would stay broken. So this
// always evicts the larger of the two eviction counts: however many Pairs
// sit above the high watermark, or however many sit above cold's current
// minimum, whichever is more.
func (q *TieredPQ) rebalance(ctx context.Context) error {
	if len(q.hot) == 0 {
		return nil
	}

	evict := 0
	if len(q.hot) > q.high {
		evict = len(q.hot) - q.high
	}

	coldLen, err := q.store.Len(ctx)
	if err != nil {
		return fmt.Errorf("prioqueue: rebalance store length: %w", err)
	}

	var coldMin int64
	if coldLen > 0 {
		var ok bool
		coldMin, ok, err = q.store.LowestPriority(ctx)
		if err != nil {
			return fmt.Errorf("prioqueue: rebalance lowest priority: %w", err)
		}
		if ok {
			// hot is sorted ascending, so everything priced above coldMin
			// is a suffix; find it with a binary search.
			split := sort.Search(len(q.hot), func(i int) bool { return q.hot[i].Priority > coldMin })
			if need := len(q.hot) - split; need > evict {
				evict = need
			}
		}
	}

	if evict <= 0 {
		return nil
	}

	split := len(q.hot) - evict
	toStorage := append([]Pair(nil), q.hot[split:]...)
	q.hot = q.hot[:split]

	if err := q.store.Insert(ctx, toStorage); err != nil {
		return fmt.Errorf("prioqueue: rebalance evict to cold: %w", err)
	}
	q.log.Debug("rebalance: evicted hot pairs to cold",
		zap.Int("evicted", len(toStorage)),
		zap.Int64("cold_min", coldMin),
	)
	return nil
}

// sync restores invariant I1 (every hot Pair's priority <= cold's
// minimum) whenever cold is non-empty, and refreshes the cached size.
func (q *TieredPQ) sync(ctx context.Context) error {
	coldLen, err := q.store.Len(ctx)
	if err != nil {
		return fmt.Errorf("prioqueue: sync store length: %w", err)
	}
	q.size = len(q.hot) + coldLen

	if coldLen == 0 {
		return nil
	}

	if len(q.hot) == 0 {
		pulled, err := q.store.Retrieve(ctx, q.high)
		if err != nil {
			return fmt.Errorf("prioqueue: sync retrieve into empty hot: %w", err)
		}
		q.hot = append(q.hot[:0], pulled...)
		return nil
	}

	coldMin, ok, err := q.store.LowestPriority(ctx)
	if err != nil {
		return fmt.Errorf("prioqueue: sync lowest priority: %w", err)
	}
	if !ok {
		// cold emptied out between Len and LowestPriority; nothing to do.
		return nil
	}
	if q.hot[len(q.hot)-1].Priority <= coldMin {
		// I1 already holds.
		return nil
	}

	// Evict every hot Pair with priority > coldMin: hot is sorted, so
	// that's a suffix. Find the split point with a binary search.
	split := sort.Search(len(q.hot), func(i int) bool { return q.hot[i].Priority > coldMin })
	toStorage := append([]Pair(nil), q.hot[split:]...)
	q.hot = q.hot[:split]

	if len(toStorage) > 0 {
		if err := q.store.Insert(ctx, toStorage); err != nil {
			return fmt.Errorf("prioqueue: sync evict to cold: %w", err)
		}
	}

	q.log.Debug("sync: evicted hot pairs past cold minimum",
		zap.Int("evicted", len(toStorage)),
		zap.Int64("cold_min", coldMin),
	)

	// Refill until hot is back up to high, or cold runs dry. Retrieve
	// returns ascending-sorted batches whose priorities are all >= the
	// coldMin we just split on, i.e. >= everything already left in hot,
	// so a plain append preserves the sort invariant.
	for len(q.hot) < q.high {
		want := q.high - len(q.hot)
		pulled, err := q.store.Retrieve(ctx, want)
		if err != nil {
			return fmt.Errorf("prioqueue: sync refill: %w", err)
		}
		if len(pulled) == 0 {
			break
		}
		q.hot = append(q.hot, pulled...)
	}
	return nil
}

// hotInsert inserts item into the sorted hot slice, keeping it ordered
// ascending by Priority. Mirrors the teacher's sorted-index
// insert-by-binary-search pattern, generalized from int64 ids to Pairs.
func (q *TieredPQ) hotInsert(item Pair) {
	i := sort.Search(len(q.hot), func(j int) bool { return q.hot[j].Priority >= item.Priority })
	q.hot = append(q.hot, Pair{})
	copy(q.hot[i+1:], q.hot[i:])
	q.hot[i] = item
}
