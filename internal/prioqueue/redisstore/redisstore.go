// Package redisstore backs a prioqueue.PrioStore with a Redis sorted set.
// A sorted set maps directly onto the PrioStore contract: ZADD for batched
// insert, ZPOPMIN for batched pop-lowest-N, ZRANGE 0 0 WITHSCORES for
// the lowest-key lookup, and ZCARD for size.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edirooss/primer/internal/prioqueue"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store is a prioqueue.PrioStore backed by a Redis sorted set living under
// a private, randomly-named key. Each Store owns one pooled *redis.Client
// connection for its lifetime; Close releases it and deletes the
// namespace, discarding all stored Pairs — the store is ephemeral, never
// durable across a process restart.
type Store struct {
	client *redis.Client
	log    *zap.Logger
	key    string // sorted set key: primer:prioqueue:<uuid>
	seqKey string // auxiliary counter used to keep member encodings unique

	ownsClient bool
}

// member is the JSON payload stored as a sorted-set member. Value alone
// isn't always unique (the sieve can legitimately enqueue the same prime
// as a value at different priorities, and ties on priority are explicitly
// allowed), so a monotonically increasing Seq is folded in — Redis sorted
// sets dedupe by member, not by score, and two Pairs with equal Priority
// and Value would otherwise collapse into one entry.
type member struct {
	Priority int64 `json:"p"`
	Value    int64 `json:"v"`
	Seq      int64 `json:"s"`
}

// New opens a Store against addr/db, creating a fresh private namespace.
// log may be nil (treated as a no-op logger).
func New(addr string, db int, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping %s db=%d: %w", addr, db, err)
	}

	store := newWithClient(client, log)
	store.ownsClient = true
	return store, nil
}

// NewWithClient wraps an already-open *redis.Client, e.g. one shared with
// other subsystems. Close will not close the client itself, only delete
// the Store's own namespace.
func NewWithClient(client *redis.Client, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return newWithClient(client, log)
}

func newWithClient(client *redis.Client, log *zap.Logger) *Store {
	ns := uuid.New().String()
	return &Store{
		client: client,
		log:    log.Named("redisstore").With(zap.String("namespace", ns)),
		key:    "primer:prioqueue:" + ns,
		seqKey: "primer:prioqueue:" + ns + ":seq",
	}
}

func (s *Store) Insert(ctx context.Context, items []prioqueue.Pair) error {
	if len(items) == 0 {
		return nil
	}

	// Reserve a contiguous block of sequence numbers up front, so every
	// member encodes a unique tiebreaker even when two Pairs share both
	// Priority and Value.
	last, err := s.client.IncrBy(ctx, s.seqKey, int64(len(items))).Result()
	if err != nil {
		return fmt.Errorf("redisstore: insert reserve sequence: %w", err)
	}
	first := last - int64(len(items)) + 1

	zs := make([]redis.Z, len(items))
	for i, item := range items {
		m, err := json.Marshal(member{Priority: item.Priority, Value: item.Value, Seq: first + int64(i)})
		if err != nil {
			return fmt.Errorf("redisstore: marshal member: %w", err)
		}
		zs[i] = redis.Z{Score: float64(item.Priority), Member: m}
	}

	if err := s.client.ZAdd(ctx, s.key, zs...).Err(); err != nil {
		return fmt.Errorf("redisstore: zadd: %w", err)
	}
	return nil
}

func (s *Store) Retrieve(ctx context.Context, count int) ([]prioqueue.Pair, error) {
	if count <= 0 {
		return nil, nil
	}

	popped, err := s.client.ZPopMin(ctx, s.key, int64(count)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: zpopmin: %w", err)
	}

	out := make([]prioqueue.Pair, 0, len(popped))
	for _, z := range popped {
		raw, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("redisstore: unexpected member type %T", z.Member)
		}
		var m member
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("redisstore: unmarshal member: %w", err)
		}
		out = append(out, prioqueue.Pair{Priority: m.Priority, Value: m.Value})
	}
	// ZPOPMIN already returns ascending-by-score order; sorting again
	// would be redundant, but ties between equal scores are not ordered
	// by Seq, which the PrioStore contract doesn't require either.
	return out, nil
}

func (s *Store) LowestPriority(ctx context.Context) (int64, bool, error) {
	res, err := s.client.ZRangeWithScores(ctx, s.key, 0, 0).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redisstore: zrange: %w", err)
	}
	if len(res) == 0 {
		return 0, false, nil
	}
	return int64(res[0].Score), true, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redisstore: zcard: %w", err)
	}
	return int(n), nil
}

func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	n, err := s.Len(ctx)
	return n == 0, err
}

// Close deletes the Store's sorted set and sequence counter, discarding
// its contents, then (if this Store opened the connection itself) closes
// the underlying client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.client.Del(ctx, s.key, s.seqKey).Err(); err != nil {
		s.log.Warn("close: failed to delete namespace", zap.Error(err))
	}

	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

var _ prioqueue.PrioStore = (*Store)(nil)
