package sieve_test

import (
	"context"
	"testing"

	"github.com/edirooss/primer/internal/prioqueue"
	"github.com/edirooss/primer/internal/prioqueue/prioqueuetest"
	"github.com/edirooss/primer/internal/sieve"
	"github.com/stretchr/testify/require"
)

func newSieve(t *testing.T, high, low int) *sieve.Sieve {
	t.Helper()
	opts := []prioqueue.Option{}
	if high > 0 {
		opts = append(opts, prioqueue.WithThresholds(high, low))
	}
	q, err := prioqueue.New(context.Background(), prioqueuetest.NewMemStore(), opts...)
	require.NoError(t, err)
	return sieve.New(q)
}

// referencePrimes computes the first n primes by trial division, used as
// the oracle for property P1 at a practical test scale.
func referencePrimes(n int) []int64 {
	out := make([]int64, 0, n)
	candidate := int64(1)
	for len(out) < n {
		candidate++
		isPrime := true
		for _, p := range out {
			if p*p > candidate {
				break
			}
			if candidate%p == 0 {
				isPrime = false
				break
			}
		}
		if isPrime {
			out = append(out, candidate)
		}
	}
	return out
}

// TestCrunch_MatchesReferenceForVariousN covers property P1 and scenarios
// 1-2: crunch with is_active = (count < N) emits exactly the first N
// primes in order, for several N including ones large enough to force
// offload/reload cycles against the default thresholds.
func TestCrunch_MatchesReferenceForVariousN(t *testing.T) {
	for _, n := range []int{0, 1, 5, 10, 100, 10_000} {
		n := n
		t.Run("", func(t *testing.T) {
			want := referencePrimes(n)

			s := newSieve(t, 0, 0)
			var got []int64
			var gotIndex []int
			err := s.Crunch(context.Background(),
				func() bool { return len(got) < n },
				func(index int, prime int64) {
					gotIndex = append(gotIndex, index)
					got = append(got, prime)
				},
			)
			require.NoError(t, err)
			require.Equal(t, want, got)
			for i, idx := range gotIndex {
				require.Equal(t, i, idx)
			}
		})
	}
}

// TestCrunch_ForcesTieringChurn covers P1 at a scale guaranteed to drive
// the default HIGH/LOW thresholds through several offload/reload cycles.
func TestCrunch_ForcesTieringChurn(t *testing.T) {
	const n = 20_000
	want := referencePrimes(n)

	s := newSieve(t, 0, 0)
	var got []int64
	err := s.Crunch(context.Background(),
		func() bool { return len(got) < n },
		func(_ int, prime int64) { got = append(got, prime) },
	)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestCrunch_CancellationHonored covers property P2: an always-false
// is_active never invokes on_prime.
func TestCrunch_CancellationHonored(t *testing.T) {
	s := newSieve(t, 0, 0)
	called := false
	err := s.Crunch(context.Background(),
		func() bool { return false },
		func(int, int64) { called = true },
	)
	require.NoError(t, err)
	require.False(t, called)
}

// TestCrunch_ContextCancellation verifies ctx cancellation is honored
// alongside the isActive predicate.
func TestCrunch_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newSieve(t, 0, 0)
	called := false
	err := s.Crunch(ctx,
		func() bool { return true },
		func(int, int64) { called = true },
	)
	require.NoError(t, err)
	require.False(t, called)
}

// TestCrunch_Monotonicity covers property P3: prime arguments strictly
// increase and index equals the call count - 1.
func TestCrunch_Monotonicity(t *testing.T) {
	s := newSieve(t, 0, 0)
	const n = 2000
	var last int64 = -1
	calls := 0
	err := s.Crunch(context.Background(),
		func() bool { return calls < n },
		func(index int, prime int64) {
			require.Equal(t, calls, index)
			require.Greater(t, prime, last)
			last = prime
			calls++
		},
	)
	require.NoError(t, err)
	require.Equal(t, n, calls)
}

// TestCrunch_Resumable covers resumability: stopping a Crunch after k
// primes and resuming on the same Sieve produces the identical global
// sequence as a single uninterrupted run to n.
func TestCrunch_Resumable(t *testing.T) {
	const k, n = 37, 500
	want := referencePrimes(n)

	s := newSieve(t, 50, 10)
	var got []int64
	err := s.Crunch(context.Background(),
		func() bool { return len(got) < k },
		func(_ int, prime int64) { got = append(got, prime) },
	)
	require.NoError(t, err)
	require.Equal(t, want[:k], got)

	err = s.Crunch(context.Background(),
		func() bool { return len(got) < n },
		func(_ int, prime int64) { got = append(got, prime) },
	)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestCrunch_SmallThresholdsStillCorrect exercises aggressive tiering
// (HIGH=2, LOW=1) against the sieve itself, not just the bare TieredPQ.
func TestCrunch_SmallThresholdsStillCorrect(t *testing.T) {
	const n = 300
	want := referencePrimes(n)

	s := newSieve(t, 2, 1)
	var got []int64
	err := s.Crunch(context.Background(),
		func() bool { return len(got) < n },
		func(_ int, prime int64) { got = append(got, prime) },
	)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
