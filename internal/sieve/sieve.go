// Package sieve implements an incremental, memory-bounded prime generator:
// a wheel-stepped candidate walk that consults a tiered priority queue of
// composite "false candidates" to decide which candidates survive.
package sieve

import (
	"context"
	"fmt"

	"github.com/edirooss/primer/internal/prioqueue"
)

// step is the repeating wheel increment, summing to 10 across four steps.
// Starting from 11 it visits every integer coprime to 10
// (13, 17, 19, 21, 23, 27, 29, 31, 33, 37, ...); odd multiples of 3 such as
// 21 and 27 are candidates too, and are rejected by the queue, not the wheel.
var step = [4]int64{2, 4, 2, 2}

// bootstrap are the hard-coded primes emitted before wheeled candidate
// generation begins, so that the wheel starting at 11+2=13 has valid
// state.
var bootstrap = [5]int64{2, 3, 5, 7, 11}

// Sieve enumerates primes in ascending order. It owns its TieredPQ
// exclusively; nothing else may mutate that queue concurrently with a
// Crunch call. A Sieve is resumable: successive Crunch calls continue
// from where the previous one left off.
type Sieve struct {
	falseCandidates *prioqueue.TieredPQ

	lastCandidate int64
	stepIndex     int
	primeIndex    int
}

// New constructs an empty Sieve over the given queue, which must itself be
// empty and exclusively owned by this Sieve from here on.
func New(queue *prioqueue.TieredPQ) *Sieve {
	return &Sieve{falseCandidates: queue}
}

// IsActive is the caller-supplied liveness predicate, polled at least once
// per emitted prime. Crunch stops before emitting the next prime once this
// returns false.
type IsActive func() bool

// OnPrime is the caller-supplied emit callback, invoked in strictly
// ascending index order starting at 0, with prime strictly ascending.
type OnPrime func(index int, prime int64)

// Crunch drives the sieve forward, emitting primes via onPrime until
// isActive returns false or ctx is done. It is re-entrant: a cancelled
// Crunch can be resumed by calling it again on the same Sieve, producing
// the identical global prime sequence as an uninterrupted run.
//
// A PrioStore fault is fatal: it is wrapped and returned, and the sieve's
// state should be treated as unusable from that point on — the computation
// cannot continue with a queue that may be missing composite markers.
func (s *Sieve) Crunch(ctx context.Context, isActive IsActive, onPrime OnPrime) error {
	live := func() bool {
		if ctx.Err() != nil {
			return false
		}
		return isActive()
	}

	for live() && s.primeIndex < len(bootstrap) {
		prime := bootstrap[s.primeIndex]
		s.lastCandidate = prime

		// 2 and 5 are already accounted for by the wheel's step sequence.
		if prime != 2 && prime != 5 {
			// prime is odd, so prime*2 is even: prime*3 is its first odd
			// multiple strictly greater than itself.
			if err := s.falseCandidates.Insert(ctx, prioqueue.Pair{Priority: prime * 3, Value: prime}); err != nil {
				return fmt.Errorf("sieve: bootstrap insert: %w", err)
			}
		}

		onPrime(s.primeIndex, prime)
		s.primeIndex++
	}
	if !live() {
		return nil
	}

	lowest, ok, err := s.falseCandidates.Peek(ctx)
	if err != nil {
		return fmt.Errorf("sieve: initial peek: %w", err)
	}
	if !ok {
		return fmt.Errorf("sieve: queue unexpectedly empty after bootstrap")
	}

	for live() {
		candidate := s.lastCandidate + step[s.stepIndex]
		candidateCanBePrime := true
		s.lastCandidate = candidate
		s.stepIndex = (s.stepIndex + 1) % len(step)

		for candidate >= lowest.Priority {
			if candidate == lowest.Priority {
				candidateCanBePrime = false
			}

			polled, ok, err := s.falseCandidates.Poll(ctx)
			if err != nil {
				return fmt.Errorf("sieve: poll false candidate: %w", err)
			}
			if !ok {
				return fmt.Errorf("sieve: queue unexpectedly empty mid-candidate")
			}
			// candidate is always odd; a prime above 2 is never even, so
			// its next untested odd multiple is two primes further on.
			next := prioqueue.Pair{Priority: polled.Priority + 2*polled.Value, Value: polled.Value}
			if err := s.falseCandidates.Insert(ctx, next); err != nil {
				return fmt.Errorf("sieve: reinsert false candidate: %w", err)
			}

			lowest, ok, err = s.falseCandidates.Peek(ctx)
			if err != nil {
				return fmt.Errorf("sieve: peek after reinsert: %w", err)
			}
			if !ok {
				return fmt.Errorf("sieve: queue unexpectedly empty after reinsert")
			}
		}

		if !candidateCanBePrime {
			continue
		}

		if err := s.falseCandidates.Insert(ctx, prioqueue.Pair{Priority: candidate * 3, Value: candidate}); err != nil {
			return fmt.Errorf("sieve: insert new prime marker: %w", err)
		}

		onPrime(s.primeIndex, candidate)
		s.primeIndex++
	}

	return nil
}
