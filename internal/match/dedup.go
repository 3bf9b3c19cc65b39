package match

import (
	"context"
	"sync"
)

// PairChecker looks up recorded pairs.
type PairChecker interface {
	HasPair(ctx context.Context, userA, userB, courseKey string) (bool, error)
}

// Deduplicator guards the one-record-pair-per-user-pair-and-course rule. It is
// a best-effort read-then-write check; the unique index on match_records
// catches what slips through concurrent passes.
type Deduplicator struct {
	store PairChecker

	mu   sync.Mutex
	seen map[pairKey]struct{}
}

type pairKey struct {
	lo, hi, course string
}

func newPairKey(a, b, course string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b, course: course}
}

// NewDeduplicator creates a Deduplicator for one pass.
func NewDeduplicator(store PairChecker) *Deduplicator {
	return &Deduplicator{store: store, seen: make(map[pairKey]struct{})}
}

// Seen reports whether the pair was already recorded, either in the store or
// earlier in this pass.
func (d *Deduplicator) Seen(ctx context.Context, userA, userB, courseKey string) (bool, error) {
	key := newPairKey(userA, userB, courseKey)

	d.mu.Lock()
	_, ok := d.seen[key]
	d.mu.Unlock()
	if ok {
		return true, nil
	}

	return d.store.HasPair(ctx, userA, userB, courseKey)
}

// Mark remembers a pair recorded during this pass.
func (d *Deduplicator) Mark(userA, userB, courseKey string) {
	d.mu.Lock()
	d.seen[newPairKey(userA, userB, courseKey)] = struct{}{}
	d.mu.Unlock()
}
