package match

import (
	"context"
	"errors"

	"github.com/garyellow/ntpu-section-swap/internal/section"
	"github.com/garyellow/ntpu-section-swap/internal/sliceutil"
	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

// DefaultCandidateLimit caps the candidates evaluated per pass.
const DefaultCandidateLimit = 50

// CandidateSource is the slice of the intent store the fetcher needs.
type CandidateSource interface {
	FindCandidates(ctx context.Context, q storage.CandidateQuery) ([]storage.Intent, error)
}

// Fetcher loads the plausible counterparts of a source intent. It applies
// only cheap store-side filters; predicates decide the actual matches.
type Fetcher struct {
	store CandidateSource
	limit int
}

// NewFetcher creates a Fetcher. A non-positive limit uses DefaultCandidateLimit.
func NewFetcher(store CandidateSource, limit int) *Fetcher {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	return &Fetcher{store: store, limit: limit}
}

// Fetch queries once per distinct course the source involves and merges the
// results, oldest first within each course, capped at the fetcher limit.
// Partial results are returned alongside the first query error.
func (f *Fetcher) Fetch(ctx context.Context, source *storage.Intent) ([]storage.Intent, error) {
	kinds := CandidateKinds(source.Kind)
	if len(kinds) == 0 {
		return nil, nil
	}

	var (
		all  []storage.Intent
		errs []error
	)
	for _, key := range courseKeys(source) {
		found, err := f.store.FindCandidates(ctx, storage.CandidateQuery{
			SourceID:   source.ID,
			OwnerID:    source.OwnerID,
			CourseKeys: []string{key},
			Kinds:      kinds,
			Limit:      f.limit,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, found...)
	}

	all = sliceutil.Deduplicate(all, func(in storage.Intent) string { return in.ID })
	if len(all) > f.limit {
		all = all[:f.limit]
	}
	return all, errors.Join(errs...)
}

// CandidateKinds lists the intent kinds that can pair with kind.
func CandidateKinds(kind storage.IntentKind) []storage.IntentKind {
	switch kind {
	case storage.KindSwap:
		return []storage.IntentKind{storage.KindSwap}
	case storage.KindDrop:
		return []storage.IntentKind{storage.KindRequest, storage.KindDropAndRequest, storage.KindSwap}
	case storage.KindRequest:
		return []storage.IntentKind{storage.KindDrop, storage.KindDropAndRequest, storage.KindSwap}
	case storage.KindDropAndRequest:
		return []storage.IntentKind{storage.KindRequest, storage.KindDrop, storage.KindDropAndRequest, storage.KindSwap}
	}
	return nil
}

func courseKeys(in *storage.Intent) []string {
	keys := []string{section.CourseToken(in.DropCourse()), section.CourseToken(in.WantedCourse())}
	keys = sliceutil.Deduplicate(keys, func(k string) string { return k })
	out := keys[:0]
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
