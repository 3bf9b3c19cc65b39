// Package view renders a user's match records for display: grouped by course,
// largest group first, with a match percentage for swap matches.
package view

import (
	"context"
	"fmt"
	"slices"

	"github.com/garyellow/ntpu-section-swap/internal/section"
	"github.com/garyellow/ntpu-section-swap/internal/sliceutil"
	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

// DefaultLimit caps the records loaded for one view.
const DefaultLimit = 200

// Item is one match record as shown to its requester.
type Item struct {
	storage.MatchRecord
	Percentage int `json:"percentage,omitempty"` // swap matches only
}

// Group holds the matches of one course.
type Group struct {
	Course  string `json:"course"`
	Count   int    `json:"count"`
	Matches []Item `json:"matches"`
}

// View is the aggregated match list of one user.
type View struct {
	UserID string  `json:"user_id"`
	Total  int     `json:"total"`
	Groups []Group `json:"groups"`
}

// GroupByCourse buckets records by course token. Groups are ordered by
// descending size; equal sizes keep first-seen order, and each group keeps
// the input order of its records. The group label is the first record's
// course name.
func GroupByCourse(records []storage.MatchRecord) []Group {
	keys, buckets := sliceutil.GroupBy(records, func(r storage.MatchRecord) string {
		if r.CourseKey != "" {
			return r.CourseKey
		}
		return section.CourseToken(r.Course)
	})

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		bucket := buckets[k]
		g := Group{Course: bucket[0].Course, Count: len(bucket), Matches: make([]Item, 0, len(bucket))}
		for _, rec := range bucket {
			item := Item{MatchRecord: rec}
			if p, ok := Percentage(rec); ok {
				item.Percentage = p
			}
			g.Matches = append(g.Matches, item)
		}
		groups = append(groups, g)
	}

	slices.SortStableFunc(groups, func(a, b Group) int {
		return b.Count - a.Count
	})
	return groups
}

// Percentage scores a swap match from the stored section keys: 100 when both
// wants are satisfied, otherwise 60 plus 20 per satisfied side. Records of
// other rules, or without the keys to compare, report false.
func Percentage(rec storage.MatchRecord) (int, bool) {
	switch rec.Rule {
	case "mutual_swap", "partial_swap":
	default:
		return 0, false
	}

	if rec.NormalizedDesired == "" && rec.MatchedDesired == "" {
		return 0, false
	}

	sides := 0
	if satisfied(rec.NormalizedDesired, rec.MatchedCurrent) {
		sides++
	}
	if satisfied(rec.MatchedDesired, rec.NormalizedCurrent) {
		sides++
	}
	if sides == 2 {
		return 100, true
	}
	return 60 + 20*sides, true
}

func satisfied(wanted, held string) bool {
	if wanted == "" || held == "" {
		return false
	}
	return section.SameSection(section.KeyFromString(wanted), section.KeyFromString(held))
}

// MatchLister loads the records a user is the requester of.
type MatchLister interface {
	ListMatchesByRequester(ctx context.Context, userID string, limit int) ([]storage.MatchRecord, error)
}

// Service builds views from the match store.
type Service struct {
	store MatchLister
	limit int
}

// NewService creates a Service. A non-positive limit uses DefaultLimit.
func NewService(store MatchLister, limit int) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{store: store, limit: limit}
}

// ForUser returns the grouped matches where userID is the requester.
func (s *Service) ForUser(ctx context.Context, userID string) (*View, error) {
	records, err := s.store.ListMatchesByRequester(ctx, userID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return &View{UserID: userID, Total: len(records), Groups: GroupByCourse(records)}, nil
}
