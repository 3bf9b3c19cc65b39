package storage

import (
	"context"
	"time"
)

// IntentStore is the intent pool the matching engine reads from.
type IntentStore interface {
	UpsertIntent(ctx context.Context, in *Intent) (bool, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	FindCandidates(ctx context.Context, q CandidateQuery) ([]Intent, error)
	ListRecentIntents(ctx context.Context, limit int) ([]Intent, error)
	ListUnprocessedIntents(ctx context.Context, limit int) ([]Intent, error)
	MarkProcessed(ctx context.Context, id, hash string, at time.Time) error
	DeleteIntent(ctx context.Context, id string, purgeMatches bool) (bool, int64, error)
	CountIntents(ctx context.Context) (int, error)
}

// MatchStore persists match records.
type MatchStore interface {
	// HasPair reports whether the two users already have a record for courseKey.
	HasPair(ctx context.Context, userA, userB, courseKey string) (bool, error)

	// InsertMatches writes records atomically, skipping pair duplicates.
	InsertMatches(ctx context.Context, records ...*MatchRecord) (int, error)

	ListMatchesByRequester(ctx context.Context, userID string, limit int) ([]MatchRecord, error)
	CountMatches(ctx context.Context) (int, error)
}

// ProfileStore holds contact profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpsertProfile(ctx context.Context, p *Profile) error
	CountProfiles(ctx context.Context) (int, error)
}

// HealthChecker is satisfied by stores that can report connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Repository combines every store the service needs.
type Repository interface {
	IntentStore
	MatchStore
	ProfileStore
	HealthChecker
}

var _ Repository = (*DB)(nil)
