package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const matchColumns = `id, requester_user_id, matched_user_id, requester_intent_id, matched_intent_id,
	course, course_key, rule, quality,
	current_section, desired_section, normalized_current, normalized_desired,
	matched_current, matched_desired, match_contact_handle, match_display_name, created_at`

// HasPair reports whether any match record exists between the two users for
// the course key, in either direction.
func (db *DB) HasPair(ctx context.Context, userA, userB, courseKey string) (bool, error) {
	lo, hi := pairOrder(userA, userB)
	var one int
	err := db.reader.QueryRowContext(ctx,
		`SELECT 1 FROM match_records WHERE user_lo = ? AND user_hi = ? AND course_key = ? LIMIT 1`,
		lo, hi, courseKey).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query match pair",
			"course_key", courseKey,
			"error", err)
		return false, fmt.Errorf("query match pair: %w", err)
	}
	return true, nil
}

// InsertMatches writes records in one transaction. Records that collide with
// an existing record for the same requester, user pair and course are skipped;
// the number actually inserted is returned.
func (db *DB) InsertMatches(ctx context.Context, records ...*MatchRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	start := time.Now()
	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert matches: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO match_records (`+matchColumns+`, user_lo, user_hi)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert matches: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		lo, hi := pairOrder(r.RequesterUserID, r.MatchedUserID)

		res, err := stmt.ExecContext(ctx,
			r.ID, r.RequesterUserID, r.MatchedUserID, r.RequesterIntentID, r.MatchedIntentID,
			r.Course, r.CourseKey, r.Rule, r.Quality,
			r.CurrentSection, r.DesiredSection, r.NormalizedCurrent, r.NormalizedDesired,
			r.MatchedCurrent, r.MatchedDesired, r.MatchContactHandle, r.MatchDisplayName,
			r.CreatedAt.UnixMilli(), lo, hi,
		)
		if err != nil {
			slog.ErrorContext(ctx, "failed to insert match record",
				"requester_intent_id", r.RequesterIntentID,
				"matched_intent_id", r.MatchedIntentID,
				"error", err)
			return 0, fmt.Errorf("insert match record: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert matches: %w", err)
	}
	observe(ctx, "InsertMatches", start, "count", len(records), "inserted", inserted)
	return inserted, nil
}

// ListMatchesByRequester returns the match records addressed to userID,
// newest first.
func (db *DB) ListMatchesByRequester(ctx context.Context, userID string, limit int) ([]MatchRecord, error) {
	start := time.Now()
	rows, err := db.reader.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM match_records
		WHERE requester_user_id = ?
		ORDER BY created_at DESC, id ASC
		LIMIT ?`, userID, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list matches",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []MatchRecord
	for rows.Next() {
		var (
			r         MatchRecord
			createdAt int64
		)
		if err := rows.Scan(
			&r.ID, &r.RequesterUserID, &r.MatchedUserID, &r.RequesterIntentID, &r.MatchedIntentID,
			&r.Course, &r.CourseKey, &r.Rule, &r.Quality,
			&r.CurrentSection, &r.DesiredSection, &r.NormalizedCurrent, &r.NormalizedDesired,
			&r.MatchedCurrent, &r.MatchedDesired, &r.MatchContactHandle, &r.MatchDisplayName, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan match record: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match records: %w", err)
	}
	observe(ctx, "ListMatchesByRequester", start, "count", len(records))
	return records, nil
}

// CountMatches returns the number of stored match records.
func (db *DB) CountMatches(ctx context.Context) (int, error) {
	return db.count(ctx, "match_records")
}
