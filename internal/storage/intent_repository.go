package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/garyellow/ntpu-section-swap/internal/section"
)

const intentColumns = `id, owner_id, kind, course, request_course,
	has_current, current_number, current_day, current_start,
	has_desired, desired_number, desired_day, desired_start, desired_any,
	anonymous, contact_handle, display_name, created_at, processed_at`

// UpsertIntent mirrors an intent into the store. The processed marker is kept
// only when the matching-relevant content is unchanged; it reports whether the
// stored intent now needs a matching pass.
func (db *DB) UpsertIntent(ctx context.Context, in *Intent) (bool, error) {
	query := `
		INSERT INTO intents (
			id, owner_id, kind, course, course_key, request_course, request_course_key,
			has_current, current_number, current_day, current_start,
			has_desired, desired_number, desired_day, desired_start, desired_any,
			anonymous, contact_handle, display_name, content_hash, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			kind = excluded.kind,
			course = excluded.course,
			course_key = excluded.course_key,
			request_course = excluded.request_course,
			request_course_key = excluded.request_course_key,
			has_current = excluded.has_current,
			current_number = excluded.current_number,
			current_day = excluded.current_day,
			current_start = excluded.current_start,
			has_desired = excluded.has_desired,
			desired_number = excluded.desired_number,
			desired_day = excluded.desired_day,
			desired_start = excluded.desired_start,
			desired_any = excluded.desired_any,
			anonymous = excluded.anonymous,
			contact_handle = excluded.contact_handle,
			display_name = excluded.display_name,
			processed_at = CASE WHEN intents.content_hash = excluded.content_hash
				THEN intents.processed_at ELSE NULL END,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
		RETURNING processed_at
	`

	now := time.Now()
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	var cur Section
	if in.Current != nil {
		cur = *in.Current
	}
	var des DesiredSection
	if in.Desired != nil {
		des = *in.Desired
	}

	start := time.Now()
	var processedAt sql.NullInt64
	err := db.writer.QueryRowContext(ctx, query,
		in.ID, in.OwnerID, string(in.Kind), in.Course, section.CourseToken(in.Course),
		in.RequestCourse, section.CourseToken(in.RequestCourse),
		boolToInt(in.Current != nil), cur.Number, cur.DayPattern, cur.StartTime,
		boolToInt(in.Desired != nil), des.Number, des.DayPattern, des.StartTime, boolToInt(des.AnySection),
		boolToInt(in.Anonymous), in.ContactHandle, in.DisplayName, in.ContentHash(),
		createdAt.UnixMilli(), now.UnixMilli(),
	).Scan(&processedAt)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upsert intent",
			"intent_id", in.ID,
			"error", err)
		return false, fmt.Errorf("upsert intent: %w", err)
	}
	observe(ctx, "UpsertIntent", start, "intent_id", in.ID)

	return !processedAt.Valid, nil
}

// GetIntent returns the intent with id, or nil if it does not exist.
func (db *DB) GetIntent(ctx context.Context, id string) (*Intent, error) {
	row := db.reader.QueryRowContext(ctx, `SELECT `+intentColumns+` FROM intents WHERE id = ?`, id)
	in, err := scanIntent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query intent",
			"intent_id", id,
			"error", err)
		return nil, fmt.Errorf("query intent: %w", err)
	}
	return in, nil
}

// FindCandidates returns up to q.Limit intents of the given kinds whose drop or
// request course loosely overlaps one of q.CourseKeys, excluding the source
// intent, intents of the same owner and intents already linked to the source
// by a match record. Oldest intents come first.
func (db *DB) FindCandidates(ctx context.Context, q CandidateQuery) ([]Intent, error) {
	keys := make([]string, 0, len(q.CourseKeys))
	for _, k := range q.CourseKeys {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 || len(q.Kinds) == 0 || q.Limit <= 0 {
		return nil, nil
	}

	var b strings.Builder
	args := make([]any, 0, 8+len(q.Kinds)+4*len(keys))

	b.WriteString(`SELECT ` + intentColumns + ` FROM intents i
		WHERE i.owner_id <> ? AND i.id <> ?`)
	args = append(args, q.OwnerID, q.SourceID)

	b.WriteString(` AND i.kind IN (` + placeholders(len(q.Kinds)) + `)`)
	for _, k := range q.Kinds {
		args = append(args, string(k))
	}

	b.WriteString(` AND (`)
	for n, k := range keys {
		if n > 0 {
			b.WriteString(` OR `)
		}
		b.WriteString(`(i.course_key <> '' AND (instr(i.course_key, ?) > 0 OR instr(?, i.course_key) > 0))
			OR (i.request_course_key <> '' AND (instr(i.request_course_key, ?) > 0 OR instr(?, i.request_course_key) > 0))`)
		args = append(args, k, k, k, k)
	}
	b.WriteString(`)`)

	b.WriteString(` AND NOT EXISTS (
			SELECT 1 FROM match_records m
			WHERE (m.requester_intent_id = ? AND m.matched_intent_id = i.id)
			   OR (m.requester_intent_id = i.id AND m.matched_intent_id = ?)
		)
		ORDER BY i.created_at ASC, i.id ASC
		LIMIT ?`)
	args = append(args, q.SourceID, q.SourceID, q.Limit)

	start := time.Now()
	rows, err := db.reader.QueryContext(ctx, b.String(), args...)
	if err != nil {
		slog.ErrorContext(ctx, "failed to query candidates",
			"intent_id", q.SourceID,
			"error", err)
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	intents, err := scanIntents(rows)
	if err != nil {
		return nil, fmt.Errorf("scan candidates: %w", err)
	}
	observe(ctx, "FindCandidates", start, "intent_id", q.SourceID, "count", len(intents))
	return intents, nil
}

// ListRecentIntents returns the newest intents, newest first.
func (db *DB) ListRecentIntents(ctx context.Context, limit int) ([]Intent, error) {
	return db.listIntents(ctx, "ListRecentIntents",
		`SELECT `+intentColumns+` FROM intents ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

// ListUnprocessedIntents returns intents that never completed a matching
// pass, oldest first.
func (db *DB) ListUnprocessedIntents(ctx context.Context, limit int) ([]Intent, error) {
	return db.listIntents(ctx, "ListUnprocessedIntents",
		`SELECT `+intentColumns+` FROM intents WHERE processed_at IS NULL ORDER BY created_at ASC, id ASC LIMIT ?`, limit)
}

func (db *DB) listIntents(ctx context.Context, operation, query string, limit int) ([]Intent, error) {
	start := time.Now()
	rows, err := db.reader.QueryContext(ctx, query, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list intents",
			"operation", operation,
			"error", err)
		return nil, fmt.Errorf("list intents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	intents, err := scanIntents(rows)
	if err != nil {
		return nil, fmt.Errorf("scan intents: %w", err)
	}
	observe(ctx, operation, start, "count", len(intents))
	return intents, nil
}

// MarkProcessed sets the processed marker, unless the intent was edited since
// hash was taken.
func (db *DB) MarkProcessed(ctx context.Context, id, hash string, at time.Time) error {
	_, err := db.writer.ExecContext(ctx,
		`UPDATE intents SET processed_at = ? WHERE id = ? AND content_hash = ?`,
		at.UnixMilli(), id, hash)
	if err != nil {
		slog.ErrorContext(ctx, "failed to mark intent processed",
			"intent_id", id,
			"error", err)
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// DeleteIntent removes an intent and, when purgeMatches is set, every match
// record that references it. It reports whether the intent existed and how
// many match records were removed.
func (db *DB) DeleteIntent(ctx context.Context, id string, purgeMatches bool) (bool, int64, error) {
	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin delete intent: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM intents WHERE id = ?`, id)
	if err != nil {
		return false, 0, fmt.Errorf("delete intent: %w", err)
	}
	deleted, _ := res.RowsAffected()

	var purged int64
	if purgeMatches {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM match_records WHERE requester_intent_id = ? OR matched_intent_id = ?`, id, id)
		if err != nil {
			return false, 0, fmt.Errorf("purge matches: %w", err)
		}
		purged, _ = res.RowsAffected()
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit delete intent: %w", err)
	}
	return deleted > 0, purged, nil
}

// CountIntents returns the number of stored intents.
func (db *DB) CountIntents(ctx context.Context) (int, error) {
	return db.count(ctx, "intents")
}

func (db *DB) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := db.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntent(row rowScanner) (*Intent, error) {
	var (
		in                          Intent
		kind                        string
		hasCurrent, hasDesired      int
		curNumber, curDay, curStart sql.NullString
		desNumber, desDay, desStart sql.NullString
		desiredAny, anonymous       int
		createdAt                   int64
		processedAt                 sql.NullInt64
	)
	err := row.Scan(
		&in.ID, &in.OwnerID, &kind, &in.Course, &in.RequestCourse,
		&hasCurrent, &curNumber, &curDay, &curStart,
		&hasDesired, &desNumber, &desDay, &desStart, &desiredAny,
		&anonymous, &in.ContactHandle, &in.DisplayName, &createdAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	in.Kind = IntentKind(kind)
	if hasCurrent == 1 {
		in.Current = &Section{Number: curNumber.String, DayPattern: curDay.String, StartTime: curStart.String}
	}
	if hasDesired == 1 {
		in.Desired = &DesiredSection{
			Number:     desNumber.String,
			DayPattern: desDay.String,
			StartTime:  desStart.String,
			AnySection: desiredAny == 1,
		}
	}
	in.Anonymous = anonymous == 1
	in.CreatedAt = time.UnixMilli(createdAt).UTC()
	in.ProcessedAt = fromUnixMilli(processedAt)
	return &in, nil
}

func scanIntents(rows *sql.Rows) ([]Intent, error) {
	var intents []Intent
	for rows.Next() {
		in, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, *in)
	}
	return intents, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
