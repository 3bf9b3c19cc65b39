package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for name, ddl := range map[string]string{
		"intents":       intentsDDL,
		"match_records": matchRecordsDDL,
		"profiles":      profilesDDL,
	} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", name, err)
		}
	}
	return nil
}

// intents mirrors the intent records owned by the CRUD layer. course_key and
// request_course_key hold section.CourseToken values for candidate lookups.
const intentsDDL = `
CREATE TABLE IF NOT EXISTS intents (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	kind TEXT NOT NULL CHECK(kind IN ('swap', 'drop', 'request', 'drop_and_request')),
	course TEXT NOT NULL,
	course_key TEXT NOT NULL,
	request_course TEXT NOT NULL DEFAULT '',
	request_course_key TEXT NOT NULL DEFAULT '',
	current_number TEXT,
	current_day TEXT,
	current_start TEXT,
	desired_number TEXT,
	desired_day TEXT,
	desired_start TEXT,
	desired_any INTEGER NOT NULL DEFAULT 0,
	has_current INTEGER NOT NULL DEFAULT 0,
	has_desired INTEGER NOT NULL DEFAULT 0,
	anonymous INTEGER NOT NULL DEFAULT 0,
	contact_handle TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	processed_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_intents_course_key ON intents(course_key);
CREATE INDEX IF NOT EXISTS idx_intents_owner ON intents(owner_id);
CREATE INDEX IF NOT EXISTS idx_intents_created_at ON intents(created_at);
`

// match_records enforces the pair invariant: at most one record per requester
// for an unordered user pair and course.
const matchRecordsDDL = `
CREATE TABLE IF NOT EXISTS match_records (
	id TEXT PRIMARY KEY,
	requester_user_id TEXT NOT NULL,
	matched_user_id TEXT NOT NULL,
	requester_intent_id TEXT NOT NULL,
	matched_intent_id TEXT NOT NULL,
	user_lo TEXT NOT NULL,
	user_hi TEXT NOT NULL,
	course TEXT NOT NULL,
	course_key TEXT NOT NULL,
	rule TEXT NOT NULL,
	quality INTEGER NOT NULL DEFAULT 0,
	current_section TEXT NOT NULL DEFAULT '',
	desired_section TEXT NOT NULL DEFAULT '',
	normalized_current TEXT NOT NULL DEFAULT '',
	normalized_desired TEXT NOT NULL DEFAULT '',
	matched_current TEXT NOT NULL DEFAULT '',
	matched_desired TEXT NOT NULL DEFAULT '',
	match_contact_handle TEXT NOT NULL DEFAULT '',
	match_display_name TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_match_records_pair
	ON match_records(user_lo, user_hi, course_key, requester_user_id);
CREATE INDEX IF NOT EXISTS idx_match_records_requester ON match_records(requester_user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_match_records_intents ON match_records(requester_intent_id, matched_intent_id);
`

const profilesDDL = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id TEXT PRIMARY KEY,
	handle TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	chat_ref TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL
);
`
