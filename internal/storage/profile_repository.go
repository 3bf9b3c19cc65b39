package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// GetProfile returns the profile of userID, or nil if none is stored.
func (db *DB) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var (
		p         Profile
		updatedAt int64
	)
	err := db.reader.QueryRowContext(ctx,
		`SELECT user_id, handle, display_name, chat_ref, updated_at FROM profiles WHERE user_id = ?`,
		userID).Scan(&p.UserID, &p.Handle, &p.DisplayName, &p.ChatRef, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query profile",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("query profile: %w", err)
	}
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}

// UpsertProfile inserts or replaces the contact profile of p.UserID.
func (db *DB) UpsertProfile(ctx context.Context, p *Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	_, err := db.writer.ExecContext(ctx, `
		INSERT INTO profiles (user_id, handle, display_name, chat_ref, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			handle = excluded.handle,
			display_name = excluded.display_name,
			chat_ref = excluded.chat_ref,
			updated_at = excluded.updated_at
	`, p.UserID, p.Handle, p.DisplayName, p.ChatRef, p.UpdatedAt.UnixMilli())
	if err != nil {
		slog.ErrorContext(ctx, "failed to upsert profile",
			"user_id", p.UserID,
			"error", err)
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// CountProfiles returns the number of stored profiles.
func (db *DB) CountProfiles(ctx context.Context) (int, error) {
	return db.count(ctx, "profiles")
}
