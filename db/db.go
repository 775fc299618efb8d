// Package db provides the optional Postgres audit store for moderation
// decisions: connection helpers, schema migration, and small data access helpers.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'

	"github.com/onnwee/ytmod/moderation"
)

// ErrNoDSN is returned by Connect when no DSN is configured.
var ErrNoDSN = errors.New("db: empty DSN")

// Connect opens a Postgres connection pool for dsn and verifies it answers.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	database.SetMaxOpenConns(4)
	database.SetConnMaxIdleTime(5 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return database, nil
}

// Migrate applies the schema with idempotent statements. It is the fallback
// for databases where versioned migrations cannot run.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS moderation_events (
			id BIGSERIAL PRIMARY KEY,
			live_chat_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			author_id TEXT,
			author_name TEXT,
			message TEXT,
			sent_at TIMESTAMPTZ,
			toxic BOOLEAN NOT NULL DEFAULT FALSE,
			outcome TEXT NOT NULL,
			error TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_moderation_events_chat_created ON moderation_events(live_chat_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_moderation_events_toxic ON moderation_events(toxic) WHERE toxic`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

// InsertDecision stores one moderation decision.
func InsertDecision(ctx context.Context, dbx *sql.DB, d moderation.Decision) error {
	var sentAt any
	if !d.SentAt.IsZero() {
		sentAt = d.SentAt
	}
	_, err := dbx.ExecContext(ctx,
		`INSERT INTO moderation_events (live_chat_id, message_id, author_id, author_name, message, sent_at, toxic, outcome, error)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''))`,
		d.LiveChatID, d.MessageID, d.AuthorID, d.AuthorName, d.Text, sentAt, d.Toxic, d.Outcome, d.Error)
	return err
}

// RecentDecisions returns the newest decisions for a live chat, newest first.
// toxicOnly limits the result to toxic verdicts.
func RecentDecisions(ctx context.Context, dbx *sql.DB, liveChatID string, toxicOnly bool, limit int) ([]moderation.Decision, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := dbx.QueryContext(ctx,
		`SELECT live_chat_id, message_id, COALESCE(author_id,''), COALESCE(author_name,''), COALESCE(message,''),
		        sent_at, toxic, outcome, COALESCE(error,'')
		 FROM moderation_events
		 WHERE live_chat_id=$1 AND ($2 = FALSE OR toxic)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`, liveChatID, toxicOnly, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []moderation.Decision
	for rows.Next() {
		var d moderation.Decision
		var sentAt sql.NullTime
		if err := rows.Scan(&d.LiveChatID, &d.MessageID, &d.AuthorID, &d.AuthorName, &d.Text, &sentAt, &d.Toxic, &d.Outcome, &d.Error); err != nil {
			return nil, err
		}
		if sentAt.Valid {
			d.SentAt = sentAt.Time.UTC()
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AuditStore implements moderation.AuditRecorder on the moderation_events table.
type AuditStore struct{ DB *sql.DB }

func (a *AuditStore) RecordDecision(ctx context.Context, d moderation.Decision) error {
	return InsertDecision(ctx, a.DB, d)
}
