package server

import (
	"database/sql"
	"time"
)

// DefaultStaleAfter is how long after the last successful chat fetch the
// service still reports ready.
const DefaultStaleAfter = 2 * time.Minute

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db         *sql.DB // nil when the audit store is disabled
	liveChatID string
	staleAfter time.Duration
	now        func() time.Time
}

// NewHandlers creates a Handlers instance. db may be nil.
func NewHandlers(db *sql.DB, liveChatID string, staleAfter time.Duration) *Handlers {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Handlers{
		db:         db,
		liveChatID: liveChatID,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}
