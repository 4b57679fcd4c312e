package comms

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LogEntry is one row in the send log.
type LogEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LogStore persists the email send log. A nil store is a no-op so the
// dispatcher works without a database in local dev.
type LogStore struct {
	db *sql.DB
}

// NewLogStore creates a send log store.
func NewLogStore(db *sql.DB) *LogStore {
	if db == nil {
		return nil
	}
	return &LogStore{db: db}
}

// Record appends one send log row.
func (s *LogStore) Record(ctx context.Context, entry LogEntry) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comms_log (id, kind, recipient, subject, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.Kind, entry.Recipient, entry.Subject, entry.Status, entry.Error, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("comms: failed to record send log: %w", err)
	}
	return nil
}

// List returns recent send log rows, newest first.
func (s *LogStore) List(ctx context.Context, limit int) ([]LogEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, recipient, subject, status, COALESCE(error, ''), created_at
		FROM comms_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("comms: failed to list send log: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Recipient, &e.Subject, &e.Status, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("comms: failed to scan send log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
