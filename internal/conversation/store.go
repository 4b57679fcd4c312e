// Package conversation persists chat widget transcripts. Persistence is
// best-effort from the widget's point of view: callers log and swallow
// errors so the conversation never stalls on the database.
package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TranscriptMessage is one stored conversation turn.
type TranscriptMessage struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Options   json.RawMessage `json:"options,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Record is a conversation row with its running counters.
type Record struct {
	ID                    uuid.UUID
	SessionID             string
	UserName              string
	UserPhone             string
	Status                string
	MessageCount          int
	VisitorMessageCount   int
	AssistantMessageCount int
	StartedAt             time.Time
	LastMessageAt         *time.Time
	EndedAt               *time.Time
}

// Store persists conversations and messages to PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a conversation store. A nil db yields a nil store, and
// all methods on a nil store are no-ops.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// EnsureConversation creates or touches a conversation row and returns its id.
func (s *Store) EnsureConversation(ctx context.Context, sessionID, userName, userPhone string) (uuid.UUID, error) {
	if s == nil || s.db == nil {
		return uuid.Nil, nil
	}
	if strings.TrimSpace(sessionID) == "" {
		return uuid.Nil, fmt.Errorf("conversation: session id required")
	}

	var existingID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE session_id = $1`,
		sessionID,
	).Scan(&existingID)

	if err == nil {
		s.db.ExecContext(ctx,
			`UPDATE conversations SET updated_at = $1 WHERE id = $2`,
			time.Now().UTC(), existingID,
		)
		return existingID, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("conversation: failed to check existing: %w", err)
	}

	newID := uuid.New()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (
			id, session_id, user_name, user_phone, status,
			message_count, visitor_message_count, assistant_message_count,
			started_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, newID, sessionID, userName, userPhone, "active", 0, 0, 0, now, now, now)
	if err != nil {
		// Another request may have created it between the select and insert.
		if strings.Contains(err.Error(), "duplicate key") {
			return s.EnsureConversation(ctx, sessionID, userName, userPhone)
		}
		return uuid.Nil, fmt.Errorf("conversation: failed to create: %w", err)
	}
	return newID, nil
}

// Append persists one message and bumps the conversation counters.
func (s *Store) Append(ctx context.Context, sessionID string, msg TranscriptMessage) error {
	if s == nil || s.db == nil {
		return nil
	}

	if _, err := s.EnsureConversation(ctx, sessionID, "", ""); err != nil {
		return err
	}

	msgID := uuid.New()
	if msg.ID != "" {
		if parsed, parseErr := uuid.Parse(msg.ID); parseErr == nil {
			msgID = parsed
		}
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (id, session_id, role, content, options, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, msgID, sessionID, msg.Role, msg.Content, nullJSON(msg.Options), ts)
	if err != nil {
		return fmt.Errorf("conversation: failed to insert message: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("conversation: failed to read insert result: %w", err)
	}
	if rowsAffected == 0 {
		return nil
	}

	counterColumn := "message_count"
	switch msg.Role {
	case "user":
		counterColumn = "visitor_message_count"
	case "assistant":
		counterColumn = "assistant_message_count"
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE conversations SET
			message_count = message_count + 1,
			%s = %s + 1,
			last_message_at = $1,
			updated_at = $1
		WHERE session_id = $2
	`, counterColumn, counterColumn), ts, sessionID)
	if err != nil {
		return fmt.Errorf("conversation: failed to update counters: %w", err)
	}
	return nil
}

// List returns a conversation's messages in chronological order. A positive
// limit keeps the newest messages, not the oldest, so long conversations
// replay their tail.
func (s *Store) List(ctx context.Context, sessionID string, limit int) ([]TranscriptMessage, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	query := `
		SELECT id, role, content, COALESCE(options, 'null'::jsonb), created_at
		FROM conversation_messages
		WHERE session_id = $1
		ORDER BY created_at ASC
	`
	args := []any{sessionID}
	if limit > 0 {
		query = `
			SELECT id, role, content, COALESCE(options, 'null'::jsonb), created_at
			FROM conversation_messages
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []TranscriptMessage
	for rows.Next() {
		var m TranscriptMessage
		var opts []byte
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &opts, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("conversation: failed to scan message: %w", err)
		}
		if len(opts) > 0 && string(opts) != "null" {
			m.Options = opts
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if limit > 0 {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}
	return messages, nil
}

// Get retrieves a conversation record, or nil when not found.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	var rec Record
	var lastMessageAt, endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, user_name, user_phone, status,
			   message_count, visitor_message_count, assistant_message_count,
			   started_at, last_message_at, ended_at
		FROM conversations
		WHERE session_id = $1
	`, sessionID).Scan(
		&rec.ID, &rec.SessionID, &rec.UserName, &rec.UserPhone, &rec.Status,
		&rec.MessageCount, &rec.VisitorMessageCount, &rec.AssistantMessageCount,
		&rec.StartedAt, &lastMessageAt, &endedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to get: %w", err)
	}
	if lastMessageAt.Valid {
		rec.LastMessageAt = &lastMessageAt.Time
	}
	if endedAt.Valid {
		rec.EndedAt = &endedAt.Time
	}
	return &rec, nil
}

// ListRecent returns the most recently active conversations for the admin
// back-office.
func (s *Store) ListRecent(ctx context.Context, limit, offset int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_name, user_phone, status,
			   message_count, visitor_message_count, assistant_message_count,
			   started_at, last_message_at, ended_at
		FROM conversations
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to list: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var lastMessageAt, endedAt sql.NullTime
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.UserName, &rec.UserPhone, &rec.Status,
			&rec.MessageCount, &rec.VisitorMessageCount, &rec.AssistantMessageCount,
			&rec.StartedAt, &lastMessageAt, &endedAt,
		); err != nil {
			return nil, fmt.Errorf("conversation: failed to scan: %w", err)
		}
		if lastMessageAt.Valid {
			rec.LastMessageAt = &lastMessageAt.Time
		}
		if endedAt.Valid {
			rec.EndedAt = &endedAt.Time
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// End marks a conversation ended.
func (s *Store) End(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET status = 'ended', ended_at = $1, updated_at = $1
		WHERE session_id = $2 AND ended_at IS NULL
	`, now, sessionID)
	return err
}

// SetEscalated flags a conversation as waiting for a human agent.
func (s *Store) SetEscalated(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET status = 'escalated', updated_at = $1
		WHERE session_id = $2
	`, time.Now().UTC(), sessionID)
	return err
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
