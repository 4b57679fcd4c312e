// Package audit records an immutable trail of back-office actions.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audited action.
type EventType string

const (
	// EventAdminLogin is logged on a successful back-office login.
	EventAdminLogin EventType = "admin.login"
	// EventSubmissionStatusChanged is logged when a submission moves status.
	EventSubmissionStatusChanged EventType = "submission.status_changed"
	// EventDonationReceived is logged when an EFT is reconciled.
	EventDonationReceived EventType = "donation.received"
	// EventPagePublished is logged when a page's publish state changes.
	EventPagePublished EventType = "page.published"
	// EventUserRoleChanged is logged when an account's role is changed.
	EventUserRoleChanged EventType = "user.role_changed"
	// EventUserDeactivated is logged when an account is disabled.
	EventUserDeactivated EventType = "user.deactivated"
	// EventConversationEscalated is logged when a chat is handed to a human.
	EventConversationEscalated EventType = "conversation.escalated"
)

// Event represents an immutable audit record.
type Event struct {
	ID        string          `json:"id"`
	EventType EventType       `json:"event_type"`
	ActorID   string          `json:"actor_id,omitempty"`
	EntityID  string          `json:"entity_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Service handles audit logging.
type Service struct {
	db *sql.DB
}

// NewService creates a new audit service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// LogEvent records an audit event. A nil service or db is a no-op so callers
// never branch on audit availability.
func (s *Service) LogEvent(ctx context.Context, event Event) error {
	if s == nil || s.db == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, actor_id, entity_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.ActorID),
		nullString(event.EntityID),
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to log event: %w", err)
	}
	return nil
}

// LogStatusChange logs a submission status transition.
func (s *Service) LogStatusChange(ctx context.Context, actorID, submissionID, from, to string) error {
	details, _ := json.Marshal(map[string]string{"from": from, "to": to})
	return s.LogEvent(ctx, Event{
		EventType: EventSubmissionStatusChanged,
		ActorID:   actorID,
		EntityID:  submissionID,
		Details:   details,
	})
}

// LogDonationReceived logs an EFT reconciliation.
func (s *Service) LogDonationReceived(ctx context.Context, actorID, reference string, amountCents int64) error {
	details, _ := json.Marshal(map[string]any{"reference": reference, "amount_cents": amountCents})
	return s.LogEvent(ctx, Event{
		EventType: EventDonationReceived,
		ActorID:   actorID,
		EntityID:  reference,
		Details:   details,
	})
}

// LogLogin logs a successful back-office login.
func (s *Service) LogLogin(ctx context.Context, userID, role string) error {
	details, _ := json.Marshal(map[string]string{"role": role})
	return s.LogEvent(ctx, Event{
		EventType: EventAdminLogin,
		ActorID:   userID,
		EntityID:  userID,
		Details:   details,
	})
}

// Filter specifies criteria for querying audit events.
type Filter struct {
	EventType EventType
	ActorID   string
	EntityID  string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// QueryEvents retrieves audit events with filters, newest first.
func (s *Service) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	query := `
		SELECT id, event_type, actor_id, entity_id, details, created_at
		FROM audit_events
		WHERE true
	`
	var args []interface{}
	argIdx := 1

	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if filter.ActorID != "" {
		query += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, filter.ActorID)
		argIdx++
	}
	if filter.EntityID != "" {
		query += fmt.Sprintf(" AND entity_id = $%d", argIdx)
		args = append(args, filter.EntityID)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var actorID, entityID sql.NullString
		if err := rows.Scan(&e.ID, &e.EventType, &actorID, &entityID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: failed to scan event: %w", err)
		}
		e.ActorID = actorID.String
		e.EntityID = entityID.String
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
