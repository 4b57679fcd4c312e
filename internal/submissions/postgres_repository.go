package submissions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores submissions in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("submissions: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateSubmissionRequest) (*Submission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO submissions (id, type, name, email, phone, answers, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		req.Type,
		req.Name,
		req.Email,
		req.Phone,
		req.Answers,
		StatusNew,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("submissions: insert failed: %w", err)
	}

	return &Submission{
		ID:        id.String(),
		Type:      req.Type,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Answers:   req.Answers,
		Status:    StatusNew,
		CreatedAt: createdAt,
	}, nil
}

// GetByID fetches one submission.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Submission, error) {
	query := `
		SELECT id, type, name, email, phone, answers, status, created_at
		FROM submissions
		WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("submissions: select failed: %w", err)
	}
	return sub, nil
}

// List returns submissions matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Submission, error) {
	query := `
		SELECT id, type, name, email, phone, answers, status, created_at
		FROM submissions
		WHERE ($1 = '' OR type = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, query, filter.Type, filter.Status, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("submissions: list failed: %w", err)
	}
	defer rows.Close()

	var subs []*Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("submissions: scan failed: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpdateStatus transitions a submission's status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) (*Submission, error) {
	if !KnownStatus(status) {
		return nil, ErrInvalidStatus
	}

	query := `
		UPDATE submissions SET status = $1, updated_at = now()
		WHERE id = $2
		RETURNING id, type, name, email, phone, answers, status, created_at
	`
	sub, err := scanSubmission(r.pool.QueryRow(ctx, query, status, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("submissions: update failed: %w", err)
	}
	return sub, nil
}

func scanSubmission(row pgx.Row) (*Submission, error) {
	var sub Submission
	if err := row.Scan(
		&sub.ID,
		&sub.Type,
		&sub.Name,
		&sub.Email,
		&sub.Phone,
		&sub.Answers,
		&sub.Status,
		&sub.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &sub, nil
}
