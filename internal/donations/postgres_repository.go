package donations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores donations in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("donations: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a pledged donation with a fresh EFT reference.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateDonationRequest) (*Donation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	reference := NewReference()
	query := `
		INSERT INTO donations (id, allocation, target, donor_name, donor_email,
			amount_cents, reference, comment, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		req.Allocation,
		req.Target,
		req.DonorName,
		req.DonorEmail,
		req.AmountCents,
		reference,
		req.Comment,
		StatusPledged,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("donations: insert failed: %w", err)
	}

	return &Donation{
		ID:          id.String(),
		Allocation:  req.Allocation,
		Target:      req.Target,
		DonorName:   req.DonorName,
		DonorEmail:  req.DonorEmail,
		AmountCents: req.AmountCents,
		Reference:   reference,
		Comment:     req.Comment,
		Status:      StatusPledged,
		CreatedAt:   createdAt,
	}, nil
}

// GetByReference fetches a donation by its EFT reference.
func (r *PostgresRepository) GetByReference(ctx context.Context, reference string) (*Donation, error) {
	query := `
		SELECT id, allocation, target, donor_name, donor_email,
			   amount_cents, reference, comment, status, created_at
		FROM donations
		WHERE reference = $1
	`
	d, err := scanDonation(r.pool.QueryRow(ctx, query, reference))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("donations: select failed: %w", err)
	}
	return d, nil
}

// List returns donations, newest first.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*Donation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, allocation, target, donor_name, donor_email,
			   amount_cents, reference, comment, status, created_at
		FROM donations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("donations: list failed: %w", err)
	}
	defer rows.Close()

	var donations []*Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("donations: scan failed: %w", err)
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// MarkReceived transitions a pledged donation to received.
func (r *PostgresRepository) MarkReceived(ctx context.Context, reference string) (*Donation, error) {
	query := `
		UPDATE donations SET status = $1, updated_at = now()
		WHERE reference = $2
		RETURNING id, allocation, target, donor_name, donor_email,
				  amount_cents, reference, comment, status, created_at
	`
	d, err := scanDonation(r.pool.QueryRow(ctx, query, StatusReceived, reference))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("donations: update failed: %w", err)
	}
	return d, nil
}

// Totals aggregates donation amounts for the dashboard.
func (r *PostgresRepository) Totals(ctx context.Context) (*Totals, error) {
	query := `
		SELECT
			COALESCE(SUM(amount_cents) FILTER (WHERE status = 'pledged'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE status = 'received'), 0),
			COUNT(*) FILTER (WHERE status <> 'cancelled'),
			COUNT(*) FILTER (WHERE status <> 'cancelled' AND allocation = 'head_office'),
			COUNT(*) FILTER (WHERE status <> 'cancelled' AND allocation = 'branch')
		FROM donations
	`
	var t Totals
	if err := r.pool.QueryRow(ctx, query).Scan(
		&t.PledgedCents,
		&t.ReceivedCents,
		&t.DonationCount,
		&t.HeadOfficeCnt,
		&t.BranchCnt,
	); err != nil {
		return nil, fmt.Errorf("donations: totals failed: %w", err)
	}
	return &t, nil
}

func scanDonation(row pgx.Row) (*Donation, error) {
	var d Donation
	if err := row.Scan(
		&d.ID,
		&d.Allocation,
		&d.Target,
		&d.DonorName,
		&d.DonorEmail,
		&d.AmountCents,
		&d.Reference,
		&d.Comment,
		&d.Status,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}
