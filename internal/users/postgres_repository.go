package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores users in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("users: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a new user row.
func (r *PostgresRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, role, password_hash, active, created_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7)
	`, user.ID, user.Email, user.Name, user.Role, user.PasswordHash, user.Active, user.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrEmailTaken
		}
		return fmt.Errorf("users: insert failed: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getWhere(ctx, "email = lower($1)", email)
}

// GetByID retrieves a user by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getWhere(ctx, "id = $1", id)
}

func (r *PostgresRepository) getWhere(ctx context.Context, where string, arg any) (*User, error) {
	query := fmt.Sprintf(`
		SELECT id, email, name, role, password_hash, active, created_at
		FROM users
		WHERE %s
	`, where)
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: select failed: %w", err)
	}
	return u, nil
}

// List returns all users ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]*User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, name, role, password_hash, active, created_at
		FROM users
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("users: list failed: %w", err)
	}
	defer rows.Close()

	var all []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("users: scan failed: %w", err)
		}
		all = append(all, u)
	}
	return all, rows.Err()
}

// UpdateRole changes a user's role.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id, role string) (*User, error) {
	if !KnownRole(role) {
		return nil, ErrInvalidRole
	}

	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET role = $1, updated_at = now()
		WHERE id = $2
		RETURNING id, email, name, role, password_hash, active, created_at
	`, role, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: update failed: %w", err)
	}
	return u, nil
}

// SetActive enables or disables a user's access.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET active = $1, updated_at = now()
		WHERE id = $2
	`, active, id)
	if err != nil {
		return fmt.Errorf("users: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Role,
		&u.PasswordHash,
		&u.Active,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
