// Package content manages the editable site pages (about, projects, branch
// listings) served to the public site and edited from the back office.
package content

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a page is not found
	ErrNotFound = errors.New("page not found")

	// ErrInvalidSlug is returned for a malformed slug
	ErrInvalidSlug = errors.New("slug must be lowercase letters, digits and hyphens")

	// ErrSlugTaken is returned when the slug is already in use
	ErrSlugTaken = errors.New("slug already in use")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Page is one editable site page.
type Page struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Published bool      `json:"published"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertPageRequest represents the request body for creating or updating a page
type UpsertPageRequest struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Validate validates the upsert page request
func (r *UpsertPageRequest) Validate() error {
	if !slugPattern.MatchString(r.Slug) {
		return ErrInvalidSlug
	}
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

// Repository defines the interface for page storage
type Repository interface {
	Create(ctx context.Context, req *UpsertPageRequest) (*Page, error)
	GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*Page, error)
	List(ctx context.Context) ([]*Page, error)
	Update(ctx context.Context, slug string, req *UpsertPageRequest) (*Page, error)
	SetPublished(ctx context.Context, slug string, published bool) (*Page, error)
}

// InMemoryRepository is an in-memory Repository used in tests and local dev.
type InMemoryRepository struct {
	mu    sync.RWMutex
	pages map[string]*Page // keyed by slug
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{pages: make(map[string]*Page)}
}

// Create stores a new unpublished page.
func (r *InMemoryRepository) Create(ctx context.Context, req *UpsertPageRequest) (*Page, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pages[req.Slug]; exists {
		return nil, ErrSlugTaken
	}
	page := &Page{
		ID:        uuid.New().String(),
		Slug:      req.Slug,
		Title:     req.Title,
		Body:      req.Body,
		Published: false,
		UpdatedAt: time.Now().UTC(),
	}
	r.pages[page.Slug] = page
	return page, nil
}

// GetBySlug retrieves a page, optionally restricted to published pages.
func (r *InMemoryRepository) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page, ok := r.pages[slug]
	if !ok || (publishedOnly && !page.Published) {
		return nil, ErrNotFound
	}
	return page, nil
}

// List returns all pages ordered by slug.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Page, 0, len(r.pages))
	for _, p := range r.pages {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })
	return all, nil
}

// Update replaces a page's title and body.
func (r *InMemoryRepository) Update(ctx context.Context, slug string, req *UpsertPageRequest) (*Page, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	page, ok := r.pages[slug]
	if !ok {
		return nil, ErrNotFound
	}
	page.Title = req.Title
	page.Body = req.Body
	page.UpdatedAt = time.Now().UTC()
	return page, nil
}

// SetPublished toggles a page's visibility.
func (r *InMemoryRepository) SetPublished(ctx context.Context, slug string, published bool) (*Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	page, ok := r.pages[slug]
	if !ok {
		return nil, ErrNotFound
	}
	page.Published = published
	page.UpdatedAt = time.Now().UTC()
	return page, nil
}

// PostgresRepository stores pages in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("content: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts an unpublished page.
func (r *PostgresRepository) Create(ctx context.Context, req *UpsertPageRequest) (*Page, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, `
		INSERT INTO pages (id, slug, title, body, published)
		VALUES ($1, $2, $3, $4, false)
		RETURNING updated_at
	`, id, req.Slug, req.Title, req.Body).Scan(&updatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("content: insert failed: %w", err)
	}

	return &Page{
		ID:        id.String(),
		Slug:      req.Slug,
		Title:     req.Title,
		Body:      req.Body,
		Published: false,
		UpdatedAt: updatedAt,
	}, nil
}

// GetBySlug fetches a page, optionally restricted to published pages.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*Page, error) {
	query := `
		SELECT id, slug, title, body, published, updated_at
		FROM pages
		WHERE slug = $1 AND ($2 = false OR published)
	`
	page, err := scanPage(r.pool.QueryRow(ctx, query, slug, publishedOnly))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("content: select failed: %w", err)
	}
	return page, nil
}

// List returns all pages ordered by slug.
func (r *PostgresRepository) List(ctx context.Context) ([]*Page, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, slug, title, body, published, updated_at
		FROM pages
		ORDER BY slug ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("content: list failed: %w", err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("content: scan failed: %w", err)
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// Update replaces a page's title and body.
func (r *PostgresRepository) Update(ctx context.Context, slug string, req *UpsertPageRequest) (*Page, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	page, err := scanPage(r.pool.QueryRow(ctx, `
		UPDATE pages SET title = $1, body = $2, updated_at = now()
		WHERE slug = $3
		RETURNING id, slug, title, body, published, updated_at
	`, req.Title, req.Body, slug))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("content: update failed: %w", err)
	}
	return page, nil
}

// SetPublished toggles a page's visibility.
func (r *PostgresRepository) SetPublished(ctx context.Context, slug string, published bool) (*Page, error) {
	page, err := scanPage(r.pool.QueryRow(ctx, `
		UPDATE pages SET published = $1, updated_at = now()
		WHERE slug = $2
		RETURNING id, slug, title, body, published, updated_at
	`, published, slug))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("content: update failed: %w", err)
	}
	return page, nil
}

func scanPage(row pgx.Row) (*Page, error) {
	var p Page
	if err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Title,
		&p.Body,
		&p.Published,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
