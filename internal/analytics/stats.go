// Package analytics aggregates back-office dashboard numbers from the
// relational database.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mzansiprolife/platform/pkg/logging"
)

// Stats represents the dashboard metrics.
type Stats struct {
	Conversations     int64            `json:"conversations"`
	Escalations       int64            `json:"escalations"`
	Submissions       int64            `json:"submissions"`
	SubmissionsByType map[string]int64 `json:"submissions_by_type"`
	SubmissionsNew    int64            `json:"submissions_new"`
	DonationsPledged  int64            `json:"donations_pledged_cents"`
	DonationsReceived int64            `json:"donations_received_cents"`
	PeriodStart       string           `json:"period_start"`
	PeriodEnd         string           `json:"period_end"`
}

// statsDB defines the database interface needed by StatsRepository
type statsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// StatsRepository queries dashboard metrics from the database.
type StatsRepository struct {
	db statsDB
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	if pool == nil {
		panic("analytics: pgx pool required for stats")
	}
	return &StatsRepository{db: pool}
}

// NewStatsRepositoryWithDB allows injecting a mock database for testing.
func NewStatsRepositoryWithDB(db statsDB) *StatsRepository {
	return &StatsRepository{db: db}
}

// GetStats retrieves aggregated metrics.
// Optional start/end times for filtering. If nil, returns all-time stats.
func (r *StatsRepository) GetStats(ctx context.Context, start, end *time.Time) (*Stats, error) {
	stats := &Stats{SubmissionsByType: make(map[string]int64)}

	var timeFilter string
	var args []any
	if start != nil && end != nil {
		timeFilter = " AND created_at >= $1 AND created_at < $2"
		args = append(args, *start, *end)
		stats.PeriodStart = start.Format(time.RFC3339)
		stats.PeriodEnd = end.Format(time.RFC3339)
	} else {
		stats.PeriodStart = "all-time"
		stats.PeriodEnd = "now"
	}

	conversationsQuery := `SELECT COUNT(*) FROM conversations WHERE true` + timeFilter
	if err := r.db.QueryRow(ctx, conversationsQuery, args...).Scan(&stats.Conversations); err != nil {
		return nil, fmt.Errorf("analytics: count conversations: %w", err)
	}

	escalationsQuery := `SELECT COUNT(*) FROM conversations WHERE status = 'escalated'` + timeFilter
	if err := r.db.QueryRow(ctx, escalationsQuery, args...).Scan(&stats.Escalations); err != nil {
		return nil, fmt.Errorf("analytics: count escalations: %w", err)
	}

	submissionsQuery := `SELECT COUNT(*) FROM submissions WHERE true` + timeFilter
	if err := r.db.QueryRow(ctx, submissionsQuery, args...).Scan(&stats.Submissions); err != nil {
		return nil, fmt.Errorf("analytics: count submissions: %w", err)
	}

	newQuery := `SELECT COUNT(*) FROM submissions WHERE status = 'new'` + timeFilter
	if err := r.db.QueryRow(ctx, newQuery, args...).Scan(&stats.SubmissionsNew); err != nil {
		return nil, fmt.Errorf("analytics: count new submissions: %w", err)
	}

	byTypeQuery := `SELECT type, COUNT(*) FROM submissions WHERE true` + timeFilter + ` GROUP BY type`
	rows, err := r.db.Query(ctx, byTypeQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("analytics: submissions by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var subType string
		var count int64
		if err := rows.Scan(&subType, &count); err != nil {
			return nil, fmt.Errorf("analytics: scan submissions by type: %w", err)
		}
		stats.SubmissionsByType[subType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: submissions by type: %w", err)
	}

	pledgedQuery := `SELECT COALESCE(SUM(amount_cents), 0) FROM donations WHERE status = 'pledged'` + timeFilter
	if err := r.db.QueryRow(ctx, pledgedQuery, args...).Scan(&stats.DonationsPledged); err != nil {
		return nil, fmt.Errorf("analytics: sum pledged: %w", err)
	}

	receivedQuery := `SELECT COALESCE(SUM(amount_cents), 0) FROM donations WHERE status = 'received'` + timeFilter
	if err := r.db.QueryRow(ctx, receivedQuery, args...).Scan(&stats.DonationsReceived); err != nil {
		return nil, fmt.Errorf("analytics: sum received: %w", err)
	}

	return stats, nil
}

// Handler provides the dashboard HTTP endpoint.
type Handler struct {
	repo   *StatsRepository
	logger *logging.Logger
}

// NewHandler creates a new analytics HTTP handler.
func NewHandler(repo *StatsRepository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// Dashboard returns aggregated metrics.
// GET /admin/analytics/dashboard
// Query params:
//   - start: RFC3339 timestamp for period start (optional)
//   - end: RFC3339 timestamp for period end (optional)
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var start, end *time.Time
	if s := r.URL.Query().Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, `{"error": "invalid start time, use RFC3339 format"}`, http.StatusBadRequest)
			return
		}
		start = &t
	}
	if e := r.URL.Query().Get("end"); e != "" {
		t, err := time.Parse(time.RFC3339, e)
		if err != nil {
			http.Error(w, `{"error": "invalid end time, use RFC3339 format"}`, http.StatusBadRequest)
			return
		}
		end = &t
	}

	// If only one is provided, require both
	if (start == nil) != (end == nil) {
		http.Error(w, `{"error": "both start and end must be provided, or neither"}`, http.StatusBadRequest)
		return
	}

	stats, err := h.repo.GetStats(r.Context(), start, end)
	if err != nil {
		h.logger.Error("failed to get dashboard stats", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("failed to encode dashboard stats", "error", err)
	}
}
