package donations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for donation storage
type Repository interface {
	Create(ctx context.Context, req *CreateDonationRequest) (*Donation, error)
	GetByReference(ctx context.Context, reference string) (*Donation, error)
	List(ctx context.Context, limit, offset int) ([]*Donation, error)
	MarkReceived(ctx context.Context, reference string) (*Donation, error)
	Totals(ctx context.Context) (*Totals, error)
}

// InMemoryRepository is an in-memory Repository used in tests and local dev.
type InMemoryRepository struct {
	mu        sync.RWMutex
	donations map[string]*Donation // keyed by reference
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		donations: make(map[string]*Donation),
	}
}

// Create records a pledged donation.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateDonationRequest) (*Donation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d := &Donation{
		ID:          uuid.New().String(),
		Allocation:  req.Allocation,
		Target:      req.Target,
		DonorName:   req.DonorName,
		DonorEmail:  req.DonorEmail,
		AmountCents: req.AmountCents,
		Reference:   NewReference(),
		Comment:     req.Comment,
		Status:      StatusPledged,
		CreatedAt:   time.Now().UTC(),
	}

	r.mu.Lock()
	r.donations[d.Reference] = d
	r.mu.Unlock()

	return d, nil
}

// GetByReference retrieves a donation by its EFT reference.
func (r *InMemoryRepository) GetByReference(ctx context.Context, reference string) (*Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.donations[reference]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// List returns donations, newest first.
func (r *InMemoryRepository) List(ctx context.Context, limit, offset int) ([]*Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Donation, 0, len(r.donations))
	for _, d := range r.donations {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset > 0 {
		if offset >= len(all) {
			return nil, nil
		}
		all = all[offset:]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// MarkReceived transitions a pledged donation to received.
func (r *InMemoryRepository) MarkReceived(ctx context.Context, reference string) (*Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.donations[reference]
	if !ok {
		return nil, ErrNotFound
	}
	d.Status = StatusReceived
	return d, nil
}

// Totals aggregates donation amounts.
func (r *InMemoryRepository) Totals(ctx context.Context) (*Totals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t := &Totals{}
	for _, d := range r.donations {
		switch d.Status {
		case StatusPledged:
			t.PledgedCents += d.AmountCents
		case StatusReceived:
			t.ReceivedCents += d.AmountCents
		}
		if d.Status == StatusCancelled {
			continue
		}
		t.DonationCount++
		if d.Allocation == AllocationHeadOffice {
			t.HeadOfficeCnt++
		} else {
			t.BranchCnt++
		}
	}
	return t, nil
}
