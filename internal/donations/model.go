package donations

import (
	"errors"
	"strings"
	"time"
)

// Allocation targets. Head office funds general operations; branch donations
// are earmarked for a named branch or project.
const (
	AllocationHeadOffice = "head_office"
	AllocationBranch     = "branch"
)

// Donation statuses for EFT reconciliation.
const (
	StatusPledged   = "pledged"
	StatusReceived  = "received"
	StatusCancelled = "cancelled"
)

var (
	// ErrInvalidAllocation is returned for an unknown allocation target
	ErrInvalidAllocation = errors.New("allocation must be head_office or branch")

	// ErrMissingTarget is returned when a branch donation names no branch
	ErrMissingTarget = errors.New("branch donations require a target")

	// ErrInvalidAmount is returned for a non-positive amount
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrNotFound is returned when a donation is not found
	ErrNotFound = errors.New("donation not found")
)

// Donation represents one pledged EFT donation.
type Donation struct {
	ID          string    `json:"id"`
	Allocation  string    `json:"allocation"`
	Target      string    `json:"target,omitempty"`
	DonorName   string    `json:"donor_name"`
	DonorEmail  string    `json:"donor_email,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Reference   string    `json:"reference"`
	Comment     string    `json:"comment,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateDonationRequest represents the request body for pledging a donation
type CreateDonationRequest struct {
	Allocation  string `json:"allocation"`
	Target      string `json:"target"`
	DonorName   string `json:"donor_name"`
	DonorEmail  string `json:"donor_email"`
	AmountCents int64  `json:"amount_cents"`
	Comment     string `json:"comment"`
}

// Validate validates the create donation request
func (r *CreateDonationRequest) Validate() error {
	switch r.Allocation {
	case AllocationHeadOffice:
	case AllocationBranch:
		if strings.TrimSpace(r.Target) == "" {
			return ErrMissingTarget
		}
	default:
		return ErrInvalidAllocation
	}
	if r.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Totals aggregates received and pledged amounts for the dashboard.
type Totals struct {
	PledgedCents   int64 `json:"pledged_cents"`
	ReceivedCents  int64 `json:"received_cents"`
	DonationCount  int   `json:"donation_count"`
	HeadOfficeCnt  int   `json:"head_office_count"`
	BranchCnt      int   `json:"branch_count"`
}
