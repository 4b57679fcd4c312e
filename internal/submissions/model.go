package submissions

import (
	"encoding/json"
	"strings"
	"time"
)

// Submission types mirror the questionnaire forms on the site.
const (
	TypeAmbassador = "ambassador"
	TypeJobs       = "jobs"
	TypeDonation   = "donation"
	TypeQuestion   = "question"
	TypeOutreach   = "outreach"
	TypeAdvertise  = "advertise"
	TypeProducts   = "products"
)

// Submission statuses walked by the back office.
const (
	StatusNew      = "new"
	StatusInReview = "in_review"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusClosed   = "closed"
)

// Submission represents one questionnaire form submission.
type Submission struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Answers   json.RawMessage `json:"answers,omitempty"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateSubmissionRequest represents the request body for creating a submission
type CreateSubmissionRequest struct {
	Type    string          `json:"type"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Phone   string          `json:"phone"`
	Answers json.RawMessage `json:"answers"`
}

// Validate validates the create submission request
func (r *CreateSubmissionRequest) Validate() error {
	if !KnownType(r.Type) {
		return ErrInvalidType
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if r.Email == "" && r.Phone == "" {
		return ErrMissingContact
	}
	return nil
}

// KnownType reports whether t names one of the questionnaire forms.
func KnownType(t string) bool {
	switch t {
	case TypeAmbassador, TypeJobs, TypeDonation, TypeQuestion, TypeOutreach, TypeAdvertise, TypeProducts:
		return true
	}
	return false
}

// KnownStatus reports whether s is a valid back-office status.
func KnownStatus(s string) bool {
	switch s {
	case StatusNew, StatusInReview, StatusApproved, StatusRejected, StatusClosed:
		return true
	}
	return false
}
