// Package feedback provides clinician feedback storage for computed
// therapy recommendations. It stores agreements and corrections so that
// guideline deviations in practice remain auditable.
package feedback

import (
	"context"
	"io"
	"time"

	"github.com/dvo-fracture-risk-server/internal/domain"
)

// Feedback represents a clinician's feedback on a computed recommendation.
type Feedback struct {
	ID                int64                  `json:"id,omitempty"`
	CaseKey           string                 `json:"case_key"`                    // Canonical case fingerprint (sex, age, T-score, factors)
	Sex               domain.Sex             `json:"sex"`
	Age               int                    `json:"age"`
	Band              domain.RiskBand        `json:"band"`                        // System's risk band
	SuggestedStrategy domain.TherapyStrategy `json:"suggested_strategy"`          // System's recommendation
	ChosenStrategy    domain.TherapyStrategy `json:"chosen_strategy"`             // Clinician's decision
	ChosenSubstanceID string                 `json:"chosen_substance_id,omitempty"`
	UserAgreed        bool                   `json:"user_agreed"`                 // Did the clinician agree with the suggestion?
	Notes             string                 `json:"notes,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// Summary aggregates stored feedback for reporting.
type Summary struct {
	Total         int64   `json:"total"`
	Agreed        int64   `json:"agreed"`
	AgreementRate float64 `json:"agreement_rate"`
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback for a case.
	// If feedback for the same case key exists, it will be updated.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves the stored feedback for a case key.
	// Returns nil without error when no feedback exists.
	Get(ctx context.Context, caseKey string) (*Feedback, error)

	// List returns all feedback entries with pagination.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Summarize returns aggregate agreement statistics.
	Summarize(ctx context.Context) (*Summary, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}
