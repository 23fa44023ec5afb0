// Package store declares the narrow persistence interfaces the core consumes
// and provides postgres and in-memory implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/iandry357/jobpulse/internal/posting"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness guarantee would be violated
	// (posting external id, or a second report for the same posting).
	ErrDuplicate = errors.New("record already exists")
	// ErrRecalcLimit is returned when a report update would exceed the
	// recomputation cap enforced by the storage constraint.
	ErrRecalcLimit = errors.New("recalculation limit exceeded")
)

// PostingStore persists Posting records.
type PostingStore interface {
	// Create inserts a new posting. ErrDuplicate when the external id is
	// already stored.
	Create(ctx context.Context, p *posting.Posting) error
	// Get returns a posting by primary key, ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*posting.Posting, error)
	// ExternalIDs returns the set of stored external identifiers.
	ExternalIDs(ctx context.Context) (map[string]struct{}, error)
	// ListActive returns postings whose status is neither closed nor applied.
	ListActive(ctx context.Context) ([]*posting.Posting, error)
	// UpdateStatus sets the status and, when non-nil, the applied timestamp.
	UpdateStatus(ctx context.Context, id int64, status posting.Status, appliedAt *time.Time) error
}

// ReportStore persists EnrichmentReport records.
type ReportStore interface {
	// Create inserts a report. ErrDuplicate when a report already exists for
	// the posting.
	Create(ctx context.Context, r *posting.EnrichmentReport) error
	// GetByPostingID returns the report for a posting, ErrNotFound when absent.
	GetByPostingID(ctx context.Context, postingID int64) (*posting.EnrichmentReport, error)
	// Update overwrites the mutable report fields. ErrRecalcLimit when the
	// recalculation counter would exceed its cap.
	Update(ctx context.Context, r *posting.EnrichmentReport) error
}

// Experience is one persisted experience record used to build the candidate
// profile text.
type Experience struct {
	Role         string
	Context      string
	Technologies []string
	StartDate    time.Time
}

// ExperienceStore exposes the candidate's experience records, newest first.
type ExperienceStore interface {
	Experiences(ctx context.Context) ([]Experience, error)
}
