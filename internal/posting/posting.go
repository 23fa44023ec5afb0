// Package posting defines the job posting records tracked by the pipeline and
// the lifecycle state machine that governs them.
//
// Status graph for pipeline-driven transitions:
//
//	new ──► existing
//	new | existing | viewed ──► closed   (absent from the active set)
//
// External transitions (detail view and explicit status updates):
//
//	new | existing ──► viewed
//	new | existing | viewed ──► applied
//
// closed and applied are terminal.
package posting

import (
	"fmt"
	"time"
)

// Status tracks a posting's relevance over time.
type Status string

const (
	StatusNew      Status = "new"
	StatusExisting Status = "existing"
	StatusClosed   Status = "closed"
	StatusViewed   Status = "viewed"
	StatusApplied  Status = "applied"
)

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusNew, StatusExisting, StatusClosed, StatusViewed, StatusApplied:
		return st, nil
	}
	return "", fmt.Errorf("unknown posting status %q", s)
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(s Status) bool {
	return s == StatusClosed || s == StatusApplied
}

// ScoreKey is the raw-payload key carrying the relevance score attached
// during scoring. Stored inside the payload so downstream consumers see it
// without a schema change.
const ScoreKey = "_score"

// Posting is one job listing ingested from the upstream source. The full
// upstream payload is preserved verbatim in Raw.
type Posting struct {
	ID          int64
	ExternalID  string
	Title       string
	Description string

	ContractType  string
	ContractLabel string
	WorkTime      string

	ExperienceCode  string
	ExperienceLabel string

	RomeCode string

	LocationLabel      string
	LocationPostalCode string
	LocationLat        float64
	LocationLng        float64

	CompanyName        string
	CompanyDescription string
	CompanyURL         string

	// Unparsed salary label; numeric parsing happens during enrichment.
	SalaryLabel string

	SectorLabel string
	NafCode     string

	OfferURL string

	PublishedAt *time.Time
	UpdatedAt   *time.Time

	Raw map[string]any

	Status      Status
	FirstSeenAt time.Time
	LastSeenAt  time.Time
	AppliedAt   *time.Time
}

// Score returns the relevance score attached to the raw payload, or 0 when
// none was recorded.
func (p *Posting) Score() float64 {
	if p.Raw == nil {
		return 0
	}
	if s, ok := p.Raw[ScoreKey].(float64); ok {
		return s
	}
	return 0
}
