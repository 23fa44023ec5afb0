package posting

import "time"

// MaxRecalculations caps instruction-guided report recomputations per
// posting. The storage layer enforces the same bound with a check constraint.
const MaxRecalculations = 3

// Extraction is the structured output of the enrichment extraction stage.
// A failed decode leaves every field at its zero value.
type Extraction struct {
	JobObjective        string   `json:"job_objective"`
	SoftSkills          []string `json:"soft_skills"`
	SalaryMin           *float64 `json:"salary_min"`
	SalaryMax           *float64 `json:"salary_max"`
	SalaryPeriod        string   `json:"salary_period"`
	ExperienceYears     *int     `json:"experience_years"`
	ExperienceLevel     string   `json:"experience_level"`
	TechStack           []string `json:"tech_stack"`
	ContractType        string   `json:"contract_type"`
	Remote              string   `json:"remote"`
	KeyResponsibilities []string `json:"key_responsibilities"`
	Benefits            []string `json:"benefits"`
}

// Evaluation is the structured output of the enrichment evaluation stage.
type Evaluation struct {
	MatchScore      int      `json:"match_score"`
	Strengths       []string `json:"strengths"`
	Gaps            []string `json:"gaps"`
	Differentiators []string `json:"differentiators"`
	Recommendation  string   `json:"recommendation"`
}

// Recalculation records one instruction-guided recomputation of a report.
type Recalculation struct {
	Instruction    string    `json:"instruction"`
	RecalculatedAt time.Time `json:"recalculated_at"`
}

// EnrichmentReport is the analysis artifact attached to one posting. At most
// one report exists per posting.
type EnrichmentReport struct {
	ID        int64
	PostingID int64

	// Relevance score snapshot taken from the posting at creation time.
	Score float64

	Extraction *Extraction
	Evaluation *Evaluation
	Summary    string

	InitialPrompt string
	History       []Recalculation
	RecalcCount   int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecalcRemaining returns how many recomputations the report still allows.
func (r *EnrichmentReport) RecalcRemaining() int {
	remaining := MaxRecalculations - r.RecalcCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
