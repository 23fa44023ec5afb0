package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/posting"
	"github.com/iandry357/jobpulse/internal/store"
)

// DefaultInitialPrompt is recorded on the report at creation and reused for
// every recomputation.
const DefaultInitialPrompt = "Analyse cette offre d'emploi en détail."

// ErrReportExists is returned when an initial enrichment is requested for a
// posting that already has a report.
var ErrReportExists = errors.New("enrichment report already exists")

// ProfileSource supplies the candidate profile text, satisfied by
// *profile.Builder.
type ProfileSource interface {
	Text(ctx context.Context) (string, error)
}

// Service owns report persistence around the orchestrator: creation is
// guarded by an existence check, recomputation by the counter cap.
type Service struct {
	orchestrator *Orchestrator
	postings     store.PostingStore
	reports      store.ReportStore
	profile      ProfileSource
	logger       *zap.Logger

	now func() time.Time
}

func NewService(orchestrator *Orchestrator, postings store.PostingStore, reports store.ReportStore, profile ProfileSource, log *zap.Logger) *Service {
	return &Service{
		orchestrator: orchestrator,
		postings:     postings,
		reports:      reports,
		profile:      profile,
		logger:       log,
		now:          time.Now,
	}
}

// EnrichPosting runs the initial enrichment for one posting and persists the
// resulting report. A second call for the same posting returns
// ErrReportExists.
func (s *Service) EnrichPosting(ctx context.Context, postingID int64) (*posting.EnrichmentReport, error) {
	p, err := s.postings.Get(ctx, postingID)
	if err != nil {
		return nil, fmt.Errorf("load posting %d: %w", postingID, err)
	}

	if _, err := s.reports.GetByPostingID(ctx, postingID); err == nil {
		return nil, ErrReportExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check existing report: %w", err)
	}

	profileText, err := s.profile.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("build profile text: %w", err)
	}

	outcome, err := s.orchestrator.RunInitial(ctx, p.Raw, profileText, DefaultInitialPrompt)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &posting.EnrichmentReport{
		PostingID:     postingID,
		Score:         p.Score(),
		Extraction:    outcome.Extraction,
		Evaluation:    outcome.Evaluation,
		Summary:       outcome.Summary,
		InitialPrompt: DefaultInitialPrompt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.reports.Create(ctx, report); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A concurrent request won the race after our existence check.
			return nil, ErrReportExists
		}
		return nil, fmt.Errorf("persist report: %w", err)
	}

	s.logger.Info("enrichment report created",
		zap.Int64("posting_id", postingID),
		zap.Int("tokens_used", outcome.TokensUsed),
		zap.Float64("cost_usd", outcome.Cost),
	)
	return report, nil
}

// Recalculate reruns the three stages under a free-text instruction. The
// counter cap is checked before any generation call; on success the
// instruction is appended to the history, the three outputs are overwritten
// and the counter is incremented.
func (s *Service) Recalculate(ctx context.Context, postingID int64, instruction string) (*posting.EnrichmentReport, error) {
	report, err := s.reports.GetByPostingID(ctx, postingID)
	if err != nil {
		return nil, fmt.Errorf("load report for posting %d: %w", postingID, err)
	}

	if report.RecalcCount >= posting.MaxRecalculations {
		return nil, store.ErrRecalcLimit
	}

	p, err := s.postings.Get(ctx, postingID)
	if err != nil {
		return nil, fmt.Errorf("load posting %d: %w", postingID, err)
	}

	profileText, err := s.profile.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("build profile text: %w", err)
	}

	outcome, err := s.orchestrator.RunRecalculation(ctx, p.Raw, profileText, report.InitialPrompt, instruction)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report.Extraction = outcome.Extraction
	report.Evaluation = outcome.Evaluation
	report.Summary = outcome.Summary
	report.History = append(report.History, posting.Recalculation{
		Instruction:    instruction,
		RecalculatedAt: now,
	})
	report.RecalcCount++
	report.UpdatedAt = now

	if err := s.reports.Update(ctx, report); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}

	s.logger.Info("enrichment report recalculated",
		zap.Int64("posting_id", postingID),
		zap.Int("recalc_count", report.RecalcCount),
		zap.Int("tokens_used", outcome.TokensUsed),
		zap.Float64("cost_usd", outcome.Cost),
	)
	return report, nil
}
