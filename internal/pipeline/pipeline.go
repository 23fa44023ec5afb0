// Package pipeline sequences one ingestion run (profile, classification,
// collection, scoring, lifecycle reconciliation) and schedules it.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/francetravail"
	"github.com/iandry357/jobpulse/internal/lifecycle"
	"github.com/iandry357/jobpulse/internal/scoring"
)

// collectRangeEnd bounds the single collection page; pagination beyond the
// first 50 offers per run is not needed at the current volume.
const collectRangeEnd = 49

// ProfileSource supplies the candidate profile text.
type ProfileSource interface {
	Text(ctx context.Context) (string, error)
}

// Classifier predicts occupation codes for the profile text.
type Classifier interface {
	PredictCodes(ctx context.Context, profileText string) ([]string, error)
}

// Collector fetches raw offers for a code set, region and result range.
type Collector interface {
	SearchOffers(ctx context.Context, codes []string, region string, rangeStart, rangeEnd int) ([]francetravail.RawOffer, error)
}

// Scorer ranks raw offers against the profile and keeps those above the
// relevance threshold.
type Scorer interface {
	Score(ctx context.Context, offers []francetravail.RawOffer, profileText string) ([]scoring.ScoredOffer, error)
}

// Summary is the outcome of one run. Enriched counts the newly persisted
// postings; their reports are generated on demand, per posting, never during
// the run itself.
type Summary struct {
	Collected int
	Scored    int
	Enriched  int
}

// Pipeline wires the stages of one run together.
type Pipeline struct {
	profile    ProfileSource
	classifier Classifier
	collector  Collector
	scorer     Scorer
	reconciler *lifecycle.Reconciler
	logger     *zap.Logger
}

func New(profile ProfileSource, classifier Classifier, collector Collector, scorer Scorer, reconciler *lifecycle.Reconciler, log *zap.Logger) *Pipeline {
	return &Pipeline{
		profile:    profile,
		classifier: classifier,
		collector:  collector,
		scorer:     scorer,
		reconciler: reconciler,
		logger:     log,
	}
}

// RunOnce executes one full run for the given region. Zero classification
// codes or an empty collection are valid zero-count outcomes: later stages
// are never invoked for them.
func (p *Pipeline) RunOnce(ctx context.Context, region string) (*Summary, error) {
	profileText, err := p.profile.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("build profile: %w", err)
	}

	codes, err := p.classifier.PredictCodes(ctx, profileText)
	if err != nil {
		return nil, fmt.Errorf("classify profile: %w", err)
	}
	if len(codes) == 0 {
		p.logger.Info("no occupation codes predicted, nothing to collect")
		return &Summary{}, nil
	}

	offers, err := p.collector.SearchOffers(ctx, codes, region, 0, collectRangeEnd)
	if err != nil {
		return nil, fmt.Errorf("collect offers: %w", err)
	}
	if len(offers) == 0 {
		p.logger.Info("search returned no offers", zap.Strings("codes", codes))
		return &Summary{}, nil
	}

	scored, err := p.scorer.Score(ctx, offers, profileText)
	if err != nil {
		return nil, fmt.Errorf("score offers: %w", err)
	}

	activeIDs := make(map[string]struct{}, len(offers))
	for _, offer := range offers {
		activeIDs[offer.ID] = struct{}{}
	}
	if err := p.reconciler.Reconcile(ctx, activeIDs); err != nil {
		return nil, fmt.Errorf("reconcile lifecycle: %w", err)
	}

	created, err := p.reconciler.PersistNew(ctx, scored)
	if err != nil {
		return nil, fmt.Errorf("persist postings: %w", err)
	}

	summary := &Summary{
		Collected: len(offers),
		Scored:    len(scored),
		Enriched:  len(created),
	}
	p.logger.Info("pipeline run finished",
		zap.Int("collected", summary.Collected),
		zap.Int("scored", summary.Scored),
		zap.Int("enriched", summary.Enriched),
	)
	return summary, nil
}
