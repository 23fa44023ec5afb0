package pipeline

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/francetravail"
	"github.com/iandry357/jobpulse/internal/lifecycle"
	"github.com/iandry357/jobpulse/internal/posting"
	"github.com/iandry357/jobpulse/internal/scoring"
	"github.com/iandry357/jobpulse/internal/store"
)

type stubProfile struct{ text string }

func (s stubProfile) Text(context.Context) (string, error) { return s.text, nil }

type stubClassifier struct {
	codes []string
	calls int
}

func (s *stubClassifier) PredictCodes(context.Context, string) ([]string, error) {
	s.calls++
	return s.codes, nil
}

type stubCollector struct {
	offers []francetravail.RawOffer
	calls  int
}

func (s *stubCollector) SearchOffers(_ context.Context, _ []string, _ string, _, _ int) ([]francetravail.RawOffer, error) {
	s.calls++
	return s.offers, nil
}

type stubScorer struct {
	scored []scoring.ScoredOffer
	calls  int
}

func (s *stubScorer) Score(_ context.Context, _ []francetravail.RawOffer, _ string) ([]scoring.ScoredOffer, error) {
	s.calls++
	return s.scored, nil
}

func rawOffer(id string) francetravail.RawOffer {
	return francetravail.RawOffer{ID: id, Payload: map[string]any{"id": id, "intitule": "Développeur Go"}}
}

func newTestPipeline(classifier *stubClassifier, collector *stubCollector, scorer *stubScorer) (*Pipeline, *store.Memory) {
	mem := store.NewMemory()
	reconciler := lifecycle.NewReconciler(mem, zap.NewNop())
	p := New(stubProfile{text: "profile"}, classifier, collector, scorer, reconciler, zap.NewNop())
	return p, mem
}

func TestRunOnceZeroCodesHaltsBeforeCollection(t *testing.T) {
	classifier := &stubClassifier{}
	collector := &stubCollector{}
	scorer := &stubScorer{}
	p, _ := newTestPipeline(classifier, collector, scorer)

	summary, err := p.RunOnce(context.Background(), "11")
	if err != nil {
		t.Fatalf("run once: %v", err)
	}

	if *summary != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
	if collector.calls != 0 || scorer.calls != 0 {
		t.Fatal("no stage after classification may run without codes")
	}
}

func TestRunOnceNoContentHaltsBeforeScoring(t *testing.T) {
	classifier := &stubClassifier{codes: []string{"M1805"}}
	collector := &stubCollector{}
	scorer := &stubScorer{}
	p, _ := newTestPipeline(classifier, collector, scorer)

	summary, err := p.RunOnce(context.Background(), "11")
	if err != nil {
		t.Fatalf("run once: %v", err)
	}

	if *summary != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
	if collector.calls != 1 {
		t.Fatalf("expected one collection call, got %d", collector.calls)
	}
	if scorer.calls != 0 {
		t.Fatal("scoring must not run on an empty collection")
	}
}

func TestRunOnceFullRun(t *testing.T) {
	offers := []francetravail.RawOffer{rawOffer("a"), rawOffer("b"), rawOffer("c")}
	classifier := &stubClassifier{codes: []string{"M1805"}}
	collector := &stubCollector{offers: offers}
	scorer := &stubScorer{scored: []scoring.ScoredOffer{
		{Offer: offers[0], Score: 0.9},
		{Offer: offers[2], Score: 0.7},
	}}
	p, mem := newTestPipeline(classifier, collector, scorer)

	summary, err := p.RunOnce(context.Background(), "11")
	if err != nil {
		t.Fatalf("run once: %v", err)
	}

	want := Summary{Collected: 3, Scored: 2, Enriched: 2}
	if *summary != want {
		t.Fatalf("expected %+v, got %+v", want, summary)
	}

	ids, err := mem.ExternalIDs(context.Background())
	if err != nil {
		t.Fatalf("external ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 persisted postings, got %d", len(ids))
	}
	if _, ok := ids["b"]; ok {
		t.Fatal("offer below threshold must not be persisted")
	}
}

func TestRunOnceClosesMissingPostings(t *testing.T) {
	offers := []francetravail.RawOffer{rawOffer("still-there")}
	classifier := &stubClassifier{codes: []string{"M1805"}}
	collector := &stubCollector{offers: offers}
	scorer := &stubScorer{}
	p, mem := newTestPipeline(classifier, collector, scorer)

	stale := &posting.Posting{
		ExternalID: "vanished",
		Raw:        map[string]any{"id": "vanished"},
		Status:     posting.StatusExisting,
	}
	if err := mem.Create(context.Background(), stale); err != nil {
		t.Fatalf("seed posting: %v", err)
	}

	if _, err := p.RunOnce(context.Background(), "11"); err != nil {
		t.Fatalf("run once: %v", err)
	}

	got, err := mem.Get(context.Background(), stale.ID)
	if err != nil {
		t.Fatalf("get posting: %v", err)
	}
	if got.Status != posting.StatusClosed {
		t.Fatalf("expected closed, got %s", got.Status)
	}
}

func TestRunOnceDoesNotGenerateReports(t *testing.T) {
	offers := []francetravail.RawOffer{rawOffer("a"), rawOffer("b")}
	classifier := &stubClassifier{codes: []string{"M1805"}}
	collector := &stubCollector{offers: offers}
	scorer := &stubScorer{scored: []scoring.ScoredOffer{
		{Offer: offers[0], Score: 0.9},
		{Offer: offers[1], Score: 0.8},
	}}
	p, mem := newTestPipeline(classifier, collector, scorer)

	summary, err := p.RunOnce(context.Background(), "11")
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if summary.Enriched != 2 {
		t.Fatalf("expected 2 new postings counted, got %d", summary.Enriched)
	}

	// Reports are produced on demand per posting; a run only persists.
	persisted, err := mem.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(persisted) != 2 {
		t.Fatalf("expected 2 persisted postings, got %d", len(persisted))
	}
	for _, p := range persisted {
		if _, err := mem.Reports().GetByPostingID(context.Background(), p.ID); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("posting %s: expected no report after a run, got err %v", p.ExternalID, err)
		}
	}
}
