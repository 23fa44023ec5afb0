package lifecycle

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/francetravail"
	"github.com/iandry357/jobpulse/internal/posting"
	"github.com/iandry357/jobpulse/internal/scoring"
	"github.com/iandry357/jobpulse/internal/store"
)

func seedPosting(t *testing.T, mem *store.Memory, externalID string, status posting.Status, firstSeen time.Time) int64 {
	t.Helper()

	p := &posting.Posting{
		ExternalID:  externalID,
		Title:       "Développeur Go",
		Raw:         map[string]any{"id": externalID},
		Status:      status,
		FirstSeenAt: firstSeen,
		LastSeenAt:  firstSeen,
	}
	if err := mem.Create(context.Background(), p); err != nil {
		t.Fatalf("seed posting %s: %v", externalID, err)
	}
	return p.ID
}

func TestReconcileClosesAbsentPostings(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	activeID := seedPosting(t, mem, "active", posting.StatusExisting, now.Add(-48*time.Hour))
	goneID := seedPosting(t, mem, "gone", posting.StatusExisting, now.Add(-48*time.Hour))
	appliedID := seedPosting(t, mem, "kept", posting.StatusApplied, now.Add(-48*time.Hour))

	r := NewReconciler(mem, zap.NewNop())
	r.now = func() time.Time { return now }

	active := map[string]struct{}{"active": {}}
	if err := r.Reconcile(context.Background(), active); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	assertStatus(t, mem, activeID, posting.StatusExisting)
	assertStatus(t, mem, goneID, posting.StatusClosed)
	// Terminal postings are not listed as active and stay untouched.
	assertStatus(t, mem, appliedID, posting.StatusApplied)

	// Idempotent: a second run with the same set changes nothing.
	if err := r.Reconcile(context.Background(), active); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	assertStatus(t, mem, activeID, posting.StatusExisting)
	assertStatus(t, mem, goneID, posting.StatusClosed)
}

func TestReconcileAgesNewPostings(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	oldID := seedPosting(t, mem, "old", posting.StatusNew, now.Add(-25*time.Hour))
	freshID := seedPosting(t, mem, "fresh", posting.StatusNew, now.Add(-2*time.Hour))

	r := NewReconciler(mem, zap.NewNop())
	r.now = func() time.Time { return now }

	active := map[string]struct{}{"old": {}, "fresh": {}}
	if err := r.Reconcile(context.Background(), active); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	assertStatus(t, mem, oldID, posting.StatusExisting)
	assertStatus(t, mem, freshID, posting.StatusNew)
}

func TestPersistNewSkipsKnownAndMapsFields(t *testing.T) {
	mem := store.NewMemory()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	seedPosting(t, mem, "known", posting.StatusExisting, now.Add(-48*time.Hour))

	r := NewReconciler(mem, zap.NewNop())
	r.now = func() time.Time { return now }

	scored := []scoring.ScoredOffer{
		{
			Offer: francetravail.RawOffer{ID: "known", Payload: map[string]any{"id": "known"}},
			Score: 0.9,
		},
		{
			Offer: francetravail.RawOffer{
				ID: "fresh",
				Payload: map[string]any{
					"id":                 "fresh",
					"intitule":           "Développeur Go",
					"description":        "Backend Go",
					"typeContrat":        "CDI",
					"typeContratLibelle": "Contrat à durée indéterminée",
					"romeCode":           "M1805",
					"dateCreation":       "2026-02-27T10:00:00Z",
					"lieuTravail":        map[string]any{"libelle": "75 - Paris", "codePostal": "75001"},
					"entreprise":         map[string]any{"nom": "ACME"},
					"salaire":            map[string]any{"libelle": "45k-55k"},
					"contact":            map[string]any{"urlPostulation": "https://example.test/apply"},
				},
			},
			Score: 0.87,
		},
	}

	created, err := r.PersistNew(context.Background(), scored)
	if err != nil {
		t.Fatalf("persist new: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 created posting, got %d", len(created))
	}

	p, err := mem.Get(context.Background(), created[0])
	if err != nil {
		t.Fatalf("get created posting: %v", err)
	}

	if p.ExternalID != "fresh" || p.Status != posting.StatusNew {
		t.Fatalf("unexpected posting: %s %s", p.ExternalID, p.Status)
	}
	if p.Title != "Développeur Go" || p.ContractType != "CDI" || p.RomeCode != "M1805" {
		t.Fatalf("payload fields not mapped: %+v", p)
	}
	if p.LocationLabel != "75 - Paris" || p.CompanyName != "ACME" || p.SalaryLabel != "45k-55k" {
		t.Fatalf("nested fields not mapped: %+v", p)
	}
	if p.OfferURL != "https://example.test/apply" {
		t.Fatalf("offer url not mapped: %q", p.OfferURL)
	}
	if p.PublishedAt == nil || !p.PublishedAt.Equal(time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("published at not parsed: %v", p.PublishedAt)
	}
	if p.Score() != 0.87 {
		t.Fatalf("expected score 0.87 on raw payload, got %v", p.Score())
	}
	if !p.FirstSeenAt.Equal(now) || !p.LastSeenAt.Equal(now) {
		t.Fatalf("seen timestamps not stamped: %v %v", p.FirstSeenAt, p.LastSeenAt)
	}
}

func assertStatus(t *testing.T, mem *store.Memory, id int64, want posting.Status) {
	t.Helper()

	p, err := mem.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get posting %d: %v", id, err)
	}
	if p.Status != want {
		t.Fatalf("posting %d: expected status %s, got %s", id, want, p.Status)
	}
}
