package store

import (
	"context"
	"sync"
	"time"

	"github.com/iandry357/jobpulse/internal/posting"
)

// Memory is a mutex-guarded in-memory implementation of the store
// interfaces, used by tests and local runs without a database.
type Memory struct {
	mu          sync.Mutex
	nextID      int64
	postings    map[int64]*posting.Posting
	byExternal  map[string]int64
	reports     map[int64]*posting.EnrichmentReport // keyed by posting id
	experiences []Experience
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		postings:   make(map[int64]*posting.Posting),
		byExternal: make(map[string]int64),
		reports:    make(map[int64]*posting.EnrichmentReport),
	}
}

// SetExperiences replaces the experience records returned by Experiences.
func (m *Memory) SetExperiences(exps []Experience) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.experiences = exps
}

func (m *Memory) Create(_ context.Context, p *posting.Posting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byExternal[p.ExternalID]; ok {
		return ErrDuplicate
	}

	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.postings[p.ID] = &cp
	m.byExternal[p.ExternalID] = p.ID
	return nil
}

func (m *Memory) Get(_ context.Context, id int64) (*posting.Posting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.postings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) ExternalIDs(_ context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make(map[string]struct{}, len(m.byExternal))
	for id := range m.byExternal {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (m *Memory) ListActive(_ context.Context) ([]*posting.Posting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*posting.Posting
	for _, p := range m.postings {
		if posting.IsTerminal(p.Status) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id int64, status posting.Status, appliedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.postings[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	if appliedAt != nil {
		p.AppliedAt = appliedAt
	}
	return nil
}

func (m *Memory) CreateReport(ctx context.Context, r *posting.EnrichmentReport) error {
	return m.createReport(r)
}

// Create (report) is split out so Memory satisfies both PostingStore and
// ReportStore through thin views.
func (m *Memory) createReport(r *posting.EnrichmentReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[r.PostingID]; ok {
		return ErrDuplicate
	}

	m.nextID++
	r.ID = m.nextID
	cp := *r
	m.reports[r.PostingID] = &cp
	return nil
}

func (m *Memory) GetByPostingID(_ context.Context, postingID int64) (*posting.EnrichmentReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[postingID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) UpdateReport(ctx context.Context, r *posting.EnrichmentReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[r.PostingID]; !ok {
		return ErrNotFound
	}
	if r.RecalcCount > posting.MaxRecalculations {
		return ErrRecalcLimit
	}
	cp := *r
	m.reports[r.PostingID] = &cp
	return nil
}

func (m *Memory) Experiences(_ context.Context) ([]Experience, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Experience(nil), m.experiences...), nil
}

// Reports returns a ReportStore view over the memory store.
func (m *Memory) Reports() ReportStore { return memoryReports{m} }

type memoryReports struct{ m *Memory }

func (v memoryReports) Create(ctx context.Context, r *posting.EnrichmentReport) error {
	return v.m.CreateReport(ctx, r)
}

func (v memoryReports) GetByPostingID(ctx context.Context, postingID int64) (*posting.EnrichmentReport, error) {
	return v.m.GetByPostingID(ctx, postingID)
}

func (v memoryReports) Update(ctx context.Context, r *posting.EnrichmentReport) error {
	return v.m.UpdateReport(ctx, r)
}
