package profile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iandry357/jobpulse/internal/store"
)

type countingStore struct {
	mu    sync.Mutex
	exps  []store.Experience
	calls int
	err   error
}

func (c *countingStore) Experiences(context.Context) ([]store.Experience, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.exps, nil
}

func TestTextConcatenatesExperiences(t *testing.T) {
	src := &countingStore{exps: []store.Experience{
		{
			Role:         "Backend developer at ACME",
			Context:      "Payments platform",
			Technologies: []string{"Go", "PostgreSQL"},
			StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			Role:      "Intern",
			StartDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}}

	b := NewBuilder(src)
	text, err := b.Text(context.Background())
	if err != nil {
		t.Fatalf("text: %v", err)
	}

	want := "Backend developer at ACME\nPayments platform\nTechnologies: Go, PostgreSQL\n\nIntern"
	if text != want {
		t.Fatalf("expected %q, got %q", want, text)
	}
}

func TestTextCachedUntilInvalidated(t *testing.T) {
	src := &countingStore{exps: []store.Experience{{Role: "Developer"}}}
	b := NewBuilder(src)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := b.Text(ctx); err != nil {
			t.Fatalf("text: %v", err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected a single store read, got %d", src.calls)
	}

	b.Invalidate()
	if _, err := b.Text(ctx); err != nil {
		t.Fatalf("text after invalidate: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected a rebuild after invalidate, got %d reads", src.calls)
	}
}

func TestTextConcurrentFirstUse(t *testing.T) {
	src := &countingStore{exps: []store.Experience{{Role: "Developer"}}}
	b := NewBuilder(src)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Text(context.Background()); err != nil {
				t.Errorf("text: %v", err)
			}
		}()
	}
	wg.Wait()

	if src.calls != 1 {
		t.Fatalf("concurrent first callers must share one read, got %d", src.calls)
	}
}

func TestTextErrorNotCached(t *testing.T) {
	src := &countingStore{err: errors.New("db down")}
	b := NewBuilder(src)

	if _, err := b.Text(context.Background()); err == nil {
		t.Fatal("expected an error")
	}

	src.mu.Lock()
	src.err = nil
	src.exps = []store.Experience{{Role: "Developer"}}
	src.mu.Unlock()

	text, err := b.Text(context.Background())
	if err != nil {
		t.Fatalf("text after recovery: %v", err)
	}
	if text != "Developer" {
		t.Fatalf("unexpected text: %q", text)
	}
}
