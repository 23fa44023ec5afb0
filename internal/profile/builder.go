// Package profile builds the candidate profile text used by classification,
// scoring and enrichment.
package profile

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/iandry357/jobpulse/internal/store"
)

// Builder concatenates the persisted experience records into one profile
// text, newest first. The text is built once per process; concurrent first
// callers share a single store read.
type Builder struct {
	experiences store.ExperienceStore

	group singleflight.Group
	mu    sync.Mutex
	text  string
	set   bool
}

func NewBuilder(experiences store.ExperienceStore) *Builder {
	return &Builder{experiences: experiences}
}

// Text returns the cached profile text, building it on first use.
func (b *Builder) Text(ctx context.Context) (string, error) {
	b.mu.Lock()
	if b.set {
		text := b.text
		b.mu.Unlock()
		return text, nil
	}
	b.mu.Unlock()

	v, err, _ := b.group.Do("profile", func() (any, error) {
		b.mu.Lock()
		if b.set {
			text := b.text
			b.mu.Unlock()
			return text, nil
		}
		b.mu.Unlock()

		text, err := b.build(ctx)
		if err != nil {
			return "", err
		}

		b.mu.Lock()
		b.text = text
		b.set = true
		b.mu.Unlock()
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached text so the next call rebuilds it, for use
// after the experience records change.
func (b *Builder) Invalidate() {
	b.mu.Lock()
	b.set = false
	b.text = ""
	b.mu.Unlock()
}

func (b *Builder) build(ctx context.Context) (string, error) {
	records, err := b.experiences.Experiences(ctx)
	if err != nil {
		return "", fmt.Errorf("load experiences: %w", err)
	}

	var blocks []string
	for _, exp := range records {
		var lines []string
		if exp.Role != "" {
			lines = append(lines, exp.Role)
		}
		if exp.Context != "" {
			lines = append(lines, exp.Context)
		}
		if len(exp.Technologies) > 0 {
			lines = append(lines, "Technologies: "+strings.Join(exp.Technologies, ", "))
		}
		if len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}
