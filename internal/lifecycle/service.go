package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/posting"
	"github.com/iandry357/jobpulse/internal/store"
)

// ErrTerminalStatus is returned when an external transition is requested on a
// closed or applied posting.
var ErrTerminalStatus = errors.New("posting status is terminal")

// Service carries the transitions driven from outside the pipeline: the
// first detail view and the explicit application update.
type Service struct {
	postings store.PostingStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(postings store.PostingStore, logger *zap.Logger) *Service {
	return &Service{
		postings: postings,
		logger:   logger,
		now:      time.Now,
	}
}

// MarkViewed records the first detail view: new or existing postings become
// viewed, every other status is left unchanged.
func (s *Service) MarkViewed(ctx context.Context, id int64) (*posting.Posting, error) {
	p, err := s.postings.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Status != posting.StatusNew && p.Status != posting.StatusExisting {
		return p, nil
	}

	if err := s.postings.UpdateStatus(ctx, id, posting.StatusViewed, nil); err != nil {
		return nil, fmt.Errorf("mark viewed: %w", err)
	}
	p.Status = posting.StatusViewed
	return p, nil
}

// MarkApplied moves any non-terminal posting to applied and stamps the
// applied timestamp. Terminal postings are rejected.
func (s *Service) MarkApplied(ctx context.Context, id int64) (*posting.Posting, error) {
	p, err := s.postings.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if posting.IsTerminal(p.Status) {
		return nil, fmt.Errorf("%w: %s", ErrTerminalStatus, p.Status)
	}

	appliedAt := s.now()
	if err := s.postings.UpdateStatus(ctx, id, posting.StatusApplied, &appliedAt); err != nil {
		return nil, fmt.Errorf("mark applied: %w", err)
	}

	s.logger.Info("posting applied", zap.Int64("id", id))
	p.Status = posting.StatusApplied
	p.AppliedAt = &appliedAt
	return p, nil
}
