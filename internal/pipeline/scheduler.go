package pipeline

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultCronSpec runs the pipeline three times a day.
const DefaultCronSpec = "0 7,12,18 * * *"

// runTimeout bounds one scheduled run end to end.
const runTimeout = 30 * time.Minute

// Scheduler drives the pipeline on a cron schedule. Overlapping invocations
// are skipped, never queued: two runs must not touch the stored state
// concurrently.
type Scheduler struct {
	pipeline *Pipeline
	region   string
	spec     string
	logger   *zap.Logger

	cron *cron.Cron
}

func NewScheduler(p *Pipeline, region, spec string, log *zap.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultCronSpec
	}
	return &Scheduler{
		pipeline: p,
		region:   region,
		spec:     spec,
		logger:   log,
	}
}

// Start registers the cron entry and begins scheduling. It returns after the
// scheduler goroutine is running.
func (s *Scheduler) Start() error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		if _, err := s.pipeline.RunOnce(ctx, s.region); err != nil {
			s.logger.Error("scheduled pipeline run failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("pipeline scheduler started", zap.String("spec", s.spec))
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("pipeline scheduler stopped")
}
