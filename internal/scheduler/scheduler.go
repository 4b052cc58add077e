package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const refreshTimeout = time.Minute

// Refresher reloads a cached dataset.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	refresher Refresher
	logger    *zap.Logger
}

// NewScheduler creates a scheduler that refreshes the country catalog on spec, a
// standard five-field cron expression.
func NewScheduler(spec string, refresher Refresher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:      cron.New(),
		spec:      spec,
		refresher: refresher,
		logger:    logger,
	}
}

// Start registers the refresh job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("country_refresh", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.refreshCountries); err != nil {
		return fmt.Errorf("schedule country refresh: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) refreshCountries() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Error("failed to refresh country catalog", zap.Error(err))
		return
	}
	s.logger.Info("country catalog refreshed")
}
