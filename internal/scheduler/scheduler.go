// Package scheduler runs periodic maintenance jobs: snapshot cache pruning
// and operational stats logging.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/greedi-fi/internal/fanout"
	"github.com/yourusername/greedi-fi/internal/marketdata"
)

// Scheduler manages the cron-driven maintenance jobs
type Scheduler struct {
	cron     *cron.Cron
	market   *marketdata.Service
	registry *fanout.Registry
	logger   *logrus.Logger

	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a maintenance scheduler (UTC)
func NewScheduler(market *marketdata.Service, registry *fanout.Registry, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		market:   market,
		registry: registry,
		logger:   logger,
	}
}

// ScheduleMaintenance registers the maintenance job on the given cron
// expression (e.g. "@every 5m").
func (s *Scheduler) ScheduleMaintenance(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	_, err := s.cron.AddFunc(cronExpression, s.runMaintenance)
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance job: %w", err)
	}
	return nil
}

func (s *Scheduler) runMaintenance() {
	s.market.PruneExpired()
	s.logger.WithFields(logrus.Fields{
		"snapshots": s.market.SnapshotCount(),
		"channels":  s.registry.ChannelCount(),
	}).Debug("Maintenance sweep completed")
}

// Start begins executing scheduled jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.cron.Start()
	s.isRunning = true
}

// Stop halts job execution and waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
}
