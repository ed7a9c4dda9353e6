package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/nie11kun/price-comparator/internal/service"
)

// Scheduler runs the price update pipeline at a fixed interval.
type Scheduler struct {
	cron    *cron.Cron
	updates *service.UpdateService
}

func New(updates *service.UpdateService) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		updates: updates,
	}
}

// Register schedules periodic runs.
func (s *Scheduler) Register(interval time.Duration) error {
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, s.runUpdate); err != nil {
		return fmt.Errorf("register update job: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes an update immediately (RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.runUpdate()
}

func (s *Scheduler) runUpdate() {
	log.Info().Msg("scheduled price update triggered")
	_, err := s.updates.Run(context.Background())
	if errors.Is(err, service.ErrUpdateRunning) {
		log.Warn().Msg("scheduled update skipped: run already active")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("scheduled update failed")
	}
}
