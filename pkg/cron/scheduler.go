// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule sweeps idle sessions every five minutes
const DefaultSchedule = "*/5 * * * *"

// Evictor removes sessions idle for longer than the given duration and
// reports how many were removed.
type Evictor interface {
	Evict(idle time.Duration) int
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	sessions Evictor
	idle     time.Duration
	schedule string
	logger   *slog.Logger
}

// NewScheduler creates a new job scheduler. An empty schedule uses
// DefaultSchedule.
func NewScheduler(sessions Evictor, idle time.Duration, schedule string, logger *slog.Logger) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		sessions: sessions,
		idle:     idle,
		schedule: schedule,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweepIdleSessions); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", s.schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs the sweep synchronously and returns the number of evicted sessions.
func (s *Scheduler) RunNow() int {
	return s.sweep()
}

func (s *Scheduler) sweepIdleSessions() {
	s.sweep()
}

func (s *Scheduler) sweep() int {
	removed := s.sessions.Evict(s.idle)
	s.logger.Debug("idle session sweep completed",
		slog.Int("removed", removed),
		slog.Duration("idle", s.idle),
	)
	return removed
}
