package service

import (
	"context"
	"time"

	"law-mate-be/internal/pkg/logger"
	"law-mate-be/pkg/index"
	"law-mate-be/pkg/rag/session"

	"github.com/robfig/cron/v3"
)

type ISchedulerService interface {
	Start() error
	Stop()
}

// schedulerService owns the two background cadences: scheduled index
// rebuilds and session TTL sweeps.
type schedulerService struct {
	cron            *cron.Cron
	lifecycle       *index.Lifecycle
	sessions        *session.Manager
	rebuildSchedule string
	sweepSchedule   string
	logger          logger.ILogger
}

func NewSchedulerService(
	lifecycle *index.Lifecycle,
	sessions *session.Manager,
	rebuildSchedule string,
	sweepSchedule string,
	log logger.ILogger,
) ISchedulerService {
	return &schedulerService{
		cron:            cron.New(),
		lifecycle:       lifecycle,
		sessions:        sessions,
		rebuildSchedule: rebuildSchedule,
		sweepSchedule:   sweepSchedule,
		logger:          log,
	}
}

func (s *schedulerService) Start() error {
	if s.rebuildSchedule != "" {
		if _, err := s.cron.AddFunc(s.rebuildSchedule, s.runRebuild); err != nil {
			return err
		}
	}
	if s.sweepSchedule != "" {
		if _, err := s.cron.AddFunc(s.sweepSchedule, s.runSweep); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.logger.Info("scheduler", "background schedules started", map[string]interface{}{
		"rebuild": s.rebuildSchedule,
		"sweep":   s.sweepSchedule,
	})
	return nil
}

func (s *schedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// runRebuild lets a failed rebuild wait for the next tick; the published
// generation keeps serving in the meantime.
func (s *schedulerService) runRebuild() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := s.lifecycle.Rebuild(ctx); err != nil {
		s.logger.Error("scheduler", "scheduled rebuild failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *schedulerService) runSweep() {
	removed := s.sessions.Sweep(time.Now())
	if removed > 0 {
		s.logger.Info("scheduler", "swept idle sessions", map[string]interface{}{"removed": removed})
	}
}
