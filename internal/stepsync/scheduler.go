package stepsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/tahcohcat/stride/internal/logger"
	"github.com/tahcohcat/stride/internal/models"
)

var ErrThrottled = errors.New("sync requested too soon")

// Scheduler drives the engine: once at startup, then on a fixed interval, plus throttled
// on-demand triggers.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	limiter  *rate.Limiter
	log      *logger.Log
}

// NewScheduler creates a scheduler. minGap is the minimum spacing between on-demand triggers;
// zero disables throttling.
func NewScheduler(engine *Engine, interval, minGap time.Duration) *Scheduler {
	limit := rate.Inf
	if minGap > 0 {
		limit = rate.Every(minGap)
	}
	return &Scheduler{
		engine:   engine,
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
		log:      logger.Named("scheduler"),
	}
}

// Run blocks until ctx is cancelled. A non-positive interval runs the startup sync only.
func (s *Scheduler) Run(ctx context.Context) {
	if _, ran := s.engine.SyncOnStartup(ctx); ran {
		s.log.Debug("Startup sync complete")
	}

	if s.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info(fmt.Sprintf("Syncing every %s", s.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.engine.Sync(ctx)
		}
	}
}

// Trigger runs an on-demand sync unless one was triggered within the throttle window.
func (s *Scheduler) Trigger(ctx context.Context) (models.SyncResult, error) {
	if !s.limiter.Allow() {
		return models.SyncResult{}, ErrThrottled
	}
	return s.engine.Sync(ctx), nil
}

func (s *Scheduler) Engine() *Engine {
	return s.engine
}
