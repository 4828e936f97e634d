// Package scheduler re-runs the watering checks when the calendar day
// rolls over — the server-process analog of reloading the client app.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shereeliao123/buddy-plant-watering-app/internal/domain"
)

// PlantSource lists the plants to check. store.Repo satisfies this.
type PlantSource interface {
	ListPlants(ctx context.Context, userID string) ([]domain.Plant, error)
}

// Checker is the dispatcher slice the scheduler drives.
type Checker interface {
	CheckAllOnce(ctx context.Context, userID string, plants []domain.Plant)
	ResetSessionCheck()
}

// Scheduler wakes up periodically, and on a day change starts a fresh
// check session over all plants.
type Scheduler struct {
	plants   PlantSource
	checker  Checker
	log      *zap.Logger
	userID   string
	interval time.Duration
	now      func() time.Time

	lastDay time.Time
}

// New creates a Scheduler polling at the given interval.
func New(plants PlantSource, checker Checker, userID string, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		plants:   plants,
		checker:  checker,
		log:      log,
		userID:   userID,
		interval: interval,
		now:      time.Now,
	}
}

// WithClock overrides the wall clock.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run performs the initial batch check and then loops until ctx is
// canceled.
func (s *Scheduler) Run(ctx context.Context) {
	s.lastDay = domain.Midnight(s.now())
	s.runBatch(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick checks for a calendar-day rollover and, if one happened, resets
// the session and re-runs the batch.
func (s *Scheduler) tick(ctx context.Context) {
	today := domain.Midnight(s.now())
	if !today.After(s.lastDay) {
		return
	}
	s.lastDay = today
	s.log.Info("calendar day changed, starting new check session")
	s.checker.ResetSessionCheck()
	s.runBatch(ctx)
}

// runBatch loads all plants and runs the one-shot batch check.
// Plants are checked sequentially; there is no fan-out.
func (s *Scheduler) runBatch(ctx context.Context) {
	plants, err := s.plants.ListPlants(ctx, s.userID)
	if err != nil {
		s.log.Error("list plants failed", zap.Error(err))
		return
	}
	s.checker.CheckAllOnce(ctx, s.userID, plants)
}
