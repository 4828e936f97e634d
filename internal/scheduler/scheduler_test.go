package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/shereeliao123/buddy-plant-watering-app/internal/domain"
)

type fakeSource struct{ plants []domain.Plant }

func (f *fakeSource) ListPlants(context.Context, string) ([]domain.Plant, error) {
	return f.plants, nil
}

type fakeChecker struct {
	batches int
	resets  int
}

func (f *fakeChecker) CheckAllOnce(context.Context, string, []domain.Plant) { f.batches++ }

func (f *fakeChecker) ResetSessionCheck() { f.resets++ }

func TestTickNoopWithinSameDay(t *testing.T) {
	now := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	checker := &fakeChecker{}
	s := New(&fakeSource{}, checker, "u1", time.Minute, zap.NewNop()).
		WithClock(func() time.Time { return now })

	s.lastDay = domain.Midnight(now)
	s.tick(context.Background())
	now = now.Add(5 * time.Hour)
	s.tick(context.Background())

	assert.Zero(t, checker.resets)
	assert.Zero(t, checker.batches)
}

func TestTickResetsAndRechecksOnDayRollover(t *testing.T) {
	now := time.Date(2025, time.April, 1, 23, 59, 0, 0, time.UTC)
	checker := &fakeChecker{}
	s := New(&fakeSource{}, checker, "u1", time.Minute, zap.NewNop()).
		WithClock(func() time.Time { return now })

	s.lastDay = domain.Midnight(now)
	now = now.Add(2 * time.Minute) // past midnight
	s.tick(context.Background())

	assert.Equal(t, 1, checker.resets)
	assert.Equal(t, 1, checker.batches)

	// Only once per rollover.
	now = now.Add(time.Hour)
	s.tick(context.Background())
	assert.Equal(t, 1, checker.resets)
}
