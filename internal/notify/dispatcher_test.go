package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shereeliao123/buddy-plant-watering-app/internal/domain"
	"github.com/shereeliao123/buddy-plant-watering-app/internal/store"
)

// --- fakes ---

type fakePrefStore struct {
	enabled map[string]bool
	getErr  error
	gets    int
}

func (f *fakePrefStore) GetPreference(_ context.Context, userID string) (bool, error) {
	f.gets++
	if f.getErr != nil {
		return false, f.getErr
	}
	enabled, ok := f.enabled[userID]
	if !ok {
		return false, store.ErrNotFound
	}
	return enabled, nil
}

func (f *fakePrefStore) UpsertPreference(_ context.Context, userID string, enabled bool) error {
	if f.enabled == nil {
		f.enabled = map[string]bool{}
	}
	f.enabled[userID] = enabled
	return nil
}

type fakeLedger struct {
	notified map[string]time.Time
	now      func() time.Time
	records  int
}

func (f *fakeLedger) HasNotifiedToday(plantID string) bool {
	at, ok := f.notified[plantID]
	return ok && domain.SameDay(at, f.now())
}

func (f *fakeLedger) RecordNotified(plantID string) {
	if f.notified == nil {
		f.notified = map[string]time.Time{}
	}
	f.notified[plantID] = f.now()
	f.records++
}

type shownNote struct{ title, body, tag string }

type fakeSurface struct {
	supported bool
	showErr   error
	shown     []shownNote
}

func (f *fakeSurface) Supported() bool { return f.supported }

func (f *fakeSurface) RequestPermission(context.Context) bool { return f.supported }

func (f *fakeSurface) Show(_ context.Context, title, body, tag string) error {
	if f.showErr != nil {
		return f.showErr
	}
	f.shown = append(f.shown, shownNote{title, body, tag})
	return nil
}

type fakeRelay struct {
	delivered []string
	err       error
}

func (f *fakeRelay) Deliver(_ context.Context, _, message string) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, message)
	return nil
}

func (f *fakeRelay) Register(context.Context, string) error { return f.err }

// --- helpers ---

type fixture struct {
	prefs   *fakePrefStore
	ledger  *fakeLedger
	surface *fakeSurface
	relay   *fakeRelay
	disp    *Dispatcher
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		prefs:   &fakePrefStore{enabled: map[string]bool{"u1": true}},
		surface: &fakeSurface{supported: true},
		relay:   &fakeRelay{},
		now:     time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.ledger = &fakeLedger{now: clock}
	prefs := NewPreferences(f.prefs, nil, zap.NewNop())
	f.disp = NewDispatcher(prefs, f.ledger, f.surface, f.relay, true, zap.NewNop(), WithClock(clock))
	return f
}

func duePlant(id string) domain.Plant {
	// Frequency 7, watered 8 days before the fixture clock: overdue.
	return domain.Plant{
		ID:                    id,
		Name:                  "Monstera",
		WateringFrequencyDays: 7,
		WateringHistory:       []time.Time{time.Date(2025, time.March, 24, 12, 0, 0, 0, time.UTC)},
	}
}

// --- tests ---

func TestDuePlantEmitsWithTagAndRecordsHistory(t *testing.T) {
	f := newFixture(t)
	f.disp.CheckAndNotify(context.Background(), "u1", duePlant("p1"))

	require.Len(t, f.surface.shown, 1)
	assert.Equal(t, "Time to Water Your Plant!", f.surface.shown[0].title)
	assert.Contains(t, f.surface.shown[0].body, "Monstera")
	assert.Contains(t, f.surface.shown[0].tag, "p1")
	assert.True(t, f.ledger.HasNotifiedToday("p1"))
	require.Len(t, f.relay.delivered, 1)
	assert.Equal(t, f.surface.shown[0].body, f.relay.delivered[0])
}

func TestNotDueYetNoEmit(t *testing.T) {
	f := newFixture(t)
	// Frequency 10, watered 3 days ago: due in 7.
	p := domain.Plant{
		ID:                    "p1",
		Name:                  "Fiddle Leaf Fig",
		WateringFrequencyDays: 10,
		WateringHistory:       []time.Time{f.now.AddDate(0, 0, -3)},
	}
	f.disp.CheckAndNotify(context.Background(), "u1", p)
	assert.Empty(t, f.surface.shown)
	assert.Empty(t, f.relay.delivered)
}

func TestNeverWateredIsDueNow(t *testing.T) {
	f := newFixture(t)
	p := domain.Plant{ID: "p1", Name: "New Fern", WateringFrequencyDays: 30}
	f.disp.CheckAndNotify(context.Background(), "u1", p)
	require.Len(t, f.surface.shown, 1)
}

func TestAtMostOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.disp.CheckAndNotify(ctx, "u1", duePlant("p1"))
	// Second trigger the same day: short-circuits at the session filter.
	f.disp.CheckAndNotify(ctx, "u1", duePlant("p1"))
	require.Len(t, f.surface.shown, 1)

	// Even after a session reset, the history filter holds the line.
	f.disp.ResetSessionCheck()
	f.disp.CheckAndNotify(ctx, "u1", duePlant("p1"))
	require.Len(t, f.surface.shown, 1)
	assert.Equal(t, 1, f.ledger.records)
}

func TestDisabledPreferenceSuppressesEmit(t *testing.T) {
	f := newFixture(t)
	f.prefs.enabled["u1"] = false
	f.disp.CheckAndNotify(context.Background(), "u1", duePlant("p1"))
	assert.Empty(t, f.surface.shown)
}

func TestUnsupportedEnvironmentTerminatesSilently(t *testing.T) {
	f := newFixture(t)
	f.surface.supported = false
	f.disp.CheckAndNotify(context.Background(), "u1", duePlant("p1"))
	assert.Empty(t, f.surface.shown)
	// Support check runs before the preference fetch.
	assert.Zero(t, f.prefs.gets)
}

func TestTransientPreferenceErrorAllowsRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.prefs.getErr = errors.New("store down")
	f.disp.CheckAndNotify(ctx, "u1", duePlant("p1"))
	assert.Empty(t, f.surface.shown)

	// The plant was unmarked, so a later trigger in the same session
	// retries and succeeds.
	f.prefs.getErr = nil
	f.disp.CheckAndNotify(ctx, "u1", duePlant("p1"))
	require.Len(t, f.surface.shown, 1)
}

func TestPushRelayFailureDoesNotRollBackEmit(t *testing.T) {
	f := newFixture(t)
	f.relay.err = errors.New("push endpoint gone")
	f.disp.CheckAndNotify(context.Background(), "u1", duePlant("p1"))
	require.Len(t, f.surface.shown, 1)
	assert.True(t, f.ledger.HasNotifiedToday("p1"))
}

func TestPushSkippedWhenTransportUnavailable(t *testing.T) {
	f := newFixture(t)
	prefs := NewPreferences(f.prefs, nil, zap.NewNop())
	clock := func() time.Time { return f.now }
	disp := NewDispatcher(prefs, f.ledger, f.surface, f.relay, false, zap.NewNop(), WithClock(clock))

	disp.CheckAndNotify(context.Background(), "u1", duePlant("p1"))
	require.Len(t, f.surface.shown, 1)
	assert.Empty(t, f.relay.delivered)
}

func TestCheckAllOnceIsSessionSingleton(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plants := []domain.Plant{duePlant("p1"), duePlant("p2"), duePlant("p3")}

	f.disp.CheckAllOnce(ctx, "u1", plants)
	f.disp.CheckAllOnce(ctx, "u1", plants)
	// 3 dispatcher runs total, not 6: one emission per plant.
	assert.Len(t, f.surface.shown, 3)
	assert.Equal(t, 3, f.prefs.gets)
}

func TestResetSessionCheckReenablesBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plants := []domain.Plant{duePlant("p1")}

	f.disp.CheckAllOnce(ctx, "u1", plants)
	f.disp.ResetSessionCheck()
	// Next calendar day: history no longer blocks.
	f.now = f.now.AddDate(0, 0, 1)
	f.disp.CheckAllOnce(ctx, "u1", plants)
	assert.Len(t, f.surface.shown, 2)
}

func TestShowFailureLeavesHistoryUntouched(t *testing.T) {
	f := newFixture(t)
	f.surface.showErr = errors.New("send failed")
	f.disp.CheckAndNotify(context.Background(), "u1", duePlant("p1"))
	assert.False(t, f.ledger.HasNotifiedToday("p1"))

	// Transient surface failure: retry within the session is allowed.
	f.surface.showErr = nil
	f.disp.CheckAndNotify(context.Background(), "u1", duePlant("p1"))
	assert.True(t, f.ledger.HasNotifiedToday("p1"))
}
