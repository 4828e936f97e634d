// Package notify decides when a "needs watering" notification should
// fire for a plant: at most once per plant per calendar day, at most one
// full check per plant per process session, degrading silently wherever
// the environment or the stores fall short.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shereeliao123/buddy-plant-watering-app/internal/domain"
)

const notificationTitle = "Time to Water Your Plant!"

// HistoryLedger answers and records "notified today" per plant.
type HistoryLedger interface {
	HasNotifiedToday(plantID string) bool
	RecordNotified(plantID string)
}

// PushRelay delivers a message through the push transport.
type PushRelay interface {
	Deliver(ctx context.Context, userID, message string) error
}

// Dispatcher orchestrates the watering-due notification checks. It owns
// the session-scoped state (dedup set, one-shot batch flag) and is
// constructed once per application session — there is no ambient state.
type Dispatcher struct {
	prefs   *Preferences
	ledger  HistoryLedger
	surface Surface
	relay   PushRelay
	log     *zap.Logger
	now     func() time.Time

	// pushAvailable is the host-supplied capability flag; sandboxed
	// environments run with it off and skip the relay step entirely.
	pushAvailable bool

	session   *SessionTracker
	batchMu   sync.Mutex
	batchDone bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher. relay may be nil; pushAvailable
// gates the relay step regardless.
func NewDispatcher(prefs *Preferences, ledger HistoryLedger, surface Surface, relay PushRelay, pushAvailable bool, log *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		prefs:         prefs,
		ledger:        ledger,
		surface:       surface,
		relay:         relay,
		log:           log,
		now:           time.Now,
		pushAvailable: pushAvailable,
		session:       NewSessionTracker(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CheckAndNotify runs the full check for one plant. Every early exit is
// a valid terminal; no error ever escapes to the caller.
func (d *Dispatcher) CheckAndNotify(ctx context.Context, userID string, p domain.Plant) {
	// Session filter: mark at entry, before any suspension point, so a
	// second near-simultaneous trigger for the same plant short-circuits
	// here instead of racing past the history filter.
	if !d.session.TryMark(p.ID) {
		return
	}

	if !d.surface.Supported() {
		return
	}

	enabled, err := d.prefs.Lookup(ctx, userID)
	if err != nil {
		// Transient store failure: fail closed for now, but let a later
		// trigger within this session retry.
		d.session.Unmark(p.ID)
		d.log.Error("preference check failed", zap.String("plant", p.ID), zap.Error(err))
		return
	}
	if !enabled {
		d.log.Debug("notifications disabled by user", zap.String("plant", p.ID))
		return
	}

	daysUntil := domain.DaysUntilWatering(p, d.now())
	if daysUntil > 0 {
		d.log.Debug("not due yet",
			zap.String("plant", p.ID),
			zap.String("name", p.Name),
			zap.Int("daysUntilWatering", daysUntil),
		)
		return
	}

	if d.ledger.HasNotifiedToday(p.ID) {
		d.log.Debug("already notified today", zap.String("plant", p.ID))
		return
	}

	body := fmt.Sprintf("%s needs watering today! 🌿💧", p.Name)
	if err := d.surface.Show(ctx, notificationTitle, body, "plant-"+p.ID); err != nil {
		d.session.Unmark(p.ID)
		d.log.Error("show notification failed", zap.String("plant", p.ID), zap.Error(err))
		return
	}
	d.ledger.RecordNotified(p.ID)
	d.log.Info("watering notification sent",
		zap.String("plant", p.ID),
		zap.String("name", p.Name),
		zap.Int("daysUntilWatering", daysUntil),
	)

	// Push relay is best effort: a failure here never rolls back the
	// local notification.
	if d.pushAvailable && d.relay != nil {
		if err := d.relay.Deliver(ctx, userID, body); err != nil {
			d.log.Warn("push relay failed", zap.String("plant", p.ID), zap.Error(err))
		}
	}
}

// CheckAllOnce runs the per-plant check for every plant, sequentially,
// exactly once per session. Later calls are no-ops until
// ResetSessionCheck.
func (d *Dispatcher) CheckAllOnce(ctx context.Context, userID string, plants []domain.Plant) {
	d.batchMu.Lock()
	if d.batchDone {
		d.batchMu.Unlock()
		return
	}
	d.batchDone = true
	d.batchMu.Unlock()

	for _, p := range plants {
		d.CheckAndNotify(ctx, userID, p)
	}
}

// ResetSessionCheck clears the one-shot batch flag and the session dedup
// set, starting a fresh session of checks.
func (d *Dispatcher) ResetSessionCheck() {
	d.batchMu.Lock()
	d.batchDone = false
	d.batchMu.Unlock()
	d.session.Reset()
}
