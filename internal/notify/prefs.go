package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shereeliao123/buddy-plant-watering-app/internal/store"
)

// PreferenceStore is the slice of the persistent store the adapter needs.
type PreferenceStore interface {
	GetPreference(ctx context.Context, userID string) (bool, error)
	UpsertPreference(ctx context.Context, userID string, enabled bool) error
}

// Registrar registers a push subscription for a user. Enabling
// notifications runs registration before the preference is persisted.
type Registrar interface {
	Register(ctx context.Context, userID string) error
}

// Preferences adapts the persistent store into the notification
// preference contract: reads fail closed and provision a default record,
// writes upsert.
type Preferences struct {
	store     PreferenceStore
	registrar Registrar // nil when the push transport is unavailable
	log       *zap.Logger
}

// NewPreferences creates the adapter. registrar may be nil.
func NewPreferences(s PreferenceStore, registrar Registrar, log *zap.Logger) *Preferences {
	return &Preferences{store: s, registrar: registrar, log: log}
}

// Lookup returns the user's opt-in. An absent record is provisioned with
// the default (disabled) — get-or-provision is the documented contract,
// not a hidden side effect. An empty user is disabled, not an error.
// The error return distinguishes a transient store failure from a plain
// "disabled" so the dispatcher can allow a retry later in the session.
func (p *Preferences) Lookup(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	enabled, err := p.store.GetPreference(ctx, userID)
	if err == nil {
		return enabled, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("fetch preference: %w", err)
	}

	// First access for this user: provision the default record.
	if err := p.store.UpsertPreference(ctx, userID, false); err != nil {
		return false, fmt.Errorf("provision preference: %w", err)
	}
	p.log.Info("provisioned notification preference", zap.String("user", userID))
	return false, nil
}

// Get is Lookup with the fail-closed contract: any failure reads as
// disabled and is logged, never surfaced.
func (p *Preferences) Get(ctx context.Context, userID string) bool {
	enabled, err := p.Lookup(ctx, userID)
	if err != nil {
		p.log.Error("preference lookup failed, assuming disabled", zap.Error(err))
		return false
	}
	return enabled
}

// Set persists the opt-in and returns the resulting state. Transitioning
// to enabled first registers the push subscription; if registration
// fails the write is aborted and the currently persisted value is
// returned alongside the error, so a failed enable never claims success.
func (p *Preferences) Set(ctx context.Context, userID string, enabled bool) (bool, error) {
	if userID == "" {
		return false, nil
	}

	if enabled && p.registrar != nil {
		if err := p.registrar.Register(ctx, userID); err != nil {
			p.log.Error("push registration failed", zap.String("user", userID), zap.Error(err))
			return p.Get(ctx, userID), fmt.Errorf("register push subscription: %w", err)
		}
	}

	if err := p.store.UpsertPreference(ctx, userID, enabled); err != nil {
		p.log.Error("save preference failed", zap.String("user", userID), zap.Error(err))
		return p.Get(ctx, userID), fmt.Errorf("save preference: %w", err)
	}
	return enabled, nil
}
