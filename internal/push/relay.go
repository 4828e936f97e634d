// Package push relays watering reminders through Web Push (VAPID).
// It is a best-effort secondary channel: delivery failures are logged
// by callers and never affect local notification success.
package push

import (
	"context"
	"errors"
	"fmt"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shereeliao123/buddy-plant-watering-app/internal/domain"
)

// ErrNotConfigured is returned when the relay has no VAPID key material.
var ErrNotConfigured = errors.New("push relay not configured")

const pushTTLSeconds = 60

// SubscriptionSource looks up a user's stored push subscription.
// store.Repo satisfies this.
type SubscriptionSource interface {
	GetSubscription(ctx context.Context, userID string) (*domain.PushSubscription, error)
}

// Relay sends messages to stored Web Push subscriptions.
type Relay struct {
	subs    SubscriptionSource
	log     *zap.Logger
	limiter *rate.Limiter

	vapidPublic  string
	vapidPrivate string
	subject      string
}

// New creates a relay. Sends are throttled to one per second with a
// small burst so a large plant collection cannot flood the push service.
func New(subs SubscriptionSource, log *zap.Logger, vapidPublic, vapidPrivate, subject string) *Relay {
	return &Relay{
		subs:         subs,
		log:          log,
		limiter:      rate.NewLimiter(rate.Limit(1), 5),
		vapidPublic:  vapidPublic,
		vapidPrivate: vapidPrivate,
		subject:      subject,
	}
}

// Configured reports whether VAPID key material is present.
func (r *Relay) Configured() bool {
	return r.vapidPublic != "" && r.vapidPrivate != ""
}

// Deliver sends message to the user's active subscription. A user with
// no stored subscription is a silent no-op, not an error.
func (r *Relay) Deliver(ctx context.Context, userID, message string) error {
	if !r.Configured() {
		return ErrNotConfigured
	}

	sub, err := r.subs.GetSubscription(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup subscription: %w", err)
	}
	if sub == nil {
		r.log.Debug("no push subscription", zap.String("user", userID))
		return nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := webpush.SendNotificationWithContext(ctx, []byte(message), &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      r.subject,
		VAPIDPublicKey:  r.vapidPublic,
		VAPIDPrivateKey: r.vapidPrivate,
		TTL:             pushTTLSeconds,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
	r.log.Debug("push delivered", zap.String("user", userID), zap.Int("status", resp.StatusCode))
	return nil
}

// Register confirms a fresh subscription by sending a greeting through
// it. Enabling notifications calls this before the preference is
// persisted, so a broken subscription never claims success.
func (r *Relay) Register(ctx context.Context, userID string) error {
	return r.Deliver(ctx, userID, "Subscription successful!")
}
