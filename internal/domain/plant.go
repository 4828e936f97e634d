package domain

import (
	"errors"
	"fmt"
	"time"
)

// Plant locations supported by the tracker.
const (
	LocationIndoor  = "Indoor"
	LocationOutdoor = "Outdoor"
)

var (
	ErrEmptyName       = errors.New("plant name is required")
	ErrBadFrequency    = errors.New("watering frequency must be at least 1 day")
	ErrUnknownLocation = errors.New("location must be Indoor or Outdoor")
)

// Plant is a tracked plant with its watering schedule and history.
// WateringHistory is ordered most-recent-first: index 0 is the last
// watering. The order is semantically meaningful, not cosmetic.
type Plant struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	Species               string      `json:"species"`
	Location              string      `json:"location"`
	WateringFrequencyDays int         `json:"wateringFrequencyDays"`
	LastWateredAt         *time.Time  `json:"lastWateredAt"`
	WateringHistory       []time.Time `json:"wateringHistory"`
	CreatedAt             time.Time   `json:"createdAt"`
}

// Validate checks the fields a caller may set.
func (p *Plant) Validate() error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if p.WateringFrequencyDays < 1 {
		return fmt.Errorf("%w: got %d", ErrBadFrequency, p.WateringFrequencyDays)
	}
	if p.Location != LocationIndoor && p.Location != LocationOutdoor {
		return fmt.Errorf("%w: got %q", ErrUnknownLocation, p.Location)
	}
	return nil
}

// PushSubscription is a stored Web Push subscription for a user.
type PushSubscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
// Day equality is by local calendar date, not elapsed 24h.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysUntilWatering computes how many days remain until the plant is due
// for water, relative to now. A plant that has never been watered is due
// immediately. The result may be negative, meaning overdue. Both instants
// are truncated to midnight in now's location first: fractional hours
// never change the result, and a stored UTC timestamp counts the same
// days as a local one.
func DaysUntilWatering(p Plant, now time.Time) int {
	if len(p.WateringHistory) == 0 {
		return 0
	}
	lastWatered := Midnight(p.WateringHistory[0].In(now.Location()))
	today := Midnight(now)
	daysSinceWatered := int(today.Sub(lastWatered) / (24 * time.Hour))
	return p.WateringFrequencyDays - daysSinceWatered
}
