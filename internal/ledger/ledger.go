// Package ledger tracks when each plant was last notified about, to
// guarantee at most one notification per plant per calendar day. The
// whole mapping is kept as one JSON blob in durable local storage and
// rewritten in full on every mutation.
package ledger

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shereeliao123/buddy-plant-watering-app/internal/domain"
)

// DefaultKey is the blob key the ledger persists under.
const DefaultKey = "plantNotificationHistory"

// Blob abstracts durable local key/value storage.
type Blob interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
}

// HistoryRecord is the per-plant notification history. Count is >= 1
// once the record exists; absence of a record means "never notified".
type HistoryRecord struct {
	LastNotified time.Time `json:"lastNotified"`
	Count        int       `json:"count"`
}

// Ledger answers "already notified today?" per plant.
type Ledger struct {
	blob Blob
	key  string
	log  *zap.Logger
	now  func() time.Time

	mu sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithKey overrides the blob key.
func WithKey(key string) Option {
	return func(l *Ledger) { l.key = key }
}

// New creates a ledger over the given blob storage.
func New(blob Blob, log *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		blob: blob,
		key:  DefaultKey,
		log:  log,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// HasNotifiedToday reports whether a notification for the plant was
// already recorded on the current calendar day.
func (l *Ledger) HasNotifiedToday(plantID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.load()[plantID]
	if !ok {
		return false
	}
	return domain.SameDay(rec.LastNotified, l.now())
}

// RecordNotified records a notification for the plant: same-day repeats
// increment the count, a day change resets it to 1.
func (l *Ledger) RecordNotified(plantID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	history := l.load()
	rec, ok := history[plantID]
	if ok && domain.SameDay(rec.LastNotified, now) {
		rec.Count++
	} else {
		rec.Count = 1
	}
	rec.LastNotified = now
	history[plantID] = rec
	l.save(history)
}

// Record returns the stored record for a plant, if any.
func (l *Ledger) Record(plantID string) (HistoryRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.load()[plantID]
	return rec, ok
}

// load reads the full history map. A missing, unreadable or corrupt blob
// degrades to an empty map; the ledger never fails the caller.
func (l *Ledger) load() map[string]HistoryRecord {
	data, err := l.blob.Read(l.key)
	if err != nil || len(data) == 0 {
		return map[string]HistoryRecord{}
	}
	var history map[string]HistoryRecord
	if err := json.Unmarshal(data, &history); err != nil {
		l.log.Warn("notification history corrupt, starting empty", zap.Error(err))
		return map[string]HistoryRecord{}
	}
	if history == nil {
		history = map[string]HistoryRecord{}
	}
	return history
}

// save rewrites the full history map. Write failures are logged, not
// surfaced: a lost history entry means at worst one extra notification.
func (l *Ledger) save(history map[string]HistoryRecord) {
	data, err := json.Marshal(history)
	if err != nil {
		l.log.Error("encode notification history", zap.Error(err))
		return
	}
	if err := l.blob.Write(l.key, data); err != nil {
		l.log.Error("persist notification history", zap.Error(err))
	}
}
