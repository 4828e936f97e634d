package notify

import "sync"

// SessionTracker is the in-memory set of plant IDs already checked in
// this process session. Membership is purely a short-circuit; the
// history ledger remains the source of truth for "notified today".
type SessionTracker struct {
	mu      sync.Mutex
	checked map[string]struct{}
}

// NewSessionTracker creates an empty tracker.
func NewSessionTracker() *SessionTracker {
	return &SessionTracker{checked: make(map[string]struct{})}
}

// AlreadyChecked reports whether the plant was checked this session.
func (t *SessionTracker) AlreadyChecked(plantID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.checked[plantID]
	return ok
}

// MarkChecked adds the plant to the session set.
func (t *SessionTracker) MarkChecked(plantID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checked[plantID] = struct{}{}
}

// TryMark atomically marks the plant and reports whether this caller won.
// Marking happens before any I/O, so two near-simultaneous triggers for
// the same plant cannot both reach the history filter.
func (t *SessionTracker) TryMark(plantID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.checked[plantID]; ok {
		return false
	}
	t.checked[plantID] = struct{}{}
	return true
}

// Unmark removes a plant so a later trigger may retry, used when a check
// aborts on a transient store failure.
func (t *SessionTracker) Unmark(plantID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.checked, plantID)
}

// Reset clears the set. The only sanctioned way to re-run checks within
// a session.
func (t *SessionTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checked = make(map[string]struct{})
}
