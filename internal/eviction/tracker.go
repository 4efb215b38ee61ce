package eviction

import "time"

// Usage holds access statistics for one cached entry.
type Usage struct {
	SizeBytes      int64
	Priority       int
	Exempt         bool
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    uint64
	// Seq is the insertion sequence used for deterministic tie-breaks.
	Seq uint64
}

// Idle returns how long the entry has gone without an access.
func (u Usage) Idle(now time.Time) time.Duration {
	d := now.Sub(u.LastAccessedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Tracker maps keys to usage statistics.
type Tracker struct {
	usage map[string]*Usage
	seq   uint64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		usage: make(map[string]*Usage),
	}
}

// RecordCreation initializes tracking state for key and assigns it the next
// insertion sequence. Re-recording a key replaces its state.
func (t *Tracker) RecordCreation(key string, sizeBytes int64, priority int, exempt bool, accesses uint64, now time.Time) Usage {
	t.seq++
	u := &Usage{
		SizeBytes:      sizeBytes,
		Priority:       priority,
		Exempt:         exempt,
		CreatedAt:      now,
		LastAccessedAt: now,
		AccessCount:    accesses,
		Seq:            t.seq,
	}
	t.usage[key] = u
	return *u
}

// RecordAccess bumps the access count and last access time of key.
// It reports false if key is not tracked.
func (t *Tracker) RecordAccess(key string, now time.Time) bool {
	u, ok := t.usage[key]
	if !ok {
		return false
	}
	u.AccessCount++
	if now.After(u.LastAccessedAt) {
		u.LastAccessedAt = now
	}
	return true
}

// Touch moves the last access time of key forward without counting an access.
func (t *Tracker) Touch(key string, now time.Time) bool {
	u, ok := t.usage[key]
	if !ok {
		return false
	}
	if now.After(u.LastAccessedAt) {
		u.LastAccessedAt = now
	}
	return true
}

// Get returns a copy of key's usage.
func (t *Tracker) Get(key string) (Usage, bool) {
	u, ok := t.usage[key]
	if !ok {
		return Usage{}, false
	}
	return *u, true
}

// Remove stops tracking key.
func (t *Tracker) Remove(key string) {
	delete(t.usage, key)
}

// Len returns the number of tracked keys.
func (t *Tracker) Len() int {
	return len(t.usage)
}
