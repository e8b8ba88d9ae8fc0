package arbitrage

import (
	"sync"
	"time"
)

// Dedup suppresses repeat announcements for the same pair within a TTL
// window. It is safe for concurrent use.
type Dedup struct {
	seen map[string]time.Time // pairID -> last announced
	ttl  time.Duration
	mu   sync.Mutex
}

// NewDedup creates a Dedup that treats a pair as a duplicate if it was
// announced within ttl.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// IsDuplicate reports whether id was seen within the TTL before now. If not,
// it records id at now and returns false.
func (d *Dedup) IsDuplicate(id string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if lastSeen, ok := d.seen[id]; ok && now.Sub(lastSeen) < d.ttl {
		return true
	}
	d.seen[id] = now
	return false
}

// Forget drops id so its next opportunity is announced immediately.
func (d *Dedup) Forget(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

// Cleanup removes entries older than the TTL.
func (d *Dedup) Cleanup(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, id)
		}
	}
}
