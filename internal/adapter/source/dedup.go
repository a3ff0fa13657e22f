package source

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// hardCapFactor sizes the LRU above the sweep target so that eviction is
// driven by Sweep and not by insertion.
const hardCapFactor = 10

// Verdict is the outcome of checking one identity key.
type Verdict int

const (
	Fresh     Verdict = iota
	Debounced         // seen within the debounce window
	Repeated          // seen within the history window
)

func (v Verdict) String() string {
	switch v {
	case Debounced:
		return "debounced"
	case Repeated:
		return "repeated"
	}
	return "fresh"
}

type DedupOption func(*Deduplicator)

func WithWindows(debounce, history time.Duration) DedupOption {
	return func(d *Deduplicator) {
		d.debounce = debounce
		d.history = history
	}
}

// WithRetention sets the sweep horizon and the record count kept after a sweep.
func WithRetention(retention time.Duration, maxEntries int) DedupOption {
	return func(d *Deduplicator) {
		d.retention = retention
		d.maxEntries = maxEntries
	}
}

func WithSweepInterval(interval time.Duration) DedupOption {
	return func(d *Deduplicator) { d.sweepInterval = interval }
}

func WithDedupClock(now func() time.Time) DedupOption {
	return func(d *Deduplicator) { d.now = now }
}

// Deduplicator holds (identity-key, first-seen) records of one connector.
// A duplicate does not refresh its record, so a burst of repeats cannot keep
// an event suppressed forever.
type Deduplicator struct {
	mu      sync.Mutex
	records *lru.Cache[string, time.Time]

	debounce      time.Duration
	history       time.Duration
	retention     time.Duration
	maxEntries    int
	sweepInterval time.Duration
	now           func() time.Time
}

func NewDeduplicator(opts ...DedupOption) *Deduplicator {
	d := &Deduplicator{
		debounce:      2 * time.Second,
		history:       30 * time.Second,
		retention:     5 * time.Minute,
		maxEntries:    100,
		sweepInterval: time.Minute,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxEntries <= 0 {
		d.maxEntries = 100
	}
	// only errors on a non-positive size
	d.records, _ = lru.New[string, time.Time](d.maxEntries * hardCapFactor)
	return d
}

// Check records key unless it is a duplicate.
func (d *Deduplicator) Check(key string) Verdict {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if seen, ok := d.records.Peek(key); ok {
		age := now.Sub(seen)
		switch {
		case age <= d.debounce:
			return Debounced
		case age <= d.history:
			return Repeated
		}
	}
	d.records.Add(key, now)
	return Fresh
}

// Seen reports whether key is a duplicate, recording it otherwise.
func (d *Deduplicator) Seen(key string) bool { return d.Check(key) != Fresh }

func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.records.Len()
}

// Sweep drops records older than the retention window, then the oldest
// remainder above the count cap. It returns how many records were removed.
func (d *Deduplicator) Sweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	removed := 0
	for _, key := range d.records.Keys() { // oldest first
		seen, ok := d.records.Peek(key)
		if ok && now.Sub(seen) > d.retention {
			d.records.Remove(key)
			removed++
		}
	}
	for d.records.Len() > d.maxEntries {
		d.records.RemoveOldest()
		removed++
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (d *Deduplicator) Run(ctx context.Context) {
	ticker := time.NewTicker(d.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep()
		}
	}
}
