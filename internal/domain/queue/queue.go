// Package queue buffers approved events while the assistant is busy.
package queue

import (
	"sync"
	"time"

	"github.com/streamcue/relay-service/internal/domain/event"
)

const (
	TierInteractive = 1
	TierDefault     = 2
)

// QueuedEvent wraps an event with its enqueue instant and priority tier.
type QueuedEvent struct {
	Event      event.Eventer
	EnqueuedAt time.Time
	Tier       int
}

type Stats struct {
	TotalEvents           int                `json:"total_events"`
	CountByType           map[event.Kind]int `json:"count_by_type"`
	AverageWaitTimeMillis float64            `json:"average_wait_time_ms"`
}

type Option func(*Queue)

// WithTiers overrides the tier of specific kinds. Unlisted kinds use TierDefault.
func WithTiers(tiers map[event.Kind]int) Option {
	return func(q *Queue) {
		for k, t := range tiers {
			q.tiers[k] = t
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// Queue is ordered by tier, lower first, and FIFO by enqueue time within a
// tier. One mutex guards the whole structure.
type Queue struct {
	mu      sync.Mutex
	entries []QueuedEvent
	tiers   map[event.Kind]int
	now     func() time.Time
}

func New(opts ...Option) *Queue {
	q := &Queue{
		tiers: map[event.Kind]int{event.KindChatMessage: TierInteractive},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// TierOf returns the tier assigned to kind.
func (q *Queue) TierOf(kind event.Kind) int {
	if t, ok := q.tiers[kind]; ok {
		return t
	}
	return TierDefault
}

// Enqueue inserts ev before the first entry with a greater tier, or with an
// equal tier and a later enqueue time.
func (q *Queue) Enqueue(ev event.Eventer) QueuedEvent {
	qe := QueuedEvent{Event: ev, EnqueuedAt: q.now(), Tier: q.TierOf(ev.GetKind())}

	q.mu.Lock()
	defer q.mu.Unlock()

	pos := len(q.entries)
	for i, cur := range q.entries {
		if cur.Tier > qe.Tier || (cur.Tier == qe.Tier && cur.EnqueuedAt.After(qe.EnqueuedAt)) {
			pos = i
			break
		}
	}
	q.entries = append(q.entries, QueuedEvent{})
	copy(q.entries[pos+1:], q.entries[pos:])
	q.entries[pos] = qe
	return qe
}

// Dequeue removes and returns the head.
func (q *Queue) Dequeue() (QueuedEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return QueuedEvent{}, false
	}
	head := q.entries[0]
	q.entries[0] = QueuedEvent{}
	q.entries = q.entries[1:]
	return head, true
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
}

// RemoveKind drops every queued event of kind and returns how many were removed.
func (q *Queue) RemoveKind(kind event.Kind) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.Event.GetKind() != kind {
			kept = append(kept, e)
		}
	}
	removed := len(q.entries) - len(kept)
	clear(q.entries[len(kept):])
	q.entries = kept
	return removed
}

// Snapshot returns the queued entries in dequeue order.
func (q *Queue) Snapshot() []QueuedEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueuedEvent, len(q.entries))
	copy(out, q.entries)
	return out
}

// Stats is computed from the current contents.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := Stats{TotalEvents: len(q.entries), CountByType: make(map[event.Kind]int)}
	if len(q.entries) == 0 {
		return st
	}

	now := q.now()
	var wait time.Duration
	for _, e := range q.entries {
		st.CountByType[e.Event.GetKind()]++
		wait += now.Sub(e.EnqueuedAt)
	}
	st.AverageWaitTimeMillis = float64(wait.Milliseconds()) / float64(len(q.entries))
	return st
}
