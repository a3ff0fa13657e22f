package queue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/streamcue/relay-service/internal/domain/event"
	"github.com/streamcue/relay-service/internal/domain/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *fakeClock                   { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }
func chat(nick string) event.Eventer {
	return event.NewChatMessageEvent(event.ChatMessage{Nickname: nick}, time.Now())
}
func media(track string) event.Eventer {
	return event.NewMediaPlayedEvent(event.MediaTrack{TrackName: track}, time.Now())
}

func drain(q *queue.Queue) []queue.QueuedEvent {
	var out []queue.QueuedEvent
	for {
		e, ok := q.Dequeue()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

func TestQueue_OrdersByTierThenFIFO(t *testing.T) {
	clock := newClock()
	q := queue.New(queue.WithClock(clock.Now))

	// tiers [2,1,2,1]
	m1, c1, m2, c2 := media("m1"), chat("c1"), media("m2"), chat("c2")
	for _, ev := range []event.Eventer{m1, c1, m2, c2} {
		q.Enqueue(ev)
		clock.Advance(time.Millisecond)
	}

	got := drain(q)
	require.Len(t, got, 4)
	assert.Equal(t, []int{1, 1, 2, 2}, []int{got[0].Tier, got[1].Tier, got[2].Tier, got[3].Tier})
	assert.Equal(t, []string{c1.GetID(), c2.GetID(), m1.GetID(), m2.GetID()},
		[]string{got[0].Event.GetID(), got[1].Event.GetID(), got[2].Event.GetID(), got[3].Event.GetID()})
}

func TestQueue_EqualTimestampsStayFIFO(t *testing.T) {
	clock := newClock()
	q := queue.New(queue.WithClock(clock.Now))

	var ids []string
	for i := range 5 {
		ev := chat(string(rune('a' + i)))
		ids = append(ids, ev.GetID())
		q.Enqueue(ev)
	}

	var got []string
	for _, e := range drain(q) {
		got = append(got, e.Event.GetID())
	}
	assert.Equal(t, ids, got)
}

func TestQueue_CustomTiers(t *testing.T) {
	q := queue.New(queue.WithTiers(map[event.Kind]int{event.KindMediaPlayed: 0}))
	assert.Equal(t, 0, q.TierOf(event.KindMediaPlayed))
	assert.Equal(t, queue.TierInteractive, q.TierOf(event.KindChatMessage))
	assert.Equal(t, queue.TierDefault, q.TierOf("other"))

	q.Enqueue(chat("c"))
	q.Enqueue(media("m"))
	head, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, event.KindMediaPlayed, head.Event.GetKind())
}

func TestQueue_EmptyOperations(t *testing.T) {
	q := queue.New()
	_, ok := q.Dequeue()
	assert.False(t, ok)
	assert.Zero(t, q.Size())

	st := q.Stats()
	assert.Zero(t, st.TotalEvents)
	assert.Zero(t, st.AverageWaitTimeMillis)
	assert.Empty(t, st.CountByType)
}

func TestQueue_Stats(t *testing.T) {
	clock := newClock()
	q := queue.New(queue.WithClock(clock.Now))

	q.Enqueue(chat("a"))
	clock.Advance(200 * time.Millisecond)
	q.Enqueue(chat("b"))
	q.Enqueue(media("m"))
	clock.Advance(100 * time.Millisecond)

	st := q.Stats()
	assert.Equal(t, 3, st.TotalEvents)
	assert.Equal(t, map[event.Kind]int{event.KindChatMessage: 2, event.KindMediaPlayed: 1}, st.CountByType)
	// waits: 300, 100, 100
	assert.InDelta(t, 166.67, st.AverageWaitTimeMillis, 0.01)
}

func TestQueue_ClearAndRemoveKind(t *testing.T) {
	q := queue.New()
	q.Enqueue(chat("a"))
	q.Enqueue(media("m"))
	q.Enqueue(chat("b"))

	assert.Equal(t, 2, q.RemoveKind(event.KindChatMessage))
	assert.Equal(t, 1, q.Size())
	snap := q.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, event.KindMediaPlayed, snap[0].Event.GetKind())

	q.Clear()
	assert.Zero(t, q.Size())
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	q := queue.New()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				q.Enqueue(chat("x"))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, q.Size())
}
