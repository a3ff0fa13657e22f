package bus_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/streamcue/relay-service/internal/domain/bus"
	"github.com/streamcue/relay-service/internal/domain/event"
	"github.com/streamcue/relay-service/internal/domain/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type gateFunc func(event.Kind) bool

func (f gateFunc) IsEnabled(k event.Kind) bool { return f(k) }

func allow(kinds ...event.Kind) bus.Gate {
	return gateFunc(func(k event.Kind) bool {
		for _, allowed := range kinds {
			if k == allowed {
				return true
			}
		}
		return false
	})
}

func TestBus_GateBlocksDisabledTypes(t *testing.T) {
	b := bus.New(allow(event.KindMediaPlayed), discard)

	var called bool
	b.Subscribe(string(event.KindChatMessage), func(context.Context, any) { called = true })

	ok := b.Publish(context.Background(), string(event.KindChatMessage), "payload")

	assert.False(t, ok)
	assert.False(t, called)
	assert.Equal(t, uint64(1), b.Stats().Blocked)
}

func TestBus_ControlTopicsBypassGate(t *testing.T) {
	b := bus.New(allow(), discard)

	var got []string
	b.Subscribe(bus.TopicStateChanged, func(_ context.Context, p any) { got = append(got, p.(string)) })
	b.Subscribe(bus.TopicApprovedMessage, func(_ context.Context, p any) { got = append(got, p.(string)) })

	assert.True(t, b.Publish(context.Background(), bus.TopicStateChanged, "state"))
	assert.True(t, b.Publish(context.Background(), bus.TopicApprovedMessage, "approved"))
	assert.Equal(t, []string{"state", "approved"}, got)
}

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	b := bus.New(allow(event.KindChatMessage), discard)

	var order []int
	for i := range 3 {
		b.Subscribe(string(event.KindChatMessage), func(context.Context, any) { order = append(order, i) })
	}

	require.True(t, b.Publish(context.Background(), string(event.KindChatMessage), nil))
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, uint64(3), b.Stats().Delivered)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := bus.New(allow(event.KindChatMessage), discard)
	topic := string(event.KindChatMessage)

	var calls int
	id := b.Subscribe(topic, func(context.Context, any) { calls++ })
	other := b.Subscribe(topic, func(context.Context, any) {})
	require.Equal(t, 2, b.SubscriberCount(topic))

	assert.True(t, b.Unsubscribe(topic, id))
	assert.False(t, b.Unsubscribe(topic, id), "second removal is a no-op")
	b.Publish(context.Background(), topic, nil)

	assert.Zero(t, calls)
	assert.True(t, b.Unsubscribe(topic, other))
	assert.Zero(t, b.SubscriberCount(topic))
}

func TestBus_PreservesPerPublisherOrder(t *testing.T) {
	b := bus.New(allow(event.KindChatMessage), discard)
	topic := string(event.KindChatMessage)

	var mu sync.Mutex
	got := map[string][]int{}
	b.Subscribe(topic, func(_ context.Context, p any) {
		v := p.([2]any)
		mu.Lock()
		got[v[0].(string)] = append(got[v[0].(string)], v[1].(int))
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for _, src := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				b.Publish(context.Background(), topic, [2]any{src, i})
			}
		}()
	}
	wg.Wait()

	for src, seq := range got {
		require.Len(t, seq, 100, src)
		for i, v := range seq {
			assert.Equal(t, i, v, "source %s out of order", src)
		}
	}
}

func TestBus_HandlerNotEnteredConcurrently(t *testing.T) {
	b := bus.New(allow(event.KindChatMessage), discard)
	topic := string(event.KindChatMessage)

	var inside, overlaps int32
	var mu sync.Mutex
	b.Subscribe(topic, func(context.Context, any) {
		mu.Lock()
		inside++
		if inside > 1 {
			overlaps++
		}
		mu.Unlock()

		mu.Lock()
		inside--
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				b.Publish(context.Background(), topic, nil)
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, overlaps)
}

func TestBridgeStore(t *testing.T) {
	s := store.New(discard, store.EventTypeConfig{EventType: event.KindChatMessage, Enabled: true})
	b := bus.New(s, discard)
	unsubscribe := bus.BridgeStore(b, s)
	defer unsubscribe()

	var got []store.Notification
	b.Subscribe(bus.TopicStateChanged, func(_ context.Context, p any) { got = append(got, p.(store.Notification)) })

	disabled := false
	_, err := s.SetConfig(event.KindChatMessage, store.ConfigUpdate{Enabled: &disabled})
	require.NoError(t, err)
	s.SetAssistantSpeaking(true)

	require.Len(t, got, 1, "only enable/disable flips are bridged")
	assert.Equal(t, event.KindChatMessage, got[0].EventType)
	assert.False(t, got[0].Config.Enabled)

	var chatCalls int
	b.Subscribe(string(event.KindChatMessage), func(context.Context, any) { chatCalls++ })
	assert.False(t, b.Publish(context.Background(), string(event.KindChatMessage), nil))
	assert.Zero(t, chatCalls)
}
