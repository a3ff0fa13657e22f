package source_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/streamcue/relay-service/internal/adapter/source"
	"github.com/streamcue/relay-service/internal/domain/event"
	"github.com/streamcue/relay-service/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recorder struct {
	mu     sync.Mutex
	events []event.Eventer
}

func (r *recorder) Publish(_ context.Context, topic string, payload any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := payload.(event.Eventer); ok && topic == string(ev.GetKind()) {
		r.events = append(r.events, ev)
	}
	return true
}

func (r *recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// feed is a websocket source. Every accepted connection receives the frames
// written to it; Drop closes the current connection and reject refuses new ones.
type feed struct {
	srv      *httptest.Server
	frames   chan string
	accepted atomic.Int32
	reject   atomic.Bool

	mu   sync.Mutex
	conn *websocket.Conn
}

func newFeed(t *testing.T) *feed {
	f := &feed{frames: make(chan string, 16)}
	upgrader := websocket.Upgrader{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.reject.Load() {
			http.Error(w, "feed down", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.accepted.Add(1)
		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()

		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		for frame := range f.frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(func() {
		close(f.frames)
		f.srv.Close()
	})
	return f
}

func (f *feed) URL() string { return "ws" + strings.TrimPrefix(f.srv.URL, "http") }

func (f *feed) Drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_ = f.conn.Close()
	}
}

func fastPolicy(attempts int) source.BackoffPolicy {
	return source.BackoffPolicy{BaseDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Multiplier: 1.5, MaxAttempts: attempts}
}

func TestConnector_ConnectEmitsDeduplicatedEvents(t *testing.T) {
	f := newFeed(t)
	rec := &recorder{}
	c := source.NewConnector("chat-feed", source.KindChat, f.URL(), source.ChatNormalizer{}, rec, discard,
		source.WithBackoff(fastPolicy(3)))
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Connect(context.Background()))
	require.True(t, c.IsConnected())

	f.frames <- `{"event":"chat","data":{"comment":"hello","uniqueId":"u1","nickname":"N"}}`
	f.frames <- `{"event":"chat","data":{"comment":"hello","uniqueId":"u1","nickname":"N"}}`
	f.frames <- `not json`
	f.frames <- `{"event":"chat","data":{"uniqueId":"u1"}}`
	f.frames <- `{"event":"like","data":{}}`
	f.frames <- `{"event":"chat","data":{"comment":"second","uniqueId":"u1","nickname":"N"}}`

	require.Eventually(t, func() bool { return c.Status().Received == 6 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, rec.Len())

	st := c.Status()
	assert.Equal(t, uint64(2), st.Emitted)
	assert.Equal(t, uint64(1), st.Duplicates)
	assert.Equal(t, uint64(2), st.Malformed)
	assert.True(t, st.Connected)
	assert.Equal(t, int32(1), f.accepted.Load())
}

func TestConnector_ReconnectsAfterDrop(t *testing.T) {
	f := newFeed(t)
	var mu sync.Mutex
	var transitions []bool
	c := source.NewConnector("media", source.KindMedia, f.URL(), source.MediaNormalizer{}, &recorder{}, discard,
		source.WithBackoff(fastPolicy(5)),
		source.WithOnStateChange(func(_ string, connected bool) {
			mu.Lock()
			transitions = append(transitions, connected)
			mu.Unlock()
		}))
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Connect(context.Background()))
	require.True(t, c.IsConnected())

	f.Drop()
	require.Eventually(t, func() bool { return f.accepted.Load() == 2 && c.IsConnected() }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, c.Status().Attempts)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false, true}, transitions)
}

func TestConnector_GivesUpAfterBudget(t *testing.T) {
	f := newFeed(t)
	url := f.URL()
	f.srv.Close()

	fatal := make(chan error, 1)
	c := source.NewConnector("dark", source.KindChat, url, source.ChatNormalizer{}, &recorder{}, discard,
		source.WithBackoff(fastPolicy(2)),
		source.WithOnFatal(func(_ string, err error) { fatal <- err }))
	t.Cleanup(func() { _ = c.Close() })

	require.Error(t, c.Connect(context.Background()))

	select {
	case err := <-fatal:
		require.ErrorIs(t, err, source.ErrRetryBudgetExhausted)
	case <-time.After(2 * time.Second):
		t.Fatal("fatal callback not invoked")
	}

	st := c.Status()
	assert.True(t, st.Fatal)
	assert.False(t, st.Connected)
	assert.Equal(t, 2, st.Attempts)
	assert.False(t, c.IsConnected())
}

func TestConnector_CloseCancelsReconnect(t *testing.T) {
	f := newFeed(t)
	url := f.URL()
	f.srv.Close()

	var fatal atomic.Bool
	c := source.NewConnector("dark", source.KindChat, url, source.ChatNormalizer{}, &recorder{}, discard,
		source.WithBackoff(source.BackoffPolicy{BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1.5, MaxAttempts: 10}),
		source.WithOnFatal(func(string, error) { fatal.Store(true) }))

	require.Error(t, c.Connect(context.Background()))

	done := make(chan struct{})
	go func() {
		_ = c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close blocked on a pending reconnect")
	}
	assert.False(t, fatal.Load())
}

func TestConnector_ConnectedWhenConnectReturns(t *testing.T) {
	f := newFeed(t)
	for i := range 20 {
		c := source.NewConnector("chat-feed", source.KindChat, f.URL(), source.ChatNormalizer{}, &recorder{}, discard,
			source.WithBackoff(fastPolicy(3)))

		require.NoError(t, c.Connect(context.Background()))
		assert.True(t, c.IsConnected(), "run %d", i)
		assert.True(t, c.Status().Connected, "run %d", i)
		require.NoError(t, c.Close())
		assert.False(t, c.IsConnected(), "run %d", i)
	}
}

func TestConnector_CloseAbortsDial(t *testing.T) {
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case arrived <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := source.NewConnector("slow", source.KindChat, "ws"+strings.TrimPrefix(srv.URL, "http"), source.ChatNormalizer{}, &recorder{}, discard,
		source.WithBackoff(fastPolicy(3)), source.WithHandshakeTimeout(time.Minute))

	connectErr := make(chan error, 1)
	go func() { connectErr <- c.Connect(context.Background()) }()

	select {
	case <-arrived:
	case <-time.After(time.Second):
		t.Fatal("dial never reached the feed")
	}

	closed := make(chan struct{})
	go func() {
		_ = c.Close()
		close(closed)
	}()

	select {
	case err := <-connectErr:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("close did not abort the dial")
	}
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close blocked")
	}

	time.Sleep(50 * time.Millisecond)
	st := c.Status()
	assert.False(t, st.Connected)
	assert.Zero(t, st.Attempts)
}

type signalRecorder struct {
	mu   sync.Mutex
	sigs []model.Signal
}

func (s *signalRecorder) Apply(_ context.Context, sig model.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigs = append(s.sigs, sig)
}

func (s *signalRecorder) Signals() []model.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Signal(nil), s.sigs...)
}

func TestConnector_ForwardsSpeakingFrames(t *testing.T) {
	f := newFeed(t)
	rec := &recorder{}
	sigs := &signalRecorder{}
	c := source.NewConnector("media", source.KindMedia, f.URL(), source.MediaNormalizer{}, rec, discard,
		source.WithBackoff(fastPolicy(3)), source.WithSignalSink(sigs))
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Connect(context.Background()))

	f.frames <- `{"event":"assistantSpeakingStarted"}`
	f.frames <- `{"event":"assistantSpeakingEnded","data":{}}`

	require.Eventually(t, func() bool { return len(sigs.Signals()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []model.Signal{model.SpeakingStarted, model.SpeakingEnded}, sigs.Signals())
	assert.Zero(t, rec.Len())
}
