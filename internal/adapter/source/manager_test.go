package source_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/streamcue/relay-service/config"
	"github.com/streamcue/relay-service/internal/adapter/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stateRecorder struct {
	mu     sync.Mutex
	states map[string]bool
}

func (s *stateRecorder) SetConnectorState(name string, connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states == nil {
		s.states = map[string]bool{}
	}
	s.states[name] = connected
}

func (s *stateRecorder) State(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[name]
}

func newManager(t *testing.T, url string, attempts int) (*source.Manager, *stateRecorder) {
	t.Helper()
	cfg := &config.Config{
		Sources: []config.SourceConfig{{
			Name:             "chat",
			Kind:             source.KindChat,
			URL:              url,
			HandshakeTimeout: time.Second,
			Reconnect: config.ReconnectConfig{
				BaseDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Multiplier: 1.5, MaxAttempts: attempts,
			},
		}},
		Dedup: config.DedupConfig{
			DebounceWindow: time.Second,
			HistoryWindow:  time.Minute,
			Retention:      time.Minute,
			SweepInterval:  time.Minute,
			MaxEntries:     100,
		},
	}
	obs := &stateRecorder{}
	m, err := source.NewManager(cfg, &recorder{}, obs, &signalRecorder{}, discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })
	return m, obs
}

func TestManager_DisconnectAndReconnect(t *testing.T) {
	f := newFeed(t)
	m, obs := newManager(t, f.URL(), 3)

	require.NoError(t, m.Start(context.Background()))
	require.True(t, m.Statuses()[0].Connected)
	assert.True(t, obs.State("chat"))

	st, err := m.Disconnect("chat")
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.False(t, obs.State("chat"))

	st, err = m.Reconnect(context.Background(), "chat")
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.True(t, obs.State("chat"))
	assert.Equal(t, int32(2), f.accepted.Load())
}

func TestManager_ReconnectRevivesDarkSource(t *testing.T) {
	f := newFeed(t)
	f.reject.Store(true)

	m, _ := newManager(t, f.URL(), 1)
	require.NoError(t, m.Start(context.Background()))
	require.Eventually(t, func() bool { return m.Statuses()[0].Fatal }, 2*time.Second, 5*time.Millisecond)

	f.reject.Store(false)
	st, err := m.Reconnect(context.Background(), "chat")
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.False(t, st.Fatal)
	assert.Zero(t, st.Attempts)
}

func TestManager_UnknownSource(t *testing.T) {
	m, _ := newManager(t, "ws://127.0.0.1:1", 1)

	_, err := m.Reconnect(context.Background(), "nope")
	require.ErrorIs(t, err, source.ErrUnknownSource)
	_, err = m.Disconnect("nope")
	require.ErrorIs(t, err, source.ErrUnknownSource)
}
