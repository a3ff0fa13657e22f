// Package source maintains the long-lived connections to the live-stream
// feeds and turns their frames into de-duplicated domain events.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/streamcue/relay-service/internal/domain/model"
)

var ErrRetryBudgetExhausted = errors.New("reconnect attempts exhausted")

// Publisher is the event bus as seen by a connector.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) bool
}

// SignalSink takes assistant speaking signals that arrive on a feed.
type SignalSink interface {
	Apply(ctx context.Context, sig model.Signal)
}

var signalFrames = map[string]model.Signal{
	FrameSpeakingStarted: model.SpeakingStarted,
	FrameSpeakingEnded:   model.SpeakingEnded,
}

// Status is a point-in-time view of one connector.
type Status struct {
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	URL         string    `json:"url"`
	Connected   bool      `json:"connected"`
	Fatal       bool      `json:"fatal"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"last_error,omitempty"`
	ConnectedAt time.Time `json:"connected_at,omitzero"`
	Received    uint64    `json:"received"`
	Emitted     uint64    `json:"emitted"`
	Duplicates  uint64    `json:"duplicates"`
	Malformed   uint64    `json:"malformed"`
}

type Option func(*Connector)

func WithBackoff(p BackoffPolicy) Option {
	return func(c *Connector) { c.policy = p }
}

func WithDeduplicator(d *Deduplicator) Option {
	return func(c *Connector) { c.dedup = d }
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Connector) { c.dialer.HandshakeTimeout = d }
}

// WithOnFatal is called once when the retry budget is exhausted.
func WithOnFatal(fn func(name string, err error)) Option {
	return func(c *Connector) { c.onFatal = fn }
}

// WithOnStateChange is called on every transport up/down transition.
func WithOnStateChange(fn func(name string, connected bool)) Option {
	return func(c *Connector) { c.onState = fn }
}

// WithSignalSink forwards speaking frames found on the feed.
func WithSignalSink(sink SignalSink) Option {
	return func(c *Connector) { c.signals = sink }
}

func WithClock(now func() time.Time) Option {
	return func(c *Connector) { c.now = now }
}

// Connector owns one websocket connection to a source. It reconnects on its
// own and reports a fatal error upward once it gives up.
type Connector struct {
	name       string
	kind       string
	url        string
	normalizer Normalizer
	publisher  Publisher
	dedup      *Deduplicator
	policy     BackoffPolicy
	dialer     *websocket.Dialer
	logger     *slog.Logger
	now        func() time.Time
	onFatal    func(name string, err error)
	onState    func(name string, connected bool)
	signals    SignalSink

	mu          sync.Mutex
	conn        *websocket.Conn
	running     bool
	fatal       bool
	attempts    int
	lastErr     error
	connectedAt time.Time
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	received   atomic.Uint64
	emitted    atomic.Uint64
	duplicates atomic.Uint64
	malformed  atomic.Uint64
}

func NewConnector(name, kind, url string, normalizer Normalizer, pub Publisher, logger *slog.Logger, opts ...Option) *Connector {
	c := &Connector{
		name:       name,
		kind:       kind,
		url:        url,
		normalizer: normalizer,
		publisher:  pub,
		policy:     DefaultBackoffPolicy(),
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:     logger.With("component", "source", "source", name),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dedup == nil {
		c.dedup = NewDeduplicator(WithDedupClock(c.now))
	}
	return c
}

func (c *Connector) Name() string { return c.name }

// Connect dials the source and starts the read and sweep loops. Calling it
// while the connector is running is a no-op. On success the connector is
// connected when Connect returns. A failed first dial is returned, and the
// reconnect loop keeps trying in the background.
func (c *Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.running && !c.fatal {
		c.mu.Unlock()
		return nil
	}
	if c.running {
		// a previous run gave up; reap its sweep loop before starting over
		c.cancel()
		c.mu.Unlock()
		c.wg.Wait()
		c.mu.Lock()
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.running = true
	c.fatal = false
	c.attempts = 0
	c.lastErr = nil
	c.cancel = cancel
	// Close waits on the loops even while the first dial is in flight.
	c.wg.Add(2)
	c.mu.Unlock()

	// Close aborts the dial through runCtx, the caller through ctx.
	dialCtx, stopDial := context.WithCancel(runCtx)
	unhook := context.AfterFunc(ctx, stopDial)
	conn, err := c.dial(dialCtx)
	unhook()
	stopDial()

	switch {
	case err == nil && runCtx.Err() != nil:
		// closed while dialing
		_ = conn.Close()
		conn = nil
	case err == nil:
		c.setConn(conn)
	}

	go func() {
		defer c.wg.Done()
		c.dedup.Run(runCtx)
	}()
	go func() {
		defer c.wg.Done()
		c.run(runCtx, conn)
	}()

	if err != nil {
		return fmt.Errorf("connect %s: %w", c.name, err)
	}
	return nil
}

// IsConnected reflects the transport state, not whether Connect was called.
func (c *Connector) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close stops the loops and closes the transport. Pending reconnects are cancelled.
func (c *Connector) Close() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	cancel := c.cancel
	conn := c.conn
	c.mu.Unlock()

	cancel()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}
	c.wg.Wait()
	return nil
}

func (c *Connector) Status() Status {
	c.mu.Lock()
	st := Status{
		Name:        c.name,
		Kind:        c.kind,
		URL:         c.url,
		Connected:   c.conn != nil,
		Fatal:       c.fatal,
		Attempts:    c.attempts,
		ConnectedAt: c.connectedAt,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	c.mu.Unlock()

	st.Received = c.received.Load()
	st.Emitted = c.emitted.Load()
	st.Duplicates = c.duplicates.Load()
	st.Malformed = c.malformed.Load()
	return st
}

func (c *Connector) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return nil, err
	}
	return conn, nil
}

// run alternates between reading a live connection and waiting out the
// backoff delay until the budget runs out or ctx is cancelled.
func (c *Connector) run(ctx context.Context, conn *websocket.Conn) {
	bo := c.policy.NewBackOff()

	// conn, when set, is already published through setConn.
	for {
		if conn != nil {
			bo.Reset()
			err := c.readLoop(ctx, conn)
			c.setConn(nil)
			if ctx.Err() != nil {
				return
			}
			c.mu.Lock()
			c.lastErr = err
			c.mu.Unlock()
			c.logger.Warn("SOURCE_DISCONNECTED", "err", err)
		}
		if ctx.Err() != nil {
			return
		}

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			c.giveUp()
			return
		}

		c.mu.Lock()
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()
		c.logger.Info("RECONNECT_SCHEDULED", "attempt", attempt, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		var err error
		if conn, err = c.dial(ctx); err != nil {
			c.logger.Warn("RECONNECT_FAILED", "attempt", attempt, "err", err)
			continue
		}
		c.setConn(conn)
	}
}

func (c *Connector) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	if conn != nil {
		c.attempts = 0
		c.connectedAt = c.now()
	}
	c.mu.Unlock()

	if conn != nil {
		c.logger.Info("SOURCE_CONNECTED", "url", c.url)
	}
	if c.onState != nil {
		c.onState(c.name, conn != nil)
	}
}

func (c *Connector) giveUp() {
	c.mu.Lock()
	c.fatal = true
	attempts := c.attempts
	lastErr := c.lastErr
	c.mu.Unlock()

	if lastErr == nil {
		lastErr = errors.New("no connection")
	}
	err := fmt.Errorf("source %s: %w after %d attempts: %w", c.name, ErrRetryBudgetExhausted, attempts, lastErr)
	c.logger.Error("SOURCE_FATAL", "err", err)
	if c.onFatal != nil {
		c.onFatal(c.name, err)
	}
}

func (c *Connector) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.received.Add(1)
		c.handleFrame(ctx, data)
	}
}

// handleFrame never fails the connection: bad frames are logged and dropped.
func (c *Connector) handleFrame(ctx context.Context, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.malformed.Add(1)
		c.logger.Warn("PAYLOAD_MALFORMED", "err", err)
		return
	}
	if sig, ok := signalFrames[env.Event]; ok {
		if c.signals != nil {
			c.signals.Apply(ctx, sig)
		}
		return
	}
	if !c.normalizer.Accepts(env.Event) {
		return
	}

	ev, err := c.normalizer.Normalize(env.Data, c.now())
	if err != nil {
		c.malformed.Add(1)
		c.logger.Warn("PAYLOAD_MALFORMED", "frame", env.Event, "err", err)
		return
	}

	if v := c.dedup.Check(ev.IdentityKey()); v != Fresh {
		c.duplicates.Add(1)
		c.logger.Debug("EVENT_DUPLICATE", "event_type", ev.GetKind(), "verdict", v.String())
		return
	}

	c.emitted.Add(1)
	c.publisher.Publish(ctx, string(ev.GetKind()), ev)
}
