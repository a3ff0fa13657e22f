/*
Package registry keeps track of the assistant sessions that receive approved
messages.

The Hub is a small actor: Broadcast only drops the message into a buffered
mailbox, and a single goroutine fans it out to every attached session. A slow
session therefore never blocks the dispatcher; it is bounded by the send
timeout and sheds low-priority messages when its own buffer is saturated.
A janitor closes sessions that stopped reporting activity.
*/
package registry

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/streamcue/relay-service/internal/domain/model"
)

// Hubber defines the gateway for assistant session management.
type Hubber interface {
	Broadcast(msg model.ApprovedMessage) bool
	Register(s Session)
	Unregister(id uuid.UUID)
	Count() int
	Stats() model.HubStats
	Shutdown()
}

type hubConfig struct {
	mailboxSize      int
	sendTimeout      time.Duration
	idleTimeout      time.Duration
	evictionInterval time.Duration
}

// Hub implements a [SINGLE_MAILBOX] fan-out registry.
type Hub struct {
	config hubConfig
	logger *slog.Logger

	sessions sync.Map // map[uuid.UUID]Session
	count    atomic.Int64

	// [MAILBOX]
	// Decouples the dispatcher from network latency of individual sessions.
	mailbox chan model.ApprovedMessage

	doneCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	startedAt  time.Time
	broadcasts atomic.Uint64
	rejected   atomic.Uint64
}

func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		config: hubConfig{
			mailboxSize:      256,
			sendTimeout:      500 * time.Millisecond,
			idleTimeout:      2 * time.Minute,
			evictionInterval: 30 * time.Second,
		},
		logger:    logger.With("component", "hub"),
		doneCh:    make(chan struct{}),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.mailbox = make(chan model.ApprovedMessage, h.config.mailboxSize)

	h.wg.Add(1)
	go h.loop()
	if h.config.idleTimeout > 0 && h.config.evictionInterval > 0 {
		h.wg.Add(1)
		go h.janitor()
	}
	return h
}

// Broadcast hands msg to the mailbox. Returns false on overflow or after shutdown.
func (h *Hub) Broadcast(msg model.ApprovedMessage) bool {
	select {
	case <-h.doneCh:
		return false
	default:
	}

	select {
	case h.mailbox <- msg:
		h.broadcasts.Add(1)
		return true
	default:
		h.rejected.Add(1)
		h.logger.Warn("HUB_MAILBOX_FULL", "message_id", msg.ID, "event_type", msg.EventType)
		return false
	}
}

func (h *Hub) Register(s Session) {
	if _, loaded := h.sessions.LoadOrStore(s.GetID(), s); !loaded {
		h.count.Add(1)
		h.logger.Info("SESSION_REGISTERED", "session_id", s.GetID(), "remote_ip", s.Metadata().RemoteIP)
	}
}

// Unregister detaches and closes the session.
func (h *Hub) Unregister(id uuid.UUID) {
	if val, ok := h.sessions.LoadAndDelete(id); ok {
		h.count.Add(-1)
		val.(Session).Close()
		h.logger.Info("SESSION_UNREGISTERED", "session_id", id)
	}
}

func (h *Hub) Count() int { return int(h.count.Load()) }

func (h *Hub) Stats() model.HubStats {
	st := model.HubStats{
		TotalSessions: h.Count(),
		Broadcasts:    h.broadcasts.Load(),
		Rejected:      h.rejected.Load(),
		Uptime:        time.Since(h.startedAt),
	}
	h.sessions.Range(func(_, val any) bool {
		s := val.(Session)
		st.Sessions = append(st.Sessions, model.SessionStats{
			ID:        s.GetID().String(),
			RemoteIP:  s.Metadata().RemoteIP,
			CreatedAt: s.CreatedAt(),
			Dropped:   s.Dropped(),
		})
		return true
	})
	return st
}

// Shutdown stops the actor goroutines and closes every session.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.doneCh)
		h.wg.Wait()
		h.sessions.Range(func(key, _ any) bool {
			h.Unregister(key.(uuid.UUID))
			return true
		})
	})
}

func (h *Hub) loop() {
	defer h.wg.Done()
	for {
		select {
		case <-h.doneCh:
			return
		case msg := <-h.mailbox:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg model.ApprovedMessage) {
	h.sessions.Range(func(_, val any) bool {
		s := val.(Session)
		if !s.Send(msg, h.config.sendTimeout) {
			h.logger.Warn("SESSION_SEND_DROPPED", "session_id", s.GetID(), "message_id", msg.ID)
		}
		return true
	})
}

func (h *Hub) janitor() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.config.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.doneCh:
			return
		case now := <-ticker.C:
			h.evictIdle(now)
		}
	}
}

func (h *Hub) evictIdle(now time.Time) {
	h.sessions.Range(func(key, val any) bool {
		s := val.(Session)
		if now.Sub(s.LastActivity()) > h.config.idleTimeout {
			h.logger.Info("SESSION_EVICTED", "session_id", s.GetID(), "idle_for", now.Sub(s.LastActivity()))
			h.Unregister(key.(uuid.UUID))
		}
		return true
	})
}
