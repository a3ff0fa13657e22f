package registry

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/streamcue/relay-service/internal/domain/event"
	"github.com/streamcue/relay-service/internal/domain/model"
)

// Interface guard
var _ Session = (*session)(nil)

// [SESSION] THE INTERFACE FOR EXTERNAL LAYERS (HUB/TRANSPORT)
type Session interface {
	GetID() uuid.UUID
	Metadata() SessionMetadata
	CreatedAt() time.Time
	Send(msg model.ApprovedMessage, timeout time.Duration) bool // Thread-safe send with backpressure handling
	Recv() <-chan model.ApprovedMessage
	Done() <-chan struct{}
	Touch()
	LastActivity() time.Time
	Dropped() uint64
	Close() // Terminate the session and release resources
}

// [METADATA] EXPORTED FOR TRANSPORT AND ANALYTICS LAYERS
type SessionMetadata struct {
	RemoteIP  string
	UserAgent string
}

type session struct {
	id        uuid.UUID
	metadata  SessionMetadata
	createdAt time.Time
	ctx       context.Context
	cancelFn  context.CancelFunc
	sendCh    chan model.ApprovedMessage
	shedMu    sync.Mutex
	closeOnce sync.Once

	lastActivityAt atomic.Int64
	droppedCount   atomic.Uint64
}

// NewSession binds the session lifetime to ctx.
func NewSession(ctx context.Context, meta SessionMetadata, bufferSize int) Session {
	childCtx, cancel := context.WithCancel(ctx)
	s := &session{
		id:        uuid.New(),
		metadata:  meta,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan model.ApprovedMessage, bufferSize),
	}
	s.lastActivityAt.Store(s.createdAt.UnixNano())
	return s
}

func (s *session) GetID() uuid.UUID          { return s.id }
func (s *session) Metadata() SessionMetadata { return s.metadata }
func (s *session) CreatedAt() time.Time      { return s.createdAt }
func (s *session) Done() <-chan struct{}     { return s.ctx.Done() }
func (s *session) Dropped() uint64           { return s.droppedCount.Load() }

func (s *session) Recv() <-chan model.ApprovedMessage { return s.sendCh }

func (s *session) Touch() { s.lastActivityAt.Store(time.Now().UnixNano()) }

func (s *session) LastActivity() time.Time { return time.Unix(0, s.lastActivityAt.Load()) }

// Send waits up to timeout for buffer space, then falls back to shedding.
func (s *session) Send(msg model.ApprovedMessage, timeout time.Duration) bool {
	if s.ctx.Err() != nil {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	// 1. [LIFECYCLE_GATE] Abort if the transport is already dead.
	case <-s.ctx.Done():
		return false

	// 2. [PRIMARY_DELIVERY]
	case s.sendCh <- msg:
		return true

	// 3. [BACKPRESSURE_THRESHOLD] The buffer stayed full for the whole window.
	case <-timer.C:
		return s.handleBackpressure(msg)
	}
}

// handleBackpressure drops low-priority messages outright. A higher-priority
// message evicts the oldest buffered message of lower priority and joins the
// tail; the order of everything else in the buffer is kept.
func (s *session) handleBackpressure(msg model.ApprovedMessage) bool {
	if msg.GetPriority() <= event.PriorityLow {
		s.droppedCount.Add(1)
		return false
	}

	s.shedMu.Lock()
	defer s.shedMu.Unlock()

	// [SNAPSHOT] take the buffer out; the reader sees an empty channel meanwhile
	pending := make([]model.ApprovedMessage, 0, cap(s.sendCh))
	for drained := false; !drained; {
		select {
		case m := <-s.sendCh:
			pending = append(pending, m)
		default:
			drained = true
		}
	}

	victim := slices.IndexFunc(pending, func(m model.ApprovedMessage) bool {
		return m.GetPriority() < msg.GetPriority()
	})
	accepted := victim >= 0
	if accepted {
		pending = append(slices.Delete(pending, victim, victim+1), msg)
	}
	s.droppedCount.Add(1)

	for _, m := range pending {
		select {
		case s.sendCh <- m:
		default:
			// only another sender can have taken the room
			s.droppedCount.Add(1)
		}
	}
	return accepted
}

// Close is idempotent. The send channel is never closed; readers watch Done.
func (s *session) Close() {
	s.closeOnce.Do(s.cancelFn)
}
