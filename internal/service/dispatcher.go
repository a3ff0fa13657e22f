package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamcue/relay-service/internal/domain/bus"
	"github.com/streamcue/relay-service/internal/domain/event"
	"github.com/streamcue/relay-service/internal/domain/model"
	"github.com/streamcue/relay-service/internal/domain/queue"
	"github.com/streamcue/relay-service/internal/domain/rules"
	"github.com/streamcue/relay-service/internal/domain/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/streamcue/relay-service/internal/service"

// Outcome is what happened to one event inside the dispatcher.
type Outcome int

const (
	OutcomeDelivered Outcome = iota + 1
	OutcomeQueued
	OutcomeFiltered
	OutcomeDropped // type disabled or unknown
	OutcomeFailed  // formatting or hand-off failed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeQueued:
		return "queued"
	case OutcomeFiltered:
		return "filtered"
	case OutcomeDropped:
		return "dropped"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

type DispatcherStats struct {
	Processed uint64 `json:"processed"`
	Delivered uint64 `json:"delivered"`
	Queued    uint64 `json:"queued"`
	Filtered  uint64 `json:"filtered"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

type DispatcherOption func(*Dispatcher)

// WithPacing sets the delay between two drained deliveries.
func WithPacing(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) { x.pacing = d }
}

func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(x *Dispatcher) { x.now = now }
}

// Dispatcher keeps one bus subscription per enabled event type, filters
// every event it receives and either hands it to the assistant or parks it
// in the queue while the assistant is speaking.
type Dispatcher struct {
	bus    *bus.Bus
	store  *store.Store
	queue  *queue.Queue
	tracer trace.Tracer
	logger *slog.Logger
	pacing time.Duration
	now    func() time.Time

	mu          sync.Mutex
	subs        map[event.Kind]bus.SubscriptionID
	stateSub    bus.SubscriptionID
	unsubStore  func()
	running     bool
	cancelDrain context.CancelFunc
	wg          sync.WaitGroup

	// [WAKE] buffered by one so signalling never blocks the store
	wake chan struct{}

	processed atomic.Uint64
	delivered atomic.Uint64
	queued    atomic.Uint64
	filtered  atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

func NewDispatcher(b *bus.Bus, s *store.Store, q *queue.Queue, tp trace.TracerProvider, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		bus:    b,
		store:  s,
		queue:  q,
		tracer: tp.Tracer(tracerName),
		logger: logger.With("component", "dispatcher"),
		pacing: 1500 * time.Millisecond,
		now:    time.Now,
		subs:   make(map[event.Kind]bus.SubscriptionID),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start subscribes to the store and the state-changed channel, creates one
// subscription per enabled type and starts the drain loop. Idempotent.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.stateSub = d.bus.Subscribe(bus.TopicStateChanged, d.onStateChanged)
	d.unsubStore = d.store.Subscribe(d.onStoreChange)

	drainCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancelDrain = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.drainLoop(drainCtx)
	}()
	d.mu.Unlock()

	d.Resubscribe()
	d.logger.Info("DISPATCHER_STARTED", "pacing", d.pacing)
	return nil
}

// Stop tears down every subscription and stops the drain loop. Queued events stay queued.
func (d *Dispatcher) Stop(context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.unsubscribeAllLocked()
	d.bus.Unsubscribe(bus.TopicStateChanged, d.stateSub)
	d.unsubStore()
	d.cancelDrain()
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("DISPATCHER_STOPPED", "queued", d.queue.Size())
	return nil
}

// Resubscribe drops every subscription, then creates exactly one per
// currently enabled event type.
func (d *Dispatcher) Resubscribe() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}

	d.unsubscribeAllLocked()
	for _, cfg := range d.store.List() {
		if !cfg.Enabled {
			continue
		}
		d.subs[cfg.EventType] = d.bus.Subscribe(string(cfg.EventType), d.handle)
	}
	d.logger.Debug("DISPATCHER_RESUBSCRIBED", "active", len(d.subs))
}

func (d *Dispatcher) unsubscribeAllLocked() {
	for kind, id := range d.subs {
		d.bus.Unsubscribe(string(kind), id)
		delete(d.subs, kind)
	}
}

// ActiveSubscriptions returns how many dispatcher subscriptions exist for kind.
func (d *Dispatcher) ActiveSubscriptions(kind event.Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subs[kind]; ok {
		return 1
	}
	return 0
}

func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Processed: d.processed.Load(),
		Delivered: d.delivered.Load(),
		Queued:    d.queued.Load(),
		Filtered:  d.filtered.Load(),
		Dropped:   d.dropped.Load(),
		Failed:    d.failed.Load(),
	}
}

func (d *Dispatcher) onStateChanged(_ context.Context, payload any) {
	n, ok := payload.(store.Notification)
	if !ok {
		return
	}
	d.Resubscribe()
	if !n.Config.Enabled {
		if purged := d.queue.RemoveKind(n.EventType); purged > 0 {
			d.dropped.Add(uint64(purged))
			d.logger.Info("QUEUE_PURGED", "event_type", n.EventType, "count", purged)
		}
	}
}

func (d *Dispatcher) onStoreChange(n store.Notification) {
	switch n.Kind {
	case store.ConfigChanged:
		d.Resubscribe()
	case store.SpeakingChanged:
		if !n.Speaking {
			d.signalDrain()
		}
	case store.StateChanged:
		// handled through the state-changed bus channel
	}
}

func (d *Dispatcher) signalDrain() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) handle(ctx context.Context, payload any) {
	ev, ok := payload.(event.Eventer)
	if !ok {
		d.dropped.Add(1)
		d.logger.Warn("EVENT_REJECTED", "payload_type", fmt.Sprintf("%T", payload))
		return
	}
	d.Process(ctx, ev)
}

// Process runs one event through enablement, filtering and hand-off.
func (d *Dispatcher) Process(ctx context.Context, ev event.Eventer) Outcome {
	ctx, span := d.tracer.Start(ctx, "dispatcher.process", trace.WithAttributes(
		attribute.String("event.kind", string(ev.GetKind())),
		attribute.String("event.id", ev.GetID()),
	))
	defer span.End()

	d.processed.Add(1)
	outcome := d.process(ctx, ev)
	span.SetAttributes(attribute.String("dispatch.outcome", outcome.String()))
	if outcome == OutcomeFailed {
		span.SetStatus(codes.Error, "hand-off failed")
	}
	return outcome
}

func (d *Dispatcher) process(ctx context.Context, ev event.Eventer) Outcome {
	cfg, ok := d.store.GetConfig(ev.GetKind())
	if !ok || !cfg.Enabled {
		d.dropped.Add(1)
		d.logger.Debug("EVENT_DROPPED", "event_type", ev.GetKind(), "reason", "disabled")
		return OutcomeDropped
	}

	if !rules.Evaluate(ev, cfg.Filter) {
		d.filtered.Add(1)
		d.logger.Debug("EVENT_FILTERED", "event_type", ev.GetKind(), "event_id", ev.GetID())
		return OutcomeFiltered
	}

	if d.store.IsAssistantSpeaking() {
		qe := d.queue.Enqueue(ev)
		d.queued.Add(1)
		d.logger.Debug("EVENT_QUEUED", "event_type", ev.GetKind(), "tier", qe.Tier, "queue_size", d.queue.Size())
		return OutcomeQueued
	}

	if err := d.deliver(ctx, ev); err != nil {
		return OutcomeFailed
	}
	return OutcomeDelivered
}

// deliver formats ev and publishes it on the approved-message channel. A
// failure, panics included, is logged and confined to this one event.
func (d *Dispatcher) deliver(ctx context.Context, ev event.Eventer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			d.logger.Error("PANIC_RECOVERED", "err", r, "event_id", ev.GetID(), "stack", string(debug.Stack()))
		}
		if err != nil {
			d.failed.Add(1)
			d.logger.Error("DELIVERY_FAILED", "event_type", ev.GetKind(), "event_id", ev.GetID(), "err", err)
			return
		}
		d.delivered.Add(1)
	}()

	text, err := Format(ev)
	if err != nil {
		return err
	}
	d.bus.Publish(ctx, bus.TopicApprovedMessage, model.NewApprovedMessage(ev, text))
	return nil
}

// drainLoop delivers at most one queued event per pacing interval while the
// assistant is idle. A speaking-ended signal wakes it early.
func (d *Dispatcher) drainLoop(ctx context.Context) {
	timer := time.NewTimer(d.pacing)
	defer timer.Stop()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		case <-timer.C:
		}

		if wait := d.pacing - d.now().Sub(last); !last.IsZero() && wait > 0 {
			timer.Reset(wait)
			continue
		}
		if d.drainOne(ctx) {
			last = d.now()
		}
		timer.Reset(d.pacing)
	}
}

// drainOne delivers the head of the queue. Events whose type was disabled
// while they waited are discarded and the next one is tried.
func (d *Dispatcher) drainOne(ctx context.Context) bool {
	for {
		if d.store.IsAssistantSpeaking() {
			return false
		}
		qe, ok := d.queue.Dequeue()
		if !ok {
			return false
		}

		kind := qe.Event.GetKind()
		if !d.store.IsEnabled(kind) {
			d.dropped.Add(1)
			d.logger.Debug("QUEUED_EVENT_DROPPED", "event_type", kind, "reason", "disabled")
			continue
		}

		ctx, span := d.tracer.Start(ctx, "dispatcher.drain", trace.WithAttributes(
			attribute.String("event.kind", string(kind)),
			attribute.String("event.id", qe.Event.GetID()),
			attribute.Int64("queue.wait_ms", d.now().Sub(qe.EnqueuedAt).Milliseconds()),
		))
		err := d.deliver(ctx, qe.Event)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		return err == nil
	}
}
