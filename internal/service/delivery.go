package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/streamcue/relay-service/config"
	"github.com/streamcue/relay-service/internal/domain/registry"
)

// [DELIVERY_SERVICE] PRIMARY INTERFACE FOR TRANSPORT HANDLERS (websocket)
type Deliverer interface {
	Subscribe(ctx context.Context, meta registry.SessionMetadata) (registry.Session, error)
	Unsubscribe(sessionID uuid.UUID)
}

type DeliveryService struct {
	hub        registry.Hubber
	bufferSize int
}

func NewDeliveryService(hub registry.Hubber, cfg *config.Config) *DeliveryService {
	return &DeliveryService{
		hub:        hub,
		bufferSize: cfg.Delivery.SessionBuffer,
	}
}

// [SUBSCRIBE] HANDLES SESSION LIFECYCLE INITIATION
func (s *DeliveryService) Subscribe(ctx context.Context, meta registry.SessionMetadata) (registry.Session, error) {
	// 1. Create a session bound to the transport context
	sess := registry.NewSession(ctx, meta, s.bufferSize)

	// 2. Attach to the hub so it starts receiving approved messages
	s.hub.Register(sess)

	return sess, nil
}

// [UNSUBSCRIBE] Hub.Unregister closes the session.
func (s *DeliveryService) Unsubscribe(sessionID uuid.UUID) {
	s.hub.Unregister(sessionID)
}
