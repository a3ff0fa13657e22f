package bus

import (
	"context"

	"github.com/streamcue/relay-service/internal/domain/store"
)

// StoreSubscriber is the part of the configuration store the bridge needs.
type StoreSubscriber interface {
	Subscribe(fn store.Listener) (unsubscribe func())
}

// BridgeStore republishes enable/disable notifications on TopicStateChanged.
func BridgeStore(b *Bus, s StoreSubscriber) (unsubscribe func()) {
	return s.Subscribe(func(n store.Notification) {
		if n.Kind != store.StateChanged {
			return
		}
		b.Publish(context.Background(), TopicStateChanged, n)
	})
}
