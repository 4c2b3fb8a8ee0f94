package streaming

import (
	"context"
	"strconv"
	"sync"

	"scamlens/pkg/logger"
)

// Publisher is what the scan service depends on
type Publisher interface {
	PublishScan(ctx context.Context, e *ScanEvent) error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishScan(context.Context, *ScanEvent) error { return nil }

// EventBus distributes scan events to NATS, local subscribers and the
// WebSocket hub. Delivery failures are logged and never returned.
type EventBus struct {
	nats   *NATSPublisher
	hub    *WebSocketHub
	logger *logger.Logger

	mu          sync.RWMutex
	subscribers map[string]subscriber
	nextID      int
}

type subscriber struct {
	ch  chan *ScanEvent
	sub *Subscription
}

// NewEventBus creates a bus; nats and hub may be nil
func NewEventBus(nats *NATSPublisher, hub *WebSocketHub, log *logger.Logger) *EventBus {
	return &EventBus{
		nats:        nats,
		hub:         hub,
		logger:      log.WithComponent("event-bus"),
		subscribers: make(map[string]subscriber),
	}
}

var _ Publisher = (*EventBus)(nil)

// PublishScan fans an event out to every sink
func (eb *EventBus) PublishScan(ctx context.Context, e *ScanEvent) error {
	if eb.nats != nil {
		if err := eb.nats.PublishScanEvent(ctx, e); err != nil {
			eb.logger.Warn().Err(err).Str("scan_id", e.ScanID.String()).Msg("failed to publish to NATS, using local broadcast only")
		}
	}

	eb.mu.RLock()
	for id, s := range eb.subscribers {
		if s.sub != nil && !s.sub.Matches(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			eb.logger.Debug().Str("subscriber", id).Msg("subscriber channel full, dropping event")
		}
	}
	eb.mu.RUnlock()

	if eb.hub != nil {
		eb.hub.BroadcastEvent(e)
	}
	return nil
}

// Subscribe registers a local subscriber. The returned function removes it
// and closes the channel.
func (eb *EventBus) Subscribe(sub *Subscription) (<-chan *ScanEvent, func()) {
	eb.mu.Lock()
	eb.nextID++
	id := strconv.Itoa(eb.nextID)
	ch := make(chan *ScanEvent, 100)
	eb.subscribers[id] = subscriber{ch: ch, sub: sub}
	eb.mu.Unlock()

	eb.logger.Debug().Str("subscriber_id", id).Msg("new subscriber")

	return ch, func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		if s, ok := eb.subscribers[id]; ok {
			close(s.ch)
			delete(eb.subscribers, id)
		}
	}
}

// SubscriberCount returns the number of active local subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// NATSConnected reports the NATS link state for readiness checks
func (eb *EventBus) NATSConnected() bool {
	return eb.nats != nil && eb.nats.IsConnected()
}

// Close drops every subscriber and closes NATS
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for id, s := range eb.subscribers {
		close(s.ch)
		delete(eb.subscribers, id)
	}
	if eb.nats != nil {
		eb.nats.Close()
	}
}
