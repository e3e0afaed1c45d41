package eventbus

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Handler consumes a published event.
type Handler func(ctx context.Context, routingKey string, payload []byte)

// InProcessEventBus is an in-memory bus for local mode (no RabbitMQ).
// Subscribers receive events synchronously, which gives clients the
// push-style delivery the engine expects instead of polling.
type InProcessEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// NewInProcessEventBus creates a new in-process event bus.
func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessEventBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a routing-key pattern. Patterns are
// dot-separated segments where "*" matches one segment and "#" matches the
// rest, e.g. "scheduling.conflict.*" or "scheduling.#".
func (b *InProcessEventBus) Subscribe(pattern string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[pattern] = append(b.handlers[pattern], handler)
}

// Publish dispatches an event synchronously to every matching subscriber.
func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	b.mu.RLock()
	var matched []Handler
	for pattern, handlers := range b.handlers {
		if matchRoutingKey(pattern, routingKey) {
			matched = append(matched, handlers...)
		}
	}
	b.mu.RUnlock()

	for _, handler := range matched {
		handler(ctx, routingKey, payload)
	}

	b.logger.Debug("event dispatched",
		"routing_key", routingKey,
		"handlers", len(matched),
	)
	return nil
}

// Close is a no-op for the in-process bus.
func (b *InProcessEventBus) Close() error { return nil }

// matchRoutingKey implements AMQP-style topic matching for a single pattern.
func matchRoutingKey(pattern, key string) bool {
	if pattern == key || pattern == "#" {
		return true
	}
	p := strings.Split(pattern, ".")
	k := strings.Split(key, ".")
	for i, seg := range p {
		if seg == "#" {
			return true
		}
		if i >= len(k) {
			return false
		}
		if seg != "*" && seg != k[i] {
			return false
		}
	}
	return len(p) == len(k)
}
