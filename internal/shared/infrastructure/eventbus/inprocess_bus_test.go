package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInProcessEventBus_PublishDispatchesToSubscribers(t *testing.T) {
	bus := NewInProcessEventBus(nil)

	var received []string
	bus.Subscribe("scheduling.conflict.detected", func(ctx context.Context, routingKey string, payload []byte) {
		received = append(received, string(payload))
	})

	err := bus.Publish(context.Background(), "scheduling.conflict.detected", []byte("one"))
	assert.NoError(t, err)
	err = bus.Publish(context.Background(), "scheduling.conflict.resolved", []byte("two"))
	assert.NoError(t, err)

	assert.Equal(t, []string{"one"}, received)
}

func TestInProcessEventBus_WildcardPatterns(t *testing.T) {
	bus := NewInProcessEventBus(nil)

	var star, hash int
	bus.Subscribe("scheduling.conflict.*", func(ctx context.Context, routingKey string, payload []byte) {
		star++
	})
	bus.Subscribe("scheduling.#", func(ctx context.Context, routingKey string, payload []byte) {
		hash++
	})

	_ = bus.Publish(context.Background(), "scheduling.conflict.detected", nil)
	_ = bus.Publish(context.Background(), "scheduling.assignment.reassigned", nil)

	assert.Equal(t, 1, star)
	assert.Equal(t, 2, hash)
}

func TestMatchRoutingKey(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"a.b.c", "a.b.c", true},
		{"a.b.c", "a.b.d", false},
		{"a.*.c", "a.b.c", true},
		{"a.*", "a.b.c", false},
		{"a.#", "a.b.c", true},
		{"#", "anything", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchRoutingKey(tt.pattern, tt.key), "%s vs %s", tt.pattern, tt.key)
	}
}
