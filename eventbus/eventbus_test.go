package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New(4)
	defer bus.Close()

	sub := bus.Subscribe(EventTransition)
	require.True(t, sub.IsActive())

	bus.Publish(EventError, "ignored")
	bus.Publish(EventTransition, "added")

	select {
	case data := <-sub.C:
		assert.Equal(t, "added", data)

	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestBusCloseClosesSubscriptions(t *testing.T) {
	bus := New(1)
	sub := bus.Subscribe(EventTransition)

	bus.Close()
	bus.Close()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.C:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestNilBus(t *testing.T) {
	var bus NilBus

	bus.Publish(EventTransition, "dropped")

	sub := bus.Subscribe(EventTransition)
	assert.False(t, sub.IsActive())

	_, ok := <-sub.C
	assert.False(t, ok)

	sub.Unsubscribe()
}

func TestEventIDString(t *testing.T) {
	assert.Equal(t, "transition_event", EventTransition.String())
	assert.Equal(t, uint(1), EventError.Value())
}
