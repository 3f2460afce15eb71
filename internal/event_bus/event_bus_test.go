package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishInSubscriptionOrder(t *testing.T) {
	bus := NewEventBus()
	var calls []int
	for i := 1; i <= 5; i++ {
		bus.Subscribe("test", func(e Event) error {
			calls = append(calls, i)
			return nil
		})
	}

	require.NoError(t, bus.Publish(NewEvent(context.Background(), "test", nil)))

	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	calls := 0
	unsubscribe := bus.Subscribe("test", func(e Event) error {
		calls++
		return nil
	})

	require.NoError(t, bus.Publish(NewEvent(context.Background(), "test", nil)))
	unsubscribe()
	unsubscribe()
	require.NoError(t, bus.Publish(NewEvent(context.Background(), "test", nil)))

	assert.Equal(t, 1, calls)
}

func TestEventBus_FailuresDoNotStopOtherHandlers(t *testing.T) {
	bus := NewEventBus()
	failure := errors.New("sheet unavailable")
	reached := false
	bus.Subscribe("test", func(e Event) error { return failure })
	bus.Subscribe("test", func(e Event) error { panic("boom") })
	bus.Subscribe("test", func(e Event) error {
		reached = true
		return nil
	})

	err := bus.Publish(NewEvent(context.Background(), "test", nil))

	assert.ErrorIs(t, err, failure)
	assert.ErrorContains(t, err, "2 handler(s) failed")
	assert.True(t, reached)
}

func TestEventBus_CancelledContext(t *testing.T) {
	bus := NewEventBus()
	called := false
	bus.Subscribe("test", func(e Event) error {
		called = true
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bus.Publish(NewEvent(ctx, "test", nil))

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSubscribeTyped(t *testing.T) {
	bus := NewEventBus()
	var weeks []string
	SubscribeTyped(bus, WeekConfirmedEvent, func(e EventT[WeekConfirmed]) error {
		weeks = append(weeks, e.Data.WeekId)
		return nil
	})

	require.NoError(t, bus.Publish(NewEvent(context.Background(), WeekConfirmedEvent, WeekConfirmed{WeekId: "Week 1 - 2025"})))
	require.NoError(t, bus.Publish(NewEvent(context.Background(), WeekConfirmedEvent, "not a week")))
	require.NoError(t, bus.Publish(NewEvent(context.Background(), WeekConfirmedEvent, nil)))

	assert.Equal(t, []string{"Week 1 - 2025"}, weeks)
}
