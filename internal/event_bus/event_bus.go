package event_bus

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType is an identifier for events, e.g. "allowance.week.confirmed".
type EventType string

// Event is the envelope published on the bus. Data holds any payload type.
type Event struct {
	ctx       context.Context
	Type      EventType
	Timestamp time.Time
	Data      any
}

// NewEvent creates an Event stamped with the current time.
func NewEvent(ctx context.Context, eventType EventType, data any) Event {
	return Event{
		ctx:       ctx,
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// Context returns the context of the publishing request. Handlers carry out their work
// with it so the session and cancellation of the request reach them.
func (e Event) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

// EventT is the envelope passed to typed handlers.
type EventT[T any] struct {
	ctx       context.Context
	Type      EventType
	Timestamp time.Time
	Data      T
}

func (e EventT[T]) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

type subscriber struct {
	id uint64
	h  func(Event) error
}

// EventBus dispatches events synchronously. Handlers of one event type run one after
// another in the order they subscribed, inside Publish.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]subscriber
	nextID      uint64
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]subscriber),
	}
}

// Subscribe registers h for eventType and returns a function that removes it again.
func (eb *EventBus) Subscribe(eventType EventType, h func(Event) error) (unsubscribe func()) {
	eb.mu.Lock()
	eb.nextID++
	id := eb.nextID
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber{id: id, h: h})
	eb.mu.Unlock()

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()

		remaining := slices.DeleteFunc(slices.Clone(eb.subscribers[eventType]), func(s subscriber) bool {
			return s.id == id
		})
		if len(remaining) == 0 {
			delete(eb.subscribers, eventType)
			return
		}
		eb.subscribers[eventType] = remaining
	}
}

// SubscribeTyped registers a handler for payloads of type T. Events of the same type
// carrying another payload type are skipped.
//
// It is a free function because methods cannot declare type parameters.
//
//	event_bus.SubscribeTyped(bus, event_bus.WeekConfirmedEvent,
//	    func(e event_bus.EventT[event_bus.WeekConfirmed]) error {
//	        log.Infof("%s confirmed %s", e.Data.Owner, e.Data.WeekId)
//	        return nil
//	    })
func SubscribeTyped[T any](eb *EventBus, eventType EventType, h func(EventT[T]) error) (unsubscribe func()) {
	return eb.Subscribe(eventType, func(e Event) error {
		if e.Data == nil {
			log.Debugf("EventBus: nil data for event type %s, skipping typed handler", eventType)
			return nil
		}
		payload, ok := e.Data.(T)
		if !ok {
			log.Debugf("EventBus: type mismatch for event %s: expected %T, got %T", eventType, *new(T), e.Data)
			return nil
		}
		return h(EventT[T]{
			ctx:       e.ctx,
			Type:      e.Type,
			Timestamp: e.Timestamp,
			Data:      payload,
		})
	})
}

// Publish runs every handler registered for e.Type. A failing or panicking handler does
// not stop the others; all failures are joined into the returned error. Once the event
// context is cancelled the remaining handlers are skipped.
func (eb *EventBus) Publish(e Event) error {
	if err := e.Context().Err(); err != nil {
		return fmt.Errorf("event %s: context cancelled before publish: %w", e.Type, err)
	}

	eb.mu.RLock()
	handlers := slices.Clone(eb.subscribers[e.Type])
	eb.mu.RUnlock()

	var errs []error
	for _, s := range handlers {
		if err := e.Context().Err(); err != nil {
			errs = append(errs, fmt.Errorf("context cancelled during event processing: %w", err))
			break
		}
		if err := invoke(s, e); err != nil {
			log.Errorf("EventBus: handler error (ID %d) for event %s: %v", s.id, e.Type, err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("event %s: %d handler(s) failed: %w", e.Type, len(errs), errors.Join(errs...))
	}
	return nil
}

func invoke(s subscriber, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic (ID %d) for event %s: %v", s.id, e.Type, r)
		}
	}()
	return s.h(e)
}
