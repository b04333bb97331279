package pagectx

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Page-level event names
const (
	EventRouteChange  = "blog:route-change"
	EventContentReady = "blog:content-ready"
)

// Event is a dispatched notification
type Event struct {
	Name    string
	Payload any
}

// Handler receives events
type Handler func(Event)

// HandlerID identifies a subscription for Off
type HandlerID uint64

type subscription struct {
	id      HandlerID
	handler Handler
}

// Bus is a synchronous publish/subscribe channel. Handlers run in
// subscription order; a panicking handler is logged and skipped.
type Bus struct {
	mu       sync.RWMutex
	next     HandlerID
	handlers map[string][]subscription
	logger   *zap.Logger
}

// NewBus creates an empty bus
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{handlers: make(map[string][]subscription), logger: logger}
}

// On subscribes h to name
func (b *Bus) On(name string, h Handler) HandlerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.handlers[name] = append(b.handlers[name], subscription{id: b.next, handler: h})
	return b.next
}

// Off removes a subscription. It reports whether one was removed.
func (b *Bus) Off(name string, id HandlerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[name]
	for i, s := range subs {
		if s.id == id {
			b.handlers[name] = append(subs[:i:i], subs[i+1:]...)
			if len(b.handlers[name]) == 0 {
				delete(b.handlers, name)
			}
			return true
		}
	}
	return false
}

// Emit dispatches payload to every handler of name and returns how many ran
// to completion. Handlers may subscribe or unsubscribe while dispatching.
func (b *Bus) Emit(name string, payload any) int {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[name]...)
	b.mu.RUnlock()

	evt := Event{Name: name, Payload: payload}
	delivered := 0
	for _, s := range subs {
		if err := b.dispatch(s.handler, evt); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("event", name),
				zap.Uint64("handler_id", uint64(s.id)),
				zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// Subscribers returns the number of handlers for name
func (b *Bus) Subscribers(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

func (b *Bus) dispatch(h Handler, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	h(evt)
	return nil
}
