package installer

import (
	"sync"
	"time"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/domain/revalidate"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/shared/id"
)

// historySize is how many recent events are kept for reconnecting clients
const historySize = 64

// EventType names a lifecycle transition
type EventType string

const (
	EventInstalled     EventType = "installed"
	EventUninstalled   EventType = "uninstalled"
	EventEnabled       EventType = "enabled"
	EventDisabled      EventType = "disabled"
	EventActivated     EventType = "activated"
	EventConfigChanged EventType = "config_changed"
	EventPolicyChanged EventType = "policy_changed"
	EventRevalidated   EventType = "revalidated"
)

// Event is published after every successful state change
type Event struct {
	ID           id.EventID           `json:"id"`
	Type         EventType            `json:"type"`
	PluginID     string               `json:"pluginId,omitempty"`
	At           time.Time            `json:"at"`
	Revalidation *revalidate.Decision `json:"revalidation,omitempty"`
}

// broker fans events out to subscribers without blocking publishers
type broker struct {
	mu      sync.RWMutex
	next    int
	subs    map[int]chan Event
	ids     *id.Generator
	history []Event
}

func newBroker() *broker {
	return &broker{subs: make(map[int]chan Event), ids: id.Default()}
}

func (b *broker) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *broker) publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	evt.ID = b.ids.NewEvent()
	if len(b.history) == historySize {
		copy(b.history, b.history[1:])
		b.history = b.history[:historySize-1]
	}
	b.history = append(b.history, evt)

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Slow subscriber; drop rather than stall the admin call
		}
	}
}

// since returns retained events published after the event named after.
// An unknown or empty id returns the whole history.
func (b *broker) since(after string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	for i, evt := range b.history {
		if string(evt.ID) == after {
			start = i + 1
			break
		}
	}
	out := make([]Event, len(b.history)-start)
	copy(out, b.history[start:])
	return out
}

// Subscribe streams lifecycle events until the returned cancel func is called
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	return m.events.subscribe(buffer)
}

// EventsSince returns recent events published after the given event id, oldest
// first. Only the last few dozen events are retained.
func (m *Manager) EventsSince(after string) []Event {
	return m.events.since(after)
}
