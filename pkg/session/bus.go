package session

import "sync"

// Event is a typed notification emitted by the coordinator. UI layers
// subscribe to the bus instead of binding to coordinator internals.
type Event interface{ sessionEvent() }

// StateEvent reports a state transition.
type StateEvent struct {
	From, To State
}

// LevelEvent carries a real-time amplitude level while recording.
type LevelEvent struct {
	Level float32
}

// DeliveredEvent reports text handed to the insertion controller.
type DeliveredEvent struct {
	Text string
}

// SavedEvent reports a persisted meeting record.
type SavedEvent struct {
	MeetingID string
}

// ErrorEvent reports a session failure.
type ErrorEvent struct {
	Err error
}

func (StateEvent) sessionEvent()     {}
func (LevelEvent) sessionEvent()     {}
func (DeliveredEvent) sessionEvent() {}
func (SavedEvent) sessionEvent()     {}
func (ErrorEvent) sessionEvent()     {}

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// that stops draining loses events rather than stalling the pipeline.
type Bus struct {
	mu   sync.Mutex
	subs []chan Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber with the given channel buffer.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers e to every subscriber that has room.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
