package engine

import "gonum.org/v1/gonum/spatial/r2"

// EventName identifies a kind of input event on the bus.
type EventName string

const (
	EventPointerDown EventName = "pointer:down"
	EventPointerMove EventName = "pointer:move"
	EventPointerUp   EventName = "pointer:up"
	EventWheel       EventName = "wheel"
)

// Button is the pointer button that triggered an event.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// Modifiers is a bitmask of held modifier keys.
type Modifiers uint8

const (
	ModAlt Modifiers = 1 << iota
	ModCtrl
	ModShift
	ModMeta
)

// Has reports whether all of the given modifiers are held.
func (m Modifiers) Has(mod Modifiers) bool { return m&mod == mod }

// Event carries both the raw screen position and the converted scene position.
type Event struct {
	Name      EventName
	Screen    r2.Vec
	Scene     r2.Vec
	Target    *SceneObject // topmost hit, nil if none
	Button    Button
	Modifiers Modifiers
	DeltaY    float64 // wheel only
}

// Handler receives events from the bus.
type Handler func(*Event)

// Subscription identifies one registered handler. The zero value is not subscribed.
type Subscription struct {
	name EventName
	id   uint64
}

// Valid reports whether s refers to a registration (which may since have been removed).
func (s Subscription) Valid() bool { return s.id != 0 }

type registered struct {
	id uint64
	fn Handler
}

// Bus is the scene's event registry. Handlers are removed by the Subscription
// returned from Subscribe, never by function identity.
type Bus struct {
	nextID   uint64
	handlers map[EventName][]registered
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventName][]registered)}
}

// Subscribe registers fn for name.
func (b *Bus) Subscribe(name EventName, fn Handler) Subscription {
	b.nextID++
	b.handlers[name] = append(b.handlers[name], registered{id: b.nextID, fn: fn})
	return Subscription{name: name, id: b.nextID}
}

// Unsubscribe removes the handler. It returns false if it was already gone.
func (b *Bus) Unsubscribe(s Subscription) bool {
	list := b.handlers[s.name]
	for i, h := range list {
		if h.id != s.id {
			continue
		}
		b.handlers[s.name] = append(list[:i:i], list[i+1:]...)
		if len(b.handlers[s.name]) == 0 {
			delete(b.handlers, s.name)
		}
		return true
	}
	return false
}

// Count returns the number of handlers registered for name.
func (b *Bus) Count(name EventName) int {
	return len(b.handlers[name])
}

// Emit calls the handlers registered for ev.Name in subscription order.
// Handlers added or removed during dispatch take effect on the next Emit.
func (b *Bus) Emit(ev *Event) {
	list := b.handlers[ev.Name]
	if len(list) == 0 {
		return
	}
	snapshot := make([]registered, len(list))
	copy(snapshot, list)
	for _, h := range snapshot {
		h.fn(ev)
	}
}
