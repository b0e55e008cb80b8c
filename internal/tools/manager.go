package tools

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tarkov-debrief/debrief/internal/engine"
)

// Trigger identifies what started a temporary pan override.
type Trigger int

const (
	TriggerAlt Trigger = iota + 1
	TriggerMiddle
)

func (t Trigger) String() string {
	switch t {
	case TriggerAlt:
		return "alt"
	case TriggerMiddle:
		return "middle"
	default:
		return "unknown"
	}
}

// Panner moves the view by a screen-space delta.
type Panner interface {
	Pan(dx, dy float64)
}

type override struct {
	prev    Tool
	anchor  r2.Vec
	trigger Trigger
}

// Manager owns the current tool. At any instant at most one handler per
// pointer event is subscribed on the bus by the manager.
type Manager struct {
	bus       *engine.Bus
	panner    Panner
	behaviors map[Type]Behavior
	logger    *slog.Logger

	current  Tool
	bound    Behavior // behavior whose handlers are installed, nil during a pan override
	subs     []engine.Subscription
	override *override

	onSwitch func(Tool)
}

// NewManager creates a manager with no tool installed.
func NewManager(bus *engine.Bus, panner Panner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		bus:       bus,
		panner:    panner,
		behaviors: make(map[Type]Behavior),
		logger:    logger,
	}
}

// Register associates a behavior with a tool type.
func (m *Manager) Register(t Type, b Behavior) {
	m.behaviors[t] = b
}

// Current returns the tool in effect.
func (m *Manager) Current() Tool { return m.current }

// OnSwitch sets a callback run after every tool change, including overrides.
func (m *Manager) OnSwitch(fn func(Tool)) {
	m.onSwitch = fn
}

// Select installs t with its default cursor.
func (m *Manager) Select(t Type) error {
	return m.SelectWithCursor(t, "")
}

// SelectWithCursor installs t, replacing whatever handlers are on the bus.
// An empty cursor picks the behavior's own cursor or the default. Selecting
// during an override swaps the installed tool; releasing the override still
// restores the tool saved when it began.
func (m *Manager) SelectWithCursor(t Type, cursor string) error {
	b, ok := m.behaviors[t]
	if !ok {
		return fmt.Errorf("select %q: %w", t, ErrInvalidTool)
	}
	if cursor == "" {
		cursor = cursorFor(t, b)
	}

	m.uninstall()
	m.install(b)
	m.current = Tool{Type: t, Cursor: cursor}
	m.logger.Debug("tool selected", "tool", t)
	m.switched()
	return nil
}

// BeginOverride temporarily switches to panning. It is ignored while another
// override is in effect.
func (m *Manager) BeginOverride(trigger Trigger, anchor r2.Vec) bool {
	if m.override != nil {
		return false
	}
	m.override = &override{prev: m.current, anchor: anchor, trigger: trigger}
	m.uninstall()
	m.subs = append(m.subs, m.bus.Subscribe(engine.EventPointerMove, m.overrideMove))
	m.current = Tool{Type: Pan, Active: true, Cursor: "grabbing"}
	m.logger.Debug("pan override started", "trigger", trigger, "previous", m.override.prev.Type)
	m.switched()
	return true
}

// EndOverride restores the tool saved by BeginOverride, including its cursor
// and active flag. Only the trigger that started the override can end it.
func (m *Manager) EndOverride(trigger Trigger) bool {
	if m.override == nil || m.override.trigger != trigger {
		return false
	}
	prev := m.override.prev
	m.override = nil

	m.uninstall()
	if b, ok := m.behaviors[prev.Type]; ok {
		m.install(b)
	}
	m.current = prev
	m.logger.Debug("pan override ended", "trigger", trigger, "restored", prev.Type)
	m.switched()
	return true
}

// Overridden reports whether a pan override is in effect.
func (m *Manager) Overridden() bool { return m.override != nil }

func (m *Manager) install(b Behavior) {
	m.bound = b
	m.subs = append(m.subs,
		m.bus.Subscribe(engine.EventPointerDown, func(ev *engine.Event) {
			m.current.Active = true
			b.PointerDown(ev)
		}),
		m.bus.Subscribe(engine.EventPointerMove, func(ev *engine.Event) {
			b.PointerMove(ev, m.current.Active)
		}),
		m.bus.Subscribe(engine.EventPointerUp, func(ev *engine.Event) {
			b.PointerUp(ev)
			m.current.Active = false
		}),
	)
}

// uninstall removes exactly the subscriptions this manager added.
func (m *Manager) uninstall() {
	for _, s := range m.subs {
		m.bus.Unsubscribe(s)
	}
	m.subs = m.subs[:0]
	if m.bound != nil {
		b := m.bound
		m.bound = nil
		b.Deactivate()
	}
}

func (m *Manager) overrideMove(ev *engine.Event) {
	o := m.override
	if o == nil {
		return
	}
	d := r2.Sub(ev.Screen, o.anchor)
	o.anchor = ev.Screen
	if m.panner != nil && (d.X != 0 || d.Y != 0) {
		m.panner.Pan(d.X, d.Y)
	}
}

func (m *Manager) switched() {
	if m.onSwitch != nil {
		m.onSwitch(m.current)
	}
}

func cursorFor(t Type, b Behavior) string {
	if c, ok := b.(Cursorer); ok {
		if cur := c.Cursor(); cur != "" {
			return cur
		}
	}
	return DefaultCursor(t)
}
