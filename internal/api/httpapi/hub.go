package httpapi

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// subscriberBuffer is the per-connection event backlog. Slow consumers
// lose events rather than stall the daemon.
const subscriberBuffer = 16

// Event kinds published on the feed.
const (
	EventAlarmUpdated = "alarm-updated"
	EventAlarmFired   = "alarm-fired"
	EventRingerState  = "ringer-state"
	EventRoutineStage = "routine-stage"
	EventAudioOwner   = "audio-owner"
)

// Event is one entry on the WebSocket feed.
type Event struct {
	// Kind names what happened.
	Kind string `json:"kind"`
	// At is when it happened.
	At time.Time `json:"at"`
	// Data carries kind-specific detail.
	Data any `json:"data,omitempty"`
}

// NewEvent stamps an event with the current time.
func NewEvent(kind string, data any) Event {
	return Event{
		Kind: kind,
		At:   time.Now(),
		Data: data,
	}
}

// AlarmPayload accompanies alarm-updated events.
type AlarmPayload struct {
	// Enabled mirrors the alarm setting after the change.
	Enabled bool `json:"enabled"`
	// Time is the wake time in "HH:MM", empty when disabled.
	Time string `json:"time,omitempty"`
	// TriggerID is the registered trigger, empty when disabled.
	TriggerID string `json:"trigger_id,omitempty"`
}

// FiredPayload accompanies alarm-fired events.
type FiredPayload struct {
	// TriggerID is the firing's identity.
	TriggerID string `json:"trigger_id"`
	// Source reports which wake path won the firing.
	Source string `json:"source"`
}

// RingerPayload accompanies ringer-state events.
type RingerPayload struct {
	// State is the ringer lifecycle state.
	State string `json:"state"`
}

// StagePayload accompanies routine-stage events.
type StagePayload struct {
	// Stage is the morning routine stage.
	Stage string `json:"stage"`
	// Error carries the stage error, empty when the stage is healthy.
	Error string `json:"error,omitempty"`
}

// OwnerPayload accompanies audio-owner events.
type OwnerPayload struct {
	// Owner names the session holder, "none" when the output is free.
	Owner string `json:"owner"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

// writePump drains the subscriber's queue onto the wire. The read loop
// notices broken connections and detaches.
func (s *subscriber) writePump() {
	for event := range s.send {
		if err := s.conn.WriteJSON(event); err != nil {
			return
		}
	}

	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Hub fans daemon events out to WebSocket subscribers.
type Hub struct {
	// mu protects subs and closed.
	mu sync.Mutex
	// subs is the live subscriber set.
	subs map[*subscriber]struct{}
	// closed refuses new subscribers after shutdown.
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[*subscriber]struct{}),
	}
}

// Publish delivers an event to every subscriber. Sends never block; a
// subscriber whose backlog is full misses the event.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.send <- event:
		default:
		}
	}
}

// Close detaches every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.send)
	}
}

// serve owns a freshly upgraded connection until it drops.
func (h *Hub) serve(conn *websocket.Conn) {
	sub := &subscriber{
		conn: conn,
		send: make(chan Event, subscriberBuffer),
	}

	if !h.add(sub) {
		_ = conn.Close()

		return
	}

	go sub.writePump()

	// Inbound frames are ignored; the read loop only detects the peer
	// going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(sub)
	_ = conn.Close()
}

func (h *Hub) add(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	h.subs[sub] = struct{}{}

	return true
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
}
