package realtime

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event names published to event rooms.
const (
	EventRunnerUpdate = "runnerUpdate"
	EventNewScan      = "newScan"
	EventStatus       = "eventStatus"
)

// Message is one published notification.
type Message struct {
	Room    string    `json:"room"`
	Event   string    `json:"event"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// Publisher is what the timing core calls into. Delivery is at-most-once and
// Publish never blocks or fails the caller.
type Publisher interface {
	Publish(room, event string, payload any)
}

// EventRoom returns the room name for a local event.
func EventRoom(eventID string) string {
	return "event:" + eventID
}

// Nop discards every message.
type Nop struct{}

func (Nop) Publish(string, string, any) {}

// Hub is an in-process fan-out of messages to room subscribers.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Subscription]struct{}
	buffer  int
	dropped atomic.Int64
}

// NewHub creates a hub whose subscribers buffer up to buffer messages.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{rooms: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

// Subscription receives messages for one room until closed.
type Subscription struct {
	C    <-chan Message
	ch   chan Message
	room string
	hub  *Hub
	once sync.Once
}

// Subscribe registers a subscriber to room.
func (h *Hub) Subscribe(room string) *Subscription {
	ch := make(chan Message, h.buffer)
	sub := &Subscription{C: ch, ch: ch, room: room, hub: h}

	h.mu.Lock()
	subs, ok := h.rooms[room]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.rooms[room] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Close unregisters the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if subs, ok := s.hub.rooms[s.room]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.rooms, s.room)
			}
		}
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// Publish delivers to every subscriber of room. Slow subscribers lose the message.
func (h *Hub) Publish(room, event string, payload any) {
	msg := Message{Room: room, Event: event, Payload: payload, At: time.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.rooms[room] {
		select {
		case sub.ch <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of subscribers in room.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Dropped returns how many messages were discarded because a subscriber was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
