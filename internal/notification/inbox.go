// Package notification delivers user facing messages of completion sessions
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/assessment-bulk/internal/application/port"
)

// Message levels
const (
	LevelSuccess        = "success"
	LevelError          = "error"
	LevelConnectionLost = "connection_lost"
)

// MsgConnectionLost is shown when the backend could not be reached
const MsgConnectionLost = "Internet connection was lost. Please check your connection and try again."

// Message is one notice shown to the user of a session
type Message struct {
	Level string    `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// Inbox queues the notices of one session until the client fetches them.
// The oldest notices are dropped beyond capacity.
type Inbox struct {
	mu       sync.Mutex
	messages []Message
	capacity int
}

// NewInbox creates an inbox holding at most capacity messages
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = 50
	}
	return &Inbox{capacity: capacity}
}

var _ port.Notifier = (*Inbox)(nil)

// Success implements port.Notifier
func (i *Inbox) Success(ctx context.Context, message string) {
	i.push(LevelSuccess, message)
}

// Error implements port.Notifier
func (i *Inbox) Error(ctx context.Context, message string) {
	i.push(LevelError, message)
}

// ConnectionLost implements port.Notifier
func (i *Inbox) ConnectionLost(ctx context.Context) {
	i.push(LevelConnectionLost, MsgConnectionLost)
}

// Drain returns the queued messages and empties the inbox
func (i *Inbox) Drain() []Message {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := i.messages
	i.messages = nil
	if out == nil {
		out = []Message{}
	}
	return out
}

// Len returns the number of queued messages
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.messages)
}

func (i *Inbox) push(level, text string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.messages = append(i.messages, Message{Level: level, Text: text, At: time.Now()})
	if over := len(i.messages) - i.capacity; over > 0 {
		i.messages = append([]Message(nil), i.messages[over:]...)
	}
}

// Hub owns the inboxes of all sessions
type Hub struct {
	mu       sync.Mutex
	inboxes  map[string]*Inbox
	capacity int
}

// NewHub creates a hub whose inboxes hold capacity messages each
func NewHub(capacity int) *Hub {
	return &Hub{
		inboxes:  make(map[string]*Inbox),
		capacity: capacity,
	}
}

// For returns the inbox of a session, creating it on first use
func (h *Hub) For(sessionID string) *Inbox {
	h.mu.Lock()
	defer h.mu.Unlock()

	inbox, ok := h.inboxes[sessionID]
	if !ok {
		inbox = NewInbox(h.capacity)
		h.inboxes[sessionID] = inbox
	}
	return inbox
}

// Drain empties the inbox of a session
func (h *Hub) Drain(sessionID string) []Message {
	return h.For(sessionID).Drain()
}

// Remove forgets the inbox of a session
func (h *Hub) Remove(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inboxes, sessionID)
}
