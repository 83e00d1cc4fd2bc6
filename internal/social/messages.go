package social

import (
	"sync"

	"github.com/google/uuid"
)

// AnonymousSender marks messages whose author must stay hidden from the
// recipient, such as blackmail notes.
const AnonymousSender = "ANON"

// Message is one inbox entry. Messages expire after the configured TTL.
type Message struct {
	ID   string `json:"id"`
	Day  int    `json:"day"`
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
	// EventRef links gossip to the event it spreads, for rumor promotion.
	EventRef string `json:"event_ref,omitempty"`
}

// Bus is the in-process message bus with day-based TTL expiry.
type Bus struct {
	mu       sync.Mutex
	messages []Message
	ttlDays  int
}

// NewBus creates a bus whose messages live for ttlDays days.
func NewBus(ttlDays int) *Bus {
	return &Bus{ttlDays: ttlDays}
}

// Send delivers a message. eventRef may be empty.
func (b *Bus) Send(day int, from, to, body, eventRef string) Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := Message{ID: uuid.NewString(), Day: day, From: from, To: to, Body: body, EventRef: eventRef}
	b.messages = append(b.messages, m)
	return m
}

// Inbox returns an agent's unexpired messages as of today, oldest first,
// bounded to the most recent max entries.
func (b *Bus) Inbox(agent string, today, max int) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.messages {
		if m.To == agent && today-m.Day < b.ttlDays {
			out = append(out, m)
		}
	}
	if max > 0 && len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}

// SentBy returns the unexpired messages an agent sent, for the gang
// leader's contact scan.
func (b *Bus) SentBy(agent string, today int) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.messages {
		if m.From == agent && today-m.Day < b.ttlDays {
			out = append(out, m)
		}
	}
	return out
}

// OnDay returns every message sent on one day, for the meeting matcher.
func (b *Bus) OnDay(day int) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.messages {
		if m.Day == day {
			out = append(out, m)
		}
	}
	return out
}

// Expire drops messages older than the TTL. The scheduler calls this once
// per day; nothing else deletes messages.
func (b *Bus) Expire(today int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.messages[:0]
	dropped := 0
	for _, m := range b.messages {
		if today-m.Day < b.ttlDays {
			kept = append(kept, m)
		} else {
			dropped++
		}
	}
	b.messages = kept
	return dropped
}

// Snapshot returns all live messages for persistence.
func (b *Bus) Snapshot() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.messages...)
}

// Restore loads persisted messages.
func (b *Bus) Restore(msgs []Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append([]Message(nil), msgs...)
}
