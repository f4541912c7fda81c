// Package mq is the in-process event bus. Writers emit after a successful
// store operation; subscribers (the realtime hub) fan events out.
package mq

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type Index struct {
	EntityType string      `json:"entity_type"`
	Method     string      `json:"method"`
	EntityId   string      `json:"entity_id"`
	UserID     string      `json:"user_id"`
	Payload    interface{} `json:"payload,omitempty"`
}

type Handler func(eventName string, content Index)

type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it again.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Emit calls every subscriber synchronously. A nil bus drops the event.
func (b *Bus) Emit(eventName string, content Index) error {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	log.Debug().
		Str("event", eventName).
		Str("entity", content.EntityType).
		Str("id", content.EntityId).
		Int("subscribers", len(handlers)).
		Msg("emitted")
	for _, h := range handlers {
		h(eventName, content)
	}
	return nil
}
