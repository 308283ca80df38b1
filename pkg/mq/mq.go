package mq

import (
	"sync"

	"github.com/rs/zerolog"
)

// Topics published after a successful todo mutation.
const (
	TopicTodoCreated = "todo.created"
	TopicTodoToggled = "todo.toggled"
	TopicTodoDeleted = "todo.deleted"
)

// Publisher is the seam for forwarding todo change events to a broker.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type Subscriber interface {
	Subscribe(topic string, handler func([]byte) error) error
}

var (
	_ Publisher  = Noop{}
	_ Subscriber = (*Memory)(nil)
)

type Noop struct{}

func (Noop) Publish(topic string, payload []byte) error               { return nil }
func (Noop) Subscribe(topic string, handler func([]byte) error) error { return nil }

// LogPublisher writes every event to a logger at info level.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(topic string, payload []byte) error {
	p.Log.Info().Str("topic", topic).RawJSON("payload", payload).Msg("event")
	return nil
}

// DefaultMemoryLimit is how many recent events a Memory publisher retains.
const DefaultMemoryLimit = 1000

// Memory keeps the most recent events in process and fans them out to
// subscribers synchronously.
type Memory struct {
	mu     sync.Mutex
	limit  int
	subs   map[string][]func([]byte) error
	events []Event
}

type Event struct {
	Topic   string
	Payload []byte
}

func NewMemory() *Memory { return NewMemoryLimit(DefaultMemoryLimit) }

// NewMemoryLimit retains at most limit events; limit <= 0 means DefaultMemoryLimit.
func NewMemoryLimit(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &Memory{limit: limit, subs: map[string][]func([]byte) error{}}
}

func (m *Memory) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	m.events = append(m.events, Event{Topic: topic, Payload: payload})
	if over := len(m.events) - m.limit; over > 0 {
		m.events = append(m.events[:0:0], m.events[over:]...)
	}
	handlers := append([]func([]byte) error(nil), m.subs[topic]...)
	m.mu.Unlock()

	for _, h := range handlers {
		if err := h(payload); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Subscribe(topic string, handler func([]byte) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[topic] = append(m.subs[topic], handler)
	return nil
}

// Events returns a copy of the retained events, oldest first.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
