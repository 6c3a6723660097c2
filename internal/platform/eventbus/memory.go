package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("event bus is closed")

// MemoryBus delivers events to subscribers in the same process.
type MemoryBus struct {
	mu     sync.Mutex
	closed bool
	nextID uint64
	subs   map[string]map[uint64]*memorySubscription
}

type memorySubscription struct {
	ch     chan []byte
	closed bool
}

// NewMemoryBus returns an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[uint64]*memorySubscription)}
}

// Publish delivers event to every current subscriber of topic. Slow
// subscribers drop the event rather than block the publisher.
func (b *MemoryBus) Publish(ctx context.Context, topic string, event any) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("topic is required")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, sub := range b.subs[topic] {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- data:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for an exact topic.
func (b *MemoryBus) Subscribe(topic string) (<-chan []byte, func(), error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, nil, errors.New("topic is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrClosed
	}
	b.nextID++
	id := b.nextID
	sub := &memorySubscription{ch: make(chan []byte, subscriptionBuffer)}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]*memorySubscription)
	}
	b.subs[topic][id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.dropLocked(topic, id)
		})
	}
	return sub.ch, cancel, nil
}

// Subscribers reports how many live subscriptions exist for topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

// Close closes every subscription channel and rejects further use.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.subs {
		for id := range subs {
			b.dropLocked(topic, id)
		}
	}
	return nil
}

func (b *MemoryBus) dropLocked(topic string, id uint64) {
	subs := b.subs[topic]
	sub, ok := subs[id]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(b.subs, topic)
	}
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}
