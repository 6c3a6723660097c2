// Package eventbus carries small JSON events between request handlers and
// long-lived listeners, either in process or over NATS.
package eventbus

import (
	"context"
	"strings"
)

// Publisher publishes JSON-encoded events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives events from the bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// Bus is both ends of the event bus.
type Bus interface {
	Publisher
	Subscriber
}

// subscriptionBuffer bounds undelivered payloads per subscription.
const subscriptionBuffer = 16

// Open returns a NATS bus when url is set and an in-process bus otherwise.
func Open(url string) (Bus, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return NewMemoryBus(), nil
	}
	return NewNATSBus(url)
}
