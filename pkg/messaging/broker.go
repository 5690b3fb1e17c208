package messaging

import (
	"context"
	"fmt"
	"sync"
)

// SimpleBroker implements Broker with one channel per subscriber
type SimpleBroker struct {
	subscribers map[string]chan<- Message
	mu          sync.RWMutex
}

// NewBroker creates a new message broker
func NewBroker() *SimpleBroker {
	return &SimpleBroker{
		subscribers: make(map[string]chan<- Message),
	}
}

// Publish sends msg to every addressed subscriber, or to everyone but the sender when To
// is empty. It blocks until each recipient takes the message or ctx is done.
func (b *SimpleBroker) Publish(ctx context.Context, msg Message) error {
	b.mu.RLock()
	recipients := make([]chan<- Message, 0, len(b.subscribers))
	if len(msg.To) == 0 {
		for id, ch := range b.subscribers {
			if id != msg.From {
				recipients = append(recipients, ch)
			}
		}
	} else {
		for _, id := range msg.To {
			if ch, ok := b.subscribers[id]; ok {
				recipients = append(recipients, ch)
			}
		}
	}
	b.mu.RUnlock()

	for _, ch := range recipients {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return fmt.Errorf("publish step %d of %s: %w", msg.Record.Step, msg.From, ctx.Err())
		}
	}
	return nil
}

// Subscribe registers a channel to receive messages
func (b *SimpleBroker) Subscribe(subscriberID string, ch chan<- Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[subscriberID]; exists {
		return fmt.Errorf("subscriber %s is already subscribed", subscriberID)
	}

	b.subscribers[subscriberID] = ch
	return nil
}

// Unsubscribe removes a subscription
func (b *SimpleBroker) Unsubscribe(subscriberID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[subscriberID]; !exists {
		return fmt.Errorf("subscriber %s is not subscribed", subscriberID)
	}

	delete(b.subscribers, subscriberID)
	return nil
}

// Subscribers returns the number of registered subscribers
func (b *SimpleBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *SimpleBroker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string]chan<- Message)
}
