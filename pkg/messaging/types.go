package messaging

import (
	"context"
	"time"

	"github.com/boristopalov/irrigation/pkg/core"
)

// Message carries one simulation step from a run to its observers
type Message struct {
	From      string   // run ID of the publisher
	To        []string // subscriber IDs (empty means broadcast)
	Record    core.StepRecord
	Timestamp time.Time
}

// Broker routes step messages from simulation runs to observers
type Broker interface {
	// Publish delivers a message to its recipients
	Publish(ctx context.Context, msg Message) error
	// Subscribe registers an observer to receive messages
	Subscribe(subscriberID string, ch chan<- Message) error
	// Unsubscribe removes an observer's subscription
	Unsubscribe(subscriberID string) error
}
