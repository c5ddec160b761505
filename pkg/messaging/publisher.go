// Package messaging defines the event contract between the storefront and its broker.
package messaging

import (
	"context"
)

// CheckoutsCompletedSubject carries one message per completed checkout.
const CheckoutsCompletedSubject = "checkouts.completed"

type Event interface {
	Subject() string
	// Key identifies the event for broker side de-duplication.
	Key() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
