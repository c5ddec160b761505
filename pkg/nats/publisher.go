package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/resilience"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sony/gobreaker/v2"
)

var _ messaging.Publisher = (*NatsPublisher)(nil)

// NatsPublisher publishes events to JetStream. Each publish is retried by the
// client and guarded by a circuit breaker, so an unreachable broker fails fast.
type NatsPublisher struct {
	js      jetstream.JetStream
	breaker *gobreaker.CircuitBreaker[*jetstream.PubAck]
	opts    []jetstream.PublishOpt
}

func NewNatsPublisher(js jetstream.JetStream, cfg config.ResilienceConfig) *NatsPublisher {
	return &NatsPublisher{
		js:      js,
		breaker: resilience.NewCircuitBreaker[*jetstream.PubAck]("nats-publisher", cfg.CircuitBreaker, isSuccessful),
		opts: []jetstream.PublishOpt{
			jetstream.WithRetryAttempts(cfg.Retry.MaxAttempts),
			jetstream.WithRetryWait(cfg.Retry.InitialBackoff),
		},
	}
}

func (p *NatsPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	opts := append([]jetstream.PublishOpt{jetstream.WithMsgID(event.Key())}, p.opts...)
	_, err = p.breaker.Execute(func() (*jetstream.PubAck, error) {
		return p.js.Publish(ctx, event.Subject(), data, opts...)
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Subject(), err)
	}
	return nil
}

// isSuccessful keeps caller cancellations from tripping the breaker.
func isSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
