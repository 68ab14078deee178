// Package pubsub receives event messages from a Google Cloud Pub/Sub
// subscription.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"seattle-events/internal/ingest"
)

// MessageHandler processes one message body.
type MessageHandler func(ctx context.Context, payload []byte) error

type Subscriber struct {
	client *pubsub.Client
	sub    *pubsub.Subscription
	logger *slog.Logger
}

func NewSubscriber(ctx context.Context, projectID, subscriptionID string, logger *slog.Logger, opts ...option.ClientOption) (*Subscriber, error) {
	if projectID == "" || subscriptionID == "" {
		return nil, errors.New("pubsub project and subscription are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	sub := client.Subscription(subscriptionID)
	sub.ReceiveSettings.MaxOutstandingMessages = 100
	sub.ReceiveSettings.NumGoroutines = 1

	return &Subscriber{client: client, sub: sub, logger: logger}, nil
}

// Run blocks until ctx is done. Messages are acked when stored or when they
// can never be stored; other failures are nacked for redelivery.
func (s *Subscriber) Run(ctx context.Context, handler MessageHandler) error {
	s.logger.Info("receiving from pubsub subscription", "subscription", s.sub.String())
	err := s.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		err := handler(ctx, msg.Data)
		if ingest.Retryable(err) {
			s.logger.Warn("nacking pubsub message", "message_id", msg.ID, "error", err)
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("pubsub receive: %w", err)
	}
	return nil
}

func (s *Subscriber) Close() error {
	return s.client.Close()
}
