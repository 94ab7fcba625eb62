package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubSub publishes run reports to a Google Cloud Pub/Sub topic.
type PubSub struct {
	Client *pubsub.Client
	Topic  *pubsub.Topic
	Logger *zap.Logger
}

// NewPubSub creates a Pub/Sub client and a handle to the configured topic.
// It authenticates using Application Default Credentials and fails fast when
// the topic does not exist.
func NewPubSub(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSub, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after existence check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check topic %q: %w", topicID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after existence check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}

	return &PubSub{
		Client: client,
		Topic:  topic,
		Logger: logger,
	}, nil
}

// Publish marshals the report to JSON and publishes it, blocking until the
// server acknowledges the message.
func (p *PubSub) Publish(ctx context.Context, runID string, report any) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	msg := &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"run_id": runID},
	}

	result := p.Topic.Publish(ctx, msg)
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}

	p.logger().Debug("run report published",
		zap.String("run_id", runID), zap.String("message_id", id))
	return nil
}

func (p *PubSub) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Close stops the topic's publisher and closes the underlying client.
func (p *PubSub) Close() error {
	p.Topic.Stop()
	if err := p.Client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
