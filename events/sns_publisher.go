package events

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront-service/models"

	awspkg "storefront-service/pkg/aws"
)

type SNSPublisher struct {
	client   awspkg.SNSPublisher
	topicARN string
}

func NewSNSPublisher(client awspkg.SNSPublisher, topicARN string) (*SNSPublisher, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("ORDER_EVENTS_SNS_TOPIC_ARN not set")
	}
	return &SNSPublisher{client: client, topicARN: topicARN}, nil
}

func (p *SNSPublisher) PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return p.client.Publish(ctx, p.topicARN, msgBytes, map[string]string{
		"event_type": event.EventType,
	})
}
