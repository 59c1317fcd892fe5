package events

import (
	"context"
	"errors"
	"time"

	"storefront-service/models"

	"github.com/google/uuid"
)

const EventOrderPlaced = "order.placed"

// OrderEventPublisher announces accepted orders to downstream consumers.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error
}

// NewOrderPlacedEvent builds the event for a purchase the backend accepted.
func NewOrderPlacedEvent(purchase *models.Purchase, trackingNumber string, now time.Time) models.OrderPlacedEvent {
	return models.OrderPlacedEvent{
		EventID:             uuid.NewString(),
		EventType:           EventOrderPlaced,
		OrderTrackingNumber: trackingNumber,
		CustomerEmail:       purchase.Customer.Email,
		TotalPrice:          purchase.Order.TotalPrice,
		TotalQuantity:       purchase.Order.TotalQuantity,
		Timestamp:           now.UTC().Format(time.RFC3339),
	}
}

// Fanout publishes to every configured sink and joins their errors.
type Fanout []OrderEventPublisher

func (f Fanout) PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishOrderPlaced(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
