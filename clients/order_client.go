package clients

import (
	"context"
	"errors"

	"storefront-service/models"
)

// OrderGateway places orders with the backend.
type OrderGateway interface {
	PlaceOrder(ctx context.Context, purchase *models.Purchase) (*models.PurchaseResponse, error)
}

type OrderClient struct {
	gateway   *GatewayClient
	ordersURL string
}

func NewOrderClient(gateway *GatewayClient, ordersURL string) *OrderClient {
	return &OrderClient{gateway: gateway, ordersURL: ordersURL}
}

func (c *OrderClient) PlaceOrder(ctx context.Context, purchase *models.Purchase) (*models.PurchaseResponse, error) {
	var resp models.PurchaseResponse
	if err := c.gateway.PostJSON(ctx, c.ordersURL, purchase, &resp); err != nil {
		return nil, err
	}
	if resp.OrderTrackingNumber == "" {
		return nil, errors.New("order backend returned no tracking number")
	}
	return &resp, nil
}
