package clients

import (
	"context"
	"net/url"

	"storefront-service/models"
)

// ReferenceGateway serves the country and region lists used by checkout.
type ReferenceGateway interface {
	Countries(ctx context.Context) ([]models.Country, error)
	Regions(ctx context.Context, countryCode string) ([]models.Region, error)
}

type getResponseCountries struct {
	Embedded struct {
		Countries []models.Country `json:"countries"`
	} `json:"_embedded"`
}

type getResponseStates struct {
	Embedded struct {
		States []models.Region `json:"states"`
	} `json:"_embedded"`
}

type ReferenceClient struct {
	gateway      *GatewayClient
	countriesURL string
	statesURL    string
}

func NewReferenceClient(gateway *GatewayClient, countriesURL, statesURL string) *ReferenceClient {
	return &ReferenceClient{
		gateway:      gateway,
		countriesURL: countriesURL,
		statesURL:    statesURL,
	}
}

func (c *ReferenceClient) Countries(ctx context.Context) ([]models.Country, error) {
	var resp getResponseCountries
	if err := c.gateway.GetJSON(ctx, c.countriesURL, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Embedded.Countries, nil
}

func (c *ReferenceClient) Regions(ctx context.Context, countryCode string) ([]models.Region, error) {
	var resp getResponseStates
	q := url.Values{"code": []string{countryCode}}
	if err := c.gateway.GetJSON(ctx, c.statesURL+"/search/findByCountryCode", q, &resp); err != nil {
		return nil, err
	}
	return resp.Embedded.States, nil
}
