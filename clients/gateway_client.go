package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// GatewayError is returned when the backend answers with a non-2xx status.
type GatewayError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("upstream error: %s %s status=%d body=%s", e.Method, e.URL, e.StatusCode, e.Body)
}

// GatewayClient is a thin JSON client for the storefront REST backend.
type GatewayClient struct {
	client *http.Client
}

func NewGatewayClient(timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		client: &http.Client{Timeout: timeout},
	}
}

// NewGatewayClientWithHTTP lets tests and callers supply their own http.Client.
func NewGatewayClientWithHTTP(c *http.Client) *GatewayClient {
	return &GatewayClient{client: c}
}

func (g *GatewayClient) Do(ctx context.Context, method, rawURL string, query url.Values, body io.Reader) (*http.Response, error) {
	u := rawURL
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return g.client.Do(req)
}

// GetJSON issues a GET and decodes the response into out.
func (g *GatewayClient) GetJSON(ctx context.Context, rawURL string, query url.Values, out interface{}) error {
	resp, err := g.Do(ctx, http.MethodGet, rawURL, query, nil)
	if err != nil {
		return fmt.Errorf("GET %s: %w", rawURL, err)
	}
	return DecodeJSON(resp, out)
}

// PostJSON encodes in as the request body and decodes the response into out.
func (g *GatewayClient) PostJSON(ctx context.Context, rawURL string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	resp, err := g.Do(ctx, http.MethodPost, rawURL, nil, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("POST %s: %w", rawURL, err)
	}
	return DecodeJSON(resp, out)
}

func DecodeJSON(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		gwErr := &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.Request != nil {
			gwErr.Method = resp.Request.Method
			gwErr.URL = resp.Request.URL.String()
		}
		return gwErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
