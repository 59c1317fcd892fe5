package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"golang.org/x/sync/singleflight"
)

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient reads Secrets Manager values once per process. Concurrent
// first reads of the same secret share one request; failures are not cached.
type SecretsClient struct {
	client   secretsAPI
	inflight singleflight.Group

	mu     sync.RWMutex
	values map[string]string
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return newSecretsClient(secretsmanager.NewFromConfig(cfg))
}

func newSecretsClient(api secretsAPI) *SecretsClient {
	return &SecretsClient{client: api, values: make(map[string]string)}
}

// Secret returns the string value of the named secret.
func (s *SecretsClient) Secret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	v, ok := s.values[name]
	s.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := s.inflight.Do(name, func() (interface{}, error) {
		out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(name)})
		if err != nil {
			return "", fmt.Errorf("read secret %s: %w", name, err)
		}
		if out.SecretString == nil {
			return "", fmt.Errorf("read secret %s: binary secrets are not supported", name)
		}
		s.mu.Lock()
		s.values[name] = *out.SecretString
		s.mu.Unlock()
		return *out.SecretString, nil
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// SecretJSON decodes a secret holding a flat JSON object of strings.
func (s *SecretsClient) SecretJSON(ctx context.Context, name string) (map[string]string, error) {
	raw, err := s.Secret(ctx, name)
	if err != nil {
		return nil, err
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("secret %s is not a flat JSON object: %w", name, err)
	}
	return fields, nil
}
