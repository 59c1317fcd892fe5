package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"

	MetricOrdersPlaced = "OrdersPlaced"
	MetricOrdersFailed = "OrdersFailed"
)

type cloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Sample is one data point waiting to be published.
type Sample struct {
	Name  string
	Value float64
	Unit  types.StandardUnit
}

// Count is a sample of one occurrence.
func Count(name string) Sample {
	return Sample{Name: name, Value: 1, Unit: types.StandardUnitCount}
}

// Millis is a duration sample in milliseconds.
func Millis(name string, d time.Duration) Sample {
	return Sample{Name: name, Value: float64(d.Milliseconds()), Unit: types.StandardUnitMilliseconds}
}

// MetricsClient publishes samples to one CloudWatch namespace. A nil or
// disabled client drops everything.
type MetricsClient struct {
	client    cloudWatchAPI
	namespace string
	enabled   bool
	now       func() time.Time
}

func NewMetricsClient(cfg sdkaws.Config, namespace string, enabled bool) *MetricsClient {
	if namespace == "" {
		namespace = "Storefront"
	}
	return &MetricsClient{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		enabled:   enabled,
		now:       time.Now,
	}
}

func (m *MetricsClient) IsEnabled() bool {
	return m != nil && m.enabled
}

// Publish sends samples that share one dimension set in a single
// PutMetricData call, all stamped with the same time.
func (m *MetricsClient) Publish(ctx context.Context, dimensions map[string]string, samples ...Sample) error {
	if !m.IsEnabled() || len(samples) == 0 {
		return nil
	}

	dims := sortedDimensions(dimensions)
	at := sdkaws.Time(m.now())
	data := make([]types.MetricDatum, len(samples))
	for i, s := range samples {
		data[i] = types.MetricDatum{
			MetricName: sdkaws.String(s.Name),
			Value:      sdkaws.Float64(s.Value),
			Unit:       s.Unit,
			Timestamp:  at,
			Dimensions: dims,
		}
	}

	if _, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(m.namespace),
		MetricData: data,
	}); err != nil {
		return fmt.Errorf("publish %d metrics to %s: %w", len(samples), m.namespace, err)
	}
	return nil
}

func sortedDimensions(dimensions map[string]string) []types.Dimension {
	names := make([]string, 0, len(dimensions))
	for name := range dimensions {
		names = append(names, name)
	}
	sort.Strings(names)

	dims := make([]types.Dimension, len(names))
	for i, name := range names {
		dims[i] = types.Dimension{Name: sdkaws.String(name), Value: sdkaws.String(dimensions[name])}
	}
	return dims
}
