package middleware

import (
	"context"
	"strconv"
	"time"

	"storefront-service/metrics"
	awspkg "storefront-service/pkg/aws"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request counts and latency in prometheus and, when
// enabled, CloudWatch. Either sink may be nil.
func MetricsMiddleware(server *metrics.ServerMetrics, cw *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		// Route template, so path parameters do not explode label cardinality.
		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}

		if server != nil {
			server.Requests.WithLabelValues(handler, strconv.Itoa(statusCode)).Inc()
			server.LatencyMS.WithLabelValues(handler).Observe(float64(duration.Milliseconds()))
		}

		if !cw.IsEnabled() {
			return
		}
		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    handler,
			"Status":  statusCodeToRange(statusCode),
		}

		samples := []awspkg.Sample{
			awspkg.Count(awspkg.MetricHTTPRequests),
			awspkg.Millis(awspkg.MetricHTTPLatency, duration),
		}
		switch {
		case statusCode >= 500:
			samples = append(samples, awspkg.Count(awspkg.MetricHTTPErrors), awspkg.Count(awspkg.MetricHTTP5xx))
		case statusCode >= 400:
			samples = append(samples, awspkg.Count(awspkg.MetricHTTPErrors), awspkg.Count(awspkg.MetricHTTP4xx))
		}

		// Off the request path; the response is already written.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = cw.Publish(ctx, dimensions, samples...)
		}()
	}
}

// statusCodeToRange converts status code to a range string (2xx, 3xx, 4xx, 5xx)
func statusCodeToRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
