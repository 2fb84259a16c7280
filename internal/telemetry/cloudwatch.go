// Package telemetry buffers request and estimation metrics and publishes
// them to CloudWatch.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"solarfarm/internal/types"
)

// maxDatumsPerCall is the PutMetricData limit on MetricData entries.
const maxDatumsPerCall = 1000

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// NewCloudWatchClient builds an SDK client for region. endpointURL may be
// empty; otherwise it overrides the service endpoint (LocalStack).
func NewCloudWatchClient(ctx context.Context, region, endpointURL string) (*cloudwatch.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for CloudWatch (region=%s): %w", region, err)
	}
	return cloudwatch.NewFromConfig(cfg, func(o *cloudwatch.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
		}
	}), nil
}

// Collector accumulates metric datums in memory. Nothing is sent until
// Flush, so recording never blocks a request on the network. Safe for
// concurrent use.
type Collector struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []cwtypes.MetricDatum
}

// NewCollector returns a Collector publishing to namespace. An empty
// namespace falls back to types.MetricNamespace.
func NewCollector(client CloudWatchClient, namespace string, logger *slog.Logger) *Collector {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &Collector{
		client:    client,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

func (c *Collector) add(datums ...cwtypes.MetricDatum) {
	ts := c.now()
	for i := range datums {
		datums[i].Timestamp = aws.Time(ts)
	}
	c.mu.Lock()
	c.pending = append(c.pending, datums...)
	c.mu.Unlock()
}

// RecordRequest records one API call: a count and a latency datum, both
// dimensioned by endpoint, method and status.
func (c *Collector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dim(types.DimEndpoint, endpoint),
		dim(types.DimMethod, method),
		dim(types.DimStatus, status),
	}
	c.add(
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
	)
}

// RecordEstimate counts an estimate by outcome (ok, never, zero_revenue, invalid).
func (c *Collector) RecordEstimate(outcome string) {
	c.add(cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricEstimate),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dim(types.DimOutcome, outcome)},
	})
}

// RecordSunlightLookup counts a city lookup by source (table, http) and outcome.
func (c *Collector) RecordSunlightLookup(source, outcome string) {
	c.add(cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricSunlightLookup),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dim(types.DimSource, source),
			dim(types.DimOutcome, outcome),
		},
	})
}

// Pending returns the number of buffered datums.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Flush publishes buffered datums in chunks of maxDatumsPerCall. Datums from
// chunks that fail are dropped and the first error is returned; metrics are
// best effort.
func (c *Collector) Flush(ctx context.Context) error {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	var firstErr error
	for start := 0; start < len(batch); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(batch))
		_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(c.namespace),
			MetricData: batch[start:end],
		})
		if err != nil {
			c.logger.Error("failed to publish metrics",
				"error", err.Error(),
				"namespace", c.namespace,
				"datums", end-start,
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("put metric data: %w", err)
			}
		}
	}
	return firstErr
}

// Discard is a recorder that drops everything. Used when metrics are disabled.
type Discard struct{}

func (Discard) RecordRequest(string, string, string, time.Duration) {}
func (Discard) RecordEstimate(string)                              {}
func (Discard) RecordSunlightLookup(string, string)                {}
