package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarfarm/internal/types"
)

// mockCloudWatchClient records PutMetricData calls for verification.
type mockCloudWatchClient struct {
	mu        sync.Mutex
	calls     []*cloudwatch.PutMetricDataInput
	returnErr error
}

func (m *mockCloudWatchClient) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, params)
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func newTestCollector(cw CloudWatchClient) *Collector {
	c := NewCollector(cw, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return c
}

func dimValue(t *testing.T, dims []cwtypes.Dimension, name string) string {
	t.Helper()
	for _, d := range dims {
		if *d.Name == name {
			return *d.Value
		}
	}
	t.Fatalf("dimension %q not found", name)
	return ""
}

func TestCollector_RecordRequest(t *testing.T) {
	cw := &mockCloudWatchClient{}
	c := newTestCollector(cw)

	c.RecordRequest("POST", "/v1/estimates", "200", 42*time.Millisecond)
	assert.Equal(t, 2, c.Pending())
	assert.Empty(t, cw.calls, "recording must not publish")

	require.NoError(t, c.Flush(context.Background()))
	require.Len(t, cw.calls, 1)

	in := cw.calls[0]
	assert.Equal(t, types.MetricNamespace, *in.Namespace)
	require.Len(t, in.MetricData, 2)

	count, latency := in.MetricData[0], in.MetricData[1]
	assert.Equal(t, types.MetricAPIRequestCount, *count.MetricName)
	assert.Equal(t, 1.0, *count.Value)
	assert.Equal(t, cwtypes.StandardUnitCount, count.Unit)

	assert.Equal(t, types.MetricAPILatency, *latency.MetricName)
	assert.Equal(t, 42.0, *latency.Value)
	assert.Equal(t, cwtypes.StandardUnitMilliseconds, latency.Unit)
	assert.Equal(t, "/v1/estimates", dimValue(t, latency.Dimensions, types.DimEndpoint))
	assert.Equal(t, "POST", dimValue(t, latency.Dimensions, types.DimMethod))
	assert.Equal(t, "200", dimValue(t, latency.Dimensions, types.DimStatus))
	assert.Equal(t, 2026, count.Timestamp.Year())

	assert.Zero(t, c.Pending())
}

func TestCollector_RecordEstimateAndLookup(t *testing.T) {
	cw := &mockCloudWatchClient{}
	c := newTestCollector(cw)

	c.RecordEstimate(types.OutcomeZeroRevenue)
	c.RecordSunlightLookup("table", types.OutcomeOK)
	require.NoError(t, c.Flush(context.Background()))

	data := cw.calls[0].MetricData
	require.Len(t, data, 2)
	assert.Equal(t, types.MetricEstimate, *data[0].MetricName)
	assert.Equal(t, types.OutcomeZeroRevenue, dimValue(t, data[0].Dimensions, types.DimOutcome))
	assert.Equal(t, types.MetricSunlightLookup, *data[1].MetricName)
	assert.Equal(t, "table", dimValue(t, data[1].Dimensions, types.DimSource))
}

func TestCollector_FlushChunks(t *testing.T) {
	cw := &mockCloudWatchClient{}
	c := newTestCollector(cw)

	for i := 0; i < maxDatumsPerCall+5; i++ {
		c.RecordEstimate(types.OutcomeOK)
	}
	require.NoError(t, c.Flush(context.Background()))

	require.Len(t, cw.calls, 2)
	assert.Len(t, cw.calls[0].MetricData, maxDatumsPerCall)
	assert.Len(t, cw.calls[1].MetricData, 5)
}

func TestCollector_FlushEmpty(t *testing.T) {
	cw := &mockCloudWatchClient{}
	require.NoError(t, newTestCollector(cw).Flush(context.Background()))
	assert.Empty(t, cw.calls)
}

func TestCollector_FlushError(t *testing.T) {
	cw := &mockCloudWatchClient{returnErr: errors.New("throttled")}
	c := newTestCollector(cw)
	c.RecordEstimate(types.OutcomeOK)

	err := c.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	assert.Zero(t, c.Pending(), "failed datums are dropped")
}

func TestCollector_CustomNamespace(t *testing.T) {
	cw := &mockCloudWatchClient{}
	c := NewCollector(cw, "SolarFarmDev", slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.RecordEstimate(types.OutcomeOK)
	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, "SolarFarmDev", *cw.calls[0].Namespace)
}

func TestCollector_ConcurrentRecord(t *testing.T) {
	c := newTestCollector(&mockCloudWatchClient{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordRequest("GET", "/health", "200", time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, c.Pending())
}
