package broker

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
)

// NewMetricsClient returns a new instance of a metrics Client.
func NewMetricsClient(c Client, requestCount metrics.Counter, requestLatency metrics.Histogram) Client {
	return &metricsClient{c, requestCount, requestLatency}
}

type metricsClient struct {
	Client         Client
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
}

func (c *metricsClient) Connect(ctx context.Context) (err error) {
	defer func(begin time.Time) { api.UpdateMetrics(c.requestCount, c.requestLatency, "Connect", begin) }(time.Now())

	return c.Client.Connect(ctx)
}

func (c *metricsClient) Close(ctx context.Context) {
	c.Client.Close(ctx)
}

func (c *metricsClient) DeclareQueue(ctx context.Context, queue string) (err error) {
	defer func(begin time.Time) { api.UpdateMetrics(c.requestCount, c.requestLatency, "DeclareQueue", begin) }(time.Now())

	return c.Client.DeclareQueue(ctx, queue)
}

func (c *metricsClient) Publish(ctx context.Context, queue string, message api.TaskMessage) (err error) {
	defer func(begin time.Time) { api.UpdateMetrics(c.requestCount, c.requestLatency, "Publish", begin) }(time.Now())

	return c.Client.Publish(ctx, queue, message)
}
