package source

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

func (c *metricsClient) GetSources(ctx context.Context, build *api.Build, sourceDir string) (err error) {
	defer func(begin time.Time) { api.UpdateMetrics(c.requestCount, c.requestLatency, "GetSources", begin) }(time.Now())

	return c.Client.GetSources(ctx, build, sourceDir)
}
