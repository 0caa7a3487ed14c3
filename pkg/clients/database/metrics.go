package database

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

func (c *metricsClient) ConnectWithDriverAndSource(ctx context.Context, driverName, dataSourceName string) (err error) {
	defer func(begin time.Time) { api.UpdateMetrics(c.requestCount, c.requestLatency, "ConnectWithDriverAndSource", begin) }(time.Now())

	return c.Client.ConnectWithDriverAndSource(ctx, driverName, dataSourceName)
}

func (c *metricsClient) AwaitDatabaseReadiness(ctx context.Context) (err error) {
	defer func(begin time.Time) { api.UpdateMetrics(c.requestCount, c.requestLatency, "AwaitDatabaseReadiness", begin) }(time.Now())

	return c.Client.AwaitDatabaseReadiness(ctx)
}

func (c *metricsClient) MigrateSchema(ctx context.Context) (err error) {
	defer func(begin time.Time) { api.UpdateMetrics(c.requestCount, c.requestLatency, "MigrateSchema", begin) }(time.Now())

	return c.Client.MigrateSchema(ctx)
}

func (c *metricsClient) InsertBuild(ctx context.Context, build api.Build) (err error) {
	defer func(begin time.Time) { api.UpdateMetrics(c.requestCount, c.requestLatency, "InsertBuild", begin) }(time.Now())

	return c.Client.InsertBuild(ctx, build)
}

func (c *metricsClient) UpdateBuildStatus(ctx context.Context, build api.Build, status api.Status) (updated bool, err error) {
	defer func(begin time.Time) { api.UpdateMetrics(c.requestCount, c.requestLatency, "UpdateBuildStatus", begin) }(time.Now())

	return c.Client.UpdateBuildStatus(ctx, build, status)
}

func (c *metricsClient) UpdateBuildCommit(ctx context.Context, build api.Build) (err error) {
	defer func(begin time.Time) { api.UpdateMetrics(c.requestCount, c.requestLatency, "UpdateBuildCommit", begin) }(time.Now())

	return c.Client.UpdateBuildCommit(ctx, build)
}

func (c *metricsClient) FinishBuild(ctx context.Context, build api.Build, finished time.Time) (err error) {
	defer func(begin time.Time) { api.UpdateMetrics(c.requestCount, c.requestLatency, "FinishBuild", begin) }(time.Now())

	return c.Client.FinishBuild(ctx, build, finished)
}
