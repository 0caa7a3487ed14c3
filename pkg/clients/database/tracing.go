package database

import (
	"context"
	"time"

	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/opentracing/opentracing-go"
)

// NewTracingClient returns a new instance of a tracing Client.
func NewTracingClient(c Client) Client {
	return &tracingClient{c, "cockroachdb"}
}

type tracingClient struct {
	Client Client
	prefix string
}

func (c *tracingClient) Connect(ctx context.Context) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName(c.prefix, "Connect"))
	defer func() { api.FinishSpanWithError(span, err) }()

	return c.Client.Connect(ctx)
}

func (c *tracingClient) ConnectWithDriverAndSource(ctx context.Context, driverName, dataSourceName string) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName(c.prefix, "ConnectWithDriverAndSource"))
	defer func() { api.FinishSpanWithError(span, err) }()

	return c.Client.ConnectWithDriverAndSource(ctx, driverName, dataSourceName)
}

func (c *tracingClient) AwaitDatabaseReadiness(ctx context.Context) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName(c.prefix, "AwaitDatabaseReadiness"))
	defer func() { api.FinishSpanWithError(span, err) }()

	return c.Client.AwaitDatabaseReadiness(ctx)
}

func (c *tracingClient) MigrateSchema(ctx context.Context) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName(c.prefix, "MigrateSchema"))
	defer func() { api.FinishSpanWithError(span, err) }()

	return c.Client.MigrateSchema(ctx)
}

func (c *tracingClient) InsertBuild(ctx context.Context, build api.Build) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName(c.prefix, "InsertBuild"))
	defer func() { api.FinishSpanWithError(span, err) }()
	span.SetTag("build-id", build.ID)

	return c.Client.InsertBuild(ctx, build)
}

func (c *tracingClient) UpdateBuildStatus(ctx context.Context, build api.Build, status api.Status) (updated bool, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName(c.prefix, "UpdateBuildStatus"))
	defer func() { api.FinishSpanWithError(span, err) }()
	span.SetTag("build-id", build.ID)

	return c.Client.UpdateBuildStatus(ctx, build, status)
}

func (c *tracingClient) UpdateBuildCommit(ctx context.Context, build api.Build) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName(c.prefix, "UpdateBuildCommit"))
	defer func() { api.FinishSpanWithError(span, err) }()
	span.SetTag("build-id", build.ID)

	return c.Client.UpdateBuildCommit(ctx, build)
}

func (c *tracingClient) FinishBuild(ctx context.Context, build api.Build, finished time.Time) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName(c.prefix, "FinishBuild"))
	defer func() { api.FinishSpanWithError(span, err) }()
	span.SetTag("build-id", build.ID)

	return c.Client.FinishBuild(ctx, build, finished)
}
