package database

import (
	"context"
	"time"

	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
)

// NewLoggingClient returns a new instance of a logging Client.
func NewLoggingClient(c Client) Client {
	return &loggingClient{c, "cockroachdb"}
}

type loggingClient struct {
	Client Client
	prefix string
}

func (c *loggingClient) Connect(ctx context.Context) (err error) {
	defer func() { api.HandleLogError(c.prefix, "Client", "Connect", err) }()

	return c.Client.Connect(ctx)
}

func (c *loggingClient) ConnectWithDriverAndSource(ctx context.Context, driverName, dataSourceName string) (err error) {
	defer func() { api.HandleLogError(c.prefix, "Client", "ConnectWithDriverAndSource", err) }()

	return c.Client.ConnectWithDriverAndSource(ctx, driverName, dataSourceName)
}

func (c *loggingClient) AwaitDatabaseReadiness(ctx context.Context) (err error) {
	defer func() { api.HandleLogError(c.prefix, "Client", "AwaitDatabaseReadiness", err) }()

	return c.Client.AwaitDatabaseReadiness(ctx)
}

func (c *loggingClient) MigrateSchema(ctx context.Context) (err error) {
	defer func() { api.HandleLogError(c.prefix, "Client", "MigrateSchema", err) }()

	return c.Client.MigrateSchema(ctx)
}

func (c *loggingClient) InsertBuild(ctx context.Context, build api.Build) (err error) {
	defer func() { api.HandleLogError(c.prefix, "Client", "InsertBuild", err) }()

	return c.Client.InsertBuild(ctx, build)
}

func (c *loggingClient) UpdateBuildStatus(ctx context.Context, build api.Build, status api.Status) (updated bool, err error) {
	defer func() { api.HandleLogError(c.prefix, "Client", "UpdateBuildStatus", err) }()

	return c.Client.UpdateBuildStatus(ctx, build, status)
}

func (c *loggingClient) UpdateBuildCommit(ctx context.Context, build api.Build) (err error) {
	defer func() { api.HandleLogError(c.prefix, "Client", "UpdateBuildCommit", err) }()

	return c.Client.UpdateBuildCommit(ctx, build)
}

func (c *loggingClient) FinishBuild(ctx context.Context, build api.Build, finished time.Time) (err error) {
	defer func() { api.HandleLogError(c.prefix, "Client", "FinishBuild", err) }()

	return c.Client.FinishBuild(ctx, build, finished)
}
