package source

import (
	"context"

	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
)

// NewLoggingClient returns a new instance of a logging Client.
func NewLoggingClient(c Client) Client {
	return &loggingClient{c, "source"}
}

type loggingClient struct {
	Client Client
	prefix string
}

func (c *loggingClient) GetSources(ctx context.Context, build *api.Build, sourceDir string) (err error) {
	defer func() { api.HandleLogError(c.prefix, "Client", "GetSources", err) }()

	return c.Client.GetSources(ctx, build, sourceDir)
}
