package source

import (
	"context"

	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/opentracing/opentracing-go"
)

// NewTracingClient returns a new instance of a tracing Client.
func NewTracingClient(c Client) Client {
	return &tracingClient{c, "source"}
}

type tracingClient struct {
	Client Client
	prefix string
}

func (c *tracingClient) GetSources(ctx context.Context, build *api.Build, sourceDir string) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName(c.prefix, "GetSources"))
	defer func() { api.FinishSpanWithError(span, err) }()
	span.SetTag("source-type", build.SourceType)

	return c.Client.GetSources(ctx, build, sourceDir)
}
