package broker

import (
	"context"

	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/opentracing/opentracing-go"
)

// NewTracingClient returns a new instance of a tracing Client.
func NewTracingClient(c Client) Client {
	return &tracingClient{c, "broker"}
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

func (c *tracingClient) Close(ctx context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName(c.prefix, "Close"))
	defer func() { api.FinishSpan(span) }()

	c.Client.Close(ctx)
}

func (c *tracingClient) DeclareQueue(ctx context.Context, queue string) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName(c.prefix, "DeclareQueue"))
	defer func() { api.FinishSpanWithError(span, err) }()
	span.SetTag("queue", queue)

	return c.Client.DeclareQueue(ctx, queue)
}

func (c *tracingClient) Publish(ctx context.Context, queue string, message api.TaskMessage) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName(c.prefix, "Publish"))
	defer func() { api.FinishSpanWithError(span, err) }()
	span.SetTag("queue", queue)
	span.SetTag("distro", message.DistroName)
	span.SetTag("build-id", message.ID)

	return c.Client.Publish(ctx, queue, message)
}
