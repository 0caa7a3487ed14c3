package broker

import (
	"context"

	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
)

// NewLoggingClient returns a new instance of a logging Client.
func NewLoggingClient(c Client) Client {
	return &loggingClient{c, "broker"}
}

type loggingClient struct {
	Client Client
	prefix string
}

func (c *loggingClient) Connect(ctx context.Context) (err error) {
	defer func() { api.HandleLogError(c.prefix, "Client", "Connect", err) }()

	return c.Client.Connect(ctx)
}

func (c *loggingClient) Close(ctx context.Context) {
	c.Client.Close(ctx)
}

func (c *loggingClient) DeclareQueue(ctx context.Context, queue string) (err error) {
	defer func() { api.HandleLogError(c.prefix, "Client", "DeclareQueue", err) }()

	return c.Client.DeclareQueue(ctx, queue)
}

func (c *loggingClient) Publish(ctx context.Context, queue string, message api.TaskMessage) (err error) {
	defer func() { api.HandleLogError(c.prefix, "Client", "Publish", err) }()

	return c.Client.Publish(ctx, queue, message)
}
