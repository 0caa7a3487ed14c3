package broker

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	foundation "github.com/estafette/estafette-foundation"
	"github.com/google/uuid"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotConnected is returned when declaring or publishing before Connect succeeded
	ErrNotConnected = errors.New("not connected to the message broker")
)

// Client declares durable build queues and publishes task messages to them
//
//go:generate mockgen -package=broker -destination ./mock.go -source=client.go
type Client interface {
	Connect(ctx context.Context) (err error)
	Close(ctx context.Context)
	DeclareQueue(ctx context.Context, queue string) (err error)
	Publish(ctx context.Context, queue string, message api.TaskMessage) (err error)
}

// NewClient returns a new broker.Client
func NewClient(config *api.APIConfig) Client {
	return &client{
		config:   config,
		declared: map[string]bool{},
	}
}

type client struct {
	config         *api.APIConfig
	natsConnection *nats.Conn
	jetStream      nats.JetStreamContext

	mutex    sync.Mutex
	declared map[string]bool
}

func (c *client) Connect(ctx context.Context) (err error) {
	hosts := strings.Join(c.config.Queue.Hosts, ",")

	err = foundation.Retry(func() error {
		log.Debug().Msgf("Connecting to nats servers %v...", hosts)
		c.natsConnection, err = nats.Connect(hosts, nats.Name("joulupukki-dispatcher"))
		return err
	}, foundation.Attempts(uint(c.config.Queue.ConnectAttempts)), foundation.DelayMillisecond(c.config.Queue.ConnectDelayMillisecond), foundation.Fixed())
	if err != nil {
		return errors.Wrapf(err, "connecting to %v", hosts)
	}

	c.jetStream, err = c.natsConnection.JetStream()
	if err != nil {
		return
	}

	return nil
}

func (c *client) Close(ctx context.Context) {
	if c.natsConnection != nil {
		c.natsConnection.Close()
	}
}

// DeclareQueue makes sure a durable stream captures the queue's subject; declaring a queue more than once has no further effect
func (c *client) DeclareQueue(ctx context.Context, queue string) (err error) {
	if c.jetStream == nil {
		return ErrNotConnected
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.declared[queue] {
		return nil
	}

	streamName := StreamName(c.config.Queue.Namespace, queue)

	_, err = c.jetStream.StreamInfo(streamName)
	if errors.Is(err, nats.ErrStreamNotFound) {
		log.Info().Str("queue", queue).Msgf("Creating durable stream %v", streamName)

		_, err = c.jetStream.AddStream(&nats.StreamConfig{
			Name:       streamName,
			Subjects:   []string{queue},
			Storage:    nats.FileStorage,
			Retention:  nats.WorkQueuePolicy,
			Duplicates: c.config.Queue.DuplicateWindow(),
		})
		if errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			err = nil
		}
	}
	if err != nil {
		return errors.Wrapf(err, "declaring queue %v", queue)
	}

	c.declared[queue] = true

	return nil
}

func (c *client) Publish(ctx context.Context, queue string, message api.TaskMessage) (err error) {
	if c.jetStream == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	msg := nats.NewMsg(queue)
	msg.Data = data

	_, err = c.jetStream.PublishMsg(msg, nats.MsgId(MessageID(message)))
	if err != nil {
		return errors.Wrapf(err, "publishing %v to %v", message.DistroName, queue)
	}

	return nil
}

// StreamName returns the name of the stream backing a queue; stream names can't contain dots
func StreamName(namespace, queue string) string {
	name := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(queue)
	if namespace == "" {
		return name
	}
	return namespace + "_" + name
}

// MessageID is stable for a build, distro and root folder so the broker drops republished tasks within its duplicate window
func MessageID(message api.TaskMessage) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(message.ID+"/"+message.DistroName+"/"+message.RootFolder)).String()
}
