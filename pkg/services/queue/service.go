package queue

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/services/worker"
	"github.com/nats-io/nats.go"
	"github.com/opentracing/opentracing-go"
	"github.com/rs/zerolog/log"
)

// Service receives build requests from the message broker
//
//go:generate mockgen -package=queue -destination ./mock.go -source=service.go
type Service interface {
	CreateConnection(ctx context.Context) (err error)
	CloseConnection(ctx context.Context)
	InitSubscriptions(ctx context.Context) (err error)
	ReceiveBuildRequest(build *api.Build)
	PublishBuildRequest(ctx context.Context, build api.Build) (err error)
}

// NewService returns a new queue.Service
func NewService(config *api.APIConfig, workerService worker.Service) Service {
	return &service{
		config:        config,
		workerService: workerService,
		now:           time.Now,
		closed:        make(chan struct{}),
	}
}

type service struct {
	config                *api.APIConfig
	workerService         worker.Service
	natsConnection        *nats.Conn
	natsEncodedConnection *nats.EncodedConn
	now                   func() time.Time
	closed                chan struct{}
	closedOnce            sync.Once
}

func (s *service) CreateConnection(ctx context.Context) (err error) {
	s.natsConnection, err = nats.Connect(strings.Join(s.config.Queue.Hosts, ","), nats.Name(s.config.Queue.QueueGroup), nats.ClosedHandler(s.connectionClosed))
	if err != nil {
		return
	}

	s.natsEncodedConnection, err = nats.NewEncodedConn(s.natsConnection, nats.JSON_ENCODER)
	if err != nil {
		return
	}

	return nil
}

// CloseConnection drains the subscription and returns once the pending build requests have been handed to the workers or ctx is done
func (s *service) CloseConnection(ctx context.Context) {
	if s.natsEncodedConnection != nil {
		if err := s.natsEncodedConnection.Drain(); err != nil {
			log.Warn().Err(err).Msg("Failed draining nats connection")
			s.natsEncodedConnection.Close()
		}
		if err := s.awaitClosed(ctx); err != nil {
			log.Warn().Err(err).Msg("Nats connection still draining")
		}
		return
	}
	if s.natsConnection != nil {
		s.natsConnection.Close()
	}
}

func (s *service) connectionClosed(*nats.Conn) {
	s.closedOnce.Do(func() { close(s.closed) })
}

func (s *service) awaitClosed(ctx context.Context) error {
	select {
	case <-s.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *service) InitSubscriptions(ctx context.Context) (err error) {
	_, err = s.natsEncodedConnection.QueueSubscribe(s.config.Queue.SubjectBuildRequests, s.config.Queue.QueueGroup, s.ReceiveBuildRequest)
	if err != nil {
		return
	}

	return nil
}

func (s *service) ReceiveBuildRequest(build *api.Build) {
	var err error
	ctx := context.Background()
	span, ctx := opentracing.StartSpanFromContext(ctx, api.GetSpanName("queue", "ReceiveBuildRequest"))
	defer func() { api.FinishSpanWithError(span, err) }()

	if build == nil {
		log.Warn().Msg("Received empty build request from queue")
		return
	}

	if build.ID == "" {
		build.ID = uuid.New().String()
	}
	err = build.ValidateIdentifiers()
	if err != nil {
		log.Warn().Err(err).Msg("Rejected build request from queue")
		return
	}
	build.Status = api.StatusScheduled
	if build.Created.IsZero() {
		build.Created = s.now().UTC()
	}
	span.SetTag("build-id", build.ID)

	err = s.workerService.StartBuild(ctx, *build)
	if err != nil {
		log.Error().Err(err).Str("buildID", build.ID).Msgf("Failed handling build request from queue")
	}
}

func (s *service) PublishBuildRequest(ctx context.Context, build api.Build) (err error) {
	span, _ := opentracing.StartSpanFromContext(ctx, api.GetSpanName("queue", "PublishBuildRequest"))
	defer func() { api.FinishSpanWithError(span, err) }()

	return s.natsEncodedConnection.Publish(s.config.Queue.SubjectBuildRequests, &build)
}
