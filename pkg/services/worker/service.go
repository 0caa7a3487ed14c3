package worker

import (
	"context"
	"sync"

	"github.com/go-kit/kit/metrics"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/clients/database"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/clients/source"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/pool"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/services/dispatcher"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrServiceStopped is returned for builds started after Stop was called
	ErrServiceStopped = errors.New("worker service is stopped")
)

// Service runs a worker per build on a bounded pool
//
//go:generate mockgen -package=worker -destination ./mock.go -source=service.go
type Service interface {
	StartBuild(ctx context.Context, build api.Build) (err error)
	Stop(ctx context.Context) (err error)
}

// NewService returns a new worker.Service; workers run with ctx, cancelling it aborts in-flight builds
func NewService(ctx context.Context, config *api.APIConfig, sourceClient source.Client, dispatcherService dispatcher.Service, databaseClient database.Client, buildCounter metrics.Counter) (Service, error) {
	s := &service{
		config:            config,
		sourceClient:      sourceClient,
		dispatcherService: dispatcherService,
		databaseClient:    databaseClient,
		buildCounter:      buildCounter,
		drained:           make(chan struct{}),
	}

	var err error
	s.pool, err = pool.NewPool(ctx, pool.NewConfig(config.Jobs.MaxWorkers, config.Jobs.QueueLimit, config.Jobs.QueueLimit, 0, true, s.runBuild))
	if err != nil {
		return nil, err
	}

	go s.drainResults()

	return s, nil
}

type service struct {
	config            *api.APIConfig
	sourceClient      source.Client
	dispatcherService dispatcher.Service
	databaseClient    database.Client
	buildCounter      metrics.Counter

	pool    pool.Pool[*api.Build, Result]
	mutex   sync.RWMutex
	stopped bool
	drained chan struct{}
}

func (s *service) StartBuild(ctx context.Context, build api.Build) (err error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.stopped {
		return ErrServiceStopped
	}

	if build.Status == "" {
		build.Status = api.StatusScheduled
	}

	err = s.databaseClient.InsertBuild(ctx, build)
	if err != nil {
		log.Warn().Err(err).Str("buildID", build.ID).Msg("Failed storing scheduled build")
	}

	log.Info().Str("buildID", build.ID).Str("worker", build.WorkerName()).Msg("Build scheduled")

	s.pool.SendJobs(&build)

	return nil
}

// Stop refuses new builds and waits until the queued and running ones finished or ctx is done
func (s *service) Stop(ctx context.Context) (err error) {
	s.mutex.Lock()
	s.stopped = true
	s.mutex.Unlock()

	s.pool.Close()

	select {
	case <-s.drained:
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, jobError := range s.pool.Errors() {
		log.Error().Err(jobError.Err).Interface("build", jobError.Job).Msg("Worker crashed")
	}

	return nil
}

func (s *service) runBuild(ctx context.Context, build *api.Build) (Result, error) {
	w, err := NewWorker(s.config, build, s.sourceClient, s.dispatcherService, s.databaseClient)
	if err != nil {
		log.Error().Err(err).Str("buildID", build.ID).Msg("Creating worker failed")
		database.SetBuildStatus(ctx, s.databaseClient, build, api.StatusFailed)
		return Result{BuildID: build.ID, Worker: build.WorkerName(), Status: build.Status, Err: err}, nil
	}

	return w.Run(ctx), nil
}

func (s *service) drainResults() {
	defer close(s.drained)

	for result := range s.pool.Results() {
		s.buildCounter.With("status", string(result.Status)).Add(1)

		event := log.Info()
		if result.Err != nil {
			event = log.Warn().Err(result.Err)
		}
		event.
			Str("buildID", result.BuildID).
			Str("worker", result.Worker).
			Str("status", string(result.Status)).
			Dur("duration", result.Duration).
			Msg("Build done")
	}
}
