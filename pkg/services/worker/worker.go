package worker

import (
	"context"
	"os"
	"time"

	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/clients/database"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/clients/source"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/services/dispatcher"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/services/manifest"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotADirectory is returned if the build folder path exists but isn't a directory
	ErrNotADirectory = errors.New("build folder path is not a directory")
)

// Result is what a worker reports once its build reached its final status
type Result struct {
	BuildID  string
	Worker   string
	Status   api.Status
	Err      error
	Duration time.Duration
}

// Worker takes one build from its sources to the builder queues
type Worker struct {
	build             *api.Build
	config            *api.APIConfig
	sourceClient      source.Client
	dispatcherService dispatcher.Service
	databaseClient    database.Client
	logger            zerolog.Logger
	now               func() time.Time
}

// NewWorker creates the folder owned by the build and returns a worker for it
func NewWorker(config *api.APIConfig, build *api.Build, sourceClient source.Client, dispatcherService dispatcher.Service, databaseClient database.Client) (*Worker, error) {
	if err := build.ValidateIdentifiers(); err != nil {
		return nil, err
	}

	w := &Worker{
		build:             build,
		config:            config,
		sourceClient:      sourceClient,
		dispatcherService: dispatcherService,
		databaseClient:    databaseClient,
		logger: log.With().
			Str("worker", build.WorkerName()).
			Str("buildID", build.ID).
			Str("user", build.User).
			Str("project", build.Project).
			Logger(),
		now: time.Now,
	}

	folder := build.FolderPath(config.Workspace.Path)
	err := os.MkdirAll(folder, 0755)
	if err != nil {
		if info, statErr := os.Stat(folder); statErr == nil && !info.IsDir() {
			return nil, errors.Wrapf(ErrNotADirectory, "%v should be a folder", folder)
		}
		return nil, errors.Wrapf(err, "creating build folder %v", folder)
	}

	return w, nil
}

// Run executes the lifecycle of the build; failures end up in the build status, never in a panic
func (w *Worker) Run(ctx context.Context) (result Result) {
	begin := w.now()
	ctx = w.logger.WithContext(ctx)

	defer func() {
		w.build.Finishing(w.now().UTC())
		if err := w.databaseClient.FinishBuild(context.WithoutCancel(ctx), *w.build, *w.build.Finished); err != nil {
			w.logger.Warn().Err(err).Msg("Failed storing completion time")
		}

		result.BuildID = w.build.ID
		result.Worker = w.build.WorkerName()
		result.Status = w.build.Status
		result.Duration = w.now().Sub(begin)

		w.logger.Info().Str("status", string(w.build.Status)).Msg("Finished")
	}()

	w.logger.Info().Msg("Started")
	w.setStatus(ctx, api.StatusCloning)

	if result.Err = ctx.Err(); result.Err != nil {
		return w.fail(ctx, result.Err, "Cancelled before fetching sources")
	}

	sourceDir := w.build.SourceFolderPath(w.config.Workspace.Path)
	if result.Err = w.sourceClient.GetSources(ctx, w.build, sourceDir); result.Err != nil {
		return w.fail(ctx, result.Err, "Fetching sources failed")
	}

	if err := w.databaseClient.UpdateBuildCommit(ctx, *w.build); err != nil {
		w.logger.Warn().Err(err).Msg("Failed storing commit details")
	}

	if result.Err = ctx.Err(); result.Err != nil {
		return w.fail(ctx, result.Err, "Cancelled before reading manifest")
	}

	w.logger.Debug().Msgf("Read %v", manifest.ManifestFileName)
	w.setStatus(ctx, api.StatusReading)

	result.Err = manifest.Resolve(sourceDir, func(m manifest.Manifest, rootFolder string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return w.dispatcherService.Dispatch(ctx, w.build, m, rootFolder)
	})
	if result.Err != nil {
		return w.fail(ctx, result.Err, "Dispatching failed")
	}

	return result
}

func (w *Worker) fail(ctx context.Context, err error, msg string) Result {
	w.logger.Error().Err(err).Msg(msg)
	w.setStatus(ctx, api.StatusFailed)
	return Result{Err: err}
}

func (w *Worker) setStatus(ctx context.Context, status api.Status) {
	database.SetBuildStatus(ctx, w.databaseClient, w.build, status)
}
