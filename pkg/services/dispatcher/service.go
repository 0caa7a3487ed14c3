package dispatcher

import (
	"context"

	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/clients/broker"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/clients/database"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/services/manifest"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMissingBuildType is returned if a selected manifest entry has no type; nothing of that manifest is published
	ErrMissingBuildType = errors.New("invalid build configuration: no type present")
)

// Service fans a resolved manifest out into one task message per distro
//
//go:generate mockgen -package=dispatcher -destination ./mock.go -source=service.go
type Service interface {
	Dispatch(ctx context.Context, build *api.Build, m manifest.Manifest, rootFolder string) (err error)
}

// NewService returns a new dispatcher.Service
func NewService(config *api.APIConfig, brokerClient broker.Client, databaseClient database.Client) Service {
	return &service{
		config:         config,
		brokerClient:   brokerClient,
		databaseClient: databaseClient,
	}
}

type service struct {
	config         *api.APIConfig
	brokerClient   broker.Client
	databaseClient database.Client
}

type task struct {
	distro      string
	builderType string
	config      api.BuildConfig
}

func (s *service) Dispatch(ctx context.Context, build *api.Build, m manifest.Manifest, rootFolder string) (err error) {
	logger := log.Ctx(ctx)

	database.SetBuildStatus(ctx, s.databaseClient, build, api.StatusDispatching)

	tasks, err := selectTasks(build, m, rootFolder)
	if err != nil {
		return
	}

	snapshot, err := build.Dumps()
	if err != nil {
		return errors.Wrap(err, "serializing build")
	}

	for _, t := range tasks {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		queue := api.QueueName(t.builderType)

		err = s.brokerClient.DeclareQueue(ctx, queue)
		if err != nil {
			logger.Error().Err(err).Str("distro", t.distro).Msgf("Can't declare queue %v", queue)
			continue
		}

		message := api.TaskMessage{
			DistroName: t.distro,
			BuildConf:  t.config.Enrich(t.distro, build.Branch, rootFolder),
			RootFolder: rootFolder,
			LogPath:    build.LogPath(s.config.Workspace.Path),
			ID:         build.ID,
			Build:      snapshot,
		}

		err = s.brokerClient.Publish(ctx, queue, message)
		if err != nil {
			logger.Error().Err(err).Str("distro", t.distro).Msgf("Can't post message to %v", queue)
			continue
		}

		logger.Info().Str("distro", t.distro).Msgf("Posted build to %v", queue)
	}

	database.SetBuildStatus(ctx, s.databaseClient, build, api.StatusSucceeded)
	logger.Info().Str("rootFolder", rootFolder).Msg("Packaging dispatched for all distros")

	return nil
}

// selectTasks applies the forced distro filter and checks every selected entry has a type before anything is published
func selectTasks(build *api.Build, m manifest.Manifest, rootFolder string) ([]task, error) {
	tasks := make([]task, 0, len(m))
	for _, distro := range m.Distros() {
		if build.ForcedDistro != "" && build.ForcedDistro != distro {
			continue
		}

		config := m[distro]
		builderType, ok := config.Type()
		if !ok {
			return nil, errors.Wrapf(ErrMissingBuildType, "distro %v in root folder %q", distro, rootFolder)
		}

		tasks = append(tasks, task{
			distro:      distro,
			builderType: builderType,
			config:      config,
		})
	}
	return tasks, nil
}
