package database

import (
	"context"

	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/rs/zerolog/log"
)

// SetBuildStatus moves the build to status and stores the transition; a regression is ignored and store errors are only logged
func SetBuildStatus(ctx context.Context, client Client, build *api.Build, status api.Status) bool {
	if !build.SetStatus(status) {
		return false
	}

	log.Ctx(ctx).Info().Str("status", string(status)).Msg("Build status changed")

	// a cancelled build still has to end up failed in the store
	if _, err := client.UpdateBuildStatus(context.WithoutCancel(ctx), *build, status); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msgf("Failed storing status %v", status)
	}

	return true
}
