package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	foundation "github.com/estafette/estafette-foundation"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/clients/database/queries"
	_ "github.com/lib/pq" // use postgres client library to connect to cockroachdb
	"github.com/rs/zerolog/log"
)

var (
	// ErrMissingBuildID is returned if a build is updated without an id
	ErrMissingBuildID = errors.New("the build has no id")
)

// Client is the interface for storing the dispatch state of builds
//
//go:generate mockgen -package=database -destination ./mock.go -source=client.go
type Client interface {
	Connect(ctx context.Context) (err error)
	ConnectWithDriverAndSource(ctx context.Context, driverName, dataSourceName string) (err error)
	AwaitDatabaseReadiness(ctx context.Context) (err error)
	MigrateSchema(ctx context.Context) (err error)

	InsertBuild(ctx context.Context, build api.Build) (err error)
	UpdateBuildStatus(ctx context.Context, build api.Build, status api.Status) (updated bool, err error)
	UpdateBuildCommit(ctx context.Context, build api.Build) (err error)
	FinishBuild(ctx context.Context, build api.Build, finished time.Time) (err error)
}

// NewClient returns a new database.Client; if the database is disabled all calls are no-ops
func NewClient(config *api.APIConfig) Client {
	if config == nil || config.Database == nil || !config.Database.Enable {
		return &client{
			enabled: false,
		}
	}

	return &client{
		enabled:        true,
		databaseDriver: "postgres",
		config:         config,
	}
}

type client struct {
	enabled            bool
	databaseDriver     string
	config             *api.APIConfig
	databaseConnection *sql.DB
}

// Connect sets up a connection with CockroachDB
func (c *client) Connect(ctx context.Context) (err error) {
	if !c.enabled {
		return nil
	}

	log.Debug().Msgf("Connecting to database %v on host %v...", c.config.Database.DatabaseName, c.config.Database.Host)

	return c.ConnectWithDriverAndSource(ctx, c.databaseDriver, dataSourceName(c.config.Database))
}

func dataSourceName(config *api.DatabaseConfig) string {
	userAndPassword := config.User
	if config.Password != "" {
		userAndPassword += ":" + config.Password
	}

	if config.Insecure {
		return fmt.Sprintf("postgresql://%v@%v:%v/%v?sslmode=disable", userAndPassword, config.Host, config.Port, config.DatabaseName)
	}

	return fmt.Sprintf("postgresql://%v@%v:%v/%v?sslmode=%v", userAndPassword, config.Host, config.Port, config.DatabaseName, config.SslMode)
}

// ConnectWithDriverAndSource set up a connection with any database
func (c *client) ConnectWithDriverAndSource(_ context.Context, driverName, dataSourceName string) (err error) {
	if !c.enabled {
		return nil
	}

	log.Debug().Msgf("Opening database connection with driver %v...", driverName)
	c.databaseConnection, err = sql.Open(driverName, dataSourceName)
	if err != nil {
		return
	}

	if c.config.Database.MaxOpenConns > 0 {
		log.Debug().Msgf("Setting max open connections to database to %v...", c.config.Database.MaxOpenConns)
		c.databaseConnection.SetMaxOpenConns(c.config.Database.MaxOpenConns)
	}

	if c.config.Database.MaxIdleConns > 0 {
		log.Debug().Msgf("Setting max idle connections to database to %v...", c.config.Database.MaxIdleConns)
		c.databaseConnection.SetMaxIdleConns(c.config.Database.MaxIdleConns)
	}

	if c.config.Database.ConnMaxLifetimeMinutes > 0 {
		log.Debug().Msgf("Setting max lifetime for connections to database to %v minutes...", c.config.Database.ConnMaxLifetimeMinutes)
		c.databaseConnection.SetConnMaxLifetime(time.Duration(c.config.Database.ConnMaxLifetimeMinutes) * time.Minute)
	}

	return
}

func (c *client) AwaitDatabaseReadiness(ctx context.Context) (err error) {
	if !c.enabled {
		return nil
	}

	return foundation.Retry(func() error {
		log.Debug().Msg("Checking if database is ready...")
		return c.databaseConnection.PingContext(ctx)
	}, foundation.Attempts(12), foundation.DelayMillisecond(5000), foundation.Fixed())
}

// MigrateSchema creates the builds table if it doesn't exist yet
func (c *client) MigrateSchema(ctx context.Context) (err error) {
	if !c.enabled {
		return nil
	}

	_, err = c.databaseConnection.ExecContext(ctx, queries.CreateBuilds)
	return
}

func (c *client) InsertBuild(ctx context.Context, build api.Build) (err error) {
	if !c.enabled {
		return nil
	}
	if build.ID == "" {
		return ErrMissingBuildID
	}

	_, err = insertBuildQuery(build).RunWith(c.databaseConnection).ExecContext(ctx)
	return
}

// UpdateBuildStatus only moves a build forward; updated is false if the stored status already ranks equal or higher
func (c *client) UpdateBuildStatus(ctx context.Context, build api.Build, status api.Status) (updated bool, err error) {
	if !c.enabled {
		return false, nil
	}
	if build.ID == "" {
		return false, ErrMissingBuildID
	}

	result, err := updateBuildStatusQuery(build, status).RunWith(c.databaseConnection).ExecContext(ctx)
	if err != nil {
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return
	}

	return rowsAffected > 0, nil
}

func (c *client) UpdateBuildCommit(ctx context.Context, build api.Build) (err error) {
	if !c.enabled {
		return nil
	}
	if build.ID == "" {
		return ErrMissingBuildID
	}

	_, err = updateBuildCommitQuery(build).RunWith(c.databaseConnection).ExecContext(ctx)
	return
}

func (c *client) FinishBuild(ctx context.Context, build api.Build, finished time.Time) (err error) {
	if !c.enabled {
		return nil
	}
	if build.ID == "" {
		return ErrMissingBuildID
	}

	_, err = finishBuildQuery(build, finished).RunWith(c.databaseConnection).ExecContext(ctx)
	return
}

func insertBuildQuery(build api.Build) sq.InsertBuilder {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	status := build.Status
	if status == "" {
		status = api.StatusScheduled
	}

	return psql.
		Insert("builds").
		Columns("id", "user_name", "project", "source_url", "source_type", "branch", "commit", "forced_distro", "status", "created_at").
		Values(build.ID, build.User, build.Project, build.SourceURL, build.SourceType, nullableString(build.Branch), nullableString(build.Commit), nullableString(build.ForcedDistro), string(status), build.Created).
		Suffix("ON CONFLICT (user_name, project, id) DO NOTHING")
}

func updateBuildStatusQuery(build api.Build, status api.Status) sq.UpdateBuilder {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	// turn into string array so query works as expected
	allowedStatusesToTransitionFrom := make([]string, 0)
	for _, s := range api.StatusesBelow(status) {
		allowedStatusesToTransitionFrom = append(allowedStatusesToTransitionFrom, string(s))
	}

	return psql.
		Update("builds").
		Set("status", string(status)).
		Set("updated_at", sq.Expr("now()")).
		Where(buildKey(build)).
		Where(sq.Eq{"status": allowedStatusesToTransitionFrom})
}

func updateBuildCommitQuery(build api.Build) sq.UpdateBuilder {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	return psql.
		Update("builds").
		Set("branch", nullableString(build.Branch)).
		Set("commit", nullableString(build.Commit)).
		Set("committer_name", nullableString(build.CommitterName)).
		Set("committer_email", nullableString(build.CommitterEmail)).
		Set("message", nullableString(build.Message)).
		Set("updated_at", sq.Expr("now()")).
		Where(buildKey(build))
}

func finishBuildQuery(build api.Build, finished time.Time) sq.UpdateBuilder {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	return psql.
		Update("builds").
		Set("finished_at", finished).
		Set("updated_at", sq.Expr("now()")).
		Where(buildKey(build))
}

// buildKey selects a single build; build ids are only unique within a project
func buildKey(build api.Build) sq.Eq {
	return sq.Eq{
		"user_name": build.User,
		"project":   build.Project,
		"id":        build.ID,
	}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
