package database

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/stretchr/testify/assert"
)

func TestUpdateBuildStatusQuery(t *testing.T) {
	t.Run("OnlyTransitionsFromLowerRankedStatuses", func(t *testing.T) {

		build := api.Build{ID: "8", User: "titilambert", Project: "kaji"}

		// act
		query, args, err := updateBuildStatusQuery(build, api.StatusDispatching).ToSql()

		assert.Nil(t, err)
		assert.Equal(t, "UPDATE builds SET status = $1, updated_at = now() WHERE id = $2 AND project = $3 AND user_name = $4 AND status IN ($5,$6,$7)", query)
		assert.Equal(t, []interface{}{"dispatching", "8", "kaji", "titilambert", "scheduled", "clonning", "reading"}, args)
	})

	t.Run("AllowsFailedFromSucceeded", func(t *testing.T) {

		// act
		_, args, err := updateBuildStatusQuery(api.Build{ID: "8", User: "titilambert", Project: "kaji"}, api.StatusFailed).ToSql()

		assert.Nil(t, err)
		assert.Contains(t, args, "succeeded")
		assert.Contains(t, args, "dispatching")
	})

	t.Run("NeverTransitionsToScheduled", func(t *testing.T) {

		// act
		query, _, err := updateBuildStatusQuery(api.Build{ID: "8", User: "titilambert", Project: "kaji"}, api.StatusScheduled).ToSql()

		assert.Nil(t, err)
		assert.Contains(t, query, "(1=0)")
	})
}

func TestInsertBuildQuery(t *testing.T) {
	t.Run("IgnoresDuplicateIDsWithinProject", func(t *testing.T) {

		build := getBuild()

		// act
		query, _, err := insertBuildQuery(build).ToSql()

		assert.Nil(t, err)
		assert.Contains(t, query, "INSERT INTO builds")
		assert.Contains(t, query, "ON CONFLICT (user_name, project, id) DO NOTHING")
	})

	t.Run("DefaultsStatusToScheduled", func(t *testing.T) {

		build := getBuild()
		build.Status = ""

		// act
		_, args, err := insertBuildQuery(build).ToSql()

		assert.Nil(t, err)
		assert.Equal(t, "scheduled", args[8])
	})

	t.Run("StoresEmptyBranchAsNull", func(t *testing.T) {

		build := getBuild()
		build.Branch = ""

		// act
		_, args, err := insertBuildQuery(build).ToSql()

		assert.Nil(t, err)
		assert.Equal(t, nullableString(""), args[5])
		assert.False(t, nullableString("").Valid)
	})
}

func TestFinishBuildQuery(t *testing.T) {
	t.Run("SetsFinishedAt", func(t *testing.T) {

		finished := time.Date(2015, 12, 24, 23, 0, 0, 0, time.UTC)

		build := api.Build{ID: "8", User: "titilambert", Project: "kaji"}

		// act
		query, args, err := finishBuildQuery(build, finished).ToSql()

		assert.Nil(t, err)
		assert.Equal(t, "UPDATE builds SET finished_at = $1, updated_at = now() WHERE id = $2 AND project = $3 AND user_name = $4", query)
		assert.Equal(t, []interface{}{finished, "8", "kaji", "titilambert"}, args)
	})
}

func TestUpdateBuildCommitQuery(t *testing.T) {
	t.Run("OnlyUpdatesBuildOfSameProject", func(t *testing.T) {

		build := api.Build{ID: "1", User: "titilambert", Project: "kaji", Commit: "e83c5163316f89bfbde7d9ab23ca2e25604af290"}

		// act
		query, args, err := updateBuildCommitQuery(build).ToSql()

		assert.Nil(t, err)
		assert.Contains(t, query, "WHERE id = $6 AND project = $7 AND user_name = $8")
		assert.Equal(t, []interface{}{"1", "kaji", "titilambert"}, args[5:])
	})
}

func TestBuildKey(t *testing.T) {
	t.Run("DistinguishesSameIDInOtherProjects", func(t *testing.T) {

		first := api.Build{ID: "1", User: "titilambert", Project: "kaji"}
		second := api.Build{ID: "1", User: "titilambert", Project: "shinken"}

		// act
		_, firstArgs, err := finishBuildQuery(first, time.Time{}).ToSql()
		assert.Nil(t, err)
		_, secondArgs, err := finishBuildQuery(second, time.Time{}).ToSql()
		assert.Nil(t, err)

		assert.NotEqual(t, firstArgs, secondArgs)
	})
}

func TestDataSourceName(t *testing.T) {
	t.Run("DisablesSslIfInsecure", func(t *testing.T) {

		config := &api.DatabaseConfig{User: "dispatcher", Password: "secret", Host: "db", Port: 26257, DatabaseName: "joulupukki", Insecure: true}

		// act
		dsn := dataSourceName(config)

		assert.Equal(t, "postgresql://dispatcher:secret@db:26257/joulupukki?sslmode=disable", dsn)
	})

	t.Run("UsesSslModeIfSecure", func(t *testing.T) {

		config := &api.DatabaseConfig{User: "root", Host: "db", Port: 26257, DatabaseName: "joulupukki", SslMode: "verify-full"}

		// act
		dsn := dataSourceName(config)

		assert.Equal(t, "postgresql://root@db:26257/joulupukki?sslmode=verify-full", dsn)
	})
}

func TestDisabledClient(t *testing.T) {
	t.Run("DoesNothingIfDatabaseIsDisabled", func(t *testing.T) {

		config := &api.APIConfig{}
		config.SetDefaults()
		databaseClient := NewClient(config)
		ctx := context.Background()

		// act
		err := databaseClient.Connect(ctx)
		assert.Nil(t, err)
		err = databaseClient.InsertBuild(ctx, getBuild())
		assert.Nil(t, err)
		updated, err := databaseClient.UpdateBuildStatus(ctx, getBuild(), api.StatusCloning)

		assert.Nil(t, err)
		assert.False(t, updated)
	})
}

func TestIntegrationUpdateBuildStatus(t *testing.T) {
	t.Run("MovesInsertedBuildForward", func(t *testing.T) {

		if testing.Short() {
			t.Skip("skipping test in short mode.")
		}

		ctx := context.Background()
		databaseClient := getDatabaseClient(ctx, t)
		build := getBuild()
		err := databaseClient.InsertBuild(ctx, build)
		assert.Nil(t, err)

		// act
		updated, err := databaseClient.UpdateBuildStatus(ctx, build, api.StatusCloning)

		assert.Nil(t, err)
		assert.True(t, updated)
	})

	t.Run("IgnoresRegression", func(t *testing.T) {

		if testing.Short() {
			t.Skip("skipping test in short mode.")
		}

		ctx := context.Background()
		databaseClient := getDatabaseClient(ctx, t)
		build := getBuild()
		err := databaseClient.InsertBuild(ctx, build)
		assert.Nil(t, err)
		_, err = databaseClient.UpdateBuildStatus(ctx, build, api.StatusSucceeded)
		assert.Nil(t, err)

		// act
		updated, err := databaseClient.UpdateBuildStatus(ctx, build, api.StatusReading)

		assert.Nil(t, err)
		assert.False(t, updated)
	})
}

func TestIntegrationFinishBuild(t *testing.T) {
	t.Run("SetsCompletionTimeAndCommit", func(t *testing.T) {

		if testing.Short() {
			t.Skip("skipping test in short mode.")
		}

		ctx := context.Background()
		databaseClient := getDatabaseClient(ctx, t)
		build := getBuild()
		err := databaseClient.InsertBuild(ctx, build)
		assert.Nil(t, err)
		build.Commit = "e83c5163316f89bfbde7d9ab23ca2e25604af290"
		build.CommitterName = "Santa Claus"

		// act
		err = databaseClient.UpdateBuildCommit(ctx, build)
		assert.Nil(t, err)
		err = databaseClient.FinishBuild(ctx, build, time.Now().UTC())

		assert.Nil(t, err)
	})
}

func getBuild() api.Build {
	return api.Build{
		ID:         uuid.New().String(),
		User:       "titilambert",
		Project:    "kaji",
		SourceURL:  "https://github.com/kaji-project/kaji.git",
		SourceType: api.SourceTypeGit,
		Branch:     "master",
		Status:     api.StatusScheduled,
		Created:    time.Now().UTC(),
	}
}

var dbTestClient Client
var dbTestClientMutex = &sync.Mutex{}

func getDatabaseClient(ctx context.Context, t *testing.T) Client {

	dbTestClientMutex.Lock()
	defer dbTestClientMutex.Unlock()

	if dbTestClient != nil {
		return dbTestClient
	}

	databaseName := "defaultdb"
	if os.Getenv("DB_DATABASE") != "" {
		databaseName = os.Getenv("DB_DATABASE")
	}
	host := "joulupukki-db-public"
	if os.Getenv("DB_HOST") != "" {
		host = os.Getenv("DB_HOST")
	}
	insecure := true
	if os.Getenv("DB_INSECURE") != "" {
		dbInsecure, err := strconv.ParseBool(os.Getenv("DB_INSECURE"))
		if err == nil {
			insecure = dbInsecure
		}
	}
	port := 26257
	if os.Getenv("DB_PORT") != "" {
		dbPort, err := strconv.Atoi(os.Getenv("DB_PORT"))
		if err == nil {
			port = dbPort
		}
	}
	user := "root"
	if os.Getenv("DB_USER") != "" {
		user = os.Getenv("DB_USER")
	}

	apiConfig := &api.APIConfig{
		Database: &api.DatabaseConfig{
			Enable:       true,
			DatabaseName: databaseName,
			Host:         host,
			Insecure:     insecure,
			Port:         port,
			User:         user,
			Password:     os.Getenv("DB_PASSWORD"),
		},
	}

	apiConfig.SetDefaults()

	dbTestClient = NewClient(apiConfig)
	err := dbTestClient.Connect(ctx)
	assert.Nil(t, err)

	err = dbTestClient.MigrateSchema(ctx)
	assert.Nil(t, err)

	return dbTestClient
}

func TestSetBuildStatus(t *testing.T) {
	t.Run("StoresForwardTransition", func(t *testing.T) {

		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		databaseClient := NewMockClient(ctrl)
		databaseClient.EXPECT().UpdateBuildStatus(gomock.Any(), gomock.Any(), api.StatusCloning).
			DoAndReturn(func(ctx context.Context, build api.Build, status api.Status) (bool, error) {
				assert.Equal(t, "8", build.ID)
				return true, nil
			}).Times(1)
		build := &api.Build{ID: "8", Status: api.StatusScheduled}

		// act
		changed := SetBuildStatus(context.Background(), databaseClient, build, api.StatusCloning)

		assert.True(t, changed)
		assert.Equal(t, api.StatusCloning, build.Status)
	})

	t.Run("SkipsStoreForRegression", func(t *testing.T) {

		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		databaseClient := NewMockClient(ctrl)
		databaseClient.EXPECT().UpdateBuildStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		build := &api.Build{ID: "8", Status: api.StatusFailed}

		// act
		changed := SetBuildStatus(context.Background(), databaseClient, build, api.StatusSucceeded)

		assert.False(t, changed)
		assert.Equal(t, api.StatusFailed, build.Status)
	})

	t.Run("KeepsInMemoryStatusIfStoreFails", func(t *testing.T) {

		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		databaseClient := NewMockClient(ctrl)
		databaseClient.EXPECT().UpdateBuildStatus(gomock.Any(), gomock.Any(), api.StatusFailed).Return(false, errors.New("connection refused"))
		build := &api.Build{ID: "8", Status: api.StatusReading}

		// act
		changed := SetBuildStatus(context.Background(), databaseClient, build, api.StatusFailed)

		assert.True(t, changed)
		assert.Equal(t, api.StatusFailed, build.Status)
	})
	t.Run("StoresTransitionOfCancelledBuild", func(t *testing.T) {

		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		databaseClient := NewMockClient(ctrl)
		databaseClient.EXPECT().UpdateBuildStatus(gomock.Any(), gomock.Any(), api.StatusFailed).
			DoAndReturn(func(ctx context.Context, build api.Build, status api.Status) (bool, error) {
				assert.Nil(t, ctx.Err())
				return true, nil
			}).Times(1)
		build := &api.Build{ID: "8", Status: api.StatusCloning}

		// act
		changed := SetBuildStatus(ctx, databaseClient, build, api.StatusFailed)

		assert.True(t, changed)
	})
}
