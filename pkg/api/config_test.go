package api

import (
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
)

func TestReadConfigFromFile(t *testing.T) {

	t.Run("ReturnsConfigWithoutErrors", func(t *testing.T) {

		configReader := newConfigReaderWithLookuper(envconfig.MapLookuper(map[string]string{}))

		// act
		_, err := configReader.ReadConfigFromFile("test-config.yaml")

		assert.Nil(t, err)
	})

	t.Run("ReturnsWorkspaceConfig", func(t *testing.T) {

		configReader := newConfigReaderWithLookuper(envconfig.MapLookuper(map[string]string{}))

		// act
		config, err := configReader.ReadConfigFromFile("test-config.yaml")

		assert.Nil(t, err)
		assert.Equal(t, "/var/lib/joulupukki/output", config.Workspace.Path)
	})

	t.Run("ReturnsDockerConfig", func(t *testing.T) {

		configReader := newConfigReaderWithLookuper(envconfig.MapLookuper(map[string]string{}))

		// act
		config, err := configReader.ReadConfigFromFile("test-config.yaml")

		assert.Nil(t, err)
		assert.Equal(t, "1.21", config.Docker.APIVersion)
	})

	t.Run("ReturnsQueueConfig", func(t *testing.T) {

		configReader := newConfigReaderWithLookuper(envconfig.MapLookuper(map[string]string{}))

		// act
		config, err := configReader.ReadConfigFromFile("test-config.yaml")

		queueConfig := config.Queue

		assert.Nil(t, err)
		assert.Equal(t, 2, len(queueConfig.Hosts))
		assert.Equal(t, "nats://joulupukki-queue-0.joulupukki-queue:4222", queueConfig.Hosts[0])
		assert.Equal(t, "joulupukki", queueConfig.Namespace)
		assert.Equal(t, "build.requested", queueConfig.SubjectBuildRequests)
		assert.Equal(t, "joulupukki-dispatcher", queueConfig.QueueGroup)
		assert.Equal(t, 300, queueConfig.DuplicateWindowSeconds)
	})

	t.Run("ReturnsDatabaseConfig", func(t *testing.T) {

		configReader := newConfigReaderWithLookuper(envconfig.MapLookuper(map[string]string{}))

		// act
		config, err := configReader.ReadConfigFromFile("test-config.yaml")

		databaseConfig := config.Database

		assert.Nil(t, err)
		assert.True(t, databaseConfig.Enable)
		assert.Equal(t, "joulupukki", databaseConfig.DatabaseName)
		assert.Equal(t, "joulupukki-db-public", databaseConfig.Host)
		assert.True(t, databaseConfig.Insecure)
		assert.Equal(t, 26257, databaseConfig.Port)
		assert.Equal(t, "dispatcher", databaseConfig.User)
		assert.Equal(t, "secret", databaseConfig.Password)
	})

	t.Run("ReturnsJobsConfigWithDefaultQueueLimit", func(t *testing.T) {

		configReader := newConfigReaderWithLookuper(envconfig.MapLookuper(map[string]string{}))

		// act
		config, err := configReader.ReadConfigFromFile("test-config.yaml")

		assert.Nil(t, err)
		assert.Equal(t, 10, config.Jobs.MaxWorkers)
		assert.Equal(t, 1000, config.Jobs.QueueLimit)
	})

	t.Run("OverridesValuesFromEnvironmentVariables", func(t *testing.T) {

		configReader := newConfigReaderWithLookuper(envconfig.MapLookuper(map[string]string{
			"DOCKER_API_VERSION": "1.24",
			"JOBS_MAX_WORKERS":   "3",
		}))

		// act
		config, err := configReader.ReadConfigFromFile("test-config.yaml")

		assert.Nil(t, err)
		assert.Equal(t, "1.24", config.Docker.APIVersion)
		assert.Equal(t, 3, config.Jobs.MaxWorkers)
	})

	t.Run("ReadsPrefixedEnvironmentVariables", func(t *testing.T) {

		t.Setenv("JOULUPUKKI_DOCKER_API_VERSION", "1.30")
		configReader := NewConfigReader()

		// act
		config, err := configReader.ReadConfigFromFile("test-config.yaml")

		assert.Nil(t, err)
		assert.Equal(t, "1.30", config.Docker.APIVersion)
	})

	t.Run("ReturnsDefaultsIfFileDoesNotExist", func(t *testing.T) {

		configReader := newConfigReaderWithLookuper(envconfig.MapLookuper(map[string]string{}))

		// act
		config, err := configReader.ReadConfigFromFile("does-not-exist.yaml")

		assert.Nil(t, err)
		assert.Equal(t, []string{"nats://127.0.0.1:4222"}, config.Queue.Hosts)
		assert.False(t, config.Database.Enable)
		assert.Equal(t, 5, config.Jobs.MaxWorkers)
	})
}

func TestValidate(t *testing.T) {
	t.Run("ReturnsErrorIfEnabledDatabaseHasNoHost", func(t *testing.T) {

		config := &APIConfig{}
		config.SetDefaults()
		config.Database.Enable = true
		config.Database.Host = ""

		// act
		err := config.Validate()

		assert.NotNil(t, err)
	})

	t.Run("IgnoresDatabaseConfigIfDisabled", func(t *testing.T) {

		config := &APIConfig{}
		config.SetDefaults()
		config.Database.Host = ""

		// act
		err := config.Validate()

		assert.Nil(t, err)
	})

	t.Run("ReturnsErrorIfQueueHasNoHosts", func(t *testing.T) {

		config := &APIConfig{}
		config.SetDefaults()
		config.Queue.Hosts = []string{}

		// act
		err := config.Validate()

		assert.NotNil(t, err)
	})
}
