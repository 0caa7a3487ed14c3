package api

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// APIConfig represent the configuration for the entire dispatcher application
type APIConfig struct {
	Workspace *WorkspaceConfig `yaml:"workspace,omitempty" env:",prefix=WORKSPACE_"`
	Docker    *DockerConfig    `yaml:"docker,omitempty" env:",prefix=DOCKER_"`
	Queue     *QueueConfig     `yaml:"queue,omitempty" env:",prefix=QUEUE_"`
	Database  *DatabaseConfig  `yaml:"database,omitempty" env:",prefix=DATABASE_"`
	Jobs      *JobsConfig      `yaml:"jobs,omitempty" env:",prefix=JOBS_"`
}

func (c *APIConfig) SetDefaults() {
	if c.Workspace == nil {
		c.Workspace = &WorkspaceConfig{}
	}
	c.Workspace.SetDefaults()

	if c.Docker == nil {
		c.Docker = &DockerConfig{}
	}
	c.Docker.SetDefaults()

	if c.Queue == nil {
		c.Queue = &QueueConfig{}
	}
	c.Queue.SetDefaults()

	if c.Database == nil {
		c.Database = &DatabaseConfig{}
	}
	c.Database.SetDefaults()

	if c.Jobs == nil {
		c.Jobs = &JobsConfig{}
	}
	c.Jobs.SetDefaults()
}

func (c *APIConfig) Validate() (err error) {
	err = c.Workspace.Validate()
	if err != nil {
		return
	}

	err = c.Docker.Validate()
	if err != nil {
		return
	}

	err = c.Queue.Validate()
	if err != nil {
		return
	}

	err = c.Database.Validate()
	if err != nil {
		return
	}

	err = c.Jobs.Validate()
	if err != nil {
		return
	}

	return nil
}

// WorkspaceConfig configures where build folders are created
type WorkspaceConfig struct {
	Path string `yaml:"path" env:"PATH, overwrite"`
}

func (c *WorkspaceConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = filepath.Join(os.TempDir(), "joulupukki", "output")
	}
}

func (c *WorkspaceConfig) Validate() (err error) {
	if c.Path == "" {
		return errors.New("Configuration item 'workspace.path' is required; please set it to the directory where build sources are stored")
	}
	return nil
}

// DockerConfig contains the docker api version handed to the package builders
type DockerConfig struct {
	APIVersion string `yaml:"apiVersion" env:"API_VERSION, overwrite"`
}

func (c *DockerConfig) SetDefaults() {
	if c.APIVersion == "" {
		c.APIVersion = "1.15"
	}
}

func (c *DockerConfig) Validate() (err error) {
	if c.APIVersion == "" {
		return errors.New("Configuration item 'docker.apiVersion' is required; please set it to the docker api version used by the package builders")
	}
	return nil
}

// QueueConfig contains config for the message broker connection
type QueueConfig struct {
	Hosts []string `yaml:"hosts" env:"HOSTS, overwrite"`
	// Namespace prefixes the stream names so several dispatchers can share a broker
	Namespace               string `yaml:"namespace" env:"NAMESPACE, overwrite"`
	SubjectBuildRequests    string `yaml:"subjectBuildRequests" env:"SUBJECT_BUILD_REQUESTS, overwrite"`
	QueueGroup              string `yaml:"queueGroup" env:"QUEUE_GROUP, overwrite"`
	DuplicateWindowSeconds  int    `yaml:"duplicateWindowSeconds" env:"DUPLICATE_WINDOW_SECONDS, overwrite"`
	ConnectAttempts         int    `yaml:"connectAttempts" env:"CONNECT_ATTEMPTS, overwrite"`
	ConnectDelayMillisecond int    `yaml:"connectDelayMillisecond" env:"CONNECT_DELAY_MILLISECOND, overwrite"`
}

func (c *QueueConfig) SetDefaults() {
	if len(c.Hosts) == 0 {
		c.Hosts = []string{"nats://127.0.0.1:4222"}
	}
	if c.Namespace == "" {
		c.Namespace = "joulupukki"
	}
	if c.SubjectBuildRequests == "" {
		c.SubjectBuildRequests = "build.requested"
	}
	if c.QueueGroup == "" {
		c.QueueGroup = "joulupukki-dispatcher"
	}
	if c.DuplicateWindowSeconds <= 0 {
		c.DuplicateWindowSeconds = 120
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = 5
	}
	if c.ConnectDelayMillisecond <= 0 {
		c.ConnectDelayMillisecond = 2000
	}
}

func (c *QueueConfig) Validate() (err error) {
	if len(c.Hosts) == 0 {
		return errors.New("Configuration item 'queue.hosts' is required; please set it to the urls of the nats servers")
	}
	if c.Namespace == "" {
		return errors.New("Configuration item 'queue.namespace' is required; please set it to the prefix for the build queue streams")
	}
	if c.SubjectBuildRequests == "" {
		return errors.New("Configuration item 'queue.subjectBuildRequests' is required; please set it to subject of the queue for build requests")
	}
	if c.QueueGroup == "" {
		return errors.New("Configuration item 'queue.queueGroup' is required; please set it to the queue group shared by all dispatcher replicas")
	}
	return nil
}

func (c *QueueConfig) DuplicateWindow() time.Duration {
	return time.Duration(c.DuplicateWindowSeconds) * time.Second
}

// DatabaseConfig contains config for the database holding the builds
type DatabaseConfig struct {
	Enable                 bool   `yaml:"enable" env:"ENABLE, overwrite"`
	DatabaseName           string `yaml:"databaseName" env:"DATABASE_NAME, overwrite"`
	Host                   string `yaml:"host" env:"HOST, overwrite"`
	Insecure               bool   `yaml:"insecure" env:"INSECURE, overwrite"`
	SslMode                string `yaml:"sslMode" env:"SSL_MODE, overwrite"`
	Port                   int    `yaml:"port" env:"PORT, overwrite"`
	User                   string `yaml:"user" env:"USER, overwrite"`
	Password               string `yaml:"password" env:"PASSWORD, overwrite"`
	MaxOpenConns           int    `yaml:"maxOpenConnections" env:"MAX_OPEN_CONNECTIONS, overwrite"`
	MaxIdleConns           int    `yaml:"maxIdleConnections" env:"MAX_IDLE_CONNECTIONS, overwrite"`
	ConnMaxLifetimeMinutes int    `yaml:"connectionMaxLifetimeMinutes" env:"CONNECTION_MAX_LIFETIME_MINUTES, overwrite"`
}

func (c *DatabaseConfig) SetDefaults() {
	if c.DatabaseName == "" {
		c.DatabaseName = "joulupukki"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.SslMode == "" {
		c.SslMode = "verify-full"
	}
	if c.Port <= 0 {
		c.Port = 26257
	}
	if c.User == "" {
		c.User = "root"
	}
	if c.MaxOpenConns < 0 {
		c.MaxOpenConns = 0
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxLifetimeMinutes < 0 {
		c.ConnMaxLifetimeMinutes = 0
	}
}

func (c *DatabaseConfig) Validate() (err error) {
	if !c.Enable {
		return nil
	}
	if c.DatabaseName == "" {
		return errors.New("Configuration item 'database.databaseName' is required; please set it to name of the database holding the builds")
	}
	if c.Host == "" {
		return errors.New("Configuration item 'database.host' is required; please set it to hostname of the database server")
	}
	if c.Port <= 0 {
		return errors.New("Configuration item 'database.port' is required; please set it to port of the database server")
	}
	if c.User == "" {
		return errors.New("Configuration item 'database.user' is required; please set it to the database user")
	}
	if c.MaxOpenConns > 0 && c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("Configuration item 'database.maxIdleConnections' needs to be less or equal to 'database.maxOpenConnections'; please set it to a valid number")
	}
	return nil
}

// JobsConfig controls how many builds are dispatched at the same time
type JobsConfig struct {
	MaxWorkers    int `yaml:"maxWorkers" env:"MAX_WORKERS, overwrite"`
	QueueLimit    int `yaml:"queueLimit" env:"QUEUE_LIMIT, overwrite"`
	ShutdownGrace int `yaml:"shutdownGraceSeconds" env:"SHUTDOWN_GRACE_SECONDS, overwrite"`
}

func (c *JobsConfig) SetDefaults() {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 5
	}
	if c.QueueLimit <= 0 {
		c.QueueLimit = 100 * c.MaxWorkers
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 30
	}
}

func (c *JobsConfig) Validate() (err error) {
	if c.MaxWorkers <= 0 {
		return errors.New("Configuration item 'jobs.maxWorkers' is required; please set it to the number of builds dispatched in parallel")
	}
	if c.QueueLimit <= 0 {
		return errors.New("Configuration item 'jobs.queueLimit' is required; please set it to the number of builds that can wait for a free worker")
	}
	return nil
}
