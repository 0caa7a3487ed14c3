package main

import (
	"context"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/api"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/clients/broker"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/clients/database"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/clients/source"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/services/dispatcher"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/services/queue"
	"github.com/joulupukki/joulupukki-dispatcher/pkg/services/worker"
	"github.com/opentracing-contrib/go-stdlib/nethttp"
	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	jprom "github.com/uber/jaeger-lib/metrics/prometheus"
	"golang.org/x/sync/errgroup"
)

const app = "joulupukki-dispatcher"

var (
	version   string
	branch    string
	revision  string
	buildDate string
	goVersion = runtime.Version()
)

var (
	// flags
	configFilePath = kingpin.Flag("config-file-path", "The path to yaml config file configuring this application.").Default("/configs/config.yaml").Envar("CONFIG_FILE_PATH").String()

	prometheusMetricsAddress = kingpin.Flag("metrics-listen-address", "The address to listen on for Prometheus metrics requests.").Default(":9001").String()
	prometheusMetricsPath    = kingpin.Flag("metrics-path", "The path to listen for Prometheus metrics requests.").Default("/metrics").String()

	apiAddress = kingpin.Flag("api-listen-address", "The address to listen on for liveness and readiness requests.").Default(":5000").String()
)

func main() {

	// parse command line parameters
	kingpin.Parse()

	// configure json logging
	initLogging()

	// init tracing
	closer := initJaeger()
	defer closer.Close()

	// define channel to gracefully shutdown the application
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// cancelling ctx aborts builds that are still running after the shutdown grace period
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start prometheus
	go startPrometheus()

	config, err := api.NewConfigReader().ReadConfigFromFile(*configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msgf("Reading configuration from %v failed", *configFilePath)
	}

	sourceClient, brokerClient, databaseClient := getClients(config)

	err = connectClients(ctx, brokerClient, databaseClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Connecting to broker and database failed")
	}

	dispatcherService := dispatcher.NewService(config, brokerClient, databaseClient)

	workerService, err := worker.NewService(ctx, config, sourceClient, dispatcherService, databaseClient, api.NewBuildCounter())
	if err != nil {
		log.Fatal().Err(err).Msg("Creating worker service failed")
	}

	queueService := queue.NewService(config, workerService)
	err = queueService.CreateConnection(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Connecting to nats for build requests failed")
	}
	err = queueService.InitSubscriptions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msgf("Subscribing to %v failed", config.Queue.SubjectBuildRequests)
	}

	srv := startAPI()

	log.Info().Msgf("Listening for build requests on %v", config.Queue.SubjectBuildRequests)

	// wait for graceful shutdown to finish
	<-sigs // Wait for signals (this hangs until a signal arrives)
	log.Debug().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(config.Jobs.ShutdownGrace)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Graceful server shutdown failed")
	}

	log.Debug().Msg("Stopping build request subscription...")
	queueService.CloseConnection(shutdownCtx)

	log.Debug().Msg("Awaiting running builds...")
	if err := workerService.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Builds still running after grace period, cancelling them")
		cancel()
	}

	brokerClient.Close(context.Background())

	log.Info().Msg("Dispatcher gracefully stopped")
}

func getClients(config *api.APIConfig) (sourceClient source.Client, brokerClient broker.Client, databaseClient database.Client) {

	sourceClient = source.NewClient(nil)
	sourceClient = source.NewTracingClient(sourceClient)
	sourceClient = source.NewLoggingClient(sourceClient)
	sourceClient = source.NewMetricsClient(sourceClient, api.NewRequestCounter("source_client"), api.NewRequestHistogram("source_client"))

	brokerClient = broker.NewClient(config)
	brokerClient = broker.NewTracingClient(brokerClient)
	brokerClient = broker.NewLoggingClient(brokerClient)
	brokerClient = broker.NewMetricsClient(brokerClient, api.NewRequestCounter("broker_client"), api.NewRequestHistogram("broker_client"))

	databaseClient = database.NewClient(config)
	databaseClient = database.NewTracingClient(databaseClient)
	databaseClient = database.NewLoggingClient(databaseClient)
	databaseClient = database.NewMetricsClient(databaseClient, api.NewRequestCounter("database_client"), api.NewRequestHistogram("database_client"))

	return
}

func connectClients(ctx context.Context, brokerClient broker.Client, databaseClient database.Client) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return brokerClient.Connect(ctx)
	})

	g.Go(func() error {
		if err := databaseClient.Connect(ctx); err != nil {
			return err
		}
		if err := databaseClient.AwaitDatabaseReadiness(ctx); err != nil {
			return err
		}
		return databaseClient.MigrateSchema(ctx)
	})

	return g.Wait()
}

func startPrometheus() {
	log.Debug().
		Str("port", *prometheusMetricsAddress).
		Str("path", *prometheusMetricsPath).
		Msg("Serving Prometheus metrics...")

	http.Handle(*prometheusMetricsPath, promhttp.Handler())

	if err := http.ListenAndServe(*prometheusMetricsAddress, nil); err != nil {
		log.Fatal().Err(err).Msg("Starting Prometheus listener failed")
	}
}

func initLogging() {

	// log as severity for stackdriver logging to recognize the level
	zerolog.LevelFieldName = "severity"

	// set some default fields added to all logs
	log.Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("app", app).
		Str("version", version).
		Logger()

	// fall back to the global logger for contexts without a build logger
	zerolog.DefaultContextLogger = &log.Logger

	// use zerolog for any logs sent via standard log library
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)

	// log startup message
	log.Info().
		Str("branch", branch).
		Str("revision", revision).
		Str("buildDate", buildDate).
		Str("goVersion", goVersion).
		Msgf("Starting %v...", app)
}

func initJaeger() io.Closer {

	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Generating Jaeger config from environment variables failed")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = app
	}

	closer, err := cfg.InitGlobalTracer(cfg.ServiceName, jaegercfg.Metrics(jprom.New()))
	if err != nil {
		log.Fatal().Err(err).Msg("Generating Jaeger tracer failed")
	}

	return closer
}

func createRouter() *gin.Engine {

	// run gin in release mode and other defaults
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = log.Logger
	gin.DisableConsoleColor()

	// Creates a router without any middleware by default
	router := gin.New()

	// Logging middleware
	router.Use(ZeroLogMiddleware())

	// Recovery middleware recovers from any panics and writes a 500 if there was one.
	router.Use(gin.Recovery())

	// Gzip middleware
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// liveness and readiness
	router.GET("/liveness", func(c *gin.Context) {
		c.String(200, "I'm alive!")
	})
	router.GET("/readiness", func(c *gin.Context) {
		c.String(200, "I'm ready!")
	})

	return router
}

func startAPI() *http.Server {

	router := createRouter()

	srv := &http.Server{
		Addr:    *apiAddress,
		Handler: nethttp.Middleware(opentracing.GlobalTracer(), router),
	}

	go func() {
		log.Debug().Str("port", *apiAddress).Msg("Serving api calls...")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Starting api listener failed")
		}
	}()

	return srv
}
