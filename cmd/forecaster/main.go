package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/internal/cache"
	"github.com/ssenyonjo/aircast/internal/config"
	"github.com/ssenyonjo/aircast/internal/db"
	"github.com/ssenyonjo/aircast/internal/devices"
	"github.com/ssenyonjo/aircast/internal/docstore"
	"github.com/ssenyonjo/aircast/internal/forecast"
	"github.com/ssenyonjo/aircast/internal/jobs"
	"github.com/ssenyonjo/aircast/internal/kafka"
	"github.com/ssenyonjo/aircast/internal/modelstore"
	"github.com/ssenyonjo/aircast/internal/routes"
	"github.com/ssenyonjo/aircast/internal/tracing"
	"github.com/ssenyonjo/aircast/internal/training"
	"github.com/ssenyonjo/aircast/internal/worker"
	"github.com/ssenyonjo/aircast/pkg/types"
)

func main() {
	runJob := flag.String("run", "", "run a single job and exit: train or forecast")
	runFreq := flag.String("frequency", "hourly", "frequency for -run: hourly or daily")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	shutdownTracer := tracing.InitTracer()
	defer shutdownTracer(context.Background())

	cluster := gocql.NewCluster(cfg.ScyllaNodes...)
	cluster.Keyspace = "air_quality"
	cluster.DisableInitialHostLookup = true
	cluster.DisableShardAwarePort = true
	sess, err := cluster.CreateSession()
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect to warehouse")
	}
	warehouse := db.New(sess)
	defer warehouse.Close()

	docs := docstore.NewValkey(cfg.ValkeyNodes)
	defer docs.Close()
	sink := docstore.NewSink(docs, logger)

	docCache, err := cache.FromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to configure cache")
	}
	defer docCache.Close()

	blobs, err := modelstore.NewFSStore(cfg.ModelDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to open model directory")
	}
	registry := modelstore.New(blobs, logger)

	var events jobs.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("unable to connect to kafka")
		}
		defer producer.Close()
		events = producer
	}

	var registryClient jobs.DeviceRegistry
	if cfg.DeviceRegistryURL != "" {
		registryClient = devices.New(cfg.DeviceRegistryURL, cfg.Tenant)
	}

	pipeline := training.NewPipeline(registry, cfg.SearchTrials, logger)
	engine := forecast.NewEngine(cfg.YearPeriod, cfg.ForecastWorkers, logger)

	runner := jobs.NewRunner(
		cfg,
		warehouse,
		registry,
		pipeline,
		engine,
		sink,
		events,
		registryClient,
		logger,
	)

	if *runJob != "" {
		oneShot(runner, *runJob, *runFreq, logger)
		return
	}

	sv := worker.NewSupervisor(runner, logger)
	sv.Start(context.Background())
	defer sv.Stop()

	app := routes.New(sink, docCache, runner, logger)
	mux := app.NewMux()

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logger.Info().Str("addr", srv.Addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// oneShot runs a single pipeline job, for cron-style deployments.
func oneShot(runner *jobs.Runner, job, freqStr string, logger zerolog.Logger) {
	freq, err := types.ToFrequency(freqStr)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid -frequency")
	}

	ctx := context.Background()
	switch strings.ToLower(job) {
	case "train":
		err = runner.Train(ctx, freq)
	case "forecast":
		err = runner.Forecast(ctx, freq)
	default:
		logger.Fatal().Str("job", job).Msg("unknown -run job")
	}
	if err != nil {
		logger.Fatal().Err(err).Str("job", job).Msg("job failed")
	}
}
