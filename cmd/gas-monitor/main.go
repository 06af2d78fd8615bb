package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/diwise/gas-monitor/internal/pkg/application/ingestion"
	"github.com/diwise/gas-monitor/internal/pkg/application/query"
	"github.com/diwise/gas-monitor/internal/pkg/application/subscribers"
	"github.com/diwise/gas-monitor/internal/pkg/application/watchdog"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/mqtt"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/repositories/lastvalue"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/router"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/tracing"
	"github.com/diwise/gas-monitor/internal/pkg/presentation/api"
)

const serviceName string = "gas-monitor"

const shutdownTimeout time.Duration = 10 * time.Second

func main() {
	serviceVersion := version()

	ctx, logger := logging.NewLogger(context.Background(), serviceName, serviceVersion)

	cfg, err := loadConfig(newViper())
	if err != nil {
		var missing *MissingConfigError
		if errors.As(err, &missing) {
			for _, key := range missing.Keys {
				logger.Error().Str("key", key).Msg("required environment variable is not set")
			}
		}
	}
	exitIf(err, logger, "invalid configuration")

	logging.SetLevel(cfg.LogLevel)
	logger.Info().Msg("starting up ...")

	cleanup, err := tracing.Init(ctx, logger, cfg.OTLPEndpoint, serviceName, serviceVersion)
	exitIf(err, logger, "failed to init tracing")
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, serviceVersion)
	exitIf(err, logger, "service stopped with an error")

	logger.Info().Msg("shut down complete")
}

func run(ctx context.Context, cfg config, serviceVersion string) error {
	log := logging.GetFromContext(ctx)

	gw, err := database.New(newConnector(ctx, cfg))
	if err != nil {
		return fmt.Errorf("could not connect to store: %w", err)
	}
	defer gw.Close()

	var lastValues lastvalue.Store
	writerOpts := []ingestion.WriterOption{}

	if cfg.ValkeyAddr != "" {
		lastValues, err = lastvalue.New(ctx, cfg.ValkeyAddr)
		if err != nil {
			log.Warn().Err(err).Msg("continuing without last value store")
		} else {
			defer lastValues.Close()
			writerOpts = append(writerOpts, ingestion.WithLastValueStore(lastValues))
		}
	}

	registry := subscribers.New(subscribers.DefaultMaxMissed)

	writer := ingestion.NewWriter(gw, writerOpts...)
	writer.Start(ctx)

	sensor := watchdog.New(cfg.SilenceAfter)
	pipeline := ingestion.NewPipeline(cfg.DeviceID, writer, registry, ingestion.WithObserver(sensor))
	broker := mqtt.NewSubscriber(ctx, cfg.MQTT, mqtt.DefaultQueueSize)

	r := router.New(serviceName)
	api.RegisterHandlers(ctx, api.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		DeviceID:       cfg.DeviceID,
		StatusTimeout:  api.DefaultStatusTimeout,
	}, r, query.New(gw, lastValues), registry, api.Probes{Broker: broker, Store: gw, Sensor: sensor})

	server := &http.Server{
		Addr:              ":" + cfg.ListenPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.ListenPort).Msg("starting to listen for connections")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return broker.Start(gctx)
	})

	g.Go(func() error {
		return pipeline.Run(gctx, broker.Messages())
	})

	g.Go(func() error {
		sensor.Watch(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down ...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		broker.Close()
		registry.Close()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http server did not shut down cleanly")
		}

		if err := writer.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("pending writes were not flushed")
		}

		return nil
	})

	return g.Wait()
}

func newConnector(ctx context.Context, cfg config) database.ConnectorFunc {
	if cfg.StoreURL == inMemoryStore {
		return database.NewSQLiteConnector(logging.GetFromContext(ctx))
	}

	return database.NewPostgreSQLConnector(ctx, database.ConnectorConfig{
		URL:      cfg.StoreURL,
		Password: cfg.StorePassword,
	})
}

func version() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	buildSettings := buildInfo.Settings
	infoMap := map[string]string{}
	for _, s := range buildSettings {
		infoMap[s.Key] = s.Value
	}

	sha := infoMap["vcs.revision"]
	if infoMap["vcs.modified"] == "true" {
		sha += "+"
	}

	return sha
}

func exitIf(err error, logger zerolog.Logger, msg string) {
	if err != nil {
		logger.Fatal().Err(err).Msg(msg)
	}
}
