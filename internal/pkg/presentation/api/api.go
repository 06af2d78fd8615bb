package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/diwise/gas-monitor/internal/pkg/application/query"
	"github.com/diwise/gas-monitor/internal/pkg/application/subscribers"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/tracing"
)

var tracer = otel.Tracer("gas-monitor/api")

type Config struct {
	ServiceName    string
	ServiceVersion string
	DeviceID       string
	StatusTimeout  time.Duration
}

func RegisterHandlers(ctx context.Context, cfg Config, router *chi.Mux, svc query.Service, registry *subscribers.Registry, probes Probes) *chi.Mux {
	log := logging.GetFromContext(ctx)

	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = DefaultStatusTimeout
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Get("/status", statusHandler(log, probes, registry, cfg.DeviceID, cfg.StatusTimeout))
	router.Get("/ws/gas", liveUpdatesHandler(log, registry))
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Get("/", indexHandler(cfg))
		r.Get("/history", getHistoryHandler(log, svc))
		r.Get("/alerts", getAlertsHandler(log, svc))
		r.Get("/latest", getLatestHandler(log, svc, cfg.DeviceID))
	})

	return router
}

func indexHandler(cfg Config) http.HandlerFunc {
	index := apiIndex{
		Name:    cfg.ServiceName,
		Version: cfg.ServiceVersion,
		Endpoints: map[string]string{
			"websocket": "/ws/gas",
			"history":   "/api/history",
			"alerts":    "/api/alerts",
			"latest":    "/api/latest",
			"status":    "/status",
			"metrics":   "/metrics",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, index)
	}
}

func getHistoryHandler(log zerolog.Logger, svc query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "get-history")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := logging.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		readings, err := svc.RecentReadings(ctx)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to fetch history")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "unable to fetch history"})
			return
		}

		writeJSON(w, http.StatusOK, readings)
	}
}

func getAlertsHandler(log zerolog.Logger, svc query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "get-alerts")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := logging.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		alerts, err := svc.RecentAlerts(ctx)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to fetch alerts")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "unable to fetch alerts"})
			return
		}

		writeJSON(w, http.StatusOK, alerts)
	}
}

func getLatestHandler(log zerolog.Logger, svc query.Service, defaultDeviceID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "get-latest")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := logging.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		deviceID := r.URL.Query().Get("device")
		if deviceID == "" {
			deviceID = defaultDeviceID
		}

		reading, err := svc.Latest(ctx, deviceID)
		if errors.Is(err, query.ErrNotFound) {
			requestLogger.Debug().Str("device", deviceID).Msg("no reading known")
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no reading known for " + deviceID})
			return
		}
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to fetch latest reading")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "unable to fetch latest reading"})
			return
		}

		writeJSON(w, http.StatusOK, reading)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
