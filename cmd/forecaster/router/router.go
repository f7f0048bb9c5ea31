// Package router configures HTTP routes for the forecaster service.
//
// Routes configured:
//   - POST /forecast - Run a forecast; body is the invocation JSON
//   - GET /forecast/latest?series=<name> - Latest published forecast
//   - GET /healthz - Liveness (always 200 OK)
//   - GET /readyz - Readiness (pings the data source when it supports it)
//   - GET /metrics - Prometheus metrics endpoint
//
// POST /forecast answers 200 with the JSON array of rows. Pipeline errors map
// to statuses by category: invalid parameters 400, unreachable data store 503,
// endpoint or reply problems 502, anything else 500.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/chronocast/pkg/forecast"
	"github.com/HatiCode/chronocast/pkg/httpx"
	"github.com/HatiCode/chronocast/pkg/storage"
)

const maxRequestBytes = 1 << 20

// Runner runs one forecast invocation.
type Runner interface {
	Run(ctx context.Context, in forecast.Invocation) (forecast.Table, error)
}

// SetupRoutes configures HTTP endpoints for the forecaster. store may be nil
// when publication is disabled; ready may be nil when the source has no
// health check.
func SetupRoutes(runner Runner, store storage.Store, ready func(ctx context.Context) error, logger *slog.Logger) *http.ServeMux {
	if logger == nil {
		logger = slog.Default()
	}
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}

	mux := http.NewServeMux()

	mux.Handle("/healthz", httpx.HealthHandler())
	mux.Handle("/readyz", httpx.HealthHandlerWithCheck(ready, 3*time.Second))

	mux.HandleFunc("POST /forecast", handleForecast(runner, logger))
	mux.HandleFunc("GET /forecast/latest", handleGetLatest(store, logger))

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// handleForecast returns a handler for POST /forecast.
func handleForecast(runner Runner, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in forecast.Invocation
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err := dec.Decode(&in); err != nil {
			httpx.WriteErrorKind(w, http.StatusBadRequest, "validation", fmt.Sprintf("invalid request body: %v", err))
			return
		}

		table, err := runner.Run(r.Context(), in)
		if err != nil {
			status, kind := StatusFor(err)
			if status >= http.StatusInternalServerError {
				logger.Error("forecast failed", "status", status, "error", err, "request_id", httpx.RequestID(r.Context()))
			}
			httpx.WriteErrorKind(w, status, kind, err.Error())
			return
		}

		if err := httpx.WriteJSON(w, http.StatusOK, table); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}

// handleGetLatest returns a handler for GET /forecast/latest?series=<name>.
func handleGetLatest(store storage.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			httpx.WriteErrorMessage(w, http.StatusNotFound, "forecast publication is disabled")
			return
		}

		series := r.URL.Query().Get("series")
		if series == "" {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "series parameter required")
			return
		}
		if err := storage.ValidateSeries(series); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		snapshot, found, err := store.GetLatest(ctx, series)
		if err != nil {
			logger.Error("failed to get snapshot", "series", series, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("no forecast published for series %q", series))
			return
		}

		if err := httpx.WriteJSON(w, http.StatusOK, snapshot); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}

// StatusFor maps a pipeline error to an HTTP status and error kind.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, forecast.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, forecast.ErrConnection):
		return http.StatusServiceUnavailable, "connection"
	case errors.Is(err, forecast.ErrEndpoint):
		return http.StatusBadGateway, "endpoint"
	case errors.Is(err, forecast.ErrDecode):
		return http.StatusBadGateway, "decode"
	case errors.Is(err, forecast.ErrDataShape):
		return http.StatusBadGateway, "data_shape"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, ""
	}
}
