// Package main implements the chronocast forecaster.
//
// This file contains the Forecaster type which runs one forecast invocation:
//
//	fetch → build request → predict → assemble
//
// The pipeline is linear and single-shot. Any stage error aborts the run and
// is returned unchanged, so callers can match it with errors.Is against the
// forecast sentinels. Stage durations are recorded as Prometheus metrics.
package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/HatiCode/chronocast/cmd/forecaster/metrics"
	"github.com/HatiCode/chronocast/pkg/adapters"
	"github.com/HatiCode/chronocast/pkg/forecast"
	"github.com/HatiCode/chronocast/pkg/models"
)

// Forecaster wires a data source to a forecast endpoint.
// It holds no per-run state and is safe for concurrent use.
type Forecaster struct {
	source  adapters.Source
	client  models.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Result is the outcome of one run.
type Result struct {
	RunID string
	// ContextPoints is the number of observations sent to the endpoint.
	ContextPoints int
	Table         forecast.Table
}

// New creates a new Forecaster. metrics may be nil.
func New(source adapters.Source, client models.Client, logger *slog.Logger, metrics *metrics.Metrics) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}

	return &Forecaster{
		source:  source,
		client:  client,
		logger:  logger,
		metrics: metrics,
	}
}

// Forecast runs the pipeline for p.
func (f *Forecaster) Forecast(ctx context.Context, p forecast.Params) (Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := f.logger.With("run_id", runID)

	obs, queryDuration, err := f.fetch(ctx, p.Window())
	if err != nil {
		f.recordError("source", err)
		log.Error("fetch failed", "source", f.source.Name(), "error", err)
		return Result{}, err
	}

	if len(obs) < p.ContextLength {
		log.Warn("context window is short",
			"want", p.ContextLength,
			"got", len(obs),
		)
	}

	req := forecast.BuildRequest(obs, p.PredictionLength, p.QuantileLevels)

	resp, invokeDuration, err := f.predict(ctx, req)
	if err != nil {
		f.recordError("endpoint", err)
		log.Error("endpoint call failed", "endpoint", f.client.Name(), "error", err)
		return Result{}, err
	}

	table, err := f.assemble(resp, p)
	if err != nil {
		f.recordError("assemble", err)
		log.Error("assemble failed", "error", err)
		return Result{}, err
	}

	if f.metrics != nil {
		f.metrics.SetContextPoints(len(obs))
		f.metrics.SetForecastRows(len(table.Rows))
	}

	log.Info("forecast complete",
		"initialization_time", p.InitializationTime.Format(forecast.TimeLayout),
		"context_points", len(obs),
		"rows", len(table.Rows),
		"query_ms", queryDuration.Milliseconds(),
		"invoke_ms", invokeDuration.Milliseconds(),
		"total_ms", time.Since(start).Milliseconds(),
	)

	return Result{RunID: runID, ContextPoints: len(obs), Table: table}, nil
}

// fetch reads the context window from the source.
func (f *Forecaster) fetch(ctx context.Context, w forecast.Window) ([]forecast.Observation, time.Duration, error) {
	start := time.Now()

	obs, err := f.source.Fetch(ctx, w)
	if err != nil {
		return nil, 0, err
	}

	duration := time.Since(start)
	if f.metrics != nil {
		f.metrics.RecordQuery(duration.Seconds())
	}

	f.logger.Debug("fetched context",
		"source", f.source.Name(),
		"points", len(obs),
		"duration_ms", duration.Milliseconds(),
	)

	return obs, duration, nil
}

// predict calls the forecast endpoint.
func (f *Forecaster) predict(ctx context.Context, req forecast.Request) (forecast.Response, time.Duration, error) {
	start := time.Now()

	resp, err := f.client.Predict(ctx, req)
	if err != nil {
		return forecast.Response{}, 0, err
	}

	duration := time.Since(start)
	if f.metrics != nil {
		f.metrics.RecordInvoke(duration.Seconds())
	}

	f.logger.Debug("endpoint replied",
		"endpoint", f.client.Name(),
		"duration_ms", duration.Milliseconds(),
	)

	return resp, duration, nil
}

// assemble zips the endpoint series with future timestamps.
func (f *Forecaster) assemble(resp forecast.Response, p forecast.Params) (forecast.Table, error) {
	start := time.Now()

	table, err := forecast.Assemble(resp, p.QuantileLevels, p.InitializationTime, p.Frequency, p.PredictionLength)
	if err != nil {
		return forecast.Table{}, err
	}

	if f.metrics != nil {
		f.metrics.RecordAssemble(time.Since(start).Seconds())
	}
	return table, nil
}

func (f *Forecaster) recordError(stage string, err error) {
	if f.metrics != nil {
		f.metrics.RecordError(stage, errorReason(err))
	}
}

// errorReason maps an error to a low-cardinality label value.
func errorReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, forecast.ErrConnection):
		return "connection"
	case errors.Is(err, forecast.ErrEndpoint):
		return "endpoint"
	case errors.Is(err, forecast.ErrDecode):
		return "decode"
	case errors.Is(err, forecast.ErrDataShape):
		return "data_shape"
	case errors.Is(err, forecast.ErrValidation):
		return "validation"
	default:
		return "other"
	}
}
