package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/HatiCode/chronocast/pkg/forecast"
	"github.com/HatiCode/chronocast/pkg/storage"
)

// Response is the Lambda function result. Body holds the JSON array of rows.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Service turns invocations into forecasts and optionally publishes them.
// It backs both the Lambda handler and the HTTP router.
type Service struct {
	forecaster    *Forecaster
	store         storage.Store
	series        string
	location      *time.Location
	defaultLevels []float64
	logger        *slog.Logger
}

// NewService creates a Service. store may be nil to disable publication.
func NewService(f *Forecaster, store storage.Store, series string, loc *time.Location, defaultLevels []float64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		forecaster:    f,
		store:         store,
		series:        series,
		location:      loc,
		defaultLevels: defaultLevels,
		logger:        logger,
	}
}

// Run forecasts one invocation. Pipeline errors are returned unchanged.
// A publication failure is logged and does not affect the result.
func (s *Service) Run(ctx context.Context, in forecast.Invocation) (forecast.Table, error) {
	p, err := in.Params(s.location, s.defaultLevels)
	if err != nil {
		return forecast.Table{}, err
	}

	res, err := s.forecaster.Forecast(ctx, p)
	if err != nil {
		return forecast.Table{}, err
	}

	s.publish(ctx, p, res)
	return res.Table, nil
}

func (s *Service) publish(ctx context.Context, p forecast.Params, res Result) {
	if s.store == nil {
		return
	}

	snapshot := storage.Snapshot{
		Series:             s.series,
		RunID:              res.RunID,
		InitializationTime: p.InitializationTime,
		FrequencySeconds:   int(p.Frequency.Seconds()),
		ContextPoints:      res.ContextPoints,
		GeneratedAt:        time.Now(),
		Table:              res.Table,
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.store.Put(ctx, snapshot); err != nil {
		s.logger.Error("failed to publish forecast",
			"series", s.series,
			"run_id", res.RunID,
			"error", err,
		)
		return
	}
	s.logger.Debug("published forecast", "series", s.series, "run_id", res.RunID)
}

// HandleLambda is the Lambda entry point. Errors are returned to the runtime
// as function errors.
func (s *Service) HandleLambda(ctx context.Context, in forecast.Invocation) (Response, error) {
	table, err := s.Run(ctx, in)
	if err != nil {
		return Response{}, err
	}

	body, err := json.Marshal(table)
	if err != nil {
		return Response{}, err
	}
	return Response{StatusCode: 200, Body: string(body)}, nil
}
