// Command forecaster implements the chronocast forecast function.
//
// Each invocation fetches the context window of a time series from the data
// source, sends it to a zero-shot forecasting endpoint (Chronos-Bolt on Amazon
// Bedrock, a SageMaker endpoint, or any HTTP endpoint with the same contract)
// and returns the timestamped mean and quantile forecasts.
//
// The binary runs in one of two modes:
//   - lambda: an AWS Lambda handler taking the invocation JSON as its event
//     and returning {"statusCode": 200, "body": "<rows JSON>"}
//   - http: a long-running service exposing POST /forecast, GET /forecast/latest,
//     /healthz, /readyz and /metrics
//
// The default mode "auto" selects lambda inside the Lambda runtime.
//
// Usage:
//
//	forecaster \
//	  -mode=http \
//	  -source=clickhouse -table=total_load_data -time-column=timestamp -value-column=total_load \
//	  -endpoint=bedrock -endpoint-id=arn:aws:sagemaker:eu-west-1:123456789012:endpoint/chronos-bolt-base
//
// Environment variables:
//
//	MODE                 - auto, lambda or http (default: auto)
//	LISTEN               - HTTP listen address (default: :8080)
//	SOURCE               - clickhouse, postgres, prometheus, victoriametrics, http, memory
//	CLICKHOUSE_HOST      - ClickHouse host (default: localhost)
//	CLICKHOUSE_PORT      - ClickHouse native port (default: 9000)
//	CLICKHOUSE_SECURE    - Use TLS for ClickHouse (default: false)
//	POSTGRES_DSN         - Postgres connection string
//	SOURCE_TABLE         - Table holding the series
//	SOURCE_TIME_COLUMN   - Timestamp column (default: timestamp)
//	SOURCE_VALUE_COLUMN  - Value column (default: value)
//	SOURCE_FILE          - CSV or JSON series file of the memory source
//	SOURCE_*             - Settings of the prometheus, victoriametrics and http sources
//	CLICKHOUSE_MAX_EXECUTION_TIME - Server-side query limit (default: none)
//	TIMEZONE             - Zone of naive timestamps (default: UTC)
//	ENDPOINT             - bedrock, sagemaker or http (default: bedrock)
//	ENDPOINT_ID          - Model ID/ARN, SageMaker endpoint name or URL (required)
//	ENDPOINT_TIMEOUT     - Timeout of each http endpoint call (default: none)
//	QUANTILE_LEVELS      - Default quantile levels (default: 0.1,0.5,0.9)
//	STORAGE              - none, memory or redis (default: none)
//	SERIES               - Series name for published forecasts (default: default)
//	LOG_LEVEL            - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT           - Logging format: text, json (default: json on Lambda)
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/HatiCode/chronocast/cmd/forecaster/config"
	"github.com/HatiCode/chronocast/cmd/forecaster/logger"
	"github.com/HatiCode/chronocast/cmd/forecaster/metrics"
	"github.com/HatiCode/chronocast/cmd/forecaster/models"
	"github.com/HatiCode/chronocast/cmd/forecaster/router"
	"github.com/HatiCode/chronocast/pkg/adapters"
	"github.com/HatiCode/chronocast/pkg/httpx"
	"github.com/HatiCode/chronocast/pkg/tls"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	mode := cfg.Mode
	if mode == "auto" {
		mode = "http"
		if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
			mode = "lambda"
		}
	}

	logger.Info("starting chronocast forecaster",
		"version", version,
		"mode", mode,
		"source", cfg.Source,
		"endpoint", cfg.Endpoint,
	)

	source, err := buildSource(cfg, logger)
	if err != nil {
		logger.Error("failed to create source", "error", err)
		os.Exit(1)
	}
	var closers []namedCloser
	if closer, ok := source.(io.Closer); ok {
		closers = append(closers, namedCloser{"source", closer})
	}

	client, err := models.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create endpoint client", "error", err)
		os.Exit(1)
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		logger.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	if closer, ok := store.(io.Closer); ok {
		closers = append(closers, namedCloser{"store", closer})
	}
	cleanup := func() { closeAll(closers, logger) }

	f := New(source, client, logger, metrics.New(source.Name(), client.Name()))
	svc := NewService(f, store, cfg.Series, cfg.Location, cfg.QuantileLevels, logger)

	if mode == "lambda" {
		// StartWithOptions never returns; the runtime's SIGTERM before
		// shutdown is the only chance to release connections.
		lambda.StartWithOptions(svc.HandleLambda, lambda.WithEnableSIGTERM(func() {
			logger.Info("received SIGTERM from lambda runtime")
			cleanup()
		}))
		return
	}

	err = serve(cfg, svc, source, logger)
	cleanup()
	if err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// serve runs the HTTP service until a signal arrives or the server fails.
func serve(cfg *config.Config, svc *Service, source adapters.Source, logger *slog.Logger) error {
	var ready func(ctx context.Context) error
	if p, ok := source.(adapters.Pinger); ok {
		ready = p.Ping
	}

	mux := router.SetupRoutes(svc, svc.store, ready, logger)
	handler := httpx.Chain(mux,
		httpx.RequestIDMiddleware,
		httpx.RecoveryMiddleware(logger),
		httpx.LoggingMiddleware(logger),
	)
	httpServer := httpx.NewServer(cfg.Listen, handler, logger)

	if cfg.TLS.Enabled {
		tlsConfig, err := tls.NewServerTLSConfig(cfg.TLS)
		if err != nil {
			return err
		}
		httpServer.SetTLSConfig(tlsConfig)
	}

	serverErr := make(chan error, 1)
	go func() {
		if cfg.TLS.Enabled {
			serverErr <- httpServer.StartTLS()
			return
		}
		serverErr <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	return httpServer.Stop(10 * time.Second)
}

type namedCloser struct {
	name string
	io.Closer
}

// closeAll closes in reverse order of creation and logs failures.
func closeAll(closers []namedCloser, logger *slog.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Error("failed to close "+closers[i].name, "error", err)
		}
	}
}
