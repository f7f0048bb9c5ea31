// Package config provides configuration parsing for the forecaster.
//
// Every setting is a command-line flag with an environment variable fallback,
// so the same binary is configured by flags locally and by the function
// environment on Lambda. Precedence:
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
//
// Source-specific settings for the prometheus, victoriametrics and http
// sources are read from SOURCE_* variables (SOURCE_QUERY → "query",
// SOURCE_VALUE_PATH → "valuePath").
//
// Example usage:
//
//	cfg := config.ParseFlags()
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/HatiCode/chronocast/pkg/adapters"
	"github.com/HatiCode/chronocast/pkg/forecast"
	"github.com/HatiCode/chronocast/pkg/storage"
	"github.com/HatiCode/chronocast/pkg/tls"
)

// Config holds all forecaster configuration.
type Config struct {
	// Mode is auto, lambda or http. auto picks lambda when running inside
	// the Lambda runtime.
	Mode      string
	Listen    string
	LogFormat string
	LogLevel  string
	TLS       tls.Config

	Series       string
	Source       string
	SourceConfig map[string]string
	ClickHouse   adapters.ClickHouseConfig
	PostgresDSN  string
	Table        adapters.Table
	Timezone     string

	Endpoint          string
	EndpointID        string
	// EndpointTimeout bounds each HTTP endpoint call; 0 leaves the call to the
	// request context or Lambda deadline.
	EndpointTimeout   time.Duration
	AWSRegion         string
	QuantileLevelsRaw string

	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SnapshotTTL   time.Duration

	// Set by Validate.
	Location       *time.Location
	QuantileLevels []float64
}

// ParseFlags parses command-line flags and environment variables into a Config.
// Environment variables are used as fallbacks when flags are not provided.
func ParseFlags() *Config {
	cfg := &Config{}
	ch := adapters.DefaultClickHouseConfig()

	flag.StringVar(&cfg.Mode, "mode", getEnv("MODE", "auto"), "Run mode: auto, lambda or http")
	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8080"), "HTTP listen address")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", ""), "Log format: text or json (default json on Lambda, text otherwise)")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable TLS for HTTP server")
	flag.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	flag.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	flag.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file for client verification")

	flag.StringVar(&cfg.Series, "series", getEnv("SERIES", "default"), "Series name used when publishing forecasts")
	flag.StringVar(&cfg.Source, "source", getEnv("SOURCE", "clickhouse"), "Data source: clickhouse, postgres, prometheus, victoriametrics, http, memory")
	flag.StringVar(&ch.Host, "clickhouse-host", getEnv("CLICKHOUSE_HOST", ch.Host), "ClickHouse host")
	flag.IntVar(&ch.Port, "clickhouse-port", getEnvInt("CLICKHOUSE_PORT", ch.Port), "ClickHouse native protocol port")
	flag.StringVar(&ch.Database, "clickhouse-database", getEnv("CLICKHOUSE_DATABASE", ch.Database), "ClickHouse database")
	flag.StringVar(&ch.Username, "clickhouse-user", getEnv("CLICKHOUSE_USER", ch.Username), "ClickHouse user")
	flag.StringVar(&ch.Password, "clickhouse-password", getEnv("CLICKHOUSE_PASSWORD", ""), "ClickHouse password")
	flag.BoolVar(&ch.Secure, "clickhouse-secure", getEnvBool("CLICKHOUSE_SECURE", false), "Use TLS for ClickHouse")
	flag.DurationVar(&ch.MaxExecutionTime, "clickhouse-max-execution-time", getEnvDuration("CLICKHOUSE_MAX_EXECUTION_TIME", 0), "Server-side query limit (0 = server default)")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", getEnv("POSTGRES_DSN", ""), "Postgres connection string")
	flag.StringVar(&cfg.Table.Name, "table", getEnv("SOURCE_TABLE", ""), "Table holding the series")
	flag.StringVar(&cfg.Table.TimeColumn, "time-column", getEnv("SOURCE_TIME_COLUMN", "timestamp"), "Timestamp column")
	flag.StringVar(&cfg.Table.ValueColumn, "value-column", getEnv("SOURCE_VALUE_COLUMN", "value"), "Value column")
	flag.StringVar(&cfg.Timezone, "timezone", getEnv("TIMEZONE", "UTC"), "IANA zone of naive timestamps")

	flag.StringVar(&cfg.Endpoint, "endpoint", getEnv("ENDPOINT", "bedrock"), "Forecast endpoint: bedrock, sagemaker or http")
	flag.StringVar(&cfg.EndpointID, "endpoint-id", getEnv("ENDPOINT_ID", ""), "Bedrock model ID/ARN, SageMaker endpoint name, or URL")
	flag.DurationVar(&cfg.EndpointTimeout, "endpoint-timeout", getEnvDuration("ENDPOINT_TIMEOUT", 0), "HTTP endpoint call timeout (0 = none)")
	flag.StringVar(&cfg.AWSRegion, "aws-region", getEnv("AWS_REGION", ""), "AWS region (default from the AWS config chain)")
	flag.StringVar(&cfg.QuantileLevelsRaw, "quantile-levels", getEnv("QUANTILE_LEVELS", "0.1,0.5,0.9"), "Default quantile levels (0.1,0.5 or p10,p50)")

	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "none"), "Forecast publication: none, memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.SnapshotTTL, "snapshot-ttl", getEnvDuration("SNAPSHOT_TTL", 24*time.Hour), "How long published forecasts are kept")

	flag.Parse()

	cfg.ClickHouse = ch
	cfg.SourceConfig = parseSourceConfig()

	return cfg
}

// Validate checks the configuration and resolves Location and QuantileLevels.
func (c *Config) Validate() error {
	switch c.Mode {
	case "auto", "lambda", "http":
	default:
		return fmt.Errorf("invalid mode %q (must be auto, lambda or http)", c.Mode)
	}

	switch c.Source {
	case "clickhouse", "postgres":
		if err := c.Table.Validate(); err != nil {
			return fmt.Errorf("source %s: %w", c.Source, err)
		}
		if c.Source == "postgres" && c.PostgresDSN == "" {
			return errors.New("source postgres: POSTGRES_DSN is required")
		}
	case "prometheus", "victoriametrics":
		if c.SourceConfig["query"] == "" {
			return fmt.Errorf("source %s: SOURCE_QUERY is required", c.Source)
		}
	case "http":
		if c.SourceConfig["url"] == "" {
			return errors.New("source http: SOURCE_URL is required")
		}
	case "memory":
		if c.SourceConfig["file"] == "" {
			return errors.New("source memory: SOURCE_FILE is required")
		}
	default:
		return fmt.Errorf("invalid source %q", c.Source)
	}

	switch c.Endpoint {
	case "bedrock", "sagemaker", "http":
	default:
		return fmt.Errorf("invalid endpoint %q (must be bedrock, sagemaker or http)", c.Endpoint)
	}
	if c.EndpointID == "" {
		return errors.New("ENDPOINT_ID is required")
	}
	if c.EndpointTimeout < 0 {
		return fmt.Errorf("endpoint timeout must be >= 0, got %v", c.EndpointTimeout)
	}
	if c.ClickHouse.MaxExecutionTime < 0 {
		return fmt.Errorf("clickhouse max execution time must be >= 0, got %v", c.ClickHouse.MaxExecutionTime)
	}

	switch c.Storage {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("invalid storage %q (must be none, memory or redis)", c.Storage)
	}
	if c.Storage != "none" {
		if err := storage.ValidateSeries(c.Series); err != nil {
			return err
		}
		if c.SnapshotTTL <= 0 {
			return fmt.Errorf("snapshot ttl must be > 0, got %v", c.SnapshotTTL)
		}
	}

	if err := c.TLS.Validate(); err != nil {
		return err
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc

	levels, err := forecast.ParseQuantileLevels(c.QuantileLevelsRaw)
	if err != nil {
		return err
	}
	if len(levels) == 0 {
		levels = append([]float64(nil), forecast.DefaultQuantileLevels...)
	}
	c.QuantileLevels = levels

	return nil
}

// parseSourceConfig reads SOURCE_* environment variables into a map keyed in
// lowerCamelCase (SOURCE_VALUE_PATH → valuePath). The SQL table settings are
// excluded since they have their own flags.
func parseSourceConfig() map[string]string {
	config := make(map[string]string)

	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, "SOURCE_") {
			continue
		}
		switch name {
		case "SOURCE_TABLE", "SOURCE_TIME_COLUMN", "SOURCE_VALUE_COLUMN":
			continue
		}
		config[toLowerCamelCase(strings.TrimPrefix(name, "SOURCE_"))] = value
	}

	return config
}

func toLowerCamelCase(s string) string {
	parts := strings.Split(strings.ToLower(s), "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
