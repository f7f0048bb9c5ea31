package adapters

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

// ClickHouseConfig holds ClickHouse connection configuration.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	// Secure enables TLS, as required by ClickHouse Cloud.
	Secure      bool
	Debug       bool
	DialTimeout time.Duration
	// MaxExecutionTime sets the server-side max_execution_time setting.
	// Zero keeps the server default.
	MaxExecutionTime time.Duration
}

// DefaultClickHouseConfig returns the local development configuration.
func DefaultClickHouseConfig() ClickHouseConfig {
	return ClickHouseConfig{
		Host:        "localhost",
		Port:        9000,
		Database:    "default",
		Username:    "default",
		DialTimeout: 10 * time.Second,
	}
}

// ClickHouseSource reads the context window with a single range scan:
//
//	SELECT ts, toFloat64(value) FROM table WHERE ts >= ? AND ts < ? ORDER BY ts ASC
//
// The connection is opened lazily by the driver, so constructing a source does
// not touch the network.
type ClickHouseSource struct {
	conn  driver.Conn
	table Table
}

// NewClickHouseSource opens a ClickHouse connection pool for the given table.
func NewClickHouseSource(cfg ClickHouseConfig, table Table) (*ClickHouseSource, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("clickhouse source: %w", err)
	}

	conn, err := clickhouse.Open(clickHouseOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	return &ClickHouseSource{conn: conn, table: table}, nil
}

func clickHouseOptions(cfg ClickHouseConfig) *clickhouse.Options {
	opts := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug:       cfg.Debug,
		DialTimeout: cfg.DialTimeout,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}
	if secs := int(cfg.MaxExecutionTime.Seconds()); secs > 0 {
		opts.Settings = clickhouse.Settings{"max_execution_time": secs}
	}
	if cfg.Secure {
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

func (s *ClickHouseSource) Name() string { return "clickhouse" }

// Fetch implements Source.
func (s *ClickHouseSource) Fetch(ctx context.Context, w forecast.Window) ([]forecast.Observation, error) {
	if !w.Start.Before(w.End) {
		return []forecast.Observation{}, nil
	}

	rows, err := s.conn.Query(ctx, s.query(), w.Start, w.End)
	if err != nil {
		return nil, classifyClickHouse(err)
	}
	defer rows.Close()

	obs := make([]forecast.Observation, 0)
	for rows.Next() {
		var o forecast.Observation
		if err := rows.Scan(&o.Timestamp, &o.Value); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyClickHouse(err)
	}

	return obs, nil
}

func (s *ClickHouseSource) query() string {
	return fmt.Sprintf(`
		SELECT %[1]s, toFloat64(%[2]s)
		FROM %[3]s
		WHERE %[1]s >= ? AND %[1]s < ?
		ORDER BY %[1]s ASC
	`, s.table.TimeColumn, s.table.ValueColumn, s.table.Name)
}

// Ping checks database connectivity.
func (s *ClickHouseSource) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return classifyClickHouse(err)
	}
	return nil
}

// Close closes the connection pool.
func (s *ClickHouseSource) Close() error {
	return s.conn.Close()
}

// ClickHouse server error codes.
const (
	illegalTypeOfArgument = 43
	unknownIdentifier     = 47
	typeMismatch          = 53
	unknownTable          = 60
	syntaxError           = 62
	unknownDatabase       = 81
	authenticationFailed  = 516
)

// queryShapeCodes are the exceptions caused by the configured table or
// columns rather than by the server's state.
var queryShapeCodes = map[int32]bool{
	illegalTypeOfArgument: true,
	unknownIdentifier:     true,
	typeMismatch:          true,
	unknownTable:          true,
	syntaxError:           true,
	unknownDatabase:       true,
}

// classifyClickHouse maps query-shape exceptions to ErrValidation. Everything
// else (timeouts, overload, memory limits, authentication, transport) is a
// connection error.
func classifyClickHouse(err error) error {
	var exc *clickhouse.Exception
	if errors.As(err, &exc) && queryShapeCodes[exc.Code] {
		return fmt.Errorf("clickhouse rejected query: %w: %w", forecast.ErrValidation, err)
	}
	return connectionError("clickhouse", err)
}
