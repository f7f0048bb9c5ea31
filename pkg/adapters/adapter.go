// Package adapters provides chronocast data sources that read the context
// window of a time series from an external system and return it as ordered
// observations.
//
// Each source implements the Source interface. Available sources:
//   - ClickHouseSource  range scan over a ClickHouse table
//   - PostgresSource    range scan over a Postgres/TimescaleDB table
//   - PrometheusSource  /api/v1/query_range on Prometheus or VictoriaMetrics
//   - HTTPSource        generic REST API with JSON path extraction
//   - MemorySource      fixed in-process series
//
// Sources only fetch. They never resample, fill gaps or decide what to do with
// a short window; that is left to the caller.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

// Source is the interface that all chronocast data sources implement.
type Source interface {
	// Fetch returns the observations with timestamps in [w.Start, w.End),
	// ascending by timestamp. An empty window yields an empty slice and a nil
	// error. An unreachable store yields an error matching forecast.ErrConnection.
	Fetch(ctx context.Context, w forecast.Window) ([]forecast.Observation, error)

	// Name returns a short identifier such as "clickhouse" or "prometheus".
	Name() string
}

// Pinger is implemented by sources that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Table names the table and columns of a range scan.
type Table struct {
	Name        string
	TimeColumn  string
	ValueColumn string
}

// Validate rejects identifiers that cannot be interpolated into SQL safely.
func (t Table) Validate() error {
	for _, id := range []string{t.Name, t.TimeColumn, t.ValueColumn} {
		if !identifierRegex.MatchString(id) {
			return fmt.Errorf("invalid identifier %q", id)
		}
	}
	return nil
}

// clip keeps the observations inside w and orders them by timestamp.
func clip(obs []forecast.Observation, w forecast.Window) []forecast.Observation {
	out := make([]forecast.Observation, 0, len(obs))
	for _, o := range obs {
		if w.Contains(o.Timestamp) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// connectionError tags transport failures with forecast.ErrConnection while
// leaving context cancellation untouched.
func connectionError(source string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", source, err)
	}
	return fmt.Errorf("%s: %w: %w", source, forecast.ErrConnection, err)
}
