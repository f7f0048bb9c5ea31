package adapters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/lib/pq"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

func TestTable_Validate(t *testing.T) {
	tests := []struct {
		name    string
		table   Table
		wantErr bool
	}{
		{"plain", Table{Name: "energy", TimeColumn: "ts", ValueColumn: "value"}, false},
		{"qualified", Table{Name: "metrics.energy", TimeColumn: "ts", ValueColumn: "load_mw"}, false},
		{"empty", Table{}, true},
		{"injection", Table{Name: "energy; DROP TABLE energy", TimeColumn: "ts", ValueColumn: "v"}, true},
		{"quoted column", Table{Name: "energy", TimeColumn: "`ts`", ValueColumn: "v"}, true},
		{"three parts", Table{Name: "a.b.c", TimeColumn: "ts", ValueColumn: "v"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got err=%v", tt.wantErr, err)
			}
		})
	}
}

func TestRangeQueries(t *testing.T) {
	table := Table{Name: "metrics.energy", TimeColumn: "ts", ValueColumn: "load_mw"}

	ch := &ClickHouseSource{table: table}
	q := strings.Join(strings.Fields(ch.query()), " ")
	want := "SELECT ts, toFloat64(load_mw) FROM metrics.energy WHERE ts >= ? AND ts < ? ORDER BY ts ASC"
	if q != want {
		t.Errorf("clickhouse query:\n got %s\nwant %s", q, want)
	}

	pg := &PostgresSource{table: table}
	q = strings.Join(strings.Fields(pg.query()), " ")
	want = "SELECT ts, load_mw::double precision FROM metrics.energy WHERE ts >= $1 AND ts < $2 ORDER BY ts ASC"
	if q != want {
		t.Errorf("postgres query:\n got %s\nwant %s", q, want)
	}
}

func TestClassifyClickHouse(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unknown table", &clickhouse.Exception{Code: 60, Name: "UNKNOWN_TABLE"}, forecast.ErrValidation},
		{"auth failure", &clickhouse.Exception{Code: authenticationFailed, Name: "AUTHENTICATION_FAILED"}, forecast.ErrConnection},
		{"dial failure", errors.New("dial tcp 127.0.0.1:9000: connect: connection refused"), forecast.ErrConnection},
		{"wrapped exception", fmt.Errorf("query: %w", &clickhouse.Exception{Code: 47}), forecast.ErrValidation},
		{"type mismatch", &clickhouse.Exception{Code: 53, Name: "TYPE_MISMATCH"}, forecast.ErrValidation},
		{"syntax error", &clickhouse.Exception{Code: 62, Name: "SYNTAX_ERROR"}, forecast.ErrValidation},
		{"timeout exceeded", &clickhouse.Exception{Code: 159, Name: "TIMEOUT_EXCEEDED"}, forecast.ErrConnection},
		{"too many queries", &clickhouse.Exception{Code: 202, Name: "TOO_MANY_SIMULTANEOUS_QUERIES"}, forecast.ErrConnection},
		{"memory limit", &clickhouse.Exception{Code: 241, Name: "MEMORY_LIMIT_EXCEEDED"}, forecast.ErrConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyClickHouse(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyClickHouse() = %v, want %v", got, tt.want)
			}
			if tt.want == forecast.ErrConnection && errors.Is(got, forecast.ErrValidation) {
				t.Errorf("classifyClickHouse() = %v, must not be a validation error", got)
			}
		})
	}
}

func TestClickHouseOptions_ExecutionTime(t *testing.T) {
	cfg := DefaultClickHouseConfig()
	if opts := clickHouseOptions(cfg); opts.Settings["max_execution_time"] != nil {
		t.Errorf("default settings = %v, want no max_execution_time", opts.Settings)
	}

	cfg.MaxExecutionTime = 90 * time.Second
	if got := clickHouseOptions(cfg).Settings["max_execution_time"]; got != 90 {
		t.Errorf("max_execution_time = %v, want 90", got)
	}
}

func TestClassifyPostgres(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"undefined table", &pq.Error{Code: "42P01"}, forecast.ErrValidation},
		{"connection failure", &pq.Error{Code: "08006"}, forecast.ErrConnection},
		{"bad password", &pq.Error{Code: "28P01"}, forecast.ErrConnection},
		{"dial failure", errors.New("dial tcp: connection refused"), forecast.ErrConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyPostgres(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("classifyPostgres() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConnectionError_KeepsCancellation(t *testing.T) {
	err := connectionError("clickhouse", context.Canceled)
	if errors.Is(err, forecast.ErrConnection) {
		t.Errorf("cancellation tagged as connection error: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMemorySource(t *testing.T) {
	t0 := time.Date(2025, 8, 17, 0, 0, 0, 0, time.UTC)
	obs := []forecast.Observation{
		{Timestamp: t0.Add(-15 * time.Minute), Value: 2},
		{Timestamp: t0.Add(-45 * time.Minute), Value: 0},
		{Timestamp: t0, Value: 3},
		{Timestamp: t0.Add(-30 * time.Minute), Value: 1},
	}
	src := NewMemorySource(obs)
	obs[0].Value = 100

	got, err := src.Fetch(context.Background(), forecast.ContextWindow(t0, 15*time.Minute, 2))
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(got))
	}
	if got[0].Value != 1 || got[1].Value != 2 {
		t.Errorf("unexpected values %v", got)
	}

	got, err = src.Fetch(context.Background(), forecast.ContextWindow(t0, 15*time.Minute, 0))
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("expected empty slice for empty window, got %v, %v", got, err)
	}

	src.Err = fmt.Errorf("down: %w", forecast.ErrConnection)
	if _, err := src.Fetch(context.Background(), forecast.ContextWindow(t0, 15*time.Minute, 2)); !errors.Is(err, forecast.ErrConnection) {
		t.Errorf("expected injected error, got %v", err)
	}
}

func TestLoadMemorySource(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}
	loc := time.FixedZone("UTC+2", 2*60*60)
	t0 := time.Date(2025, 8, 17, 0, 0, 0, 0, loc)
	window := forecast.ContextWindow(t0, 15*time.Minute, 4)

	tests := []struct {
		name string
		path string
	}{
		{"csv with header", write("a.csv", "timestamp,value\n2025-08-16 23:45:00,2\n2025-08-16 23:30:00,1\n")},
		{"csv without header", write("b.CSV", "2025-08-16 23:30:00, 1\n2025-08-16 23:45:00, 2\n")},
		{"json", write("c.json", `[{"timestamp":"2025-08-16T21:30:00Z","value":1},{"timestamp":"2025-08-16 23:45:00","value":2}]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := LoadMemorySource(tt.path, loc)
			if err != nil {
				t.Fatalf("LoadMemorySource() error = %v", err)
			}
			got, err := src.Fetch(context.Background(), window)
			if err != nil {
				t.Fatalf("Fetch error: %v", err)
			}
			if len(got) != 2 || got[0].Value != 1 || got[1].Value != 2 {
				t.Errorf("observations = %+v", got)
			}
		})
	}
}

func TestLoadMemorySource_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	if _, err := LoadMemorySource("", time.UTC); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := LoadMemorySource(filepath.Join(dir, "missing.csv"), time.UTC); err == nil {
		t.Error("expected error for missing file")
	}

	decodeErrors := map[string]string{
		"bad.csv":    "2025-08-16 23:30:00,lots\n",
		"short.csv":  "2025-08-16 23:30:00\n",
		"time.csv":   "yesterday,1\n",
		"object.json": `{"timestamp":"2025-08-16 23:30:00","value":1}`,
		"text.json":  `[{"timestamp":"2025-08-16 23:30:00","value":"1"}]`,
	}
	for name, data := range decodeErrors {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadMemorySource(write(name, data), time.UTC); !errors.Is(err, forecast.ErrDecode) {
				t.Errorf("error = %v, want ErrDecode", err)
			}
		})
	}
}
