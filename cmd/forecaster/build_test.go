package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"path/filepath"
	"testing"
	"time"

	"github.com/HatiCode/chronocast/cmd/forecaster/config"
	"github.com/HatiCode/chronocast/pkg/adapters"
	"github.com/HatiCode/chronocast/pkg/forecast"
	"github.com/HatiCode/chronocast/pkg/storage"
)

func TestBuildSource_Prometheus(t *testing.T) {
	cfg := &config.Config{
		Source: "prometheus",
		SourceConfig: map[string]string{
			"url":   "http://prometheus:9090",
			"query": "sum(rate(http_requests_total[1m]))",
		},
	}

	src, err := buildSource(cfg, testLogger())
	if err != nil {
		t.Fatalf("buildSource failed: %v", err)
	}

	prom, ok := src.(*adapters.PrometheusSource)
	if !ok {
		t.Fatalf("expected *adapters.PrometheusSource, got %T", src)
	}
	if prom.ServerURL != "http://prometheus:9090" {
		t.Errorf("expected ServerURL http://prometheus:9090, got %s", prom.ServerURL)
	}
	if prom.Query != "sum(rate(http_requests_total[1m]))" {
		t.Errorf("unexpected Query %s", prom.Query)
	}
}

func TestBuildSource_VictoriaMetrics(t *testing.T) {
	cfg := &config.Config{
		Source:       "victoriametrics",
		SourceConfig: map[string]string{"query": "sum(queue_depth)"},
	}

	src, err := buildSource(cfg, testLogger())
	if err != nil {
		t.Fatalf("buildSource failed: %v", err)
	}
	if src.Name() != "victoriametrics" {
		t.Errorf("Name() = %q, want victoriametrics", src.Name())
	}
	if prom := src.(*adapters.PrometheusSource); prom.ServerURL != "http://localhost:8428" {
		t.Errorf("expected default ServerURL, got %s", prom.ServerURL)
	}
}

func TestBuildSource_HTTP(t *testing.T) {
	cfg := &config.Config{
		Source: "http",
		SourceConfig: map[string]string{
			"url":             "https://api.example.com/load?from={{.Start}}&to={{.End}}",
			"valuePath":       "data.#.v",
			"timestampPath":   "data.#.t",
			"timestampFormat": "local",
		},
		Location: time.UTC,
	}

	src, err := buildSource(cfg, testLogger())
	if err != nil {
		t.Fatalf("buildSource failed: %v", err)
	}
	h, ok := src.(*adapters.HTTPSource)
	if !ok {
		t.Fatalf("expected *adapters.HTTPSource, got %T", src)
	}
	if h.Location != time.UTC || h.TimestampFormat != "local" {
		t.Errorf("unexpected source %+v", h)
	}
}

func TestBuildSource_ClickHouse(t *testing.T) {
	cfg := &config.Config{
		Source:     "clickhouse",
		ClickHouse: adapters.DefaultClickHouseConfig(),
		Table:      adapters.Table{Name: "total_load_data", TimeColumn: "timestamp", ValueColumn: "total_load"},
	}

	src, err := buildSource(cfg, testLogger())
	if err != nil {
		t.Fatalf("buildSource failed: %v", err)
	}
	ch, ok := src.(*adapters.ClickHouseSource)
	if !ok {
		t.Fatalf("expected *adapters.ClickHouseSource, got %T", src)
	}
	ch.Close()
}

func TestBuildSource_Memory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "load.csv")
	data := "timestamp,value\n2025-08-16 23:30:00,10\n2025-08-16 23:45:00,12\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{Source: "memory", SourceConfig: map[string]string{"file": path}, Location: time.UTC}
	src, err := buildSource(cfg, testLogger())
	if err != nil {
		t.Fatalf("buildSource failed: %v", err)
	}
	if _, ok := src.(*adapters.MemorySource); !ok {
		t.Fatalf("expected *adapters.MemorySource, got %T", src)
	}

	t0 := time.Date(2025, 8, 17, 0, 0, 0, 0, time.UTC)
	obs, err := src.Fetch(context.Background(), forecast.ContextWindow(t0, 15*time.Minute, 4))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(obs) != 2 || obs[1].Value != 12 {
		t.Errorf("obs = %+v, want the two file points", obs)
	}

	if _, err := buildSource(&config.Config{Source: "memory", SourceConfig: map[string]string{}}, testLogger()); err == nil {
		t.Error("expected error without a file")
	}
}

func TestBuildSource_Invalid(t *testing.T) {
	tests := map[string]*config.Config{
		"unknown":          {Source: "kafka"},
		"prom no query":    {Source: "prometheus", SourceConfig: map[string]string{}},
		"http no paths":    {Source: "http", SourceConfig: map[string]string{"url": "http://x"}},
		"clickhouse table": {Source: "clickhouse", Table: adapters.Table{Name: "a b", TimeColumn: "t", ValueColumn: "v"}},
	}

	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := buildSource(cfg, testLogger()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuildStore(t *testing.T) {
	store, err := buildStore(&config.Config{Storage: "none"}, testLogger())
	if err != nil || store != nil {
		t.Fatalf("none: store = %v, err = %v", store, err)
	}

	store, err = buildStore(&config.Config{Storage: "memory", SnapshotTTL: time.Hour}, testLogger())
	if err != nil {
		t.Fatalf("memory: err = %v", err)
	}
	mem, ok := store.(*storage.MemoryStore)
	if !ok {
		t.Fatalf("expected *storage.MemoryStore, got %T", store)
	}
	if _, ok := store.(io.Closer); !ok {
		t.Error("memory store should be closed on shutdown")
	}
	mem.Stop()

	if _, err := buildStore(&config.Config{Storage: "s3"}, testLogger()); err == nil {
		t.Error("expected error for unknown storage")
	}
}

type recordingCloser struct {
	name  string
	order *[]string
	err   error
}

func (c recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestCloseAll(t *testing.T) {
	var order []string
	var logs strings.Builder
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	closeAll([]namedCloser{
		{"source", recordingCloser{name: "source", order: &order}},
		{"store", recordingCloser{name: "store", order: &order, err: errors.New("redis gone")}},
	}, logger)

	if got := strings.Join(order, ","); got != "store,source" {
		t.Errorf("close order = %s, want store,source", got)
	}
	if !strings.Contains(logs.String(), "failed to close store") {
		t.Errorf("log = %q, want close failure", logs.String())
	}
}
