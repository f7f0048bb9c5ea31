package adapters

import (
	"strings"
	"testing"
	"time"
)

func TestNew_Prometheus(t *testing.T) {
	config := map[string]string{
		"url":   "http://prometheus:9090",
		"query": "up",
	}

	src, err := New("prometheus", Options{Config: config})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	prom, ok := src.(*PrometheusSource)
	if !ok {
		t.Fatalf("expected *PrometheusSource, got %T", src)
	}

	if prom.ServerURL != "http://prometheus:9090" {
		t.Errorf("ServerURL = %s, want http://prometheus:9090", prom.ServerURL)
	}
	if prom.Query != "up" {
		t.Errorf("Query = %s, want up", prom.Query)
	}
	if prom.Name() != "prometheus" {
		t.Errorf("Name = %s, want prometheus", prom.Name())
	}
	if prom.HTTPClient != nil {
		t.Errorf("HTTPClient = %v, want nil so the caller's context bounds the query", prom.HTTPClient)
	}
}

func TestNew_TimeoutIsOptIn(t *testing.T) {
	src, err := New("victoriametrics", Options{Config: map[string]string{"query": "up", "timeoutSeconds": "30"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	prom := src.(*PrometheusSource)
	if prom.HTTPClient == nil || prom.HTTPClient.Timeout != 30*time.Second {
		t.Errorf("expected 30s client timeout, got %v", prom.HTTPClient)
	}

	src, err = New("http", Options{Config: map[string]string{"url": "http://example.com", "valuePath": "v", "timestampPath": "t"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if h := src.(*HTTPSource); h.HTTPClient != nil {
		t.Errorf("HTTPClient = %v, want nil without timeoutSeconds", h.HTTPClient)
	}
}

func TestNew_DefaultURLs(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"prometheus", "http://localhost:9090"},
		{"victoriametrics", "http://localhost:8428"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			src, err := New(tt.kind, Options{Config: map[string]string{"query": "up"}})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			prom := src.(*PrometheusSource)
			if prom.ServerURL != tt.want {
				t.Errorf("ServerURL = %s, want default %s", prom.ServerURL, tt.want)
			}
			if prom.Name() != tt.kind {
				t.Errorf("Name = %s, want %s", prom.Name(), tt.kind)
			}
		})
	}
}

func TestNew_HTTP(t *testing.T) {
	config := map[string]string{
		"url":             "https://api.example.com/metrics",
		"valuePath":       "data.#.value",
		"timestampPath":   "data.#.ts",
		"timestampFormat": "local",
		"headers":         `{"Authorization": "Bearer {{.Token}}"}`,
		"templateVars":    `{"Token": "abc"}`,
		"timeoutSeconds":  "5",
	}
	loc := time.FixedZone("CEST", 2*60*60)

	src, err := New("http", Options{Config: config, Location: loc})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	h, ok := src.(*HTTPSource)
	if !ok {
		t.Fatalf("expected *HTTPSource, got %T", src)
	}
	if h.Method != "GET" {
		t.Errorf("Method = %s, want default GET", h.Method)
	}
	if h.Headers["Authorization"] != "Bearer {{.Token}}" {
		t.Errorf("Headers = %v", h.Headers)
	}
	if h.TemplateVars["Token"] != "abc" {
		t.Errorf("TemplateVars = %v", h.TemplateVars)
	}
	if h.Location != loc {
		t.Errorf("Location not propagated")
	}
	if h.HTTPClient == nil || h.HTTPClient.Timeout != 5*time.Second {
		t.Errorf("expected 5s client timeout")
	}
}

func TestNew_ClickHouseAndPostgres(t *testing.T) {
	table := Table{Name: "metrics.energy", TimeColumn: "ts", ValueColumn: "load_mw"}

	src, err := New("clickhouse", Options{ClickHouse: DefaultClickHouseConfig(), Table: table})
	if err != nil {
		t.Fatalf("New clickhouse failed: %v", err)
	}
	ch, ok := src.(*ClickHouseSource)
	if !ok {
		t.Fatalf("expected *ClickHouseSource, got %T", src)
	}
	defer ch.Close()

	src, err = New("postgres", Options{PostgresDSN: "postgres://u:p@localhost:5432/db?sslmode=disable", Table: table})
	if err != nil {
		t.Fatalf("New postgres failed: %v", err)
	}
	pg, ok := src.(*PostgresSource)
	if !ok {
		t.Fatalf("expected *PostgresSource, got %T", src)
	}
	defer pg.Close()
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		opts    Options
		wantMsg string
	}{
		{
			name:    "unknown kind",
			kind:    "graphite",
			wantMsg: "unknown source kind",
		},
		{
			name:    "prometheus missing query",
			kind:    "prometheus",
			opts:    Options{Config: map[string]string{"url": "http://prometheus:9090"}},
			wantMsg: "query",
		},
		{
			name:    "victoriametrics missing query",
			kind:    "victoriametrics",
			opts:    Options{Config: map[string]string{}},
			wantMsg: "query",
		},
		{
			name:    "bad timeout",
			kind:    "prometheus",
			opts:    Options{Config: map[string]string{"query": "up", "timeoutSeconds": "soon"}},
			wantMsg: "timeoutSeconds",
		},
		{
			name:    "http missing url",
			kind:    "http",
			opts:    Options{Config: map[string]string{"valuePath": "v", "timestampPath": "t"}},
			wantMsg: "url",
		},
		{
			name:    "http missing paths",
			kind:    "http",
			opts:    Options{Config: map[string]string{"url": "http://example.com"}},
			wantMsg: "valuePath",
		},
		{
			name:    "http invalid headers",
			kind:    "http",
			opts:    Options{Config: map[string]string{"url": "http://example.com", "valuePath": "v", "timestampPath": "t", "headers": "{"}},
			wantMsg: "headers",
		},
		{
			name:    "clickhouse bad identifier",
			kind:    "clickhouse",
			opts:    Options{ClickHouse: DefaultClickHouseConfig(), Table: Table{Name: "t; DROP TABLE x", TimeColumn: "ts", ValueColumn: "v"}},
			wantMsg: "invalid identifier",
		},
		{
			name:    "postgres missing dsn",
			kind:    "postgres",
			opts:    Options{Table: Table{Name: "t", TimeColumn: "ts", ValueColumn: "v"}},
			wantMsg: "dsn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.kind, tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}
