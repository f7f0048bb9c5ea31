package adapters

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Options carries everything the source kinds may need. Config holds the
// kind-specific string settings (SOURCE_URL, SOURCE_QUERY, ... with the
// SOURCE_ prefix stripped and lower-camel keys such as "valuePath").
type Options struct {
	Config      map[string]string
	Table       Table
	ClickHouse  ClickHouseConfig
	PostgresDSN string
	Location    *time.Location
}

// New creates a source based on kind.
// This is the central extension point for adding new source types.
//
// Supported kinds:
//   - "clickhouse": ClickHouse range scan
//   - "postgres": Postgres/TimescaleDB range scan
//   - "prometheus": Prometheus query_range
//   - "victoriametrics": VictoriaMetrics query_range
//   - "http": Generic HTTP source
//   - "memory": series loaded once from the 'file' config
func New(kind string, opts Options) (Source, error) {
	switch kind {
	case "clickhouse":
		return NewClickHouseSource(opts.ClickHouse, opts.Table)
	case "postgres":
		return NewPostgresSource(opts.PostgresDSN, opts.Table)
	case "prometheus":
		return newPromQL("prometheus", "http://localhost:9090", opts.Config)
	case "victoriametrics":
		return newPromQL("victoriametrics", "http://localhost:8428", opts.Config)
	case "http":
		return newHTTP(opts.Config, opts.Location)
	case "memory":
		return LoadMemorySource(opts.Config["file"], opts.Location)
	default:
		return nil, fmt.Errorf("unknown source kind: %s (must be clickhouse, postgres, prometheus, victoriametrics, http, or memory)", kind)
	}
}

func newPromQL(kind, defaultURL string, config map[string]string) (Source, error) {
	query := config["query"]
	if query == "" {
		return nil, fmt.Errorf("%s source requires 'query' config", kind)
	}

	url := config["url"]
	if url == "" {
		url = defaultURL
	}

	client, err := timeoutClient(config)
	if err != nil {
		return nil, err
	}

	return &PrometheusSource{
		ServerURL:  url,
		Query:      query,
		Kind:       kind,
		HTTPClient: client,
	}, nil
}

// timeoutClient returns a client bounded by the optional 'timeoutSeconds'
// setting, or nil when it is unset.
func timeoutClient(config map[string]string) (*http.Client, error) {
	v := config["timeoutSeconds"]
	if v == "" {
		return nil, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return nil, fmt.Errorf("invalid 'timeoutSeconds' %q", v)
	}
	return &http.Client{Timeout: time.Duration(secs) * time.Second}, nil
}

// newHTTP creates a generic HTTP source from string config.
func newHTTP(config map[string]string, loc *time.Location) (Source, error) {
	url := config["url"]
	if url == "" {
		return nil, fmt.Errorf("http source requires 'url' config")
	}

	valuePath := config["valuePath"]
	timestampPath := config["timestampPath"]
	if valuePath == "" || timestampPath == "" {
		return nil, fmt.Errorf("http source requires 'valuePath' and 'timestampPath' config")
	}

	method := config["method"]
	if method == "" {
		method = "GET"
	}

	timestampFormat := config["timestampFormat"]
	if timestampFormat == "" {
		timestampFormat = "rfc3339"
	}

	var headers map[string]string
	if headersJSON := config["headers"]; headersJSON != "" {
		if err := json.Unmarshal([]byte(headersJSON), &headers); err != nil {
			return nil, fmt.Errorf("invalid 'headers' JSON: %w", err)
		}
	}

	var templateVars map[string]string
	if varsJSON := config["templateVars"]; varsJSON != "" {
		if err := json.Unmarshal([]byte(varsJSON), &templateVars); err != nil {
			return nil, fmt.Errorf("invalid 'templateVars' JSON: %w", err)
		}
	}

	client, err := timeoutClient(config)
	if err != nil {
		return nil, err
	}

	src := &HTTPSource{
		HTTPClient:      client,
		URL:             url,
		Method:          method,
		Headers:         headers,
		Body:            config["body"],
		ValuePath:       valuePath,
		TimestampPath:   timestampPath,
		TimestampFormat: timestampFormat,
		Location:        loc,
		TemplateVars:    templateVars,
	}

	if err := src.ValidateConfig(); err != nil {
		return nil, err
	}
	return src, nil
}
