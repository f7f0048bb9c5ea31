package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

// PrometheusSource fetches the context window from the Prometheus HTTP API
// (or any compatible backend such as VictoriaMetrics) with a single
// /api/v1/query_range call at the window's step.
//
// If multiple series are returned, values with the same timestamp are SUMMED.
// query_range includes its end bound, so the sample at w.End is dropped.
type PrometheusSource struct {
	// ServerURL is the base URL, e.g. http://prometheus.monitoring.svc:9090
	ServerURL string
	// Query is the PromQL (or MetricsQL) expression to evaluate.
	Query string
	// Kind is reported by Name; defaults to "prometheus".
	Kind string
	// HTTPClient is optional; nil uses http.DefaultClient, bounded only by
	// the caller's context.
	HTTPClient *http.Client
}

func (p *PrometheusSource) Name() string {
	if p.Kind == "" {
		return "prometheus"
	}
	return p.Kind
}

// Fetch implements Source.
func (p *PrometheusSource) Fetch(ctx context.Context, w forecast.Window) ([]forecast.Observation, error) {
	if p.ServerURL == "" || p.Query == "" {
		return nil, errors.New("prometheus source: ServerURL and Query are required")
	}
	if !w.Start.Before(w.End) {
		return []forecast.Observation{}, nil
	}

	step := w.Step
	if step <= 0 {
		step = time.Minute
	}

	u, err := url.Parse(p.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}
	u.Path = "/api/v1/query_range"

	q := u.Query()
	q.Set("query", p.Query)
	q.Set("start", strconv.FormatInt(w.Start.Unix(), 10))
	q.Set("end", strconv.FormatInt(w.End.Unix(), 10))
	q.Set("step", strconv.Itoa(int(step.Seconds())))
	u.RawQuery = q.Encode()

	cli := p.HTTPClient
	if cli == nil {
		cli = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cli.Do(req)
	if err != nil {
		return nil, connectionError(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s: status %d: %s: %w", p.Name(), resp.StatusCode, string(body), forecast.ErrConnection)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s: status %d: %s: %w", p.Name(), resp.StatusCode, string(body), forecast.ErrValidation)
	}

	var pr PrometheusRangeResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode %s response: %w: %w", p.Name(), forecast.ErrDecode, err)
	}
	if pr.Status != "success" {
		return nil, fmt.Errorf("%s status: %s", p.Name(), pr.Status)
	}

	obs, err := AggregateRangeResult(pr.Data.Result)
	if err != nil {
		return nil, err
	}

	return clip(obs, w), nil
}

// PrometheusRangeResponse represents the response from Prometheus (and compatible systems).
type PrometheusRangeResponse struct {
	Status string              `json:"status"`
	Data   PrometheusRangeData `json:"data"`
}

// PrometheusRangeData contains the result data from a range query.
type PrometheusRangeData struct {
	ResultType string                 `json:"resultType"`
	Result     []PrometheusRangeSerie `json:"result"`
}

// PrometheusRangeSerie represents a single time series in the result.
type PrometheusRangeSerie struct {
	Metric map[string]string `json:"metric"`
	// Values is an array of [ <unix_time_float>, "<value_string>" ]
	Values [][]any `json:"values"`
}

// AggregateRangeResult merges multiple series into observations, summing
// values at the same timestamp. The result is unordered.
func AggregateRangeResult(series []PrometheusRangeSerie) ([]forecast.Observation, error) {
	acc := make(map[int64]float64)
	for _, s := range series {
		for _, pair := range s.Values {
			if len(pair) != 2 {
				return nil, fmt.Errorf("invalid value pair length: %d", len(pair))
			}

			var tsSec int64
			switch v := pair[0].(type) {
			case float64:
				tsSec = int64(v)
			case json.Number:
				f, err := v.Float64()
				if err != nil {
					return nil, fmt.Errorf("parse timestamp: %w", err)
				}
				tsSec = int64(f)
			default:
				return nil, fmt.Errorf("unexpected timestamp type %T", v)
			}

			var val float64
			switch vv := pair[1].(type) {
			case string:
				f, err := strconv.ParseFloat(vv, 64)
				if err != nil {
					return nil, fmt.Errorf("parse value: %w", err)
				}
				val = f
			case float64:
				val = vv
			case json.Number:
				f, err := vv.Float64()
				if err != nil {
					return nil, fmt.Errorf("parse value: %w", err)
				}
				val = f
			default:
				return nil, fmt.Errorf("unexpected value type %T", vv)
			}
			acc[tsSec] += val
		}
	}

	obs := make([]forecast.Observation, 0, len(acc))
	for ts, v := range acc {
		obs = append(obs, forecast.Observation{
			Timestamp: time.Unix(ts, 0).UTC(),
			Value:     v,
		})
	}
	return obs, nil
}
