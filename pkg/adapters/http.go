package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/tidwall/gjson"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

// HTTPSource calls a REST API and extracts the context window using JSON path
// expressions.
//
// Body, header and URL templates see the window through these variables:
//
//	{{.Start}}, {{.End}}                   Unix seconds
//	{{.StartRFC3339}}, {{.EndRFC3339}}     RFC3339 strings
//	{{.StartLocal}}, {{.EndLocal}}         "2006-01-02 15:04:05" in Location
//	{{.Step}}                              step in seconds
//	{{.WindowSeconds}}                     End - Start in seconds
//
// plus every entry of TemplateVars. Points outside the window are dropped, so
// an API that only supports inclusive bounds still yields [Start, End).
//
// Example configuration for a custom metrics API:
//
//	src := &HTTPSource{
//	    URL:    "https://api.example.com/series?from={{.Start}}&to={{.End}}",
//	    Headers: map[string]string{"Authorization": "Bearer {{.Token}}"},
//	    ValuePath:     "data.#.value",
//	    TimestampPath: "data.#.timestamp",
//	}
type HTTPSource struct {
	// URL is the endpoint to call (required). May contain template variables.
	URL string

	// Method is the HTTP method (GET, POST, etc.). Defaults to GET if empty.
	Method string

	// Headers are custom HTTP headers to include in the request.
	Headers map[string]string

	// Body is the request body template (for POST/PUT).
	Body string

	// ValuePath is the gjson path to extract values from the response.
	// Use "#" for arrays, e.g. "data.#.value" extracts all values from data array.
	ValuePath string

	// TimestampPath is the gjson path to extract timestamps from the response.
	// Must return the same number of elements as ValuePath.
	TimestampPath string

	// TimestampFormat specifies how to parse timestamps:
	//   "rfc3339"    - RFC3339 strings (default)
	//   "unix"       - Unix seconds (float or int)
	//   "unix_milli" - Unix milliseconds (float or int)
	//   "local"      - "2006-01-02 15:04:05" read in Location
	TimestampFormat string

	// Location applies to the "local" format and template variables. Nil means UTC.
	Location *time.Location

	// HTTPClient is optional; nil uses http.DefaultClient, bounded only by
	// the caller's context.
	HTTPClient *http.Client

	// TemplateVars are custom variables available in URL, Body and Headers templates.
	TemplateVars map[string]string
}

func (h *HTTPSource) Name() string { return "http" }

// Fetch implements Source.
func (h *HTTPSource) Fetch(ctx context.Context, w forecast.Window) ([]forecast.Observation, error) {
	if err := h.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("http source: %w", err)
	}
	if !w.Start.Before(w.End) {
		return []forecast.Observation{}, nil
	}

	templateData := h.templateData(w)

	method := h.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := renderTemplate(h.URL, templateData)
	if err != nil {
		return nil, fmt.Errorf("render url template: %w", err)
	}

	var bodyReader io.Reader
	if h.Body != "" {
		renderedBody, err := renderTemplate(h.Body, templateData)
		if err != nil {
			return nil, fmt.Errorf("render body template: %w", err)
		}
		bodyReader = bytes.NewBufferString(renderedBody)
	}

	cli := h.HTTPClient
	if cli == nil {
		cli = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range h.Headers {
		rendered, err := renderTemplate(value, templateData)
		if err != nil {
			return nil, fmt.Errorf("render header %s: %w", key, err)
		}
		req.Header.Set(key, rendered)
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, connectionError(h.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		kind := forecast.ErrValidation
		if resp.StatusCode >= http.StatusInternalServerError {
			kind = forecast.ErrConnection
		}
		return nil, fmt.Errorf("http source: status %d: %s: %w", resp.StatusCode, string(body), kind)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connectionError(h.Name(), err)
	}

	obs, err := h.extract(respBody)
	if err != nil {
		return nil, err
	}
	return clip(obs, w), nil
}

func (h *HTTPSource) templateData(w forecast.Window) map[string]any {
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}

	data := map[string]any{
		"WindowSeconds": int64(w.End.Sub(w.Start).Seconds()),
		"Start":         w.Start.Unix(),
		"End":           w.End.Unix(),
		"Step":          int64(w.Step.Seconds()),
		"StartRFC3339":  w.Start.UTC().Format(time.RFC3339),
		"EndRFC3339":    w.End.UTC().Format(time.RFC3339),
		"StartLocal":    w.Start.In(loc).Format(forecast.TimeLayout),
		"EndLocal":      w.End.In(loc).Format(forecast.TimeLayout),
	}
	for k, v := range h.TemplateVars {
		data[k] = v
	}
	return data
}

func (h *HTTPSource) extract(body []byte) ([]forecast.Observation, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("http source: response is not JSON: %w", forecast.ErrDecode)
	}

	values := gjson.GetBytes(body, h.ValuePath)
	timestamps := gjson.GetBytes(body, h.TimestampPath)

	if !values.Exists() {
		return nil, fmt.Errorf("value path %q not found in response: %w", h.ValuePath, forecast.ErrDecode)
	}
	if !timestamps.Exists() {
		return nil, fmt.Errorf("timestamp path %q not found in response: %w", h.TimestampPath, forecast.ErrDecode)
	}

	valArray := values.Array()
	tsArray := timestamps.Array()

	if len(valArray) != len(tsArray) {
		return nil, fmt.Errorf("value count (%d) != timestamp count (%d): %w", len(valArray), len(tsArray), forecast.ErrDecode)
	}

	obs := make([]forecast.Observation, 0, len(valArray))
	for i := range valArray {
		ts, err := h.parseTimestamp(tsArray[i])
		if err != nil {
			return nil, fmt.Errorf("parse timestamp[%d]: %w: %w", i, forecast.ErrDecode, err)
		}
		obs = append(obs, forecast.Observation{Timestamp: ts, Value: valArray[i].Float()})
	}
	return obs, nil
}

// parseTimestamp parses a timestamp according to the configured format
func (h *HTTPSource) parseTimestamp(value gjson.Result) (time.Time, error) {
	format := h.TimestampFormat
	if format == "" {
		format = "rfc3339"
	}

	switch format {
	case "rfc3339":
		return time.Parse(time.RFC3339, value.String())

	case "unix":
		// Unix seconds (supports both int and float)
		sec := value.Float()
		return time.Unix(int64(sec), 0).UTC(), nil

	case "unix_milli":
		ms := value.Float()
		return time.UnixMilli(int64(ms)).UTC(), nil

	case "local":
		return forecast.ParseTime(value.String(), h.Location)

	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp format: %s", format)
	}
}

// renderTemplate renders a text template with the given data
func renderTemplate(tmplStr string, data map[string]any) (string, error) {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr, nil
	}

	tmpl, err := template.New("").Option("missingkey=error").Parse(tmplStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// ValidateConfig checks if the source configuration is valid
func (h *HTTPSource) ValidateConfig() error {
	if h.URL == "" {
		return errors.New("url is required")
	}
	if h.ValuePath == "" {
		return errors.New("valuePath is required")
	}
	if h.TimestampPath == "" {
		return errors.New("timestampPath is required")
	}

	switch h.TimestampFormat {
	case "", "rfc3339", "unix", "unix_milli", "local":
		return nil
	default:
		return fmt.Errorf("invalid timestampFormat: %s (must be rfc3339, unix, unix_milli or local)", h.TimestampFormat)
	}
}
