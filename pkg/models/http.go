package models

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

// HTTPClient posts the payload to an HTTP endpoint, such as a self-hosted
// Chronos container or a gateway in front of one.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	// Header is added to every request, e.g. an API key.
	Header http.Header
}

// NewHTTPClient creates a client for the given URL. The client sets no
// timeout of its own; calls end with the caller's context.
func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
		Header: http.Header{},
	}
}

// WithHTTPClient replaces the underlying *http.Client, e.g. one with an
// operator-configured timeout.
func (c *HTTPClient) WithHTTPClient(hc *http.Client) *HTTPClient {
	c.client = hc
	return c
}

// Name returns the endpoint kind.
func (c *HTTPClient) Name() string {
	return "http"
}

// Predict implements Client.
func (c *HTTPClient) Predict(ctx context.Context, req forecast.Request) (forecast.Response, error) {
	body, err := MarshalPayload(req)
	if err != nil {
		return forecast.Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return forecast.Response{}, fmt.Errorf("http endpoint: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", contentType)
	for k, vs := range c.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return forecast.Response{}, &forecast.EndpointError{Endpoint: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return forecast.Response{}, &forecast.EndpointError{
			Endpoint:   c.endpoint,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(bodyBytes)),
		}
	}

	reply, err := io.ReadAll(resp.Body)
	if err != nil {
		return forecast.Response{}, &forecast.EndpointError{Endpoint: c.endpoint, Err: err}
	}
	return DecodeReply(reply, req.QuantileLevels)
}
