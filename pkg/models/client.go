// Package models contains the clients that call a remote forecasting model
// (Chronos-Bolt or any endpoint speaking the same JSON contract).
//
// Every client sends the same payload:
//
//	{"inputs":[{"target":[...]}],"parameters":{"prediction_length":n,"quantile_levels":[...]}}
//
// and expects the same reply:
//
//	{"predictions":[{"mean":[...],"0.1":[...],"0.5":[...],"0.9":[...]}]}
//
// Clients do not retry. A non-success answer is a *forecast.EndpointError; a reply
// without the expected keys matches forecast.ErrDecode. Series lengths are left
// to forecast.Assemble.
package models

import (
	"context"
	"fmt"
	"net/http"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

// Client invokes a remote forecasting endpoint.
type Client interface {
	// Name returns the endpoint kind, e.g. "bedrock".
	Name() string
	// Predict sends req and decodes the reply.
	Predict(ctx context.Context, req forecast.Request) (forecast.Response, error)
}

// Options configures New.
type Options struct {
	// EndpointID is the Bedrock model ID or ARN, the SageMaker endpoint name,
	// or the URL of an HTTP endpoint.
	EndpointID string
	Bedrock    BedrockInvoker
	SageMaker  SageMakerInvoker
	// HTTPClient, when set, replaces the default client of the "http" kind.
	HTTPClient *http.Client
}

// New builds the client for kind ("bedrock", "sagemaker" or "http").
func New(kind string, opts Options) (Client, error) {
	if opts.EndpointID == "" {
		return nil, fmt.Errorf("%s endpoint requires an endpoint id", kind)
	}

	switch kind {
	case "bedrock":
		if opts.Bedrock == nil {
			return nil, fmt.Errorf("bedrock endpoint requires a runtime client")
		}
		return NewBedrockClient(opts.Bedrock, opts.EndpointID), nil
	case "sagemaker":
		if opts.SageMaker == nil {
			return nil, fmt.Errorf("sagemaker endpoint requires a runtime client")
		}
		return NewSageMakerClient(opts.SageMaker, opts.EndpointID), nil
	case "http":
		c := NewHTTPClient(opts.EndpointID)
		if opts.HTTPClient != nil {
			c.WithHTTPClient(opts.HTTPClient)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown endpoint kind: %s (must be bedrock, sagemaker, or http)", kind)
	}
}
