package models

import (
	"errors"
	"fmt"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

// awsEndpointError converts an AWS SDK error into a *forecast.EndpointError,
// keeping the HTTP status and the service error code when present.
func awsEndpointError(endpoint string, err error) error {
	e := &forecast.EndpointError{Endpoint: endpoint, Err: err}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		e.StatusCode = respErr.HTTPStatusCode()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		e.Message = fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return e
}
