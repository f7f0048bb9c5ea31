package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/goccy/go-json"

	"github.com/HatiCode/chronocast/pkg/forecast"
	"github.com/HatiCode/chronocast/pkg/httpx"
)

// forecaster obtains a forecast table from a deployed forecaster.
type forecaster interface {
	Forecast(ctx context.Context, in forecast.Invocation) (forecast.Table, error)
}

// LambdaAPI is the subset of *lambda.Client used here.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// lambdaForecaster invokes the forecaster Lambda function synchronously.
type lambdaForecaster struct {
	api      LambdaAPI
	function string
}

// lambdaResult mirrors the function's {"statusCode":200,"body":"..."} result.
type lambdaResult struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// functionError is the payload Lambda returns for a failed invocation.
type functionError struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

func (l *lambdaForecaster) Forecast(ctx context.Context, in forecast.Invocation) (forecast.Table, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return forecast.Table{}, err
	}

	out, err := l.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(l.function),
		Payload:      payload,
	})
	if err != nil {
		return forecast.Table{}, fmt.Errorf("invoke %s: %w", l.function, err)
	}

	if out.FunctionError != nil {
		var fe functionError
		if err := json.Unmarshal(out.Payload, &fe); err != nil || fe.ErrorMessage == "" {
			return forecast.Table{}, fmt.Errorf("function %s failed (%s): %s", l.function, aws.ToString(out.FunctionError), string(out.Payload))
		}
		return forecast.Table{}, fmt.Errorf("function %s failed (%s): %s", l.function, fe.ErrorType, fe.ErrorMessage)
	}

	var res lambdaResult
	if err := json.Unmarshal(out.Payload, &res); err != nil {
		return forecast.Table{}, fmt.Errorf("decode function result: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return forecast.Table{}, fmt.Errorf("function %s returned status %d: %s", l.function, res.StatusCode, res.Body)
	}

	var table forecast.Table
	if err := table.UnmarshalJSON([]byte(res.Body)); err != nil {
		return forecast.Table{}, fmt.Errorf("decode forecast rows: %w", err)
	}
	return table, nil
}

// httpForecaster calls POST /forecast on the forecaster service.
type httpForecaster struct {
	client  *http.Client
	baseURL string
}

func (h *httpForecaster) Forecast(ctx context.Context, in forecast.Invocation) (forecast.Table, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return forecast.Table{}, err
	}

	url := strings.TrimRight(h.baseURL, "/") + "/forecast"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return forecast.Table{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return forecast.Table{}, fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return forecast.Table{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e httpx.ErrorResponse
		if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
			if e.Kind != "" {
				return forecast.Table{}, fmt.Errorf("forecaster returned %d (%s): %s", resp.StatusCode, e.Kind, e.Error)
			}
			return forecast.Table{}, fmt.Errorf("forecaster returned %d: %s", resp.StatusCode, e.Error)
		}
		return forecast.Table{}, fmt.Errorf("forecaster returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var table forecast.Table
	if err := table.UnmarshalJSON(body); err != nil {
		return forecast.Table{}, fmt.Errorf("decode forecast rows: %w", err)
	}
	return table, nil
}
