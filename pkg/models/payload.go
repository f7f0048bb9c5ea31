package models

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

const contentType = "application/json"

type payload struct {
	Inputs     []payloadInput    `json:"inputs"`
	Parameters payloadParameters `json:"parameters"`
}

type payloadInput struct {
	Target []float64 `json:"target"`
}

type payloadParameters struct {
	PredictionLength int `json:"prediction_length"`
	// Omitted when empty so the endpoint applies its own default levels.
	QuantileLevels []float64 `json:"quantile_levels,omitempty"`
}

// MarshalPayload encodes req in the endpoint request format. An empty target
// is sent as [] rather than null.
func MarshalPayload(req forecast.Request) ([]byte, error) {
	target := req.Target
	if target == nil {
		target = []float64{}
	}

	body, err := json.Marshal(payload{
		Inputs: []payloadInput{{Target: target}},
		Parameters: payloadParameters{
			PredictionLength: req.PredictionLength,
			QuantileLevels:   req.QuantileLevels,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return body, nil
}

// DecodeReply extracts the mean series and one series per requested quantile
// level from the first prediction of an endpoint reply. Extra statistics are
// ignored.
func DecodeReply(body []byte, quantileLevels []float64) (forecast.Response, error) {
	if !gjson.ValidBytes(body) {
		return forecast.Response{}, fmt.Errorf("reply is not valid JSON: %w", forecast.ErrDecode)
	}

	pred := gjson.GetBytes(body, "predictions.0")
	if !pred.IsObject() {
		return forecast.Response{}, fmt.Errorf("reply has no predictions[0] object: %w", forecast.ErrDecode)
	}

	series := make(map[string]gjson.Result)
	pred.ForEach(func(key, value gjson.Result) bool {
		series[key.String()] = value
		return true
	})

	mean, err := numbers(series, "mean")
	if err != nil {
		return forecast.Response{}, err
	}

	resp := forecast.Response{
		Mean:      mean,
		Quantiles: make(map[string][]float64, len(quantileLevels)),
	}
	for _, q := range quantileLevels {
		label := forecast.QuantileLabel(q)
		values, err := numbers(series, label)
		if err != nil {
			return forecast.Response{}, err
		}
		resp.Quantiles[label] = values
	}
	return resp, nil
}

func numbers(series map[string]gjson.Result, key string) ([]float64, error) {
	v, ok := series[key]
	if !ok {
		return nil, fmt.Errorf("reply has no %q series: %w", key, forecast.ErrDecode)
	}
	if !v.IsArray() {
		return nil, fmt.Errorf("reply %q is not an array: %w", key, forecast.ErrDecode)
	}

	items := v.Array()
	out := make([]float64, len(items))
	for i, item := range items {
		if item.Type != gjson.Number {
			return nil, fmt.Errorf("reply %q[%d] is not a number: %w", key, i, forecast.ErrDecode)
		}
		out[i] = item.Float()
	}
	return out, nil
}
