package forecast

import (
	"fmt"
	"time"
)

// Invocation is the input record of one forecast call, as received by the
// Lambda function and by POST /forecast.
type Invocation struct {
	// InitializationTimestamp is the first forecast timestamp, "YYYY-MM-DD HH:mm:ss".
	InitializationTimestamp string `json:"initialization_timestamp"`
	// Frequency is the series step in minutes.
	Frequency        int       `json:"frequency"`
	ContextLength    int       `json:"context_length"`
	PredictionLength int       `json:"prediction_length"`
	QuantileLevels   []float64 `json:"quantile_levels,omitempty"`
}

// Params converts the invocation into pipeline parameters. The timestamp is
// read in loc and defaultLevels apply when no quantile levels are given.
// prediction_length and the quantile levels are passed through for the
// endpoint to judge, except that a repeated level is rejected since each level
// names one output column.
func (in Invocation) Params(loc *time.Location, defaultLevels []float64) (Params, error) {
	t0, err := ParseTime(in.InitializationTimestamp, loc)
	if err != nil {
		return Params{}, err
	}
	if in.Frequency <= 0 {
		return Params{}, fmt.Errorf("frequency must be > 0 minutes, got %d: %w", in.Frequency, ErrValidation)
	}
	if in.ContextLength < 0 {
		return Params{}, fmt.Errorf("context_length must be >= 0, got %d: %w", in.ContextLength, ErrValidation)
	}

	levels := in.QuantileLevels
	if len(levels) == 0 {
		levels = defaultLevels
	}
	seen := make(map[float64]bool, len(levels))
	for _, q := range levels {
		if seen[q] {
			return Params{}, fmt.Errorf("duplicate quantile %v: %w", q, ErrValidation)
		}
		seen[q] = true
	}

	return Params{
		InitializationTime: t0,
		Frequency:          time.Duration(in.Frequency) * time.Minute,
		ContextLength:      in.ContextLength,
		PredictionLength:   in.PredictionLength,
		QuantileLevels:     append([]float64(nil), levels...),
	}, nil
}
