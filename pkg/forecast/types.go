// Package forecast holds the data model of a single forecast invocation and the
// pure stages of the pipeline: building the endpoint request from observations
// and assembling the endpoint reply into timestamped rows.
//
// The package performs no I/O. Fetching observations lives in pkg/adapters and
// calling the model endpoint lives in pkg/models.
package forecast

import "time"

// TimeLayout is the wire format of initialization and row timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Observation is one point of the source time series.
type Observation struct {
	Timestamp time.Time
	Value     float64
}

// Window is the half-open time range [Start, End) of the context slice.
// Step is the nominal spacing of the series; resampling sources use it as
// their resolution.
type Window struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// ContextWindow returns [t0 - step*contextLength, t0).
func ContextWindow(t0 time.Time, step time.Duration, contextLength int) Window {
	return Window{
		Start: t0.Add(-step * time.Duration(contextLength)),
		End:   t0,
		Step:  step,
	}
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// Request is the payload sent to the forecasting endpoint.
type Request struct {
	Target           []float64
	PredictionLength int
	QuantileLevels   []float64
}

// Response holds one series per statistic returned by the endpoint.
// Quantiles is keyed by the label produced by QuantileLabel.
type Response struct {
	Mean      []float64
	Quantiles map[string][]float64
}

// Row is a single future time step of the assembled forecast.
type Row struct {
	// Timestamp is a naive wall-clock reading carried in UTC.
	Timestamp time.Time
	Mean      float64
	// Quantiles are aligned with Table.QuantileLevels.
	Quantiles []float64
}

// Table is the assembled forecast: rows in time order plus the quantile levels
// that name the Row.Quantiles columns.
type Table struct {
	QuantileLevels []float64
	Rows           []Row
}

// Params are the invocation parameters of one forecast.
type Params struct {
	InitializationTime time.Time
	Frequency          time.Duration
	ContextLength      int
	PredictionLength   int
	QuantileLevels     []float64
}

// Window returns the context window implied by the parameters.
func (p Params) Window() Window {
	return ContextWindow(p.InitializationTime, p.Frequency, p.ContextLength)
}
