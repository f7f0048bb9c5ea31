package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/HatiCode/chronocast/pkg/adapters"
	"github.com/HatiCode/chronocast/pkg/forecast"
)

// localize reinterprets the wall-clock row timestamps in loc. Forecast rows
// carry naive timestamps, which decode as UTC.
func localize(table forecast.Table, loc *time.Location) forecast.Table {
	if loc == nil || loc == time.UTC {
		return table
	}
	rows := make([]forecast.Row, len(table.Rows))
	for i, r := range table.Rows {
		t := r.Timestamp
		r.Timestamp = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
		rows[i] = r
	}
	return forecast.Table{QuantileLevels: table.QuantileLevels, Rows: rows}
}

// parseLookback accepts a Go duration or a whole number of days such as "14d".
func parseLookback(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid lookback %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid lookback %q", s)
	}
	return d, nil
}

// actualsWindow covers the lookback before t0 and the forecast horizon.
func actualsWindow(p forecast.Params, lookback time.Duration) forecast.Window {
	return forecast.Window{
		Start: p.InitializationTime.Add(-lookback),
		End:   p.InitializationTime.Add(p.Frequency * time.Duration(p.PredictionLength)),
		Step:  p.Frequency,
	}
}

// compareRun forecasts in and joins the result with actuals read from src.
func compareRun(ctx context.Context, f forecaster, src adapters.Source, in forecast.Invocation, loc *time.Location, lookback time.Duration) (forecast.Comparison, error) {
	p, err := in.Params(loc, forecast.DefaultQuantileLevels)
	if err != nil {
		return forecast.Comparison{}, err
	}

	table, err := f.Forecast(ctx, in)
	if err != nil {
		return forecast.Comparison{}, err
	}

	actuals, err := src.Fetch(ctx, actualsWindow(p, lookback))
	if err != nil {
		return forecast.Comparison{}, fmt.Errorf("fetch actuals: %w", err)
	}

	return forecast.Compare(actuals, localize(table, loc)), nil
}
