package forecast

import (
	"fmt"
	"time"
)

// Timestamps returns n wall-clock timestamps starting at t0's clock reading and
// spaced by step. The grid is naive: it is built in UTC from t0's date and
// clock fields, so a DST change in t0's zone neither skips nor repeats a row.
func Timestamps(t0 time.Time, step time.Duration, n int) ([]time.Time, error) {
	if step <= 0 {
		return nil, fmt.Errorf("frequency must be > 0, got %v: %w", step, ErrValidation)
	}
	if n < 0 {
		return nil, fmt.Errorf("prediction length must be >= 0, got %d: %w", n, ErrValidation)
	}

	wall := time.Date(t0.Year(), t0.Month(), t0.Day(), t0.Hour(), t0.Minute(), t0.Second(), t0.Nanosecond(), time.UTC)
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = wall.Add(step * time.Duration(i))
	}
	return ts, nil
}

// Assemble zips the endpoint series with generated timestamps. Every series must
// hold exactly n values; otherwise ErrDataShape is returned and no rows are
// produced.
func Assemble(resp Response, quantileLevels []float64, t0 time.Time, step time.Duration, n int) (Table, error) {
	ts, err := Timestamps(t0, step, n)
	if err != nil {
		return Table{}, err
	}

	if len(resp.Mean) != n {
		return Table{}, fmt.Errorf("mean has %d values, want %d: %w", len(resp.Mean), n, ErrDataShape)
	}

	series := make([][]float64, len(quantileLevels))
	for i, q := range quantileLevels {
		label := QuantileLabel(q)
		values, ok := resp.Quantiles[label]
		if !ok {
			return Table{}, fmt.Errorf("quantile %s missing from response: %w", label, ErrDataShape)
		}
		if len(values) != n {
			return Table{}, fmt.Errorf("quantile %s has %d values, want %d: %w", label, len(values), n, ErrDataShape)
		}
		series[i] = values
	}

	rows := make([]Row, n)
	for i := range rows {
		qs := make([]float64, len(series))
		for j := range series {
			qs[j] = series[j][i]
		}
		rows[i] = Row{
			Timestamp: ts[i],
			Mean:      resp.Mean[i],
			Quantiles: qs,
		}
	}

	levels := make([]float64, len(quantileLevels))
	copy(levels, quantileLevels)

	return Table{QuantileLevels: levels, Rows: rows}, nil
}
