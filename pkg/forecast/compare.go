package forecast

import (
	"math"
	"sort"
	"time"
)

// ComparisonRow joins an actual observation with the forecast for the same
// timestamp. Either side may be missing.
type ComparisonRow struct {
	Timestamp time.Time
	Actual    *float64
	Forecast  *Row
}

// Comparison is the outer join of actuals and a forecast table.
type Comparison struct {
	QuantileLevels []float64
	Rows           []ComparisonRow
}

// Summary scores a comparison over the timestamps present on both sides.
type Summary struct {
	// Matched is the number of timestamps with both an actual and a forecast.
	Matched int
	// MAE is the mean absolute error of the forecast mean. NaN when Matched is 0.
	MAE float64
	// Coverage is the share of actuals inside the band between the lowest and
	// highest requested quantile. NaN when fewer than two quantiles exist or
	// Matched is 0.
	Coverage float64
}

// Compare outer-joins actuals and the forecast on timestamp, ordered by time.
func Compare(actuals []Observation, table Table) Comparison {
	byTime := make(map[int64]*ComparisonRow, len(actuals)+len(table.Rows))
	order := make([]int64, 0, len(actuals)+len(table.Rows))

	get := func(ts time.Time) *ComparisonRow {
		key := ts.UnixNano()
		if r, ok := byTime[key]; ok {
			return r
		}
		r := &ComparisonRow{Timestamp: ts}
		byTime[key] = r
		order = append(order, key)
		return r
	}

	for _, a := range actuals {
		v := a.Value
		get(a.Timestamp).Actual = &v
	}
	for i := range table.Rows {
		row := table.Rows[i]
		get(row.Timestamp).Forecast = &row
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	rows := make([]ComparisonRow, len(order))
	for i, key := range order {
		rows[i] = *byTime[key]
	}
	return Comparison{QuantileLevels: table.QuantileLevels, Rows: rows}
}

// Summarize computes error statistics over matched rows.
func (c Comparison) Summarize() Summary {
	lo, hi := -1, -1
	for i, q := range c.QuantileLevels {
		if lo < 0 || q < c.QuantileLevels[lo] {
			lo = i
		}
		if hi < 0 || q > c.QuantileLevels[hi] {
			hi = i
		}
	}

	var (
		matched, inside int
		absErr          float64
	)
	for _, r := range c.Rows {
		if r.Actual == nil || r.Forecast == nil {
			continue
		}
		matched++
		absErr += math.Abs(*r.Actual - r.Forecast.Mean)
		if lo >= 0 && lo != hi {
			if *r.Actual >= r.Forecast.Quantiles[lo] && *r.Actual <= r.Forecast.Quantiles[hi] {
				inside++
			}
		}
	}

	s := Summary{Matched: matched, MAE: math.NaN(), Coverage: math.NaN()}
	if matched == 0 {
		return s
	}
	s.MAE = absErr / float64(matched)
	if lo >= 0 && lo != hi {
		s.Coverage = float64(inside) / float64(matched)
	}
	return s
}
