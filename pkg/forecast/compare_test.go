package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	t0 := time.Date(2025, 8, 17, 0, 0, 0, 0, time.UTC)
	step := 15 * time.Minute

	actuals := []Observation{
		{Timestamp: t0.Add(-step), Value: 10},
		{Timestamp: t0, Value: 12},
		{Timestamp: t0.Add(step), Value: 20},
	}
	table := Table{
		QuantileLevels: []float64{0.1, 0.5, 0.9},
		Rows: []Row{
			{Timestamp: t0, Mean: 11, Quantiles: []float64{9, 11, 13}},
			{Timestamp: t0.Add(step), Mean: 14, Quantiles: []float64{12, 14, 16}},
			{Timestamp: t0.Add(2 * step), Mean: 15, Quantiles: []float64{13, 15, 17}},
		},
	}

	cmp := Compare(actuals, table)
	require.Len(t, cmp.Rows, 4)

	assert.Equal(t, t0.Add(-step), cmp.Rows[0].Timestamp)
	assert.NotNil(t, cmp.Rows[0].Actual)
	assert.Nil(t, cmp.Rows[0].Forecast)

	assert.Equal(t, 12.0, *cmp.Rows[1].Actual)
	assert.Equal(t, 11.0, cmp.Rows[1].Forecast.Mean)

	assert.Nil(t, cmp.Rows[3].Actual)
	assert.NotNil(t, cmp.Rows[3].Forecast)

	s := cmp.Summarize()
	assert.Equal(t, 2, s.Matched)
	assert.InDelta(t, 3.5, s.MAE, 1e-9)
	assert.InDelta(t, 0.5, s.Coverage, 1e-9)
}

func TestSummarize_NoOverlap(t *testing.T) {
	t0 := time.Date(2025, 8, 17, 0, 0, 0, 0, time.UTC)
	cmp := Compare(
		[]Observation{{Timestamp: t0.Add(-time.Hour), Value: 1}},
		Table{QuantileLevels: []float64{0.5}, Rows: []Row{{Timestamp: t0, Mean: 1, Quantiles: []float64{1}}}},
	)

	s := cmp.Summarize()
	assert.Equal(t, 0, s.Matched)
	assert.True(t, math.IsNaN(s.MAE))
	assert.True(t, math.IsNaN(s.Coverage))
}
