package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// quantileHeader names the quantile columns of a text table in p-notation.
func quantileHeader(levels []float64) string {
	var h string
	for _, q := range levels {
		h += forecast.FormatQuantileLevel(q) + "\t"
	}
	return h
}

// printTable writes the forecast rows as an aligned text table.
func printTable(w io.Writer, table forecast.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "timestamp\tmean\t"+quantileHeader(table.QuantileLevels))

	for _, r := range table.Rows {
		line := r.Timestamp.Format(forecast.TimeLayout) + "\t" + formatValue(r.Mean) + "\t"
		for _, v := range r.Quantiles {
			line += formatValue(v) + "\t"
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

// printRowsCSV writes the rows with the same column names as the JSON records.
func printRowsCSV(w io.Writer, table forecast.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns()); err != nil {
		return err
	}
	for _, r := range table.Rows {
		rec := make([]string, 0, 2+len(r.Quantiles))
		rec = append(rec, r.Timestamp.Format(forecast.TimeLayout), strconv.FormatFloat(r.Mean, 'f', -1, 64))
		for _, v := range r.Quantiles {
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// printRowsJSON writes the rows in the same record form the forecaster returns.
func printRowsJSON(w io.Writer, table forecast.Table) error {
	b, err := table.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

type comparisonRecord struct {
	Timestamp string             `json:"timestamp"`
	Actual    *float64           `json:"actual"`
	Mean      *float64           `json:"mean"`
	Quantiles map[string]float64 `json:"quantiles,omitempty"`
}

type summaryRecord struct {
	Matched  int      `json:"matched"`
	MAE      *float64 `json:"mae"`
	Coverage *float64 `json:"coverage"`
}

type comparisonOutput struct {
	Rows    []comparisonRecord `json:"rows"`
	Summary summaryRecord      `json:"summary"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func printComparisonJSON(w io.Writer, c forecast.Comparison) error {
	out := comparisonOutput{Rows: make([]comparisonRecord, 0, len(c.Rows))}
	for _, r := range c.Rows {
		rec := comparisonRecord{
			Timestamp: r.Timestamp.Format(forecast.TimeLayout),
			Actual:    r.Actual,
		}
		if r.Forecast != nil {
			mean := r.Forecast.Mean
			rec.Mean = &mean
			rec.Quantiles = make(map[string]float64, len(c.QuantileLevels))
			for i, q := range c.QuantileLevels {
				rec.Quantiles[forecast.QuantileLabel(q)] = r.Forecast.Quantiles[i]
			}
		}
		out.Rows = append(out.Rows, rec)
	}

	s := c.Summarize()
	out.Summary = summaryRecord{Matched: s.Matched, MAE: finite(s.MAE), Coverage: finite(s.Coverage)}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// printComparisonTable writes the joined rows followed by the summary.
// Missing sides are shown as "-".
func printComparisonTable(w io.Writer, c forecast.Comparison) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "timestamp\tactual\tmean\t"+quantileHeader(c.QuantileLevels))

	for _, r := range c.Rows {
		line := r.Timestamp.Format(forecast.TimeLayout) + "\t"
		if r.Actual != nil {
			line += formatValue(*r.Actual) + "\t"
		} else {
			line += "-\t"
		}
		if r.Forecast != nil {
			line += formatValue(r.Forecast.Mean) + "\t"
			for _, v := range r.Forecast.Quantiles {
				line += formatValue(v) + "\t"
			}
		} else {
			line += "-\t"
			for range c.QuantileLevels {
				line += "-\t"
			}
		}
		fmt.Fprintln(tw, line)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := c.Summarize()
	fmt.Fprintf(w, "\nmatched: %d\n", s.Matched)
	if !math.IsNaN(s.MAE) {
		fmt.Fprintf(w, "mae: %s\n", formatValue(s.MAE))
	}
	if !math.IsNaN(s.Coverage) {
		fmt.Fprintf(w, "coverage: %.1f%%\n", s.Coverage*100)
	}
	return nil
}
