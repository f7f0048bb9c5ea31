package forecast

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ParseTime parses a "YYYY-MM-DD HH:mm:ss" timestamp in loc. A nil loc means UTC.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(TimeLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q (want %s): %w", s, TimeLayout, ErrValidation)
	}
	return t, nil
}

// Columns returns the record keys in output order.
func (t Table) Columns() []string {
	cols := make([]string, 0, 2+len(t.QuantileLevels))
	cols = append(cols, "timestamp", "mean")
	for _, q := range t.QuantileLevels {
		cols = append(cols, QuantileLabel(q))
	}
	return cols
}

// MarshalJSON encodes the table as a JSON array with one flat record per row:
//
//	[{"timestamp":"2025-08-17 00:00:00","mean":1.5,"0.1":1.1,"0.5":1.5,"0.9":1.9}, ...]
//
// Keys keep column order.
func (t Table) MarshalJSON() ([]byte, error) {
	labels := make([][]byte, len(t.QuantileLevels))
	for i, q := range t.QuantileLevels {
		b, err := json.Marshal(QuantileLabel(q))
		if err != nil {
			return nil, err
		}
		labels[i] = b
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range t.Rows {
		if len(r.Quantiles) != len(labels) {
			return nil, fmt.Errorf("row %d has %d quantiles, want %d: %w", i, len(r.Quantiles), len(labels), ErrDataShape)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"timestamp":"`)
		buf.WriteString(r.Timestamp.Format(TimeLayout))
		buf.WriteString(`","mean":`)
		if err := writeFloat(&buf, r.Mean); err != nil {
			return nil, fmt.Errorf("row %d mean: %w", i, err)
		}
		for j, v := range r.Quantiles {
			buf.WriteByte(',')
			buf.Write(labels[j])
			buf.WriteByte(':')
			if err := writeFloat(&buf, v); err != nil {
				return nil, fmt.Errorf("row %d quantile %s: %w", i, labels[j], err)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeFloat(buf *bytes.Buffer, v float64) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// UnmarshalJSON decodes the record form written by MarshalJSON. Quantile columns
// are taken from the first record in document order. Timestamps are read as UTC.
func (t *Table) UnmarshalJSON(data []byte) error {
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return fmt.Errorf("forecast table must be a JSON array: %w", ErrDecode)
	}

	records := root.Array()
	table := Table{Rows: make([]Row, 0, len(records))}

	for i, rec := range records {
		if !rec.IsObject() {
			return fmt.Errorf("record %d is not an object: %w", i, ErrDecode)
		}

		var (
			row    Row
			labels []string
			values []float64
			err    error
		)
		rec.ForEach(func(key, value gjson.Result) bool {
			switch key.String() {
			case "timestamp":
				row.Timestamp, err = ParseTime(value.String(), time.UTC)
			case "mean":
				row.Mean = value.Float()
			default:
				labels = append(labels, key.String())
				values = append(values, value.Float())
			}
			return err == nil
		})
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}

		if i == 0 {
			table.QuantileLevels = make([]float64, len(labels))
			for j, l := range labels {
				q, perr := strconv.ParseFloat(l, 64)
				if perr != nil {
					return fmt.Errorf("record 0: column %q is not a quantile level: %w", l, ErrDecode)
				}
				table.QuantileLevels[j] = q
			}
		}
		if len(labels) != len(table.QuantileLevels) {
			return fmt.Errorf("record %d has %d quantile columns, want %d: %w", i, len(labels), len(table.QuantileLevels), ErrDataShape)
		}
		for j, l := range labels {
			if l != QuantileLabel(table.QuantileLevels[j]) {
				return fmt.Errorf("record %d: column %q out of order: %w", i, l, ErrDataShape)
			}
		}

		row.Quantiles = values
		if row.Quantiles == nil {
			row.Quantiles = []float64{}
		}
		table.Rows = append(table.Rows, row)
	}

	*t = table
	return nil
}
