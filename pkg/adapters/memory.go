package adapters

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

// MemorySource serves a fixed in-process series. The "memory" source kind
// loads it from a file; tests build it directly.
type MemorySource struct {
	mu  sync.RWMutex
	obs []forecast.Observation

	// Err, when set, is returned by every Fetch.
	Err error
}

// NewMemorySource returns a source over a copy of obs.
func NewMemorySource(obs []forecast.Observation) *MemorySource {
	s := &MemorySource{}
	s.Set(obs)
	return s
}

// Set replaces the stored series.
func (s *MemorySource) Set(obs []forecast.Observation) {
	cp := make([]forecast.Observation, len(obs))
	copy(cp, obs)

	s.mu.Lock()
	s.obs = cp
	s.mu.Unlock()
}

func (s *MemorySource) Name() string { return "memory" }

// Fetch implements Source.
func (s *MemorySource) Fetch(ctx context.Context, w forecast.Window) ([]forecast.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return clip(s.obs, w), nil
}

// LoadMemorySource reads a series file into a MemorySource. Files ending in
// .csv hold "timestamp,value" rows with an optional header; anything else is
// a JSON array of {"timestamp": ..., "value": ...} objects. Timestamps are
// RFC3339 or "YYYY-MM-DD HH:mm:ss" read in loc.
func LoadMemorySource(path string, loc *time.Location) (*MemorySource, error) {
	if path == "" {
		return nil, errors.New("memory source requires 'file' config")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memory source: %w", err)
	}
	defer f.Close()

	var obs []forecast.Observation
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		obs, err = readCSVObservations(f, loc)
	} else {
		obs, err = readJSONObservations(f, loc)
	}
	if err != nil {
		return nil, fmt.Errorf("memory source %s: %w", path, err)
	}
	return NewMemorySource(obs), nil
}

func readCSVObservations(r io.Reader, loc *time.Location) ([]forecast.Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", forecast.ErrDecode, err)
	}

	obs := make([]forecast.Observation, 0, len(records))
	for i, rec := range records {
		if i == 0 && strings.EqualFold(rec[0], "timestamp") {
			continue
		}
		ts, err := parseFileTime(rec[0], loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: value %q: %w", i+1, rec[1], forecast.ErrDecode)
		}
		obs = append(obs, forecast.Observation{Timestamp: ts, Value: v})
	}
	return obs, nil
}

func readJSONObservations(r io.Reader, loc *time.Location) ([]forecast.Observation, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc := gjson.ParseBytes(body)
	if !gjson.ValidBytes(body) || !doc.IsArray() {
		return nil, fmt.Errorf("want a JSON array of points: %w", forecast.ErrDecode)
	}

	points := doc.Array()
	obs := make([]forecast.Observation, 0, len(points))
	for i, p := range points {
		tsField, value := p.Get("timestamp"), p.Get("value")
		if !tsField.Exists() || value.Type != gjson.Number {
			return nil, fmt.Errorf("point %d: need timestamp and numeric value: %w", i, forecast.ErrDecode)
		}
		ts, err := parseFileTime(tsField.String(), loc)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		obs = append(obs, forecast.Observation{Timestamp: ts, Value: value.Float()})
	}
	return obs, nil
}

func parseFileTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := forecast.ParseTime(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, forecast.ErrDecode)
	}
	return t, nil
}
