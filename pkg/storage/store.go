// Package storage keeps the latest published forecast per series so it can be
// served without re-running the pipeline.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

// Snapshot is one published forecast run.
type Snapshot struct {
	Series             string         `json:"series"`
	RunID              string         `json:"run_id"`
	InitializationTime time.Time      `json:"initialization_time"`
	FrequencySeconds   int            `json:"frequency_seconds"`
	ContextPoints      int            `json:"context_points"`
	GeneratedAt        time.Time      `json:"generated_at"`
	Table              forecast.Table `json:"rows"`
}

type Store interface {
	Put(ctx context.Context, snapshot Snapshot) error
	GetLatest(ctx context.Context, series string) (Snapshot, bool, error)
}

// ValidateSeries restricts series names to characters that are safe in keys
// and URLs.
func ValidateSeries(series string) error {
	if series == "" {
		return fmt.Errorf("series name required")
	}
	for _, c := range series {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_') {
			return fmt.Errorf("invalid series name %q: only alphanumeric, hyphens, and underscores allowed", series)
		}
	}
	return nil
}
