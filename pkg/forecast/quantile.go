package forecast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultQuantileLevels are requested when the caller does not name any.
var DefaultQuantileLevels = []float64{0.1, 0.5, 0.9}

// ParseQuantileLevel parses a quantile level from either p-notation (p10, p90)
// or decimal notation (0.1, 0.9). The level must lie strictly inside (0, 1).
//
// Examples:
//   - "p10" → 0.1
//   - "p50" → 0.5
//   - "0.9" → 0.9
func ParseQuantileLevel(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantile level: %w", ErrValidation)
	}

	var q float64
	if strings.HasPrefix(strings.ToLower(s), "p") {
		percentile, err := strconv.ParseFloat(s[1:], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid p-notation %q: %w", s, ErrValidation)
		}
		q = percentile / 100.0
	} else {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid quantile %q: %w", s, ErrValidation)
		}
		q = f
	}

	if q <= 0 || q >= 1 {
		return 0, fmt.Errorf("quantile %v out of range (0, 1): %w", q, ErrValidation)
	}
	return q, nil
}

// ParseQuantileLevels parses a comma separated list of quantile levels.
// Order is preserved and duplicates are rejected.
func ParseQuantileLevels(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	levels := make([]float64, 0, len(parts))
	seen := make(map[float64]bool, len(parts))
	for _, p := range parts {
		q, err := ParseQuantileLevel(p)
		if err != nil {
			return nil, err
		}
		if seen[q] {
			return nil, fmt.Errorf("duplicate quantile %v: %w", q, ErrValidation)
		}
		seen[q] = true
		levels = append(levels, q)
	}
	return levels, nil
}

// QuantileLabel is the key under which a quantile series travels on the wire,
// e.g. 0.1 → "0.1".
func QuantileLabel(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// FormatQuantileLevel formats a quantile level as p-notation for display.
//
// Examples:
//   - 0.1 → "p10"
//   - 0.95 → "p95"
//   - 0.975 → "p97.5"
func FormatQuantileLevel(q float64) string {
	percentile := math.Round(q*1000) / 10
	if percentile == math.Trunc(percentile) {
		return fmt.Sprintf("p%d", int(percentile))
	}
	return fmt.Sprintf("p%.1f", percentile)
}
