package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

func testSnapshot(series string, mean float64) Snapshot {
	t0 := time.Date(2025, 8, 17, 0, 0, 0, 0, time.UTC)
	return Snapshot{
		Series:             series,
		RunID:              "run-" + series,
		InitializationTime: t0,
		FrequencySeconds:   900,
		ContextPoints:      2016,
		GeneratedAt:        time.Now(),
		Table: forecast.Table{
			QuantileLevels: []float64{0.1, 0.9},
			Rows: []forecast.Row{
				{Timestamp: t0, Mean: mean, Quantiles: []float64{mean - 1, mean + 1}},
				{Timestamp: t0.Add(15 * time.Minute), Mean: mean + 1, Quantiles: []float64{mean, mean + 2}},
			},
		},
	}
}

func TestMemoryStore_Put_Get(t *testing.T) {
	tests := []struct {
		name     string
		snapshot Snapshot
		wantErr  bool
	}{
		{
			name:     "valid snapshot",
			snapshot: testSnapshot("energy-load", 100),
		},
		{
			name:     "empty series",
			snapshot: testSnapshot("", 100),
			wantErr:  true,
		},
		{
			name:     "invalid series",
			snapshot: testSnapshot("energy/load", 100),
			wantErr:  true,
		},
		{
			name:     "minimal valid snapshot",
			snapshot: Snapshot{Series: "minimal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()

			err := store.Put(context.Background(), tt.snapshot)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Put() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			got, found, err := store.GetLatest(context.Background(), tt.snapshot.Series)
			if err != nil {
				t.Fatalf("GetLatest() unexpected error = %v", err)
			}
			if !found {
				t.Fatal("GetLatest() found = false, want true")
			}
			if got.RunID != tt.snapshot.RunID {
				t.Errorf("RunID = %q, want %q", got.RunID, tt.snapshot.RunID)
			}
			if len(got.Table.Rows) != len(tt.snapshot.Table.Rows) {
				t.Errorf("rows = %d, want %d", len(got.Table.Rows), len(tt.snapshot.Table.Rows))
			}
		})
	}
}

func TestMemoryStore_GetLatest_NotFound(t *testing.T) {
	store := NewMemoryStore()

	snapshot, found, err := store.GetLatest(context.Background(), "nonexistent")
	if err != nil {
		t.Errorf("GetLatest() unexpected error = %v", err)
	}
	if found {
		t.Error("GetLatest() found = true for nonexistent series, want false")
	}
	if snapshot.Series != "" {
		t.Errorf("GetLatest() returned non-zero snapshot for nonexistent series")
	}
}

func TestMemoryStore_Put_Update(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Put(context.Background(), testSnapshot("load", 1)); err != nil {
		t.Fatalf("Put() first snapshot error = %v", err)
	}
	if err := store.Put(context.Background(), testSnapshot("load", 50)); err != nil {
		t.Fatalf("Put() second snapshot error = %v", err)
	}

	got, found, err := store.GetLatest(context.Background(), "load")
	if err != nil || !found {
		t.Fatalf("GetLatest() found=%v err=%v", found, err)
	}
	if got.Table.Rows[0].Mean != 50 {
		t.Errorf("GetLatest() returned old snapshot, want updated one")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d after update, want 1", store.Len())
	}
}

func TestMemoryStore_ConcurrentSeries(t *testing.T) {
	store := NewMemoryStore()
	series := []string{"s-1", "s-2", "s-3", "s-4", "s-5"}

	var wg sync.WaitGroup
	for _, name := range series {
		wg.Add(2)
		go func(s string) {
			defer wg.Done()
			for i := range 100 {
				if err := store.Put(context.Background(), testSnapshot(s, float64(i))); err != nil {
					t.Errorf("Put(%s) error = %v", s, err)
				}
			}
		}(name)
		go func(s string) {
			defer wg.Done()
			for range 100 {
				if _, _, err := store.GetLatest(context.Background(), s); err != nil {
					t.Errorf("GetLatest(%s) error = %v", s, err)
				}
			}
		}(name)
	}
	wg.Wait()

	if store.Len() != len(series) {
		t.Errorf("Len() = %d after concurrent writes, want %d", store.Len(), len(series))
	}
	for _, name := range series {
		got, found, _ := store.GetLatest(context.Background(), name)
		if !found || got.Series != name {
			t.Errorf("GetLatest(%s) = %q, %v", name, got.Series, found)
		}
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Put(ctx, testSnapshot("x", 1)); err == nil {
		t.Error("Put() with canceled context should fail")
	}
	if _, _, err := store.GetLatest(ctx, "x"); err == nil {
		t.Error("GetLatest() with canceled context should fail")
	}
}

func TestMemoryStoreWithTTL_Expiration(t *testing.T) {
	ttl := 100 * time.Millisecond
	cleanupInterval := 50 * time.Millisecond
	store := NewMemoryStoreWithTTL(ttl, cleanupInterval)
	defer store.Stop()

	if err := store.Put(context.Background(), testSnapshot("ttl-test", 1)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, found, _ := store.GetLatest(context.Background(), "ttl-test"); !found {
		t.Fatal("Snapshot should exist immediately after Put")
	}

	time.Sleep(ttl + cleanupInterval + 50*time.Millisecond)

	if _, found, _ := store.GetLatest(context.Background(), "ttl-test"); found {
		t.Error("Snapshot should be removed after TTL expiration")
	}
}

func TestMemoryStoreWithTTL_HidesExpiredBeforeSweep(t *testing.T) {
	store := NewMemoryStoreWithTTL(time.Hour, time.Hour)
	defer store.Stop()

	clock := time.Now()
	store.now = func() time.Time { return clock }

	if err := store.Put(context.Background(), testSnapshot("stale", 1)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	clock = clock.Add(2 * time.Hour)

	if _, found, _ := store.GetLatest(context.Background(), "stale"); found {
		t.Error("expired snapshot returned before sweep")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1 until the sweep runs", store.Len())
	}

	store.sweep()
	if store.Len() != 0 {
		t.Errorf("Len() = %d after sweep, want 0", store.Len())
	}
}

func TestNewMemoryStoreWithTTL_PanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero TTL")
		}
	}()
	NewMemoryStoreWithTTL(0, time.Second)
}

func TestMemoryStore_StopIdempotent(t *testing.T) {
	store := NewMemoryStoreWithTTL(time.Minute, time.Minute)
	store.Stop()
	store.Stop()

	NewMemoryStore().Stop()
}

func TestMemoryStore_CloseStopsSweep(t *testing.T) {
	store := NewMemoryStoreWithTTL(time.Minute, time.Millisecond)

	var closer io.Closer = store
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case <-store.done:
	case <-time.After(time.Second):
		t.Fatal("sweep still running after Close")
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestValidateSeries(t *testing.T) {
	for _, ok := range []string{"a", "energy-load", "Load_MW_01"} {
		if err := ValidateSeries(ok); err != nil {
			t.Errorf("ValidateSeries(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "a b", "a:b", "a/b", "ü"} {
		if err := ValidateSeries(bad); err == nil {
			t.Errorf("ValidateSeries(%q) = nil, want error", bad)
		}
	}
}

func ExampleMemoryStore() {
	store := NewMemoryStore()
	_ = store.Put(context.Background(), testSnapshot("energy-load", 42))

	s, found, _ := store.GetLatest(context.Background(), "energy-load")
	fmt.Println(found, s.Table.Rows[0].Mean)
	// Output: true 42
}
