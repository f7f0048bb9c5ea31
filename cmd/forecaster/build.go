package main

import (
	"fmt"
	"log/slog"

	"github.com/HatiCode/chronocast/cmd/forecaster/config"
	"github.com/HatiCode/chronocast/pkg/adapters"
	"github.com/HatiCode/chronocast/pkg/storage"
)

// buildSource creates the data source named by cfg.Source.
func buildSource(cfg *config.Config, logger *slog.Logger) (adapters.Source, error) {
	src, err := adapters.New(cfg.Source, adapters.Options{
		Config:      cfg.SourceConfig,
		Table:       cfg.Table,
		ClickHouse:  cfg.ClickHouse,
		PostgresDSN: cfg.PostgresDSN,
		Location:    cfg.Location,
	})
	if err != nil {
		return nil, err
	}

	switch s := src.(type) {
	case *adapters.ClickHouseSource, *adapters.PostgresSource:
		logger.Info("initialized source", "source", s.Name(), "table", cfg.Table.Name)
	case *adapters.PrometheusSource:
		logger.Info("initialized source", "source", s.Name(), "url", s.ServerURL, "query", s.Query)
	case *adapters.HTTPSource:
		logger.Info("initialized source", "source", s.Name(), "url", s.URL)
	case *adapters.MemorySource:
		logger.Info("initialized source", "source", s.Name(), "file", cfg.SourceConfig["file"])
	}
	return src, nil
}

// buildStore creates the snapshot store named by cfg.Storage, or nil for "none".
func buildStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage {
	case "none":
		return nil, nil
	case "memory":
		logger.Info("publishing forecasts in memory", "series", cfg.Series, "ttl", cfg.SnapshotTTL)
		return storage.NewMemoryStoreWithTTL(cfg.SnapshotTTL, 0), nil
	case "redis":
		logger.Info("publishing forecasts to redis", "series", cfg.Series, "addr", cfg.RedisAddr, "ttl", cfg.SnapshotTTL)
		return storage.NewRedisStore(storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SnapshotTTL,
		})
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}
