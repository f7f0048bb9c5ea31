package models

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/HatiCode/chronocast/cmd/forecaster/config"
	"github.com/HatiCode/chronocast/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	tests := []struct {
		endpoint string
		id       string
		wantName string
	}{
		{"bedrock", "arn:aws:sagemaker:eu-west-1:123456789012:endpoint/chronos-bolt-base", "bedrock"},
		{"sagemaker", "chronos-bolt-base", "sagemaker"},
		{"http", "http://localhost:8000/invocations", "http"},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			cfg := &config.Config{Endpoint: tt.endpoint, EndpointID: tt.id, AWSRegion: "eu-west-1"}

			client, err := New(context.Background(), cfg, testLogger())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if client.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", client.Name(), tt.wantName)
			}
		})
	}
}

func TestNew_HTTPClientType(t *testing.T) {
	cfg := &config.Config{Endpoint: "http", EndpointID: "http://localhost:8000/invocations"}

	client, err := New(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := client.(*models.HTTPClient); !ok {
		t.Errorf("client type = %T, want *models.HTTPClient", client)
	}
}

func TestNew_HTTPEndpointTimeout(t *testing.T) {
	cfg := &config.Config{Endpoint: "http", EndpointID: "http://localhost:8000/invocations", EndpointTimeout: 90 * time.Second}

	client, err := New(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := client.(*models.HTTPClient); !ok {
		t.Errorf("client type = %T, want *models.HTTPClient", client)
	}
}

func TestNew_MissingEndpointID(t *testing.T) {
	cfg := &config.Config{Endpoint: "http"}
	if _, err := New(context.Background(), cfg, testLogger()); err == nil {
		t.Error("New() should fail without an endpoint id")
	}
}

func TestLoadAWSConfig_Region(t *testing.T) {
	awsCfg, err := LoadAWSConfig(context.Background(), "ap-southeast-2")
	if err != nil {
		t.Fatalf("LoadAWSConfig() error = %v", err)
	}
	if awsCfg.Region != "ap-southeast-2" {
		t.Errorf("Region = %q, want ap-southeast-2", awsCfg.Region)
	}
}
