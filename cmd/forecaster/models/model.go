// Package models builds the forecast endpoint client from the forecaster
// configuration.
package models

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"

	"github.com/HatiCode/chronocast/cmd/forecaster/config"
	"github.com/HatiCode/chronocast/pkg/httpx"
	"github.com/HatiCode/chronocast/pkg/models"
	chronotls "github.com/HatiCode/chronocast/pkg/tls"
)

// New creates the endpoint client named by cfg.Endpoint. AWS clients are built
// once from the default credential chain and reused by every invocation.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (models.Client, error) {
	opts := models.Options{EndpointID: cfg.EndpointID}

	switch cfg.Endpoint {
	case "bedrock":
		awsCfg, err := LoadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		logger.Info("initializing bedrock endpoint", "model_id", cfg.EndpointID, "region", awsCfg.Region)
		opts.Bedrock = bedrockruntime.NewFromConfig(awsCfg)

	case "sagemaker":
		awsCfg, err := LoadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		logger.Info("initializing sagemaker endpoint", "endpoint_name", cfg.EndpointID, "region", awsCfg.Region)
		opts.SageMaker = sagemakerruntime.NewFromConfig(awsCfg)

	case "http":
		logger.Info("initializing http endpoint", "url", cfg.EndpointID, "timeout", cfg.EndpointTimeout)
		if cfg.EndpointTimeout > 0 {
			hc, err := httpx.NewClient(chronotls.Config{}, cfg.EndpointTimeout)
			if err != nil {
				return nil, err
			}
			opts.HTTPClient = hc
		}
	}

	return models.New(cfg.Endpoint, opts)
}

// LoadAWSConfig loads the shared AWS configuration. An empty region keeps the
// one resolved by the default chain (AWS_REGION, profile).
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}
