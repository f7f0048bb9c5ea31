package models

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

// SageMakerInvoker is the subset of *sagemakerruntime.Client used here.
type SageMakerInvoker interface {
	InvokeEndpoint(ctx context.Context, params *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

// SageMakerClient invokes a real-time SageMaker inference endpoint by name.
type SageMakerClient struct {
	api          SageMakerInvoker
	endpointName string
}

func NewSageMakerClient(api SageMakerInvoker, endpointName string) *SageMakerClient {
	return &SageMakerClient{api: api, endpointName: endpointName}
}

func (c *SageMakerClient) Name() string { return "sagemaker" }

// Predict implements Client.
func (c *SageMakerClient) Predict(ctx context.Context, req forecast.Request) (forecast.Response, error) {
	body, err := MarshalPayload(req)
	if err != nil {
		return forecast.Response{}, err
	}

	out, err := c.api.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(c.endpointName),
		Body:         body,
		ContentType:  aws.String(contentType),
		Accept:       aws.String(contentType),
	})
	if err != nil {
		return forecast.Response{}, awsEndpointError(c.endpointName, err)
	}
	return DecodeReply(out.Body, req.QuantileLevels)
}
