package models

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/HatiCode/chronocast/pkg/forecast"
)

// BedrockInvoker is the subset of *bedrockruntime.Client used here.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient invokes a model deployed through Amazon Bedrock, addressed by
// model ID or by the ARN of a marketplace endpoint.
type BedrockClient struct {
	api     BedrockInvoker
	modelID string
}

func NewBedrockClient(api BedrockInvoker, modelID string) *BedrockClient {
	return &BedrockClient{api: api, modelID: modelID}
}

func (c *BedrockClient) Name() string { return "bedrock" }

// Predict implements Client.
func (c *BedrockClient) Predict(ctx context.Context, req forecast.Request) (forecast.Response, error) {
	body, err := MarshalPayload(req)
	if err != nil {
		return forecast.Response{}, err
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        body,
		ContentType: aws.String(contentType),
		Accept:      aws.String(contentType),
	})
	if err != nil {
		return forecast.Response{}, awsEndpointError(c.modelID, err)
	}
	return DecodeReply(out.Body, req.QuantileLevels)
}
