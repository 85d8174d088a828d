package sqs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sqsaws "github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Client defines the SQS operations used by Queue and DeadLetterReader.
type Client interface {
	SendMessage(ctx context.Context, params *sqsaws.SendMessageInput, optFns ...func(*sqsaws.Options)) (*sqsaws.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqsaws.ReceiveMessageInput, optFns ...func(*sqsaws.Options)) (*sqsaws.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqsaws.DeleteMessageInput, optFns ...func(*sqsaws.Options)) (*sqsaws.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqsaws.ChangeMessageVisibilityInput, optFns ...func(*sqsaws.Options)) (*sqsaws.ChangeMessageVisibilityOutput, error)
}

var _ Client = (*sqsaws.Client)(nil)

// ClientConfig contains the settings for building an SQS client.
type ClientConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint overrides the service endpoint, e.g. for LocalStack
	Endpoint string
}

// NewClient builds an SQS client from the default AWS configuration chain.
// Static credentials are used only when both parts are set.
func NewClient(ctx context.Context, cfg ClientConfig) (*sqsaws.Client, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: region is required", ErrInvalidConfig)
	}

	awsOptions := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsOptions = append(awsOptions,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)),
		)
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return sqsaws.NewFromConfig(awsConfig, func(o *sqsaws.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
