package sqs

import (
	"context"

	sqsaws "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/mock"
)

// mockClient mocks the Client interface
type mockClient struct {
	mock.Mock
}

func (m *mockClient) SendMessage(ctx context.Context, params *sqsaws.SendMessageInput, _ ...func(*sqsaws.Options)) (*sqsaws.SendMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqsaws.SendMessageOutput), args.Error(1)
}

func (m *mockClient) ReceiveMessage(ctx context.Context, params *sqsaws.ReceiveMessageInput, _ ...func(*sqsaws.Options)) (*sqsaws.ReceiveMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqsaws.ReceiveMessageOutput), args.Error(1)
}

func (m *mockClient) DeleteMessage(ctx context.Context, params *sqsaws.DeleteMessageInput, _ ...func(*sqsaws.Options)) (*sqsaws.DeleteMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqsaws.DeleteMessageOutput), args.Error(1)
}

func (m *mockClient) ChangeMessageVisibility(ctx context.Context, params *sqsaws.ChangeMessageVisibilityInput, _ ...func(*sqsaws.Options)) (*sqsaws.ChangeMessageVisibilityOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqsaws.ChangeMessageVisibilityOutput), args.Error(1)
}
