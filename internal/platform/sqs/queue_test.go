package sqs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sqsaws "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chelorossi/backend-challenge/internal/task"
)

const testQueueURL = "https://sqs.us-east-1.amazonaws.com/123456789012/tasks.fifo"

func newTestQueue(t *testing.T, client Client) *Queue {
	t.Helper()

	q, err := NewQueue(client, QueueConfig{
		QueueURL:          testQueueURL,
		VisibilityTimeout: 30 * time.Second,
		WaitTime:          time.Minute,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return q
}

func TestNewQueue_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewQueue(&mockClient{}, QueueConfig{}, slog.Default())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestQueue_Publish(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	q := newTestQueue(t, client)
	taskID := uuid.New()

	client.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *sqsaws.SendMessageInput) bool {
		attr := in.MessageAttributes[TaskIDAttribute]
		return aws.ToString(in.QueueUrl) == testQueueURL &&
			aws.ToString(in.MessageBody) == `{"task_id":"x"}` &&
			aws.ToString(in.MessageGroupId) == "group-a" &&
			aws.ToString(in.MessageDeduplicationId) == "dedup-1" &&
			aws.ToString(attr.StringValue) == taskID.String()
	})).Return(&sqsaws.SendMessageOutput{MessageId: aws.String("msg-1")}, nil)

	id, err := q.Publish(context.Background(), task.OutboundMessage{
		Body:        []byte(`{"task_id":"x"}`),
		OrderingKey: "group-a",
		DedupKey:    "dedup-1",
		TaskID:      taskID,
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	client.AssertExpectations(t)
}

func TestQueue_PublishDefaults(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	q := newTestQueue(t, client)

	var captured *sqsaws.SendMessageInput
	client.On("SendMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*sqsaws.SendMessageInput)
		}).
		Return(&sqsaws.SendMessageOutput{MessageId: aws.String("msg-2")}, nil)

	_, err := q.Publish(context.Background(), task.OutboundMessage{Body: []byte("{}")})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, task.DefaultOrderingKey, aws.ToString(captured.MessageGroupId))
	assert.NotEmpty(t, aws.ToString(captured.MessageDeduplicationId), "a missing dedup key gets a unique ID")
	assert.Nil(t, captured.MessageAttributes)
}

func TestQueue_PublishError(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	q := newTestQueue(t, client)

	client.On("SendMessage", mock.Anything, mock.Anything).
		Return(nil, &smithy.GenericAPIError{Code: "RequestThrottled", Message: "slow down"})

	_, err := q.Publish(context.Background(), task.OutboundMessage{Body: []byte("{}")})
	assert.ErrorIs(t, err, task.ErrTransient)
}

func TestQueue_Receive(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	q := newTestQueue(t, client)

	client.On("ReceiveMessage", mock.Anything, mock.MatchedBy(func(in *sqsaws.ReceiveMessageInput) bool {
		return in.MaxNumberOfMessages == 1 &&
			in.WaitTimeSeconds == 20 &&
			in.VisibilityTimeout == 30
	})).Return(&sqsaws.ReceiveMessageOutput{
		Messages: []types.Message{{
			MessageId:     aws.String("msg-1"),
			ReceiptHandle: aws.String("receipt-1"),
			Body:          aws.String("body"),
			Attributes: map[string]string{
				string(types.MessageSystemAttributeNameApproximateReceiveCount): "2",
				string(types.MessageSystemAttributeNameMessageGroupId):          "task-processing",
				string(types.MessageSystemAttributeNameMessageDeduplicationId):  "dedup-1",
			},
		}},
	}, nil)

	d, err := q.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "msg-1", d.MessageID)
	assert.Equal(t, "receipt-1", d.ReceiptHandle)
	assert.Equal(t, []byte("body"), d.Body)
	assert.Equal(t, "task-processing", d.OrderingKey)
	assert.Equal(t, "dedup-1", d.DedupKey)
	assert.Equal(t, 2, d.ReceiveCount)
	assert.False(t, d.LeaseStartedAt.IsZero())
}

func TestQueue_ReceiveLeaseStart(t *testing.T) {
	t.Parallel()

	sent := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		answered time.Duration
		want     time.Time
	}{
		{"immediate answer", 200 * time.Millisecond, sent},
		{"long poll", 15 * time.Second, sent.Add(14 * time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{}
			q := newTestQueue(t, client)
			calls := 0
			q.now = func() time.Time {
				calls++
				if calls == 1 {
					return sent
				}
				return sent.Add(tt.answered)
			}

			client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqsaws.ReceiveMessageOutput{
				Messages: []types.Message{{MessageId: aws.String("msg-1"), ReceiptHandle: aws.String("r-1")}},
			}, nil)

			d, err := q.Receive(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.LeaseStartedAt)
		})
	}
}

func TestQueue_ReceiveEmpty(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	q := newTestQueue(t, client)

	client.On("ReceiveMessage", mock.Anything, mock.Anything).
		Return(&sqsaws.ReceiveMessageOutput{}, nil)

	_, err := q.Receive(context.Background())
	assert.ErrorIs(t, err, task.ErrNoMessage)
}

func TestQueue_ReceiveCanceled(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	q := newTestQueue(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client.On("ReceiveMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("request canceled"))

	_, err := q.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_AckStaleReceipt(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	q := newTestQueue(t, client)

	client.On("DeleteMessage", mock.Anything, mock.MatchedBy(func(in *sqsaws.DeleteMessageInput) bool {
		return aws.ToString(in.ReceiptHandle) == "old-receipt"
	})).Return(nil, &types.ReceiptHandleIsInvalid{Message: aws.String("expired")})

	err := q.Ack(context.Background(), &task.Delivery{ReceiptHandle: "old-receipt"})
	assert.ErrorIs(t, err, task.ErrStaleReceipt)
}

func TestQueue_Nack(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	q := newTestQueue(t, client)

	client.On("ChangeMessageVisibility", mock.Anything, mock.MatchedBy(func(in *sqsaws.ChangeMessageVisibilityInput) bool {
		return aws.ToString(in.ReceiptHandle) == "receipt-1" && in.VisibilityTimeout == 4
	})).Return(&sqsaws.ChangeMessageVisibilityOutput{}, nil)

	d := &task.Delivery{ReceiptHandle: "receipt-1"}
	require.NoError(t, q.Nack(context.Background(), d, 4*time.Second))

	// Negative delays leave the lease alone
	require.NoError(t, q.Nack(context.Background(), d, -time.Second))

	client.AssertNumberOfCalls(t, "ChangeMessageVisibility", 1)
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"not inflight", &types.MessageNotInflight{}, task.ErrStaleReceipt},
		{"missing queue", &types.QueueDoesNotExist{}, ErrQueueNotFound},
		{
			"expired receipt parameter",
			&smithy.GenericAPIError{Code: "InvalidParameterValue", Message: "The receipt handle has expired."},
			task.ErrStaleReceipt,
		},
		{"legacy missing queue", &smithy.GenericAPIError{Code: "AWS.SimpleQueueService.NonExistentQueue"}, ErrQueueNotFound},
		{"unavailable", &smithy.GenericAPIError{Code: "ServiceUnavailable"}, task.ErrTransient},
		{"deadline", context.DeadlineExceeded, context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyError(tt.err, "op"), tt.target)
		})
	}

	assert.NoError(t, classifyError(nil, "op"))
}

const testDLQURL = "https://sqs.us-east-1.amazonaws.com/123456789012/tasks-dlq.fifo"

func TestDeadLetterReader(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	r, err := NewDeadLetterReader(client, testDLQURL)
	require.NoError(t, err)

	client.On("ReceiveMessage", mock.Anything, mock.MatchedBy(func(in *sqsaws.ReceiveMessageInput) bool {
		return in.MaxNumberOfMessages == maxBatch
	})).Return(&sqsaws.ReceiveMessageOutput{
		Messages: []types.Message{{
			MessageId:     aws.String("dead-1"),
			ReceiptHandle: aws.String("dlq-receipt-1"),
			Body:          aws.String("poison"),
			Attributes: map[string]string{
				string(types.MessageSystemAttributeNameApproximateReceiveCount): "4",
				string(types.MessageSystemAttributeNameSentTimestamp):           "1700000000000",
			},
		}},
	}, nil)
	client.On("ChangeMessageVisibility", mock.Anything, mock.MatchedBy(func(in *sqsaws.ChangeMessageVisibilityInput) bool {
		return aws.ToString(in.QueueUrl) == testDLQURL &&
			aws.ToString(in.ReceiptHandle) == "dlq-receipt-1" &&
			in.VisibilityTimeout == 0
	})).Return(&sqsaws.ChangeMessageVisibilityOutput{}, nil).Once()

	letters, err := r.ListDeadLetters(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "dead-1", letters[0].MessageID)
	assert.Equal(t, []byte("poison"), letters[0].Body)
	assert.Equal(t, 4, letters[0].ReceiveCount)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), letters[0].DeadLetteredAt)
	client.AssertExpectations(t)

	_, err = NewDeadLetterReader(client, "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDeadLetterReader_ReleaseFailureKeepsLetters(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	r, err := NewDeadLetterReader(client, testDLQURL)
	require.NoError(t, err)

	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(&sqsaws.ReceiveMessageOutput{
		Messages: []types.Message{
			{MessageId: aws.String("dead-1"), ReceiptHandle: aws.String("r-1"), Body: aws.String("a")},
			{MessageId: aws.String("dead-2"), ReceiptHandle: aws.String("r-2"), Body: aws.String("b")},
		},
	}, nil)
	client.On("ChangeMessageVisibility", mock.Anything, mock.MatchedBy(func(in *sqsaws.ChangeMessageVisibilityInput) bool {
		return aws.ToString(in.ReceiptHandle) == "r-1"
	})).Return(nil, &smithy.GenericAPIError{Code: "RequestThrottled", Message: "slow down"})
	client.On("ChangeMessageVisibility", mock.Anything, mock.MatchedBy(func(in *sqsaws.ChangeMessageVisibilityInput) bool {
		return aws.ToString(in.ReceiptHandle) == "r-2"
	})).Return(&sqsaws.ChangeMessageVisibilityOutput{}, nil)

	letters, err := r.ListDeadLetters(context.Background(), 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, task.ErrTransient)
	assert.Len(t, letters, 2)
	client.AssertNumberOfCalls(t, "ChangeMessageVisibility", 2)
}
