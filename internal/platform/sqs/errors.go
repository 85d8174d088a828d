package sqs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"

	"github.com/chelorossi/backend-challenge/internal/task"
)

// ErrInvalidConfig is returned by New when required settings are missing.
var ErrInvalidConfig = errors.New("invalid sqs configuration")

// ErrQueueNotFound is returned when the configured queue URL does not exist.
var ErrQueueNotFound = errors.New("sqs queue does not exist")

// classifyError converts SQS errors to queue errors.
func classifyError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s operation: %w", operation, err)
	}

	var invalidReceipt *types.ReceiptHandleIsInvalid
	if errors.As(err, &invalidReceipt) {
		return fmt.Errorf("%w: %s operation", task.ErrStaleReceipt, operation)
	}

	var notInflight *types.MessageNotInflight
	if errors.As(err, &notInflight) {
		return fmt.Errorf("%w: %s operation", task.ErrStaleReceipt, operation)
	}

	var missing *types.QueueDoesNotExist
	if errors.As(err, &missing) {
		return fmt.Errorf("%w: %s operation", ErrQueueNotFound, operation)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case code == "ReceiptHandleIsInvalid", code == "MessageNotInflight":
			return fmt.Errorf("%w: %s operation", task.ErrStaleReceipt, operation)
		case code == "InvalidParameterValue" && strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "receipt handle"):
			return fmt.Errorf("%w: %s operation", task.ErrStaleReceipt, operation)
		case code == "AWS.SimpleQueueService.NonExistentQueue", code == "QueueDoesNotExist":
			return fmt.Errorf("%w: %s operation", ErrQueueNotFound, operation)
		case code == "RequestThrottled", code == "ServiceUnavailable", code == "InternalError":
			return fmt.Errorf("%w: %s operation (code: %s)", task.ErrTransient, operation, code)
		default:
			return fmt.Errorf("%s operation failed (code: %s): %w", operation, code, err)
		}
	}

	return fmt.Errorf("%s operation failed: %w", operation, err)
}
