// Package retry provides backoff and retry logic for handling transient
// failures in network operations.
//
// Features:
//   - Constant and exponential backoff strategies
//   - Context support for cancellation
//   - Configurable retry predicates tied to the error taxonomy
//
// Basic usage:
//
//	cfg := &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     &retry.ConstantBackoff{Delay: time.Second},
//		RetryIf:     retry.NetworkOnly,
//		Context:     ctx,
//		Logger:      log,
//	}
//	err := retry.Do(func() error {
//		return client.UploadFile(ctx, f)
//	}, cfg)
//
// The RetryIf predicate decides which errors are worth another attempt.
// NetworkOnly retries connection failures and timeouts exclusively; terminal
// conditions such as HTTP 404, malformed responses and local validation
// failures abort immediately.
package retry
