package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/smithy-go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/slipway-sh/slipway/internal/config"
)

// RetryPolicy defines retry behavior for transient cloud API errors.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns the policy used when retry is enabled without
// explicit delays.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// PolicyFromConfig converts the config retry block, nil in nil out.
func PolicyFromConfig(rc *config.Retry) *RetryPolicy {
	if rc == nil {
		return nil
	}
	p := DefaultRetryPolicy()
	if rc.MaxRetries > 0 {
		p.MaxRetries = rc.MaxRetries
	}
	if rc.BaseDelay != "" {
		if d, err := time.ParseDuration(rc.BaseDelay); err == nil {
			p.BaseDelay = d
		}
	}
	if rc.MaxDelay != "" {
		if d, err := time.ParseDuration(rc.MaxDelay); err == nil {
			p.MaxDelay = d
		}
	}
	return p
}

// RetryWithBackoff executes fn with exponential backoff and jitter.
// It retries only if shouldRetry returns true for the error.
func RetryWithBackoff(ctx context.Context, policy *RetryPolicy, fn func() error, shouldRetry func(error) bool) error {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !shouldRetry(lastErr) {
			return lastErr
		}

		if attempt < policy.MaxRetries {
			delay := calculateBackoff(attempt, policy.BaseDelay, policy.MaxDelay)
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", policy.MaxRetries, lastErr)
}

// calculateBackoff returns exponential backoff with jitter.
func calculateBackoff(attempt int, base, max time.Duration) time.Duration {
	backoff := float64(base) * math.Pow(2, float64(attempt))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	jitter := rand.Float64() * backoff
	return time.Duration(jitter)
}

// transientAWSCodes are smithy API error codes that indicate throttling or a
// temporarily unavailable service rather than a misconfiguration.
var transientAWSCodes = map[string]bool{
	"ThrottlingException":          true,
	"Throttling":                   true,
	"TooManyRequestsException":     true,
	"RequestLimitExceeded":         true,
	"ServiceUnavailableException":  true,
	"ServiceUnavailable":           true,
	"InternalServerErrorException": true,
}

var transientPatterns = []string{
	"throttl",
	"rate exceed",
	"too many requests",
	"service unavailable",
	"internal server error",
	"connection reset",
	"connection refused",
	"timeout",
	"TLS handshake",
	"i/o timeout",
	"temporary failure",
}

// IsTransientError reports whether an error is likely transient and
// retryable. Typed SDK errors are checked first (smithy API error codes,
// gRPC status codes), then the message is matched against common throttling
// and network failure patterns.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if transientAWSCodes[apiErr.ErrorCode()] {
			return true
		}
	}

	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
