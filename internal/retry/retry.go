package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/bstardust/image-metadata-extractor/internal/logger"
)

// Config defines retry behavior for operations that might fail transiently
type Config struct {
	// MaxRetries is the maximum number of retries before giving up
	MaxRetries int

	// InitialBackoff is the duration to wait before the first retry
	InitialBackoff time.Duration

	// MaxBackoff is the maximum duration to wait between retries
	MaxBackoff time.Duration

	// BackoffFactor is the factor by which to increase backoff after each retry
	BackoffFactor float64

	// RetryableErrors holds error codes that are retried when they appear in
	// an error message
	RetryableErrors map[string]bool
}

// Retryable is implemented by errors that know whether they are transient
type Retryable interface {
	Retryable() bool
}

// DefaultConfig returns the retry configuration used for HTTP downloads
func DefaultConfig(maxRetries int) Config {
	return Config{
		MaxRetries:     maxRetries,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
	}
}

// S3Config returns a retry configuration that also recognises common S3
// error codes
func S3Config(maxRetries int) Config {
	cfg := DefaultConfig(maxRetries)
	cfg.RetryableErrors = s3RetryableErrors()
	return cfg
}

func s3RetryableErrors() map[string]bool {
	return map[string]bool{
		"RequestTimeout":       true,
		"RequestTimeTooSkewed": true,
		"InternalError":        true,
		"SlowDown":             true,
		"OperationAborted":     true,
		"ServiceUnavailable":   true,
		"RequestLimitExceeded": true,
		"ThrottlingException":  true,
	}
}

// IsRetryable determines if an error should be retried based on its type or message
func (c Config) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}

	for code := range c.RetryableErrors {
		if strings.Contains(err.Error(), code) {
			return true
		}
	}

	lowerErr := strings.ToLower(err.Error())
	return strings.Contains(lowerErr, "timeout") ||
		strings.Contains(lowerErr, "connection") ||
		strings.Contains(lowerErr, "reset") ||
		strings.Contains(lowerErr, "broken pipe") ||
		strings.Contains(lowerErr, "unavailable")
}

// Do runs fn, retrying transient failures with exponential backoff
func Do(ctx context.Context, operation string, fn func() error, config Config) error {
	var err error
	var attempt int

	for attempt = 0; attempt <= config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%s canceled: %w", operation, ctx.Err())
		}

		if attempt > 0 {
			logger.Debug("Retry attempt %d/%d for %s", attempt, config.MaxRetries, operation)
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				logger.Info("Successfully completed %s after %d retries", operation, attempt)
			}
			return nil
		}

		if !config.IsRetryable(err) {
			logger.Debug("Non-retryable error for %s: %v", operation, err)
			return err
		}

		if attempt == config.MaxRetries {
			break
		}

		backoff := backoffDuration(attempt, config)
		logger.Debug("Backing off for %v before retrying %s: %v", backoff, operation, err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("%s canceled during retry: %w", operation, ctx.Err())
		}
	}

	logger.Warn("%s failed after %d attempts: %v", operation, attempt+1, err)
	return err
}

// backoffDuration calculates the wait before the next attempt, with ±20% jitter
func backoffDuration(attempt int, config Config) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))

	jitter := (rand.Float64() * 0.4) - 0.2
	backoff = backoff * (1 + jitter)

	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	return time.Duration(backoff)
}
