// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

// withRetry runs fn up to cfg.MaxRetries times with full-jitter
// exponential back-off between attempts, matching the retry shape the
// corpus uses for embedding generation (RetryConfig's field names are
// carried over unchanged). isRetryable classifies fn's error; a
// non-retryable error returns immediately. A RateLimitedError's
// RetryAfter, when longer than the jittered back-off, is slept instead.
func withRetry(ctx context.Context, cfg RetryConfig, onRetry func(attempt int, sleep time.Duration, err error), fn func() error) error {
	cfg = cfg.withDefaults()
	var err error
	backoff := cfg.InitialBackoff
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt == cfg.MaxRetries-1 {
			return err
		}
		sleep := jitter(backoff)
		var rl *RateLimitedError
		if errors.As(err, &rl) && rl.RetryAfter > sleep {
			sleep = rl.RetryAfter
		}
		if onRetry != nil {
			onRetry(attempt+1, sleep, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return err
}

// jitter applies full jitter: a uniform draw in [0, d].
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"timeout", "temporarily unavailable", "connection refused", "connection reset", "deadline exceeded", "eof", "429", "500", "502", "503", "504", "retryable"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
