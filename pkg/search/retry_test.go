// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryConfig{MaxRetries: 5, InitialBackoff: time.Millisecond}, nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond}, nil, func() error {
		calls++
		return errors.New("timeout")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_NonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryConfig{MaxRetries: 5, InitialBackoff: time.Millisecond}, nil, func() error {
		calls++
		return errors.New("invalid request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RateLimitedErrorIsRetryable(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond}, nil, func() error {
		calls++
		if calls < 2 {
			return &RateLimitedError{Provider: ProviderLocal, RetryAfter: time.Millisecond}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, RetryConfig{MaxRetries: 5, InitialBackoff: time.Millisecond}, nil, func() error {
		return errors.New("connection reset")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable_ClassifiesKnownTransientSubstrings(t *testing.T) {
	assert.True(t, isRetryable(errors.New("dial tcp: connection refused")))
	assert.True(t, isRetryable(errors.New("status 503 service unavailable")))
	assert.False(t, isRetryable(errors.New("invalid argument")))
	assert.False(t, isRetryable(nil))
}
