// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RemoteProvider POSTs batches to a managed embedding endpoint,
// grounded on the HTTP-client shape of the corpus's ollamaProvider
// (baseURL trimming, context-scoped requests, status-code handling)
// generalized from chat completions to embedding batches.
type RemoteProvider struct {
	baseURL string
	apiKey  string
	dim     int
	client  *http.Client
	retry   RetryConfig
}

func newRemoteProvider(cfg ProviderConfig) (*RemoteProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("search: managed-endpoint provider requires BaseURL")
	}
	return &RemoteProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		dim:     cfg.Dim,
		client:  &http.Client{Timeout: cfg.Timeout},
		retry:   cfg.Retry,
	}, nil
}

func (p *RemoteProvider) EmbeddingDim() int          { return p.dim }
func (p *RemoteProvider) ProviderType() ProviderType { return ProviderManagedEndpoint }

func (p *RemoteProvider) CheckStatus(ctx context.Context) (ProviderStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return ProviderStatus{}, err
	}
	p.setAuth(req)
	resp, err := p.client.Do(req)
	if err != nil {
		return ProviderStatus{Ready: false, Message: err.Error()}, nil
	}
	defer resp.Body.Close()
	return ProviderStatus{Ready: resp.StatusCode == http.StatusOK}, nil
}

func (p *RemoteProvider) Warmup(ctx context.Context) error {
	_, err := p.encode(ctx, "/warmup", []string{"warmup"})
	return err
}

func (p *RemoteProvider) EncodeSemantic(ctx context.Context, texts []string) ([][]float32, error) {
	return p.encode(ctx, "/embed/semantic", texts)
}

func (p *RemoteProvider) EncodeCode(ctx context.Context, texts []string) ([][]float32, error) {
	return p.encode(ctx, "/embed/code", texts)
}

func (p *RemoteProvider) setAuth(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}

// encode POSTs {texts} to path and retries transient failures per
// p.retry; 401/403 are fatal (not retried), 429 honors Retry-After,
// 5xx is retried.
func (p *RemoteProvider) encode(ctx context.Context, path string, texts []string) ([][]float32, error) {
	var out [][]float32
	err := withRetry(ctx, p.retry, nil, func() error {
		body, _ := json.Marshal(map[string]any{"texts": texts})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		p.setAuth(req)

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			return &RateLimitedError{Provider: ProviderManagedEndpoint, RetryAfter: retryAfter}
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("search: remote provider auth failed (status %d): %s", resp.StatusCode, string(b))
		case resp.StatusCode >= 500:
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("search: remote provider error (status %d, retryable): %s", resp.StatusCode, string(b))
		case resp.StatusCode != http.StatusOK:
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("search: remote provider error (status %d): %s", resp.StatusCode, string(b))
		}

		var decoded struct {
			Vectors [][]float32 `json:"vectors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return err
		}
		out = decoded.Vectors
		return nil
	})
	if err != nil {
		var rl *RateLimitedError
		if e, ok := err.(*RateLimitedError); ok {
			rl = e
			return nil, rl
		}
		return nil, &ProviderUnavailableError{Provider: ProviderManagedEndpoint, Err: err}
	}
	return out, nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}
