// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package search implements C6, the Hybrid Search Engine: two vector
// collections (semantic, code) per entity, a pluggable embedding
// provider, score fusion, and the batch indexer that keeps both
// collections in sync with the graph.
package search

import (
	"context"
	"fmt"
	"time"
)

// ProviderType identifies which concrete embedding backend is wired in.
type ProviderType string

const (
	ProviderLocal           ProviderType = "local"
	ProviderManagedEndpoint ProviderType = "managed-endpoint"
	ProviderOpenAICompatible ProviderType = "openai-compatible"
)

// ProviderStatus reports whether a provider is ready to serve requests.
type ProviderStatus struct {
	Ready   bool
	Message string
}

// Provider is the narrow, six-method embedding abstraction of spec §4.6.
// Two encode methods because the semantic and code collections are
// embedded by distinct models (or distinct prompts against the same
// model); keeping them separate lets a provider specialize either side
// without the caller caring which.
type Provider interface {
	EncodeSemantic(ctx context.Context, texts []string) ([][]float32, error)
	EncodeCode(ctx context.Context, texts []string) ([][]float32, error)
	CheckStatus(ctx context.Context) (ProviderStatus, error)
	Warmup(ctx context.Context) error
	EmbeddingDim() int
	ProviderType() ProviderType
}

// RetryConfig controls exponential back-off with jitter for provider
// calls (vector-store upserts are not retried), mirroring the shape used for embedding
// generation elsewhere in the corpus.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 200 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 2 * time.Second
	}
	if c.Multiplier <= 1.0 {
		c.Multiplier = 2.0
	}
	return c
}

// ProviderConfig configures whichever concrete provider NewProvider
// constructs.
type ProviderConfig struct {
	Type ProviderType

	// BaseURL is the managed-endpoint or OpenAI-compatible API root.
	BaseURL string
	APIKey  string

	// SemanticModel/CodeModel name per-modality models for
	// OpenAI-compatible providers; managed-endpoint providers treat
	// them as opaque request fields.
	SemanticModel string
	CodeModel     string

	Dim     int
	Timeout time.Duration
	Retry   RetryConfig
}

// DimensionMismatchError is a hard startup error per spec §7: the
// provider's advertised dimension must equal the dimension the vector
// collections were created with.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("search: provider embedding_dim mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// NewProvider constructs the configured provider and validates its
// advertised dimension against cfg.Dim (default 768).
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.Dim <= 0 {
		cfg.Dim = 768
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.Retry = cfg.Retry.withDefaults()

	var p Provider
	var err error
	switch cfg.Type {
	case ProviderManagedEndpoint:
		p, err = newRemoteProvider(cfg)
	case ProviderOpenAICompatible:
		p, err = newOpenAIProvider(cfg)
	case ProviderLocal, "":
		p, err = newLocalProvider(cfg)
	default:
		return nil, fmt.Errorf("search: unknown provider type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	if p.EmbeddingDim() != cfg.Dim {
		return nil, &DimensionMismatchError{Expected: cfg.Dim, Actual: p.EmbeddingDim()}
	}
	return p, nil
}

// ProviderUnavailableError wraps a transport-level failure that
// survived every retry; spec §7's "ProviderUnavailable" kind.
type ProviderUnavailableError struct {
	Provider ProviderType
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("search: provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// RateLimitedError reports a 429 that exhausted retries.
type RateLimitedError struct {
	Provider   ProviderType
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("search: provider %s rate limited (retry after %s)", e.Provider, e.RetryAfter)
}
