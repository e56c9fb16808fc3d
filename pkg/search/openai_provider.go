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
	"strings"
)

// OpenAIProvider speaks the OpenAI embeddings body schema
// ({input: [string], model: string}), grounded on the corpus's
// openaiProvider chat-completions client (baseURL/apiKey defaulting,
// Bearer auth) generalized to the /embeddings endpoint with a
// separate model name per modality.
type OpenAIProvider struct {
	baseURL       string
	apiKey        string
	semanticModel string
	codeModel     string
	dim           int
	client        *http.Client
	retry         RetryConfig
}

func newOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	semanticModel := cfg.SemanticModel
	if semanticModel == "" {
		semanticModel = "text-embedding-3-small"
	}
	codeModel := cfg.CodeModel
	if codeModel == "" {
		codeModel = semanticModel
	}
	return &OpenAIProvider{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		apiKey:        cfg.APIKey,
		semanticModel: semanticModel,
		codeModel:     codeModel,
		dim:           cfg.Dim,
		client:        &http.Client{Timeout: cfg.Timeout},
		retry:         cfg.Retry,
	}, nil
}

func (p *OpenAIProvider) EmbeddingDim() int          { return p.dim }
func (p *OpenAIProvider) ProviderType() ProviderType { return ProviderOpenAICompatible }

func (p *OpenAIProvider) CheckStatus(ctx context.Context) (ProviderStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return ProviderStatus{}, err
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return ProviderStatus{Ready: false, Message: err.Error()}, nil
	}
	defer resp.Body.Close()
	return ProviderStatus{Ready: resp.StatusCode == http.StatusOK}, nil
}

func (p *OpenAIProvider) Warmup(ctx context.Context) error {
	_, err := p.encode(ctx, p.semanticModel, []string{"warmup"})
	return err
}

func (p *OpenAIProvider) EncodeSemantic(ctx context.Context, texts []string) ([][]float32, error) {
	return p.encode(ctx, p.semanticModel, texts)
}

func (p *OpenAIProvider) EncodeCode(ctx context.Context, texts []string) ([][]float32, error) {
	return p.encode(ctx, p.codeModel, texts)
}

func (p *OpenAIProvider) encode(ctx context.Context, model string, texts []string) ([][]float32, error) {
	var out [][]float32
	err := withRetry(ctx, p.retry, nil, func() error {
		body, _ := json.Marshal(map[string]any{"input": texts, "model": model})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if p.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.apiKey)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return &RateLimitedError{Provider: ProviderOpenAICompatible, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("search: openai-compatible provider auth failed (status %d): %s", resp.StatusCode, string(b))
		case resp.StatusCode >= 500:
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("search: openai-compatible provider error (status %d, retryable): %s", resp.StatusCode, string(b))
		case resp.StatusCode != http.StatusOK:
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("search: openai-compatible provider error (status %d): %s", resp.StatusCode, string(b))
		}

		var decoded struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return err
		}
		vecs := make([][]float32, len(decoded.Data))
		for i, d := range decoded.Data {
			vecs[i] = d.Embedding
		}
		out = vecs
		return nil
	})
	if err != nil {
		if rl, ok := err.(*RateLimitedError); ok {
			return nil, rl
		}
		return nil, &ProviderUnavailableError{Provider: ProviderOpenAICompatible, Err: err}
	}
	return out, nil
}
