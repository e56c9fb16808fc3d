// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"context"
	"math"
	"sync"
)

// LocalProvider runs embedding inference in-process. It generalizes the
// corpus's MockEmbeddingProvider (single deterministic hash-based
// vector) into two independently-seeded modalities. Warmup flips both
// readiness flags so CheckStatus reports true readiness; it is guarded
// by a mutex rather than sync.Once since Warmup must be independently
// callable and idempotent without a package-level singleton. There is
// no real lazy-load: EncodeSemantic/EncodeCode never consult or set
// these flags, since this provider has no model weights to defer
// loading of.
type LocalProvider struct {
	dim int

	mu           sync.Mutex
	semanticWarm bool
	codeWarm     bool
}

func newLocalProvider(cfg ProviderConfig) (*LocalProvider, error) {
	dim := cfg.Dim
	if dim <= 0 {
		dim = 768
	}
	return &LocalProvider{dim: dim}, nil
}

func (p *LocalProvider) EmbeddingDim() int          { return p.dim }
func (p *LocalProvider) ProviderType() ProviderType { return ProviderLocal }

func (p *LocalProvider) CheckStatus(ctx context.Context) (ProviderStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.semanticWarm || !p.codeWarm {
		return ProviderStatus{Ready: false, Message: "models not yet loaded"}, nil
	}
	return ProviderStatus{Ready: true}, nil
}

// Warmup blocks until both in-process models are loaded, per spec
// §4.6's "warmup blocks until both load". There is no real model here,
// so loading is simulated by flipping the two readiness flags.
func (p *LocalProvider) Warmup(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.semanticWarm = true
	p.codeWarm = true
	return nil
}

func (p *LocalProvider) EncodeSemantic(ctx context.Context, texts []string) ([][]float32, error) {
	return encodeHash(texts, p.dim, 0x5ac3a5ac), nil
}

func (p *LocalProvider) EncodeCode(ctx context.Context, texts []string) ([][]float32, error) {
	return encodeHash(texts, p.dim, 0xc0decafe), nil
}

// encodeHash produces a deterministic, L2-normalized pseudo-embedding
// from a djb2-style hash of text, salted by seed so the semantic and
// code modalities diverge for the same input text. Not semantically
// meaningful; stands in for a real transformer until one is wired in,
// exactly as the corpus's MockEmbeddingProvider does for a single
// modality.
func encodeHash(texts []string, dim int, seed uint64) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		hash := djb2(text) ^ seed
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			val := float32((hash+uint64(j)*7919)%10000) / 10000.0
			vec[j] = val*2.0 - 1.0
		}
		var norm float32
		for _, v := range vec {
			norm += v * v
		}
		norm = float32(math.Sqrt(float64(norm)))
		if norm > 0 {
			for j := range vec {
				vec[j] /= norm
			}
		}
		out[i] = vec
	}
	return out
}

func djb2(s string) uint64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return hash
}
