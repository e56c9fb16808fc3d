// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityProvider encodes "match" as a vector identical to the one
// stored for the target point, and anything else as an orthogonal
// vector, so fusion behavior is exactly predictable in tests.
type identityProvider struct {
	dim int
}

func (p *identityProvider) EmbeddingDim() int          { return p.dim }
func (p *identityProvider) ProviderType() ProviderType { return ProviderLocal }
func (p *identityProvider) CheckStatus(ctx context.Context) (ProviderStatus, error) {
	return ProviderStatus{Ready: true}, nil
}
func (p *identityProvider) Warmup(ctx context.Context) error { return nil }

func (p *identityProvider) vecFor(text string) []float32 {
	v := make([]float32, p.dim)
	if text == "match" {
		v[0] = 1
	} else {
		v[1] = 1
	}
	return v
}

func (p *identityProvider) EncodeSemantic(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vecFor(t)
	}
	return out, nil
}

func (p *identityProvider) EncodeCode(ctx context.Context, texts []string) ([][]float32, error) {
	return p.EncodeSemantic(ctx, texts)
}

func seedEngine(t *testing.T) (*Engine, *Collection, *Collection) {
	t.Helper()
	semantic := newTestCollection(t)
	code := newTestCollection(t)
	provider := &identityProvider{dim: 2}
	ctx := context.Background()

	require.NoError(t, semantic.Upsert(ctx, []Point{
		{ID: PointID("foo", "repo1"), RepoID: "repo1", EntityID: "foo", Name: "Foo", NodeType: "Callable",
			FilePath: "pkg/foo.go", Vector: []float32{1, 0}},
		{ID: PointID("bar", "repo1"), RepoID: "repo1", EntityID: "bar", Name: "Bar", NodeType: "Callable",
			FilePath: "pkg/bar.go", Vector: []float32{0, 1}},
	}))
	require.NoError(t, code.Upsert(ctx, []Point{
		{ID: PointID("foo", "repo1"), RepoID: "repo1", EntityID: "foo", Name: "Foo", NodeType: "Callable",
			FilePath: "pkg/foo.go", Vector: []float32{1, 0}},
	}))

	e := NewEngine(semantic, code, provider, EngineConfig{RepoID: "repo1"})
	return e, semantic, code
}

func TestEngine_Search_RanksExactMatchFirst(t *testing.T) {
	e, _, _ := seedEngine(t)
	hits, err := e.Search(context.Background(), "match", 10, SearchOpts{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "foo", hits[0].EntityID)
}

func TestEngine_Search_MissingModalityStillSurfaces(t *testing.T) {
	e, _, _ := seedEngine(t)
	hits, err := e.Search(context.Background(), "match", 10, SearchOpts{})
	require.NoError(t, err)

	var bar *Hit
	for i := range hits {
		if hits[i].EntityID == "bar" {
			bar = &hits[i]
		}
	}
	require.NotNil(t, bar, "bar has only a semantic point but should still surface")
	assert.Contains(t, bar.Sources, "semantic")
	assert.NotContains(t, bar.Sources, "code")
}

func TestEngine_Search_FiltersByFilePattern(t *testing.T) {
	e, _, _ := seedEngine(t)
	hits, err := e.Search(context.Background(), "match", 10, SearchOpts{FilePatterns: []string{"pkg/foo.*"}})
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, "pkg/foo.go", h.FilePath)
	}
}

func TestEngine_Search_FiltersByMinScore(t *testing.T) {
	e, _, _ := seedEngine(t)
	hits, err := e.Search(context.Background(), "match", 10, SearchOpts{MinScore: 1.5})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEngine_Search_ModeSemanticOnly(t *testing.T) {
	e, _, _ := seedEngine(t)
	hits, err := e.Search(context.Background(), "match", 10, SearchOpts{Mode: ModeSemantic})
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotContains(t, h.Sources, "code")
	}
}

func TestBonus_SaturatesAtCap(t *testing.T) {
	b := bonus("Foo", "function", "Foo", "function")
	assert.InDelta(t, 0.15, b, 1e-9)
}

func TestBonus_ExactMatchExceedsSubstringMatch(t *testing.T) {
	exact := bonus("Foo", "", "Foo", "")
	substr := bonus("FooBar", "", "Foo", "")
	assert.Greater(t, exact, substr)
}
