// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencie/cie/pkg/graph"
)

// fakeProvider returns a fixed-dimension deterministic vector per text,
// optionally failing the first N calls to a given modality to exercise
// the retry path.
type fakeProvider struct {
	dim         int
	mu          sync.Mutex
	failSemanticCalls int
	failCodeCalls     int
}

func (f *fakeProvider) EmbeddingDim() int          { return f.dim }
func (f *fakeProvider) ProviderType() ProviderType { return ProviderLocal }
func (f *fakeProvider) CheckStatus(ctx context.Context) (ProviderStatus, error) {
	return ProviderStatus{Ready: true}, nil
}
func (f *fakeProvider) Warmup(ctx context.Context) error { return nil }

func (f *fakeProvider) EncodeSemantic(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	if f.failSemanticCalls > 0 {
		f.failSemanticCalls--
		f.mu.Unlock()
		return nil, errTransient{}
	}
	f.mu.Unlock()
	return encodeHash(texts, f.dim, 1), nil
}

func (f *fakeProvider) EncodeCode(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	if f.failCodeCalls > 0 {
		f.failCodeCalls--
		f.mu.Unlock()
		return nil, errTransient{}
	}
	f.mu.Unlock()
	return encodeHash(texts, f.dim, 2), nil
}

type errTransient struct{}

func (errTransient) Error() string { return "connection reset: transient" }

func testNodes() []graph.Node {
	return []graph.Node{
		{ID: "a.go:A", Name: "A", Type: graph.NodeCallable, File: "a.go", Text: "func A() {}"},
		{ID: "a.go:B", Name: "B", Type: graph.NodeCallable, File: "a.go", Text: "func B() {}"},
	}
}

func TestIndexer_IndexEntities_PopulatesBothCollections(t *testing.T) {
	semantic := newTestCollection(t)
	code := newTestCollection(t)
	provider := &fakeProvider{dim: 8}
	ix := NewIndexer(semantic, code, provider, IndexerConfig{RepoID: "repo1", BatchSize: 1})

	require.NoError(t, ix.IndexEntities(context.Background(), testNodes()))

	n, err := semantic.Count(context.Background(), "repo1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = code.Count(context.Background(), "repo1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIndexer_IndexEntities_RetriesTransientFailure(t *testing.T) {
	semantic := newTestCollection(t)
	code := newTestCollection(t)
	provider := &fakeProvider{dim: 8, failSemanticCalls: 1}
	ix := NewIndexer(semantic, code, provider, IndexerConfig{
		RepoID: "repo1", BatchSize: 10,
		Retry: RetryConfig{MaxRetries: 3},
	})

	require.NoError(t, ix.IndexEntities(context.Background(), testNodes()))

	n, err := semantic.Count(context.Background(), "repo1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIndexer_DeleteEntities(t *testing.T) {
	semantic := newTestCollection(t)
	code := newTestCollection(t)
	provider := &fakeProvider{dim: 8}
	ix := NewIndexer(semantic, code, provider, IndexerConfig{RepoID: "repo1"})

	require.NoError(t, ix.IndexEntities(context.Background(), testNodes()))
	require.NoError(t, ix.DeleteEntities(context.Background(), []string{"a.go:A"}))

	n, err := semantic.Count(context.Background(), "repo1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexer_Reindex_ClearsPriorState(t *testing.T) {
	semantic := newTestCollection(t)
	code := newTestCollection(t)
	provider := &fakeProvider{dim: 8}
	ix := NewIndexer(semantic, code, provider, IndexerConfig{RepoID: "repo1"})

	require.NoError(t, ix.IndexEntities(context.Background(), testNodes()))
	require.NoError(t, ix.Reindex(context.Background(), testNodes()[:1]))

	n, err := semantic.Count(context.Background(), "repo1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
