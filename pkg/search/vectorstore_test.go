// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollection(t *testing.T) *Collection {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.db")
	c, err := OpenCollection(path, "test")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCollection_UpsertAndQuery(t *testing.T) {
	c := newTestCollection(t)
	ctx := context.Background()

	points := []Point{
		{ID: PointID("a", "repo1"), RepoID: "repo1", EntityID: "a", Name: "Alpha", Vector: []float32{1, 0, 0}},
		{ID: PointID("b", "repo1"), RepoID: "repo1", EntityID: "b", Name: "Beta", Vector: []float32{0, 1, 0}},
		{ID: PointID("c", "repo2"), RepoID: "repo2", EntityID: "c", Name: "Gamma", Vector: []float32{1, 0, 0}},
	}
	require.NoError(t, c.Upsert(ctx, points))

	hits, err := c.Query(ctx, "repo1", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].EntityID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestCollection_DeleteByEntityIDs(t *testing.T) {
	c := newTestCollection(t)
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, []Point{
		{ID: PointID("a", "repo1"), RepoID: "repo1", EntityID: "a", Vector: []float32{1, 0}},
		{ID: PointID("b", "repo1"), RepoID: "repo1", EntityID: "b", Vector: []float32{0, 1}},
	}))
	require.NoError(t, c.DeleteByEntityIDs(ctx, "repo1", []string{"a"}))

	n, err := c.Count(ctx, "repo1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollection_DeleteByRepo(t *testing.T) {
	c := newTestCollection(t)
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, []Point{
		{ID: PointID("a", "repo1"), RepoID: "repo1", EntityID: "a", Vector: []float32{1, 0}},
		{ID: PointID("b", "repo2"), RepoID: "repo2", EntityID: "b", Vector: []float32{0, 1}},
	}))
	require.NoError(t, c.DeleteByRepo(ctx, "repo1"))

	n1, err := c.Count(ctx, "repo1")
	require.NoError(t, err)
	assert.Equal(t, 0, n1)

	n2, err := c.Count(ctx, "repo2")
	require.NoError(t, err)
	assert.Equal(t, 1, n2)
}

func TestPointID_DeterministicAndRepoScoped(t *testing.T) {
	id1 := PointID("entity-a", "repo1")
	id2 := PointID("entity-a", "repo1")
	id3 := PointID("entity-a", "repo2")
	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)
}
