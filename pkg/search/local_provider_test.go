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

func TestLocalProvider_EncodeIsDeterministic(t *testing.T) {
	p, err := newLocalProvider(ProviderConfig{Dim: 16})
	require.NoError(t, err)

	a, err := p.EncodeSemantic(context.Background(), []string{"hello"})
	require.NoError(t, err)
	b, err := p.EncodeSemantic(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLocalProvider_SemanticAndCodeDiverge(t *testing.T) {
	p, err := newLocalProvider(ProviderConfig{Dim: 16})
	require.NoError(t, err)

	sem, err := p.EncodeSemantic(context.Background(), []string{"hello"})
	require.NoError(t, err)
	code, err := p.EncodeCode(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.NotEqual(t, sem, code)
}

func TestLocalProvider_WarmupMakesReady(t *testing.T) {
	p, err := newLocalProvider(ProviderConfig{Dim: 16})
	require.NoError(t, err)

	status, err := p.CheckStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Ready)

	require.NoError(t, p.Warmup(context.Background()))
	status, err = p.CheckStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Ready)
}

func TestNewProvider_LocalHonorsConfiguredDim(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Type: ProviderLocal, Dim: 100})
	require.NoError(t, err) // local provider always honors cfg.Dim, so no mismatch
}
