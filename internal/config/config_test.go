// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencie/cie/pkg/search"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, dir, cfg.Workspace)
}

func TestLoad_ParsesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cie"), 0o755))
	content := `
provider: local
repo_id: myrepo
memory_budget_bytes: 134217728
min_loaded_partitions: 2
score_weights_semantic: 0.7
score_weights_code: 0.3
embedding_batch_size: 32
provider_max_retries: 5
exclude_patterns:
  - "*.test.go"
  - "vendor/**"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cie", FileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "myrepo", cfg.RepoID)
	require.Equal(t, int64(134217728), cfg.MemoryBudgetBytes)
	require.Equal(t, 2, cfg.MinLoadedPartitions)
	require.Equal(t, 0.7, cfg.ScoreWeightSemantic)
	require.Equal(t, 0.3, cfg.ScoreWeightCode)
	require.Equal(t, 32, cfg.EmbeddingBatchSize)
	require.Equal(t, search.ProviderType("local"), cfg.Provider.Type)
	require.Equal(t, 5, cfg.Provider.Retry.MaxRetries)
	require.ElementsMatch(t, []string{"*.test.go", "vendor/**"}, cfg.ExcludePatterns)
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cie"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cie", FileName), []byte("provider: carrier-pigeon\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoad_RejectsNegativeMemoryBudget(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cie"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cie", FileName), []byte("memory_budget_bytes: -1\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoad_EnvOverridesFileValue(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cie"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cie", FileName), []byte("repo_id: from-file\n"), 0o644))

	os.Setenv("CIE_REPO_ID", "from-env")
	defer os.Unsetenv("CIE_REPO_ID")

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.RepoID)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cie"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cie", FileName), []byte("provider: [unterminated\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}
