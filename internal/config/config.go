// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads and validates the enumerated configuration
// values of spec.md §6 from `<workspace>/.cie/config.yaml`, generalizing
// internal/bootstrap's ProjectConfig (a single CozoDB engine/dimension
// pair) to pkg/core.Config's full surface, and internal/contract's
// env-override pattern (CIE_SOFT_LIMIT_BYTES) to five of the fields here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	internalerrors "github.com/opencie/cie/internal/errors"
	"github.com/opencie/cie/pkg/core"
	"github.com/opencie/cie/pkg/search"
)

// FileName is the fixed basename under <workspace>/.cie/, mirroring
// manifest.json/cross_refs/merkle.snapshot's placement in spec.md §6's
// persisted layout.
const FileName = "config.yaml"

// File is the on-disk shape of config.yaml; field names follow
// spec.md §6's enumerated configuration values verbatim.
type File struct {
	Provider string `yaml:"provider"`
	StoreURL string `yaml:"store_url"`
	RepoID   string `yaml:"repo_id"`

	MemoryBudgetBytes   int64 `yaml:"memory_budget_bytes"`
	MinLoadedPartitions int   `yaml:"min_loaded_partitions"`
	OverFetchMultiplier int   `yaml:"over_fetch_multiplier"`

	ScoreWeightSemantic float64 `yaml:"score_weights_semantic"`
	ScoreWeightCode     float64 `yaml:"score_weights_code"`

	EmbeddingBatchSize  int `yaml:"embedding_batch_size"`
	ProviderTimeoutSecs int `yaml:"provider_timeout_secs"`
	ProviderMaxRetries  int `yaml:"provider_max_retries"`

	ExcludePatterns []string `yaml:"exclude_patterns"`

	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	SemanticModel string `yaml:"semantic_model"`
	CodeModel     string `yaml:"code_model"`
}

// envOverrides mirrors internal/contract.SoftLimitBytes's
// CIE_SOFT_LIMIT_BYTES precedent: CIE_PROVIDER, CIE_STORE_URL,
// CIE_REPO_ID, CIE_MEMORY_BUDGET_BYTES and CIE_PROVIDER_BASE_URL
// override their fields, read after the file and before validation.
// No other field has an environment override.
func (f *File) applyEnvOverrides() {
	if v := os.Getenv("CIE_PROVIDER"); v != "" {
		f.Provider = v
	}
	if v := os.Getenv("CIE_STORE_URL"); v != "" {
		f.StoreURL = v
	}
	if v := os.Getenv("CIE_REPO_ID"); v != "" {
		f.RepoID = v
	}
	if v := os.Getenv("CIE_MEMORY_BUDGET_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			f.MemoryBudgetBytes = n
		}
	}
	if v := os.Getenv("CIE_PROVIDER_BASE_URL"); v != "" {
		f.BaseURL = v
	}
}

// Load reads <workspace>/.cie/config.yaml, applies CIE_* environment
// overrides, validates, and returns a pkg/core.Config ready for
// core.Open/core.Init. A missing file yields the all-defaults config
// (workspace + provider "local"), since spec.md §6 documents every
// field's default.
func Load(workspace string) (core.Config, error) {
	return LoadFile(filepath.Join(workspace, ".cie", FileName), workspace)
}

// LoadFile is Load with an explicit config path, for callers honoring a
// --config override instead of the <workspace>/.cie/config.yaml default.
func LoadFile(path, workspace string) (core.Config, error) {
	var f File
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, &f); unmarshalErr != nil {
			return core.Config{}, internalerrors.NewConfigInvalidError(
				"Cannot parse configuration",
				fmt.Sprintf("%s is not valid YAML: %v", path, unmarshalErr),
				"Fix the YAML syntax or delete the file to use defaults",
				unmarshalErr,
			)
		}
	case os.IsNotExist(err):
		// fall through with zero-value File; core.Config's own defaults
		// fill the zero fields.
	default:
		return core.Config{}, internalerrors.NewIOError(
			"Cannot read configuration",
			err.Error(),
			fmt.Sprintf("Check permissions on %s", path),
			err,
		)
	}

	f.applyEnvOverrides()

	if err := f.validate(); err != nil {
		return core.Config{}, err
	}

	return f.toCoreConfig(workspace), nil
}

// validate checks every enumerated option against the range spec.md §6
// documents, per the ConfigInvalid error kind (spec.md §7).
func (f *File) validate() error {
	switch search.ProviderType(f.Provider) {
	case "", search.ProviderLocal, search.ProviderManagedEndpoint, search.ProviderOpenAICompatible:
	default:
		return internalerrors.NewConfigInvalidError(
			"Invalid provider",
			fmt.Sprintf("provider %q is not one of local, managed-endpoint, openai-compatible", f.Provider),
			"Set provider to one of the three supported values",
			nil,
		)
	}
	if f.ScoreWeightSemantic != 0 || f.ScoreWeightCode != 0 {
		if f.ScoreWeightSemantic < 0 || f.ScoreWeightCode < 0 {
			return internalerrors.NewConfigInvalidError(
				"Invalid score weights",
				"score_weights_semantic and score_weights_code must be non-negative",
				"Use values such as 0.5 and 0.5",
				nil,
			)
		}
	}
	if f.MemoryBudgetBytes < 0 {
		return internalerrors.NewConfigInvalidError(
			"Invalid memory budget",
			"memory_budget_bytes must be non-negative",
			"Remove the field to use the default (256 MiB) or set a positive value",
			nil,
		)
	}
	if f.MinLoadedPartitions < 0 || f.OverFetchMultiplier < 0 || f.EmbeddingBatchSize < 0 ||
		f.ProviderTimeoutSecs < 0 || f.ProviderMaxRetries < 0 {
		return internalerrors.NewConfigInvalidError(
			"Invalid configuration value",
			"min_loaded_partitions, over_fetch_multiplier, embedding_batch_size, provider_timeout_secs, and provider_max_retries must be non-negative",
			"Remove the offending field to use its default",
			nil,
		)
	}
	return nil
}

func (f *File) toCoreConfig(workspace string) core.Config {
	var apiKey string
	if f.APIKeyEnv != "" {
		apiKey = os.Getenv(f.APIKeyEnv)
	}
	return core.Config{
		Workspace: workspace,
		RepoID:    f.RepoID,

		MemoryBudgetBytes:   f.MemoryBudgetBytes,
		MinLoadedPartitions: f.MinLoadedPartitions,
		OverFetchMultiplier: f.OverFetchMultiplier,

		ScoreWeightSemantic: f.ScoreWeightSemantic,
		ScoreWeightCode:     f.ScoreWeightCode,

		Provider: search.ProviderConfig{
			Type:          search.ProviderType(f.Provider),
			BaseURL:       firstNonEmpty(f.BaseURL, f.StoreURL),
			APIKey:        apiKey,
			SemanticModel: f.SemanticModel,
			CodeModel:     f.CodeModel,
			Timeout:       time.Duration(f.ProviderTimeoutSecs) * time.Second,
			Retry:         search.RetryConfig{MaxRetries: f.ProviderMaxRetries},
		},
		EmbeddingBatchSize: f.EmbeddingBatchSize,
		ExcludePatterns:    f.ExcludePatterns,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
