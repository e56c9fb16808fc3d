// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package core implements every CORE-visible operation of spec §6
// (init, sync, search, get_node, neighbors, edges, read_code,
// find_nodes, graph_stats, index_status, health) as a single Engine
// facade over C1-C6, grounded on the teacher's internal/bootstrap
// lifecycle (InitProject/OpenProject) generalized to construct a
// merkle.Manager + partition.Store + lazygraph.Manager + search.Engine
// instead of a single CozoDB handle.
package core

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencie/cie/pkg/lazygraph"
	"github.com/opencie/cie/pkg/merkle"
	"github.com/opencie/cie/pkg/partition"
	"github.com/opencie/cie/pkg/search"
)

// storeRoot is the fixed directory name under a workspace holding every
// persisted artifact, per spec §6.
const storeRoot = ".cie"

// Config configures an Engine, mirroring the enumerated configuration
// values of spec §6.
type Config struct {
	Workspace string
	RepoID    string // defaults to filepath.Base(Workspace)

	MemoryBudgetBytes   int64
	MinLoadedPartitions int
	MaxPartitionNodes   int
	OverFetchMultiplier int

	ScoreWeightSemantic float64
	ScoreWeightCode     float64

	Provider            search.ProviderConfig
	EmbeddingBatchSize  int
	ExcludePatterns     []string

	Logger *slog.Logger
}

func (c *Config) withDefaults() {
	if c.RepoID == "" {
		c.RepoID = filepath.Base(c.Workspace)
	}
	if c.MemoryBudgetBytes <= 0 {
		c.MemoryBudgetBytes = 256 << 20
	}
	if c.MinLoadedPartitions <= 0 {
		c.MinLoadedPartitions = 1
	}
	if c.MaxPartitionNodes <= 0 {
		c.MaxPartitionNodes = 2000
	}
	if c.OverFetchMultiplier <= 0 {
		c.OverFetchMultiplier = 3
	}
	if c.ScoreWeightSemantic == 0 && c.ScoreWeightCode == 0 {
		c.ScoreWeightSemantic, c.ScoreWeightCode = 0.5, 0.5
	}
	if c.EmbeddingBatchSize <= 0 {
		c.EmbeddingBatchSize = search.DefaultBatchSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine is the facade every caller (CLI, tests, a future integration
// server) drives; it owns the durable stores and in-memory managers for
// one workspace.
type Engine struct {
	cfg Config

	storeDir string

	merkleMgr  *merkle.Manager
	manifest   *partition.Manifest
	crossRefs  *partition.CrossRefStore
	lazyMgr    *lazygraph.Manager
	source     *fileSource

	provider       search.Provider
	semanticColl   *search.Collection
	codeColl       *search.Collection
	indexer        *search.Indexer
	searchEngine   *search.Engine

	logger *slog.Logger
}

// Open wires an Engine against an already-initialized workspace store.
// Call Init first for a workspace that has never been indexed.
func Open(cfg Config) (*Engine, error) {
	cfg.withDefaults()
	storeDir := filepath.Join(cfg.Workspace, storeRoot)

	if _, err := os.Stat(storeDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("core: workspace %s not initialized (run init first)", cfg.Workspace)
	}

	e := &Engine{cfg: cfg, storeDir: storeDir, logger: cfg.Logger}

	excl, err := merkle.NewExclusionFilter(cfg.ExcludePatterns...)
	if err != nil {
		return nil, fmt.Errorf("core: build exclusion filter: %w", err)
	}
	e.merkleMgr = merkle.NewManager(cfg.Workspace, filepath.Join(storeDir, merkle.SnapshotFileName), excl)

	manifest, err := partition.LoadManifest(filepath.Join(storeDir, partition.ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("core: load manifest: %w", err)
	}
	e.manifest = manifest

	crossRefs, err := partition.OpenCrossRefStore(filepath.Join(storeDir, partition.CrossRefFileName))
	if err != nil {
		return nil, fmt.Errorf("core: open cross-ref store: %w", err)
	}
	e.crossRefs = crossRefs

	e.source = &fileSource{dir: filepath.Join(storeDir, "partitions"), manifest: manifest}

	e.lazyMgr = lazygraph.New(lazygraph.Config{
		BudgetBytes:         cfg.MemoryBudgetBytes,
		MinLoadedPartitions: cfg.MinLoadedPartitions,
	}, e.source, crossRefs, manifest, cfg.Logger)

	provider, err := search.NewProvider(cfg.Provider)
	if err != nil {
		crossRefs.Close()
		return nil, fmt.Errorf("core: construct embedding provider: %w", err)
	}
	e.provider = provider

	semanticColl, err := search.OpenCollection(filepath.Join(storeDir, "semantic.db"), "semantic")
	if err != nil {
		crossRefs.Close()
		return nil, fmt.Errorf("core: open semantic collection: %w", err)
	}
	e.semanticColl = semanticColl

	codeColl, err := search.OpenCollection(filepath.Join(storeDir, "code.db"), "code")
	if err != nil {
		crossRefs.Close()
		semanticColl.Close()
		return nil, fmt.Errorf("core: open code collection: %w", err)
	}
	e.codeColl = codeColl

	e.indexer = search.NewIndexer(semanticColl, codeColl, provider, search.IndexerConfig{
		RepoID:    cfg.RepoID,
		BatchSize: cfg.EmbeddingBatchSize,
		Retry:     cfg.Provider.Retry,
		Logger:    cfg.Logger,
	})
	e.searchEngine = search.NewEngine(semanticColl, codeColl, provider, search.EngineConfig{
		RepoID:              cfg.RepoID,
		WeightSemantic:      cfg.ScoreWeightSemantic,
		WeightCode:          cfg.ScoreWeightCode,
		OverFetchMultiplier: cfg.OverFetchMultiplier,
		Logger:              cfg.Logger,
	})

	e.logger.Info("core.engine.open", "workspace", cfg.Workspace, "repo_id", cfg.RepoID)
	return e, nil
}

// Close releases every durable handle the Engine holds.
func (e *Engine) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(e.crossRefs.Close())
	record(e.semanticColl.Close())
	record(e.codeColl.Close())
	return firstErr
}
