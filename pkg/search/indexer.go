// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opencie/cie/pkg/graph"
)

// DefaultBatchSize is the default embedding_batch_size of spec §4.6.
const DefaultBatchSize = 64

// Indexer batch-upserts entities into both vector collections,
// grounded on the corpus's EmbeddingGenerator.EmbedFunctions worker
// pattern (batch, tolerate per-item failure, log a summary) but
// reshaped around the two-collection, two-modality requirement of
// spec §4.6.
type Indexer struct {
	semantic  *Collection
	code      *Collection
	provider  Provider
	repoID    string
	batchSize int
	retry     RetryConfig
	logger    *slog.Logger
}

// IndexerConfig configures an Indexer.
type IndexerConfig struct {
	RepoID    string
	BatchSize int
	Retry     RetryConfig
	Logger    *slog.Logger
}

func NewIndexer(semantic, code *Collection, provider Provider, cfg IndexerConfig) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Indexer{
		semantic:  semantic,
		code:      code,
		provider:  provider,
		repoID:    cfg.RepoID,
		batchSize: cfg.BatchSize,
		retry:     cfg.Retry,
		logger:    cfg.Logger,
	}
}

// IndexEntities upserts entities into both collections, bucketed by
// batchSize. A batch whose embedding calls exhaust retries is logged
// and skipped; indexing continues with the remaining batches, per
// spec §4.6's "a permanent failure for a single batch is logged and
// the remaining entities continue".
func (ix *Indexer) IndexEntities(ctx context.Context, entities []graph.Node) error {
	for start := 0; start < len(entities); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(entities) {
			end = len(entities)
		}
		if err := ix.indexBatch(ctx, entities[start:end]); err != nil {
			ix.logger.Error("search.indexer.batch.failed",
				"repo_id", ix.repoID, "batch_start", start, "batch_size", end-start, "error", err)
			continue
		}
	}
	return nil
}

func (ix *Indexer) indexBatch(ctx context.Context, batch []graph.Node) error {
	semanticTexts := make([]string, len(batch))
	codeTexts := make([]string, len(batch))
	for i, n := range batch {
		semanticTexts[i] = BuildSemanticText(n)
		codeTexts[i] = BuildCodeText(n)
	}

	var semanticVecs, codeVecs [][]float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return withRetry(gctx, ix.retry, ix.logRetry("semantic"), func() error {
			var innerErr error
			semanticVecs, innerErr = ix.provider.EncodeSemantic(gctx, semanticTexts)
			return innerErr
		})
	})
	g.Go(func() error {
		return withRetry(gctx, ix.retry, ix.logRetry("code"), func() error {
			var innerErr error
			codeVecs, innerErr = ix.provider.EncodeCode(gctx, codeTexts)
			return innerErr
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}

	semanticPoints := make([]Point, len(batch))
	codePoints := make([]Point, len(batch))
	for i, n := range batch {
		base := pointFromNode(n, ix.repoID)
		sp := base
		sp.Content = semanticTexts[i]
		sp.Vector = semanticVecs[i]
		semanticPoints[i] = sp

		cp := base
		cp.Content = codeTexts[i]
		cp.Vector = codeVecs[i]
		codePoints[i] = cp
	}

	if err := ix.semantic.Upsert(ctx, semanticPoints); err != nil {
		return err
	}
	return ix.code.Upsert(ctx, codePoints)
}

func (ix *Indexer) logRetry(modality string) func(attempt int, sleep time.Duration, err error) {
	return func(attempt int, sleep time.Duration, err error) {
		ix.logger.Warn("search.indexer.retry",
			"repo_id", ix.repoID, "modality", modality, "attempt", attempt, "sleep_ms", sleep.Milliseconds(), "error", err)
	}
}

// DeleteEntities removes entityIDs from both collections.
func (ix *Indexer) DeleteEntities(ctx context.Context, entityIDs []string) error {
	if err := ix.semantic.DeleteByEntityIDs(ctx, ix.repoID, entityIDs); err != nil {
		return err
	}
	return ix.code.DeleteByEntityIDs(ctx, ix.repoID, entityIDs)
}

// Reindex is the bulk-reindex transactional sequence of spec §4.6:
// tear down any points for repoID, then re-upsert everything in
// batches. A crash between the delete and the final batch leaves a
// partial set; the next Reindex call deletes everything for repoID
// again and starts over, without consulting Count.
func (ix *Indexer) Reindex(ctx context.Context, entities []graph.Node) error {
	if err := ix.semantic.DeleteByRepo(ctx, ix.repoID); err != nil {
		return err
	}
	if err := ix.code.DeleteByRepo(ctx, ix.repoID); err != nil {
		return err
	}
	return ix.IndexEntities(ctx, entities)
}

func pointFromNode(n graph.Node, repoID string) Point {
	return Point{
		ID:        PointID(n.ID, repoID),
		RepoID:    repoID,
		EntityID:  n.ID,
		Name:      n.Name,
		NodeType:  string(n.Type),
		Kind:      n.Kind,
		Subtype:   n.Subtype,
		FilePath:  n.File,
		StartLine: n.StartLine,
		EndLine:   n.EndLine,
	}
}
