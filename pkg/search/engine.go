// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"
)

// SearchMode forces single-modality scoring, or leaves both on for
// the default hybrid fusion.
type SearchMode string

const (
	ModeHybrid   SearchMode = ""
	ModeSemantic SearchMode = "semantic"
	ModeCode     SearchMode = "code"
)

// SearchOpts carries the query path's optional filters and weights,
// per spec §4.6.
type SearchOpts struct {
	Mode            SearchMode
	MinScore        float64
	NodeTypes       []string // e.g. "Container", "Callable", "Container:file"
	FilePatterns    []string // glob patterns against FilePath
	KindHint        string
	IncludeSnippets bool
}

// Hit is one fused, filtered, ranked search result.
type Hit struct {
	EntityID  string
	Name      string
	NodeType  string
	Kind      string
	Subtype   string
	FilePath  string
	StartLine int
	EndLine   int
	Score     float64
	// Sources records which collections actually contributed to Score,
	// so a caller can tell "both modalities agreed" from "only one
	// modality had this entity" rather than silently treating a
	// missing modality as a zero bonus, per §5's ordering guarantee.
	Sources []string
	Snippet string
}

// EngineConfig configures the score weights and over-fetch behavior
// of an Engine.
type EngineConfig struct {
	RepoID            string
	WeightSemantic    float64
	WeightCode        float64
	OverFetchMultiplier int
	Logger            *slog.Logger
}

// Engine runs the §4.6 query path: concurrent dual encode, dual
// vector query, fusion, filter, sort, trim.
type Engine struct {
	semantic *Collection
	code     *Collection
	provider Provider
	repoID   string
	wSem     float64
	wCode    float64
	overFetch int
	logger   *slog.Logger
}

func NewEngine(semantic, code *Collection, provider Provider, cfg EngineConfig) *Engine {
	wSem, wCode := cfg.WeightSemantic, cfg.WeightCode
	if wSem == 0 && wCode == 0 {
		wSem, wCode = 0.5, 0.5
	}
	overFetch := cfg.OverFetchMultiplier
	if overFetch <= 0 {
		overFetch = 3
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		semantic: semantic, code: code, provider: provider, repoID: cfg.RepoID,
		wSem: wSem, wCode: wCode, overFetch: overFetch, logger: logger,
	}
}

// Search implements spec §4.6's query path.
func (e *Engine) Search(ctx context.Context, queryText string, limit int, opts SearchOpts) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	wSem, wCode := e.weightsFor(opts.Mode)
	fetchLimit := limit * e.overFetch

	var semanticHits, codeHits []ScoredPoint
	g, gctx := errgroup.WithContext(ctx)
	if wSem > 0 {
		g.Go(func() error {
			vecs, err := e.provider.EncodeSemantic(gctx, []string{queryText})
			if err != nil {
				return &ProviderUnavailableError{Provider: e.provider.ProviderType(), Err: err}
			}
			semanticHits, err = e.semantic.Query(gctx, e.repoID, vecs[0], fetchLimit)
			return err
		})
	}
	if wCode > 0 {
		g.Go(func() error {
			vecs, err := e.provider.EncodeCode(gctx, []string{queryText})
			if err != nil {
				return &ProviderUnavailableError{Provider: e.provider.ProviderType(), Err: err}
			}
			codeHits, err = e.code.Query(gctx, e.repoID, vecs[0], fetchLimit)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := fuse(semanticHits, codeHits, wSem, wCode, queryText, opts)

	filtered := make([]Hit, 0, len(candidates))
	for _, h := range candidates {
		if h.Score < opts.MinScore {
			continue
		}
		if !matchesNodeType(h.NodeType, h.Kind, opts.NodeTypes) {
			continue
		}
		if !matchesFilePatterns(h.FilePath, opts.FilePatterns) {
			continue
		}
		filtered = append(filtered, h)
	}

	sortHitsByScore(filtered)
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	if !opts.IncludeSnippets {
		for i := range filtered {
			filtered[i].Snippet = ""
		}
	}
	return filtered, nil
}

func (e *Engine) weightsFor(mode SearchMode) (float64, float64) {
	switch mode {
	case ModeSemantic:
		return 1.0, 0.0
	case ModeCode:
		return 0.0, 1.0
	default:
		return e.wSem, e.wCode
	}
}

// fuse merges candidates from both modalities keyed by entity id.
// A missing modality contributes 0 to that candidate's score rather
// than being dropped — the entity still surfaces if the other
// modality found it.
func fuse(semanticHits, codeHits []ScoredPoint, wSem, wCode float64, queryText string, opts SearchOpts) []Hit {
	byEntity := make(map[string]*Hit)
	order := make([]string, 0, len(semanticHits)+len(codeHits))

	upsert := func(p ScoredPoint, weight float64, source string) {
		h, ok := byEntity[p.EntityID]
		if !ok {
			h = &Hit{
				EntityID: p.EntityID, Name: p.Name, NodeType: p.NodeType, Kind: p.Kind,
				Subtype: p.Subtype, FilePath: p.FilePath, StartLine: p.StartLine, EndLine: p.EndLine,
				Snippet: p.Content,
			}
			byEntity[p.EntityID] = h
			order = append(order, p.EntityID)
		}
		h.Score += weight * p.Score
		h.Sources = append(h.Sources, source)
		if source == "code" && p.Content != "" {
			h.Snippet = p.Content
		}
	}

	for _, p := range semanticHits {
		upsert(p, wSem, "semantic")
	}
	for _, p := range codeHits {
		upsert(p, wCode, "code")
	}

	out := make([]Hit, 0, len(order))
	for _, id := range order {
		h := *byEntity[id]
		h.Score += bonus(h.Name, h.Kind, queryText, opts.KindHint)
		out = append(out, h)
	}
	return out
}

// bonus computes the additive name/kind match bumps of spec §4.6,
// saturating at +0.15 in aggregate.
func bonus(name, kind, queryText, kindHint string) float64 {
	var total float64
	foldedName := strings.ToLower(name)
	foldedQuery := strings.ToLower(queryText)
	if foldedName == foldedQuery {
		total += 0.10
	}
	if strings.Contains(foldedName, foldedQuery) {
		total += 0.05
	}
	if kindHint != "" && kind == kindHint {
		total += 0.03
	}
	if total > 0.15 {
		total = 0.15
	}
	return total
}

// matchesNodeType checks an allowed entry against a hit's coarse node
// type and, for composite entries like "Container:file", its finer
// kind (spec §4.6 step 4: opts.node_types accepts "Type" or
// "Type:kind").
func matchesNodeType(nodeType, kind string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		want, wantKind, hasKind := strings.Cut(a, ":")
		if want != nodeType {
			continue
		}
		if !hasKind || wantKind == kind {
			return true
		}
	}
	return false
}

func matchesFilePatterns(filePath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pat := range patterns {
		g, err := glob.Compile(pat, '/')
		if err != nil {
			continue
		}
		if g.Match(filePath) {
			return true
		}
	}
	return false
}

func sortHitsByScore(hits []Hit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}
