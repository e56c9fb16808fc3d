// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"

	"github.com/opencie/cie/pkg/search"
)

// Search implements spec §6's `search(q, limit, opts)`.
func (e *Engine) Search(ctx context.Context, queryText string, limit int, opts search.SearchOpts) ([]search.Hit, error) {
	return e.searchEngine.Search(ctx, queryText, limit, opts)
}
