// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package partition

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/opencie/cie/pkg/graph"
)

// CrossRefFileName is the fixed basename under <workspace>/<store_root>/,
// per spec.md §6's persisted layout ("cross_refs").
const CrossRefFileName = "cross_refs"

// CrossRef is an edge whose endpoints live in two different partitions;
// the data model's ownership rule makes this store authoritative for
// inter-partition edges (spec.md §3, "Ownership model").
type CrossRef struct {
	graph.Edge
	SourcePartition string
	TargetPartition string
}

// CrossRefStore is the single secondary store for cross-partition edges,
// named after the original design's CrossRefIndex/CrossRefStore pair.
type CrossRefStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenCrossRefStore opens (creating if absent) the cross-ref database at
// path.
func OpenCrossRefStore(path string) (*CrossRefStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening cross-ref store: %w", err)
	}
	if _, err := db.Exec(crossRefSchema); err != nil {
		db.Close()
		return nil, &CorruptError{Path: path, Err: err}
	}
	return &CrossRefStore{db: db}, nil
}

// Close releases the underlying connection.
func (s *CrossRefStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Replace deletes every cross-ref whose source or target node belongs to
// file (matched by node id; filePartition is not used to select rows)
// and re-inserts refs,
// mirroring Partition.Upsert's delete-then-insert discipline for a
// single file's worth of cross-partition edges.
func (s *CrossRefStore) Replace(file, filePartition string, refs []CrossRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cross_refs WHERE source LIKE ? OR target LIKE ?`, file+":%", file+":%"); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM cross_refs WHERE source = ? OR target = ?`, file, file); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO cross_refs(source, target, edge_type, source_partition, target_partition, ref_line, ident, version_spec, is_dev_dependency) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range refs {
		if _, err := stmt.Exec(r.Source, r.Target, string(r.Type), r.SourcePartition, r.TargetPartition, nullableInt(r.RefLine), nullableString(r.Ident), nullableString(r.VersionSpec), r.IsDevDependency); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TruncateAll deletes every cross-ref in the store. Used by a full
// rebuild (core.Engine.Sync): since that pass re-derives the complete
// cross-ref set from a fresh Assemble of every live file, starting
// from empty is simpler and safer than trying to enumerate which
// files' refs are now stale (a file can lose all its cross-refs, or
// move to a different partition, without itself appearing in
// Replace's per-file call set).
func (s *CrossRefStore) TruncateAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM cross_refs`)
	return err
}

// EdgesFrom returns every cross-ref whose source node is id.
func (s *CrossRefStore) EdgesFrom(id string) ([]CrossRef, error) {
	return s.query(`SELECT source, target, edge_type, source_partition, target_partition, ref_line, ident, version_spec, is_dev_dependency FROM cross_refs WHERE source = ?`, id)
}

// EdgesTo returns every cross-ref whose target node is id.
func (s *CrossRefStore) EdgesTo(id string) ([]CrossRef, error) {
	return s.query(`SELECT source, target, edge_type, source_partition, target_partition, ref_line, ident, version_spec, is_dev_dependency FROM cross_refs WHERE target = ?`, id)
}

// All returns every cross-ref in the store, for whole-store operations
// such as graph_stats() that cannot be answered from any single loaded
// partition (spec.md §3, "Ownership model": the cross-ref index is
// authoritative for inter-partition edges).
func (s *CrossRefStore) All() ([]CrossRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT source, target, edge_type, source_partition, target_partition, ref_line, ident, version_spec, is_dev_dependency FROM cross_refs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CrossRef
	for rows.Next() {
		var r CrossRef
		var edgeType string
		var refLine sql.NullInt64
		var ident, versionSpec sql.NullString
		var isDev sql.NullBool
		if err := rows.Scan(&r.Source, &r.Target, &edgeType, &r.SourcePartition, &r.TargetPartition, &refLine, &ident, &versionSpec, &isDev); err != nil {
			return nil, err
		}
		r.Type = graph.EdgeType(edgeType)
		r.RefLine = int(refLine.Int64)
		r.Ident = ident.String
		r.VersionSpec = versionSpec.String
		r.IsDevDependency = isDev.Bool
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *CrossRefStore) query(q, id string) ([]CrossRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CrossRef
	for rows.Next() {
		var r CrossRef
		var edgeType string
		var refLine sql.NullInt64
		var ident, versionSpec sql.NullString
		var isDev sql.NullBool
		if err := rows.Scan(&r.Source, &r.Target, &edgeType, &r.SourcePartition, &r.TargetPartition, &refLine, &ident, &versionSpec, &isDev); err != nil {
			return nil, err
		}
		r.Type = graph.EdgeType(edgeType)
		r.RefLine = int(refLine.Int64)
		r.Ident = ident.String
		r.VersionSpec = versionSpec.String
		r.IsDevDependency = isDev.Bool
		out = append(out, r)
	}
	return out, rows.Err()
}
