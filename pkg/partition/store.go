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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/opencie/cie/pkg/graph"
)

// Partition is one self-contained SQLite database holding the nodes and
// edges whose file paths live under the partition's key. The connection
// is opened lazily and held open for the partition's lifetime, matching
// spec.md §5's "each partition file is opened lazily with one shared
// handle".
type Partition struct {
	ID   string
	path string
	mu   sync.Mutex
	db   *sql.DB
}

// OpenPartition opens (creating if absent) the SQLite file at path and
// ensures its schema exists.
func OpenPartition(id, path string) (*Partition, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening partition %s: %w", id, err)
	}
	p := &Partition{ID: id, path: path, db: db}
	if err := p.ensureSchema(); err != nil {
		db.Close()
		return nil, &CorruptError{Path: path, Err: err}
	}
	return p, nil
}

func (p *Partition) ensureSchema() error {
	for _, stmt := range []string{schemaCreateNodes, schemaCreateEdges, schemaCreateMetadata, schemaCreateIndexes} {
		if _, err := p.db.Exec(stmt); err != nil {
			return err
		}
	}
	_, err := p.db.Exec(`INSERT INTO partition_metadata(key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, SchemaVersion)
	return err
}

// Close releases the underlying connection.
func (p *Partition) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.db.Close()
}

// Nodes returns every node stored in this partition.
func (p *Partition) Nodes() ([]graph.Node, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rows, err := p.db.Query(`SELECT ` + nodeColumns + ` FROM nodes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Edges returns every edge stored in this partition.
func (p *Partition) Edges() ([]graph.Edge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rows, err := p.db.Query(`SELECT ` + edgeColumns + ` FROM edges`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []graph.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Upsert replaces every node/edge belonging to file with the given sets,
// inside a single transaction so a crash mid-write leaves the previous
// content intact (SQLite's own rollback journal gives us the atomicity
// spec.md §5 asks of partition writes; the manifest's own atomic rename
// covers the layer above).
func (p *Partition) Upsert(file string, nodes []graph.Node, edges []graph.Edge) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM edges WHERE source IN (SELECT id FROM nodes WHERE file = ?) OR target IN (SELECT id FROM nodes WHERE file = ?)`, file, file); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM nodes WHERE file = ?`, file); err != nil {
		return err
	}

	nodeStmt, err := tx.Prepare(`INSERT INTO nodes(` + nodeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()
	for _, n := range nodes {
		meta, err := json.Marshal(n.Metadata)
		if err != nil {
			return err
		}
		if _, err := nodeStmt.Exec(n.ID, n.Name, string(n.Type), n.Kind, n.Subtype, n.File, n.StartLine, n.EndLine, nullableString(n.Text), nullableString(n.Hash), string(meta)); err != nil {
			return err
		}
	}

	edgeStmt, err := tx.Prepare(`INSERT OR IGNORE INTO edges(` + edgeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()
	for _, e := range edges {
		if _, err := edgeStmt.Exec(e.Source, e.Target, string(e.Type), nullableInt(e.RefLine), nullableString(e.Ident), nullableString(e.VersionSpec), e.IsDevDependency); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteFile removes every node (and, cascading, every edge) belonging
// to file.
func (p *Partition) DeleteFile(file string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM edges WHERE source IN (SELECT id FROM nodes WHERE file = ?) OR target IN (SELECT id FROM nodes WHERE file = ?)`, file, file); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM nodes WHERE file = ?`, file); err != nil {
		return err
	}
	return tx.Commit()
}

func scanNode(rows *sql.Rows) (graph.Node, error) {
	var n graph.Node
	var nodeType, text, hash, metaJSON sql.NullString
	if err := rows.Scan(&n.ID, &n.Name, &nodeType, &n.Kind, &n.Subtype, &n.File, &n.StartLine, &n.EndLine, &text, &hash, &metaJSON); err != nil {
		return n, err
	}
	n.Type = graph.NodeType(nodeType.String)
	n.Text = text.String
	n.Hash = hash.String
	if metaJSON.Valid && metaJSON.String != "" {
		_ = json.Unmarshal([]byte(metaJSON.String), &n.Metadata)
	}
	return n, nil
}

func scanEdge(rows *sql.Rows) (graph.Edge, error) {
	var e graph.Edge
	var edgeType string
	var refLine sql.NullInt64
	var ident, versionSpec sql.NullString
	var isDev sql.NullBool
	if err := rows.Scan(&e.Source, &e.Target, &edgeType, &refLine, &ident, &versionSpec, &isDev); err != nil {
		return e, err
	}
	e.Type = graph.EdgeType(edgeType)
	e.RefLine = int(refLine.Int64)
	e.Ident = ident.String
	e.VersionSpec = versionSpec.String
	e.IsDevDependency = isDev.Bool
	return e, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

// CorruptError reports a partition whose on-disk structure failed to
// open or initialize, matching the Corrupt error kind of spec.md §7.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt partition at %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }
