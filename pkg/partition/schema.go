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

// Package partition implements C4: deterministic graph partitioning by
// directory, durable per-partition storage, and the cross-partition edge
// index.
//
// The schema and storage choice follow the original implementation's own
// design (lazy/schema.rs: one SQLite file per partition, schema version
// "1.1" with nullable version_spec/is_dev_dependency columns on edges)
// rather than the teacher's CozoDB-backed pkg/storage, which needs CGO
// and an external Datalog engine unavailable to this module. The table
// layout below is a direct SQL translation of that schema.
package partition

const (
	// SchemaVersion is recorded in manifest.json and in each partition's
	// partition_metadata table; readers must apply documented migrations
	// before opening an older version.
	SchemaVersion = "1.1"

	schemaCreateNodes = `
CREATE TABLE IF NOT EXISTS nodes (
	id TEXT PRIMARY KEY NOT NULL,
	name TEXT NOT NULL,
	node_type TEXT NOT NULL,
	kind TEXT,
	subtype TEXT,
	file TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	text TEXT,
	hash TEXT,
	metadata_json TEXT
)`

	schemaCreateEdges = `
CREATE TABLE IF NOT EXISTS edges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	edge_type TEXT NOT NULL,
	ref_line INTEGER,
	ident TEXT,
	version_spec TEXT,
	is_dev_dependency INTEGER,
	UNIQUE(source, target, edge_type, ref_line)
)`

	schemaCreateMetadata = `
CREATE TABLE IF NOT EXISTS partition_metadata (
	key TEXT PRIMARY KEY NOT NULL,
	value TEXT NOT NULL
)`

	schemaCreateIndexes = `
CREATE INDEX IF NOT EXISTS idx_nodes_file ON nodes(file);
CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(node_type);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(edge_type)`

	nodeColumns = "id, name, node_type, kind, subtype, file, start_line, end_line, text, hash, metadata_json"
	edgeColumns = "source, target, edge_type, ref_line, ident, version_spec, is_dev_dependency"

	crossRefSchema = `
CREATE TABLE IF NOT EXISTS cross_refs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	edge_type TEXT NOT NULL,
	source_partition TEXT NOT NULL,
	target_partition TEXT NOT NULL,
	ref_line INTEGER,
	ident TEXT,
	version_spec TEXT,
	is_dev_dependency INTEGER,
	UNIQUE(source, target, edge_type, ref_line)
);
CREATE INDEX IF NOT EXISTS idx_cross_refs_source ON cross_refs(source);
CREATE INDEX IF NOT EXISTS idx_cross_refs_target ON cross_refs(target);
CREATE INDEX IF NOT EXISTS idx_cross_refs_source_partition ON cross_refs(source_partition);
CREATE INDEX IF NOT EXISTS idx_cross_refs_target_partition ON cross_refs(target_partition)`
)
