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

package merkle

import (
	"os"
	"path/filepath"
	"sort"
)

// Tree walks a repository root and builds a Snapshot whose root hash
// mirrors the filesystem tree, per spec.md §4.3: each directory's hash
// folds in its children's (name, hash) pairs, so the root hash changes
// iff any tracked file's content changes.
type Tree struct {
	filter *ExclusionFilter
}

// NewTree returns a Tree that hashes every file not excluded by filter.
func NewTree(filter *ExclusionFilter) *Tree {
	return &Tree{filter: filter}
}

// Build walks root and returns a Snapshot. Unreadable files are recorded
// in the returned ChangeSet-shaped Unreadable list by the caller of
// Diff, not here; Build itself simply omits them from Files and returns
// their paths as its second return value so sync() can report them.
func (t *Tree) Build(root string) (Snapshot, []string, error) {
	files := make(map[string]Hash)
	var unreadable []string

	dirChildren := make(map[string]map[string]Hash)
	var walkErr error

	err := filepath.Walk(root, func(fsPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fsPath == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, fsPath)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if t.filter.Excluded(rel + "/") {
				return filepath.SkipDir
			}
			dirChildren[rel] = make(map[string]Hash)
			return nil
		}

		if t.filter.Excluded(rel) {
			return nil
		}

		content, readErr := os.ReadFile(fsPath)
		if readErr != nil {
			unreadable = append(unreadable, rel)
			return nil
		}
		hash := HashBytes(content)
		files[rel] = hash

		parent := filepath.ToSlash(filepath.Dir(rel))
		if parent == "." {
			parent = ""
		}
		if dirChildren[parent] == nil {
			dirChildren[parent] = make(map[string]Hash)
		}
		dirChildren[parent][filepath.Base(rel)] = hash
		return nil
	})
	if err != nil {
		walkErr = err
	}
	if walkErr != nil {
		return Snapshot{}, nil, walkErr
	}

	// Fold directory hashes bottom-up so each directory's hash includes
	// its subdirectories' hashes, not just its direct files.
	dirs := make([]string, 0, len(dirChildren))
	for d := range dirChildren {
		dirs = append(dirs, d)
	}
	depth := func(d string) int {
		if d == "" {
			return 0
		}
		n := 1
		for _, c := range d {
			if c == '/' {
				n++
			}
		}
		return n
	}
	sort.Slice(dirs, func(i, j int) bool { return depth(dirs[i]) > depth(dirs[j]) })

	dirHashes := make(map[string]Hash)
	for _, d := range dirs {
		dirHashes[d] = DirHash(dirChildren[d])
		parent := filepath.ToSlash(filepath.Dir(d))
		if parent == "." || parent == d {
			parent = ""
		}
		if d == "" {
			continue
		}
		if dirChildren[parent] == nil {
			dirChildren[parent] = make(map[string]Hash)
		}
		dirChildren[parent][filepath.Base(d)] = dirHashes[d]
	}

	rootHash := DirHash(dirChildren[""])

	sort.Strings(unreadable)
	return Snapshot{
		HashAlgo: HashAlgoSHA256,
		RootHash: rootHash,
		Files:    files,
	}, unreadable, nil
}
