// Copyright 2025 Google LLC
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

package collect

import (
	"sort"
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"

	"artifactgraph.dev/collector/artifact"
	"artifactgraph.dev/collector/graph"
	"artifactgraph.dev/collector/repository"
)

// cache is a small concurrency-safe wrapper around an LRU cache.
type cache struct {
	mu  sync.Mutex
	lru *lru.Cache
}

func newCache(maxEntries int) *cache {
	return &cache{lru: lru.New(maxEntries)}
}

func (c *cache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(lru.Key(key))
}

func (c *cache) add(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(lru.Key(key), value)
}

// Caches holds the two per-session memoization tables: descriptors by
// artifact and collected sub-trees by policy fingerprint. Collections run
// identically with or without them; they are purely an optimization.
type Caches struct {
	descriptors *cache
	subtrees    *cache
}

// NewCaches builds caches bounded to maxEntries each; zero means
// unbounded.
func NewCaches(maxEntries int) *Caches {
	return &Caches{
		descriptors: newCache(maxEntries),
		subtrees:    newCache(maxEntries),
	}
}

func (c *Caches) descriptor(key string) (*repository.Descriptor, error, bool) {
	v, ok := c.descriptors.get(key)
	if !ok {
		return nil, nil, false
	}
	e := v.(descriptorEntry)
	return e.desc, e.err, true
}

func (c *Caches) storeDescriptor(key string, desc *repository.Descriptor, err error) {
	c.descriptors.add(key, descriptorEntry{desc: desc, err: err})
}

type descriptorEntry struct {
	desc *repository.Descriptor
	err  error
}

func (c *Caches) subtree(fp string) (*graph.Node, bool) {
	v, ok := c.subtrees.get(fp)
	if !ok {
		return nil, false
	}
	return v.(*graph.Node), true
}

func (c *Caches) storeSubtree(fp string, n *graph.Node) {
	c.subtrees.add(fp, n)
}

// descriptorKey identifies a descriptor read: the artifact plus the
// repositories it may be read from.
func descriptorKey(a artifact.Artifact, repos []repository.RemoteRepository) string {
	var b strings.Builder
	b.WriteString(a.String())
	for _, r := range repos {
		b.WriteByte('|')
		b.WriteString(r.ID)
	}
	return b.String()
}

// subtreeFingerprint combines every input that can influence the shape of
// a collected sub-tree: the artifact, the repositories, the inherited
// managed dependencies (order-insensitive) and the identity of each
// active policy. Policies' value-based IDs make equal-valued policies hit
// the same entry.
func subtreeFingerprint(a artifact.Artifact, repos []repository.RemoteRepository,
	managed []artifact.Dependency, sel DependencySelector, trav DependencyTraverser,
	mgr DependencyManager, filt VersionFilter) string {
	var b strings.Builder
	b.WriteString(a.String())
	for _, r := range repos {
		b.WriteByte('|')
		b.WriteString(r.ID)
	}
	keys := make([]string, len(managed))
	for i, d := range managed {
		keys[i] = d.Key().String() + "@" + d.Artifact.Version
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("|m:")
		b.WriteString(k)
	}
	b.WriteString("|s:")
	b.WriteString(sel.ID())
	b.WriteString("|t:")
	b.WriteString(trav.ID())
	b.WriteString("|g:")
	b.WriteString(mgr.ID())
	b.WriteString("|f:")
	b.WriteString(filt.ID())
	return b.String()
}
