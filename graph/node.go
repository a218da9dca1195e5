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

/*
Package graph holds the dependency graph produced by collection.

Nodes are mutable while the collector and the transformers own them and
must be treated as read-only once a result has been handed to the caller.
Child lists may be shared between parents for structural sharing; mutators
that respect this use copy-on-write.
*/
package graph

import (
	"artifactgraph.dev/collector/artifact"
	"artifactgraph.dev/collector/repository"
	"artifactgraph.dev/collector/version"
)

// ManagedBits flags which attributes of a node's dependency were
// overridden by dependency management.
type ManagedBits uint8

const (
	ManagedVersion ManagedBits = 1 << iota
	ManagedScope
	ManagedOptional
	ManagedProperties
	ManagedExclusions
)

// Node is one vertex of the dependency graph.
type Node struct {
	// Dependency is nil only on a root that carries a bare label.
	Dependency *artifact.Dependency
	// Artifact is the node's artifact; for label-only roots it is the
	// label itself.
	Artifact artifact.Artifact

	// Children, in declaration order. The slice may be shared with other
	// nodes; use the copy-on-write mutators.
	Children []*Node

	// Constraint is the version constraint as declared, Version the
	// version as selected.
	Constraint version.Constraint
	Version    *version.Version

	Managed           ManagedBits
	PremanagedVersion string
	PremanagedScope   string

	// Relocations lists the artifact identities traversed before this
	// node's artifact was reached.
	Relocations []artifact.Artifact
	// Aliases lists alternate identities this node stands in for.
	Aliases []artifact.Artifact
	// Repositories is the ordered repository list this node's artifact
	// resolves against.
	Repositories []repository.RemoteRepository

	// Data is an open side-table for transformer scratch state. Use
	// SetData and GetData; a nil map means empty.
	Data map[string]any

	childrenShared bool
}

// Key returns the conflict key of the node's artifact.
func (n *Node) Key() artifact.Key { return n.Artifact.Key() }

// Scope returns the node's dependency scope, or the empty string for a
// label-only root.
func (n *Node) Scope() string {
	if n.Dependency == nil {
		return ""
	}
	return n.Dependency.Scope
}

// Optional reports the node's optional flag.
func (n *Node) Optional() bool {
	return n.Dependency != nil && n.Dependency.Optional
}

// SetData records a scratch value on the node.
func (n *Node) SetData(key string, value any) {
	if n.Data == nil {
		n.Data = make(map[string]any)
	}
	n.Data[key] = value
}

// GetData returns the scratch value stored under key.
func (n *Node) GetData(key string) (any, bool) {
	v, ok := n.Data[key]
	return v, ok
}

// AppendChild adds a child, copying the child list first if it is shared.
func (n *Node) AppendChild(c *Node) {
	n.ensureOwnedChildren(len(n.Children) + 1)
	n.Children = append(n.Children, c)
}

// RemoveChild deletes every occurrence of c from the child list, copying
// it first if it is shared.
func (n *Node) RemoveChild(c *Node) {
	n.ensureOwnedChildren(len(n.Children))
	kept := n.Children[:0]
	for _, ch := range n.Children {
		if ch != c {
			kept = append(kept, ch)
		}
	}
	for i := len(kept); i < len(n.Children); i++ {
		n.Children[i] = nil
	}
	n.Children = kept
}

// SetChildren replaces the child list wholesale.
func (n *Node) SetChildren(cs []*Node) {
	n.Children = cs
	n.childrenShared = false
}

// ShareChildren makes the node reference another node's child list without
// copying. The next mutation through AppendChild or RemoveChild copies.
func (n *Node) ShareChildren(other *Node) {
	n.Children = other.Children
	n.childrenShared = true
	other.childrenShared = true
}

func (n *Node) ensureOwnedChildren(capacity int) {
	if !n.childrenShared {
		return
	}
	owned := make([]*Node, len(n.Children), capacity)
	copy(owned, n.Children)
	n.Children = owned
	n.childrenShared = false
}

// CloneShallow copies the node itself while sharing its child list, for
// cache hits whose parent context differs.
func (n *Node) CloneShallow() *Node {
	c := *n
	c.childrenShared = true
	n.childrenShared = true
	if n.Data != nil {
		data := make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			data[k] = v
		}
		c.Data = data
	}
	return &c
}

// Walk calls visit for every node reachable from n in depth-first
// pre-order, visiting shared nodes once. Returning false prunes the walk
// below the node.
func (n *Node) Walk(visit func(*Node) bool) {
	seen := make(map[*Node]bool)
	var walk func(*Node)
	walk = func(node *Node) {
		if seen[node] {
			return
		}
		seen[node] = true
		if !visit(node) {
			return
		}
		for _, c := range node.Children {
			walk(c)
		}
	}
	walk(n)
}

// WalkPath is like Walk but provides the path of ancestors leading to each
// node, and revisits shared nodes once per distinct path.
func (n *Node) WalkPath(visit func(path []*Node, node *Node) bool) {
	var walk func(path []*Node, node *Node)
	walk = func(path []*Node, node *Node) {
		for _, p := range path {
			if p == node {
				// A back-edge; never follow it.
				return
			}
		}
		if !visit(path, node) {
			return
		}
		path = append(path, node)
		for _, c := range node.Children {
			walk(path, c)
		}
	}
	walk(nil, n)
}

// Equal reports whether the two graphs are structurally equal: same
// artifacts, versions, scopes, flags and child order throughout.
func (n *Node) Equal(o *Node) bool {
	type pair struct{ a, b *Node }
	seen := make(map[pair]bool)
	var eq func(a, b *Node) bool
	eq = func(a, b *Node) bool {
		if a == nil || b == nil {
			return a == b
		}
		p := pair{a, b}
		if seen[p] {
			return true
		}
		seen[p] = true
		if !a.Artifact.Equal(b.Artifact) {
			return false
		}
		if (a.Dependency == nil) != (b.Dependency == nil) {
			return false
		}
		if a.Dependency != nil && !a.Dependency.Equal(*b.Dependency) {
			return false
		}
		if (a.Version == nil) != (b.Version == nil) {
			return false
		}
		if a.Version != nil && a.Version.Compare(b.Version) != 0 {
			return false
		}
		if a.Managed != b.Managed {
			return false
		}
		if len(a.Children) != len(b.Children) {
			return false
		}
		for i := range a.Children {
			if !eq(a.Children[i], b.Children[i]) {
				return false
			}
		}
		return true
	}
	return eq(n, o)
}
