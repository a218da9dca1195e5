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

package graph

import (
	"fmt"
	"strings"

	"artifactgraph.dev/collector/artifact"
)

// String produces a text rendering of the tree below the node. Nodes with
// several parents are labeled on first encounter and referenced by label
// afterwards, so shared subtrees and back-edges remain visible.
func (n *Node) String() string {
	// Count dependents to decide which nodes need labels.
	dependents := make(map[*Node]int)
	n.Walk(func(node *Node) bool {
		for _, c := range node.Children {
			dependents[c]++
		}
		return true
	})
	// The starting node is reached once from outside, so a back-edge to
	// it gets it a label like any other node with several parents.
	dependents[n]++

	var (
		b      strings.Builder
		labels = make(map[*Node]int)
		seen   = make(map[*Node]bool)
	)
	var walk func(node *Node, prefix1, prefix2 string)
	walk = func(node *Node, prefix1, prefix2 string) {
		b.WriteString(prefix1)
		if seen[node] {
			fmt.Fprintf(&b, "$%d\n", labels[node])
			return
		}
		seen[node] = true
		if dependents[node] > 1 {
			labels[node] = len(labels) + 1
			fmt.Fprintf(&b, "%d: ", labels[node])
		}
		b.WriteString(nodeLine(node))
		b.WriteByte('\n')
		for i, c := range node.Children {
			p1, p2 := "├─ ", "│  "
			if i == len(node.Children)-1 {
				p1, p2 = "└─ ", "   "
			}
			walk(c, prefix2+p1, prefix2+p2)
		}
	}
	walk(n, "", "")
	return b.String()
}

func nodeLine(n *Node) string {
	var b strings.Builder
	if n.Dependency == nil {
		if n.Artifact.Equal(artifact.Artifact{}) {
			return "(root)"
		}
		b.WriteString(n.Artifact.String())
		return b.String()
	}
	b.WriteString(n.Artifact.String())
	if s := n.Scope(); s != "" {
		b.WriteString(" " + s)
	}
	if n.Optional() {
		b.WriteString(" optional")
	}
	if n.Managed != 0 {
		var ms []string
		for _, m := range []struct {
			bit  ManagedBits
			name string
		}{
			{ManagedVersion, "version"},
			{ManagedScope, "scope"},
			{ManagedOptional, "optional"},
			{ManagedProperties, "properties"},
			{ManagedExclusions, "exclusions"},
		} {
			if n.Managed&m.bit != 0 {
				ms = append(ms, m.name)
			}
		}
		b.WriteString(" (managed: " + strings.Join(ms, ",") + ")")
	}
	if len(n.Relocations) > 0 {
		ss := make([]string, len(n.Relocations))
		for i, r := range n.Relocations {
			ss[i] = r.String()
		}
		b.WriteString(" (relocated from " + strings.Join(ss, ", ") + ")")
	}
	return b.String()
}
