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
	"strconv"
	"strings"

	"artifactgraph.dev/collector/artifact"
	"artifactgraph.dev/collector/graph"
	"artifactgraph.dev/collector/version"
)

// transformContext is the per-pass state shared by the pipeline stages.
type transformContext struct {
	session *Session
	result  *CollectResult

	// group assigns each node its conflict group, members lists each
	// group's nodes in discovery order.
	group   map[*graph.Node]int
	members map[int][]*graph.Node
	// order is the pre-order discovery index, depth the minimal distance
	// from the root. Both drive nearest-wins selection.
	order map[*graph.Node]int
	depth map[*graph.Node]int
	// path keeps one representative root path per node, for error
	// reporting.
	path map[*graph.Node][]artifact.Artifact

	// Data is open scratch space for additional stages.
	Data map[string]any
}

// transformGraph rewrites the dirty graph in place: conflict groups are
// identified, one version, scope and optional flag is chosen per group,
// exclusions prune subtrees, remaining cycles are severed and identical
// subtrees are shared.
func transformGraph(session *Session, result *CollectResult) error {
	if result.Root == nil {
		return nil
	}
	tc := &transformContext{
		session: session,
		result:  result,
		Data:    make(map[string]any),
	}
	stages := []func(*transformContext) error{
		identifyConflictGroups,
		selectVersions,
		selectScopes,
		applyExclusions,
		finalizeCycles,
		dedupeSubtrees,
	}
	for _, stage := range stages {
		if err := stage(tc); err != nil {
			return err
		}
	}
	return nil
}

// identifyConflictGroups groups nodes by conflict key, folding aliases
// into the declaring node's group.
func identifyConflictGroups(tc *transformContext) error {
	root := tc.result.Root
	tc.group = make(map[*graph.Node]int)
	tc.members = make(map[int][]*graph.Node)
	tc.order = make(map[*graph.Node]int)
	tc.depth = make(map[*graph.Node]int)
	tc.path = make(map[*graph.Node][]artifact.Artifact)

	// Union-find over conflict keys so aliases merge groups.
	parent := make(map[artifact.Key]artifact.Key)
	var find func(k artifact.Key) artifact.Key
	find = func(k artifact.Key) artifact.Key {
		p, ok := parent[k]
		if !ok {
			parent[k] = k
			return k
		}
		if p == k {
			return k
		}
		r := find(p)
		parent[k] = r
		return r
	}
	union := func(a, b artifact.Key) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	var nodes []*graph.Node
	root.WalkPath(func(path []*graph.Node, n *graph.Node) bool {
		if _, seen := tc.order[n]; seen {
			return false
		}
		tc.order[n] = len(nodes)
		nodes = append(nodes, n)
		as := make([]artifact.Artifact, 0, len(path)+1)
		for _, p := range path {
			as = append(as, p.Artifact)
		}
		tc.path[n] = append(as, n.Artifact)
		key := n.Key()
		find(key)
		for _, alias := range n.Aliases {
			union(key, alias.Key())
		}
		return true
	})

	// Depth is the minimal distance from the root, found breadth-first;
	// pre-order depth would overstate nodes first reached through a deep
	// shared subtree.
	tc.depth[root] = 0
	queue := []*graph.Node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, c := range n.Children {
			if _, ok := tc.depth[c]; ok {
				continue
			}
			tc.depth[c] = tc.depth[n] + 1
			queue = append(queue, c)
		}
	}

	ids := make(map[artifact.Key]int)
	for _, n := range nodes {
		if n.Dependency == nil {
			// A bare label root takes part in no conflict.
			continue
		}
		rep := find(n.Key())
		id, ok := ids[rep]
		if !ok {
			id = len(ids)
			ids[rep] = id
		}
		tc.group[n] = id
		tc.members[id] = append(tc.members[id], n)
	}
	return nil
}

// selectVersions picks the effective version of every conflict group and
// applies it to each member.
func selectVersions(tc *transformContext) error {
	for _, id := range sortedGroupIDs(tc.members) {
		members := tc.members[id]
		combined := members[0].Constraint
		for _, n := range members[1:] {
			combined = combined.Intersect(n.Constraint)
		}
		if combined.IsEmpty() {
			err := &UnsolvableVersionConflictError{Key: members[0].Key()}
			for _, n := range members {
				err.Paths = append(err.Paths, tc.path[n])
				err.Constraints = append(err.Constraints, n.Constraint.String())
			}
			return err
		}

		winner := nearestMember(tc, members)
		selected := winner.Version
		if combined.IsRange() {
			if selected == nil || !combined.Contains(selected) {
				selected = highestAvailable(members, combined)
			}
			if selected == nil {
				err := &UnsolvableVersionConflictError{Key: members[0].Key()}
				for _, n := range members {
					err.Paths = append(err.Paths, tc.path[n])
					err.Constraints = append(err.Constraints, n.Constraint.String())
				}
				return err
			}
		} else if selected == nil {
			selected = combined.Recommended()
		}

		// The carrier is the member whose subtree was collected at the
		// selected version; members rewritten from another version adopt
		// its child list, since their own children describe a version
		// that lost.
		var carrier *graph.Node
		for _, n := range members {
			if n.Version != nil && n.Version.Compare(selected) == 0 {
				carrier = n
				break
			}
		}
		for _, n := range members {
			rewritten := n.Version == nil || n.Version.Compare(selected) != 0
			prem := n.PremanagedVersion
			if prem == "" {
				prem = n.Artifact.Version
			}
			n.Version = selected
			n.Artifact = n.Artifact.WithVersion(selected.String())
			if n.Dependency != nil {
				dep := n.Dependency.WithVersion(selected.String())
				n.Dependency = &dep
			}
			if prem != selected.String() {
				n.Managed |= graph.ManagedVersion
				if n.PremanagedVersion == "" {
					n.PremanagedVersion = prem
				}
			}
			if rewritten && n != tc.result.Root {
				if carrier != nil {
					n.ShareChildren(carrier)
				} else {
					n.SetChildren(nil)
				}
			}
		}
	}
	return nil
}

// nearestMember returns the group member closest to the root, breaking
// depth ties by discovery order.
func nearestMember(tc *transformContext, members []*graph.Node) *graph.Node {
	best := members[0]
	for _, n := range members[1:] {
		if tc.depth[n] < tc.depth[best] ||
			(tc.depth[n] == tc.depth[best] && tc.order[n] < tc.order[best]) {
			best = n
		}
	}
	return best
}

// highestAvailable returns the greatest version inside the constraint
// that any member's range expansion advertised, or nil.
func highestAvailable(members []*graph.Node, combined version.Constraint) *version.Version {
	var best *version.Version
	for _, n := range members {
		v, ok := n.GetData(DataAvailableVersions)
		if !ok {
			continue
		}
		for _, candidate := range v.([]*version.Version) {
			if !combined.Contains(candidate) {
				continue
			}
			if best == nil || candidate.Compare(best) > 0 {
				best = candidate
			}
		}
	}
	return best
}

// selectScopes computes the effective scope and optional flag of every
// conflict group. Both are group-wide, not per path: the strongest scope
// by the session's priority table wins, and mandatory beats optional.
func selectScopes(tc *transformContext) error {
	priorities := tc.session.Scopes
	if priorities == nil {
		priorities = DefaultScopePriorities()
	}
	for _, id := range sortedGroupIDs(tc.members) {
		members := tc.members[id]
		var (
			scope    string
			scopeSet bool
			optional = true
		)
		for _, n := range members {
			if n.Dependency == nil {
				continue
			}
			s := n.Dependency.Scope
			if s == "" {
				s = ScopeCompile
			}
			if !scopeSet || priorities[s] > priorities[scope] {
				scope, scopeSet = s, true
			}
			optional = optional && n.Dependency.Optional
		}
		if !scopeSet {
			continue
		}
		for _, n := range members {
			if n.Dependency == nil || n == tc.result.Root {
				continue
			}
			dep := *n.Dependency
			cur := dep.Scope
			if cur == "" {
				cur = ScopeCompile
			}
			changed := false
			if cur != scope {
				dep = dep.WithScope(scope)
				changed = true
			}
			if dep.Optional != optional {
				dep = dep.WithOptional(optional)
				changed = true
			}
			if changed {
				n.Dependency = &dep
			}
		}
	}
	return nil
}

// applyExclusions prunes children matched by any exclusion inherited from
// their ancestors' dependencies.
func applyExclusions(tc *transformContext) error {
	var walk func(n *graph.Node, inherited []artifact.Exclusion, path map[*graph.Node]bool)
	walk = func(n *graph.Node, inherited []artifact.Exclusion, path map[*graph.Node]bool) {
		if path[n] {
			return
		}
		path[n] = true
		defer delete(path, n)

		for _, c := range append([]*graph.Node(nil), n.Children...) {
			excluded := false
			for _, e := range inherited {
				if e.Matches(c.Artifact) {
					excluded = true
					break
				}
			}
			if excluded {
				n.RemoveChild(c)
				continue
			}
			childEx := inherited
			if c.Dependency != nil && len(c.Dependency.Exclusions) > 0 {
				childEx = artifact.MergeExclusions(inherited, c.Dependency.Exclusions)
			}
			walk(c, childEx, path)
		}
	}
	root := tc.result.Root
	var rootEx []artifact.Exclusion
	if root.Dependency != nil {
		rootEx = root.Dependency.Exclusions
	}
	walk(root, rootEx, make(map[*graph.Node]bool))
	return nil
}

// finalizeCycles severs any back-edge still present after selection and
// records the cycle, deepest edge first.
func finalizeCycles(tc *transformContext) error {
	var walk func(n *graph.Node, path []*graph.Node, onPath map[*graph.Node]bool)
	walk = func(n *graph.Node, path []*graph.Node, onPath map[*graph.Node]bool) {
		onPath[n] = true
		path = append(path, n)
		for _, c := range append([]*graph.Node(nil), n.Children...) {
			if onPath[c] {
				// A back-edge: sever it and record the cycle.
				var as []artifact.Artifact
				start := 0
				for i, p := range path {
					if p == c {
						start = i
						break
					}
				}
				for _, p := range path[start:] {
					as = append(as, p.Artifact)
				}
				as = append(as, c.Artifact)
				cycle := graph.Cycle{Path: as}
				known := false
				for _, k := range tc.result.Cycles {
					if k.Equal(cycle) {
						known = true
						break
					}
				}
				if !known {
					tc.result.Cycles = append(tc.result.Cycles, cycle)
				}
				n.RemoveChild(c)
				continue
			}
			walk(c, path, onPath)
		}
		delete(onPath, n)
	}
	walk(tc.result.Root, nil, make(map[*graph.Node]bool))
	return nil
}

// dedupeSubtrees shares the child lists of nodes whose effective
// signature and child signatures agree. Later mutators must copy on
// write, which the node mutators do.
func dedupeSubtrees(tc *transformContext) error {
	sigs := make(map[*graph.Node]string)
	firstBySig := make(map[string]*graph.Node)
	var sig func(n *graph.Node) string
	sig = func(n *graph.Node) string {
		if s, ok := sigs[n]; ok {
			return s
		}
		// Signatures are memoized per node, so shared nodes are computed
		// once; the graph is acyclic by now, so the recursion ends.
		var b strings.Builder
		b.WriteString(strconv.Itoa(tc.group[n]))
		b.WriteByte('@')
		if n.Version != nil {
			b.WriteString(n.Version.String())
		}
		b.WriteByte('|')
		b.WriteString(n.Scope())
		b.WriteByte('|')
		b.WriteString(strconv.FormatBool(n.Optional()))
		if n.Dependency != nil {
			for _, e := range n.Dependency.Exclusions {
				b.WriteByte('|')
				b.WriteString(e.String())
			}
		}
		b.WriteString("[")
		for _, c := range n.Children {
			b.WriteString(sig(c))
			b.WriteByte(',')
		}
		b.WriteString("]")
		s := b.String()
		sigs[n] = s
		return s
	}
	tc.result.Root.Walk(func(n *graph.Node) bool {
		s := sig(n)
		if first, ok := firstBySig[s]; ok && first != n && len(n.Children) > 0 {
			n.ShareChildren(first)
		} else if !ok {
			firstBySig[s] = n
		}
		return true
	})
	return nil
}

func sortedGroupIDs(members map[int][]*graph.Node) []int {
	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
