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
	"testing"

	"artifactgraph.dev/collector/artifact"
	"artifactgraph.dev/collector/graph"
	"artifactgraph.dev/collector/internal/graphtest"
	"artifactgraph.dev/collector/version"
)

func TestAliasesJoinConflictGroups(t *testing.T) {
	// new:new:2 declares it stands in for old:old, so the node collected
	// under the old identity joins its conflict group and adopts the
	// nearest version.
	u := graphtest.NewUniverse()
	u.Add("app:app:1", graphtest.Dep("new:new:2"), graphtest.Dep("lib:lib:1"))
	u.Add("lib:lib:1", graphtest.Dep("old:old:1"))
	u.Add("old:old:1")
	u.Add("new:new:2")
	u.Alias("new:new:2", "old:old:2")

	res := collectRoot(t, u, NewSession(), "app:app:1")

	direct := childByArtifact(res.Root, "new")
	transitive := childByArtifact(childByArtifact(res.Root, "lib"), "old")
	if direct == nil || transitive == nil {
		t.Fatal("missing nodes")
	}
	if transitive.Artifact.Version != "2" {
		t.Errorf("aliased node resolved to %s, want the nearest declaration's 2",
			transitive.Artifact.Version)
	}
	if direct.Artifact.Version != "2" {
		t.Errorf("direct node resolved to %s, want 2", direct.Artifact.Version)
	}
}

func TestSubtreeDeduplication(t *testing.T) {
	// Two independent parents of identical subtrees end up sharing one
	// child list.
	u := graphtest.NewUniverse()
	u.Add("app:app:1", graphtest.Dep("a:a:1"), graphtest.Dep("b:b:1"))
	u.Add("a:a:1", graphtest.Dep("shared:shared:1"))
	u.Add("b:b:1", graphtest.Dep("shared:shared:1"))
	u.Add("shared:shared:1", graphtest.Dep("leaf:leaf:1"))
	u.Add("leaf:leaf:1")

	res := collectRoot(t, u, NewSession(), "app:app:1")
	checkInvariants(t, res)

	sharedA := childByArtifact(childByArtifact(res.Root, "a"), "shared")
	sharedB := childByArtifact(childByArtifact(res.Root, "b"), "shared")
	if sharedA == nil || sharedB == nil {
		t.Fatal("missing shared nodes")
	}
	if len(sharedA.Children) != 1 || len(sharedB.Children) != 1 {
		t.Fatal("shared subtrees lost children")
	}
	if sharedA.Children[0] != sharedB.Children[0] {
		t.Error("identical subtrees were not shared")
	}

	// Mutating one shared child list must not affect the other parent.
	extra := &graph.Node{Artifact: graphtest.MustParse("extra:extra:1")}
	sharedA.AppendChild(extra)
	if len(sharedB.Children) != 1 {
		t.Error("copy-on-write violated after deduplication")
	}
}

func TestExclusionsApplyPerPath(t *testing.T) {
	// Both a and b depend on lib, but only a excludes lib's child. The
	// subtree below b must keep it.
	u := graphtest.NewUniverse()
	u.Add("app:app:1", graphtest.Dep("a:a:1"), graphtest.Dep("b:b:1"))
	u.Add("a:a:1", graphtest.Dep("lib:lib:1").WithExclusions([]artifact.Exclusion{graphtest.Exclude("k:*")}))
	u.Add("b:b:1", graphtest.Dep("lib:lib:1"))
	u.Add("lib:lib:1", graphtest.Dep("k:k:1"))
	u.Add("k:k:1")

	res := collectRoot(t, u, NewSession(), "app:app:1")
	checkInvariants(t, res)

	libViaA := childByArtifact(childByArtifact(res.Root, "a"), "lib")
	libViaB := childByArtifact(childByArtifact(res.Root, "b"), "lib")
	if libViaA == nil || libViaB == nil {
		t.Fatal("missing lib nodes")
	}
	if childByArtifact(libViaA, "k") != nil {
		t.Error("excluded k survived below a")
	}
	if childByArtifact(libViaB, "k") == nil {
		t.Error("k pruned below b, where nothing excludes it")
	}
}

func TestFinalizeCyclesSeversResidualBackEdges(t *testing.T) {
	// Build a dirty graph with a hand-made back-edge, as an external
	// producer might, and run the pipeline directly.
	mkNode := func(coords string) *graph.Node {
		d := graphtest.Dep(coords)
		con, err := version.ParseConstraint(d.Artifact.Version)
		if err != nil {
			t.Fatal(err)
		}
		return &graph.Node{
			Dependency: &d,
			Artifact:   d.Artifact,
			Constraint: con,
			Version:    con.Recommended(),
		}
	}
	a := mkNode("g:a:1")
	b := mkNode("g:b:1")
	a.SetChildren([]*graph.Node{b})
	b.SetChildren([]*graph.Node{a})

	res := &CollectResult{Root: a}
	if err := transformGraph(NewSession(), res); err != nil {
		t.Fatal(err)
	}
	if len(res.Cycles) != 1 {
		t.Fatalf("got %d cycles, want 1", len(res.Cycles))
	}
	if len(b.Children) != 0 {
		t.Errorf("back-edge survived: %v", b.Children)
	}
}
