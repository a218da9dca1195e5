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
	"strings"
	"testing"

	"artifactgraph.dev/collector/artifact"
)

func node(coords string) *Node {
	a, err := artifact.ParseCoords(coords)
	if err != nil {
		panic(err)
	}
	d := artifact.Dependency{Artifact: a}
	return &Node{Dependency: &d, Artifact: a}
}

func TestWalkVisitsSharedNodesOnce(t *testing.T) {
	root := &Node{}
	shared := node("g:shared:1")
	a, b := node("g:a:1"), node("g:b:1")
	a.Children = []*Node{shared}
	b.Children = []*Node{shared}
	root.Children = []*Node{a, b}

	var visits int
	root.Walk(func(n *Node) bool {
		if n == shared {
			visits++
		}
		return true
	})
	if visits != 1 {
		t.Errorf("shared node visited %d times, want 1", visits)
	}
}

func TestCopyOnWriteChildren(t *testing.T) {
	a, b := node("g:a:1"), node("g:b:1")
	c1, c2 := node("g:c1:1"), node("g:c2:1")
	a.SetChildren([]*Node{c1})
	b.ShareChildren(a)

	b.AppendChild(c2)
	if len(a.Children) != 1 {
		t.Errorf("append through shared list leaked into sharer: %d children", len(a.Children))
	}
	if len(b.Children) != 2 {
		t.Errorf("append lost: %d children", len(b.Children))
	}

	a2, b2 := node("g:a:2"), node("g:b:2")
	a2.SetChildren([]*Node{c1, c2})
	b2.ShareChildren(a2)
	b2.RemoveChild(c1)
	if len(a2.Children) != 2 {
		t.Errorf("remove through shared list leaked into sharer: %d children", len(a2.Children))
	}
	if len(b2.Children) != 1 || b2.Children[0] != c2 {
		t.Errorf("remove failed: %v", b2.Children)
	}
}

func TestCloneShallow(t *testing.T) {
	n := node("g:a:1")
	n.SetChildren([]*Node{node("g:c:1")})
	n.SetData("k", "v")

	c := n.CloneShallow()
	if len(c.Children) != 1 || c.Children[0] != n.Children[0] {
		t.Error("clone does not share children")
	}
	c.SetData("k", "w")
	if v, _ := n.GetData("k"); v != "v" {
		t.Errorf("clone data mutation leaked: %v", v)
	}
	c.AppendChild(node("g:d:1"))
	if len(n.Children) != 1 {
		t.Error("clone child mutation leaked")
	}
}

func TestString(t *testing.T) {
	root := &Node{}
	lib := node("g:lib:1")
	util := node("g:util:2")
	lib.Children = []*Node{util}
	root.Children = []*Node{lib}

	s := root.String()
	for _, want := range []string{"(root)", "g:lib:jar:1", "g:util:jar:2", "└─"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
}

func TestStringSharedLabels(t *testing.T) {
	root := &Node{}
	shared := node("g:shared:1")
	a, b := node("g:a:1"), node("g:b:1")
	a.Children = []*Node{shared}
	b.Children = []*Node{shared}
	root.Children = []*Node{a, b}

	s := root.String()
	if !strings.Contains(s, "1: ") || !strings.Contains(s, "$1") {
		t.Errorf("String() should label shared nodes:\n%s", s)
	}
}

func TestEqual(t *testing.T) {
	build := func() *Node {
		root := &Node{}
		lib := node("g:lib:1")
		lib.Children = []*Node{node("g:util:2")}
		root.Children = []*Node{lib}
		return root
	}
	a, b := build(), build()
	if !a.Equal(b) {
		t.Error("structurally identical graphs are not Equal")
	}
	b.Children[0].Children[0].Artifact.Version = "3"
	if a.Equal(b) {
		t.Error("graphs with different versions are Equal")
	}
}

func TestCycleString(t *testing.T) {
	a, _ := artifact.ParseCoords("g:a:1")
	b, _ := artifact.ParseCoords("g:b:1")
	c := Cycle{Path: []artifact.Artifact{a, b, a}}
	want := "g:a:jar -> g:b:jar -> g:a:jar"
	if c.String() != want {
		t.Errorf("Cycle.String() = %q, want %q", c.String(), want)
	}
}
