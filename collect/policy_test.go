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
	"artifactgraph.dev/collector/version"
)

func dep(coords string) artifact.Dependency {
	a, err := artifact.ParseCoords(coords)
	if err != nil {
		panic(err)
	}
	return artifact.Dependency{Artifact: a}
}

func TestScopeSelectorSparesDirectDependencies(t *testing.T) {
	s := DependencySelector(NewScopeSelector(ScopeTest))
	testDep := dep("g:a:1").WithScope(ScopeTest)

	// Underived and root-derived: everything passes.
	if !s.Select(testDep) {
		t.Error("underived scope selector filtered")
	}
	s = s.DeriveChild(DeriveContext{})
	if !s.Select(testDep) {
		t.Error("root-level scope selector filtered a direct dependency")
	}
	// One more level down the scope is excluded.
	s = s.DeriveChild(DeriveContext{})
	if s.Select(testDep) {
		t.Error("transitive test dependency selected")
	}
	if !s.Select(dep("g:a:1")) {
		t.Error("compile dependency filtered")
	}
	// Further derivations are the selector itself.
	if d := s.DeriveChild(DeriveContext{}); d != s {
		t.Error("saturated selector derivation is not the receiver")
	}
}

func TestOptionalSelector(t *testing.T) {
	s := DependencySelector(&OptionalSelector{})
	opt := dep("g:a:1").WithOptional(true)
	s = s.DeriveChild(DeriveContext{})
	if !s.Select(opt) {
		t.Error("direct optional dependency filtered")
	}
	s = s.DeriveChild(DeriveContext{})
	if s.Select(opt) {
		t.Error("transitive optional dependency selected")
	}
}

func TestExclusionSelectorDerivation(t *testing.T) {
	s := DependencySelector(NewExclusionSelector())
	target := dep("ex:ex:1")
	if !s.Select(target) {
		t.Error("empty exclusion selector filtered")
	}

	// Deriving through a dependency without exclusions is a no-op.
	plain := dep("lib:lib:1")
	if d := s.DeriveChild(DeriveContext{Dependency: &plain}); d != s {
		t.Error("derivation without exclusions is not the receiver")
	}

	carrier := dep("lib:lib:1").WithExclusions([]artifact.Exclusion{{GroupID: "ex"}})
	derived := s.DeriveChild(DeriveContext{Dependency: &carrier})
	if derived == s {
		t.Error("derivation with exclusions returned the receiver")
	}
	if derived.Select(target) {
		t.Error("excluded dependency selected")
	}
	if !derived.Select(plain) {
		t.Error("unexcluded dependency filtered")
	}
}

func TestSelectorIDsAreValueBased(t *testing.T) {
	a := NewScopeSelector(ScopeTest, ScopeProvided)
	b := NewScopeSelector(ScopeProvided, ScopeTest)
	if a.ID() != b.ID() {
		t.Errorf("equal-valued selectors have different IDs: %q vs %q", a.ID(), b.ID())
	}
	c := NewScopeSelector(ScopeTest)
	if a.ID() == c.ID() {
		t.Error("different-valued selectors share an ID")
	}
	if a.ID() == a.DeriveChild(DeriveContext{}).ID() {
		t.Error("derivation did not change the ID")
	}
}

func TestFatArtifactTraverser(t *testing.T) {
	tr := &FatArtifactTraverser{}
	if tr.Traverse(dep("g:a:war:1")) {
		t.Error("war artifact traversed")
	}
	if !tr.Traverse(dep("g:a:1")) {
		t.Error("jar artifact not traversed")
	}
	bundling := dep("g:a:1")
	bundling.Artifact.Properties = map[string]string{artifact.PropertyIncludesDependencies: "true"}
	if tr.Traverse(bundling) {
		t.Error("bundling artifact traversed")
	}
}

func TestClassicManagerDepths(t *testing.T) {
	mgr := DependencyManager(NewClassicManager([]artifact.Dependency{
		dep("util:util:9").WithScope(ScopeRuntime),
	}))

	// Underived: nothing is managed.
	if u := mgr.Manage(dep("util:util:2")); u != nil {
		t.Errorf("underived manager produced update %+v", u)
	}

	// One level down (the root's direct dependencies): only empty
	// attributes are filled.
	mgr = mgr.DeriveChild(DeriveContext{})
	if u := mgr.Manage(dep("util:util:2")); u == nil || u.Version != nil || u.Scope == nil {
		t.Errorf("direct-level management = %+v, want scope fill only", u)
	}

	// Two levels down: versions and scopes are overridden.
	mgr = mgr.DeriveChild(DeriveContext{})
	u := mgr.Manage(dep("util:util:2"))
	if u == nil || u.Version == nil || *u.Version != "9" {
		t.Fatalf("transitive management = %+v, want version 9", u)
	}
	if u.Scope == nil || *u.Scope != ScopeRuntime {
		t.Errorf("transitive management scope = %v, want runtime", u.Scope)
	}

	if u := mgr.Manage(dep("other:other:1")); u != nil {
		t.Errorf("unmanaged dependency got update %+v", u)
	}
}

func TestClassicManagerInheritancePrecedence(t *testing.T) {
	mgr := DependencyManager(NewClassicManager([]artifact.Dependency{dep("util:util:9")}))
	mgr = mgr.DeriveChild(DeriveContext{})
	// A deeper descriptor tries to manage the same key; the entry nearer
	// the root must win.
	mgr = mgr.DeriveChild(DeriveContext{
		ManagedDependencies: []artifact.Dependency{dep("util:util:3")},
	})
	u := mgr.Manage(dep("util:util:1"))
	if u == nil || u.Version == nil || *u.Version != "9" {
		t.Errorf("management = %+v, want inherited version 9", u)
	}
}

func TestSnapshotVersionFilter(t *testing.T) {
	vs := func(ss ...string) []*version.Version {
		out := make([]*version.Version, len(ss))
		for i, s := range ss {
			out[i] = version.MustParse(s)
		}
		return out
	}

	f := VersionFilter(&SnapshotVersionFilter{})
	f = f.DeriveChild(DeriveContext{Artifact: artifact.Artifact{Version: "1.0"}})
	got := f.Filter(VersionFilterContext{}, vs("1.0", "1.1-SNAPSHOT", "1.2"))
	if len(got) != 2 {
		t.Errorf("snapshot filter kept %d versions, want 2", len(got))
	}

	// Below a snapshot root, snapshots stay.
	f = VersionFilter(&SnapshotVersionFilter{})
	f = f.DeriveChild(DeriveContext{Artifact: artifact.Artifact{Version: "1.0-SNAPSHOT"}})
	got = f.Filter(VersionFilterContext{}, vs("1.0", "1.1-SNAPSHOT"))
	if len(got) != 2 {
		t.Errorf("snapshot filter under snapshot root kept %d versions, want 2", len(got))
	}
}

func TestHighestVersionFilter(t *testing.T) {
	f := HighestVersionFilter{}
	got := f.Filter(VersionFilterContext{}, []*version.Version{
		version.MustParse("1.0"), version.MustParse("1.5"), version.MustParse("2.0"),
	})
	if len(got) != 1 || got[0].String() != "2.0" {
		t.Errorf("highest filter = %v, want [2.0]", got)
	}
}

func TestChainedVersionFilter(t *testing.T) {
	f := NewChainedVersionFilter(&SnapshotVersionFilter{}, HighestVersionFilter{})
	derived := f.DeriveChild(DeriveContext{Artifact: artifact.Artifact{Version: "1.0"}})
	got := derived.Filter(VersionFilterContext{}, []*version.Version{
		version.MustParse("1.0"), version.MustParse("2.0-SNAPSHOT"), version.MustParse("1.5"),
	})
	if len(got) != 1 || got[0].String() != "1.5" {
		t.Errorf("chained filter = %v, want [1.5]", got)
	}
}

func TestAndCompositionsShareWhenUnchanged(t *testing.T) {
	sel := NewAndSelector(NewExclusionSelector())
	plain := dep("lib:lib:1")
	if d := sel.DeriveChild(DeriveContext{Dependency: &plain}); d != DependencySelector(sel) {
		t.Error("and-selector with unchanged members derived a new value")
	}
	tr := NewAndTraverser(&FatArtifactTraverser{})
	if d := tr.DeriveChild(DeriveContext{}); d != DependencyTraverser(tr) {
		t.Error("and-traverser with unchanged members derived a new value")
	}
}
