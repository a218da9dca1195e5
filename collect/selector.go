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
	"fmt"
	"sort"
	"strings"

	"artifactgraph.dev/collector/artifact"
)

// ScopeSelector excludes dependencies in any of the given scopes. Direct
// dependencies of the root are always kept; the exclusion starts two
// derivations down, when the selector reaches transitive dependencies.
type ScopeSelector struct {
	Excluded []string
	depth    int
}

// NewScopeSelector builds a selector excluding the given scopes, sorted
// for a stable ID.
func NewScopeSelector(excluded ...string) *ScopeSelector {
	ex := append([]string(nil), excluded...)
	sort.Strings(ex)
	return &ScopeSelector{Excluded: ex}
}

func (s *ScopeSelector) Select(dep artifact.Dependency) bool {
	if s.depth < 2 {
		return true
	}
	scope := dep.Scope
	if scope == "" {
		scope = ScopeCompile
	}
	for _, ex := range s.Excluded {
		if scope == ex {
			return false
		}
	}
	return true
}

func (s *ScopeSelector) DeriveChild(ctx DeriveContext) DependencySelector {
	if s.depth >= 2 {
		return s
	}
	return &ScopeSelector{Excluded: s.Excluded, depth: s.depth + 1}
}

func (s *ScopeSelector) ID() string {
	return fmt.Sprintf("scope(%s)@%d", strings.Join(s.Excluded, ","), s.depth)
}

// OptionalSelector excludes optional transitive dependencies. Optional
// direct dependencies of the root are kept.
type OptionalSelector struct {
	depth int
}

func (s *OptionalSelector) Select(dep artifact.Dependency) bool {
	return s.depth < 2 || !dep.Optional
}

func (s *OptionalSelector) DeriveChild(ctx DeriveContext) DependencySelector {
	if s.depth >= 2 {
		return s
	}
	return &OptionalSelector{depth: s.depth + 1}
}

func (s *OptionalSelector) ID() string {
	return fmt.Sprintf("optional@%d", s.depth)
}

// ExclusionSelector excludes dependencies matched by any exclusion
// declared on an ancestor dependency. Derivation accumulates the expanded
// node's own exclusions.
type ExclusionSelector struct {
	exclusions []artifact.Exclusion
}

// NewExclusionSelector builds a selector from an initial exclusion set.
func NewExclusionSelector(exclusions ...artifact.Exclusion) *ExclusionSelector {
	return &ExclusionSelector{exclusions: artifact.MergeExclusions(nil, exclusions)}
}

func (s *ExclusionSelector) Select(dep artifact.Dependency) bool {
	for _, e := range s.exclusions {
		if e.Matches(dep.Artifact) {
			return false
		}
	}
	return true
}

func (s *ExclusionSelector) DeriveChild(ctx DeriveContext) DependencySelector {
	if ctx.Dependency == nil || len(ctx.Dependency.Exclusions) == 0 {
		return s
	}
	merged := artifact.MergeExclusions(s.exclusions, ctx.Dependency.Exclusions)
	if len(merged) == len(s.exclusions) {
		return s
	}
	return &ExclusionSelector{exclusions: merged}
}

func (s *ExclusionSelector) ID() string {
	ss := make([]string, len(s.exclusions))
	for i, e := range s.exclusions {
		ss[i] = e.String()
	}
	return "exclusions(" + strings.Join(ss, ",") + ")"
}

// AndSelector accepts a dependency only if every member does.
type AndSelector struct {
	selectors []DependencySelector
}

// NewAndSelector composes selectors; nil members are dropped.
func NewAndSelector(selectors ...DependencySelector) *AndSelector {
	ss := make([]DependencySelector, 0, len(selectors))
	for _, s := range selectors {
		if s != nil {
			ss = append(ss, s)
		}
	}
	return &AndSelector{selectors: ss}
}

func (s *AndSelector) Select(dep artifact.Dependency) bool {
	for _, m := range s.selectors {
		if !m.Select(dep) {
			return false
		}
	}
	return true
}

func (s *AndSelector) DeriveChild(ctx DeriveContext) DependencySelector {
	derived := make([]DependencySelector, len(s.selectors))
	changed := false
	for i, m := range s.selectors {
		derived[i] = m.DeriveChild(ctx)
		changed = changed || derived[i] != m
	}
	if !changed {
		return s
	}
	return &AndSelector{selectors: derived}
}

func (s *AndSelector) ID() string {
	ids := make([]string, len(s.selectors))
	for i, m := range s.selectors {
		ids[i] = m.ID()
	}
	return "and(" + strings.Join(ids, ";") + ")"
}
