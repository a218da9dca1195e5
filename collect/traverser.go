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
	"strings"

	"artifactgraph.dev/collector/artifact"
)

// StaticTraverser always answers the same way.
type StaticTraverser struct {
	Traversal bool
}

func (t *StaticTraverser) Traverse(dep artifact.Dependency) bool { return t.Traversal }

func (t *StaticTraverser) DeriveChild(ctx DeriveContext) DependencyTraverser { return t }

func (t *StaticTraverser) ID() string { return fmt.Sprintf("static(%t)", t.Traversal) }

// FatArtifactTraverser skips expansion below artifacts that bundle their
// own dependencies, such as "war", "ear" and "rar" archives.
type FatArtifactTraverser struct{}

func (t *FatArtifactTraverser) Traverse(dep artifact.Dependency) bool {
	if dep.Artifact.Property(artifact.PropertyIncludesDependencies, "") == "true" {
		return false
	}
	switch dep.Artifact.Extension {
	case "war", "ear", "rar":
		return false
	}
	return true
}

func (t *FatArtifactTraverser) DeriveChild(ctx DeriveContext) DependencyTraverser { return t }

func (t *FatArtifactTraverser) ID() string { return "fat-artifact" }

// AndTraverser expands a dependency only if every member does.
type AndTraverser struct {
	traversers []DependencyTraverser
}

// NewAndTraverser composes traversers; nil members are dropped.
func NewAndTraverser(traversers ...DependencyTraverser) *AndTraverser {
	ts := make([]DependencyTraverser, 0, len(traversers))
	for _, t := range traversers {
		if t != nil {
			ts = append(ts, t)
		}
	}
	return &AndTraverser{traversers: ts}
}

func (t *AndTraverser) Traverse(dep artifact.Dependency) bool {
	for _, m := range t.traversers {
		if !m.Traverse(dep) {
			return false
		}
	}
	return true
}

func (t *AndTraverser) DeriveChild(ctx DeriveContext) DependencyTraverser {
	derived := make([]DependencyTraverser, len(t.traversers))
	changed := false
	for i, m := range t.traversers {
		derived[i] = m.DeriveChild(ctx)
		changed = changed || derived[i] != m
	}
	if !changed {
		return t
	}
	return &AndTraverser{traversers: derived}
}

func (t *AndTraverser) ID() string {
	ids := make([]string, len(t.traversers))
	for i, m := range t.traversers {
		ids[i] = m.ID()
	}
	return "and(" + strings.Join(ids, ";") + ")"
}
