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
	"artifactgraph.dev/collector/artifact"
	"artifactgraph.dev/collector/repository"
	"artifactgraph.dev/collector/version"
)

// DeriveContext carries the state a policy may consult when deriving its
// instance for the next depth level: the node being expanded and the
// dependency management its descriptor declares.
type DeriveContext struct {
	Session             *Session
	Artifact            artifact.Artifact
	Dependency          *artifact.Dependency
	ManagedDependencies []artifact.Dependency
}

// DependencySelector decides whether a dependency is added to the graph at
// all. Implementations are stateless values; DeriveChild returns the
// selector to apply one level deeper and should return the receiver when
// nothing changes, to maximize structural sharing.
//
// ID must be a stable fingerprint of the implementation and its value
// state. The sub-tree cache keys on it, so two selectors with equal IDs
// must behave identically.
type DependencySelector interface {
	Select(dep artifact.Dependency) bool
	DeriveChild(ctx DeriveContext) DependencySelector
	ID() string
}

// DependencyTraverser decides whether an accepted dependency's own
// dependencies are expanded. A node may be kept in the graph but not
// traversed. The ID contract matches DependencySelector's.
type DependencyTraverser interface {
	Traverse(dep artifact.Dependency) bool
	DeriveChild(ctx DeriveContext) DependencyTraverser
	ID() string
}

// ManagementUpdate describes the attribute overrides dependency management
// imposes on one dependency. Nil fields leave the attribute untouched.
type ManagementUpdate struct {
	Version    *string
	Scope      *string
	Optional   *bool
	Exclusions []artifact.Exclusion
	Properties map[string]string
}

// DependencyManager applies dependency management to dependencies before
// they are selected. Manage returns nil when the dependency is unmanaged.
// The ID contract matches DependencySelector's.
type DependencyManager interface {
	Manage(dep artifact.Dependency) *ManagementUpdate
	DeriveChild(ctx DeriveContext) DependencyManager
	ID() string
}

// VersionFilterContext is handed to version filters together with the
// candidate list.
type VersionFilterContext struct {
	Session      *Session
	Dependency   artifact.Dependency
	Repositories map[string]repository.RemoteRepository
}

// VersionFilter thins the candidate list produced by range expansion. It
// is invoked only when a dependency's constraint is a range. Filters
// delete candidates and must not reorder or invent them; if a filter
// leaves the list empty, the whole collection fails. The ID contract
// matches DependencySelector's.
type VersionFilter interface {
	Filter(ctx VersionFilterContext, versions []*version.Version) []*version.Version
	DeriveChild(ctx DeriveContext) VersionFilter
	ID() string
}
