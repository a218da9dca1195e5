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
	"strings"

	"artifactgraph.dev/collector/artifact"
	"artifactgraph.dev/collector/version"
)

// HighestVersionFilter keeps only the greatest candidate of a range
// expansion. The list arrives in ascending order.
type HighestVersionFilter struct{}

func (HighestVersionFilter) Filter(ctx VersionFilterContext, versions []*version.Version) []*version.Version {
	if len(versions) <= 1 {
		return versions
	}
	return versions[len(versions)-1:]
}

func (HighestVersionFilter) DeriveChild(ctx DeriveContext) VersionFilter {
	return HighestVersionFilter{}
}

func (HighestVersionFilter) ID() string { return "highest" }

// SnapshotVersionFilter deletes snapshot candidates from range
// expansions, unless the collection was rooted at a snapshot artifact; a
// snapshot build may legitimately float on other snapshots.
type SnapshotVersionFilter struct {
	rootIsSnapshot bool
	derived        bool
}

func (f *SnapshotVersionFilter) Filter(ctx VersionFilterContext, versions []*version.Version) []*version.Version {
	if f.rootIsSnapshot {
		return versions
	}
	kept := versions[:0]
	for _, v := range versions {
		if artifact.IsSnapshot(v.String()) {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

func (f *SnapshotVersionFilter) DeriveChild(ctx DeriveContext) VersionFilter {
	if f.derived {
		return f
	}
	return &SnapshotVersionFilter{
		rootIsSnapshot: artifact.IsSnapshot(ctx.Artifact.Version),
		derived:        true,
	}
}

func (f *SnapshotVersionFilter) ID() string {
	if f.rootIsSnapshot {
		return "snapshot(root-snapshot)"
	}
	return "snapshot"
}

// ChainedVersionFilter applies filters in order, stopping early once the
// list is empty.
type ChainedVersionFilter struct {
	filters []VersionFilter
}

// NewChainedVersionFilter composes filters; nil members are dropped.
func NewChainedVersionFilter(filters ...VersionFilter) *ChainedVersionFilter {
	fs := make([]VersionFilter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			fs = append(fs, f)
		}
	}
	return &ChainedVersionFilter{filters: fs}
}

func (c *ChainedVersionFilter) Filter(ctx VersionFilterContext, versions []*version.Version) []*version.Version {
	for _, f := range c.filters {
		if len(versions) == 0 {
			break
		}
		versions = f.Filter(ctx, versions)
	}
	return versions
}

func (c *ChainedVersionFilter) DeriveChild(ctx DeriveContext) VersionFilter {
	derived := make([]VersionFilter, len(c.filters))
	changed := false
	for i, f := range c.filters {
		derived[i] = f.DeriveChild(ctx)
		changed = changed || derived[i] != f
	}
	if !changed {
		return c
	}
	return &ChainedVersionFilter{filters: derived}
}

func (c *ChainedVersionFilter) ID() string {
	ids := make([]string, len(c.filters))
	for i, f := range c.filters {
		ids[i] = f.ID()
	}
	return "chain(" + strings.Join(ids, ";") + ")"
}
