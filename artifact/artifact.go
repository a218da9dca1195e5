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
Package artifact provides the coordinate model of the collector: artifacts,
dependencies and exclusions.

All types in this package are values. Mutators return new values and never
modify the receiver, so artifacts and dependencies may be freely shared
between graph nodes and across goroutines.
*/
package artifact

import (
	"maps"
	"regexp"
	"sort"
	"strings"
)

// SnapshotVersion is the canonical suffix of a mutable version.
const SnapshotVersion = "SNAPSHOT"

// timestampedSnapshot matches the dated form of a snapshot version,
// e.g. "1.0-20240115.120000-3".
var timestampedSnapshot = regexp.MustCompile(`-(\d{8}\.\d{6})-(\d+)$`)

// Artifact is the immutable identity of a binary or resource, addressed by
// (group, artifact, extension, classifier, version).
//
// The zero value is the empty artifact. Fields are exported for construction
// convenience but must not be modified after the artifact has been handed to
// the collector; use the With* methods instead.
type Artifact struct {
	GroupID    string
	ArtifactID string
	// Extension is the file extension, "jar" if unset at parse time.
	Extension string
	// Classifier distinguishes artifacts built from the same sources,
	// such as "sources" or "javadoc". Usually empty.
	Classifier string
	Version    string
	// Properties carries free-form artifact metadata, such as the language
	// or whether the artifact bundles its own dependencies.
	Properties map[string]string
}

// Key identifies an artifact independent of its version. Two dependencies
// with equal keys compete for the same slot in a resolved graph.
type Key struct {
	GroupID    string
	ArtifactID string
	Classifier string
	Extension  string
}

func (k Key) String() string {
	s := k.GroupID + ":" + k.ArtifactID + ":" + k.Extension
	if k.Classifier != "" {
		s += ":" + k.Classifier
	}
	return s
}

// Key returns the version-independent identity of the artifact.
func (a Artifact) Key() Key {
	return Key{
		GroupID:    a.GroupID,
		ArtifactID: a.ArtifactID,
		Classifier: a.Classifier,
		Extension:  a.Extension,
	}
}

func (a Artifact) String() string {
	var b strings.Builder
	b.WriteString(a.GroupID)
	b.WriteByte(':')
	b.WriteString(a.ArtifactID)
	b.WriteByte(':')
	b.WriteString(a.Extension)
	if a.Classifier != "" {
		b.WriteByte(':')
		b.WriteString(a.Classifier)
	}
	b.WriteByte(':')
	b.WriteString(a.Version)
	return b.String()
}

// Equal reports whether the two artifacts are structurally identical,
// including their properties.
func (a Artifact) Equal(b Artifact) bool {
	return a.GroupID == b.GroupID &&
		a.ArtifactID == b.ArtifactID &&
		a.Extension == b.Extension &&
		a.Classifier == b.Classifier &&
		a.Version == b.Version &&
		maps.Equal(a.Properties, b.Properties)
}

// WithVersion returns a copy of the artifact carrying the given version.
func (a Artifact) WithVersion(v string) Artifact {
	a.Version = v
	return a
}

// WithProperties returns a copy of the artifact carrying the given
// properties. The map is not copied; callers pass ownership.
func (a Artifact) WithProperties(props map[string]string) Artifact {
	a.Properties = props
	return a
}

// Property returns the named property, or def if it is absent.
func (a Artifact) Property(key, def string) string {
	if v, ok := a.Properties[key]; ok {
		return v
	}
	return def
}

// IsSnapshot reports whether the artifact's version is a snapshot, either
// canonical ("1.0-SNAPSHOT") or timestamped ("1.0-20240115.120000-3").
func (a Artifact) IsSnapshot() bool {
	return IsSnapshot(a.Version)
}

// BaseVersion returns the artifact's version with any timestamped snapshot
// collapsed back to the canonical -SNAPSHOT form.
func (a Artifact) BaseVersion() string {
	return BaseVersion(a.Version)
}

// IsSnapshot reports whether the given version string denotes a snapshot.
func IsSnapshot(v string) bool {
	return strings.HasSuffix(v, "-"+SnapshotVersion) || timestampedSnapshot.MatchString(v)
}

// BaseVersion collapses a timestamped snapshot version to its -SNAPSHOT
// form. Range literals and ordinary versions are returned unchanged.
func BaseVersion(v string) string {
	if v == "" {
		return v
	}
	// Leave range literals alone, they are constraints, not versions.
	if v[0] == '[' || v[0] == '(' {
		return v
	}
	if m := timestampedSnapshot.FindStringIndex(v); m != nil {
		return v[:m[0]] + "-" + SnapshotVersion
	}
	return v
}

// Dependency is an artifact plus the role metadata describing how a
// consumer uses it. Like Artifact it is a value; mutators return copies.
type Dependency struct {
	Artifact Artifact
	// Scope of the dependency, such as "compile" or "test". The collector
	// treats scopes as opaque strings; their relative priority is supplied
	// by the session.
	Scope    string
	Optional bool
	// Exclusions lists the artifacts that must not be collected from this
	// dependency's subtree.
	Exclusions []Exclusion
}

// Key returns the version-independent identity of the dependency's artifact.
func (d Dependency) Key() Key { return d.Artifact.Key() }

func (d Dependency) String() string {
	s := d.Artifact.String()
	if d.Scope != "" {
		s += " (" + d.Scope + ")"
	}
	if d.Optional {
		s += " (optional)"
	}
	return s
}

// Equal reports whether the two dependencies are structurally identical.
func (d Dependency) Equal(e Dependency) bool {
	if !d.Artifact.Equal(e.Artifact) || d.Scope != e.Scope || d.Optional != e.Optional {
		return false
	}
	if len(d.Exclusions) != len(e.Exclusions) {
		return false
	}
	for i := range d.Exclusions {
		if d.Exclusions[i] != e.Exclusions[i] {
			return false
		}
	}
	return true
}

// WithArtifact returns a copy of the dependency on the given artifact.
func (d Dependency) WithArtifact(a Artifact) Dependency {
	d.Artifact = a
	return d
}

// WithVersion returns a copy of the dependency on the given version.
func (d Dependency) WithVersion(v string) Dependency {
	d.Artifact = d.Artifact.WithVersion(v)
	return d
}

// WithScope returns a copy of the dependency in the given scope.
func (d Dependency) WithScope(scope string) Dependency {
	d.Scope = scope
	return d
}

// WithOptional returns a copy of the dependency with the optional flag set
// as given.
func (d Dependency) WithOptional(optional bool) Dependency {
	d.Optional = optional
	return d
}

// WithExclusions returns a copy of the dependency carrying the given
// exclusions. The slice is not copied; callers pass ownership.
func (d Dependency) WithExclusions(ex []Exclusion) Dependency {
	d.Exclusions = ex
	return d
}

// Exclusion identifies artifacts to omit from a dependency's subtree.
// An empty field matches any value.
type Exclusion struct {
	GroupID    string
	ArtifactID string
	Classifier string
	Extension  string
}

func (e Exclusion) String() string {
	f := func(s string) string {
		if s == "" {
			return "*"
		}
		return s
	}
	return f(e.GroupID) + ":" + f(e.ArtifactID) + ":" + f(e.Classifier) + ":" + f(e.Extension)
}

// Matches reports whether the exclusion applies to the given artifact.
func (e Exclusion) Matches(a Artifact) bool {
	match := func(pattern, value string) bool {
		return pattern == "" || pattern == value
	}
	return match(e.GroupID, a.GroupID) &&
		match(e.ArtifactID, a.ArtifactID) &&
		match(e.Classifier, a.Classifier) &&
		match(e.Extension, a.Extension)
}

// MergeExclusions unions the two exclusion sets, dropping duplicates. The
// result is sorted so that equal sets compare equal regardless of input
// order.
func MergeExclusions(a, b []Exclusion) []Exclusion {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[Exclusion]bool, len(a)+len(b))
	merged := make([]Exclusion, 0, len(a)+len(b))
	for _, es := range [][]Exclusion{a, b} {
		for _, e := range es {
			if seen[e] {
				continue
			}
			seen[e] = true
			merged = append(merged, e)
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].String() < merged[j].String()
	})
	return merged
}
