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
Package repository defines the collector's view of remote repositories and
the contracts of its external collaborators: the artifact descriptor reader
and the version range resolver.

The collector itself performs no transport. Implementations of the
contracts own wire formats, authentication and on-disk layout; the core
consumes descriptors and version lists and compares repositories by ID
only.
*/
package repository

import (
	"context"
	"errors"

	"artifactgraph.dev/collector/artifact"
	"artifactgraph.dev/collector/version"
)

// ErrNotFound is returned by readers and resolvers to indicate the
// requested data could not be located in any of the given repositories.
var ErrNotFound = errors.New("not found")

// Policy governs one class of artifacts (releases or snapshots) within a
// remote repository.
type Policy struct {
	Enabled bool
	// UpdateInterval and ChecksumMode are opaque to the core; they are
	// carried for the benefit of reader implementations.
	UpdateInterval string
	ChecksumMode   string
}

// RemoteRepository describes a repository that artifacts may be read from.
// The core uses only the ID, and deduplicates repositories by it.
type RemoteRepository struct {
	ID          string
	ContentType string
	URL         string

	Releases  Policy
	Snapshots Policy

	// Proxy and Auth are opaque transport settings owned by the reader.
	Proxy    string
	Auth     string
	MirrorOf []string
}

func (r RemoteRepository) String() string {
	return r.ID + " (" + r.URL + ")"
}

// MergeRepositories unions the two repository lists, keeping order and
// dropping later entries whose ID was already seen.
func MergeRepositories(first, second []RemoteRepository) []RemoteRepository {
	if len(second) == 0 {
		return first
	}
	if len(first) == 0 {
		return second
	}
	seen := make(map[string]bool, len(first)+len(second))
	merged := make([]RemoteRepository, 0, len(first)+len(second))
	for _, rs := range [][]RemoteRepository{first, second} {
		for _, r := range rs {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			merged = append(merged, r)
		}
	}
	return merged
}

// Descriptor is the declared metadata of one artifact version: its direct
// dependencies, dependency management, contributed repositories, known
// aliases and an optional relocation.
type Descriptor struct {
	Artifact artifact.Artifact
	// Relocation redirects consumers to a different artifact identity.
	// When set, the remaining fields describe the original, unmoved
	// artifact and should be ignored.
	Relocation *artifact.Artifact

	Dependencies        []artifact.Dependency
	ManagedDependencies []artifact.Dependency
	Repositories        []RemoteRepository
	Aliases             []artifact.Artifact
	Properties          map[string]string
}

// DescriptorRequest asks a reader for the descriptor of an artifact.
type DescriptorRequest struct {
	Artifact     artifact.Artifact
	Repositories []RemoteRepository
	// Context labels the operation for listeners and error messages,
	// e.g. "project" or "plugin".
	Context string
}

// DescriptorReader loads artifact descriptors.
type DescriptorReader interface {
	Read(ctx context.Context, req DescriptorRequest) (*Descriptor, error)
}

// DescriptorError wraps a failure to read a descriptor, keeping the
// requested artifact for error messages.
type DescriptorError struct {
	Artifact artifact.Artifact
	Err      error
}

func (e *DescriptorError) Error() string {
	return "reading descriptor for " + e.Artifact.String() + ": " + e.Err.Error()
}

func (e *DescriptorError) Unwrap() error { return e.Err }

// DescriptorPolicy decides how descriptor read failures are handled.
type DescriptorPolicy int

const (
	// Strict fails the surrounding collection on any read error.
	Strict DescriptorPolicy = iota
	// IgnoreMissing tolerates absent descriptors; other errors are fatal.
	IgnoreMissing
	// IgnoreErrors tolerates every read error. The offending node is kept
	// with no children.
	IgnoreErrors
)

func (p DescriptorPolicy) String() string {
	switch p {
	case Strict:
		return "strict"
	case IgnoreMissing:
		return "ignore-missing"
	case IgnoreErrors:
		return "ignore-errors"
	}
	return "unknown"
}

// Tolerates reports whether the policy allows collection to continue after
// the given read error.
func (p DescriptorPolicy) Tolerates(err error) bool {
	switch p {
	case IgnoreErrors:
		return true
	case IgnoreMissing:
		return errors.Is(err, ErrNotFound)
	}
	return false
}

// VersionRangeRequest asks a resolver to expand a version constraint
// against a repository set.
type VersionRangeRequest struct {
	Artifact     artifact.Artifact
	Constraint   version.Constraint
	Repositories []RemoteRepository
}

// VersionRangeResult is the expansion of a constraint: the matching
// concrete versions in ascending order and, per version string, the
// repository the version was discovered in.
type VersionRangeResult struct {
	Versions     []*version.Version
	Repositories map[string]RemoteRepository
}

// Highest returns the greatest version of the result, or nil if there is
// none.
func (r *VersionRangeResult) Highest() *version.Version {
	if len(r.Versions) == 0 {
		return nil
	}
	return r.Versions[len(r.Versions)-1]
}

// VersionRangeResolver expands version constraints into concrete versions.
type VersionRangeResolver interface {
	Resolve(ctx context.Context, req VersionRangeRequest) (*VersionRangeResult, error)
}

// RangeError wraps a failure to expand a version range.
type RangeError struct {
	Artifact   artifact.Artifact
	Constraint string
	Err        error
}

func (e *RangeError) Error() string {
	return "resolving range " + e.Constraint + " for " + e.Artifact.Key().String() + ": " + e.Err.Error()
}

func (e *RangeError) Unwrap() error { return e.Err }
