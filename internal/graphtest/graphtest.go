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
Package graphtest provides an in-memory artifact universe for collector
tests: a descriptor reader and version range resolver over fixtures built
from coordinate strings.
*/
package graphtest

import (
	"context"
	"strings"
	"sync"

	"artifactgraph.dev/collector/artifact"
	"artifactgraph.dev/collector/repository"
	"artifactgraph.dev/collector/version"
)

// Universe is a fixture-backed implementation of the collector's external
// contracts. The zero value is not usable; call NewUniverse.
type Universe struct {
	mu          sync.Mutex
	descriptors map[string]*repository.Descriptor
	versions    map[artifact.Key][]string
	failures    map[string]error

	// Reads counts descriptor reads per artifact, for cache tests.
	Reads map[string]int
}

// NewUniverse creates an empty universe.
func NewUniverse() *Universe {
	return &Universe{
		descriptors: make(map[string]*repository.Descriptor),
		versions:    make(map[artifact.Key][]string),
		failures:    make(map[string]error),
		Reads:       make(map[string]int),
	}
}

// MustParse parses "group:artifact[:ext[:classifier]]:version" or panics.
func MustParse(coords string) artifact.Artifact {
	a, err := artifact.ParseCoords(coords)
	if err != nil {
		panic(err)
	}
	return a
}

// Dep builds a dependency from a coordinate string.
func Dep(coords string) artifact.Dependency {
	return artifact.Dependency{Artifact: MustParse(coords)}
}

// ScopedDep builds a dependency in the given scope.
func ScopedDep(coords, scope string) artifact.Dependency {
	return artifact.Dependency{Artifact: MustParse(coords), Scope: scope}
}

// OptionalDep builds an optional dependency.
func OptionalDep(coords string) artifact.Dependency {
	return artifact.Dependency{Artifact: MustParse(coords), Optional: true}
}

// Exclude builds an exclusion from "group:artifact", where either field
// may be "*" for any value.
func Exclude(spec string) artifact.Exclusion {
	g, a, ok := strings.Cut(spec, ":")
	if !ok {
		panic("graphtest: invalid exclusion " + spec)
	}
	wild := func(s string) string {
		if s == "*" {
			return ""
		}
		return s
	}
	return artifact.Exclusion{GroupID: wild(g), ArtifactID: wild(a)}
}

// Add registers an artifact with the given direct dependencies and makes
// its version known to the range resolver.
func (u *Universe) Add(coords string, deps ...artifact.Dependency) {
	a := MustParse(coords)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.descriptors[a.String()] = &repository.Descriptor{
		Artifact:     a,
		Dependencies: deps,
	}
	u.addVersionLocked(a)
}

// AddManaged registers an artifact with dependencies and dependency
// management.
func (u *Universe) AddManaged(coords string, deps, managed []artifact.Dependency) {
	a := MustParse(coords)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.descriptors[a.String()] = &repository.Descriptor{
		Artifact:            a,
		Dependencies:        deps,
		ManagedDependencies: managed,
	}
	u.addVersionLocked(a)
}

// Relocate registers an artifact whose descriptor redirects to another
// identity.
func (u *Universe) Relocate(from, to string) {
	a, target := MustParse(from), MustParse(to)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.descriptors[a.String()] = &repository.Descriptor{
		Artifact:   a,
		Relocation: &target,
	}
	u.addVersionLocked(a)
}

// Alias adds an alternate identity to a registered artifact.
func (u *Universe) Alias(coords, alias string) {
	a := MustParse(coords)
	u.mu.Lock()
	defer u.mu.Unlock()
	d, ok := u.descriptors[a.String()]
	if !ok {
		panic("graphtest: alias for unknown artifact " + coords)
	}
	d.Aliases = append(d.Aliases, MustParse(alias))
}

// Contribute adds a repository to a registered artifact's descriptor.
func (u *Universe) Contribute(coords string, repo repository.RemoteRepository) {
	a := MustParse(coords)
	u.mu.Lock()
	defer u.mu.Unlock()
	d, ok := u.descriptors[a.String()]
	if !ok {
		panic("graphtest: repository for unknown artifact " + coords)
	}
	d.Repositories = append(d.Repositories, repo)
}

// AddVersions advertises versions of "group:artifact" to the range
// resolver without registering descriptors for them.
func (u *Universe) AddVersions(ga string, versions ...string) {
	g, a, ok := strings.Cut(ga, ":")
	if !ok {
		panic("graphtest: invalid package " + ga)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, v := range versions {
		u.addVersionLocked(artifact.Artifact{GroupID: g, ArtifactID: a, Extension: "jar", Version: v})
	}
}

// SetProperties attaches descriptor-level properties to a registered
// artifact.
func (u *Universe) SetProperties(coords string, props map[string]string) {
	a := MustParse(coords)
	u.mu.Lock()
	defer u.mu.Unlock()
	d, ok := u.descriptors[a.String()]
	if !ok {
		panic("graphtest: properties for unknown artifact " + coords)
	}
	d.Properties = props
}

// Fail makes descriptor reads of the artifact return the given error.
func (u *Universe) Fail(coords string, err error) {
	a := MustParse(coords)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failures[a.String()] = err
}

func (u *Universe) addVersionLocked(a artifact.Artifact) {
	key := a.Key()
	for _, v := range u.versions[key] {
		if v == a.Version {
			return
		}
	}
	u.versions[key] = append(u.versions[key], a.Version)
}

// Read implements repository.DescriptorReader.
func (u *Universe) Read(ctx context.Context, req repository.DescriptorRequest) (*repository.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	key := req.Artifact.String()
	u.Reads[key]++
	if err, ok := u.failures[key]; ok {
		return nil, &repository.DescriptorError{Artifact: req.Artifact, Err: err}
	}
	d, ok := u.descriptors[key]
	if !ok {
		return nil, &repository.DescriptorError{Artifact: req.Artifact, Err: repository.ErrNotFound}
	}
	return d, nil
}

// Resolve implements repository.VersionRangeResolver, expanding the
// constraint against every version registered for the artifact's key.
func (u *Universe) Resolve(ctx context.Context, req repository.VersionRangeRequest) (*repository.VersionRangeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	known, ok := u.versions[req.Artifact.Key()]
	if !ok {
		return nil, &repository.RangeError{
			Artifact: req.Artifact, Constraint: req.Constraint.String(), Err: repository.ErrNotFound,
		}
	}
	result := &repository.VersionRangeResult{}
	for _, s := range known {
		v, err := version.Parse(s)
		if err != nil {
			continue
		}
		if req.Constraint.Contains(v) {
			result.Versions = append(result.Versions, v)
		}
	}
	version.Sort(result.Versions)
	return result, nil
}
