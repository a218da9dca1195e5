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
	"strconv"

	"artifactgraph.dev/collector/artifact"
	"artifactgraph.dev/collector/repository"
)

// The well-known dependency scopes. The collector treats scopes as opaque
// strings; these constants only name the defaults.
const (
	ScopeCompile  = "compile"
	ScopeRuntime  = "runtime"
	ScopeProvided = "provided"
	ScopeTest     = "test"
	ScopeSystem   = "system"
)

// Configuration keys recognized by the collector. All other keys in a
// session's config map are opaque to the core.
const (
	// ConfigCollector selects the collector strategy. The default and
	// only built-in strategy is "df", depth-first.
	ConfigCollector = "collector.impl"
	// ConfigMaxDepth caps the recursion depth. Values below 1 mean
	// unbounded.
	ConfigMaxDepth = "collector.maxDepth"
	// ConfigParallelReads lets the collector prefetch the descriptors of
	// sibling dependencies concurrently. The resulting graph is
	// identical either way.
	ConfigParallelReads = "collector.parallelReads"
)

// ScopePriorities orders scopes for effective-scope selection: the scope
// with the greatest priority wins within a conflict group. Scopes absent
// from the map have priority 0.
type ScopePriorities map[string]int

// DefaultScopePriorities returns the stock ordering,
// compile > runtime > provided > test > system.
func DefaultScopePriorities() ScopePriorities {
	return ScopePriorities{
		ScopeCompile:  5,
		ScopeRuntime:  4,
		ScopeProvided: 3,
		ScopeTest:     2,
		ScopeSystem:   1,
	}
}

// EventKind tags repository listener events.
type EventKind int

const (
	// DescriptorReading fires before a descriptor read.
	DescriptorReading EventKind = iota
	// DescriptorRead fires after a successful descriptor read.
	DescriptorRead
	// DescriptorMissing fires when a descriptor read fails.
	DescriptorMissing
)

// Event is one entry of the repository listener stream. The core only
// writes events; it never reads them back.
type Event struct {
	Kind     EventKind
	Artifact artifact.Artifact
	Err      error
}

// Session bundles the configuration of one or more collect calls. The
// collector reads it and never mutates it; a session may therefore be
// shared between concurrent collections.
type Session struct {
	// Offline is carried for descriptor readers; the core itself does no
	// transport.
	Offline bool

	Selector  DependencySelector
	Traverser DependencyTraverser
	Manager   DependencyManager
	Filter    VersionFilter

	// DescriptorPolicy decides whether descriptor read failures abort the
	// collection.
	DescriptorPolicy repository.DescriptorPolicy

	// Scopes orders scope priorities for the transformer pipeline.
	Scopes ScopePriorities

	// Config is the flat string-keyed configuration map.
	Config map[string]string

	// Caches enables per-session memoization; nil disables it.
	Caches *Caches

	// Listener receives repository events; nil means silent.
	Listener func(Event)
}

// NewSession returns a session with the stock policies: transitive test
// and provided dependencies not selected, optional transitive dependencies
// skipped, classic dependency management, snapshot-free range expansion,
// and tolerant descriptor reads.
func NewSession() *Session {
	return &Session{
		Selector: NewAndSelector(
			NewScopeSelector(ScopeTest, ScopeProvided),
			&OptionalSelector{},
			NewExclusionSelector(),
		),
		Traverser:        &FatArtifactTraverser{},
		Manager:          NewClassicManager(nil),
		Filter:           &SnapshotVersionFilter{},
		DescriptorPolicy: repository.IgnoreMissing,
		Scopes:           DefaultScopePriorities(),
		Config:           make(map[string]string),
	}
}

// ConfigString returns the named config entry or def when unset.
func (s *Session) ConfigString(key, def string) string {
	if v, ok := s.Config[key]; ok {
		return v
	}
	return def
}

// ConfigInt returns the named config entry parsed as an int, or def when
// unset or unparsable.
func (s *Session) ConfigInt(key string, def int) int {
	v, ok := s.Config[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// ConfigBool returns the named config entry parsed as a bool, or def when
// unset or unparsable.
func (s *Session) ConfigBool(key string, def bool) bool {
	v, ok := s.Config[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (s *Session) emit(e Event) {
	if s.Listener != nil {
		s.Listener(e)
	}
}
