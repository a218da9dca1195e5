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

// NopManager never manages anything.
type NopManager struct{}

func (NopManager) Manage(dep artifact.Dependency) *ManagementUpdate { return nil }

func (NopManager) DeriveChild(ctx DeriveContext) DependencyManager { return NopManager{} }

func (NopManager) ID() string { return "nop" }

// managedEntry is one dependency-management declaration, keyed by the
// dependency key it applies to.
type managedEntry struct {
	version    string
	scope      string
	optional   bool
	exclusions []artifact.Exclusion
	properties map[string]string
}

// ClassicManager layers each expanded node's dependency management over
// the management inherited from its ancestors; entries nearer the root
// win. How an entry applies depends on the manager's depth below the
// root, not on which node declared the entry. From two levels below the
// root on, versions and scopes are overridden outright, optionality only
// when the managing entry asks for it, and properties are replaced. At the
// root's direct dependencies, management merely fills a version or scope
// the dependency left empty. At every level, exclusions are applied only
// when the dependency declares none.
type ClassicManager struct {
	depth   int
	managed map[artifact.Key]managedEntry
}

// NewClassicManager seeds a manager with the collect request's managed
// dependencies.
func NewClassicManager(managed []artifact.Dependency) *ClassicManager {
	return &ClassicManager{managed: entriesFor(managed, nil)}
}

func entriesFor(managed []artifact.Dependency, base map[artifact.Key]managedEntry) map[artifact.Key]managedEntry {
	if len(managed) == 0 {
		return base
	}
	m := make(map[artifact.Key]managedEntry, len(managed)+len(base))
	for _, d := range managed {
		k := d.Key()
		if _, ok := m[k]; ok {
			continue
		}
		m[k] = managedEntry{
			version:    d.Artifact.Version,
			scope:      d.Scope,
			optional:   d.Optional,
			exclusions: d.Exclusions,
			properties: d.Artifact.Properties,
		}
	}
	// Inherited entries take precedence.
	for k, e := range base {
		m[k] = e
	}
	return m
}

func (m *ClassicManager) Manage(dep artifact.Dependency) *ManagementUpdate {
	if m.depth < 1 || len(m.managed) == 0 {
		return nil
	}
	e, ok := m.managed[dep.Key()]
	if !ok {
		return nil
	}
	var u ManagementUpdate
	override := m.depth >= 2
	any := false
	if e.version != "" && (override || dep.Artifact.Version == "") {
		v := e.version
		u.Version = &v
		any = true
	}
	depScope := dep.Scope
	if depScope == "" {
		depScope = ScopeCompile
	}
	if e.scope != "" && e.scope != depScope && (override || dep.Scope == "") {
		s := e.scope
		u.Scope = &s
		any = true
	}
	if override && e.optional && !dep.Optional {
		opt := true
		u.Optional = &opt
		any = true
	}
	if len(e.exclusions) > 0 && len(dep.Exclusions) == 0 {
		u.Exclusions = e.exclusions
		any = true
	}
	if len(e.properties) > 0 && override {
		u.Properties = e.properties
		any = true
	}
	if !any {
		return nil
	}
	return &u
}

func (m *ClassicManager) DeriveChild(ctx DeriveContext) DependencyManager {
	derived := &ClassicManager{
		depth:   m.depth + 1,
		managed: entriesFor(ctx.ManagedDependencies, m.managed),
	}
	return derived
}

func (m *ClassicManager) ID() string {
	type pair struct {
		key   string
		entry managedEntry
	}
	pairs := make([]pair, 0, len(m.managed))
	for k, e := range m.managed {
		pairs = append(pairs, pair{k.String(), e})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	var b strings.Builder
	fmt.Fprintf(&b, "classic(%d", m.depth)
	for _, p := range pairs {
		fmt.Fprintf(&b, ";%s=%s/%s/%t/%d", p.key, p.entry.version, p.entry.scope, p.entry.optional, len(p.entry.exclusions))
	}
	b.WriteByte(')')
	return b.String()
}
