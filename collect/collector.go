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
Package collect computes complete, conflict-resolved dependency graphs.

A Collector expands a root artifact depth-first through a descriptor
reader, steered by the session's policy quartet, and then rewrites the
resulting dirty graph through a fixed transformation pipeline that
resolves version, scope and optional conflicts, applies exclusions and
severs cycles.
*/
package collect

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"artifactgraph.dev/collector/artifact"
	"artifactgraph.dev/collector/graph"
	"artifactgraph.dev/collector/repository"
	"artifactgraph.dev/collector/version"
)

const debug = false

// DataAvailableVersions is the node data key under which the collector
// records the concrete versions a range expansion advertised, ascending.
// The version-selection transformer consults it when a conflicting
// constraint forces a version below the collected one.
const DataAvailableVersions = "collect.availableVersions"

// maxRelocations caps how many relocations are followed for one node.
const maxRelocations = 10

// CollectRequest describes one collection: the root (either a full
// dependency or a bare label artifact), overrides for the root's direct
// and managed dependencies, and the repositories to resolve against.
type CollectRequest struct {
	// Root is the dependency to collect for. When nil, RootArtifact may
	// label the root, and Dependencies supplies the direct dependencies.
	Root *artifact.Dependency
	// RootArtifact labels the root when Root is nil. It is not resolved.
	RootArtifact *artifact.Artifact
	// Dependencies are merged over the root descriptor's declared
	// dependencies; entries here win by dependency key.
	Dependencies []artifact.Dependency
	// ManagedDependencies are merged over the root descriptor's
	// dependency management, entries here winning by key.
	ManagedDependencies []artifact.Dependency
	Repositories        []repository.RemoteRepository
	// Context labels the operation for listeners and error messages.
	Context string
}

// CollectResult is the outcome of a collection: the root of the resolved
// graph, the non-fatal errors encountered, and the cycles found and
// severed.
type CollectResult struct {
	Root       *graph.Node
	Exceptions []error
	Cycles     []graph.Cycle
}

// Collector is the dependency collection engine. It is stateless across
// calls and safe for concurrent use; all per-call state lives in the
// session and the request.
type Collector struct {
	reader repository.DescriptorReader
	ranges repository.VersionRangeResolver
}

// New creates a Collector reading descriptors and version ranges through
// the given collaborators.
func New(reader repository.DescriptorReader, ranges repository.VersionRangeResolver) *Collector {
	return &Collector{reader: reader, ranges: ranges}
}

// collectFn is one collector strategy.
type collectFn func(ctx context.Context, c *Collector, session *Session, req CollectRequest) (*CollectResult, error)

// strategies maps the values of the collector.impl config key.
var strategies = map[string]collectFn{
	"df": collectDF,
}

// Collect expands and resolves the dependency graph for the request. On a
// fatal error the returned error is a *CollectionError wrapping the
// partial result built so far.
func (c *Collector) Collect(ctx context.Context, session *Session, req CollectRequest) (*CollectResult, error) {
	if session == nil {
		session = NewSession()
	}
	impl := session.ConfigString(ConfigCollector, "df")
	fn, ok := strategies[impl]
	if !ok {
		return nil, fmt.Errorf("unknown collector implementation %q", impl)
	}
	return fn(ctx, c, session, req)
}

// dfState is the per-call state of the depth-first strategy.
type dfState struct {
	c        *Collector
	session  *Session
	result   *CollectResult
	reqCtx   string
	maxDepth int
	parallel bool
	// cancelled is set once so the Cancelled exception is recorded only
	// one time.
	cancelled bool
}

// frame carries the level-scoped state of the expansion: the ancestor
// path, the policies derived for this level and the inherited repository
// and managed-dependency sets.
type frame struct {
	parents []*graph.Node
	depth   int

	sel  DependencySelector
	trav DependencyTraverser
	mgr  DependencyManager
	filt VersionFilter

	repos   []repository.RemoteRepository
	managed []artifact.Dependency
}

func collectDF(ctx context.Context, c *Collector, session *Session, req CollectRequest) (*CollectResult, error) {
	st := &dfState{
		c:        c,
		session:  session,
		result:   &CollectResult{},
		reqCtx:   req.Context,
		maxDepth: session.ConfigInt(ConfigMaxDepth, 0),
		parallel: session.ConfigBool(ConfigParallelReads, false),
	}

	root := &graph.Node{}
	deps := req.Dependencies
	managed := req.ManagedDependencies
	repos := req.Repositories

	switch {
	case req.Root != nil:
		dep := *req.Root
		con, err := version.ParseConstraint(dep.Artifact.Version)
		if err != nil {
			return nil, &CollectionError{Result: st.result, Cause: &Error{
				Kind: KindBadCoordinates, Artifact: dep.Artifact, Err: err,
			}}
		}
		v := con.Recommended()
		if con.IsRange() {
			rr, err := c.ranges.Resolve(ctx, repository.VersionRangeRequest{
				Artifact: dep.Artifact, Constraint: con, Repositories: repos,
			})
			if err == nil && len(rr.Versions) == 0 {
				err = fmt.Errorf("no versions available within %s", con)
			}
			if err != nil {
				return nil, &CollectionError{Result: st.result, Cause: &Error{
					Kind: KindRangeResolution, Artifact: dep.Artifact, Err: err,
				}}
			}
			v = rr.Highest()
			dep = dep.WithVersion(v.String())
		}

		desc, relocations, err := st.readRelocated(ctx, dep.Artifact, repos)
		if err != nil {
			if !session.DescriptorPolicy.Tolerates(err) {
				return nil, &CollectionError{Result: st.result, Cause: &Error{
					Kind: KindDescriptorRead, Artifact: dep.Artifact, Err: err,
				}}
			}
			st.result.Exceptions = append(st.result.Exceptions, &Error{
				Kind: KindDescriptorRead, Artifact: dep.Artifact, Err: err,
			})
			desc = &repository.Descriptor{Artifact: dep.Artifact}
		}
		if len(relocations) > 0 {
			dep = dep.WithArtifact(desc.Artifact)
			if rv, err := version.Parse(dep.Artifact.Version); err == nil {
				v = rv
			}
		}
		root.Dependency = &dep
		root.Artifact = dep.Artifact
		root.Constraint = con
		root.Version = v
		root.Relocations = relocations
		root.Aliases = desc.Aliases
		deps = mergeDependencies(desc.Dependencies, req.Dependencies)
		managed = mergeDependencies(desc.ManagedDependencies, req.ManagedDependencies)
		repos = repository.MergeRepositories(desc.Repositories, req.Repositories)

	case req.RootArtifact != nil:
		root.Artifact = *req.RootArtifact
		if ver := req.RootArtifact.Version; ver != "" {
			if v, err := version.Parse(ver); err == nil {
				root.Version = v
			}
		}
	}
	root.Repositories = repos
	st.result.Root = root

	// Derive the root-level policies; the session carries the underived
	// quartet.
	dctx := DeriveContext{
		Session:             session,
		Artifact:            root.Artifact,
		Dependency:          root.Dependency,
		ManagedDependencies: managed,
	}
	f := frame{
		parents: []*graph.Node{root},
		depth:   1,
		sel:     session.Selector.DeriveChild(dctx),
		trav:    session.Traverser.DeriveChild(dctx),
		mgr:     session.Manager.DeriveChild(dctx),
		filt:    session.Filter.DeriveChild(dctx),
		repos:   repos,
		managed: managed,
	}
	if err := st.expand(ctx, root, deps, f); err != nil {
		return nil, &CollectionError{Result: st.result, Cause: err}
	}

	if err := transformGraph(session, st.result); err != nil {
		return nil, &CollectionError{Result: st.result, Cause: err}
	}
	return st.result, nil
}

// expand processes the dependencies of node at the given frame, appending
// child nodes and recursing. A non-nil return is fatal to the whole
// collection.
func (st *dfState) expand(ctx context.Context, node *graph.Node, deps []artifact.Dependency, f frame) error {
	if st.parallel && st.session.Caches != nil && len(deps) > 1 {
		st.prefetch(ctx, deps, f)
	}
	for _, d := range deps {
		if err := ctx.Err(); err != nil {
			if !st.cancelled {
				st.cancelled = true
				st.result.Exceptions = append(st.result.Exceptions, &Error{
					Kind: KindCancelled, Artifact: node.Artifact, Err: err,
				})
			}
			return nil
		}
		if err := st.expandOne(ctx, node, d, f); err != nil {
			return err
		}
	}
	return nil
}

func (st *dfState) expandOne(ctx context.Context, node *graph.Node, d artifact.Dependency, f frame) error {
	dep, bits, premVersion, premScope := applyManagement(f.mgr, d)

	if !f.sel.Select(dep) {
		if debug {
			log.Printf("collect: skip %s (selector)", dep)
		}
		return nil
	}

	if cyclePath := st.findCycle(f.parents, dep.Artifact); cyclePath != nil {
		st.result.Cycles = append(st.result.Cycles, graph.Cycle{Path: cyclePath})
		return nil
	}

	con, err := version.ParseConstraint(dep.Artifact.Version)
	if err != nil {
		st.recordNodeError(&Error{
			Kind: KindBadCoordinates, Artifact: dep.Artifact, Path: pathArtifacts(f.parents), Err: err,
		})
		return nil
	}

	var (
		selected  *version.Version
		available []*version.Version
	)
	if con.IsRange() {
		rr, err := st.c.ranges.Resolve(ctx, repository.VersionRangeRequest{
			Artifact: dep.Artifact, Constraint: con, Repositories: f.repos,
		})
		if err != nil {
			st.recordNodeError(&Error{
				Kind: KindRangeResolution, Artifact: dep.Artifact, Path: pathArtifacts(f.parents), Err: err,
			})
			return nil
		}
		candidates := make([]*version.Version, 0, len(rr.Versions))
		for _, v := range rr.Versions {
			if con.Contains(v) {
				candidates = append(candidates, v)
			}
		}
		candidates = f.filt.Filter(VersionFilterContext{
			Session: st.session, Dependency: dep, Repositories: rr.Repositories,
		}, candidates)
		if len(candidates) == 0 {
			return &Error{
				Kind: KindVersionFilterEmpty, Artifact: dep.Artifact, Path: pathArtifacts(f.parents),
				Err: fmt.Errorf("no versions within %s survived filtering", con),
			}
		}
		available = candidates
		selected = candidates[len(candidates)-1]
		dep = dep.WithVersion(selected.String())
	} else {
		selected = con.Recommended()
	}

	fp := subtreeFingerprint(dep.Artifact, f.repos, f.managed, f.sel, f.trav, f.mgr, f.filt)
	if st.session.Caches != nil {
		if cached, ok := st.session.Caches.subtree(fp); ok {
			child := cached.CloneShallow()
			// The cached artifact may differ from the incoming dependency
			// through relocation or merged properties; keep the pair
			// consistent.
			merged := dep.WithArtifact(child.Artifact)
			child.Dependency = &merged
			child.Constraint = con
			child.Managed = bits
			child.PremanagedVersion = premVersion
			child.PremanagedScope = premScope
			node.AppendChild(child)
			return nil
		}
	}

	child := &graph.Node{
		Dependency:        &dep,
		Artifact:          dep.Artifact,
		Constraint:        con,
		Version:           selected,
		Managed:           bits,
		PremanagedVersion: premVersion,
		PremanagedScope:   premScope,
	}
	if available != nil {
		child.SetData(DataAvailableVersions, available)
	}

	desc, relocations, err := st.readRelocated(ctx, dep.Artifact, f.repos)
	if err != nil {
		cerr := &Error{
			Kind: KindDescriptorRead, Artifact: dep.Artifact, Path: pathArtifacts(f.parents), Err: err,
		}
		if !st.session.DescriptorPolicy.Tolerates(err) {
			return cerr
		}
		st.recordNodeError(cerr)
		child.Repositories = f.repos
		node.AppendChild(child)
		return nil
	}
	if len(relocations) > 0 {
		relocated := dep.WithArtifact(desc.Artifact)
		// Relocated coordinates may close a cycle the original did not.
		if cyclePath := st.findCycle(f.parents, relocated.Artifact); cyclePath != nil {
			st.result.Cycles = append(st.result.Cycles, graph.Cycle{Path: cyclePath})
			return nil
		}
		dep = relocated
		child.Dependency = &dep
		child.Artifact = dep.Artifact
		child.Relocations = relocations
		if v, err := version.Parse(dep.Artifact.Version); err == nil {
			child.Version = v
		}
	}
	if len(desc.Properties) > 0 {
		// Properties already on the dependency's artifact win over
		// descriptor properties. Artifact-type defaults carried on the
		// artifact are not told apart from declared properties, so they
		// win over the descriptor too.
		props := make(map[string]string, len(desc.Properties)+len(dep.Artifact.Properties))
		for k, v := range desc.Properties {
			props[k] = v
		}
		for k, v := range dep.Artifact.Properties {
			props[k] = v
		}
		dep = dep.WithArtifact(dep.Artifact.WithProperties(props))
		child.Dependency = &dep
		child.Artifact = dep.Artifact
	}
	child.Aliases = desc.Aliases
	child.Repositories = repository.MergeRepositories(f.repos, desc.Repositories)
	node.AppendChild(child)

	if f.trav.Traverse(dep) {
		if st.maxDepth > 0 && f.depth >= st.maxDepth {
			return nil
		}
		dctx := DeriveContext{
			Session:             st.session,
			Artifact:            child.Artifact,
			Dependency:          child.Dependency,
			ManagedDependencies: desc.ManagedDependencies,
		}
		cf := frame{
			parents: append(append([]*graph.Node(nil), f.parents...), child),
			depth:   f.depth + 1,
			sel:     f.sel.DeriveChild(dctx),
			trav:    f.trav.DeriveChild(dctx),
			mgr:     f.mgr.DeriveChild(dctx),
			filt:    f.filt.DeriveChild(dctx),
			repos:   child.Repositories,
			managed: mergeDependencies(f.managed, desc.ManagedDependencies),
		}
		if err := st.expand(ctx, child, desc.Dependencies, cf); err != nil {
			return err
		}
	}

	if st.session.Caches != nil {
		st.session.Caches.storeSubtree(fp, child)
	}
	return nil
}

// applyManagement runs the manager over the dependency and applies the
// update, reporting the managed bits and the premanaged snapshots of any
// changed attribute.
func applyManagement(mgr DependencyManager, d artifact.Dependency) (out artifact.Dependency, bits graph.ManagedBits, premVersion, premScope string) {
	out = d
	u := mgr.Manage(d)
	if u == nil {
		return out, 0, "", ""
	}
	if u.Version != nil && *u.Version != out.Artifact.Version {
		premVersion = out.Artifact.Version
		out = out.WithVersion(*u.Version)
		bits |= graph.ManagedVersion
	}
	if u.Scope != nil && *u.Scope != out.Scope {
		premScope = out.Scope
		out = out.WithScope(*u.Scope)
		bits |= graph.ManagedScope
	}
	if u.Optional != nil && *u.Optional != out.Optional {
		out = out.WithOptional(*u.Optional)
		bits |= graph.ManagedOptional
	}
	if u.Exclusions != nil {
		out = out.WithExclusions(artifact.MergeExclusions(out.Exclusions, u.Exclusions))
		bits |= graph.ManagedExclusions
	}
	if u.Properties != nil {
		out = out.WithArtifact(out.Artifact.WithProperties(u.Properties))
		bits |= graph.ManagedProperties
	}
	return out, bits, premVersion, premScope
}

// findCycle reports the cycle path closed by adding an artifact below the
// given ancestor chain, or nil if there is none. The path runs from the
// first ancestor sharing the artifact's key down to the artifact itself.
func (st *dfState) findCycle(parents []*graph.Node, a artifact.Artifact) []artifact.Artifact {
	key := a.Key()
	for i, p := range parents {
		if p.Key() == key {
			path := make([]artifact.Artifact, 0, len(parents)-i+1)
			for _, n := range parents[i:] {
				path = append(path, n.Artifact)
			}
			return append(path, a)
		}
	}
	return nil
}

// readRelocated reads a descriptor, following relocations and returning
// the chain of identities traversed before the final descriptor.
func (st *dfState) readRelocated(ctx context.Context, a artifact.Artifact, repos []repository.RemoteRepository) (*repository.Descriptor, []artifact.Artifact, error) {
	var relocations []artifact.Artifact
	for i := 0; ; i++ {
		desc, err := st.readDescriptor(ctx, a, repos)
		if err != nil {
			return nil, relocations, err
		}
		if desc.Relocation == nil {
			return desc, relocations, nil
		}
		if i >= maxRelocations {
			return nil, relocations, fmt.Errorf("too many relocations for %s", a)
		}
		relocations = append(relocations, a)
		a = *desc.Relocation
	}
}

func (st *dfState) readDescriptor(ctx context.Context, a artifact.Artifact, repos []repository.RemoteRepository) (*repository.Descriptor, error) {
	key := descriptorKey(a, repos)
	if c := st.session.Caches; c != nil {
		if desc, err, ok := c.descriptor(key); ok {
			return desc, err
		}
	}
	st.session.emit(Event{Kind: DescriptorReading, Artifact: a})
	desc, err := st.c.reader.Read(ctx, repository.DescriptorRequest{
		Artifact: a, Repositories: repos, Context: st.reqCtx,
	})
	if err != nil {
		st.session.emit(Event{Kind: DescriptorMissing, Artifact: a, Err: err})
	} else {
		st.session.emit(Event{Kind: DescriptorRead, Artifact: a})
	}
	if c := st.session.Caches; c != nil {
		c.storeDescriptor(key, desc, err)
	}
	return desc, err
}

// prefetch warms the descriptor cache for sibling dependencies. Errors
// are left for the sequential pass to surface; child order and node
// creation stay serial regardless.
func (st *dfState) prefetch(ctx context.Context, deps []artifact.Dependency, f frame) {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range deps {
		dep, _, _, _ := applyManagement(f.mgr, d)
		if !f.sel.Select(dep) {
			continue
		}
		con, err := version.ParseConstraint(dep.Artifact.Version)
		if err != nil || con.IsRange() {
			// Range candidates are only known after resolution; leave
			// them to the sequential pass.
			continue
		}
		a := dep.Artifact
		g.Go(func() error {
			st.readDescriptor(gctx, a, f.repos)
			return nil
		})
	}
	g.Wait()
}

func (st *dfState) recordNodeError(err error) {
	st.result.Exceptions = append(st.result.Exceptions, err)
}

func pathArtifacts(parents []*graph.Node) []artifact.Artifact {
	as := make([]artifact.Artifact, len(parents))
	for i, p := range parents {
		as[i] = p.Artifact
	}
	return as
}

// mergeDependencies unions the two dependency lists by dependency key.
// Base order is kept, overridden entries are replaced in place, and extra
// override entries are appended in their own order.
func mergeDependencies(base, overrides []artifact.Dependency) []artifact.Dependency {
	if len(overrides) == 0 {
		return base
	}
	if len(base) == 0 {
		return overrides
	}
	byKey := make(map[artifact.Key]artifact.Dependency, len(overrides))
	for _, d := range overrides {
		if _, ok := byKey[d.Key()]; !ok {
			byKey[d.Key()] = d
		}
	}
	merged := make([]artifact.Dependency, 0, len(base)+len(overrides))
	used := make(map[artifact.Key]bool, len(overrides))
	for _, d := range base {
		if o, ok := byKey[d.Key()]; ok {
			merged = append(merged, o)
			used[d.Key()] = true
			continue
		}
		merged = append(merged, d)
	}
	for _, d := range overrides {
		if !used[d.Key()] {
			merged = append(merged, d)
			used[d.Key()] = true
		}
	}
	return merged
}
