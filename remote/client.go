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
Package remote adapts the deps.dev Insights gRPC API to the collector's
descriptor reader and version range resolver contracts.

Every method is an API call, so resolving a large graph without the
session caches enabled can be slow. The client performs no caching of its
own; it is safe for concurrent use.
*/
package remote

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "deps.dev/api/v3"
	"golang.org/x/time/rate"

	"artifactgraph.dev/collector/artifact"
	"artifactgraph.dev/collector/repository"
	"artifactgraph.dev/collector/version"
)

// Client reads Maven artifact descriptors and version lists from the
// deps.dev Insights service.
//
// The Insights requirements surface carries no relocation information,
// so descriptors produced by this client never declare relocations.
type Client struct {
	c       pb.InsightsClient
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit caps outgoing API calls at qps with the given burst.
func WithRateLimit(qps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
}

// NewClient creates a Client using the provided gRPC client to call the
// deps.dev Insights service. Calls are unthrottled unless WithRateLimit
// is given.
func NewClient(ic pb.InsightsClient, opts ...Option) *Client {
	c := &Client{
		c:       ic,
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Read implements repository.DescriptorReader.
func (c *Client) Read(ctx context.Context, req repository.DescriptorRequest) (*repository.Descriptor, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	a := req.Artifact
	resp, err := c.c.GetRequirements(ctx, &pb.GetRequirementsRequest{
		VersionKey: &pb.VersionKey{
			System:  pb.System_MAVEN,
			Name:    a.GroupID + ":" + a.ArtifactID,
			Version: a.Version,
		},
	})
	if status.Code(err) == codes.NotFound {
		return nil, &repository.DescriptorError{Artifact: a, Err: repository.ErrNotFound}
	}
	if err != nil {
		return nil, &repository.DescriptorError{Artifact: a, Err: err}
	}
	desc := &repository.Descriptor{Artifact: a}
	if resp.Maven == nil {
		return desc, nil
	}
	desc.Dependencies = dependencies(resp.Maven.Dependencies)
	desc.ManagedDependencies = dependencies(resp.Maven.DependencyManagement)
	for _, r := range resp.Maven.Repositories {
		desc.Repositories = append(desc.Repositories, repository.RemoteRepository{
			ID:          r.Id,
			ContentType: "default",
			URL:         r.Url,
			Releases:    repository.Policy{Enabled: r.ReleasesEnabled != "false"},
			Snapshots:   repository.Policy{Enabled: r.SnapshotsEnabled == "true"},
		})
	}
	return desc, nil
}

// Resolve implements repository.VersionRangeResolver, expanding the
// constraint against the package's known versions, ascending.
func (c *Client) Resolve(ctx context.Context, req repository.VersionRangeRequest) (*repository.VersionRangeResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	a := req.Artifact
	resp, err := c.c.GetPackage(ctx, &pb.GetPackageRequest{
		PackageKey: &pb.PackageKey{
			System: pb.System_MAVEN,
			Name:   a.GroupID + ":" + a.ArtifactID,
		},
	})
	if status.Code(err) == codes.NotFound {
		return nil, &repository.RangeError{Artifact: a, Constraint: req.Constraint.String(), Err: repository.ErrNotFound}
	}
	if err != nil {
		return nil, &repository.RangeError{Artifact: a, Constraint: req.Constraint.String(), Err: err}
	}
	result := &repository.VersionRangeResult{}
	for _, pv := range resp.Versions {
		v, err := version.Parse(pv.VersionKey.Version)
		if err != nil {
			continue
		}
		if !req.Constraint.Contains(v) {
			continue
		}
		result.Versions = append(result.Versions, v)
	}
	version.Sort(result.Versions)
	return result, nil
}

func dependencies(deps []*pb.Requirements_Maven_Dependency) []artifact.Dependency {
	var out []artifact.Dependency
	for _, d := range deps {
		group, id, ok := strings.Cut(d.Name, ":")
		if !ok {
			continue
		}
		ext := d.Type
		if ext == "" {
			ext = "jar"
		}
		dep := artifact.Dependency{
			Artifact: artifact.Artifact{
				GroupID:    group,
				ArtifactID: id,
				Extension:  ext,
				Classifier: d.Classifier,
				Version:    d.Version,
			},
			Scope:    d.Scope,
			Optional: d.Optional == "true",
		}
		for _, ex := range d.Exclusions {
			e, err := parseExclusion(ex)
			if err != nil {
				continue
			}
			dep.Exclusions = append(dep.Exclusions, e)
		}
		out = append(out, dep)
	}
	return out
}

// parseExclusion converts a "group:artifact" exclusion, where either
// field may be a "*" wildcard, to the collector's empty-string wildcard
// form.
func parseExclusion(s string) (artifact.Exclusion, error) {
	group, id, ok := strings.Cut(s, ":")
	if !ok {
		return artifact.Exclusion{}, fmt.Errorf("invalid exclusion %q", s)
	}
	wild := func(s string) string {
		if s == "*" {
			return ""
		}
		return s
	}
	return artifact.Exclusion{GroupID: wild(group), ArtifactID: wild(id)}, nil
}
