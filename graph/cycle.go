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

package graph

import (
	"strings"

	"artifactgraph.dev/collector/artifact"
)

// Cycle records one dependency cycle found during collection or
// transformation. Path runs from the first occurrence of the repeated
// artifact down to its reappearance, so the first and last entries share a
// conflict key.
type Cycle struct {
	Path []artifact.Artifact
}

func (c Cycle) String() string {
	ss := make([]string, len(c.Path))
	for i, a := range c.Path {
		ss[i] = a.Key().String()
	}
	return strings.Join(ss, " -> ")
}

// Equal reports whether the two cycles traverse the same artifacts in the
// same order.
func (c Cycle) Equal(o Cycle) bool {
	if len(c.Path) != len(o.Path) {
		return false
	}
	for i := range c.Path {
		if !c.Path[i].Equal(o.Path[i]) {
			return false
		}
	}
	return true
}
