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
	"errors"
	"fmt"
	"strings"

	"artifactgraph.dev/collector/artifact"
)

// ErrorKind is the machine-consumable tag every collection error carries.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindBadCoordinates: an artifact coordinate or version string failed
	// to parse. Fatal to the node, siblings continue.
	KindBadCoordinates
	// KindDescriptorRead: a descriptor read failed. When the session's
	// descriptor policy tolerates the failure, the node is kept with no
	// children; otherwise it is fatal to the collection.
	KindDescriptorRead
	// KindRangeResolution: a version range could not be expanded. Fatal
	// to the node, siblings continue.
	KindRangeResolution
	// KindVersionFilterEmpty: the version filter rejected every candidate
	// of a range. Fatal to the collection.
	KindVersionFilterEmpty
	// KindUnsolvableConflict: the constraints on a conflict group have an
	// empty intersection. Fatal to the transformation.
	KindUnsolvableConflict
	// KindCycle: a dependency cycle was found. Non-fatal; the back-edge
	// is severed.
	KindCycle
	// KindCancelled: the caller cancelled the collection. Non-fatal; the
	// result is partial.
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindBadCoordinates:
		return "bad-coordinates"
	case KindDescriptorRead:
		return "descriptor-read"
	case KindRangeResolution:
		return "range-resolution"
	case KindVersionFilterEmpty:
		return "version-filter-empty"
	case KindUnsolvableConflict:
		return "unsolvable-conflict"
	case KindCycle:
		return "cycle"
	case KindCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Error is a collection error annotated with its kind, the offending
// artifact and the graph path leading to it.
type Error struct {
	Kind     ErrorKind
	Artifact artifact.Artifact
	Path     []artifact.Artifact
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Artifact)
	if len(e.Path) > 0 {
		ss := make([]string, len(e.Path))
		for i, a := range e.Path {
			ss[i] = a.Key().String()
		}
		msg += " via " + strings.Join(ss, " -> ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// UnsolvableVersionConflictError reports a conflict group whose combined
// constraints admit no version.
type UnsolvableVersionConflictError struct {
	Key artifact.Key
	// Paths are the graph paths on which the group occurs, each ending
	// with the group member's artifact as collected. Constraints holds
	// the constraint declared on each path, in the same order.
	Paths       [][]artifact.Artifact
	Constraints []string
}

func (e *UnsolvableVersionConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unsolvable version conflict for %s, constraints %s", e.Key, strings.Join(e.Constraints, " vs "))
	for _, p := range e.Paths {
		ss := make([]string, len(p))
		for i, a := range p {
			ss[i] = a.String()
		}
		b.WriteString("\n  path " + strings.Join(ss, " -> "))
	}
	return b.String()
}

// CollectionError wraps the partial result of a collection that hit a
// fatal error. Callers may inspect Result for everything built before the
// failure; Cause preserves the first underlying fatal error.
type CollectionError struct {
	Result *CollectResult
	Cause  error
}

func (e *CollectionError) Error() string {
	return "dependency collection failed: " + e.Cause.Error()
}

func (e *CollectionError) Unwrap() error { return e.Cause }

// KindOf extracts the error kind from err, unwrapping as needed.
func KindOf(err error) ErrorKind {
	var ce *CollectionError
	if errors.As(err, &ce) {
		err = ce.Cause
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var uc *UnsolvableVersionConflictError
	if errors.As(err, &uc) {
		return KindUnsolvableConflict
	}
	return KindUnknown
}
