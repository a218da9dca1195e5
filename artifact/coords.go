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

package artifact

import (
	"fmt"
	"regexp"
)

// coordinatePattern recognizes "group:artifact[:extension[:classifier]]:version".
var coordinatePattern = regexp.MustCompile(`^([^: ]+):([^: ]+)(?::([^: ]*)(?::([^: ]+))?)?:([^: ]+)$`)

// BadCoordinatesError reports a coordinate string that does not follow the
// group:artifact[:extension[:classifier]]:version form.
type BadCoordinatesError struct {
	Coords string
}

func (e *BadCoordinatesError) Error() string {
	return fmt.Sprintf("bad artifact coordinates %q, expected <groupId>:<artifactId>[:<extension>[:<classifier>]]:<version>", e.Coords)
}

// ParseCoords parses a coordinate string of the form
// "group:artifact[:extension[:classifier]]:version" into an Artifact.
// The extension defaults to "jar" and the classifier to the empty string.
func ParseCoords(coords string) (Artifact, error) {
	m := coordinatePattern.FindStringSubmatch(coords)
	if m == nil {
		return Artifact{}, &BadCoordinatesError{Coords: coords}
	}
	a := Artifact{
		GroupID:    m[1],
		ArtifactID: m[2],
		Extension:  m[3],
		Classifier: m[4],
		Version:    m[5],
	}
	if a.Extension == "" {
		a.Extension = "jar"
	}
	return a, nil
}
