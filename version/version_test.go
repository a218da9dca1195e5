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

package version

import (
	"testing"
)

func TestCompare(t *testing.T) {
	// Each version must order strictly before the next.
	ordered := []string{
		"1.0-alpha",
		"1.0-alpha-1",
		"1.0-beta",
		"1.0-milestone",
		"1.0-rc",
		"1.0-SNAPSHOT",
		"1.0",
		"1.0-sp",
		"1.0-foo",
		"1.0.sp",
		"1.0.foo",
		"1.0.0.v20140518",
		"1.0.1",
		"1.1",
		"2.0",
		"10.0",
	}
	checkOrdered(t, ordered)
}

func checkOrdered(t *testing.T, ordered []string) {
	t.Helper()
	for i, lo := range ordered {
		for _, hi := range ordered[i+1:] {
			a, b := MustParse(lo), MustParse(hi)
			if c := a.Compare(b); c >= 0 {
				t.Errorf("Compare(%q, %q) = %d, want < 0", lo, hi, c)
			}
			if c := b.Compare(a); c <= 0 {
				t.Errorf("Compare(%q, %q) = %d, want > 0", hi, lo, c)
			}
		}
	}
}

func TestCompareDottedQualifiers(t *testing.T) {
	// A dotted qualifier ranked above the empty qualifier sorts above
	// the padded-out release, while alpha-rank qualifiers stay below it.
	checkOrdered(t, []string{
		"1",
		"1.sp",
		"1.foo",
		"1.1",
	})
	checkOrdered(t, []string{
		"1.0.0.alpha",
		"1.0.0",
		"1.0.0.v20140518",
		"1.0.1",
	})
	checkOrdered(t, []string{
		"2.5.6",
		"2.5.6.SEC03",
		"2.5.7",
	})
}

func TestCompareEqual(t *testing.T) {
	pairs := [][2]string{
		{"1", "1.0"},
		{"1", "1.0.0"},
		{"1.0", "1.0-ga"},
		{"1.0", "1.0-final"},
		{"1.0-ALPHA", "1.0-alpha"},
		{"1.0a1", "1.0-alpha-1"},
		{"1.0m2", "1.0-milestone-2"},
		{"1.0-cr", "1.0-rc"},
	}
	for _, p := range pairs {
		a, b := MustParse(p[0]), MustParse(p[1])
		if c := a.Compare(b); c != 0 {
			t.Errorf("Compare(%q, %q) = %d, want 0", p[0], p[1], c)
		}
	}
}

func TestCompareSeparators(t *testing.T) {
	// For numbers, "-" sorts before ".": 1-1 < 1.1.
	if c := MustParse("1-1").Compare(MustParse("1.1")); c >= 0 {
		t.Errorf("Compare(1-1, 1.1) = %d, want < 0", c)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Error("Parse(\"\") succeeded, want error")
	}
	if _, err := Parse("1.99999999999999999999999999"); err == nil {
		t.Error("Parse of oversized number succeeded, want error")
	}
}

func TestSort(t *testing.T) {
	vs := []*Version{MustParse("2.0"), MustParse("1.0-SNAPSHOT"), MustParse("1.0"), MustParse("1.2")}
	Sort(vs)
	want := []string{"1.0-SNAPSHOT", "1.0", "1.2", "2.0"}
	for i, w := range want {
		if vs[i].String() != w {
			t.Fatalf("Sort: got %v at %d, want %s", vs[i], i, w)
		}
	}
}

func TestParseConstraint(t *testing.T) {
	tests := []struct {
		in      string
		isRange bool
		inside  []string
		outside []string
	}{
		{"1.0", false, []string{"1.0", "9.9"}, nil},
		{"[1.0,2.0)", true, []string{"1.0", "1.5", "1.999"}, []string{"0.9", "2.0", "2.1"}},
		{"(1.0,2.0]", true, []string{"1.1", "2.0"}, []string{"1.0", "2.1"}},
		{"[1.0]", true, []string{"1.0"}, []string{"1.0.1"}},
		{"(,1.0]", true, []string{"0.1", "1.0"}, []string{"1.1"}},
		{"[1.5,)", true, []string{"1.5", "99"}, []string{"1.4"}},
		{"[1,2),[3,4)", true, []string{"1.5", "3.5"}, []string{"2.5", "4.0"}},
	}
	for _, tst := range tests {
		c, err := ParseConstraint(tst.in)
		if err != nil {
			t.Errorf("ParseConstraint(%q): %v", tst.in, err)
			continue
		}
		if c.IsRange() != tst.isRange {
			t.Errorf("ParseConstraint(%q).IsRange() = %t, want %t", tst.in, c.IsRange(), tst.isRange)
		}
		for _, v := range tst.inside {
			if !c.Contains(MustParse(v)) {
				t.Errorf("%q should contain %q", tst.in, v)
			}
		}
		for _, v := range tst.outside {
			if c.Contains(MustParse(v)) {
				t.Errorf("%q should not contain %q", tst.in, v)
			}
		}
	}
}

func TestParseConstraintErrors(t *testing.T) {
	for _, in := range []string{"", "[2.0,1.0]", "[1.0", "[1.0)", "[1.0,2.0) garbage ["} {
		if _, err := ParseConstraint(in); err == nil {
			t.Errorf("ParseConstraint(%q) succeeded, want error", in)
		}
	}
}

func TestIntersectRanges(t *testing.T) {
	a, _ := ParseConstraint("[1.0,2.0)")
	b, _ := ParseConstraint("[1.5,3.0)")
	got := a.Intersect(b)
	if got.IsEmpty() {
		t.Fatal("intersection is empty")
	}
	for _, v := range []string{"1.5", "1.8", "1.999"} {
		if !got.Contains(MustParse(v)) {
			t.Errorf("[1.0,2.0) ∩ [1.5,3.0) should contain %s", v)
		}
	}
	for _, v := range []string{"1.4", "2.0", "2.5"} {
		if got.Contains(MustParse(v)) {
			t.Errorf("[1.0,2.0) ∩ [1.5,3.0) should not contain %s", v)
		}
	}
}

func TestIntersectDisjoint(t *testing.T) {
	a, _ := ParseConstraint("[1.0,2.0)")
	b, _ := ParseConstraint("[3.0,4.0)")
	if got := a.Intersect(b); !got.IsEmpty() {
		t.Errorf("[1.0,2.0) ∩ [3.0,4.0) = %v, want empty", got)
	}
}

func TestIntersectRecommendations(t *testing.T) {
	a, _ := ParseConstraint("1.0")
	b, _ := ParseConstraint("2.0")
	got := a.Intersect(b)
	if got.IsEmpty() || got.IsRange() {
		t.Fatalf("soft ∩ soft = %v, want recommendation", got)
	}
	if got.Recommended().String() != "2.0" {
		t.Errorf("soft ∩ soft recommended %v, want the newer 2.0", got.Recommended())
	}
}

func TestIntersectSoftWithRange(t *testing.T) {
	soft, _ := ParseConstraint("1.5")
	hard, _ := ParseConstraint("[1.0,2.0)")
	got := soft.Intersect(hard)
	if !got.IsRange() {
		t.Fatalf("soft ∩ range = %v, want range", got)
	}
	if got.Recommended() == nil || got.Recommended().String() != "1.5" {
		t.Errorf("recommendation inside the range should survive, got %v", got.Recommended())
	}

	softOut, _ := ParseConstraint("5.0")
	got = softOut.Intersect(hard)
	if got.Recommended() != nil {
		t.Errorf("recommendation outside the range should be dropped, got %v", got.Recommended())
	}
}

func TestIntersectEmptyOperand(t *testing.T) {
	a, _ := ParseConstraint("[1.0,2.0)")
	if got := a.Intersect(Constraint{}); !got.IsEmpty() {
		t.Errorf("x ∩ empty = %v, want empty", got)
	}
}
