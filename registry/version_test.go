package registry

import "testing"

func TestParseVersionSpec(t *testing.T) {
	var table = []struct {
		input string
		kind  MatchKind
		ok    bool
	}{
		{"1.2.3", MatchExact, true},
		{"0.0.0", MatchExact, true},
		{"1.0.0-2.0.0", MatchRange, true},
		{"^1.2.3", MatchCaret, true},
		{"~1.2.3", MatchTilde, true},
		{"", 0, false},
		{"1.2", 0, false},
		{"1.2.3.4", 0, false},
		{"v1.2.3", 0, false},
		{"^1.2", 0, false},
		{"~1.2.3-2.0.0", 0, false},
		{"1.0.0 - 2.0.0", 0, false},
		{"latest", 0, false},
	}
	for _, s := range table {
		spec, err := ParseVersionSpec(s.input)
		if s.ok && err != nil {
			t.Errorf("ParseVersionSpec(%q): unexpected error %s", s.input, err.Error())
			continue
		}
		if !s.ok {
			if err == nil {
				t.Errorf("ParseVersionSpec(%q) succeeded, expected error", s.input)
			} else if KindOf(err) != KindValidation {
				t.Errorf("ParseVersionSpec(%q): got kind %v, expected validation", s.input, KindOf(err))
			}
			continue
		}
		if spec.Kind != s.kind {
			t.Errorf("ParseVersionSpec(%q): got kind %v, expected %v", s.input, spec.Kind, s.kind)
		}
	}
}

func TestVersionMatch(t *testing.T) {
	var table = []struct {
		spec    string
		version string
		match   bool
	}{
		{"1.2.3", "1.2.3", true},
		{"1.2.3", "1.2.4", false},

		// caret: same major
		{"^1.2.3", "1.9.9", true},
		{"^1.2.3", "1.0.0", true},
		{"^1.2.3", "2.0.0", false},
		{"^1.2.3", "11.0.0", false}, // "11." is not prefix "1."

		// tilde: same major.minor
		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{"~1.2.3", "1.22.0", false},

		// bounded range, inclusive
		{"1.0.0-2.0.0", "1.5.0", true},
		{"1.0.0-2.0.0", "1.0.0", true},
		{"1.0.0-2.0.0", "2.0.0", true},
		{"1.0.0-2.0.0", "2.0.1", false},

		// the matching is done on strings, so "1.10.0" sorts before
		// "1.9.0" and falls outside a 1.9.0-based range
		{"1.9.0-2.0.0", "1.9.5", true},
		{"1.9.0-2.0.0", "1.10.0", false},
	}
	for _, s := range table {
		spec, err := ParseVersionSpec(s.spec)
		if err != nil {
			t.Fatalf("ParseVersionSpec(%q): %s", s.spec, err.Error())
		}
		if got := spec.Match(s.version); got != s.match {
			t.Errorf("%q.Match(%q) = %v, expected %v", s.spec, s.version, got, s.match)
		}
	}
}
