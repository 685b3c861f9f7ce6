package registry

import (
	"regexp"
	"strings"
)

// The four version notations accepted in query filters. A filter version
// must match exactly one of them.
//
//	exact    1.2.3
//	bounded  1.2.3-2.0.0   (inclusive)
//	caret    ^1.2.3        (same major)
//	tilde    ~1.2.3        (same major.minor)
//
// All matching is done on the version strings themselves, not on parsed
// numbers. In particular the bounded range compares lexically, so "1.10.0"
// sorts before "1.9.0". Consumers depend on this behavior, quirk included.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchRange
	MatchCaret
	MatchTilde
)

var (
	reExact = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)
	reRange = regexp.MustCompile(`^(\d+\.\d+\.\d+)-(\d+\.\d+\.\d+)$`)
	reCaret = regexp.MustCompile(`^\^(\d+)\.(\d+)\.(\d+)$`)
	reTilde = regexp.MustCompile(`^~(\d+)\.(\d+)\.(\d+)$`)
)

// VersionSpec is a parsed filter version. Exactly the fields for its Kind
// are set.
type VersionSpec struct {
	Kind  MatchKind
	Exact string // MatchExact
	Low   string // MatchRange, inclusive
	High  string // MatchRange, inclusive
	Major string // MatchCaret, MatchTilde
	Minor string // MatchTilde
}

// ParseVersionSpec parses one of the four version notations. Anything else
// is a validation error.
func ParseVersionSpec(s string) (VersionSpec, error) {
	if m := reExact.FindStringSubmatch(s); m != nil {
		return VersionSpec{Kind: MatchExact, Exact: s}, nil
	}
	if m := reRange.FindStringSubmatch(s); m != nil {
		return VersionSpec{Kind: MatchRange, Low: m[1], High: m[2]}, nil
	}
	if m := reCaret.FindStringSubmatch(s); m != nil {
		return VersionSpec{Kind: MatchCaret, Major: m[1]}, nil
	}
	if m := reTilde.FindStringSubmatch(s); m != nil {
		return VersionSpec{Kind: MatchTilde, Major: m[1], Minor: m[2]}, nil
	}
	return VersionSpec{}, NewError(KindValidation, "bad version filter %q", s)
}

// Prefix returns the version prefix a caret or tilde spec matches against,
// e.g. "1." or "1.2.". It returns "" for the other kinds.
func (v VersionSpec) Prefix() string {
	switch v.Kind {
	case MatchCaret:
		return v.Major + "."
	case MatchTilde:
		return v.Major + "." + v.Minor + "."
	}
	return ""
}

// Match reports whether the stored version string satisfies the spec. This
// is the reference semantics; the SQL metadata stores translate the same
// rules into WHERE clauses.
func (v VersionSpec) Match(version string) bool {
	switch v.Kind {
	case MatchExact:
		return version == v.Exact
	case MatchRange:
		return v.Low <= version && version <= v.High
	case MatchCaret, MatchTilde:
		return strings.HasPrefix(version, v.Prefix())
	}
	return false
}
