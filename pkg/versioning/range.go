// Package versioning implements version ranges in interval notation on top of
// github.com/hashicorp/go-version, and best-match selection over a set of versions.
package versioning

import (
	"fmt"
	"strings"

	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/hashicorp/go-version"
)

// DefaultRange is used when a dependency does not declare a version range.
const DefaultRange = "[0.0.0-alpha,)"

// VersionRange is an interval of versions. A nil bound is unbounded on that side.
type VersionRange struct {
	Min               *version.Version
	MinInclusive      bool
	Max               *version.Version
	MaxInclusive      bool
	IncludePrerelease bool
}

// All returns a range without bounds that excludes pre-release versions.
func All() *VersionRange {
	return &VersionRange{}
}

// AtLeast returns the range ">= v".
func AtLeast(v *version.Version) *VersionRange {
	return &VersionRange{Min: v, MinInclusive: true, IncludePrerelease: v.Prerelease() != ""}
}

// Exact returns the range "[v]".
func Exact(v *version.Version) *VersionRange {
	return &VersionRange{
		Min:               v,
		MinInclusive:      true,
		Max:               v,
		MaxInclusive:      true,
		IncludePrerelease: v.Prerelease() != "",
	}
}

// Parse reads a range in one of these forms:
//
//	1.0.0          >= 1.0.0
//	[1.0.0]        exactly 1.0.0
//	[1.0.0,2.0.0)  1.0.0 <= v < 2.0.0
//	(,2.0.0]       v <= 2.0.0
//	*              any stable version
//
// Pre-release versions are allowed when either bound is itself a pre-release.
func Parse(s string) (*VersionRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.Wrap(errors.ErrInvalidRange, "empty range")
	}
	if s == "*" {
		return All(), nil
	}

	first, last := s[0], s[len(s)-1]
	if first != '[' && first != '(' {
		v, err := version.NewVersion(s)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidRange, "%q: %v", s, err)
		}
		return AtLeast(v), nil
	}
	if len(s) < 3 || (last != ']' && last != ')') {
		return nil, errors.Wrapf(errors.ErrInvalidRange, "%q: unbalanced brackets", s)
	}

	r := &VersionRange{MinInclusive: first == '[', MaxInclusive: last == ']'}
	body := s[1 : len(s)-1]
	parts := strings.Split(body, ",")

	switch len(parts) {
	case 1:
		// "[1.0.0]" is the only valid single-value interval.
		if !r.MinInclusive || !r.MaxInclusive {
			return nil, errors.Wrapf(errors.ErrInvalidRange, "%q: exact version must use []", s)
		}
		v, err := version.NewVersion(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidRange, "%q: %v", s, err)
		}
		return Exact(v), nil
	case 2:
	default:
		return nil, errors.Wrapf(errors.ErrInvalidRange, "%q: too many commas", s)
	}

	minStr, maxStr := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if minStr == "" && maxStr == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRange, "%q: no bounds", s)
	}
	var err error
	if minStr != "" {
		if r.Min, err = version.NewVersion(minStr); err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidRange, "%q: %v", s, err)
		}
	} else {
		r.MinInclusive = false
	}
	if maxStr != "" {
		if r.Max, err = version.NewVersion(maxStr); err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidRange, "%q: %v", s, err)
		}
	} else {
		r.MaxInclusive = false
	}

	if r.Min != nil && r.Max != nil {
		cmp := r.Min.Compare(r.Max)
		if cmp > 0 || (cmp == 0 && !(r.MinInclusive && r.MaxInclusive)) {
			return nil, errors.Wrapf(errors.ErrInvalidRange, "%q: empty interval", s)
		}
	}
	r.IncludePrerelease = isPrerelease(r.Min) || isPrerelease(r.Max)
	return r, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) *VersionRange {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// CreateRange parses s, treating an empty string as DefaultRange, and forces the
// pre-release flag to includePrerelease.
func CreateRange(s string, includePrerelease bool) (*VersionRange, error) {
	if strings.TrimSpace(s) == "" {
		s = DefaultRange
	}
	r, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return r.SetIncludePrerelease(includePrerelease), nil
}

// SetIncludePrerelease returns a copy of r with the pre-release flag replaced.
func (r *VersionRange) SetIncludePrerelease(include bool) *VersionRange {
	c := *r
	c.IncludePrerelease = include
	return &c
}

// Satisfies reports whether v lies inside the range. A nil range accepts every stable version.
func (r *VersionRange) Satisfies(v *version.Version) bool {
	if v == nil {
		return false
	}
	if r == nil {
		return v.Prerelease() == ""
	}
	if v.Prerelease() != "" && !r.IncludePrerelease {
		return false
	}
	if r.Min != nil {
		cmp := v.Compare(r.Min)
		if cmp < 0 || (cmp == 0 && !r.MinInclusive) {
			return false
		}
	}
	if r.Max != nil {
		cmp := v.Compare(r.Max)
		if cmp > 0 || (cmp == 0 && !r.MaxInclusive) {
			return false
		}
	}
	return true
}

// IsExact reports whether the range admits a single version.
func (r *VersionRange) IsExact() bool {
	return r != nil && r.Min != nil && r.Max != nil && r.MinInclusive && r.MaxInclusive && r.Min.Equal(r.Max)
}

// Equal compares bounds, inclusiveness and the pre-release flag.
func (r *VersionRange) Equal(o *VersionRange) bool {
	return r.EqualBounds(o) && (r == nil || r.IncludePrerelease == o.IncludePrerelease)
}

// EqualBounds compares bounds and inclusiveness only. It is the equality that survives a
// round trip through the text form.
func (r *VersionRange) EqualBounds(o *VersionRange) bool {
	if r == nil || o == nil {
		return r == o
	}
	return versionsEqual(r.Min, o.Min) && versionsEqual(r.Max, o.Max) &&
		r.MinInclusive == o.MinInclusive && r.MaxInclusive == o.MaxInclusive
}

// String renders the range in interval notation. Open lower bounds with no upper bound
// are rendered in the short ">= v" form accepted by Parse as a bare version.
func (r *VersionRange) String() string {
	if r == nil || (r.Min == nil && r.Max == nil) {
		return "*"
	}
	if r.IsExact() {
		return fmt.Sprintf("[%s]", r.Min)
	}
	if r.Max == nil && r.MinInclusive {
		return r.Min.String()
	}
	var b strings.Builder
	if r.MinInclusive {
		b.WriteByte('[')
	} else {
		b.WriteByte('(')
	}
	if r.Min != nil {
		b.WriteString(r.Min.String())
	}
	b.WriteString(", ")
	if r.Max != nil {
		b.WriteString(r.Max.String())
	}
	if r.MaxInclusive {
		b.WriteByte(']')
	} else {
		b.WriteByte(')')
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler. The text form carries no pre-release
// flag: a parsed range includes pre-releases only when one of its bounds is a pre-release,
// so an override set through CreateRange or SetIncludePrerelease is not persisted.
func (r *VersionRange) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *VersionRange) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

func isPrerelease(v *version.Version) bool {
	return v != nil && v.Prerelease() != ""
}

func versionsEqual(a, b *version.Version) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
}
