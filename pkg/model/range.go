package model

import (
	"strings"

	"github.com/glorpus-work/librestore/pkg/versioning"
)

// LibraryRange is a request for a library: a name, an optional version range and an
// optional restriction on where the library may come from.
type LibraryRange struct {
	Name string `json:"name"`
	// VersionRange is nil when any version is acceptable.
	VersionRange *versioning.VersionRange `json:"versionRange,omitempty"`
	// TypeConstraint is empty when any library type is acceptable.
	TypeConstraint LibraryType `json:"typeConstraint,omitempty"`
}

// Allows reports whether a library of type t may satisfy the range.
func (r LibraryRange) Allows(t LibraryType) bool {
	return r.TypeConstraint == "" || r.TypeConstraint == t
}

// Equal compares name (case-insensitively), range and type constraint.
func (r LibraryRange) Equal(o LibraryRange) bool {
	return strings.EqualFold(r.Name, o.Name) &&
		r.TypeConstraint == o.TypeConstraint &&
		r.VersionRange.Equal(o.VersionRange)
}

func (r LibraryRange) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if r.VersionRange != nil {
		b.WriteByte(' ')
		b.WriteString(r.VersionRange.String())
	}
	if r.TypeConstraint != "" {
		b.WriteString(" (")
		b.WriteString(string(r.TypeConstraint))
		b.WriteByte(')')
	}
	return b.String()
}
