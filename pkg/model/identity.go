// Package model provides the value types shared by the resolver, the installer and the
// restore walker: library identities, requested ranges and dependency edges.
package model

import (
	"fmt"
	"strings"

	"github.com/glorpus-work/librestore/pkg/hashutil"
	"github.com/glorpus-work/librestore/pkg/versioning"
	"github.com/hashicorp/go-version"
)

// LibraryType tells where a library comes from.
type LibraryType string

const (
	// LibraryTypePackage is a library retrieved from a package source.
	LibraryTypePackage LibraryType = "package"
	// LibraryTypeReference is a framework reference assembly provided by the platform.
	LibraryTypeReference LibraryType = "reference"
	// LibraryTypeProject is a project in the same workspace.
	LibraryTypeProject LibraryType = "project"
	// LibraryTypeExternalProject is a project outside the workspace.
	LibraryTypeExternalProject LibraryType = "externalProject"
	// LibraryTypeUnresolved marks a dependency no provider could satisfy.
	LibraryTypeUnresolved LibraryType = "unresolved"
)

// ParseLibraryType maps a type keyword to a LibraryType, ignoring case.
func ParseLibraryType(s string) (LibraryType, bool) {
	for _, t := range []LibraryType{
		LibraryTypePackage,
		LibraryTypeReference,
		LibraryTypeProject,
		LibraryTypeExternalProject,
		LibraryTypeUnresolved,
	} {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// LibraryIdentity is a concrete, resolved library. Treat it as immutable once created.
type LibraryIdentity struct {
	Name    string           `json:"name"`
	Version *version.Version `json:"version"`
	Type    LibraryType      `json:"type"`
}

// NewPackageIdentity returns the identity of a library retrieved from a package source.
func NewPackageIdentity(name string, v *version.Version) *LibraryIdentity {
	return &LibraryIdentity{Name: name, Version: v, Type: LibraryTypePackage}
}

// Equal compares name, version and type. Names compare case-insensitively.
func (id *LibraryIdentity) Equal(o *LibraryIdentity) bool {
	if id == nil || o == nil {
		return id == o
	}
	if !strings.EqualFold(id.Name, o.Name) || id.Type != o.Type {
		return false
	}
	if id.Version == nil || o.Version == nil {
		return id.Version == o.Version
	}
	return id.Version.Equal(o.Version)
}

// Hash returns a hash consistent with Equal.
func (id *LibraryIdentity) Hash() uint64 {
	var c hashutil.Combiner
	c.AddStringIgnoreCase(id.Name)
	if id.Version != nil {
		c.AddString(versioning.NormalizeVersion(id.Version))
	}
	c.AddString(string(id.Type))
	return c.Sum()
}

// Key returns a map key consistent with Equal.
func (id *LibraryIdentity) Key() string {
	return strings.ToLower(id.Name) + "/" + id.VersionString() + "/" + string(id.Type)
}

// VersionString returns the normalized version, or the empty string when unset.
func (id *LibraryIdentity) VersionString() string {
	if id.Version == nil {
		return ""
	}
	return versioning.NormalizeVersion(id.Version)
}

func (id *LibraryIdentity) String() string {
	return fmt.Sprintf("%s %s (%s)", id.Name, id.VersionString(), id.Type)
}
