// Package lockfile holds the lock-file model produced by a restore: the libraries that
// were installed and, per target framework and runtime, the assets each contributes.
// The types carry no behavior beyond lookups and structural equality.
package lockfile

import (
	"slices"
	"strings"

	"github.com/glorpus-work/librestore/pkg/framework"
	"github.com/glorpus-work/librestore/pkg/versioning"
	"github.com/hashicorp/go-version"
)

// FormatVersion is the version written by this package.
const FormatVersion = 1

// LockFile is the result of a restore.
type LockFile struct {
	Version   int                `json:"version"`
	Libraries []*LockFileLibrary `json:"libraries"`
	Targets   []*LockFileTarget  `json:"targets"`
}

// LockFileLibrary records one installed library.
type LockFileLibrary struct {
	Name          string           `json:"name"`
	Version       *version.Version `json:"version"`
	IsServiceable bool             `json:"serviceable,omitempty"`
	// Sha512 is the base64 SHA-512 of the library archive, known only after a completed install.
	Sha512 string   `json:"sha512,omitempty"`
	Files  []string `json:"files"`
}

// LockFileTarget holds the libraries resolved for one (framework, runtime) pair.
type LockFileTarget struct {
	TargetFramework   framework.Framework      `json:"framework"`
	RuntimeIdentifier string                   `json:"runtime,omitempty"`
	Libraries         []*LockFileTargetLibrary `json:"libraries"`
}

// LockFileTargetLibrary is a library as seen from a single target.
type LockFileTargetLibrary struct {
	Name                  string              `json:"name"`
	Version               *version.Version    `json:"version"`
	Dependencies          []PackageDependency `json:"dependencies,omitempty"`
	FrameworkAssemblies   []string            `json:"frameworkAssemblies,omitempty"`
	RuntimeAssemblies     []string            `json:"runtime,omitempty"`
	CompileTimeAssemblies []string            `json:"compile,omitempty"`
	NativeLibraries       []string            `json:"native,omitempty"`
}

// PackageDependency is a package edge recorded in a target library.
type PackageDependency struct {
	ID           string                   `json:"id"`
	VersionRange *versioning.VersionRange `json:"range,omitempty"`
}

// New returns an empty lock file of the current format.
func New() *LockFile {
	return &LockFile{Version: FormatVersion}
}

// GetLibrary returns the library with the given name and version, or nil.
func (lf *LockFile) GetLibrary(name string, v *version.Version) *LockFileLibrary {
	for _, lib := range lf.Libraries {
		if strings.EqualFold(lib.Name, name) && versionsEqual(lib.Version, v) {
			return lib
		}
	}
	return nil
}

// SetLibrary adds lib, replacing an existing entry with the same name and version.
func (lf *LockFile) SetLibrary(lib *LockFileLibrary) {
	for i, existing := range lf.Libraries {
		if strings.EqualFold(existing.Name, lib.Name) && versionsEqual(existing.Version, lib.Version) {
			lf.Libraries[i] = lib
			return
		}
	}
	lf.Libraries = append(lf.Libraries, lib)
}

// GetTarget returns the target for the framework and runtime pair, or nil.
func (lf *LockFile) GetTarget(f framework.Framework, runtimeIdentifier string) *LockFileTarget {
	for _, t := range lf.Targets {
		if t.TargetFramework.Equal(f) && t.RuntimeIdentifier == runtimeIdentifier {
			return t
		}
	}
	return nil
}

// GetOrAddTarget returns the target for the pair, creating it when missing.
func (lf *LockFile) GetOrAddTarget(f framework.Framework, runtimeIdentifier string) *LockFileTarget {
	if t := lf.GetTarget(f, runtimeIdentifier); t != nil {
		return t
	}
	t := &LockFileTarget{TargetFramework: f, RuntimeIdentifier: runtimeIdentifier}
	lf.Targets = append(lf.Targets, t)
	return t
}

// GetLibrary returns the target library with the given name, or nil.
func (t *LockFileTarget) GetLibrary(name string) *LockFileTargetLibrary {
	for _, lib := range t.Libraries {
		if strings.EqualFold(lib.Name, name) {
			return lib
		}
	}
	return nil
}

// Equal reports structural equality. Order of libraries, targets and files is significant.
func (lf *LockFile) Equal(o *LockFile) bool {
	if lf == nil || o == nil {
		return lf == o
	}
	return lf.Version == o.Version &&
		slices.EqualFunc(lf.Libraries, o.Libraries, (*LockFileLibrary).Equal) &&
		slices.EqualFunc(lf.Targets, o.Targets, (*LockFileTarget).Equal)
}

// Equal reports structural equality.
func (l *LockFileLibrary) Equal(o *LockFileLibrary) bool {
	if l == nil || o == nil {
		return l == o
	}
	return l.Name == o.Name &&
		versionsEqual(l.Version, o.Version) &&
		l.IsServiceable == o.IsServiceable &&
		l.Sha512 == o.Sha512 &&
		slices.Equal(l.Files, o.Files)
}

// Equal reports structural equality.
func (t *LockFileTarget) Equal(o *LockFileTarget) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.TargetFramework.Equal(o.TargetFramework) &&
		t.RuntimeIdentifier == o.RuntimeIdentifier &&
		slices.EqualFunc(t.Libraries, o.Libraries, (*LockFileTargetLibrary).Equal)
}

// Equal reports structural equality.
func (l *LockFileTargetLibrary) Equal(o *LockFileTargetLibrary) bool {
	if l == nil || o == nil {
		return l == o
	}
	return l.Name == o.Name &&
		versionsEqual(l.Version, o.Version) &&
		slices.EqualFunc(l.Dependencies, o.Dependencies, PackageDependency.Equal) &&
		slices.Equal(l.FrameworkAssemblies, o.FrameworkAssemblies) &&
		slices.Equal(l.RuntimeAssemblies, o.RuntimeAssemblies) &&
		slices.Equal(l.CompileTimeAssemblies, o.CompileTimeAssemblies) &&
		slices.Equal(l.NativeLibraries, o.NativeLibraries)
}

// Equal reports structural equality of what is persisted: the id and the range bounds.
func (d PackageDependency) Equal(o PackageDependency) bool {
	return d.ID == o.ID && d.VersionRange.EqualBounds(o.VersionRange)
}

func versionsEqual(a, b *version.Version) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
}
