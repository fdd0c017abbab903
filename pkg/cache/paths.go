package cache

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/glorpus-work/librestore/pkg/fsutil"
	"github.com/glorpus-work/librestore/pkg/hashutil"
	"github.com/glorpus-work/librestore/pkg/manifest"
	"github.com/glorpus-work/librestore/pkg/versioning"
	"github.com/hashicorp/go-version"
)

const (
	// ArchiveExtension is the extension of library archives.
	ArchiveExtension = ".lpkg"
	// HashExtension is appended to the archive path to name the completion marker.
	HashExtension = ".sha512"
	// LocksDirName holds the install lock files, outside every library directory.
	LocksDirName = ".locks"
)

// PathResolver computes the on-disk layout of the library cache:
//
//	<root>/<lower-case name>/<normalized version>/
//	    <Name>.<version>.lpkg
//	    <Name>.<version>.lpkg.sha512
//	    <Name>.libspec
//	    ...extracted content
type PathResolver struct {
	root string
}

// NewPathResolver returns a resolver rooted at root.
func NewPathResolver(root string) *PathResolver {
	return &PathResolver{root: root}
}

// Root returns the cache root.
func (r *PathResolver) Root() string {
	return r.root
}

// InstallPath is the directory a library is extracted into.
func (r *PathResolver) InstallPath(name string, v *version.Version) string {
	return filepath.Join(r.root, strings.ToLower(name), versioning.NormalizeVersion(v))
}

// ArchiveFileName is the file name of the stored archive.
func (r *PathResolver) ArchiveFileName(name string, v *version.Version) string {
	return name + "." + versioning.NormalizeVersion(v) + ArchiveExtension
}

// ArchivePath is the path of the stored archive.
func (r *PathResolver) ArchivePath(name string, v *version.Version) string {
	return filepath.Join(r.InstallPath(name, v), r.ArchiveFileName(name, v))
}

// ManifestPath is the path of the manifest, with the file name cased as name.
func (r *PathResolver) ManifestPath(name string, v *version.Version) string {
	return filepath.Join(r.InstallPath(name, v), manifest.FileName(name))
}

// HashPath is the path of the completion marker.
func (r *PathResolver) HashPath(name string, v *version.Version) string {
	return r.ArchivePath(name, v) + HashExtension
}

// FindHashPath returns the completion marker of the library if one exists. The install
// directory is shared by every casing of name, so a marker written under another casing
// counts too.
func (r *PathResolver) FindHashPath(name string, v *version.Version) (string, bool) {
	return findFold(r.HashPath(name, v))
}

// FindManifestPath returns the manifest of the library, whatever casing it was installed
// under.
func (r *PathResolver) FindManifestPath(name string, v *version.Version) (string, bool) {
	return findFold(r.ManifestPath(name, v))
}

// findFold looks for p, then for a file in the same directory whose name matches p's
// ignoring case.
func findFold(p string) (string, bool) {
	if fsutil.Exists(p) {
		return p, true
	}
	dir, base := filepath.Split(p)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), base) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}

// LockPath is the lock file guarding the install of the archive at archivePath. The name
// is derived from the case-folded path so differently cased requests share one lock.
func (r *PathResolver) LockPath(archivePath string) string {
	sum := hashutil.String64(strings.ToLower(filepath.Clean(archivePath)))
	return filepath.Join(r.root, LocksDirName, strconv.FormatUint(sum, 16)+".lock")
}
