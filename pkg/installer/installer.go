// Package installer materializes a library archive in the shared cache. An install is
// guarded by a cross-process file lock and is complete only once the hash marker exists,
// so concurrent and interrupted installs converge on a single fully extracted copy.
package installer

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/librestore/internal/logger"
	"github.com/glorpus-work/librestore/pkg/archive"
	"github.com/glorpus-work/librestore/pkg/cache"
	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/filelock"
	"github.com/glorpus-work/librestore/pkg/fsutil"
	"github.com/glorpus-work/librestore/pkg/manifest"
	"github.com/glorpus-work/librestore/pkg/model"
)

// Result describes the outcome of Install.
type Result struct {
	// Installed is true when this call performed the extraction, false when a completed
	// install was already present.
	Installed bool
	// Path is the install directory.
	Path string
}

// Installer installs library archives under a cache root.
type Installer struct {
	paths    *cache.PathResolver
	archives *archive.Manager
	filter   archive.Filter
	lockOpts filelock.Options
	log      *slog.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithFilter replaces the extraction filter. archive.DefaultFilter is used by default.
func WithFilter(f archive.Filter) Option {
	return func(i *Installer) { i.filter = f }
}

// WithLockOptions sets how long and how often to retry a contended install lock.
func WithLockOptions(opts filelock.Options) Option {
	return func(i *Installer) { i.lockOpts = opts }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Installer) { i.log = l }
}

// New creates an Installer for the cache rooted at cacheRoot.
func New(cacheRoot string, opts ...Option) *Installer {
	i := &Installer{
		paths:    cache.NewPathResolver(cacheRoot),
		filter:   archive.DefaultFilter,
		lockOpts: filelock.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.log == nil {
		i.log = logger.GetLogger()
	}
	i.archives = archive.NewManager(archive.WithLogger(i.log))
	return i
}

// Install installs the library archive read from content into the cache rooted at cacheRoot
// using the default options.
func Install(ctx context.Context, content io.ReadSeeker, id *model.LibraryIdentity, cacheRoot string) (*Result, error) {
	return New(cacheRoot).Install(ctx, content, id)
}

// Install writes content to the library's archive path, extracts it and records its hash.
// Calls for the same identity, in this or any other process, are serialized; only the
// first performs the work and the others observe the completed install.
// Partial output from a failed install is left in place and redone by the next call.
func (i *Installer) Install(ctx context.Context, content io.ReadSeeker, id *model.LibraryIdentity) (*Result, error) {
	archivePath := i.paths.ArchivePath(id.Name, id.Version)
	result := &Result{Path: i.paths.InstallPath(id.Name, id.Version)}

	err := filelock.WithLock(ctx, i.paths.LockPath(archivePath), i.lockOpts, func(ctx context.Context) error {
		// The install directory is shared by every casing of the name, so is the marker.
		if _, ok := i.paths.FindHashPath(id.Name, id.Version); ok {
			i.log.Debug("library already installed", slog.String("name", id.Name), slog.String("version", id.VersionString()))
			return nil
		}
		if err := i.install(ctx, content, id); err != nil {
			return err
		}
		result.Installed = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("install %s %s: %w", id.Name, id.VersionString(), err)
	}
	return result, nil
}

// install runs the extraction steps. The caller holds the install lock.
func (i *Installer) install(ctx context.Context, content io.ReadSeeker, id *model.LibraryIdentity) error {
	targetPath := i.paths.InstallPath(id.Name, id.Version)
	archivePath := i.paths.ArchivePath(id.Name, id.Version)

	i.log.Debug("installing library",
		slog.String("name", id.Name),
		slog.String("version", id.VersionString()),
		slog.String("path", targetPath))

	if err := os.MkdirAll(targetPath, fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create install directory: %w", err)
	}
	// An interrupted install may have left a renamed manifest or an archive cased after
	// another request for the same library. Extraction would add a second copy of either.
	manifestPath := i.paths.ManifestPath(id.Name, id.Version)
	if err := removeFold(targetPath, filepath.Base(archivePath), filepath.Base(manifestPath)); err != nil {
		return err
	}
	if err := i.writeAndExtract(ctx, content, archivePath, targetPath); err != nil {
		return err
	}
	if err := i.fixManifestCasing(targetPath, manifestPath, id.Name); err != nil {
		return err
	}

	hash, err := hashContent(ctx, content)
	if err != nil {
		return err
	}
	// The marker is written last; its presence is what makes the install complete.
	if err := fsutil.WriteFileAtomic(i.paths.HashPath(id.Name, id.Version), []byte(hash), fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("failed to write hash marker: %w", err)
	}
	return nil
}

// writeAndExtract copies content verbatim to archivePath and extracts that file into targetPath.
// Files opened by os.OpenFile allow concurrent readers on every platform.
func (i *Installer) writeAndExtract(ctx context.Context, content io.ReadSeeker, archivePath, targetPath string) error {
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind library content: %w", err)
	}

	f, err := fsutil.CreateFilePerm(archivePath, fsutil.FileModeDefault)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", archivePath, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := fsutil.CopyContext(ctx, f, content); err != nil {
		return fmt.Errorf("failed to write archive %s: %w", archivePath, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync archive %s: %w", archivePath, err)
	}

	files, err := i.archives.ExtractFiles(ctx, f, targetPath, i.filter)
	if err != nil {
		return err
	}
	i.log.Debug("extracted library", slog.String("path", targetPath), slog.Int("files", len(files)))
	return nil
}

// fixManifestCasing makes sure exactly one manifest sits at the top of targetPath and that
// its file name and id match the requested casing.
func (i *Installer) fixManifestCasing(targetPath, expectedPath, name string) error {
	entries, err := os.ReadDir(targetPath)
	if err != nil {
		return fmt.Errorf("failed to read install directory: %w", err)
	}
	var manifests []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), manifest.Extension) {
			manifests = append(manifests, filepath.Join(targetPath, e.Name()))
		}
	}
	if len(manifests) != 1 {
		return errors.Wrapf(errors.ErrFormat, "expected one %s file in library, found %d", manifest.Extension, len(manifests))
	}

	actual := manifests[0]
	if filepath.Base(actual) == filepath.Base(expectedPath) {
		return nil
	}
	i.log.Debug("fixing manifest casing", slog.String("from", filepath.Base(actual)), slog.String("to", filepath.Base(expectedPath)))
	return manifest.RewriteID(actual, expectedPath, name)
}

// removeFold deletes the files in dir named like any of names, ignoring case.
func removeFold(dir string, names ...string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read install directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		for _, name := range names {
			if !strings.EqualFold(e.Name(), name) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove %s: %w", e.Name(), err)
			}
			break
		}
	}
	return nil
}

// hashContent rewinds content and returns the base64 SHA-512 of all of it.
func hashContent(ctx context.Context, content io.ReadSeeker) (string, error) {
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind library content: %w", err)
	}
	h := sha512.New()
	if _, err := fsutil.CopyContext(ctx, h, content); err != nil {
		return "", fmt.Errorf("failed to hash library content: %w", err)
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
