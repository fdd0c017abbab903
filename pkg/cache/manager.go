// Package cache manages the shared on-disk library cache: its layout, which libraries are
// completely installed, and housekeeping of partial installs.
package cache

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glorpus-work/librestore/internal/logger"
	liberrors "github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/filelock"
	"github.com/glorpus-work/librestore/pkg/fsutil"
	"github.com/glorpus-work/librestore/pkg/lockfile"
	"github.com/glorpus-work/librestore/pkg/manifest"
	"github.com/glorpus-work/librestore/pkg/model"
	"github.com/hashicorp/go-version"
)

// ErrCacheDirectory is returned when the cache directory is unset or unusable.
var ErrCacheDirectory = errors.New("invalid cache directory")

// Entry is one library directory in the cache.
type Entry struct {
	Name     string
	Version  *version.Version
	Path     string
	Complete bool
}

// Info summarizes the cache contents.
type Info struct {
	Directory  string
	TotalSize  int64
	TotalFiles int
	Libraries  int
	Incomplete int
}

// CleanOptions specifies what to remove from the cache.
type CleanOptions struct {
	// All removes every library, complete or not.
	All bool
}

// CleanResult reports what a clean removed.
type CleanResult struct {
	Removed    int
	Skipped    int
	FreedBytes int64
}

// DefaultManager implements cache inspection and housekeeping over a PathResolver layout.
type DefaultManager struct {
	directory string
	paths     *PathResolver
	log       *slog.Logger
}

// NewManager creates a new cache manager.
func NewManager(directory string) *DefaultManager {
	return &DefaultManager{
		directory: directory,
		paths:     NewPathResolver(directory),
		log:       logger.GetLogger(),
	}
}

// NewDefaultManager creates a new cache manager with default directory.
func NewDefaultManager() (*DefaultManager, error) {
	cacheDir, err := fsutil.GetPackagesDir()
	if err != nil {
		return nil, liberrors.Wrapf(err, "failed to get user cache directory")
	}
	if err := os.MkdirAll(cacheDir, fsutil.DirModeDefault); err != nil {
		return nil, liberrors.Wrapf(err, "failed to create cache directory")
	}
	return NewManager(cacheDir), nil
}

// GetDirectory returns the cache directory path.
func (cm *DefaultManager) GetDirectory() string {
	return cm.directory
}

// SetDirectory sets the cache directory path.
func (cm *DefaultManager) SetDirectory(dir string) error {
	if dir == "" {
		return ErrCacheDirectory
	}
	cm.directory = dir
	cm.paths = NewPathResolver(dir)
	return nil
}

// Paths returns the layout resolver for the current directory.
func (cm *DefaultManager) Paths() *PathResolver {
	return cm.paths
}

// IsInstalled reports whether the library has a completion marker. The name is matched
// ignoring case.
func (cm *DefaultManager) IsInstalled(name string, v *version.Version) bool {
	_, ok := cm.paths.FindHashPath(name, v)
	return ok
}

// ReadHash returns the recorded archive hash of a completed install.
func (cm *DefaultManager) ReadHash(name string, v *version.Version) (string, error) {
	marker, ok := cm.paths.FindHashPath(name, v)
	if !ok {
		return "", liberrors.Wrapf(fs.ErrNotExist, "library %s %s is not installed", name, v)
	}
	data, err := os.ReadFile(marker)
	if err != nil {
		return "", liberrors.Wrapf(err, "library %s %s is not installed", name, v)
	}
	return string(bytes.TrimSpace(data)), nil
}

// List returns every library directory in the cache, sorted by name then version.
func (cm *DefaultManager) List() ([]Entry, error) {
	nameDirs, err := os.ReadDir(cm.directory)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, liberrors.Wrapf(err, "failed to read cache directory %s", cm.directory)
	}

	var entries []Entry
	for _, nameDir := range nameDirs {
		if !nameDir.IsDir() || nameDir.Name() == LocksDirName {
			continue
		}
		versionDirs, err := os.ReadDir(filepath.Join(cm.directory, nameDir.Name()))
		if err != nil {
			return nil, liberrors.Wrapf(err, "failed to read %s", nameDir.Name())
		}
		for _, versionDir := range versionDirs {
			if !versionDir.IsDir() {
				continue
			}
			v, err := version.NewVersion(versionDir.Name())
			if err != nil {
				cm.log.Debug("ignoring non-version directory", slog.String("path", filepath.Join(nameDir.Name(), versionDir.Name())))
				continue
			}
			dir := filepath.Join(cm.directory, nameDir.Name(), versionDir.Name())
			name := cm.displayName(dir, nameDir.Name())
			entries = append(entries, Entry{
				Name:     name,
				Version:  v,
				Path:     dir,
				Complete: cm.IsInstalled(name, v),
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].Name), strings.ToLower(entries[j].Name)
		if a != b {
			return a < b
		}
		return entries[i].Version.LessThan(entries[j].Version)
	})
	return entries, nil
}

// displayName recovers the original casing of a library name from its manifest file.
func (cm *DefaultManager) displayName(dir, fallback string) string {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fallback
	}
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), manifest.Extension) &&
			strings.EqualFold(strings.TrimSuffix(f.Name(), manifest.Extension), fallback) {
			return strings.TrimSuffix(f.Name(), manifest.Extension)
		}
	}
	return fallback
}

// GetInfo returns information about the cache.
func (cm *DefaultManager) GetInfo() (*Info, error) {
	info := &Info{Directory: cm.directory}

	entries, err := cm.List()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Complete {
			info.Libraries++
		} else {
			info.Incomplete++
		}
	}

	size, count, err := getDirSizeAndFiles(cm.directory)
	if err != nil {
		return nil, liberrors.Wrapf(err, "failed to get cache info")
	}
	info.TotalSize = size
	info.TotalFiles = count
	return info, nil
}

// Clean removes incomplete library directories, or every library with options.All.
// Directories whose install lock is currently held are skipped.
func (cm *DefaultManager) Clean(options CleanOptions) (*CleanResult, error) {
	entries, err := cm.List()
	if err != nil {
		return nil, err
	}

	result := &CleanResult{}
	for _, e := range entries {
		if e.Complete && !options.All {
			continue
		}
		lock, err := filelock.TryLock(cm.paths.LockPath(cm.paths.ArchivePath(e.Name, e.Version)))
		if errors.Is(err, filelock.ErrLocked) {
			cm.log.Info("skipping library being installed", slog.String("name", e.Name), slog.String("version", e.Version.String()))
			result.Skipped++
			continue
		}
		if err != nil {
			return result, err
		}

		size, _, sizeErr := getDirSizeAndFiles(e.Path)
		rmErr := os.RemoveAll(e.Path)
		_ = lock.Release()
		if sizeErr != nil {
			return result, sizeErr
		}
		if rmErr != nil {
			return result, liberrors.Wrapf(rmErr, "failed to remove %s", e.Path)
		}
		result.Removed++
		result.FreedBytes += size
	}
	return result, nil
}

// LockFileLibrary describes a completed install as a lock-file library entry. Files are
// slash separated, relative to the install directory and sorted.
func (cm *DefaultManager) LockFileLibrary(id *model.LibraryIdentity) (*lockfile.LockFileLibrary, error) {
	sha, err := cm.ReadHash(id.Name, id.Version)
	if err != nil {
		return nil, err
	}

	lib := &lockfile.LockFileLibrary{Name: id.Name, Version: id.Version, Sha512: sha}
	if p, ok := cm.paths.FindManifestPath(id.Name, id.Version); ok {
		if f, err := os.Open(p); err == nil {
			m, perr := manifest.Parse(f)
			_ = f.Close()
			if perr == nil {
				lib.IsServiceable = m.Serviceable
			}
		}
	}

	root := cm.paths.InstallPath(id.Name, id.Version)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		lib.Files = append(lib.Files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, liberrors.Wrapf(err, "failed to list files of %s", id)
	}
	sort.Strings(lib.Files)
	return lib, nil
}

// getDirSizeAndFiles calculates directory size and file count.
func getDirSizeAndFiles(dir string) (size int64, count int, err error) {
	if _, err = os.Stat(dir); os.IsNotExist(err) {
		return 0, 0, nil
	}

	err = filepath.Walk(dir, func(_ string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			size += info.Size()
			count++
		}
		return nil
	})
	if err != nil {
		err = liberrors.Wrapf(err, "error walking directory %s", dir)
	}
	return size, count, err
}
