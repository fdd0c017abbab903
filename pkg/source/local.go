package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/librestore/internal/logger"
	"github.com/glorpus-work/librestore/pkg/cache"
	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/manifest"
	"github.com/hashicorp/go-version"
)

// LocalFeed serves library archives named <Name>.<version>.lpkg from a flat directory.
type LocalFeed struct {
	name string
	dir  string
	log  *slog.Logger
}

// NewLocalFeed creates a feed over dir.
func NewLocalFeed(name, dir string, opts Options) *LocalFeed {
	l := opts.Logger
	if l == nil {
		l = logger.GetLogger()
	}
	return &LocalFeed{name: name, dir: dir, log: l}
}

// Name returns the feed name.
func (f *LocalFeed) Name() string {
	return f.name
}

// ListVersions returns the versions whose archives are present in the feed directory.
func (f *LocalFeed) ListVersions(ctx context.Context, name string) ([]*version.Version, error) {
	files, err := f.archives(ctx, name)
	if err != nil {
		return nil, err
	}
	versions := make([]*version.Version, 0, len(files))
	for _, a := range files {
		versions = append(versions, a.version)
	}
	return versions, nil
}

// GetManifest reads the manifest from the library archive.
func (f *LocalFeed) GetManifest(ctx context.Context, name string, v *version.Version) (*manifest.Manifest, error) {
	path, err := f.find(ctx, name, v)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrSourceUnavailable, f.name, err)
	}
	defer func() { _ = file.Close() }()

	m, err := manifest.ReadFromArchive(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// OpenContent opens the library archive.
func (f *LocalFeed) OpenContent(ctx context.Context, name string, v *version.Version) (io.ReadCloser, error) {
	path, err := f.find(ctx, name, v)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrSourceUnavailable, f.name, err)
	}
	return file, nil
}

type localArchive struct {
	path    string
	version *version.Version
}

func (f *LocalFeed) find(ctx context.Context, name string, v *version.Version) (string, error) {
	files, err := f.archives(ctx, name)
	if err != nil {
		return "", err
	}
	for _, a := range files {
		if a.version.Equal(v) {
			return a.path, nil
		}
	}
	return "", errors.Wrapf(errors.ErrLibraryNotFound, "%s %s in %s", name, v, f.name)
}

// archives lists the archives of the named library. File names compare case-insensitively
// and names whose remainder does not parse as a version belong to another library.
func (f *LocalFeed) archives(ctx context.Context, name string) ([]localArchive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrSourceUnavailable, f.name, err)
	}

	prefix := strings.ToLower(name) + "."
	var out []localArchive
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		lower := strings.ToLower(e.Name())
		if !strings.HasPrefix(lower, prefix) || !strings.HasSuffix(lower, cache.ArchiveExtension) {
			continue
		}
		raw := e.Name()[len(prefix) : len(e.Name())-len(cache.ArchiveExtension)]
		v, err := version.NewVersion(raw)
		if err != nil {
			f.log.Debug("skipping archive with unparsable version", slog.String("file", e.Name()))
			continue
		}
		out = append(out, localArchive{path: filepath.Join(f.dir, e.Name()), version: v})
	}
	return out, nil
}
