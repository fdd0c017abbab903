package source

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glorpus-work/librestore/pkg/cache"
	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/fsutil"
	"github.com/glorpus-work/librestore/pkg/manifest"
	"github.com/glorpus-work/librestore/pkg/versioning"
)

// CurrentFormatVersion is the index format written by IndexGenerator.
const CurrentFormatVersion = "1"

// IndexGenerator builds the index.json of an HTTPFeed from a directory of library
// archives. Each archive's identity is read from its embedded manifest, so file names do
// not matter. URLs are relative to the index file or, when BasePath is set, BasePath
// joined with the archive's path below Dir.
type IndexGenerator struct {
	// Dir is searched recursively for archives.
	Dir        string
	OutputPath string
	BasePath   string
	// ForceOverwrite replaces an existing OutputPath.
	ForceOverwrite bool
}

// NewIndexGenerator returns a generator writing the index of dir to outputPath.
func NewIndexGenerator(dir, outputPath string) *IndexGenerator {
	return &IndexGenerator{Dir: dir, OutputPath: outputPath}
}

// Validate checks the source directory and that the output may be written.
func (g *IndexGenerator) Validate() error {
	if g.Dir == "" {
		return errors.Wrap(errors.ErrInvalidPath, "source directory is required")
	}
	if g.OutputPath == "" {
		return errors.Wrap(errors.ErrInvalidPath, "output path is required")
	}
	fi, err := os.Stat(g.Dir)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidPath, "source directory %s: %v", g.Dir, err)
	}
	if !fi.IsDir() {
		return errors.Wrapf(errors.ErrInvalidPath, "source is not a directory: %s", g.Dir)
	}
	if !g.ForceOverwrite && fsutil.Exists(g.OutputPath) {
		return fmt.Errorf("output file %s exists (use force to overwrite): %w", g.OutputPath, os.ErrExist)
	}
	return nil
}

// Build scans Dir and returns the index without writing it.
func (g *IndexGenerator) Build(ctx context.Context) (*FeedIndex, error) {
	indexDir, err := filepath.Abs(filepath.Dir(g.OutputPath))
	if err != nil {
		return nil, err
	}

	index := &FeedIndex{FormatVersion: CurrentFormatVersion, Libraries: []FeedEntry{}}
	err = filepath.WalkDir(g.Dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), cache.ArchiveExtension) {
			return nil
		}

		entry, err := g.entry(ctx, p, indexDir)
		if err != nil {
			return err
		}
		index.Libraries = append(index.Libraries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(index.Libraries) == 0 {
		return nil, errors.Wrapf(errors.ErrFormat, "no %s archives found in %s", cache.ArchiveExtension, g.Dir)
	}

	sort.Slice(index.Libraries, func(i, j int) bool {
		a, b := index.Libraries[i], index.Libraries[j]
		if !strings.EqualFold(a.ID, b.ID) {
			return strings.ToLower(a.ID) < strings.ToLower(b.ID)
		}
		return a.Version < b.Version
	})
	return index, nil
}

func (g *IndexGenerator) entry(ctx context.Context, archivePath, indexDir string) (FeedEntry, error) {
	id, err := manifest.ReadIdentity(ctx, archivePath)
	if err != nil {
		return FeedEntry{}, fmt.Errorf("%s: %w", archivePath, err)
	}
	sum, err := fileSha512(archivePath)
	if err != nil {
		return FeedEntry{}, err
	}

	abs, err := filepath.Abs(archivePath)
	if err != nil {
		return FeedEntry{}, err
	}
	base := indexDir
	if g.BasePath != "" {
		if base, err = filepath.Abs(g.Dir); err != nil {
			return FeedEntry{}, err
		}
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return FeedEntry{}, err
	}
	rel = filepath.ToSlash(rel)
	if g.BasePath != "" {
		rel = path.Join(g.BasePath, rel)
	}

	return FeedEntry{
		ID:      id.Name,
		Version: versioning.NormalizeVersion(id.Version),
		URL:     rel,
		Sha512:  sum,
	}, nil
}

// Generate builds the index and writes it to OutputPath.
func (g *IndexGenerator) Generate(ctx context.Context) (*FeedIndex, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	index, err := g.Build(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := fsutil.EnsureFileDir(g.OutputPath); err != nil {
		return nil, err
	}
	if err := fsutil.WriteFileAtomic(g.OutputPath, append(data, '\n'), fsutil.FileModeDefault); err != nil {
		return nil, fmt.Errorf("failed to write index %s: %w", g.OutputPath, err)
	}
	return index, nil
}

func fileSha512(p string) (string, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", p, err)
	}
	sum := sha512.Sum512(data)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}
