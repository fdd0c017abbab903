// Package archive reads and writes library archives (.lpkg, zip format). Extraction is
// filtered and refuses entries that would land outside the target directory.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/librestore/internal/logger"
	"github.com/glorpus-work/librestore/pkg/fsutil"
	"github.com/mholt/archives"
)

// ReaderAtSeeker is the input required to read a zip archive; *os.File and *bytes.Reader satisfy it.
type ReaderAtSeeker interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// Manager handles archive extraction and creation operations.
type Manager struct {
	log *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for skipped entries.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a new Manager instance.
func NewManager(opts ...Option) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.GetLogger()
	}
	return m
}

// ExtractFiles extracts the entries of src accepted by include into targetRoot and returns
// the extracted file names (slash separated, relative to targetRoot) in archive order.
// Entries whose resolved path would escape targetRoot are skipped without error.
// A nil include extracts everything that stays inside targetRoot.
func (am *Manager) ExtractFiles(ctx context.Context, src ReaderAtSeeker, targetRoot string, include Filter) ([]string, error) {
	if include == nil {
		include = IncludeAll
	}
	root, err := filepath.Abs(targetRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target directory: %w", err)
	}
	if err := fsutil.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("failed to create target directory: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind archive: %w", err)
	}

	var extracted []string
	handler := func(ctx context.Context, f archives.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		name, isDir := entryName(f)
		target, ok := resolveTarget(root, name)
		if !ok {
			am.log.Debug("skipping archive entry outside target", slog.String("entry", f.NameInArchive))
			return nil
		}
		if !include(name) {
			return nil
		}
		if isDir {
			return fsutil.EnsureDir(target)
		}
		if f.Mode()&fs.ModeSymlink != 0 {
			am.log.Debug("skipping symlink archive entry", slog.String("entry", f.NameInArchive))
			return nil
		}
		if err := am.writeRegularFile(ctx, f, target); err != nil {
			return err
		}
		extracted = append(extracted, strings.TrimSuffix(name, "/"))
		return nil
	}

	if err := (archives.Zip{}).Extract(ctx, src, handler); err != nil {
		return extracted, fmt.Errorf("failed to extract archive: %w", err)
	}
	return extracted, nil
}

// Extract extracts src into targetRoot using DefaultFilter.
func (am *Manager) Extract(ctx context.Context, src ReaderAtSeeker, targetRoot string) ([]string, error) {
	return am.ExtractFiles(ctx, src, targetRoot, DefaultFilter)
}

// ExtractFile opens the archive at archivePath and extracts it into targetRoot.
func (am *Manager) ExtractFile(ctx context.Context, archivePath, targetRoot string, include Filter) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return am.ExtractFiles(ctx, f, targetRoot, include)
}

// entryName strips one leading slash, percent-decodes the name and normalizes separators
// to forward slashes. It reports whether the entry denotes a directory.
func entryName(f archives.FileInfo) (string, bool) {
	name := strings.TrimPrefix(f.NameInArchive, "/")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	name = strings.ReplaceAll(name, "\\", "/")
	isDir := strings.HasSuffix(name, "/") || f.IsDir()
	return name, isDir
}

// resolveTarget joins name onto root and reports false when the result is not inside root.
func resolveTarget(root, name string) (string, bool) {
	rel := filepath.FromSlash(strings.TrimSuffix(name, "/"))
	if rel == "" || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", false
	}
	target := filepath.Join(root, rel)
	back, err := filepath.Rel(root, target)
	if err != nil || back == "." || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

// writeRegularFile writes a regular file from the archive entry to targetPath, replacing any existing file.
func (am *Manager) writeRegularFile(ctx context.Context, f archives.FileInfo, targetPath string) error {
	srcFile, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.NameInArchive, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := fsutil.EnsureFileDir(targetPath); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", targetPath, err)
	}

	dstFile, err := fsutil.CreateFilePerm(targetPath, fsutil.FileModeDefault)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := fsutil.CopyContext(ctx, dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy archive entry %s: %w", f.NameInArchive, err)
	}
	return nil
}
