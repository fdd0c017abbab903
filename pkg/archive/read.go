package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/mholt/archives"
)

// EntryMatcher selects an archive entry by its raw name.
type EntryMatcher func(name string) bool

// TopLevelWithExtension matches files in the archive root with the given extension, ignoring case.
func TopLevelWithExtension(ext string) EntryMatcher {
	ext = strings.ToLower(ext)
	return func(name string) bool {
		name = strings.TrimPrefix(name, "/")
		return !strings.ContainsAny(name, "/\\") && strings.HasSuffix(strings.ToLower(name), ext)
	}
}

// ReadEntry returns the name and content of the first entry accepted by match.
// It returns fs.ErrNotExist when no entry matches.
func ReadEntry(ctx context.Context, src ReaderAtSeeker, match EntryMatcher) (string, []byte, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", nil, fmt.Errorf("failed to rewind archive: %w", err)
	}

	var (
		found   string
		content []byte
	)
	handler := func(_ context.Context, f archives.FileInfo) error {
		if f.IsDir() || !match(f.NameInArchive) {
			return nil
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		if content, err = io.ReadAll(rc); err != nil {
			return err
		}
		found = f.NameInArchive
		return fs.SkipAll
	}

	if err := (archives.Zip{}).Extract(ctx, src, handler); err != nil && !errors.Is(err, fs.SkipAll) {
		return "", nil, fmt.Errorf("failed to read archive: %w", err)
	}
	if found == "" {
		return "", nil, fs.ErrNotExist
	}
	return found, content, nil
}

// Entries lists the raw entry names of src in archive order.
func Entries(ctx context.Context, src ReaderAtSeeker) ([]string, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind archive: %w", err)
	}
	var names []string
	err := (archives.Zip{}).Extract(ctx, src, func(_ context.Context, f archives.FileInfo) error {
		names = append(names, f.NameInArchive)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return names, nil
}
