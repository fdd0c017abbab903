package manifest

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/glorpus-work/librestore/pkg/archive"
	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/model"
)

// ReadFromArchive returns the manifest stored at the root of a library archive.
func ReadFromArchive(ctx context.Context, src archive.ReaderAtSeeker) (*Manifest, error) {
	_, data, err := archive.ReadEntry(ctx, src, archive.TopLevelWithExtension(Extension))
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(errors.ErrFormat, "archive doesn't contain %s entry", Extension)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrFormat, err)
	}
	return Parse(bytes.NewReader(data))
}

// ReadIdentity opens the archive at path and returns the identity from its manifest.
func ReadIdentity(ctx context.Context, path string) (*model.LibraryIdentity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	m, err := ReadFromArchive(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m.Identity()
}
