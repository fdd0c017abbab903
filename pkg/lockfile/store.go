package lockfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/fsutil"
)

// FileName is the conventional name of a lock file next to a project.
const FileName = "librestore.lock.json"

// Read decodes a lock file.
func Read(r io.Reader) (*LockFile, error) {
	lf := New()
	dec := json.NewDecoder(r)
	if err := dec.Decode(lf); err != nil {
		return nil, errors.Wrapf(errors.ErrFormat, "failed to decode lock file: %v", err)
	}
	if lf.Version > FormatVersion {
		return nil, errors.Wrapf(errors.ErrFormat, "unsupported lock file version %d", lf.Version)
	}
	return lf, nil
}

// Write encodes the lock file as indented JSON.
func (lf *LockFile) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(lf); err != nil {
		return fmt.Errorf("failed to encode lock file: %w", err)
	}
	return nil
}

// Load reads the lock file at path.
func Load(path string) (*LockFile, error) {
	cleanPath := filepath.Clean(path)
	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return Read(file)
}

// Save writes the lock file to path, replacing any previous file atomically.
func (lf *LockFile) Save(path string) error {
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock file to JSON: %w", err)
	}
	data = append(data, '\n')
	if err := fsutil.WriteFileAtomic(filepath.Clean(path), data, fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("failed to write lock file %s: %w", path, err)
	}
	return nil
}
