package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/librestore/internal/logger"
	"github.com/glorpus-work/librestore/pkg/archive"
	"github.com/glorpus-work/librestore/pkg/cache"
	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/fsutil"
	"github.com/glorpus-work/librestore/pkg/manifest"
	"github.com/spf13/cobra"
)

// NewPackCmd creates the pack command.
func NewPackCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "pack SOURCE_DIR",
		Short: "Create a library archive",
		Long: `Create a library archive (` + cache.ArchiveExtension + `) from a directory. The directory must
contain exactly one manifest (` + manifest.Extension + `) at its root; the archive is named
after the identity it declares.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(cmd.Context(), cmd.OutOrStdout(), args[0], outputDir)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "dest", "d", ".", "Directory the archive is written to")

	return cmd
}

func runPack(ctx context.Context, out io.Writer, sourceDir, outputDir string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	m, err := findManifest(sourceDir)
	if err != nil {
		return err
	}
	id, err := m.Identity()
	if err != nil {
		return err
	}

	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return err
	}
	absOutput, err := filepath.Abs(outputDir)
	if err != nil {
		return err
	}
	if absOutput == absSource || strings.HasPrefix(absOutput, absSource+string(filepath.Separator)) {
		return errors.Wrapf(errors.ErrInvalidPath, "output directory %s is inside %s", outputDir, sourceDir)
	}
	if err := os.MkdirAll(absOutput, fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	archivePath := filepath.Join(absOutput, cache.NewPathResolver(absOutput).ArchiveFileName(id.Name, id.Version))
	am := archive.NewManager(archive.WithLogger(logger.GetLogger()))
	if err := am.Create(ctx, absSource, archivePath); err != nil {
		return err
	}

	packed, err := manifest.ReadIdentity(ctx, archivePath)
	if err != nil {
		return err
	}
	logger.Success("Library packed", logger.Fields{"library": packed.String(), "path": archivePath})
	_, _ = fmt.Fprintln(out, archivePath)
	return nil
}

// findManifest returns the single manifest at the root of dir.
func findManifest(dir string) (*manifest.Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var found []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), manifest.Extension) {
			found = append(found, e.Name())
		}
	}
	switch len(found) {
	case 0:
		return nil, errors.Wrapf(errors.ErrFormat, "no %s manifest in %s", manifest.Extension, dir)
	case 1:
	default:
		return nil, errors.Wrapf(errors.ErrFormat, "multiple manifests in %s: %s", dir, strings.Join(found, ", "))
	}

	f, err := os.Open(filepath.Join(dir, found[0]))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return manifest.Parse(f)
}
