package cli

import (
	"fmt"
	"path/filepath"

	"github.com/glorpus-work/librestore/pkg/source"
	"github.com/spf13/cobra"
)

// NewIndexCmd creates the index command.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage feed indexes",
	}

	cmd.AddCommand(newIndexGenerateCmd())

	return cmd
}

func newIndexGenerateCmd() *cobra.Command {
	var (
		basePath string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "generate SOURCE_DIR OUTPUT_FILE",
		Short: "Generate a feed index from library archives",
		Long: `Generate the index (` + source.IndexFileName + `) of an HTTP feed from a directory of library
archives. Subdirectories are searched and every archive's identity is read from its manifest.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}

			absSourceDir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("invalid source directory: %w", err)
			}
			absOutputFile, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("invalid output file: %w", err)
			}

			gen := source.NewIndexGenerator(absSourceDir, absOutputFile)
			gen.BasePath = basePath
			gen.ForceOverwrite = force

			index, err := gen.Generate(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to generate index: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Generated index with %d libraries at %s\n", len(index.Libraries), absOutputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&basePath, "base-path", "b", "", "Base path for archive URLs in the index (e.g. 'packages')")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite output file if it exists")

	cmd.Example = `  librestore index generate ./packages ./site/index.json
  librestore index generate --base-path=packages ./packages ./site/index.json`

	return cmd
}
