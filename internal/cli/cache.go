package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/glorpus-work/librestore/internal/logger"
	"github.com/glorpus-work/librestore/pkg/cache"
	"github.com/glorpus-work/librestore/pkg/versioning"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command with subcommands
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the library cache",
		Long:  "Inspect and clean the shared library cache",
	}

	cmd.AddCommand(
		newCacheCleanCmd(),
		newCacheInfoCmd(),
		newCacheListCmd(),
		newCacheDirCmd(),
	)

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the library cache",
		Long: `Remove interrupted installs from the cache. With --all every library is removed.
Libraries that another process is installing are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCacheClean(cmd.OutOrStdout(), all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove completed installs too")

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		Long:  "Display size and content counts of the library cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCacheInfo(cmd.OutOrStdout())
		},
	}
}

func newCacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached libraries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCacheList(cmd.OutOrStdout())
		},
	}
}

func newCacheDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir",
		Short: "Show cache directory path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cfg.GetCacheDir())
			return nil
		},
	}
}

func loadCacheManager() (*cache.DefaultManager, bool, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, false, err
	}
	return cache.NewManager(cfg.GetCacheDir()), jsonOutput(cfg), nil
}

func runCacheClean(out io.Writer, all bool) error {
	cm, asJSON, err := loadCacheManager()
	if err != nil {
		return err
	}

	result, err := cm.Clean(cache.CleanOptions{All: all})
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, result)
	}

	if result.Skipped > 0 {
		logger.Warn("Some libraries are being installed and were kept", logger.Fields{"skipped": result.Skipped})
	}
	_, _ = fmt.Fprintf(out, "Removed %d libraries, freed %s\n", result.Removed, cache.FormatBytes(result.FreedBytes))
	return nil
}

func runCacheInfo(out io.Writer) error {
	cm, asJSON, err := loadCacheManager()
	if err != nil {
		return err
	}

	info, err := cm.GetInfo()
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, info)
	}
	_, _ = fmt.Fprintln(out, cache.FormatInfo(info))
	return nil
}

func runCacheList(out io.Writer) error {
	cm, asJSON, err := loadCacheManager()
	if err != nil {
		return err
	}

	entries, err := cm.List()
	if err != nil {
		return err
	}
	if asJSON {
		if entries == nil {
			entries = []cache.Entry{}
		}
		return writeJSON(out, entries)
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "No libraries cached")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LIBRARY\tVERSION\tSTATUS")
	for _, e := range entries {
		status := "installed"
		if !e.Complete {
			status = "incomplete"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, versioning.NormalizeVersion(e.Version), status)
	}
	return tw.Flush()
}
