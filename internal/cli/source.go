package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/glorpus-work/librestore/internal/logger"
	"github.com/glorpus-work/librestore/pkg/config"
	"github.com/spf13/cobra"
)

// NewSourceCmd creates the source command with subcommands.
func NewSourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage package sources",
		Long:  "Add, remove, enable, disable and list the feeds libraries are restored from",
	}

	cmd.AddCommand(
		newSourceAddCmd(),
		newSourceRemoveCmd(),
		newSourceListCmd(),
		newSourceToggleCmd("enable", "Enable a package source", true),
		newSourceToggleCmd("disable", "Disable a package source", false),
	)

	return cmd
}

func newSourceAddCmd() *cobra.Command {
	var priority uint

	cmd := &cobra.Command{
		Use:   "add NAME URL",
		Short: "Add a package source",
		Long: `Add a package source. URL is an http(s) feed serving index.json, a file:// URL
or a local directory of library archives.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return updateSources(func(cfg *config.Config) error {
				return cfg.AddSource(args[0], args[1], priority)
			}, "Source added", args[0])
		},
	}

	cmd.Flags().UintVar(&priority, "priority", 0, "Source priority (lower is consulted first)")

	return cmd
}

func newSourceRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a package source",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return updateSources(func(cfg *config.Config) error {
				if !cfg.RemoveSource(args[0]) {
					return fmt.Errorf("source '%s' not found", args[0])
				}
				return nil
			}, "Source removed", args[0])
		},
	}
}

func newSourceToggleCmd(use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return updateSources(func(cfg *config.Config) error {
				if !cfg.EnableSource(args[0], enabled) {
					return fmt.Errorf("source '%s' not found", args[0])
				}
				return nil
			}, "Source updated", args[0])
		},
	}
}

func newSourceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List package sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSourceList(cmd.OutOrStdout())
		},
	}
}

func updateSources(update func(*config.Config) error, msg, name string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := update(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveConfig(getConfigPath()); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	logger.Success(msg, logger.Fields{"source": name})
	return nil
}

func runSourceList(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if jsonOutput(cfg) {
		return writeJSON(out, cfg.Sources)
	}
	if len(cfg.Sources) == 0 {
		_, _ = fmt.Fprintln(out, "No sources configured")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tURL\tPRIORITY\tSTATUS")
	for _, s := range cfg.Sources {
		status := "enabled"
		if !s.IsEnabled() {
			status = "disabled"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Name, s.URL, s.Priority, status)
	}
	return tw.Flush()
}
