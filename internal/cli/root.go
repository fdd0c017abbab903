package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the librestore command tree and binds the global flags.
func NewRootCmd() *cobra.Command {
	var (
		configPath   string
		verbose      bool
		noColor      bool
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "librestore",
		Short: "Restore versioned libraries into a shared cache",
		Long: `librestore resolves library dependencies against package sources and installs
them into a cache shared by concurrent processes:
- resolve, deps: query sources
- install, restore: install a dependency graph and write a lock file
- cache, lock: inspect the cache and lock files
- pack, index: build archives and feed indexes`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format (pretty, text, json)")

	ConfigPath = &configPath
	Verbose = &verbose
	NoColor = &noColor
	OutputFormat = &outputFormat

	cmd.AddCommand(
		NewResolveCmd(),
		NewDepsCmd(),
		NewInstallCmd(),
		NewRestoreCmd(),
		NewCacheCmd(),
		NewLockCmd(),
		NewPackCmd(),
		NewIndexCmd(),
		NewSourceCmd(),
		NewConfigCmd(),
		NewVersionCmd(),
	)

	return cmd
}
