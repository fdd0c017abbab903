package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/glorpus-work/librestore/pkg/lockfile"
	"github.com/glorpus-work/librestore/pkg/versioning"
	"github.com/spf13/cobra"
)

// NewLockCmd creates the lock command.
func NewLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect lock files",
	}

	cmd.AddCommand(newLockShowCmd())

	return cmd
}

func newLockShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [PATH]",
		Short: "Show the contents of a lock file",
		Long:  "Print the libraries and per-target assets recorded in a lock file (default: ./" + lockfile.FileName + ")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := lockfile.FileName
			if len(args) == 1 {
				path = args[0]
			}
			return runLockShow(cmd.OutOrStdout(), path)
		},
	}
}

func runLockShow(out io.Writer, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lf, err := lockfile.Load(path)
	if err != nil {
		return err
	}
	if jsonOutput(cfg) {
		return writeJSON(out, lf)
	}

	_, _ = fmt.Fprintf(out, "Libraries (%d):\n", len(lf.Libraries))
	for _, lib := range lf.Libraries {
		_, _ = fmt.Fprintf(out, "  %s %s (%d files)\n", lib.Name, versioning.NormalizeVersion(lib.Version), len(lib.Files))
	}

	for _, t := range lf.Targets {
		label := t.TargetFramework.String()
		if t.RuntimeIdentifier != "" {
			label += "/" + t.RuntimeIdentifier
		}
		_, _ = fmt.Fprintf(out, "\nTarget %s:\n", label)
		for _, lib := range t.Libraries {
			_, _ = fmt.Fprintf(out, "  %s %s\n", lib.Name, versioning.NormalizeVersion(lib.Version))
			printAssets(out, "dependencies", dependencyNames(lib.Dependencies))
			printAssets(out, "framework", lib.FrameworkAssemblies)
			printAssets(out, "runtime", lib.RuntimeAssemblies)
			printAssets(out, "compile", lib.CompileTimeAssemblies)
			printAssets(out, "native", lib.NativeLibraries)
		}
	}
	return nil
}

func dependencyNames(deps []lockfile.PackageDependency) []string {
	names := make([]string, 0, len(deps))
	for _, d := range deps {
		if d.VersionRange != nil {
			names = append(names, d.ID+" "+d.VersionRange.String())
		} else {
			names = append(names, d.ID)
		}
	}
	return names
}

func printAssets(out io.Writer, kind string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "    %s: %s\n", kind, strings.Join(items, ", "))
}
