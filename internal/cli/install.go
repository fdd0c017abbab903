package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/glorpus-work/librestore/pkg/config"
	"github.com/glorpus-work/librestore/pkg/lockfile"
	"github.com/glorpus-work/librestore/pkg/restore"
	"github.com/spf13/cobra"
)

// restoreFlags are shared by install and restore.
type restoreFlags struct {
	dryRun      bool
	concurrency int
	framework   string
	runtime     string
	prerelease  bool
	cacheDir    string
}

func (f *restoreFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Resolve and print actions without installing")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Number of parallel installs (defaults to config)")
	cmd.Flags().StringVarP(&f.framework, "framework", "f", "", "Target framework (defaults to config)")
	cmd.Flags().StringVarP(&f.runtime, "runtime", "r", "", "Runtime identifier (defaults to config)")
	cmd.Flags().BoolVar(&f.prerelease, "prerelease", false, "Accept pre-release versions")
	cmd.Flags().StringVar(&f.cacheDir, "cache-dir", "", "Library cache directory (defaults to config)")
}

// apply merges the flags into the configuration and the request.
func (f *restoreFlags) apply(cfg *config.Config, req *restore.Request) (restore.Options, error) {
	if f.cacheDir != "" {
		cfg.Settings.CacheDir = f.cacheDir
	}
	target, err := targetFrameworkFor(cfg, f.framework)
	if err != nil {
		return restore.Options{}, err
	}
	req.Framework = target

	req.RuntimeIdentifier = cfg.Settings.RuntimeIdentifier
	if f.runtime != "" {
		req.RuntimeIdentifier = f.runtime
	}
	req.IncludePrerelease = f.prerelease || cfg.Settings.IncludePrerelease

	concurrency := cfg.Settings.MaxConcurrent
	if f.concurrency > 0 {
		concurrency = f.concurrency
	}
	return restore.Options{Concurrency: concurrency, DryRun: f.dryRun}, nil
}

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var (
		flags    restoreFlags
		lockPath string
	)

	cmd := &cobra.Command{
		Use:   "install NAME[@RANGE]...",
		Short: "Install libraries into the cache",
		Long: `Install one or more libraries and their dependencies into the shared cache.
RANGE uses interval notation, e.g. Newtonsoft.Json@[9.0.1,10.0.0) or Foo@1.2.0.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), cmd.OutOrStdout(), args, &flags, lockPath)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&lockPath, "lock-file", "", "Write the resulting lock file to this path")

	return cmd
}

func runInstall(ctx context.Context, out io.Writer, args []string, flags *restoreFlags, lockPath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	deps, err := ParseDependencies(args)
	if err != nil {
		return fmt.Errorf("failed to parse dependencies: %w", err)
	}
	req := restore.Request{Dependencies: deps}
	opts, err := flags.apply(cfg, &req)
	if err != nil {
		return err
	}

	return runRestore(ctx, out, cfg, req, opts, lockPath)
}

// NewRestoreCmd creates the restore command.
func NewRestoreCmd() *cobra.Command {
	var flags restoreFlags

	cmd := &cobra.Command{
		Use:   "restore PROJECT",
		Short: "Restore the dependencies of a project",
		Long: `Restore the dependencies declared by a project manifest (.libspec) and write
` + lockfile.FileName + ` next to it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectRestore(cmd.Context(), cmd.OutOrStdout(), args[0], &flags)
		},
	}

	flags.register(cmd)

	return cmd
}

func runProjectRestore(ctx context.Context, out io.Writer, projectPath string, flags *restoreFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := restore.LoadProject(projectPath)
	if err != nil {
		return err
	}

	var base restore.Request
	opts, err := flags.apply(cfg, &base)
	if err != nil {
		return err
	}
	req, err := restore.ProjectRequest(m, base.Framework, base.RuntimeIdentifier)
	if err != nil {
		return err
	}
	req.IncludePrerelease = base.IncludePrerelease

	lockPath := ""
	if !opts.DryRun {
		lockPath = restore.LockFilePath(projectPath)
	}
	return runRestore(ctx, out, cfg, req, opts, lockPath)
}

func runRestore(ctx context.Context, out io.Writer, cfg *config.Config, req restore.Request, opts restore.Options, lockPath string) error {
	hooks := restore.Hooks{}
	if !jsonOutput(cfg) {
		hooks = progressHooks(out)
	}
	r, err := newRestorer(cfg, hooks)
	if err != nil {
		return err
	}

	result, err := r.Restore(ctx, req, opts)
	if err != nil {
		if result != nil {
			printConflicts(out, result)
		}
		return fmt.Errorf("failed to restore: %w", err)
	}

	if jsonOutput(cfg) {
		if result.LockFile != nil {
			if err := writeJSON(out, result.LockFile); err != nil {
				return err
			}
		} else if err := writeJSON(out, result.Libraries); err != nil {
			return err
		}
	} else {
		printConflicts(out, result)
		if opts.DryRun {
			for _, lib := range result.Libraries {
				_, _ = fmt.Fprintf(out, "would install %s\n", lib.Identity)
			}
		}
	}

	if lockPath != "" && result.LockFile != nil {
		if err := result.LockFile.Save(lockPath); err != nil {
			return err
		}
		if !jsonOutput(cfg) {
			_, _ = fmt.Fprintf(out, "lock file written to %s\n", lockPath)
		}
	}
	return nil
}

func printConflicts(out io.Writer, result *restore.Result) {
	for _, c := range result.Conflicts {
		_, _ = fmt.Fprintf(out, "warning: %s requested, %s chosen\n", c.Requested, c.Chosen)
	}
	for _, u := range result.Unresolved {
		_, _ = fmt.Fprintf(out, "unresolved: %s\n", u)
	}
}
