package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/glorpus-work/librestore/pkg/config"
	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/framework"
	"github.com/glorpus-work/librestore/pkg/model"
	"github.com/glorpus-work/librestore/pkg/provider"
	"github.com/glorpus-work/librestore/pkg/versioning"
	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"
)

type resolvedOutput struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Source  string `json:"source"`
}

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	var (
		prerelease bool
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "resolve NAME [RANGE]",
		Short: "Resolve the best version of a library",
		Long: `Find the highest version of a library accepted by RANGE across the enabled
sources. Sources are consulted in priority order and the first match wins.
Without RANGE any stable version is accepted.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rng := ""
			if len(args) == 2 {
				rng = args[1]
			}
			if all {
				return runVersions(cmd.Context(), cmd.OutOrStdout(), args[0])
			}
			return runResolve(cmd.Context(), cmd.OutOrStdout(), args[0], rng, prerelease)
		},
	}

	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Accept pre-release versions")
	cmd.Flags().BoolVar(&all, "all", false, "List every version offered by each source")

	return cmd
}

func requestedRange(rng string, prerelease bool) (*versioning.VersionRange, error) {
	if rng == "" && !prerelease {
		return nil, nil
	}
	return versioning.CreateRange(rng, prerelease)
}

func runResolve(ctx context.Context, out io.Writer, name, rng string, prerelease bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := requestedRange(rng, prerelease)
	if err != nil {
		return err
	}
	providers, err := newProviders(cfg)
	if err != nil {
		return err
	}

	for _, p := range providers {
		id, err := p.ResolveIdentity(ctx, name, r)
		if err != nil {
			return err
		}
		if id == nil {
			continue
		}
		res := resolvedOutput{Name: id.Name, Version: id.VersionString(), Source: p.Name(ctx)}
		if jsonOutput(cfg) {
			return writeJSON(out, res)
		}
		_, _ = fmt.Fprintf(out, "%s %s (%s)\n", res.Name, res.Version, res.Source)
		return nil
	}

	return errors.Wrapf(errors.ErrNoCompatibleVersion, "%s %s", name, r.String())
}

func runVersions(ctx context.Context, out io.Writer, name string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	providers, err := newProviders(cfg)
	if err != nil {
		return err
	}

	var rows []resolvedOutput
	for _, p := range providers {
		versions, err := p.EnumerateVersions(ctx, name)
		if err != nil {
			return err
		}
		sort.Sort(sort.Reverse(version.Collection(versions)))
		for _, v := range versions {
			rows = append(rows, resolvedOutput{Name: name, Version: versioning.NormalizeVersion(v), Source: p.Name(ctx)})
		}
	}

	if jsonOutput(cfg) {
		if rows == nil {
			rows = []resolvedOutput{}
		}
		return writeJSON(out, rows)
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintf(out, "No versions of %s found\n", name)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tw, "VERSION\tSOURCE")
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", row.Version, row.Source)
	}
	return tw.Flush()
}

// NewDepsCmd creates the deps command.
func NewDepsCmd() *cobra.Command {
	var targetFramework string

	cmd := &cobra.Command{
		Use:   "deps NAME VERSION",
		Short: "Show the dependencies of a library",
		Long: `Show the direct dependencies of one library version as seen from a target
framework. The dependency and reference groups nearest to the framework are used.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], targetFramework)
		},
	}

	cmd.Flags().StringVarP(&targetFramework, "framework", "f", "", "Target framework (defaults to config)")

	return cmd
}

func targetFrameworkFor(cfg *config.Config, flag string) (framework.Framework, error) {
	if flag != "" {
		return framework.Parse(flag)
	}
	return cfg.GetTargetFramework()
}

func runDeps(ctx context.Context, out io.Writer, name, ver, targetFramework string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	v, err := version.NewVersion(ver)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidVersion, "%q: %v", ver, err)
	}
	target, err := targetFrameworkFor(cfg, targetFramework)
	if err != nil {
		return err
	}
	providers, err := newProviders(cfg)
	if err != nil {
		return err
	}

	id, p, err := findExact(ctx, providers, name, v)
	if err != nil {
		return err
	}
	deps, err := p.GetDependencies(ctx, id, target)
	if err != nil {
		return err
	}

	if jsonOutput(cfg) {
		return writeJSON(out, deps)
	}
	_, _ = fmt.Fprintf(out, "%s (%s)\n", id, target)
	if len(deps) == 0 {
		_, _ = fmt.Fprintln(out, "  no dependencies")
		return nil
	}
	for _, d := range deps {
		_, _ = fmt.Fprintf(out, "  %s\n", d)
	}
	return nil
}

func findExact(ctx context.Context, providers []*provider.Provider, name string, v *version.Version) (*model.LibraryIdentity, *provider.Provider, error) {
	exact := versioning.Exact(v)
	for _, p := range providers {
		id, err := p.ResolveIdentity(ctx, name, exact)
		if err != nil {
			return nil, nil, err
		}
		if id != nil {
			return id, p, nil
		}
	}
	return nil, nil, errors.Wrapf(errors.ErrLibraryNotFound, "%s %s", name, versioning.NormalizeVersion(v))
}
