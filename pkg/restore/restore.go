// Package restore walks the dependency graph of a set of requested libraries across the
// configured providers, installs every resolved library into the shared cache and
// describes the outcome as a lock file.
package restore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/glorpus-work/librestore/internal/logger"
	"github.com/glorpus-work/librestore/pkg/cache"
	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/lockfile"
	"github.com/glorpus-work/librestore/pkg/model"
	"github.com/glorpus-work/librestore/pkg/versioning"
	"golang.org/x/sync/errgroup"
)

// Restorer ties providers, the installer and the cache together.
type Restorer struct {
	// Providers are consulted in order; the first that resolves a range wins.
	Providers []LibraryProvider
	Installer LibraryInstaller
	Cache     *cache.DefaultManager
	Hooks     Hooks

	log *slog.Logger
}

// New constructs a Restorer. Hooks can be empty if no event handling is needed.
func New(providers []LibraryProvider, inst LibraryInstaller, cm *cache.DefaultManager, hooks Hooks) *Restorer {
	return &Restorer{
		Providers: providers,
		Installer: inst,
		Cache:     cm,
		Hooks:     hooks,
		log:       logger.GetLogger(),
	}
}

func (r *Restorer) logger() *slog.Logger {
	if r.log == nil {
		return logger.GetLogger()
	}
	return r.log
}

// Restore resolves req and, unless opts.DryRun is set, installs the resolved libraries.
// When some ranges cannot be resolved the partial result is returned together with an
// error matching errors.ErrNoCompatibleVersion, and nothing is installed.
func (r *Restorer) Restore(ctx context.Context, req Request, opts Options) (*Result, error) {
	if len(r.Providers) == 0 {
		return nil, fmt.Errorf("no library providers are configured")
	}

	result, err := r.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(result.Unresolved) > 0 {
		names := make([]string, 0, len(result.Unresolved))
		for _, u := range result.Unresolved {
			names = append(names, u.String())
		}
		return result, errors.Wrapf(errors.ErrNoCompatibleVersion, "unable to resolve %s", strings.Join(names, ", "))
	}

	if opts.DryRun {
		emit(r.Hooks, Event{Phase: "done", Msg: "dry-run"})
		return result, nil
	}

	if r.Installer == nil || r.Cache == nil {
		return nil, fmt.Errorf("library installer is not configured")
	}
	if err := r.installAll(ctx, result, opts); err != nil {
		return result, err
	}

	lf, err := r.buildLockFile(result, req)
	if err != nil {
		return result, err
	}
	result.LockFile = lf
	emit(r.Hooks, Event{Phase: "done"})
	return result, nil
}

type pending struct {
	dep    model.LibraryDependency
	parent string
}

// resolve walks the graph breadth first. The first request for a library fixes its
// version; later requests for the same name are only checked against it.
func (r *Restorer) resolve(ctx context.Context, req Request) (*Result, error) {
	result := &Result{}
	chosen := make(map[string]*ResolvedLibrary)
	unresolved := make(map[string]bool)

	queue := make([]pending, 0, len(req.Dependencies))
	for _, d := range req.Dependencies {
		queue = append(queue, pending{dep: d})
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := queue[0]
		queue = queue[1:]

		rng := effectiveRange(p.dep.LibraryRange, req.IncludePrerelease)
		if !rng.Allows(model.LibraryTypePackage) {
			// Platform references are recorded on the parent, not installed.
			continue
		}
		key := strings.ToLower(rng.Name)
		if lib, ok := chosen[key]; ok {
			if !rng.VersionRange.Satisfies(lib.Identity.Version) {
				r.logger().Warn("version conflict",
					slog.String("library", rng.Name),
					slog.String("requested", rng.String()),
					slog.String("chosen", lib.Identity.VersionString()),
					slog.String("by", p.parent))
				result.Conflicts = append(result.Conflicts, Conflict{Requested: rng, Chosen: lib.Identity})
			}
			continue
		}
		if unresolved[key] {
			continue
		}

		emit(r.Hooks, Event{Phase: "resolving", ID: key, Msg: rng.String()})
		lib, err := r.findLibrary(ctx, rng, req)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", rng, err)
		}
		if lib == nil {
			unresolved[key] = true
			result.Unresolved = append(result.Unresolved, rng)
			emit(r.Hooks, Event{Phase: "unresolved", ID: key, Msg: rng.String()})
			continue
		}

		deps, err := lib.provider.GetDependencies(ctx, lib.Identity, req.Framework)
		if err != nil {
			return nil, fmt.Errorf("dependencies of %s: %w", lib.Identity, err)
		}
		lib.Dependencies = deps
		chosen[key] = lib
		result.Libraries = append(result.Libraries, lib)
		emit(r.Hooks, Event{Phase: "resolved", ID: lib.Identity.Key(), Msg: lib.Identity.String()})

		for _, d := range deps {
			queue = append(queue, pending{dep: d, parent: lib.Identity.String()})
		}
	}
	return result, nil
}

func (r *Restorer) findLibrary(ctx context.Context, rng model.LibraryRange, req Request) (*ResolvedLibrary, error) {
	for _, p := range r.Providers {
		id, err := p.FindLibrary(ctx, rng, req.Framework)
		if err != nil {
			return nil, err
		}
		if id != nil {
			return &ResolvedLibrary{Identity: id, provider: p}, nil
		}
	}
	return nil, nil
}

func effectiveRange(rng model.LibraryRange, includePrerelease bool) model.LibraryRange {
	if !includePrerelease {
		return rng
	}
	if rng.VersionRange == nil {
		rng.VersionRange = versioning.All()
	}
	rng.VersionRange = rng.VersionRange.SetIncludePrerelease(true)
	return rng
}

func (r *Restorer) installAll(ctx context.Context, result *Result, opts Options) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Concurrency))

	var mu sync.Mutex
	for _, lib := range result.Libraries {
		g.Go(func() error {
			installed, err := r.install(gctx, lib, opts)
			if err != nil {
				return err
			}
			if installed {
				mu.Lock()
				result.Installed = append(result.Installed, lib.Identity)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	sort.Slice(result.Installed, func(i, j int) bool {
		return result.Installed[i].Key() < result.Installed[j].Key()
	})
	return nil
}

// install downloads lib to a temporary file and hands it to the installer. Libraries
// already complete in the cache are not downloaded.
func (r *Restorer) install(ctx context.Context, lib *ResolvedLibrary, opts Options) (bool, error) {
	id := lib.Identity
	if r.Cache.IsInstalled(id.Name, id.Version) {
		emit(r.Hooks, Event{Phase: "cached", ID: id.Key(), Msg: id.String()})
		return false, nil
	}

	emit(r.Hooks, Event{Phase: "downloading", ID: id.Key(), Msg: id.String()})
	f, err := os.CreateTemp(opts.TempDir, "librestore-*"+cache.ArchiveExtension)
	if err != nil {
		return false, errors.Wrap(err, "failed to create download file")
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	if err := lib.provider.CopyTo(ctx, id, f); err != nil {
		return false, fmt.Errorf("download %s: %w", id, err)
	}

	emit(r.Hooks, Event{Phase: "installing", ID: id.Key(), Msg: id.String()})
	res, err := r.Installer.Install(ctx, f, id)
	if err != nil {
		return false, err
	}
	if !res.Installed {
		emit(r.Hooks, Event{Phase: "cached", ID: id.Key(), Msg: id.String()})
		return false, nil
	}
	emit(r.Hooks, Event{Phase: "installed", ID: id.Key(), Msg: res.Path})
	return true, nil
}

func (r *Restorer) buildLockFile(result *Result, req Request) (*lockfile.LockFile, error) {
	lf := lockfile.New()
	target := lf.GetOrAddTarget(req.Framework, req.RuntimeIdentifier)

	for _, lib := range result.Libraries {
		entry, err := r.Cache.LockFileLibrary(lib.Identity)
		if err != nil {
			return nil, err
		}
		lf.SetLibrary(entry)

		assets := SelectAssets(entry.Files, req.Framework, req.RuntimeIdentifier)
		tl := &lockfile.LockFileTargetLibrary{
			Name:                  lib.Identity.Name,
			Version:               lib.Identity.Version,
			RuntimeAssemblies:     assets.Runtime,
			CompileTimeAssemblies: assets.Compile,
			NativeLibraries:       assets.Native,
		}
		for _, d := range lib.Dependencies {
			if d.LibraryRange.TypeConstraint == model.LibraryTypeReference {
				tl.FrameworkAssemblies = append(tl.FrameworkAssemblies, d.Name())
				continue
			}
			tl.Dependencies = append(tl.Dependencies, lockfile.PackageDependency{
				ID:           d.Name(),
				VersionRange: d.LibraryRange.VersionRange,
			})
		}
		target.Libraries = append(target.Libraries, tl)
	}

	sort.SliceStable(lf.Libraries, func(i, j int) bool {
		return strings.ToLower(lf.Libraries[i].Name) < strings.ToLower(lf.Libraries[j].Name)
	})
	sort.SliceStable(target.Libraries, func(i, j int) bool {
		return strings.ToLower(target.Libraries[i].Name) < strings.ToLower(target.Libraries[j].Name)
	})
	return lf, nil
}
