// Package provider answers the questions a dependency walk asks of one package source:
// which versions exist, which one best fits a range, what a library depends on for a
// given target framework, and how to get its content.
package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/glorpus-work/librestore/internal/logger"
	"github.com/glorpus-work/librestore/pkg/framework"
	"github.com/glorpus-work/librestore/pkg/fsutil"
	"github.com/glorpus-work/librestore/pkg/manifest"
	"github.com/glorpus-work/librestore/pkg/model"
	"github.com/glorpus-work/librestore/pkg/source"
	"github.com/glorpus-work/librestore/pkg/versioning"
	"github.com/hashicorp/go-version"
)

// Provider resolves libraries against a single source.
type Provider struct {
	factory source.Factory
	opts    source.Options
	log     *slog.Logger

	// src is created on first use. Concurrent first calls may each build a source;
	// the first one stored wins.
	src atomic.Pointer[sourceHandle]
}

type sourceHandle struct {
	source.Source
}

// Option configures a Provider.
type Option func(*Provider)

// WithNoCache makes the source skip its in-memory caches.
func WithNoCache(noCache bool) Option {
	return func(p *Provider) { p.opts.NoCache = noCache }
}

// WithSourceOptions sets the options passed to the source factory.
func WithSourceOptions(opts source.Options) Option {
	return func(p *Provider) { p.opts = opts }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// New creates a Provider whose source is built by factory on first use.
func New(factory source.Factory, opts ...Option) *Provider {
	p := &Provider{factory: factory}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.GetLogger()
	}
	if p.opts.Logger == nil {
		p.opts.Logger = p.log
	}
	return p
}

// NewForSource creates a Provider over an existing source.
func NewForSource(s source.Source, opts ...Option) *Provider {
	return New(source.Static(s), opts...)
}

// NoCache reports whether source caching is disabled.
func (p *Provider) NoCache() bool {
	return p.opts.NoCache
}

func (p *Provider) source(ctx context.Context) (source.Source, error) {
	if h := p.src.Load(); h != nil {
		return h.Source, nil
	}
	s, err := p.factory(ctx, p.opts)
	if err != nil {
		return nil, err
	}
	p.src.CompareAndSwap(nil, &sourceHandle{s})
	return p.src.Load().Source, nil
}

// Name returns the name of the underlying source.
func (p *Provider) Name(ctx context.Context) string {
	s, err := p.source(ctx)
	if err != nil {
		return ""
	}
	return s.Name()
}

// EnumerateVersions lists every version of name the source offers.
func (p *Provider) EnumerateVersions(ctx context.Context, name string) ([]*version.Version, error) {
	s, err := p.source(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListVersions(ctx, name)
}

// SelectBestMatch returns the highest of versions that r accepts, or nil.
func SelectBestMatch(versions []*version.Version, r *versioning.VersionRange) *version.Version {
	return versioning.FindBestMatch(versions, r)
}

// ResolveIdentity returns the package identity of the best version of name within r,
// or nil when no version fits.
func (p *Provider) ResolveIdentity(ctx context.Context, name string, r *versioning.VersionRange) (*model.LibraryIdentity, error) {
	versions, err := p.EnumerateVersions(ctx, name)
	if err != nil {
		return nil, err
	}
	best := SelectBestMatch(versions, r)
	if best == nil {
		p.log.Debug("no matching version",
			slog.String("name", name),
			slog.String("range", r.String()),
			slog.Int("candidates", len(versions)))
		return nil, nil
	}
	return model.NewPackageIdentity(name, best), nil
}

// FindLibrary resolves a requested range. The target framework does not influence which
// version is chosen.
func (p *Provider) FindLibrary(ctx context.Context, r model.LibraryRange, _ framework.Framework) (*model.LibraryIdentity, error) {
	if !r.Allows(model.LibraryTypePackage) {
		return nil, nil
	}
	return p.ResolveIdentity(ctx, r.Name, r.VersionRange)
}

// FetchManifest returns the manifest of a resolved library.
func (p *Provider) FetchManifest(ctx context.Context, id *model.LibraryIdentity) (*manifest.Manifest, error) {
	s, err := p.source(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetManifest(ctx, id.Name, id.Version)
}

// GetDependencies returns the dependencies of id when consumed by target.
func (p *Provider) GetDependencies(ctx context.Context, id *model.LibraryIdentity, target framework.Framework) ([]model.LibraryDependency, error) {
	m, err := p.FetchManifest(ctx, id)
	if err != nil {
		return nil, err
	}
	depGroup, _ := SelectNearestGroup(m.DependencyGroups, target, manifest.DependencyGroup.Framework)
	refGroup, _ := SelectNearestGroup(m.FrameworkReferenceGroups, target, manifest.FrameworkReferenceGroup.Framework)

	deps, err := BuildDependencyList(target, depGroup, refGroup)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	return deps, nil
}

// CopyTo streams the content of id into w.
func (p *Provider) CopyTo(ctx context.Context, id *model.LibraryIdentity, w io.Writer) error {
	s, err := p.source(ctx)
	if err != nil {
		return err
	}
	rc, err := s.OpenContent(ctx, id.Name, id.Version)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	if _, err := fsutil.CopyContext(ctx, w, rc); err != nil {
		return fmt.Errorf("failed to copy %s: %w", id, err)
	}
	return nil
}
