package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/glorpus-work/librestore/internal/logger"
	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/fsutil"
	"github.com/glorpus-work/librestore/pkg/manifest"
	"github.com/glorpus-work/librestore/pkg/versioning"
	"github.com/hashicorp/go-version"
)

// IndexFileName is the feed index fetched from the root of an HTTP feed.
const IndexFileName = "index.json"

const userAgent = "librestore/1.0"

// FeedIndex lists the archives an HTTP feed offers.
type FeedIndex struct {
	FormatVersion string      `json:"format_version"`
	Libraries     []FeedEntry `json:"libraries"`
}

// FeedEntry is one library version in a FeedIndex. URL may be relative to the feed root.
type FeedEntry struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	URL     string `json:"url"`
	Sha512  string `json:"sha512,omitempty"`
}

// HTTPFeed serves library archives listed in an index.json file.
type HTTPFeed struct {
	name    string
	base    *url.URL
	client  *http.Client
	noCache bool
	log     *slog.Logger

	mu        sync.Mutex
	index     *FeedIndex
	manifests map[string]*manifest.Manifest
}

// NewHTTPFeed creates a feed rooted at base.
func NewHTTPFeed(name string, base *url.URL, opts Options) *HTTPFeed {
	l := opts.Logger
	if l == nil {
		l = logger.GetLogger()
	}
	root := *base
	if !strings.HasSuffix(root.Path, "/") {
		root.Path += "/"
	}
	return &HTTPFeed{
		name:      name,
		base:      &root,
		client:    &http.Client{Timeout: opts.HTTPTimeout},
		noCache:   opts.NoCache,
		log:       l,
		manifests: make(map[string]*manifest.Manifest),
	}
}

// Name returns the feed name.
func (f *HTTPFeed) Name() string {
	return f.name
}

// ListVersions returns the versions listed in the feed index.
func (f *HTTPFeed) ListVersions(ctx context.Context, name string) ([]*version.Version, error) {
	idx, err := f.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	var raw []string
	for _, e := range idx.Libraries {
		if strings.EqualFold(e.ID, name) {
			raw = append(raw, e.Version)
		}
	}
	return versioning.ParseVersions(raw), nil
}

// GetManifest downloads the library archive and reads its manifest.
func (f *HTTPFeed) GetManifest(ctx context.Context, name string, v *version.Version) (*manifest.Manifest, error) {
	key := cacheKey(name, v)
	if !f.noCache {
		f.mu.Lock()
		m, ok := f.manifests[key]
		f.mu.Unlock()
		if ok {
			return m, nil
		}
	}

	body, err := f.OpenContent(ctx, name, v)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	buf := &bytes.Buffer{}
	if _, err := fsutil.CopyContext(ctx, buf, body); err != nil {
		return nil, f.transportError(ctx, err)
	}
	m, err := manifest.ReadFromArchive(ctx, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, v, err)
	}

	if !f.noCache {
		f.mu.Lock()
		f.manifests[key] = m
		f.mu.Unlock()
	}
	return m, nil
}

// OpenContent starts downloading the library archive.
func (f *HTTPFeed) OpenContent(ctx context.Context, name string, v *version.Version) (io.ReadCloser, error) {
	entry, err := f.entry(ctx, name, v)
	if err != nil {
		return nil, err
	}
	ref, err := url.Parse(entry.URL)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrFormat, "invalid url %q for %s %s", entry.URL, name, v)
	}

	resp, err := f.get(ctx, f.base.ResolveReference(ref), "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, errors.Wrapf(errors.ErrLibraryNotFound, "%s %s in %s", name, v, f.name)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, f.statusError(resp)
	}
	return resp.Body, nil
}

func (f *HTTPFeed) entry(ctx context.Context, name string, v *version.Version) (*FeedEntry, error) {
	idx, err := f.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	for i := range idx.Libraries {
		e := &idx.Libraries[i]
		if !strings.EqualFold(e.ID, name) {
			continue
		}
		if ev, err := version.NewVersion(e.Version); err == nil && ev.Equal(v) {
			return e, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrLibraryNotFound, "%s %s in %s", name, v, f.name)
}

func (f *HTTPFeed) loadIndex(ctx context.Context) (*FeedIndex, error) {
	if !f.noCache {
		f.mu.Lock()
		idx := f.index
		f.mu.Unlock()
		if idx != nil {
			return idx, nil
		}
	}

	indexURL := f.base.JoinPath(IndexFileName)
	resp, err := f.get(ctx, indexURL, "application/json")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, f.statusError(resp)
	}

	var idx FeedIndex
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: failed to parse %s: %w", errors.ErrSourceUnavailable, f.name, IndexFileName, err)
	}
	f.log.Debug("loaded feed index", slog.String("source", f.name), slog.Int("libraries", len(idx.Libraries)))

	if !f.noCache {
		f.mu.Lock()
		f.index = &idx
		f.mu.Unlock()
	}
	return &idx, nil
}

func (f *HTTPFeed) get(ctx context.Context, u *url.URL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	f.log.Debug("fetching", slog.String("url", u.String()))
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.transportError(ctx, err)
	}
	return resp, nil
}

// transportError keeps cancellation distinguishable from an unreachable feed.
func (f *HTTPFeed) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s: %w", errors.ErrSourceUnavailable, f.name, err)
}

func (f *HTTPFeed) statusError(resp *http.Response) error {
	return fmt.Errorf("%w: %s: %s returned HTTP %d", errors.ErrSourceUnavailable, f.name, resp.Request.URL, resp.StatusCode)
}
