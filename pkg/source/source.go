//go:generate mockgen -destination=./mocks/source.go . Source
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/glorpus-work/librestore/pkg/manifest"
	"github.com/hashicorp/go-version"
)

// Source is a feed of library archives.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string

	// ListVersions returns every version of the named library the source offers.
	// An unknown library yields an empty list, not an error.
	ListVersions(ctx context.Context, name string) ([]*version.Version, error)

	// GetManifest returns the manifest of one library version.
	GetManifest(ctx context.Context, name string, v *version.Version) (*manifest.Manifest, error)

	// OpenContent opens the library archive. The caller closes the returned reader.
	OpenContent(ctx context.Context, name string, v *version.Version) (io.ReadCloser, error)
}

// Options are passed to a Source when it is created.
type Options struct {
	// NoCache disables in-memory caching of feed listings and manifests.
	NoCache bool
	// HTTPTimeout bounds a single HTTP request. Zero means no timeout.
	HTTPTimeout time.Duration
	Logger      *slog.Logger
}

// Factory creates a Source on first use.
type Factory func(ctx context.Context, opts Options) (Source, error)

// Static returns a Factory that always yields s.
func Static(s Source) Factory {
	return func(context.Context, Options) (Source, error) {
		return s, nil
	}
}

// ForLocation returns a Factory for the feed at location. http and https URLs produce an
// HTTPFeed, file URLs and plain paths a LocalFeed.
func ForLocation(name, location string) Factory {
	return func(_ context.Context, opts Options) (Source, error) {
		return New(name, location, opts)
	}
}

// New creates the Source for location.
func New(name, location string, opts Options) (Source, error) {
	u, err := url.Parse(location)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return NewHTTPFeed(name, u, opts), nil
		case "file":
			return NewLocalFeed(name, u.Path, opts), nil
		}
	}
	if location == "" {
		return nil, fmt.Errorf("source %s has no location", name)
	}
	return NewLocalFeed(name, location, opts), nil
}

func cacheKey(name string, v *version.Version) string {
	return strings.ToLower(name) + "@" + v.String()
}
