package source

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func libArchive(t *testing.T, id, v string) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	w, err := zw.Create(id + ".libspec")
	require.NoError(t, err)
	_, err = w.Write([]byte("id: " + id + "\nversion: " + v + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func versionStrings(vs []*version.Version) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Original())
	}
	return out
}

func TestNew(t *testing.T) {
	s, err := New("remote", "https://example.com/feed", Options{})
	require.NoError(t, err)
	assert.IsType(t, &HTTPFeed{}, s)

	s, err = New("local", "file:///srv/feed", Options{})
	require.NoError(t, err)
	require.IsType(t, &LocalFeed{}, s)
	assert.Equal(t, "/srv/feed", s.(*LocalFeed).dir)

	s, err = New("local", t.TempDir(), Options{})
	require.NoError(t, err)
	assert.IsType(t, &LocalFeed{}, s)
	assert.Equal(t, "local", s.Name())

	_, err = New("empty", "", Options{})
	assert.Error(t, err)
}

func TestLocalFeed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Lib.1.0.0.lpkg"), libArchive(t, "Lib", "1.0.0"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.2.0.0-beta.lpkg"), libArchive(t, "Lib", "2.0.0-beta"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Lib.Extra.1.0.0.lpkg"), libArchive(t, "Lib.Extra", "1.0.0"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	feed := NewLocalFeed("local", dir, Options{})
	ctx := context.Background()

	versions, err := feed.ListVersions(ctx, "LIB")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1.0.0", "2.0.0-beta"}, versionStrings(versions))

	m, err := feed.GetManifest(ctx, "Lib", version.Must(version.NewVersion("1.0")))
	require.NoError(t, err)
	assert.Equal(t, "Lib", m.ID)

	rc, err := feed.OpenContent(ctx, "Lib", version.Must(version.NewVersion("2.0.0-beta")))
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, libArchive(t, "Lib", "2.0.0-beta"), data)

	_, err = feed.OpenContent(ctx, "Lib", version.Must(version.NewVersion("3.0.0")))
	assert.ErrorIs(t, err, errors.ErrLibraryNotFound)
}

func TestLocalFeed_MissingDirectory(t *testing.T) {
	feed := NewLocalFeed("local", filepath.Join(t.TempDir(), "missing"), Options{})
	versions, err := feed.ListVersions(context.Background(), "Lib")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

type feedServer struct {
	*httptest.Server
	indexHits atomic.Int32
}

func newFeedServer(t *testing.T, index FeedIndex, files map[string][]byte) *feedServer {
	t.Helper()
	fs := &feedServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/feed/index.json", func(w http.ResponseWriter, _ *http.Request) {
		fs.indexHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(index)
	})
	for p, data := range files {
		mux.HandleFunc(p, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(data)
		})
	}
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *feedServer) feed(t *testing.T, opts Options) *HTTPFeed {
	u, err := url.Parse(fs.URL + "/feed")
	require.NoError(t, err)
	return NewHTTPFeed("remote", u, opts)
}

func TestHTTPFeed(t *testing.T) {
	archive := libArchive(t, "Lib", "1.2.0")
	srv := newFeedServer(t, FeedIndex{
		FormatVersion: "1",
		Libraries: []FeedEntry{
			{ID: "Lib", Version: "1.2.0", URL: "packages/Lib.1.2.0.lpkg"},
			{ID: "Lib", Version: "1.0.0", URL: "packages/missing.lpkg"},
			{ID: "Other", Version: "5.0.0", URL: "packages/Other.5.0.0.lpkg"},
		},
	}, map[string][]byte{"/feed/packages/Lib.1.2.0.lpkg": archive})

	feed := srv.feed(t, Options{})
	ctx := context.Background()

	versions, err := feed.ListVersions(ctx, "lib")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1.2.0", "1.0.0"}, versionStrings(versions))

	unknown, err := feed.ListVersions(ctx, "Unknown")
	require.NoError(t, err)
	assert.Empty(t, unknown)

	v := version.Must(version.NewVersion("1.2.0"))
	m, err := feed.GetManifest(ctx, "Lib", v)
	require.NoError(t, err)
	assert.Equal(t, "Lib", m.ID)

	rc, err := feed.OpenContent(ctx, "Lib", v)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, archive, data)

	_, err = feed.OpenContent(ctx, "Lib", version.Must(version.NewVersion("1.0.0")))
	assert.ErrorIs(t, err, errors.ErrLibraryNotFound, "listed entry whose archive is gone")

	_, err = feed.GetManifest(ctx, "Lib", version.Must(version.NewVersion("9.9.9")))
	assert.ErrorIs(t, err, errors.ErrLibraryNotFound)

	assert.Equal(t, int32(1), srv.indexHits.Load(), "index is fetched once")
}

func TestHTTPFeed_NoCache(t *testing.T) {
	srv := newFeedServer(t, FeedIndex{FormatVersion: "1"}, nil)
	feed := srv.feed(t, Options{NoCache: true})

	for range 3 {
		_, err := feed.ListVersions(context.Background(), "Lib")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), srv.indexHits.Load())
}

func TestHTTPFeed_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	_, err := NewHTTPFeed("broken", u, Options{}).ListVersions(context.Background(), "Lib")
	assert.ErrorIs(t, err, errors.ErrSourceUnavailable)

	srv.Close()
	_, err = NewHTTPFeed("down", u, Options{}).ListVersions(context.Background(), "Lib")
	assert.ErrorIs(t, err, errors.ErrSourceUnavailable)
}

func TestHTTPFeed_Canceled(t *testing.T) {
	srv := newFeedServer(t, FeedIndex{FormatVersion: "1"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := srv.feed(t, Options{}).ListVersions(ctx, "Lib")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, errors.ErrSourceUnavailable)
}

func TestStatic(t *testing.T) {
	feed := NewLocalFeed("local", t.TempDir(), Options{})
	s, err := Static(feed)(context.Background(), Options{})
	require.NoError(t, err)
	assert.Same(t, feed, s)
}
