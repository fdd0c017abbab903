// Package testutil holds helpers shared by command-level tests: a static HTTP feed server
// and throwaway configuration files.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glorpus-work/librestore/internal/logger"
)

// FeedServer serves a directory over HTTP, the way a static feed host would.
type FeedServer struct {
	*httptest.Server
	requests atomic.Int64
}

// NewFeedServer serves dir until the test ends.
func NewFeedServer(t *testing.T, dir string) *FeedServer {
	t.Helper()
	fs := &FeedServer{}
	files := http.FileServer(http.Dir(dir))
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.requests.Add(1)
		logger.Debug("feed request", logger.Fields{"path": r.URL.Path})
		files.ServeHTTP(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

// Requests returns how many requests the server has answered.
func (fs *FeedServer) Requests() int64 {
	return fs.requests.Load()
}

// Source is a source entry written by SetupTestConfig.
type Source struct {
	Name string
	URL  string
}

// SetupTestConfig writes a configuration using cacheDir and the given sources to a
// temporary directory and returns its path.
func SetupTestConfig(t *testing.T, cacheDir string, sources ...Source) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("settings:\n")
	b.WriteString("  cache_dir: " + cacheDir + "\n")
	b.WriteString("  lock_timeout: 10s\n")
	b.WriteString("  http_timeout: 5s\n")
	if len(sources) == 0 {
		b.WriteString("sources: []\n")
	} else {
		b.WriteString("sources:\n")
		for i, s := range sources {
			b.WriteString("  - name: " + s.Name + "\n")
			b.WriteString("    url: " + s.URL + "\n")
			b.WriteString("    priority: " + strconv.Itoa(i) + "\n")
		}
	}

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}
