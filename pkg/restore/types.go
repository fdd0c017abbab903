//go:generate mockgen -destination=./mocks/restore.go . LibraryProvider,LibraryInstaller

package restore

import (
	"context"
	"io"

	"github.com/glorpus-work/librestore/pkg/framework"
	"github.com/glorpus-work/librestore/pkg/installer"
	"github.com/glorpus-work/librestore/pkg/lockfile"
	"github.com/glorpus-work/librestore/pkg/model"
)

// LibraryProvider is the subset of provider.Provider used by the restorer.
type LibraryProvider interface {
	FindLibrary(ctx context.Context, r model.LibraryRange, target framework.Framework) (*model.LibraryIdentity, error)
	GetDependencies(ctx context.Context, id *model.LibraryIdentity, target framework.Framework) ([]model.LibraryDependency, error)
	CopyTo(ctx context.Context, id *model.LibraryIdentity, w io.Writer) error
}

// LibraryInstaller is the subset of installer.Installer used by the restorer.
type LibraryInstaller interface {
	Install(ctx context.Context, content io.ReadSeeker, id *model.LibraryIdentity) (*installer.Result, error)
}

// Event represents a simple progress notification.
type Event struct {
	Phase string // resolving|resolved|unresolved|cached|downloading|installing|installed|done
	ID    string // library key
	Msg   string
}

// Hooks carries callbacks for progress events. OnEvent may be called from several
// goroutines at once while libraries are installed.
type Hooks struct {
	OnEvent func(Event)
}

// Request is what to restore.
type Request struct {
	Dependencies      []model.LibraryDependency
	Framework         framework.Framework
	RuntimeIdentifier string
	// IncludePrerelease lets every range in the walk accept pre-release versions.
	IncludePrerelease bool
}

// Options control restore execution.
type Options struct {
	// Concurrency bounds parallel installs. Values below one mean one.
	Concurrency int
	// DryRun resolves the graph without downloading or installing anything.
	DryRun bool
	// TempDir holds downloads while they are installed. Empty means the system default.
	TempDir string
}

// ResolvedLibrary is a node of the resolved graph.
type ResolvedLibrary struct {
	Identity     *model.LibraryIdentity
	Dependencies []model.LibraryDependency
	provider     LibraryProvider
}

// Conflict records a range that was not honored because an earlier request for the same
// library already chose a version outside it.
type Conflict struct {
	Requested model.LibraryRange
	Chosen    *model.LibraryIdentity
}

// Result is the outcome of a restore.
type Result struct {
	// Libraries in the order they were resolved.
	Libraries  []*ResolvedLibrary
	Unresolved []model.LibraryRange
	Conflicts  []Conflict
	// Installed lists the libraries this restore extracted; the rest were already cached.
	Installed []*model.LibraryIdentity
	// LockFile is nil for dry runs.
	LockFile *lockfile.LockFile
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}
