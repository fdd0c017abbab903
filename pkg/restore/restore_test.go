package restore

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glorpus-work/librestore/pkg/cache"
	liberrors "github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/filelock"
	"github.com/glorpus-work/librestore/pkg/framework"
	"github.com/glorpus-work/librestore/pkg/installer"
	"github.com/glorpus-work/librestore/pkg/model"
	"github.com/glorpus-work/librestore/pkg/provider"
	rsmocks "github.com/glorpus-work/librestore/pkg/restore/mocks"
	"github.com/glorpus-work/librestore/pkg/source"
	"github.com/glorpus-work/librestore/pkg/versioning"
	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func writeLibrary(t *testing.T, dir, fileName string, files map[string]string) {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), buf.Bytes(), 0o644))
}

func testFeed(t *testing.T) string {
	dir := t.TempDir()
	writeLibrary(t, dir, "A.1.0.0.lpkg", map[string]string{
		"A.libspec": `id: A
version: 1.0.0
dependency_groups:
  - target_framework: net45
    dependencies:
      - id: B
        version: "[1.0.0, 2.0.0)"
framework_reference_groups:
  - target_framework: net45
    references: [System.Xml]
`,
		"lib/net45/A.dll": "a",
	})
	writeLibrary(t, dir, "B.1.0.0.lpkg", map[string]string{
		"B.libspec":       "id: B\nversion: 1.0.0\n",
		"lib/net40/B.dll": "b1",
	})
	writeLibrary(t, dir, "B.1.5.0.lpkg", map[string]string{
		"B.libspec":                         "id: B\nversion: 1.5.0\nserviceable: true\n",
		"lib/net45/B.dll":                   "b15",
		"lib/netstandard1.0/B.dll":          "b15std",
		"ref/netstandard1.0/B.dll":          "b15ref",
		"runtimes/linux-x64/native/libb.so": "native",
		"runtimes/win-x64/native/b.dll":     "native",
	})
	writeLibrary(t, dir, "C.1.0.0.lpkg", map[string]string{
		"C.libspec": `id: C
version: 1.0.0
dependency_groups:
  - dependencies:
      - id: B
        version: "[2.0.0, )"
`,
		"lib/_._": "",
	})
	return dir
}

func dependency(name, rng string) model.LibraryDependency {
	var vr *versioning.VersionRange
	if rng != "" {
		vr = versioning.MustParse(rng)
	}
	return model.NewDependency(model.LibraryRange{Name: name, VersionRange: vr})
}

func newTestRestorer(t *testing.T, feedDir, cacheRoot string, hooks Hooks) *Restorer {
	t.Helper()
	p := provider.NewForSource(source.NewLocalFeed("test", feedDir, source.Options{}))
	inst := installer.New(cacheRoot, installer.WithLockOptions(filelock.Options{
		Timeout: 10 * time.Second, InitialInterval: time.Millisecond, MaxInterval: 10 * time.Millisecond,
	}))
	return New([]LibraryProvider{p}, inst, cache.NewManager(cacheRoot), hooks)
}

func identityNames(ids []*model.LibraryIdentity) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Name+"@"+id.VersionString())
	}
	return out
}

func TestRestore(t *testing.T) {
	feed := testFeed(t)
	cacheRoot := t.TempDir()

	var mu sync.Mutex
	phases := map[string]int{}
	hooks := Hooks{OnEvent: func(e Event) {
		mu.Lock()
		phases[e.Phase]++
		mu.Unlock()
	}}
	r := newTestRestorer(t, feed, cacheRoot, hooks)

	req := Request{
		Dependencies:      []model.LibraryDependency{dependency("A", "1.0.0"), dependency("C", "")},
		Framework:         framework.MustParse("net46"),
		RuntimeIdentifier: "linux-x64",
	}
	result, err := r.Restore(context.Background(), req, Options{Concurrency: 2, TempDir: t.TempDir()})
	require.NoError(t, err)

	var resolved []*model.LibraryIdentity
	for _, lib := range result.Libraries {
		resolved = append(resolved, lib.Identity)
	}
	assert.Equal(t, []string{"A@1.0.0", "C@1.0.0", "B@1.5.0"}, identityNames(resolved))
	assert.Equal(t, []string{"A@1.0.0", "B@1.5.0", "C@1.0.0"}, identityNames(result.Installed))
	assert.Empty(t, result.Unresolved)

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "B", result.Conflicts[0].Requested.Name)
	assert.Equal(t, "1.5.0", result.Conflicts[0].Chosen.VersionString())

	lf := result.LockFile
	require.NotNil(t, lf)
	require.Len(t, lf.Libraries, 3)
	assert.Equal(t, "A", lf.Libraries[0].Name)
	b := lf.GetLibrary("B", version.Must(version.NewVersion("1.5.0")))
	require.NotNil(t, b)
	assert.True(t, b.IsServiceable)
	assert.NotEmpty(t, b.Sha512)

	target := lf.GetTarget(framework.MustParse("net46"), "linux-x64")
	require.NotNil(t, target)
	tb := target.GetLibrary("B")
	require.NotNil(t, tb)
	assert.Equal(t, []string{"lib/net45/B.dll"}, tb.RuntimeAssemblies)
	assert.Equal(t, []string{"ref/netstandard1.0/B.dll"}, tb.CompileTimeAssemblies)
	assert.Equal(t, []string{"runtimes/linux-x64/native/libb.so"}, tb.NativeLibraries)

	ta := target.GetLibrary("A")
	require.NotNil(t, ta)
	assert.Equal(t, []string{"System.Xml"}, ta.FrameworkAssemblies)
	require.Len(t, ta.Dependencies, 1)
	assert.Equal(t, "B", ta.Dependencies[0].ID)

	tc := target.GetLibrary("C")
	require.NotNil(t, tc)
	assert.Empty(t, tc.RuntimeAssemblies, "placeholder files are not assets")

	assert.Equal(t, 3, phases["installed"])
	assert.Equal(t, 1, phases["done"])

	// A second restore finds everything in the cache.
	again, err := r.Restore(context.Background(), req, Options{Concurrency: 2})
	require.NoError(t, err)
	assert.Empty(t, again.Installed)
	assert.True(t, lf.Equal(again.LockFile))
}

func TestRestore_Unresolved(t *testing.T) {
	r := newTestRestorer(t, testFeed(t), t.TempDir(), Hooks{})
	req := Request{
		Dependencies: []model.LibraryDependency{dependency("A", "1.0.0"), dependency("Missing", "1.0.0")},
		Framework:    framework.MustParse("net46"),
	}
	result, err := r.Restore(context.Background(), req, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, liberrors.ErrNoCompatibleVersion)
	require.NotNil(t, result)
	require.Len(t, result.Unresolved, 1)
	assert.Equal(t, "Missing", result.Unresolved[0].Name)
	assert.Empty(t, result.Installed)
	assert.Nil(t, result.LockFile)
}

func TestRestore_IncludePrerelease(t *testing.T) {
	feed := testFeed(t)
	writeLibrary(t, feed, "B.1.9.0-beta.lpkg", map[string]string{"B.libspec": "id: B\nversion: 1.9.0-beta\n"})

	r := newTestRestorer(t, feed, t.TempDir(), Hooks{})
	req := Request{
		Dependencies: []model.LibraryDependency{dependency("B", "[1.0.0, 2.0.0)")},
		Framework:    framework.MustParse("net46"),
	}
	result, err := r.Restore(context.Background(), req, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", result.Libraries[0].Identity.VersionString())

	req.IncludePrerelease = true
	result, err = r.Restore(context.Background(), req, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "1.9.0-beta", result.Libraries[0].Identity.VersionString())
}

func TestRestore_DryRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := model.NewPackageIdentity("A", version.Must(version.NewVersion("1.0.0")))
	p := rsmocks.NewMockLibraryProvider(ctrl)
	p.EXPECT().FindLibrary(gomock.Any(), gomock.Any(), gomock.Any()).Return(id, nil)
	p.EXPECT().GetDependencies(gomock.Any(), id, gomock.Any()).Return(nil, nil)
	inst := rsmocks.NewMockLibraryInstaller(ctrl)

	r := New([]LibraryProvider{p}, inst, cache.NewManager(t.TempDir()), Hooks{})
	result, err := r.Restore(context.Background(), Request{
		Dependencies: []model.LibraryDependency{dependency("A", "")},
		Framework:    framework.MustParse("net45"),
	}, Options{DryRun: true})
	require.NoError(t, err)
	require.Len(t, result.Libraries, 1)
	assert.Nil(t, result.LockFile)
}

func TestRestore_ProviderOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := model.NewPackageIdentity("A", version.Must(version.NewVersion("2.0.0")))
	first := rsmocks.NewMockLibraryProvider(ctrl)
	first.EXPECT().FindLibrary(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	second := rsmocks.NewMockLibraryProvider(ctrl)
	second.EXPECT().FindLibrary(gomock.Any(), gomock.Any(), gomock.Any()).Return(id, nil)
	second.EXPECT().GetDependencies(gomock.Any(), id, gomock.Any()).Return(nil, nil)

	r := New([]LibraryProvider{first, second}, nil, nil, Hooks{})
	result, err := r.Restore(context.Background(), Request{
		Dependencies: []model.LibraryDependency{dependency("A", "")},
		Framework:    framework.MustParse("net45"),
	}, Options{DryRun: true})
	require.NoError(t, err)
	assert.Same(t, second, result.Libraries[0].provider)
}

func TestRestore_ProviderError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p := rsmocks.NewMockLibraryProvider(ctrl)
	p.EXPECT().FindLibrary(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, liberrors.ErrSourceUnavailable)

	r := New([]LibraryProvider{p}, rsmocks.NewMockLibraryInstaller(ctrl), cache.NewManager(t.TempDir()), Hooks{})
	_, err := r.Restore(context.Background(), Request{
		Dependencies: []model.LibraryDependency{dependency("A", "")},
		Framework:    framework.MustParse("net45"),
	}, Options{})
	assert.ErrorIs(t, err, liberrors.ErrSourceUnavailable)
}

func TestRestore_InstallError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := model.NewPackageIdentity("A", version.Must(version.NewVersion("1.0.0")))
	p := rsmocks.NewMockLibraryProvider(ctrl)
	p.EXPECT().FindLibrary(gomock.Any(), gomock.Any(), gomock.Any()).Return(id, nil)
	p.EXPECT().GetDependencies(gomock.Any(), id, gomock.Any()).Return(nil, nil)
	p.EXPECT().CopyTo(gomock.Any(), id, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *model.LibraryIdentity, w io.Writer) error {
			_, err := w.Write([]byte("not a zip"))
			return err
		})
	inst := rsmocks.NewMockLibraryInstaller(ctrl)
	inst.EXPECT().Install(gomock.Any(), gomock.Any(), id).Return(nil, liberrors.ErrFormat)

	r := New([]LibraryProvider{p}, inst, cache.NewManager(t.TempDir()), Hooks{})
	result, err := r.Restore(context.Background(), Request{
		Dependencies: []model.LibraryDependency{dependency("A", "")},
		Framework:    framework.MustParse("net45"),
	}, Options{TempDir: t.TempDir()})
	assert.ErrorIs(t, err, liberrors.ErrFormat)
	require.NotNil(t, result)
	assert.Nil(t, result.LockFile)
}

func TestRestore_Canceled(t *testing.T) {
	r := newTestRestorer(t, testFeed(t), t.TempDir(), Hooks{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Restore(ctx, Request{
		Dependencies: []model.LibraryDependency{dependency("A", "")},
		Framework:    framework.MustParse("net46"),
	}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRestore_NoProviders(t *testing.T) {
	_, err := New(nil, nil, nil, Hooks{}).Restore(context.Background(), Request{}, Options{})
	assert.Error(t, err)
}
