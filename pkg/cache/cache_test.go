package cache_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/librestore/pkg/cache"
	"github.com/glorpus-work/librestore/pkg/filelock"
	"github.com/glorpus-work/librestore/pkg/fsutil"
	"github.com/glorpus-work/librestore/pkg/model"
	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ver(s string) *version.Version {
	return version.Must(version.NewVersion(s))
}

func TestNewDefaultManager(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	mgr, err := cache.NewDefaultManager()
	require.NoError(t, err)
	require.NotNil(t, mgr)

	userCacheDir, err := os.UserCacheDir()
	require.NoError(t, err)

	expectedDir := filepath.Join(userCacheDir, "librestore", "packages")
	assert.Equal(t, expectedDir, mgr.GetDirectory())
}

func TestSetDirectory(t *testing.T) {
	tests := []struct {
		name        string
		directory   string
		expectError bool
	}{
		{
			name:        "valid directory",
			directory:   t.TempDir(),
			expectError: false,
		},
		{
			name:        "empty directory",
			directory:   "",
			expectError: true,
		},
		{
			name:        "non-existent directory",
			directory:   filepath.Join(t.TempDir(), "nonexistent"),
			expectError: false, // Should not error for non-existent dirs
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			mgr := cache.NewManager(t.TempDir())

			err := mgr.SetDirectory(testCase.directory)

			if testCase.expectError {
				require.ErrorIs(t, err, cache.ErrCacheDirectory)
			} else {
				require.NoError(t, err)
				assert.Equal(t, testCase.directory, mgr.GetDirectory())
				assert.Equal(t, testCase.directory, mgr.Paths().Root())
			}
		})
	}
}

func TestPathResolver(t *testing.T) {
	root := filepath.Join("cache", "root")
	r := cache.NewPathResolver(root)
	v := ver("9.0.1.0")

	assert.Equal(t, filepath.Join(root, "newtonsoft.json", "9.0.1"), r.InstallPath("Newtonsoft.Json", v))
	assert.Equal(t, filepath.Join(root, "newtonsoft.json", "9.0.1", "Newtonsoft.Json.9.0.1.lpkg"), r.ArchivePath("Newtonsoft.Json", v))
	assert.Equal(t, filepath.Join(root, "newtonsoft.json", "9.0.1", "Newtonsoft.Json.libspec"), r.ManifestPath("Newtonsoft.Json", v))
	assert.Equal(t, filepath.Join(root, "newtonsoft.json", "9.0.1", "Newtonsoft.Json.9.0.1.lpkg.sha512"), r.HashPath("Newtonsoft.Json", v))

	lock := r.LockPath(r.ArchivePath("Newtonsoft.Json", v))
	assert.Equal(t, filepath.Join(root, cache.LocksDirName), filepath.Dir(lock))
	assert.Equal(t, lock, r.LockPath(r.ArchivePath("newtonsoft.json", v)), "casing must not split the lock")
	assert.NotEqual(t, lock, r.LockPath(r.ArchivePath("Newtonsoft.Json", ver("9.0.2"))))
}

// installFake lays out a library directory; complete controls whether the marker is written.
func installFake(t *testing.T, root, name, v string, complete bool) {
	t.Helper()
	r := cache.NewPathResolver(root)
	dir := r.InstallPath(name, ver(v))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib", "net45"), fsutil.DirModeDefault))
	require.NoError(t, os.WriteFile(r.ArchivePath(name, ver(v)), []byte("archive"), fsutil.FileModeDefault))
	require.NoError(t, os.WriteFile(r.ManifestPath(name, ver(v)), []byte("id: "+name+"\nversion: "+v+"\nserviceable: true\n"), fsutil.FileModeDefault))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "net45", name+".dll"), []byte("dll"), fsutil.FileModeDefault))
	if complete {
		require.NoError(t, os.WriteFile(r.HashPath(name, ver(v)), []byte("c2hh"), fsutil.FileModeDefault))
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	installFake(t, root, "Zeta", "1.0.0", true)
	installFake(t, root, "Alpha.Lib", "2.0.0", true)
	installFake(t, root, "Alpha.Lib", "1.5.0", false)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "alpha.lib", "not-a-version"), fsutil.DirModeDefault))
	require.NoError(t, os.MkdirAll(filepath.Join(root, cache.LocksDirName), fsutil.DirModeDefault))

	entries, err := cache.NewManager(root).List()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Alpha.Lib", entries[0].Name)
	assert.Equal(t, "1.5.0", entries[0].Version.String())
	assert.False(t, entries[0].Complete)
	assert.Equal(t, "2.0.0", entries[1].Version.String())
	assert.True(t, entries[1].Complete)
	assert.Equal(t, "Zeta", entries[2].Name)
}

func TestList_MissingDirectory(t *testing.T) {
	entries, err := cache.NewManager(filepath.Join(t.TempDir(), "nope")).List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIsInstalledAndReadHash(t *testing.T) {
	root := t.TempDir()
	installFake(t, root, "Lib", "1.0.0", true)
	installFake(t, root, "Partial", "1.0.0", false)
	mgr := cache.NewManager(root)

	assert.True(t, mgr.IsInstalled("Lib", ver("1.0.0")))
	assert.True(t, mgr.IsInstalled("Lib", ver("1.0")), "versions are normalized")
	assert.False(t, mgr.IsInstalled("Partial", ver("1.0.0")))
	assert.False(t, mgr.IsInstalled("Missing", ver("1.0.0")))

	hash, err := mgr.ReadHash("Lib", ver("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "c2hh", hash)

	_, err = mgr.ReadHash("Partial", ver("1.0.0"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestIsInstalled_IgnoresCase(t *testing.T) {
	root := t.TempDir()
	installFake(t, root, "Lib", "1.0.0", true)
	mgr := cache.NewManager(root)

	assert.True(t, mgr.IsInstalled("lib", ver("1.0.0")))
	assert.True(t, mgr.IsInstalled("LIB", ver("1.0.0")))

	hash, err := mgr.ReadHash("lib", ver("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "c2hh", hash)

	marker, ok := mgr.Paths().FindHashPath("lib", ver("1.0.0"))
	require.True(t, ok)
	assert.Equal(t, "Lib.1.0.0.lpkg.sha512", filepath.Base(marker))

	lib, err := mgr.LockFileLibrary(model.NewPackageIdentity("lib", ver("1.0.0")))
	require.NoError(t, err)
	assert.True(t, lib.IsServiceable, "manifest found under its installed casing")
}

func TestGetInfo(t *testing.T) {
	root := t.TempDir()
	installFake(t, root, "Lib", "1.0.0", true)
	installFake(t, root, "Partial", "1.0.0", false)

	info, err := cache.NewManager(root).GetInfo()
	require.NoError(t, err)
	assert.Equal(t, root, info.Directory)
	assert.Equal(t, 1, info.Libraries)
	assert.Equal(t, 1, info.Incomplete)
	assert.Equal(t, 7, info.TotalFiles)
	assert.Positive(t, info.TotalSize)

	text := cache.FormatInfo(info)
	assert.Contains(t, text, "Cache Information:")
	assert.Contains(t, text, root)
}

func TestGetInfoEmptyCache(t *testing.T) {
	nonExistentDir := filepath.Join(t.TempDir(), "nonexistent")
	info, err := cache.NewManager(nonExistentDir).GetInfo()
	require.NoError(t, err)
	assert.Equal(t, nonExistentDir, info.Directory)
	assert.Equal(t, int64(0), info.TotalSize)
	assert.Equal(t, 0, info.Libraries)
}

func TestClean(t *testing.T) {
	root := t.TempDir()
	installFake(t, root, "Lib", "1.0.0", true)
	installFake(t, root, "Partial", "1.0.0", false)
	installFake(t, root, "Busy", "1.0.0", false)
	mgr := cache.NewManager(root)

	held, err := filelock.TryLock(mgr.Paths().LockPath(mgr.Paths().ArchivePath("Busy", ver("1.0.0"))))
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	result, err := mgr.Clean(cache.CleanOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, 1, result.Skipped)
	assert.Positive(t, result.FreedBytes)

	assert.NoDirExists(t, mgr.Paths().InstallPath("Partial", ver("1.0.0")))
	assert.DirExists(t, mgr.Paths().InstallPath("Busy", ver("1.0.0")))
	assert.DirExists(t, mgr.Paths().InstallPath("Lib", ver("1.0.0")))

	result, err = mgr.Clean(cache.CleanOptions{All: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
	assert.NoDirExists(t, mgr.Paths().InstallPath("Lib", ver("1.0.0")))
}

func TestLockFileLibrary(t *testing.T) {
	root := t.TempDir()
	installFake(t, root, "Lib", "1.0.0", true)
	mgr := cache.NewManager(root)

	lib, err := mgr.LockFileLibrary(model.NewPackageIdentity("Lib", ver("1.0.0")))
	require.NoError(t, err)
	assert.Equal(t, "Lib", lib.Name)
	assert.Equal(t, "c2hh", lib.Sha512)
	assert.True(t, lib.IsServiceable)
	assert.Equal(t, []string{
		"Lib.1.0.0.lpkg",
		"Lib.1.0.0.lpkg.sha512",
		"Lib.libspec",
		"lib/net45/Lib.dll",
	}, lib.Files)

	installFake(t, root, "Partial", "1.0.0", false)
	_, err = mgr.LockFileLibrary(model.NewPackageIdentity("Partial", ver("1.0.0")))
	assert.Error(t, err, "incomplete installs have no lock file entry")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", cache.FormatBytes(0))
	assert.Equal(t, "1.0 KB", cache.FormatBytes(1024))
	assert.Equal(t, "1.5 MB", cache.FormatBytes(1536*1024))
}
