package lockfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	liberrors "github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/framework"
	"github.com/glorpus-work/librestore/pkg/versioning"
	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ver(s string) *version.Version {
	return version.Must(version.NewVersion(s))
}

func sampleLockFile() *LockFile {
	lf := New()
	lf.SetLibrary(&LockFileLibrary{
		Name:          "Newtonsoft.Json",
		Version:       ver("9.0.1"),
		IsServiceable: true,
		Sha512:        "abc==",
		Files:         []string{"Newtonsoft.Json.libspec", "lib/net45/Newtonsoft.Json.dll"},
	})
	target := lf.GetOrAddTarget(framework.MustParse("net45"), "")
	target.Libraries = append(target.Libraries, &LockFileTargetLibrary{
		Name:    "Newtonsoft.Json",
		Version: ver("9.0.1"),
		Dependencies: []PackageDependency{
			{ID: "System.Runtime", VersionRange: versioning.MustParse("[4.0.0,)")},
		},
		FrameworkAssemblies:   []string{"System.Xml"},
		RuntimeAssemblies:     []string{"lib/net45/Newtonsoft.Json.dll"},
		CompileTimeAssemblies: []string{"lib/net45/Newtonsoft.Json.dll"},
	})
	return lf
}

func TestLockFile_Lookups(t *testing.T) {
	lf := sampleLockFile()

	assert.NotNil(t, lf.GetLibrary("newtonsoft.json", ver("9.0.1")))
	assert.Nil(t, lf.GetLibrary("Newtonsoft.Json", ver("9.0.2")))

	target := lf.GetTarget(framework.MustParse("net45"), "")
	require.NotNil(t, target)
	assert.NotNil(t, target.GetLibrary("Newtonsoft.Json"))
	assert.Nil(t, target.GetLibrary("Other"))
	assert.Nil(t, lf.GetTarget(framework.MustParse("net45"), "win-x64"))

	same := lf.GetOrAddTarget(framework.MustParse("net45"), "")
	assert.Same(t, target, same)
	lf.GetOrAddTarget(framework.MustParse("net45"), "win-x64")
	assert.Len(t, lf.Targets, 2)
}

func TestLockFile_SetLibraryReplaces(t *testing.T) {
	lf := sampleLockFile()
	lf.SetLibrary(&LockFileLibrary{Name: "Newtonsoft.Json", Version: ver("9.0.1"), Sha512: "new"})
	require.Len(t, lf.Libraries, 1)
	assert.Equal(t, "new", lf.Libraries[0].Sha512)
}

func TestLockFile_Equal(t *testing.T) {
	a, b := sampleLockFile(), sampleLockFile()
	assert.True(t, a.Equal(b))

	b.Libraries[0].Files = []string{"lib/net45/Newtonsoft.Json.dll", "Newtonsoft.Json.libspec"}
	assert.False(t, a.Equal(b), "file order is significant")

	c := sampleLockFile()
	c.Targets[0].Libraries[0].Dependencies[0].VersionRange = versioning.MustParse("[4.1.0,)")
	assert.False(t, a.Equal(c))

	d := sampleLockFile()
	d.Targets[0].RuntimeIdentifier = "linux-x64"
	assert.False(t, a.Equal(d))

	var nilLock *LockFile
	assert.True(t, nilLock.Equal(nil))
	assert.False(t, a.Equal(nil))
}

func TestLockFile_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)
	lf := sampleLockFile()
	require.NoError(t, lf.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, lf.Equal(loaded))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"framework": "net45"`)
	assert.Contains(t, string(data), `"range": "4.0.0"`)
}

func TestLockFile_SaveLoad_PrereleaseRange(t *testing.T) {
	rng, err := versioning.CreateRange("[1.0.0,2.0.0)", true)
	require.NoError(t, err)
	lf := sampleLockFile()
	lib := lf.Targets[0].Libraries[0]
	lib.Dependencies = append(lib.Dependencies, PackageDependency{ID: "Preview.Lib", VersionRange: rng})

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, lf.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.True(t, lf.Equal(loaded), "persisted ranges compare by their bounds")
	assert.False(t, loaded.Targets[0].Libraries[0].Dependencies[1].VersionRange.IncludePrerelease)
}

func TestRead_Invalid(t *testing.T) {
	_, err := Read(strings.NewReader("{"))
	assert.ErrorIs(t, err, liberrors.ErrFormat)

	_, err = Read(strings.NewReader(`{"version": 99}`))
	assert.ErrorIs(t, err, liberrors.ErrFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, sampleLockFile().Write(buf))
	again, err := Read(buf)
	require.NoError(t, err)
	assert.True(t, sampleLockFile().Equal(again))
}
