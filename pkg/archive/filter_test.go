package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFilter(t *testing.T) {
	tests := map[string]bool{
		"_rels/.rels":         false,
		".rels":               false,
		"[Content_Types].xml": false,
		"package/services/metadata/core-properties/x.psmdcp": false,
		"lib/net45/Lib.dll":       true,
		"Lib.libspec":             true,
		"content/readme.rels.txt": true,
		"lib/":                    true,
	}
	for name, expected := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, expected, DefaultFilter(name))
		})
	}
}

func TestAll(t *testing.T) {
	noDLL := func(name string) bool { return name != "a.dll" }
	f := All(DefaultFilter, noDLL, nil)
	assert.False(t, f("a.dll"))
	assert.False(t, f(".rels"))
	assert.True(t, f("b.dll"))
}

func TestScriptFilter(t *testing.T) {
	f, err := ScriptFilter(`
text := import("text")
include = !text.has_suffix(name, ".pdb")
`)
	require.NoError(t, err)
	assert.True(t, f("lib/net45/Lib.dll"))
	assert.False(t, f("lib/net45/Lib.pdb"))

	t.Run("compile error", func(t *testing.T) {
		_, err := ScriptFilter(`include = (`)
		assert.Error(t, err)
	})

	t.Run("runtime error excludes", func(t *testing.T) {
		f, err := ScriptFilter(`include = name / 2`)
		require.NoError(t, err)
		assert.False(t, f("short"))
	})

	t.Run("default keeps everything", func(t *testing.T) {
		f, err := ScriptFilter(`// keep all`)
		require.NoError(t, err)
		assert.True(t, f("anything"))
	})
}
