package archive

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEntry(t *testing.T) {
	src := buildZip(t,
		entry{"lib/Nested.libspec", "nested"},
		entry{"Lib.LIBSPEC", "top"},
	)

	name, content, err := ReadEntry(context.Background(), src, TopLevelWithExtension(".libspec"))
	require.NoError(t, err)
	assert.Equal(t, "Lib.LIBSPEC", name)
	assert.Equal(t, "top", string(content))

	_, _, err = ReadEntry(context.Background(), src, TopLevelWithExtension(".nuspec"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestEntries(t *testing.T) {
	names, err := Entries(context.Background(), buildZip(t, entry{"a", "1"}, entry{"b/c", "2"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b/c"}, names)
}
