package framework

import (
	"testing"

	liberrors "github.com/glorpus-work/librestore/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input      string
		identifier string
		short      string
	}{
		{"net45", NetFramework, "net45"},
		{"net461", NetFramework, "net461"},
		{"NET40", NetFramework, "net40"},
		{"net4", NetFramework, "net40"},
		{"netstandard1.5", NetStandard, "netstandard1.5"},
		{"netstandard15", NetStandard, "netstandard1.5"},
		{"netstandard2.0", NetStandard, "netstandard2.0"},
		{"netcoreapp3.0", NetCoreApp, "netcoreapp3.0"},
		{"dnx451", DNX, "dnx451"},
		{"dnxcore50", DNXCore, "dnxcore50"},
		{".NETFramework,Version=v4.5", NetFramework, "net45"},
		{".NETStandard,Version=v2.0", NetStandard, "netstandard2.0"},
		{"any", Any, "any"},
		{"", Any, "any"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.identifier, f.Identifier)
			assert.Equal(t, tt.short, f.String())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"net", "netfoo", "uap10.0", "Silverlight,Version=v5.0", "netstandard1.x"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, liberrors.ErrInvalidFramework)
		})
	}
}

func TestDotNetFrameworkName(t *testing.T) {
	assert.Equal(t, ".NETFramework,Version=v4.6.1", MustParse("net461").DotNetFrameworkName())
	assert.Equal(t, ".NETStandard,Version=v1.5", MustParse("netstandard1.5").DotNetFrameworkName())
	assert.Equal(t, "Any", AnyFramework().DotNetFrameworkName())
}

func TestIsDesktop(t *testing.T) {
	assert.True(t, MustParse("net45").IsDesktop())
	assert.True(t, MustParse("dnx451").IsDesktop())
	assert.False(t, MustParse("dnxcore50").IsDesktop())
	assert.False(t, MustParse("netstandard2.0").IsDesktop())
	assert.False(t, AnyFramework().IsDesktop())
}

func TestTextMarshaling(t *testing.T) {
	var f Framework
	require.NoError(t, f.UnmarshalText([]byte("net46")))
	assert.True(t, f.Equal(MustParse("net46")))
	text, err := f.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "net46", string(text))
}
