package model

import (
	"testing"

	"github.com/glorpus-work/librestore/pkg/versioning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryDependency_NameComesFromRange(t *testing.T) {
	dep := NewDependency(LibraryRange{Name: "System.Runtime"})
	assert.Equal(t, "System.Runtime", dep.Name())

	dep.LibraryRange.Name = "System.Linq"
	assert.Equal(t, "System.Linq", dep.Name())
}

func TestLibraryDependency_HasFlag(t *testing.T) {
	dep := NewDependency(LibraryRange{Name: "x"})
	assert.True(t, dep.HasFlag(FlagMainReference))
	assert.True(t, dep.HasFlag(FlagBecomesPackageDependency))
	assert.False(t, dep.HasFlag(FlagDevComponent))

	dep.Type = DependencyTypeBuild
	assert.True(t, dep.HasFlag(FlagPreprocessComponent))
	assert.False(t, dep.HasFlag(FlagMainReference))
}

func TestParseDependencyType(t *testing.T) {
	tests := []struct {
		input    string
		expected DependencyType
		wantErr  bool
	}{
		{"", DependencyTypeDefault, false},
		{"Default", DependencyTypeDefault, false},
		{"build", DependencyTypeBuild, false},
		{"dev, preprocess", DependencyTypeDev | DependencyTypePreprocess, false},
		{"nope", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDependencyType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDependencyType_String(t *testing.T) {
	assert.Equal(t, "default", DependencyTypeDefault.String())
	assert.Equal(t, "build", DependencyTypeBuild.String())
	assert.Equal(t, "PreprocessReference,DevComponent", (DependencyTypeDev | DependencyTypePreprocess).String())
}

func TestLibraryRange(t *testing.T) {
	r := LibraryRange{Name: "Lib", VersionRange: versioning.MustParse("[1.0.0,2.0.0)")}
	assert.Equal(t, "Lib [1.0.0, 2.0.0)", r.String())
	assert.True(t, r.Allows(LibraryTypePackage))

	ref := LibraryRange{Name: "System.Xml", TypeConstraint: LibraryTypeReference}
	assert.Equal(t, "System.Xml (reference)", ref.String())
	assert.False(t, ref.Allows(LibraryTypePackage))
	assert.True(t, ref.Allows(LibraryTypeReference))

	assert.True(t, r.Equal(LibraryRange{Name: "lib", VersionRange: versioning.MustParse("[1.0.0,2.0.0)")}))
	assert.False(t, r.Equal(ref))

	dep := NewDependency(ref)
	assert.Equal(t, "System.Xml (reference) default", dep.String())
}
