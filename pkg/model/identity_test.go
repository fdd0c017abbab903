package model

import (
	"testing"

	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
)

func ver(s string) *version.Version {
	return version.Must(version.NewVersion(s))
}

func TestLibraryIdentity_Equal(t *testing.T) {
	base := NewPackageIdentity("Newtonsoft.Json", ver("9.0.1"))

	tests := []struct {
		name     string
		other    *LibraryIdentity
		expected bool
	}{
		{"same values", NewPackageIdentity("Newtonsoft.Json", ver("9.0.1")), true},
		{"name differs in case only", NewPackageIdentity("newtonsoft.json", ver("9.0.1")), true},
		{"equivalent version spelling", NewPackageIdentity("Newtonsoft.Json", ver("9.0.1.0")), true},
		{"different version", NewPackageIdentity("Newtonsoft.Json", ver("9.0.2")), false},
		{"different type", &LibraryIdentity{Name: "Newtonsoft.Json", Version: ver("9.0.1"), Type: LibraryTypeProject}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, base.Equal(tt.other))
			if tt.expected {
				assert.Equal(t, base.Hash(), tt.other.Hash())
				assert.Equal(t, base.Key(), tt.other.Key())
			}
		})
	}
}

func TestLibraryIdentity_String(t *testing.T) {
	id := NewPackageIdentity("Lib", ver("1.0"))
	assert.Equal(t, "Lib 1.0.0 (package)", id.String())
	assert.Equal(t, "1.0.0", id.VersionString())
	assert.Equal(t, "", (&LibraryIdentity{Name: "x"}).VersionString())
}

func TestParseLibraryType(t *testing.T) {
	got, ok := ParseLibraryType("ExternalProject")
	assert.True(t, ok)
	assert.Equal(t, LibraryTypeExternalProject, got)

	_, ok = ParseLibraryType("bogus")
	assert.False(t, ok)
}
