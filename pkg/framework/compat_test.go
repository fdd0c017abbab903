package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCompatible(t *testing.T) {
	tests := []struct {
		target    string
		candidate string
		expected  bool
	}{
		{"net46", "net45", true},
		{"net45", "net46", false},
		{"net46", "netstandard1.3", true},
		{"net46", "netstandard1.5", false},
		{"net461", "netstandard2.0", true},
		{"net45", "any", true},
		{"netstandard1.5", "netstandard1.0", true},
		{"netstandard1.5", "net45", false},
		{"netcoreapp2.0", "netstandard2.0", true},
		{"netcoreapp1.0", "netstandard2.0", false},
		{"netcoreapp2.0", "net461", false},
		{"dnxcore50", "netstandard1.5", true},
		{"dnx451", "net45", true},
		{"dnx451", "net46", false},
		{"any", "net45", false},
	}

	for _, tt := range tests {
		t.Run(tt.target+" consumes "+tt.candidate, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsCompatible(MustParse(tt.target), MustParse(tt.candidate)))
		})
	}
}

func TestSupportedStandard(t *testing.T) {
	assert.Equal(t, "1.1.0", SupportedStandard(MustParse("net45")).String())
	assert.Equal(t, "1.3.0", SupportedStandard(MustParse("net46")).String())
	assert.Equal(t, "2.0.0", SupportedStandard(MustParse("net472")).String())
	assert.Nil(t, SupportedStandard(MustParse("net40")))
}
