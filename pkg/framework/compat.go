package framework

import (
	"github.com/hashicorp/go-version"
)

type standardSupport struct {
	from     string
	standard string
}

// netstandard versions implemented by each platform, ascending by platform version.
var standardTable = map[string][]standardSupport{
	NetFramework: {
		{"4.5", "1.1"},
		{"4.5.1", "1.2"},
		{"4.6", "1.3"},
		{"4.6.1", "2.0"},
	},
	NetCoreApp: {
		{"1.0", "1.6"},
		{"2.0", "2.0"},
		{"3.0", "2.1"},
	},
	DNXCore: {
		{"5.0", "1.5"},
	},
	DNX: {
		{"4.5.1", "1.2"},
	},
}

// dnx451 also consumes desktop libraries up to its own version.
var desktopCompatible = map[string]string{
	DNX: NetFramework,
}

// SupportedStandard returns the highest netstandard version the platform implements,
// or nil when it implements none.
func SupportedStandard(f Framework) *version.Version {
	if f.Identifier == NetStandard {
		return f.Version
	}
	var best *version.Version
	for _, row := range standardTable[f.Identifier] {
		if f.Version.LessThan(version.Must(version.NewVersion(row.from))) {
			break
		}
		best = version.Must(version.NewVersion(row.standard))
	}
	return best
}

// IsCompatible reports whether a project targeting target can consume an asset built for candidate.
func IsCompatible(target, candidate Framework) bool {
	if candidate.IsAny() {
		return true
	}
	if target.IsAny() {
		return false
	}
	if target.Identifier == candidate.Identifier {
		return !candidate.Version.GreaterThan(target.Version)
	}
	if mapped, ok := desktopCompatible[target.Identifier]; ok && mapped == candidate.Identifier {
		return !candidate.Version.GreaterThan(target.Version)
	}
	if candidate.Identifier == NetStandard {
		supported := SupportedStandard(target)
		return supported != nil && !candidate.Version.GreaterThan(supported)
	}
	return false
}
