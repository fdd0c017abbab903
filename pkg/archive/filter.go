package archive

import (
	"path"
	"strings"
)

// Filter decides whether an archive entry is extracted. It receives the decoded entry
// name relative to the archive root, using forward slashes.
type Filter func(name string) bool

// DefaultFilter skips the packaging bookkeeping entries that are not library content:
// relationship parts (".rels"), the content types part and core-properties parts.
func DefaultFilter(name string) bool {
	base := path.Base(strings.TrimSuffix(name, "/"))
	switch base {
	case ".rels", "[Content_Types].xml":
		return false
	}
	return path.Ext(base) != ".psmdcp"
}

// IncludeAll accepts every entry.
func IncludeAll(string) bool { return true }

// All combines filters; an entry is included only if every filter includes it.
func All(filters ...Filter) Filter {
	return func(name string) bool {
		for _, f := range filters {
			if f != nil && !f(name) {
				return false
			}
		}
		return true
	}
}
