// Package framework models target frameworks ("net45", "netstandard1.5", ...) and the
// compatibility rules used to pick the nearest dependency group for a project.
package framework

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/hashicorp/go-version"
)

// Framework identifiers.
const (
	NetFramework = ".NETFramework"
	NetStandard  = ".NETStandard"
	NetCoreApp   = ".NETCoreApp"
	DNX          = "DNX"
	DNXCore      = "DNXCore"
	Any          = "Any"
)

var shortNames = []struct {
	prefix     string
	identifier string
	dotted     bool
}{
	// Longer prefixes first so "netstandard" is not read as "net".
	{"netstandard", NetStandard, true},
	{"netcoreapp", NetCoreApp, true},
	{"dnxcore", DNXCore, false},
	{"dnx", DNX, false},
	{"net", NetFramework, false},
}

// Framework is a parsed target framework. The zero value is not valid; use Parse or AnyFramework.
type Framework struct {
	Identifier string
	Version    *version.Version
}

// AnyFramework returns the framework used by groups that apply to every target.
func AnyFramework() Framework {
	return Framework{Identifier: Any, Version: version.Must(version.NewVersion("0.0"))}
}

// New builds a framework from an identifier and a dotted version string.
func New(identifier, ver string) (Framework, error) {
	v, err := version.NewVersion(ver)
	if err != nil {
		return Framework{}, errors.Wrapf(errors.ErrInvalidFramework, "%s %s: %v", identifier, ver, err)
	}
	return Framework{Identifier: identifier, Version: v}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Framework {
	f, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Parse accepts short folder names (net461, netstandard2.0, dnxcore50), full names of the
// form ".NETFramework,Version=v4.5", and "any" or the empty string for AnyFramework.
func Parse(s string) (Framework, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if lower == "" || lower == "any" {
		return AnyFramework(), nil
	}

	if id, ver, ok := strings.Cut(s, ",Version="); ok {
		ver = strings.TrimPrefix(strings.TrimPrefix(ver, "v"), "V")
		for _, known := range []string{NetFramework, NetStandard, NetCoreApp, DNX, DNXCore} {
			if strings.EqualFold(id, known) {
				return New(known, ver)
			}
		}
		return Framework{}, errors.Wrapf(errors.ErrInvalidFramework, "%q: unknown identifier", s)
	}

	for _, sn := range shortNames {
		if !strings.HasPrefix(lower, sn.prefix) {
			continue
		}
		rest := lower[len(sn.prefix):]
		if rest == "" {
			return Framework{}, errors.Wrapf(errors.ErrInvalidFramework, "%q: missing version", s)
		}
		ver, err := shortVersion(rest, sn.dotted)
		if err != nil {
			return Framework{}, errors.Wrapf(errors.ErrInvalidFramework, "%q: %v", s, err)
		}
		return New(sn.identifier, ver)
	}
	return Framework{}, errors.Wrapf(errors.ErrInvalidFramework, "%q: unknown framework", s)
}

// shortVersion turns "461" into "4.6.1". Dotted forms are returned unchanged.
func shortVersion(rest string, dotted bool) (string, error) {
	if strings.Contains(rest, ".") {
		return rest, nil
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("unexpected %q in version", r)
		}
	}
	if dotted && len(rest) > 1 {
		// "netstandard15" is accepted as an alias of netstandard1.5.
		return rest[:1] + "." + rest[1:], nil
	}
	parts := strings.Split(rest, "")
	if len(parts) == 1 {
		parts = append(parts, "0")
	}
	return strings.Join(parts, "."), nil
}

// IsAny reports whether the framework applies to every target.
func (f Framework) IsAny() bool {
	return f.Identifier == Any
}

// IsDesktop reports whether the framework is a full desktop runtime.
func (f Framework) IsDesktop() bool {
	return f.Identifier == NetFramework || f.Identifier == DNX
}

// Equal compares identifier and version.
func (f Framework) Equal(o Framework) bool {
	if f.Identifier != o.Identifier {
		return false
	}
	if f.Version == nil || o.Version == nil {
		return f.Version == o.Version
	}
	return f.Version.Equal(o.Version)
}

// DotNetFrameworkName renders the long form, e.g. ".NETFramework,Version=v4.5".
func (f Framework) DotNetFrameworkName() string {
	if f.IsAny() {
		return Any
	}
	return fmt.Sprintf("%s,Version=v%s", f.Identifier, f.shortDotted())
}

// String renders the short folder name, e.g. "net45" or "netstandard1.5".
func (f Framework) String() string {
	switch f.Identifier {
	case Any:
		return "any"
	case NetStandard:
		return "netstandard" + f.shortDotted()
	case NetCoreApp:
		return "netcoreapp" + f.shortDotted()
	case DNXCore:
		return "dnxcore" + f.digits()
	case DNX:
		return "dnx" + f.digits()
	case NetFramework:
		return "net" + f.digits()
	default:
		return f.Identifier + f.shortDotted()
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Framework) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Framework) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// segments returns the version without trailing zero segments beyond major.minor.
func (f Framework) segments() []int {
	if f.Version == nil {
		return []int{0, 0}
	}
	segs := f.Version.Segments()
	for len(segs) > 2 && segs[len(segs)-1] == 0 {
		segs = segs[:len(segs)-1]
	}
	for len(segs) < 2 {
		segs = append(segs, 0)
	}
	return segs
}

func (f Framework) shortDotted() string {
	segs := f.segments()
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = strconv.Itoa(s)
	}
	return strings.Join(out, ".")
}

func (f Framework) digits() string {
	var b strings.Builder
	for _, s := range f.segments() {
		b.WriteString(strconv.Itoa(s))
	}
	return b.String()
}
