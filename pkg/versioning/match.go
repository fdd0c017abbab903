package versioning

import (
	"strconv"
	"strings"

	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/hashicorp/go-version"
)

// FindBestMatch returns the highest version in versions that satisfies r, or nil.
// The result does not depend on the order of versions.
func FindBestMatch(versions []*version.Version, r *VersionRange) *version.Version {
	var best *version.Version
	for _, v := range versions {
		if !r.Satisfies(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	return best
}

// ParseVersions parses each string, skipping entries that are not valid versions.
func ParseVersions(raw []string) []*version.Version {
	out := make([]*version.Version, 0, len(raw))
	for _, s := range raw {
		v, err := version.NewVersion(s)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Normalize returns the canonical string form of a version string, as used in cache paths.
func Normalize(s string) (string, error) {
	v, err := version.NewVersion(s)
	if err != nil {
		return "", errors.Wrapf(errors.ErrInvalidVersion, "%q: %v", s, err)
	}
	return NormalizeVersion(v), nil
}

// NormalizeVersion renders v with at least three segments, dropping trailing zero
// segments beyond the third and any build metadata. Versions that compare equal
// normalize to the same string.
func NormalizeVersion(v *version.Version) string {
	segs := v.Segments64()
	for len(segs) > 3 && segs[len(segs)-1] == 0 {
		segs = segs[:len(segs)-1]
	}
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = strconv.FormatInt(s, 10)
	}
	out := strings.Join(parts, ".")
	if pre := v.Prerelease(); pre != "" {
		out += "-" + pre
	}
	return out
}
