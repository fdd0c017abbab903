package provider

import (
	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/framework"
	"github.com/glorpus-work/librestore/pkg/manifest"
	"github.com/glorpus-work/librestore/pkg/model"
)

// SelectNearestGroup returns the group whose framework is the most specific match for
// target, or false when no group is compatible. The returned pointer aliases groups.
func SelectNearestGroup[T any](groups []T, target framework.Framework, selector func(T) framework.Framework) (*T, bool) {
	idx := make([]int, len(groups))
	for i := range groups {
		idx[i] = i
	}
	i, ok := framework.GetNearest(idx, target, func(i int) framework.Framework {
		return selector(groups[i])
	})
	if !ok {
		return nil, false
	}
	return &groups[i], true
}

// BuildDependencyList turns the selected groups into dependency edges: package
// dependencies first, then framework references restricted to reference libraries.
// A reference group that applies to any framework only means desktop reference
// assemblies, so it is ignored for other targets.
func BuildDependencyList(target framework.Framework, deps *manifest.DependencyGroup, refs *manifest.FrameworkReferenceGroup) ([]model.LibraryDependency, error) {
	out := make([]model.LibraryDependency, 0)

	if deps != nil {
		for _, d := range deps.Dependencies {
			vr, err := d.VersionRange()
			if err != nil {
				return nil, errors.Wrapf(err, "dependency %s", d.ID)
			}
			out = append(out, model.LibraryDependency{
				LibraryRange: model.LibraryRange{Name: d.ID, VersionRange: vr},
				Type:         d.DependencyType(),
			})
		}
	}

	if refs == nil {
		return out, nil
	}
	if refs.Framework().IsAny() && !target.IsDesktop() {
		return out, nil
	}
	for _, name := range refs.References {
		out = append(out, model.NewDependency(model.LibraryRange{
			Name:           name,
			TypeConstraint: model.LibraryTypeReference,
		}))
	}
	return out, nil
}
