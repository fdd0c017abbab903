package restore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glorpus-work/librestore/pkg/framework"
	"github.com/glorpus-work/librestore/pkg/lockfile"
	"github.com/glorpus-work/librestore/pkg/manifest"
	"github.com/glorpus-work/librestore/pkg/provider"
)

// ProjectRequest builds the request for a project described by a manifest: the
// dependency and reference groups nearest to target become the root dependencies.
func ProjectRequest(m *manifest.Manifest, target framework.Framework, rid string) (Request, error) {
	deps, _ := provider.SelectNearestGroup(m.DependencyGroups, target, manifest.DependencyGroup.Framework)
	refs, _ := provider.SelectNearestGroup(m.FrameworkReferenceGroups, target, manifest.FrameworkReferenceGroup.Framework)
	list, err := provider.BuildDependencyList(target, deps, refs)
	if err != nil {
		return Request{}, fmt.Errorf("%s: %w", m.ID, err)
	}
	return Request{Dependencies: list, Framework: target, RuntimeIdentifier: rid}, nil
}

// LoadProject reads the project manifest at path.
func LoadProject(path string) (*manifest.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open project %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	m, err := manifest.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LockFilePath returns where the lock file of the project at projectPath is written.
func LockFilePath(projectPath string) string {
	return filepath.Join(filepath.Dir(projectPath), lockfile.FileName)
}
