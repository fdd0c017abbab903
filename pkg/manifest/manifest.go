// Package manifest reads and writes library manifests (<name>.libspec), the YAML document
// at the root of every library archive describing its identity and dependencies.
package manifest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/glorpus-work/librestore/pkg/errors"
	"github.com/glorpus-work/librestore/pkg/framework"
	"github.com/glorpus-work/librestore/pkg/model"
	"github.com/glorpus-work/librestore/pkg/versioning"
	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"
)

// Extension is the file extension of a manifest.
const Extension = ".libspec"

// FileName returns the manifest file name for a library.
func FileName(name string) string {
	return name + Extension
}

// Manifest describes a library.
type Manifest struct {
	ID                       string                    `yaml:"id"`
	Version                  string                    `yaml:"version"`
	Description              string                    `yaml:"description,omitempty"`
	Authors                  []string                  `yaml:"authors,omitempty"`
	Serviceable              bool                      `yaml:"serviceable,omitempty"`
	DependencyGroups         []DependencyGroup         `yaml:"dependency_groups,omitempty"`
	FrameworkReferenceGroups []FrameworkReferenceGroup `yaml:"framework_reference_groups,omitempty"`
}

// DependencyGroup lists the package dependencies of a library for one target framework.
// An empty TargetFramework applies to every framework.
type DependencyGroup struct {
	TargetFramework string       `yaml:"target_framework,omitempty"`
	Dependencies    []Dependency `yaml:"dependencies,omitempty"`
}

// FrameworkReferenceGroup lists platform reference assemblies for one target framework.
type FrameworkReferenceGroup struct {
	TargetFramework string   `yaml:"target_framework,omitempty"`
	References      []string `yaml:"references,omitempty"`
}

// Dependency is a package dependency as written in a manifest.
type Dependency struct {
	ID      string `yaml:"id"`
	Version string `yaml:"version,omitempty"`
	Type    string `yaml:"type,omitempty"`
}

// Parse decodes and validates a manifest. Any problem is reported as errors.ErrFormat.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrapf(errors.ErrFormat, "failed to decode manifest: %v", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseBytes is Parse over a byte slice.
func ParseBytes(data []byte) (*Manifest, error) {
	return Parse(bytes.NewReader(data))
}

// Validate checks identity, framework names, version ranges and dependency types.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.Wrap(errors.ErrFormat, "manifest id is required")
	}
	if _, err := version.NewVersion(m.Version); err != nil {
		return errors.Wrapf(errors.ErrFormat, "manifest %s has invalid version %q", m.ID, m.Version)
	}
	for _, g := range m.DependencyGroups {
		if _, err := parseFramework(g.TargetFramework); err != nil {
			return errors.Wrapf(errors.ErrFormat, "manifest %s: %v", m.ID, err)
		}
		for _, d := range g.Dependencies {
			if strings.TrimSpace(d.ID) == "" {
				return errors.Wrapf(errors.ErrFormat, "manifest %s: dependency without id", m.ID)
			}
			if _, err := d.VersionRange(); err != nil {
				return errors.Wrapf(errors.ErrFormat, "manifest %s: dependency %s: %v", m.ID, d.ID, err)
			}
			if _, err := model.ParseDependencyType(d.Type); err != nil {
				return errors.Wrapf(errors.ErrFormat, "manifest %s: dependency %s: %v", m.ID, d.ID, err)
			}
		}
	}
	for _, g := range m.FrameworkReferenceGroups {
		if _, err := parseFramework(g.TargetFramework); err != nil {
			return errors.Wrapf(errors.ErrFormat, "manifest %s: %v", m.ID, err)
		}
	}
	return nil
}

// Identity returns the package identity declared by the manifest.
func (m *Manifest) Identity() (*model.LibraryIdentity, error) {
	v, err := version.NewVersion(m.Version)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrFormat, "manifest %s has invalid version %q", m.ID, m.Version)
	}
	return model.NewPackageIdentity(m.ID, v), nil
}

// Encode writes the manifest as YAML.
func (m *Manifest) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return enc.Close()
}

// Framework returns the parsed target framework of the group.
func (g DependencyGroup) Framework() framework.Framework {
	f, _ := parseFramework(g.TargetFramework)
	return f
}

// Framework returns the parsed target framework of the group.
func (g FrameworkReferenceGroup) Framework() framework.Framework {
	f, _ := parseFramework(g.TargetFramework)
	return f
}

// VersionRange returns the parsed range, or nil when the dependency accepts any version.
func (d Dependency) VersionRange() (*versioning.VersionRange, error) {
	if strings.TrimSpace(d.Version) == "" {
		return nil, nil
	}
	return versioning.Parse(d.Version)
}

// DependencyType returns the parsed dependency type, DependencyTypeDefault when unset or invalid.
func (d Dependency) DependencyType() model.DependencyType {
	t, err := model.ParseDependencyType(d.Type)
	if err != nil {
		return model.DependencyTypeDefault
	}
	return t
}

// parseFramework treats an unset framework as applying to every target.
func parseFramework(s string) (framework.Framework, error) {
	if strings.TrimSpace(s) == "" {
		return framework.AnyFramework(), nil
	}
	return framework.Parse(s)
}
