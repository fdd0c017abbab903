package model

import (
	"fmt"
	"strings"
)

// DependencyTypeFlag is a single aspect of how a dependency is consumed.
type DependencyTypeFlag uint32

const (
	FlagMainReference DependencyTypeFlag = 1 << iota
	FlagMainSource
	FlagMainExport
	FlagPreprocessReference
	FlagRuntimeComponent
	FlagDevComponent
	FlagPreprocessComponent
	FlagBecomesPackageDependency
)

var flagNames = []struct {
	flag DependencyTypeFlag
	name string
}{
	{FlagMainReference, "MainReference"},
	{FlagMainSource, "MainSource"},
	{FlagMainExport, "MainExport"},
	{FlagPreprocessReference, "PreprocessReference"},
	{FlagRuntimeComponent, "RuntimeComponent"},
	{FlagDevComponent, "DevComponent"},
	{FlagPreprocessComponent, "PreprocessComponent"},
	{FlagBecomesPackageDependency, "BecomesPackageDependency"},
}

// DependencyType is a set of DependencyTypeFlag values.
type DependencyType uint32

// Predefined dependency types, addressable by keyword in manifests and project files.
const (
	DependencyTypeDefault = DependencyType(FlagMainReference | FlagMainSource | FlagMainExport |
		FlagRuntimeComponent | FlagBecomesPackageDependency)
	DependencyTypeBuild      = DependencyType(FlagMainSource | FlagPreprocessComponent)
	DependencyTypePreprocess = DependencyType(FlagPreprocessReference)
	DependencyTypePrivate    = DependencyType(FlagMainReference | FlagMainSource | FlagRuntimeComponent |
		FlagBecomesPackageDependency)
	DependencyTypeDev = DependencyType(FlagDevComponent)
)

var dependencyTypeKeywords = map[string]DependencyType{
	"default":    DependencyTypeDefault,
	"build":      DependencyTypeBuild,
	"preprocess": DependencyTypePreprocess,
	"private":    DependencyTypePrivate,
	"dev":        DependencyTypeDev,
}

// ParseDependencyType reads a keyword ("default", "build", ...) or a comma separated
// list of keywords, which are combined. The empty string yields DependencyTypeDefault.
func ParseDependencyType(s string) (DependencyType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DependencyTypeDefault, nil
	}
	var t DependencyType
	for _, part := range strings.Split(s, ",") {
		kw, ok := dependencyTypeKeywords[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return 0, fmt.Errorf("unknown dependency type %q", part)
		}
		t |= kw
	}
	return t, nil
}

// Contains reports whether flag is part of the set.
func (t DependencyType) Contains(flag DependencyTypeFlag) bool {
	return DependencyType(flag)&t == DependencyType(flag)
}

func (t DependencyType) String() string {
	for kw, v := range dependencyTypeKeywords {
		if v == t {
			return kw
		}
	}
	var names []string
	for _, fn := range flagNames {
		if t.Contains(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, ",")
}

// LibraryDependency is an edge from a library to a requested range.
type LibraryDependency struct {
	LibraryRange LibraryRange   `json:"libraryRange"`
	Type         DependencyType `json:"type"`
}

// NewDependency returns a dependency with the default type.
func NewDependency(r LibraryRange) LibraryDependency {
	return LibraryDependency{LibraryRange: r, Type: DependencyTypeDefault}
}

// Name returns the name of the requested library.
func (d LibraryDependency) Name() string {
	return d.LibraryRange.Name
}

// HasFlag reports whether the dependency type includes flag.
func (d LibraryDependency) HasFlag(flag DependencyTypeFlag) bool {
	return d.Type.Contains(flag)
}

func (d LibraryDependency) String() string {
	return d.LibraryRange.String() + " " + d.Type.String()
}
