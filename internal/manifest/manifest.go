// Package manifest parses dependency manifests (csproj, package.json,
// pyproject.toml, pom.xml, go.mod, Cargo.toml, Gemfile, composer.json, *.tf
// and friends) into a flat, ordered dependency list.
package manifest

import (
	"cmp"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"repoassess/internal/types"
)

// Dependency scopes shared by all parsers.
const (
	ScopeRuntime  = "runtime"
	ScopeCompile  = "compile"
	ScopeDev      = "dev"
	ScopeTest     = "test"
	ScopeBuild    = "build"
	ScopePeer     = "peer"
	ScopeOptional = "optional"
	ScopeProvided = "provided"
	ScopeIndirect = "indirect"
)

// ErrParse wraps every manifest decoding failure.
var ErrParse = errors.New("manifest: parse failed")

// Result is what a parser extracts from one manifest file.
type Result struct {
	Dependencies []types.ProjectDependency
	// Framework is the raw runtime/framework token (net8.0, >=18, go1.22, ...).
	Framework *string
	// Name is the manifest-declared project name, if any.
	Name *string
	// Entrypoints are repo-relative paths the manifest declares as entry files.
	Entrypoints []string
	// IsApplication is set when the manifest states the project builds an
	// executable or service rather than a library.
	IsApplication *bool
	// IsWeb is set when the manifest itself declares a web host (Microsoft.NET.Sdk.Web).
	IsWeb bool
}

// Parser decodes a single manifest format.
type Parser interface {
	// ProjectType is the project tag a manifest of this format establishes.
	ProjectType() types.ProjectType
	// Ecosystem is the package ecosystem name stamped on dependencies.
	Ecosystem() string
	// Match reports whether fileName (base name, any case) is handled.
	Match(fileName string) bool
	// Parse decodes data read from relPath.
	Parse(relPath string, data []byte) (Result, error)
}

// Registry holds parsers in priority order. It is immutable once built.
type Registry struct {
	parsers []Parser
}

// NewRegistry returns the default registry. Order is manifest priority within
// one directory: the first matching parser wins the primary manifest slot.
func NewRegistry() *Registry {
	return NewRegistryWith(
		solutionParser{},
		msbuildParser{},
		packagesConfigParser{},
		packageJSONParser{},
		pyprojectParser{},
		setupPyParser{},
		requirementsParser{},
		pipfileParser{},
		pomParser{},
		gradleParser{},
		goModParser{},
		cargoParser{},
		gemfileParser{},
		composerParser{},
		terraformParser{},
	)
}

// NewRegistryWith builds a registry from explicit parsers.
func NewRegistryWith(parsers ...Parser) *Registry {
	return &Registry{parsers: slices.Clone(parsers)}
}

// ForFile returns the parser for a base file name and its priority rank
// (lower wins). ok is false when no parser matches.
func (r *Registry) ForFile(fileName string) (p Parser, rank int, ok bool) {
	if r == nil {
		return nil, 0, false
	}
	base := path.Base(fileName)
	for i, candidate := range r.parsers {
		if candidate.Match(base) {
			return candidate, i, true
		}
	}
	return nil, 0, false
}

// Parse runs the matching parser for relPath and normalizes its result.
func (r *Registry) Parse(relPath string, data []byte) (Result, error) {
	p, _, ok := r.ForFile(relPath)
	if !ok {
		return Result{}, fmt.Errorf("manifest: no parser for %s", relPath)
	}
	res, err := p.Parse(relPath, data)
	if err != nil {
		return Result{}, err
	}
	res.Dependencies = Normalize(res.Dependencies)
	if res.Entrypoints == nil {
		res.Entrypoints = []string{}
	}
	return res, nil
}

// Normalize deduplicates by (ecosystem, group, name, scope), keeping the first
// occurrence, and orders by (group, name, scope). The result is never nil.
func Normalize(deps []types.ProjectDependency) []types.ProjectDependency {
	out := make([]types.ProjectDependency, 0, len(deps))
	seen := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		if strings.TrimSpace(d.Name) == "" {
			continue
		}
		k := d.Ecosystem + "\x00" + deref(d.Group) + "\x00" + d.Name + "\x00" + deref(d.Scope)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, d)
	}
	slices.SortStableFunc(out, func(a, b types.ProjectDependency) int {
		return cmp.Or(
			cmp.Compare(deref(a.Group), deref(b.Group)),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(deref(a.Scope), deref(b.Scope)),
			cmp.Compare(a.Ecosystem, b.Ecosystem),
		)
	})
	return out
}

// dep builds a dependency, classifying the raw version declaration.
func dep(ecosystem, name, rawVersion, group, scope, source string) types.ProjectDependency {
	exact, spec := ClassifyVersion(rawVersion)
	return types.ProjectDependency{
		Ecosystem:          ecosystem,
		Name:               strings.TrimSpace(name),
		Version:            exact,
		VersionSpec:        spec,
		Group:              optional(group),
		Scope:              optional(scope),
		SourceManifestPath: source,
	}
}

func parseError(relPath string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrParse, relPath, err)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolPtr(b bool) *bool { return &b }

// joinRel joins a manifest-relative reference onto the manifest directory.
func joinRel(manifestPath, ref string) string {
	ref = strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(ref), "\\", "/"), "./")
	if ref == "" {
		return ""
	}
	dir := path.Dir(manifestPath)
	if dir == "." {
		return path.Clean(ref)
	}
	return path.Join(dir, ref)
}
