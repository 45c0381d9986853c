package manifest

import (
	"github.com/pelletier/go-toml/v2"

	"repoassess/internal/types"
)

type cargoParser struct{}

func (cargoParser) ProjectType() types.ProjectType { return types.ProjectTypeRust }
func (cargoParser) Ecosystem() string              { return "cargo" }
func (cargoParser) Match(name string) bool         { return name == "Cargo.toml" }

func (p cargoParser) Parse(relPath string, data []byte) (Result, error) {
	var doc struct {
		Package struct {
			Name        string `toml:"name"`
			Edition     string `toml:"edition"`
			RustVersion string `toml:"rust-version"`
		} `toml:"package"`
		Dependencies      map[string]any `toml:"dependencies"`
		DevDependencies   map[string]any `toml:"dev-dependencies"`
		BuildDependencies map[string]any `toml:"build-dependencies"`
		Bin               []struct {
			Name string `toml:"name"`
			Path string `toml:"path"`
		} `toml:"bin"`
		Workspace struct {
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"workspace"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Result{}, parseError(relPath, err)
	}
	res := Result{
		Name:      optional(doc.Package.Name),
		Framework: optional(doc.Package.Edition),
	}
	if len(doc.Bin) > 0 {
		res.IsApplication = boolPtr(true)
		for _, b := range doc.Bin {
			if b.Path != "" {
				res.Entrypoints = append(res.Entrypoints, joinRel(relPath, b.Path))
			}
		}
	}
	for _, g := range []struct {
		deps  map[string]any
		scope string
	}{
		{doc.Dependencies, ScopeRuntime},
		{doc.Workspace.Dependencies, ScopeRuntime},
		{doc.DevDependencies, ScopeDev},
		{doc.BuildDependencies, ScopeBuild},
	} {
		for _, name := range sortedKeys(g.deps) {
			version, optionalDep := poetryVersion(g.deps[name])
			scope := g.scope
			if optionalDep {
				scope = ScopeOptional
			}
			// Cargo treats a bare "1.2.3" as "^1.2.3".
			if exact, _ := ClassifyVersion(version); exact != nil && version[0] != '=' {
				version = "^" + version
			}
			res.Dependencies = append(res.Dependencies, dep(p.Ecosystem(), name, version, "", scope, relPath))
		}
	}
	return res, nil
}
